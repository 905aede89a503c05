package core

import (
	"github.com/gridframe/hdf5/internal/binio"
	"github.com/gridframe/hdf5/internal/utils"
)

// v1Scanner iterates the messages of a version 1 object header.
//
// V1 layout (no signature):
//
//	version (1), reserved (1), message count (2), reference count (4),
//	header size (4), alignment padding (4), then messages.
//
// Each message: type (2), size (2), flags (1), reserved (3), payload,
// then padding to the next 8-byte boundary. Continuation messages
// (0x0010) carry an address/length pair naming a further block of
// messages in the same format; the scanner follows them transparently.
type v1Scanner struct {
	r         *binio.Reader
	sb        *Superblock
	remaining uint16
	cur       blockSpan
	pending   []blockSpan
}

type blockSpan struct {
	start uint64
	end   uint64
}

func newV1Scanner(br *binio.Reader, address uint64, sb *Superblock) (*v1Scanner, error) {
	head, err := br.ReadBytes(16)
	if err != nil {
		return nil, utils.WrapError("v1 header prologue read failed", err)
	}
	if head[0] != 1 {
		return nil, utils.NewFormatError(address, "bad v1 object header version: %d", head[0])
	}

	numMessages := sb.Endianness.Uint16(head[2:4])
	headerSize := sb.Endianness.Uint32(head[8:12])
	// head[12:16] is alignment padding, present only in v1 headers.

	s := &v1Scanner{
		r:         br,
		sb:        sb,
		remaining: numMessages,
		cur: blockSpan{
			start: address + 16,
			end:   address + 16 + uint64(headerSize),
		},
	}
	br.Seek(s.cur.start)
	return s, nil
}

func (s *v1Scanner) next() (*Message, error) {
	for {
		if s.remaining == 0 {
			return nil, nil
		}
		if s.r.Pos()+8 > s.cur.end {
			// Current block exhausted; move to the next continuation
			// block if one is queued. Running out of blocks with
			// messages still owed means the header lied about its
			// message count.
			if len(s.pending) == 0 {
				return nil, utils.NewFormatError(s.cur.end,
					"object header truncated with %d messages undelivered", s.remaining)
			}
			s.cur = s.pending[0]
			s.pending = s.pending[1:]
			s.r.Seek(s.cur.start)
			continue
		}

		head, err := s.r.ReadBytes(8)
		if err != nil {
			return nil, utils.WrapError("v1 message header read failed", err)
		}
		msgType := MessageType(s.sb.Endianness.Uint16(head[0:2]))
		msgSize := s.sb.Endianness.Uint16(head[2:4])
		msgFlags := head[4]

		data, err := s.r.ReadBytes(int(msgSize))
		if err != nil {
			return nil, utils.WrapError("v1 message payload read failed", err)
		}
		// Messages are 8-byte aligned in v1 headers.
		s.r.Skip(int((8 - msgSize%8) % 8))
		s.remaining--

		switch msgType {
		case MsgNil:
			continue
		case MsgContinuation:
			span, err := parseContinuation(data, s.sb)
			if err != nil {
				return nil, err
			}
			s.pending = append(s.pending, span)
			continue
		}
		return &Message{Type: msgType, Flags: msgFlags, Data: data}, nil
	}
}

// parseContinuation decodes a continuation payload: the absolute block
// bounds of the next message region.
func parseContinuation(data []byte, sb *Superblock) (blockSpan, error) {
	buf := binio.FromBytes(data)
	addr, err := buf.ReadSized(sb.OffsetSize)
	if err != nil {
		return blockSpan{}, utils.WrapError("continuation address read failed", err)
	}
	length, err := buf.ReadSized(sb.LengthSize)
	if err != nil {
		return blockSpan{}, utils.WrapError("continuation length read failed", err)
	}
	if length == 0 {
		return blockSpan{}, utils.NewFormatError(addr, "continuation block with zero length")
	}
	start := sb.Adjust(addr)
	return blockSpan{start: start, end: start + length}, nil
}
