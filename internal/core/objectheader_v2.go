package core

import (
	"github.com/gridframe/hdf5/internal/binio"
	"github.com/gridframe/hdf5/internal/utils"
)

const (
	ohdrSignature = "OHDR"
	ochkSignature = "OCHK"
)

// V2 object header flag bits (H5Opublic.h).
const (
	v2FlagChunkSizeMask   = 0x03 // width of the chunk-0 size field
	v2FlagTrackCreation   = 0x04 // per-message creation order field present
	v2FlagPhaseChange     = 0x10 // attribute phase-change fields present
	v2FlagTimesStored     = 0x20 // four 4-byte time fields present
	v2ChecksumSize        = 4
	v2MessageHeaderLength = 4 // type (1) + size (2) + flags (1)
)

// v2Scanner iterates the messages of a version 2 object header. The
// prologue carries an "OHDR" signature and a flags byte whose bits
// change both the prologue width and the per-message header width, so
// the scanner branches on flags rather than assuming one format.
// Continuation blocks start with an "OCHK" signature and end with a
// checksum.
type v2Scanner struct {
	r       *binio.Reader
	sb      *Superblock
	flags   uint8
	cur     blockSpan
	pending []blockSpan
}

// newV2Scanner parses the v2 prologue. br is positioned just past the
// 4-byte signature.
func newV2Scanner(br *binio.Reader, address uint64, sb *Superblock) (*v2Scanner, uint8, error) {
	head, err := br.ReadBytes(2)
	if err != nil {
		return nil, 0, utils.WrapError("v2 header prologue read failed", err)
	}
	if head[0] != 2 {
		return nil, 0, utils.NewFormatError(address, "bad v2 object header version: %d", head[0])
	}
	flags := head[1]

	if flags&v2FlagTimesStored != 0 {
		br.Skip(16) // access/mod/change/birth times
	}
	if flags&v2FlagPhaseChange != 0 {
		br.Skip(4) // max compact / min dense attribute counts
	}

	chunkSizeWidth := uint8(1) << (flags & v2FlagChunkSizeMask)
	chunkSize, err := br.ReadSized(chunkSizeWidth)
	if err != nil {
		return nil, 0, utils.WrapError("v2 chunk size read failed", err)
	}

	s := &v2Scanner{
		r:     br,
		sb:    sb,
		flags: flags,
		cur:   blockSpan{start: br.Pos(), end: br.Pos() + chunkSize},
	}
	return s, flags, nil
}

func (s *v2Scanner) headerLen() uint64 {
	n := uint64(v2MessageHeaderLength)
	if s.flags&v2FlagTrackCreation != 0 {
		n += 2
	}
	return n
}

func (s *v2Scanner) next() (*Message, error) {
	for {
		if s.r.Pos()+s.headerLen() > s.cur.end {
			if len(s.pending) == 0 {
				return nil, nil
			}
			next := s.pending[0]
			s.pending = s.pending[1:]
			span, err := s.enterContinuation(next)
			if err != nil {
				return nil, err
			}
			s.cur = span
			continue
		}

		head, err := s.r.ReadBytes(int(s.headerLen()))
		if err != nil {
			return nil, utils.WrapError("v2 message header read failed", err)
		}
		msgType := MessageType(head[0])
		msgSize := s.sb.Endianness.Uint16(head[1:3])
		msgFlags := head[3]
		// Creation order field, when present, is not retained.

		data, err := s.r.ReadBytes(int(msgSize))
		if err != nil {
			return nil, utils.WrapError("v2 message payload read failed", err)
		}

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

// enterContinuation validates a v2 continuation block's OCHK signature
// and returns the span of its message region (signature and trailing
// checksum excluded).
func (s *v2Scanner) enterContinuation(span blockSpan) (blockSpan, error) {
	s.r.Seek(span.start)
	sig, err := s.r.ReadBytes(4)
	if err != nil {
		return blockSpan{}, utils.WrapError("continuation block read failed", err)
	}
	if string(sig) != ochkSignature {
		return blockSpan{}, utils.NewFormatError(span.start,
			"bad continuation block signature: %q", string(sig))
	}
	if span.end-span.start < 4+v2ChecksumSize {
		return blockSpan{}, utils.NewFormatError(span.start, "continuation block too small")
	}
	return blockSpan{start: span.start + 4, end: span.end - v2ChecksumSize}, nil
}
