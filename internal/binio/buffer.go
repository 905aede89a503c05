package binio

import "io"

// Buffer is a bounded cursor over an already-materialized byte slice,
// typically one header message's payload. Decoders read from it without
// risking overrun into the next message: every read past the end fails
// with io.ErrUnexpectedEOF.
type Buffer struct {
	data []byte
	pos  int
}

// FromBytes constructs a bounded reader over data.
func FromBytes(data []byte) *Buffer {
	return &Buffer{data: data}
}

// Remaining reports the number of unread bytes.
func (b *Buffer) Remaining() int {
	return len(b.data) - b.pos
}

// Pos returns the cursor position within the buffer.
func (b *Buffer) Pos() int {
	return b.pos
}

// ReadBytes returns the next n bytes. The returned slice aliases the
// buffer's backing array.
func (b *Buffer) ReadBytes(n int) ([]byte, error) {
	if b.Remaining() < n {
		return nil, io.ErrUnexpectedEOF
	}
	out := b.data[b.pos : b.pos+n]
	b.pos += n
	return out, nil
}

// Skip advances the cursor by n bytes.
func (b *Buffer) Skip(n int) error {
	if b.Remaining() < n {
		return io.ErrUnexpectedEOF
	}
	b.pos += n
	return nil
}

// ReadUint8 reads one byte.
func (b *Buffer) ReadUint8() (uint8, error) {
	buf, err := b.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadUint16 reads a little-endian uint16.
func (b *Buffer) ReadUint16() (uint16, error) {
	buf, err := b.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return uint16(buf[0]) | uint16(buf[1])<<8, nil
}

// ReadUint32 reads a little-endian uint32.
func (b *Buffer) ReadUint32() (uint32, error) {
	buf, err := b.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24, nil
}

// ReadUint64 reads a little-endian uint64.
func (b *Buffer) ReadUint64() (uint64, error) {
	lo, err := b.ReadUint32()
	if err != nil {
		return 0, err
	}
	hi, err := b.ReadUint32()
	if err != nil {
		return 0, err
	}
	return uint64(lo) | uint64(hi)<<32, nil
}

// ReadSized reads an unsigned integer of the given byte width.
func (b *Buffer) ReadSized(size uint8) (uint64, error) {
	buf, err := b.ReadBytes(int(size))
	if err != nil {
		return 0, err
	}
	return DecodeSized(buf, size), nil
}

// ReadRemaining returns every unread byte and exhausts the buffer. The
// returned slice aliases the buffer's backing array.
func (b *Buffer) ReadRemaining() []byte {
	out := b.data[b.pos:]
	b.pos = len(b.data)
	return out
}

// ReadCString reads a null-terminated string and consumes the
// terminator.
func (b *Buffer) ReadCString() (string, error) {
	for i := b.pos; i < len(b.data); i++ {
		if b.data[i] == 0 {
			s := string(b.data[b.pos:i])
			b.pos = i + 1
			return s, nil
		}
	}
	return "", io.ErrUnexpectedEOF
}
