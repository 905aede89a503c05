// Package binio provides the binary cursor the HDF5 parsers read through:
// a seekable little-endian reader over a random-access file, and a bounded
// in-memory variant for decoding one header message in isolation.
package binio

import (
	"encoding/binary"
	"io"
)

// Reader is a sequential cursor over an io.ReaderAt. It owns a single
// position, so it is not safe for concurrent use; callers that need
// independent cursors derive them with At.
type Reader struct {
	r     io.ReaderAt
	order binary.ByteOrder
	pos   int64
}

// NewReader creates a reader positioned at offset 0. HDF5 structural
// fields are little-endian.
func NewReader(r io.ReaderAt) *Reader {
	return &Reader{r: r, order: binary.LittleEndian}
}

// At returns a new reader over the same source positioned at offset.
// The derived reader has an independent cursor.
func (r *Reader) At(offset uint64) *Reader {
	//nolint:gosec // G115: HDF5 addresses fit in int64 for io.ReaderAt
	return &Reader{r: r.r, order: r.order, pos: int64(offset)}
}

// Seek sets the cursor to the given file address.
func (r *Reader) Seek(addr uint64) {
	//nolint:gosec // G115: HDF5 addresses fit in int64 for io.ReaderAt
	r.pos = int64(addr)
}

// Pos returns the current cursor position.
func (r *Reader) Pos() uint64 {
	//nolint:gosec // G115: position is never negative
	return uint64(r.pos)
}

// ReadBytes reads exactly n bytes at the cursor and advances it.
// A short read surfaces as io.ErrUnexpectedEOF (truncated file).
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	read, err := r.r.ReadAt(buf, r.pos)
	if read < n {
		if err == nil || err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	r.pos += int64(n)
	return buf, nil
}

// ReadInto fills buf at the cursor and advances it.
func (r *Reader) ReadInto(buf []byte) error {
	read, err := r.r.ReadAt(buf, r.pos)
	if read < len(buf) {
		if err == nil || err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return err
	}
	r.pos += int64(len(buf))
	return nil
}

// ReadUint8 reads one byte.
func (r *Reader) ReadUint8() (uint8, error) {
	buf, err := r.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadUint16 reads a little-endian uint16.
func (r *Reader) ReadUint16() (uint16, error) {
	buf, err := r.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return r.order.Uint16(buf), nil
}

// ReadUint32 reads a little-endian uint32.
func (r *Reader) ReadUint32() (uint32, error) {
	buf, err := r.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return r.order.Uint32(buf), nil
}

// ReadUint64 reads a little-endian uint64.
func (r *Reader) ReadUint64() (uint64, error) {
	buf, err := r.ReadBytes(8)
	if err != nil {
		return 0, err
	}
	return r.order.Uint64(buf), nil
}

// ReadSized reads an unsigned integer of the given byte width (1, 2, 4
// or 8). Structural addresses and lengths are sized per the superblock,
// never hard-coded.
func (r *Reader) ReadSized(size uint8) (uint64, error) {
	buf, err := r.ReadBytes(int(size))
	if err != nil {
		return 0, err
	}
	return DecodeSized(buf, size), nil
}

// Skip advances the cursor by n bytes without reading.
func (r *Reader) Skip(n int) {
	r.pos += int64(n)
}

// DecodeSized decodes a little-endian unsigned integer of the given
// byte width from the front of data.
func DecodeSized(data []byte, size uint8) uint64 {
	switch size {
	case 1:
		return uint64(data[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(data[:2]))
	case 4:
		return uint64(binary.LittleEndian.Uint32(data[:4]))
	case 8:
		return binary.LittleEndian.Uint64(data[:8])
	default:
		var buf [8]byte
		copy(buf[:], data[:size])
		return binary.LittleEndian.Uint64(buf[:])
	}
}
