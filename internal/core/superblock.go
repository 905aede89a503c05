// Package core parses the HDF5 container structures: superblock, object
// headers and the header messages that describe datasets and groups.
package core

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/gridframe/hdf5/internal/binio"
	"github.com/gridframe/hdf5/internal/utils"
)

// Signature is the 8-byte HDF5 file signature.
const Signature = "\x89HDF\r\n\x1a\n"

// ErrNoSignature marks a file with no HDF5 signature at any scanned
// offset.
var ErrNoSignature = errors.New("HDF5 signature not found")

// signatureStep is the scan increment when the HDF5 payload does not
// start at offset 0 (file embedded in another container).
const signatureStep = 512

// Superblock holds the file-level metadata every other structure
// depends on: the format version, the negotiated byte widths of
// addresses and lengths, and the root group location.
//
// StartOffset is the byte offset of the HDF5 signature within the
// underlying file. Every address stored in the file is relative to the
// signature, so callers must pass raw addresses through Adjust before
// dereferencing them.
type Superblock struct {
	Version     uint8
	OffsetSize  uint8
	LengthSize  uint8
	BaseAddress uint64
	RootGroup   uint64 // raw object header address of the root group
	StartOffset uint64
	Endianness  binary.ByteOrder
}

// Adjust converts a raw file-relative address to an absolute offset in
// the underlying file.
func (sb *Superblock) Adjust(addr uint64) uint64 {
	return addr + sb.StartOffset
}

// ReadSuperblock locates the HDF5 signature and parses the superblock.
// Versions 0 through 3 are supported. The signature is searched at
// offset 0 and then at 512-byte increments, so HDF5 payloads embedded
// after leading non-HDF5 content are found.
func ReadSuperblock(r io.ReaderAt, fileSize int64) (*Superblock, error) {
	start, err := findSignature(r, fileSize)
	if err != nil {
		return nil, err
	}

	br := binio.NewReader(r).At(start + 8) // past the signature

	version, err := br.ReadUint8()
	if err != nil {
		return nil, utils.WrapError("superblock version read failed", err)
	}
	if version > 3 {
		return nil, utils.NewFormatError(start+8, "unsupported superblock version: %d", version)
	}

	sb := &Superblock{
		Version:     version,
		StartOffset: start,
		Endianness:  binary.LittleEndian,
	}

	if version <= 1 {
		err = sb.readLegacy(br)
	} else {
		err = sb.readCompact(br)
	}
	if err != nil {
		return nil, err
	}

	if !validWidth(sb.OffsetSize) || !validWidth(sb.LengthSize) {
		return nil, utils.NewFormatError(start,
			"invalid address widths: offset=%d, length=%d", sb.OffsetSize, sb.LengthSize)
	}
	return sb, nil
}

// findSignature scans for the HDF5 signature at 512-byte steps.
func findSignature(r io.ReaderAt, fileSize int64) (uint64, error) {
	buf := utils.GetBuffer(8)
	defer utils.ReleaseBuffer(buf)

	for off := int64(0); off+8 <= fileSize; {
		if _, err := r.ReadAt(buf, off); err != nil {
			return 0, utils.WrapError("signature read failed", err)
		}
		if string(buf) == Signature {
			//nolint:gosec // G115: scan offsets are non-negative
			return uint64(off), nil
		}
		if off == 0 {
			off = signatureStep
		} else {
			off += signatureStep
		}
	}
	return 0, ErrNoSignature
}

// readLegacy parses the version 0/1 superblock body. The cursor is
// positioned just past the version byte.
//
// Layout after the signature (H5Fsuper.c):
//
//	superblock version (1), free-space version (1), root group
//	symbol-table version (1), reserved (1), shared-header version (1),
//	size of offsets (1), size of lengths (1), reserved (1),
//	group leaf K (2), group internal K (2), consistency flags (4),
//	[v1 only: indexed-storage K (2), reserved (2)],
//	base address, free-space address, end-of-file address, driver-info
//	address (each offsetSize), then the root group symbol table entry:
//	link name offset (offsetSize), object header address (offsetSize),
//	cache type (4), reserved (4), scratch-pad (16).
func (sb *Superblock) readLegacy(br *binio.Reader) error {
	head, err := br.ReadBytes(7)
	if err != nil {
		return utils.WrapError("superblock prologue read failed", err)
	}
	// head: fs version, root version, reserved, shared version,
	// offset size, length size, reserved.
	sb.OffsetSize = head[4]
	sb.LengthSize = head[5]

	br.Skip(2 + 2 + 4) // group Ks + consistency flags
	if sb.Version == 1 {
		br.Skip(4) // indexed-storage K + reserved
	}

	sb.BaseAddress, err = br.ReadSized(sb.OffsetSize)
	if err != nil {
		return utils.WrapError("base address read failed", err)
	}
	br.Skip(2 * int(sb.OffsetSize)) // free-space and end-of-file addresses
	br.Skip(int(sb.OffsetSize))     // driver-info address

	// Root group symbol table entry.
	br.Skip(int(sb.OffsetSize)) // link name offset
	sb.RootGroup, err = br.ReadSized(sb.OffsetSize)
	if err != nil {
		return utils.WrapError("root group address read failed", err)
	}
	return nil
}

// readCompact parses the version 2/3 superblock body. The cursor is
// positioned just past the version byte.
//
// Layout: size of offsets (1), size of lengths (1), consistency flags
// (1), base address, superblock-extension address, end-of-file address,
// root group object header address (each offsetSize), checksum (4).
func (sb *Superblock) readCompact(br *binio.Reader) error {
	head, err := br.ReadBytes(3)
	if err != nil {
		return utils.WrapError("superblock prologue read failed", err)
	}
	sb.OffsetSize = head[0]
	sb.LengthSize = head[1]
	if !validWidth(sb.OffsetSize) {
		return utils.NewFormatError(sb.StartOffset, "invalid offset size: %d", sb.OffsetSize)
	}

	sb.BaseAddress, err = br.ReadSized(sb.OffsetSize)
	if err != nil {
		return utils.WrapError("base address read failed", err)
	}
	br.Skip(int(sb.OffsetSize)) // superblock extension address
	br.Skip(int(sb.OffsetSize)) // end-of-file address

	sb.RootGroup, err = br.ReadSized(sb.OffsetSize)
	if err != nil {
		return utils.WrapError("root group address read failed", err)
	}
	// Trailing checksum not verified on read.
	return nil
}

func validWidth(w uint8) bool {
	return w == 4 || w == 8
}
