package core

import (
	"encoding/binary"
	"fmt"

	"github.com/gridframe/hdf5/internal/binio"
	"github.com/gridframe/hdf5/internal/utils"
)

// DatatypeClass identifies the HDF5 datatype class.
type DatatypeClass uint8

// Datatype classes (low nibble of the class-and-version word).
const (
	ClassFixed     DatatypeClass = 0
	ClassFloat     DatatypeClass = 1
	ClassTime      DatatypeClass = 2
	ClassString    DatatypeClass = 3
	ClassBitfield  DatatypeClass = 4
	ClassOpaque    DatatypeClass = 5
	ClassCompound  DatatypeClass = 6
	ClassReference DatatypeClass = 7
	ClassEnum      DatatypeClass = 8
	ClassVarLen    DatatypeClass = 9
	ClassArray     DatatypeClass = 10
)

// String-padding kinds (string class bit field, bits 0-3).
const (
	StringPadNull  = 0 // null-terminated
	StringPadZero  = 1 // null-padded
	StringPadSpace = 2 // space-padded
)

// CompoundMember is one field of a compound datatype.
type CompoundMember struct {
	Name   string
	Offset uint32 // byte offset within the compound element
	Type   *Datatype
}

// Datatype describes how one element is encoded: its class, byte
// width and the class-specific bit field. Compound and variable-length
// types carry nested member/base descriptions. Immutable once parsed.
type Datatype struct {
	Class   DatatypeClass
	Version uint8
	Size    uint32 // byte width of one element
	Bits    uint32 // 24-bit class bit field
	Members []CompoundMember
	Base    *Datatype // element type for vlen/array/enum
}

// ParseDatatype decodes a datatype message payload.
func ParseDatatype(data []byte) (*Datatype, error) {
	return parseDatatype(binio.FromBytes(data))
}

// parseDatatype decodes a datatype from the cursor, consuming exactly
// the bytes belonging to it so nested types (compound members, vlen
// bases) parse from the same buffer.
func parseDatatype(buf *binio.Buffer) (*Datatype, error) {
	word, err := buf.ReadUint32()
	if err != nil {
		return nil, utils.WrapError("datatype header read failed", err)
	}
	size, err := buf.ReadUint32()
	if err != nil {
		return nil, utils.WrapError("datatype size read failed", err)
	}

	dt := &Datatype{
		//nolint:gosec // G115: low nibble of the class-and-version word
		Class:   DatatypeClass(word & 0x0F),
		Version: uint8((word >> 4) & 0x0F),
		Size:    size,
		Bits:    word >> 8,
	}

	switch dt.Class {
	case ClassFixed:
		err = buf.Skip(4) // bit offset + bit precision
	case ClassFloat:
		err = buf.Skip(12) // bit layout + exponent bias
	case ClassTime:
		err = buf.Skip(2)
	case ClassString, ClassReference:
		// No properties; padding and charset live in the bit field.
	case ClassBitfield:
		err = buf.Skip(4)
	case ClassOpaque:
		err = buf.Skip(int(dt.Bits & 0xFF)) // ASCII tag
	case ClassCompound:
		err = dt.parseCompoundMembers(buf)
	case ClassEnum:
		err = dt.parseEnum(buf)
	case ClassVarLen:
		dt.Base, err = parseDatatype(buf)
	case ClassArray:
		err = dt.parseArray(buf)
	default:
		return nil, utils.NewUnsupportedError("datatype class %d", dt.Class)
	}
	if err != nil {
		return nil, err
	}
	return dt, nil
}

func (dt *Datatype) parseCompoundMembers(buf *binio.Buffer) error {
	count := int(dt.Bits & 0xFFFF)
	dt.Members = make([]CompoundMember, 0, count)

	for i := 0; i < count; i++ {
		var m CompoundMember
		name, err := buf.ReadCString()
		if err != nil {
			return utils.WrapError("compound member name read failed", err)
		}
		m.Name = name

		if dt.Version < 3 {
			// Name is padded to an 8-byte multiple (terminator included).
			pad := (8 - (len(name)+1)%8) % 8
			if err := buf.Skip(pad); err != nil {
				return utils.WrapError("compound member padding skip failed", err)
			}
		}

		switch dt.Version {
		case 1:
			off, err := buf.ReadUint32()
			if err != nil {
				return utils.WrapError("compound member offset read failed", err)
			}
			m.Offset = off
			// Dimensionality (1), reserved (3), permutation (4),
			// reserved (4), four dimension sizes (16).
			if err := buf.Skip(28); err != nil {
				return utils.WrapError("compound member props skip failed", err)
			}
		case 2:
			off, err := buf.ReadUint32()
			if err != nil {
				return utils.WrapError("compound member offset read failed", err)
			}
			m.Offset = off
		default:
			// V3: offset width is the minimum needed to hold the
			// compound's size.
			off, err := buf.ReadSized(minimalWidth(dt.Size))
			if err != nil {
				return utils.WrapError("compound member offset read failed", err)
			}
			//nolint:gosec // G115: member offsets fit the compound size
			m.Offset = uint32(off)
		}

		m.Type, err = parseDatatype(buf)
		if err != nil {
			return utils.WrapError(fmt.Sprintf("compound member %q parse failed", name), err)
		}
		dt.Members = append(dt.Members, m)
	}
	return nil
}

func (dt *Datatype) parseEnum(buf *binio.Buffer) error {
	base, err := parseDatatype(buf)
	if err != nil {
		return utils.WrapError("enum base type parse failed", err)
	}
	dt.Base = base

	// Names and values are not retained; consume them so anything
	// following this datatype in the buffer stays aligned.
	count := int(dt.Bits & 0xFFFF)
	for i := 0; i < count; i++ {
		name, err := buf.ReadCString()
		if err != nil {
			return utils.WrapError("enum name read failed", err)
		}
		if dt.Version < 3 {
			pad := (8 - (len(name)+1)%8) % 8
			if err := buf.Skip(pad); err != nil {
				return err
			}
		}
	}
	return buf.Skip(count * int(base.Size))
}

func (dt *Datatype) parseArray(buf *binio.Buffer) error {
	ndims, err := buf.ReadUint8()
	if err != nil {
		return utils.WrapError("array dimensionality read failed", err)
	}
	if dt.Version == 2 {
		if err := buf.Skip(3); err != nil { // reserved
			return err
		}
	}
	if err := buf.Skip(int(ndims) * 4); err != nil { // dimension sizes
		return err
	}
	if dt.Version == 2 {
		if err := buf.Skip(int(ndims) * 4); err != nil { // permutation indices
			return err
		}
	}
	dt.Base, err = parseDatatype(buf)
	return err
}

// minimalWidth returns the smallest byte width that can hold v.
func minimalWidth(v uint32) uint8 {
	switch {
	case v < 1<<8:
		return 1
	case v < 1<<16:
		return 2
	default:
		return 4
	}
}

// ByteOrder returns the element byte order (bit 0 of the class bits).
func (dt *Datatype) ByteOrder() binary.ByteOrder {
	if dt.Bits&0x01 != 0 {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Signed reports whether a fixed-point type is two's-complement signed
// (bit 3 of the class bits).
func (dt *Datatype) Signed() bool {
	return dt.Class == ClassFixed && dt.Bits&0x08 != 0
}

// StringPadding returns the padding kind for string types.
func (dt *Datatype) StringPadding() uint8 {
	//nolint:gosec // G115: 4-bit field
	return uint8(dt.Bits & 0x0F)
}

// IsVariableString reports whether this is a variable-length string
// type (vlen class with string semantics).
func (dt *Datatype) IsVariableString() bool {
	if dt.Class != ClassVarLen {
		return false
	}
	if dt.Bits&0x0F == 1 {
		return true
	}
	return dt.Base != nil && dt.Base.Class == ClassString
}

// String returns a short human-readable description.
func (dt *Datatype) String() string {
	var name string
	switch dt.Class {
	case ClassFixed:
		if dt.Signed() {
			name = "int"
		} else {
			name = "uint"
		}
	case ClassFloat:
		name = "float"
	case ClassString:
		name = "string"
	case ClassCompound:
		name = "compound"
	case ClassVarLen:
		name = "vlen"
	case ClassArray:
		name = "array"
	default:
		name = fmt.Sprintf("class_%d", dt.Class)
	}
	return fmt.Sprintf("%s (size=%d)", name, dt.Size)
}
