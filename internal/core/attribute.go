package core

import (
	"io"

	"github.com/gridframe/hdf5/internal/binio"
	"github.com/gridframe/hdf5/internal/utils"
)

// Attribute is one decoded attribute: name, type, shape and value.
// Scalar attributes carry the bare value; others carry a flat []any in
// row-major order.
type Attribute struct {
	Name      string
	Datatype  *Datatype
	Dataspace *Dataspace
	Value     any
}

// ParseAttribute decodes an attribute message (versions 1 through 3).
// The file reader is needed because variable-length values live in
// global heap collections outside the message.
//
// V1 pads name, datatype and dataspace to 8-byte multiples; v2 drops
// the padding; v3 additionally inserts a name character-set byte.
func ParseAttribute(data []byte, r io.ReaderAt, sb *Superblock) (*Attribute, error) {
	buf := binio.FromBytes(data)

	head, err := buf.ReadBytes(8)
	if err != nil {
		return nil, utils.WrapError("attribute header read failed", err)
	}
	version := head[0]
	if version < 1 || version > 3 {
		return nil, utils.NewUnsupportedError("attribute message version %d", version)
	}
	if version >= 2 && head[1]&0x03 != 0 {
		// Flag bits 0/1 mark the datatype/dataspace blocks as shared
		// message references rather than inline descriptions.
		return nil, utils.NewUnsupportedError("shared attribute datatype or dataspace")
	}
	nameSize := sb.Endianness.Uint16(head[2:4])
	typeSize := sb.Endianness.Uint16(head[4:6])
	spaceSize := sb.Endianness.Uint16(head[6:8])

	if version == 3 {
		if err := buf.Skip(1); err != nil { // name character set
			return nil, utils.WrapError("attribute charset skip failed", err)
		}
	}

	readBlock := func(size uint16, what string) ([]byte, error) {
		raw, err := buf.ReadBytes(int(size))
		if err != nil {
			return nil, utils.WrapError("attribute "+what+" read failed", err)
		}
		if version == 1 {
			if err := buf.Skip(int((8 - size%8) % 8)); err != nil {
				return nil, utils.WrapError("attribute "+what+" padding skip failed", err)
			}
		}
		return raw, nil
	}

	nameRaw, err := readBlock(nameSize, "name")
	if err != nil {
		return nil, err
	}
	typeRaw, err := readBlock(typeSize, "datatype")
	if err != nil {
		return nil, err
	}
	spaceRaw, err := readBlock(spaceSize, "dataspace")
	if err != nil {
		return nil, err
	}

	attr := &Attribute{Name: cstring(nameRaw)}
	attr.Datatype, err = ParseDatatype(typeRaw)
	if err != nil {
		return nil, utils.WrapError("attribute datatype parse failed", err)
	}
	attr.Dataspace, err = ParseDataspace(spaceRaw, sb)
	if err != nil {
		return nil, utils.WrapError("attribute dataspace parse failed", err)
	}

	count, err := attr.Dataspace.TotalElements()
	if err != nil {
		return nil, err
	}
	needed, err := utils.SafeMultiply(count, uint64(attr.Datatype.Size))
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateBufferSize(max(needed, 1), utils.MaxAttributeSize, "attribute value"); err != nil {
		return nil, err
	}

	valueRaw := buf.ReadRemaining()
	if uint64(len(valueRaw)) < needed {
		return nil, utils.NewFormatError(0, "attribute value truncated: have %d bytes, need %d",
			len(valueRaw), needed)
	}

	values, err := decodeElements(valueRaw, attr.Datatype, count, r, sb)
	if err != nil {
		return nil, utils.WrapError("attribute value decode failed", err)
	}
	if attr.Dataspace.Rank == 0 && len(values) == 1 {
		attr.Value = values[0]
	} else {
		attr.Value = values
	}
	return attr, nil
}

// cstring returns the bytes up to the first NUL.
func cstring(raw []byte) string {
	for i, b := range raw {
		if b == 0 {
			return string(raw[:i])
		}
	}
	return string(raw)
}
