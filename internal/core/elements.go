package core

import (
	"bytes"
	"io"
	"math"

	"github.com/gridframe/hdf5/internal/binio"
	"github.com/gridframe/hdf5/internal/utils"
)

// decodeElements converts count raw elements into Go values, flat in
// row-major order. Fixed-point elements become int8..int64 or
// uint8..uint64 by width and sign, floats become float32/float64,
// fixed strings have their padding trimmed, variable-length elements
// are resolved through the global heap, and compound elements become
// maps keyed by member name.
func decodeElements(raw []byte, dt *Datatype, count uint64, r io.ReaderAt, sb *Superblock) ([]any, error) {
	size := uint64(dt.Size)
	if size == 0 {
		return nil, utils.NewFormatError(0, "datatype with zero element size")
	}
	if uint64(len(raw)) < count*size {
		return nil, utils.NewFormatError(0, "element data truncated: have %d bytes, need %d",
			len(raw), count*size)
	}

	out := make([]any, 0, count)
	for i := uint64(0); i < count; i++ {
		v, err := decodeElement(raw[i*size:(i+1)*size], dt, r, sb)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func decodeElement(elem []byte, dt *Datatype, r io.ReaderAt, sb *Superblock) (any, error) {
	switch dt.Class {
	case ClassFixed, ClassEnum, ClassBitfield:
		base := dt
		if dt.Class == ClassEnum && dt.Base != nil {
			base = dt.Base
		}
		return decodeFixed(elem, base)

	case ClassFloat:
		return decodeFloat(elem, dt)

	case ClassString:
		return trimStringPadding(elem, dt.StringPadding()), nil

	case ClassVarLen:
		return decodeVarLen(elem, dt, r, sb)

	case ClassCompound:
		return decodeCompound(elem, dt, r, sb)

	case ClassReference, ClassOpaque:
		return append([]byte(nil), elem...), nil

	default:
		return nil, utils.NewUnsupportedError("decoding datatype class %d", dt.Class)
	}
}

func decodeFixed(elem []byte, dt *Datatype) (any, error) {
	order := dt.ByteOrder()
	signed := dt.Signed()

	switch len(elem) {
	case 1:
		if signed {
			return int8(elem[0]), nil
		}
		return elem[0], nil
	case 2:
		v := order.Uint16(elem)
		if signed {
			//nolint:gosec // G115: reinterpreting stored two's-complement bits
			return int16(v), nil
		}
		return v, nil
	case 4:
		v := order.Uint32(elem)
		if signed {
			//nolint:gosec // G115: reinterpreting stored two's-complement bits
			return int32(v), nil
		}
		return v, nil
	case 8:
		v := order.Uint64(elem)
		if signed {
			//nolint:gosec // G115: reinterpreting stored two's-complement bits
			return int64(v), nil
		}
		return v, nil
	default:
		return nil, utils.NewUnsupportedError("%d-byte fixed-point element", len(elem))
	}
}

func decodeFloat(elem []byte, dt *Datatype) (any, error) {
	order := dt.ByteOrder()
	switch len(elem) {
	case 4:
		return math.Float32frombits(order.Uint32(elem)), nil
	case 8:
		return math.Float64frombits(order.Uint64(elem)), nil
	default:
		return nil, utils.NewUnsupportedError("%d-byte float element", len(elem))
	}
}

func trimStringPadding(elem []byte, padding uint8) string {
	switch padding {
	case StringPadSpace:
		return string(bytes.TrimRight(elem, " \x00"))
	default:
		// Null-terminated and null-padded both stop at the first NUL.
		return cstring(elem)
	}
}

// decodeVarLen resolves one variable-length element: a 4-byte length,
// a global heap collection address and a 4-byte object index.
func decodeVarLen(elem []byte, dt *Datatype, r io.ReaderAt, sb *Superblock) (any, error) {
	buf := binio.FromBytes(elem)
	length, err := buf.ReadUint32()
	if err != nil {
		return nil, utils.WrapError("vlen length read failed", err)
	}
	heapAddr, err := buf.ReadSized(sb.OffsetSize)
	if err != nil {
		return nil, utils.WrapError("vlen heap address read failed", err)
	}
	index, err := buf.ReadUint32()
	if err != nil {
		return nil, utils.WrapError("vlen heap index read failed", err)
	}

	if length == 0 {
		if dt.IsVariableString() {
			return "", nil
		}
		return []any{}, nil
	}

	data, err := ReadGlobalHeapObject(r, sb.Adjust(heapAddr), index, sb)
	if err != nil {
		return nil, utils.WrapError("vlen heap object read failed", err)
	}

	// The stored length counts elements, not bytes: a sequence of
	// 4-byte elements occupies length*4 heap bytes.
	elemWidth := uint64(1)
	if !dt.IsVariableString() && dt.Base != nil {
		elemWidth = uint64(dt.Base.Size)
	}
	byteLen, err := utils.SafeMultiply(uint64(length), elemWidth)
	if err != nil {
		return nil, err
	}
	if uint64(len(data)) < byteLen {
		return nil, utils.NewFormatError(heapAddr,
			"vlen heap object of %d bytes shorter than %d declared elements", len(data), length)
	}
	data = data[:byteLen]

	if dt.IsVariableString() {
		return string(data), nil
	}
	if dt.Base == nil {
		return data, nil
	}
	return decodeElements(data, dt.Base, uint64(length), r, sb)
}

func decodeCompound(elem []byte, dt *Datatype, r io.ReaderAt, sb *Superblock) (any, error) {
	out := make(map[string]any, len(dt.Members))
	for _, m := range dt.Members {
		end := uint64(m.Offset) + uint64(m.Type.Size)
		if end > uint64(len(elem)) {
			return nil, utils.NewFormatError(0,
				"compound member %q extends past element bounds", m.Name)
		}
		v, err := decodeElement(elem[m.Offset:end], m.Type, r, sb)
		if err != nil {
			return nil, utils.WrapError("compound member decode failed", err)
		}
		out[m.Name] = v
	}
	return out, nil
}
