package core

import (
	"github.com/gridframe/hdf5/internal/binio"
	"github.com/gridframe/hdf5/internal/utils"
)

// Dataspace describes the shape of a dataset or attribute: its rank
// and the current dimension sizes. A rank of 0 is a scalar. Immutable
// once parsed.
type Dataspace struct {
	Version uint8
	Rank    uint8
	Dims    []uint64
	MaxDims []uint64 // nil when not stored; ^0 marks an unlimited dimension
}

// ParseDataspace decodes a dataspace message payload. Dimension sizes
// are stored with the superblock's length width, so the superblock is
// required.
//
// V1 layout: version (1), rank (1), flags (1), reserved (5), dims,
// then max dims when flag bit 0 is set. V2 drops the reserved run and
// adds a dataspace-type byte instead.
func ParseDataspace(data []byte, sb *Superblock) (*Dataspace, error) {
	buf := binio.FromBytes(data)

	head, err := buf.ReadBytes(3)
	if err != nil {
		return nil, utils.WrapError("dataspace header read failed", err)
	}
	ds := &Dataspace{Version: head[0], Rank: head[1]}
	flags := head[2]

	switch ds.Version {
	case 1:
		if err := buf.Skip(5); err != nil {
			return nil, utils.WrapError("dataspace reserved skip failed", err)
		}
	case 2:
		if err := buf.Skip(1); err != nil { // dataspace type
			return nil, utils.WrapError("dataspace type skip failed", err)
		}
	default:
		return nil, utils.NewUnsupportedError("dataspace version %d", ds.Version)
	}

	ds.Dims = make([]uint64, ds.Rank)
	for i := range ds.Dims {
		ds.Dims[i], err = buf.ReadSized(sb.LengthSize)
		if err != nil {
			return nil, utils.WrapError("dataspace dimension read failed", err)
		}
	}

	if flags&0x01 != 0 {
		ds.MaxDims = make([]uint64, ds.Rank)
		for i := range ds.MaxDims {
			ds.MaxDims[i], err = buf.ReadSized(sb.LengthSize)
			if err != nil {
				return nil, utils.WrapError("dataspace max dimension read failed", err)
			}
		}
	}
	return ds, nil
}

// TotalElements returns the number of elements in the dataspace. A
// scalar dataspace holds one element.
func (ds *Dataspace) TotalElements() (uint64, error) {
	total := uint64(1)
	for _, d := range ds.Dims {
		var err error
		total, err = utils.SafeMultiply(total, d)
		if err != nil {
			return 0, utils.WrapError("dataspace element count overflow", err)
		}
	}
	return total, nil
}
