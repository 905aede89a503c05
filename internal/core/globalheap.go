package core

import (
	"io"

	"github.com/gridframe/hdf5/internal/binio"
	"github.com/gridframe/hdf5/internal/utils"
)

const gcolSignature = "GCOL"

// ReadGlobalHeapObject fetches one object from a global heap
// collection. Variable-length data elements store a (collection
// address, object index) pair instead of the bytes themselves; this
// resolves such a reference. The address must already be adjusted.
//
// Collection layout: signature "GCOL" (4), version (1), reserved (3),
// collection size (lengthSize), then objects. Each object: index (2),
// reference count (2), reserved (4), object size (lengthSize), data
// padded to an 8-byte multiple. Index 0 marks the free-space tail.
func ReadGlobalHeapObject(r io.ReaderAt, address uint64, index uint32, sb *Superblock) ([]byte, error) {
	br := binio.NewReader(r).At(address)

	sig, err := br.ReadBytes(4)
	if err != nil {
		return nil, utils.WrapError("global heap read failed", err)
	}
	if string(sig) != gcolSignature {
		return nil, utils.NewFormatError(address, "bad global heap signature: %q", string(sig))
	}
	version, err := br.ReadUint8()
	if err != nil {
		return nil, utils.WrapError("global heap version read failed", err)
	}
	if version != 1 {
		return nil, utils.NewUnsupportedError("global heap version %d", version)
	}
	br.Skip(3) // reserved

	collSize, err := br.ReadSized(sb.LengthSize)
	if err != nil {
		return nil, utils.WrapError("global heap size read failed", err)
	}
	end := address + collSize

	for br.Pos()+8+uint64(sb.LengthSize) <= end {
		objIndex, err := br.ReadUint16()
		if err != nil {
			return nil, utils.WrapError("global heap object header read failed", err)
		}
		if objIndex == 0 {
			// Free space object terminates the collection.
			break
		}
		br.Skip(6) // reference count + reserved

		objSize, err := br.ReadSized(sb.LengthSize)
		if err != nil {
			return nil, utils.WrapError("global heap object size read failed", err)
		}
		if err := utils.ValidateBufferSize(objSize, utils.MaxAttributeSize, "global heap object"); err != nil {
			return nil, err
		}

		if uint32(objIndex) == index {
			data, err := br.ReadBytes(int(objSize))
			if err != nil {
				return nil, utils.WrapError("global heap object read failed", err)
			}
			return append([]byte(nil), data...), nil
		}
		br.Skip(int(objSize + (8-objSize%8)%8))
	}
	return nil, utils.NewFormatError(address, "global heap object %d not found", index)
}
