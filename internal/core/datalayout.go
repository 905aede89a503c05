package core

import (
	"github.com/gridframe/hdf5/internal/binio"
	"github.com/gridframe/hdf5/internal/utils"
)

// LayoutClass identifies how dataset elements are stored.
type LayoutClass uint8

// Layout classes. Virtual layouts (class 3) reference data in other
// files and are rejected at parse time.
const (
	LayoutCompact    LayoutClass = 0
	LayoutContiguous LayoutClass = 1
	LayoutChunked    LayoutClass = 2
	LayoutVirtual    LayoutClass = 3
)

// String returns the layout class name.
func (c LayoutClass) String() string {
	switch c {
	case LayoutCompact:
		return "compact"
	case LayoutContiguous:
		return "contiguous"
	case LayoutChunked:
		return "chunked"
	case LayoutVirtual:
		return "virtual"
	default:
		return "invalid"
	}
}

// DataLayout describes where a dataset's elements live: inline in the
// header (compact), as one run of bytes (contiguous), or spread over
// fixed-size chunks indexed by a B-tree (chunked).
type DataLayout struct {
	Class      LayoutClass
	Version    uint8
	RawData    []byte   // compact: element bytes stored in the message
	Address    uint64   // contiguous: raw data address; chunked: raw B-tree root address
	Size       uint64   // contiguous: byte length of the data run
	ChunkDims  []uint64 // chunked: chunk shape in elements, one per dataset dimension
	ChunkElem  uint32   // chunked: element byte width recorded with the chunk shape
	chunkBytes uint64
}

// ParseDataLayout decodes a version 3 data layout message.
//
// V3 layout: version (1), class (1), then class-specific fields.
// Compact: size (2) and the raw bytes. Contiguous: address (offsetSize)
// and size (lengthSize). Chunked: dimensionality (1), B-tree address
// (offsetSize), then dimensionality 4-byte chunk dimensions of which
// the last is the element byte width.
func ParseDataLayout(data []byte, sb *Superblock) (*DataLayout, error) {
	buf := binio.FromBytes(data)

	head, err := buf.ReadBytes(2)
	if err != nil {
		return nil, utils.WrapError("layout header read failed", err)
	}
	dl := &DataLayout{Version: head[0], Class: LayoutClass(head[1])}
	if dl.Version != 3 {
		return nil, utils.NewUnsupportedError("data layout version %d", dl.Version)
	}

	switch dl.Class {
	case LayoutCompact:
		size, err := buf.ReadUint16()
		if err != nil {
			return nil, utils.WrapError("compact size read failed", err)
		}
		raw, err := buf.ReadBytes(int(size))
		if err != nil {
			return nil, utils.WrapError("compact data read failed", err)
		}
		// Copy out: the payload slice aliases the message buffer.
		dl.RawData = append([]byte(nil), raw...)

	case LayoutContiguous:
		dl.Address, err = buf.ReadSized(sb.OffsetSize)
		if err != nil {
			return nil, utils.WrapError("contiguous address read failed", err)
		}
		dl.Size, err = buf.ReadSized(sb.LengthSize)
		if err != nil {
			return nil, utils.WrapError("contiguous size read failed", err)
		}

	case LayoutChunked:
		ndims, err := buf.ReadUint8()
		if err != nil {
			return nil, utils.WrapError("chunk dimensionality read failed", err)
		}
		if ndims == 0 {
			return nil, utils.NewFormatError(0, "chunked layout with zero dimensionality")
		}
		dl.Address, err = buf.ReadSized(sb.OffsetSize)
		if err != nil {
			return nil, utils.WrapError("chunk B-tree address read failed", err)
		}
		// The stored dimensionality counts one extra trailing entry
		// holding the element byte width.
		dims := make([]uint64, 0, ndims-1)
		for i := uint8(0); i < ndims-1; i++ {
			d, err := buf.ReadUint32()
			if err != nil {
				return nil, utils.WrapError("chunk dimension read failed", err)
			}
			dims = append(dims, uint64(d))
		}
		dl.ChunkElem, err = buf.ReadUint32()
		if err != nil {
			return nil, utils.WrapError("chunk element size read failed", err)
		}
		dl.ChunkDims = dims

	case LayoutVirtual:
		return nil, utils.NewUnsupportedError("virtual dataset layout")

	default:
		return nil, utils.NewFormatError(0, "invalid layout class: %d", dl.Class)
	}
	return dl, nil
}

// ChunkByteSize returns the uncompressed byte size of one full chunk.
func (dl *DataLayout) ChunkByteSize() (uint64, error) {
	if dl.chunkBytes != 0 {
		return dl.chunkBytes, nil
	}
	total := uint64(dl.ChunkElem)
	for _, d := range dl.ChunkDims {
		var err error
		total, err = utils.SafeMultiply(total, d)
		if err != nil {
			return 0, utils.WrapError("chunk size overflow", err)
		}
	}
	if err := utils.ValidateBufferSize(total, utils.MaxChunkSize, "chunk"); err != nil {
		return 0, err
	}
	dl.chunkBytes = total
	return total, nil
}
