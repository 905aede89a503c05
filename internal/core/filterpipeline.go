package core

import (
	"bytes"
	"io"
	"sync"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"

	"github.com/gridframe/hdf5/internal/binio"
	"github.com/gridframe/hdf5/internal/utils"
)

// Registered filter identifiers.
const (
	FilterDeflate    uint16 = 1
	FilterShuffle    uint16 = 2
	FilterFletcher32 uint16 = 3
	FilterSzip       uint16 = 4
	FilterNbit       uint16 = 5
	FilterScaleOff   uint16 = 6
	FilterZstd       uint16 = 32015
)

// Filter is one entry of a dataset's filter pipeline.
type Filter struct {
	ID         uint16
	Name       string
	Flags      uint16
	ClientData []uint32
}

// Optional reports whether the filter may be skipped on read failure.
func (f *Filter) Optional() bool {
	return f.Flags&0x01 != 0
}

// FilterPipeline is the ordered list of filters applied to each chunk
// when it was written. Reading inverts them back-to-front.
type FilterPipeline struct {
	Version uint8
	Filters []Filter
}

// ParseFilterPipeline decodes a filter pipeline message (versions 1
// and 2).
//
// V1 pads filter names to 8-byte multiples and pads odd client-data
// counts with 4 zero bytes; v2 drops both paddings and omits the name
// length for filters below id 256.
func ParseFilterPipeline(data []byte) (*FilterPipeline, error) {
	buf := binio.FromBytes(data)

	head, err := buf.ReadBytes(2)
	if err != nil {
		return nil, utils.WrapError("filter pipeline header read failed", err)
	}
	fp := &FilterPipeline{Version: head[0]}
	nfilters := int(head[1])

	switch fp.Version {
	case 1:
		if err := buf.Skip(6); err != nil { // reserved
			return nil, utils.WrapError("filter pipeline reserved skip failed", err)
		}
	case 2:
		// No reserved bytes.
	default:
		return nil, utils.NewUnsupportedError("filter pipeline version %d", fp.Version)
	}

	fp.Filters = make([]Filter, 0, nfilters)
	for i := 0; i < nfilters; i++ {
		f, err := parseFilter(buf, fp.Version)
		if err != nil {
			return nil, err
		}
		fp.Filters = append(fp.Filters, f)
	}
	return fp, nil
}

func parseFilter(buf *binio.Buffer, version uint8) (Filter, error) {
	var f Filter

	id, err := buf.ReadUint16()
	if err != nil {
		return f, utils.WrapError("filter id read failed", err)
	}
	f.ID = id

	nameLen := uint16(0)
	if version == 1 || id >= 256 {
		nameLen, err = buf.ReadUint16()
		if err != nil {
			return f, utils.WrapError("filter name length read failed", err)
		}
	}

	f.Flags, err = buf.ReadUint16()
	if err != nil {
		return f, utils.WrapError("filter flags read failed", err)
	}
	nvalues, err := buf.ReadUint16()
	if err != nil {
		return f, utils.WrapError("filter value count read failed", err)
	}

	if nameLen > 0 {
		raw, err := buf.ReadBytes(int(nameLen))
		if err != nil {
			return f, utils.WrapError("filter name read failed", err)
		}
		f.Name = string(bytes.TrimRight(raw, "\x00"))
		if version == 1 {
			if err := buf.Skip(int((8 - nameLen%8) % 8)); err != nil {
				return f, utils.WrapError("filter name padding skip failed", err)
			}
		}
	}

	f.ClientData = make([]uint32, nvalues)
	for i := range f.ClientData {
		f.ClientData[i], err = buf.ReadUint32()
		if err != nil {
			return f, utils.WrapError("filter client data read failed", err)
		}
	}
	if version == 1 && nvalues%2 == 1 {
		if err := buf.Skip(4); err != nil {
			return f, utils.WrapError("filter client data padding skip failed", err)
		}
	}
	return f, nil
}

// ApplyInverse undoes the pipeline on one chunk's stored bytes,
// applying filters in reverse write order. Bit i of mask marks filter
// i as skipped for this chunk. elemSize is the dataset element width,
// needed to undo the shuffle filter.
func (fp *FilterPipeline) ApplyInverse(data []byte, mask uint32, elemSize uint32) ([]byte, error) {
	for i := len(fp.Filters) - 1; i >= 0; i-- {
		if mask&(1<<uint(i)) != 0 {
			continue
		}
		f := &fp.Filters[i]

		var err error
		switch f.ID {
		case FilterDeflate:
			data, err = inflate(data)
		case FilterShuffle:
			data = unshuffle(data, elemSize)
		case FilterFletcher32:
			data, err = stripFletcher32(data)
		case FilterZstd:
			data, err = zstdDecompress(data)
		case FilterSzip:
			return nil, utils.NewUnsupportedError("szip filter")
		default:
			return nil, utils.NewUnsupportedError("filter id %d (%s)", f.ID, f.Name)
		}
		if err != nil {
			return nil, err
		}
	}
	return data, nil
}

func inflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, utils.WrapError("deflate stream open failed", err)
	}
	defer zr.Close()

	out, err := io.ReadAll(io.LimitReader(zr, utils.MaxChunkSize+1))
	if err != nil {
		return nil, utils.WrapError("deflate decompression failed", err)
	}
	if uint64(len(out)) > utils.MaxChunkSize {
		return nil, utils.NewFormatError(0, "decompressed chunk exceeds size limit")
	}
	return out, nil
}

var (
	zstdDecoder     *zstd.Decoder
	zstdDecoderOnce sync.Once
)

func zstdDecompress(data []byte) ([]byte, error) {
	var initErr error
	zstdDecoderOnce.Do(func() {
		zstdDecoder, initErr = zstd.NewReader(nil,
			zstd.WithDecoderMaxMemory(utils.MaxChunkSize))
	})
	if initErr != nil {
		return nil, utils.WrapError("zstd decoder init failed", initErr)
	}
	if zstdDecoder == nil {
		return nil, utils.NewUnsupportedError("zstd filter")
	}
	out, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return nil, utils.WrapError("zstd decompression failed", err)
	}
	return out, nil
}

// unshuffle reverses the byte-shuffle filter: stored data groups byte
// 0 of every element, then byte 1, and so on.
func unshuffle(data []byte, elemSize uint32) []byte {
	size := int(elemSize)
	if size <= 1 || len(data)%size != 0 {
		return data
	}
	count := len(data) / size
	out := make([]byte, len(data))
	for b := 0; b < size; b++ {
		plane := data[b*count : (b+1)*count]
		for e := 0; e < count; e++ {
			out[e*size+b] = plane[e]
		}
	}
	return out
}

// stripFletcher32 removes the 4-byte checksum the fletcher32 filter
// appends. The checksum itself is not verified.
func stripFletcher32(data []byte) ([]byte, error) {
	if len(data) < 4 {
		return nil, utils.NewFormatError(0, "fletcher32 chunk shorter than its checksum")
	}
	return data[:len(data)-4], nil
}
