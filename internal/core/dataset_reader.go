package core

import (
	"io"

	"github.com/gridframe/hdf5/internal/binio"
	"github.com/gridframe/hdf5/internal/utils"
)

// UndefinedAddress reports whether addr is the all-ones sentinel HDF5
// stores for unallocated data, given the file's offset width.
func UndefinedAddress(addr uint64, offsetSize uint8) bool {
	if offsetSize >= 8 {
		return addr == ^uint64(0)
	}
	return addr == (uint64(1)<<(8*offsetSize))-1
}

// ReadDatasetData reads and decodes a dataset's elements into a flat
// row-major []any, dispatching on the storage layout. Unallocated
// storage yields zero-filled elements, matching the library fill
// behavior for an unset fill value.
func ReadDatasetData(r io.ReaderAt, layout *DataLayout, space *Dataspace, dt *Datatype,
	pipeline *FilterPipeline, sb *Superblock) ([]any, error) {

	count, err := space.TotalElements()
	if err != nil {
		return nil, err
	}
	totalBytes, err := utils.SafeMultiply(count, uint64(dt.Size))
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateBufferSize(max(totalBytes, 1), utils.MaxDatasetSize, "dataset"); err != nil {
		return nil, err
	}

	var raw []byte
	switch layout.Class {
	case LayoutCompact:
		raw = layout.RawData
	case LayoutContiguous:
		raw, err = readContiguous(r, layout, totalBytes, sb)
	case LayoutChunked:
		raw, err = readChunked(r, layout, space, pipeline, totalBytes, dt.Size, sb)
	default:
		return nil, utils.NewUnsupportedError("reading %s layout", layout.Class)
	}
	if err != nil {
		return nil, err
	}

	return decodeElements(raw, dt, count, r, sb)
}

func readContiguous(r io.ReaderAt, layout *DataLayout, totalBytes uint64, sb *Superblock) ([]byte, error) {
	if UndefinedAddress(layout.Address, sb.OffsetSize) {
		// Unallocated storage reads as fill; only this branch may
		// zero-fill. An allocated run that is too short is corruption.
		return make([]byte, totalBytes), nil
	}
	if layout.Size < totalBytes {
		return nil, utils.NewFormatError(layout.Address,
			"contiguous data run of %d bytes shorter than dataset size %d", layout.Size, totalBytes)
	}
	raw := make([]byte, totalBytes)
	if err := binio.NewReader(r).At(sb.Adjust(layout.Address)).ReadInto(raw); err != nil {
		return nil, utils.WrapError("contiguous data read failed", err)
	}
	return raw, nil
}

// readChunked gathers every stored chunk, runs the filter pipeline
// backwards on each, and scatters the elements into a zero-filled
// dataset buffer. Edge chunks are stored full-size; the parts hanging
// past the dataset bounds are discarded during the scatter.
func readChunked(r io.ReaderAt, layout *DataLayout, space *Dataspace,
	pipeline *FilterPipeline, totalBytes uint64, elemSize uint32, sb *Superblock) ([]byte, error) {

	raw := make([]byte, totalBytes)
	if UndefinedAddress(layout.Address, sb.OffsetSize) {
		return raw, nil
	}

	rank := len(layout.ChunkDims)
	if rank != len(space.Dims) {
		return nil, utils.NewFormatError(0,
			"chunk rank %d does not match dataset rank %d", rank, len(space.Dims))
	}
	chunkBytes, err := layout.ChunkByteSize()
	if err != nil {
		return nil, err
	}

	chunks, err := CollectChunks(r, sb.Adjust(layout.Address), rank, sb)
	if err != nil {
		return nil, err
	}

	for _, chunk := range chunks {
		stored, err := binio.NewReader(r).At(chunk.Address).ReadBytes(int(chunk.Size))
		if err != nil {
			return nil, utils.WrapError("chunk read failed", err)
		}
		data := stored
		if pipeline != nil {
			data, err = pipeline.ApplyInverse(stored, chunk.FilterMask, elemSize)
			if err != nil {
				return nil, err
			}
		}
		if uint64(len(data)) < chunkBytes {
			return nil, utils.NewFormatError(chunk.Address,
				"chunk decoded to %d bytes, expected %d", len(data), chunkBytes)
		}
		if err := scatterChunk(raw, data, chunk.Offset, layout.ChunkDims, space.Dims, uint64(elemSize)); err != nil {
			return nil, err
		}
	}
	return raw, nil
}

// scatterChunk copies one decoded chunk into the dataset buffer,
// row by row along the fastest-varying dimension.
func scatterChunk(dst, chunk []byte, offset, chunkDims, dims []uint64, elemSize uint64) error {
	rank := len(dims)
	if rank == 0 {
		copy(dst, chunk[:min(uint64(len(dst)), uint64(len(chunk)))])
		return nil
	}

	for d := 0; d < rank; d++ {
		if offset[d] >= dims[d] {
			// Chunk lies entirely past the dataset bounds.
			return nil
		}
	}

	// Row extents within this chunk, clipped to the dataset edge.
	last := rank - 1
	rowLen := min(chunkDims[last], dims[last]-offset[last]) * elemSize

	// Strides of the flattened row-major dataset and chunk.
	dstStride := make([]uint64, rank)
	srcStride := make([]uint64, rank)
	dstStride[last] = elemSize
	srcStride[last] = elemSize
	for d := last - 1; d >= 0; d-- {
		dstStride[d] = dstStride[d+1] * dims[d+1]
		srcStride[d] = srcStride[d+1] * chunkDims[d+1]
	}

	// Odometer over the chunk-local indices of all but the last
	// dimension; each step copies one contiguous row.
	idx := make([]uint64, last)
	for {
		dstOff := offset[last] * elemSize
		srcOff := uint64(0)
		for d := 0; d < last; d++ {
			dstOff += (offset[d] + idx[d]) * dstStride[d]
			srcOff += idx[d] * srcStride[d]
		}
		if dstOff+rowLen > uint64(len(dst)) || srcOff+rowLen > uint64(len(chunk)) {
			return utils.NewFormatError(0, "chunk scatter out of bounds")
		}
		copy(dst[dstOff:dstOff+rowLen], chunk[srcOff:srcOff+rowLen])

		// Advance, skipping rows clipped off by the dataset edge.
		d := last - 1
		for ; d >= 0; d-- {
			idx[d]++
			if idx[d] < chunkDims[d] && offset[d]+idx[d] < dims[d] {
				break
			}
			idx[d] = 0
		}
		if d < 0 {
			return nil
		}
	}
}
