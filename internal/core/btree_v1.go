package core

import (
	"io"

	"github.com/gridframe/hdf5/internal/binio"
	"github.com/gridframe/hdf5/internal/utils"
)

const treeSignature = "TREE"

// B-tree v1 node types.
const (
	treeTypeGroup uint8 = 0
	treeTypeChunk uint8 = 1
)

// maxTreeDepth bounds B-tree recursion so a corrupt sibling/child loop
// cannot recurse forever.
const maxTreeDepth = 64

// ChunkInfo locates one stored chunk of a chunked dataset.
type ChunkInfo struct {
	Offset     []uint64 // element offset of the chunk's first element, per dimension
	Size       uint32   // stored (possibly filtered) byte length
	FilterMask uint32   // bit i set: pipeline filter i skipped for this chunk
	Address    uint64   // absolute offset of the stored bytes
}

// CollectChunks walks the version 1 chunk B-tree rooted at the given
// absolute address and returns every leaf chunk entry. rank is the
// dataset rank; each key stores rank+1 element offsets of which the
// trailing one is always zero.
//
// Node layout: signature "TREE" (4), node type (1), level (1), entries
// used (2), left and right sibling addresses (offsetSize each), then
// alternating keys and child pointers. Internal nodes (level > 0)
// point at further tree nodes; leaf nodes point at chunk data.
func CollectChunks(r io.ReaderAt, address uint64, rank int, sb *Superblock) ([]ChunkInfo, error) {
	var chunks []ChunkInfo
	if err := walkChunkNode(r, address, rank, sb, 0, &chunks); err != nil {
		return nil, err
	}
	return chunks, nil
}

func walkChunkNode(r io.ReaderAt, address uint64, rank int, sb *Superblock, depth int, out *[]ChunkInfo) error {
	if depth > maxTreeDepth {
		return utils.NewFormatError(address, "chunk B-tree deeper than %d levels", maxTreeDepth)
	}

	br := binio.NewReader(r).At(address)
	head, err := br.ReadBytes(8)
	if err != nil {
		return utils.WrapError("B-tree node read failed", err)
	}
	if string(head[:4]) != treeSignature {
		return utils.NewFormatError(address, "bad B-tree signature: %q", string(head[:4]))
	}
	if head[4] != treeTypeChunk {
		return utils.NewFormatError(address, "expected chunk B-tree node, got type %d", head[4])
	}
	level := head[5]
	entries := int(sb.Endianness.Uint16(head[6:8]))

	br.Skip(2 * int(sb.OffsetSize)) // sibling addresses

	// Keys and children alternate: key 0, child 0, ..., key N-1,
	// child N-1, key N. The final key only bounds the last child. Each
	// key: stored byte size (4), filter mask (4), then rank+1 8-byte
	// element offsets of which the trailing one is always zero.
	for i := 0; i < entries; i++ {
		size, err := br.ReadUint32()
		if err != nil {
			return utils.WrapError("B-tree key read failed", err)
		}
		mask, err := br.ReadUint32()
		if err != nil {
			return utils.WrapError("B-tree key read failed", err)
		}
		offset := make([]uint64, rank)
		for d := 0; d < rank; d++ {
			offset[d], err = br.ReadUint64()
			if err != nil {
				return utils.WrapError("B-tree chunk offset read failed", err)
			}
		}
		br.Skip(8) // element-size offset

		childRaw, err := br.ReadSized(sb.OffsetSize)
		if err != nil {
			return utils.WrapError("B-tree child address read failed", err)
		}
		child := sb.Adjust(childRaw)

		if level > 0 {
			if err := walkChunkNode(r, child, rank, sb, depth+1, out); err != nil {
				return err
			}
			continue
		}
		*out = append(*out, ChunkInfo{
			Offset:     offset,
			Size:       size,
			FilterMask: mask,
			Address:    child,
		})
	}
	return nil
}
