package structures

import (
	"io"

	"github.com/gridframe/hdf5/internal/binio"
	"github.com/gridframe/hdf5/internal/core"
	"github.com/gridframe/hdf5/internal/utils"
)

const treeSignature = "TREE"

// maxGroupTreeDepth bounds B-tree recursion against corrupt cycles.
const maxGroupTreeDepth = 64

// CollectGroupEntries walks the group B-tree rooted at the given
// absolute address and returns the symbol table entries of every leaf
// node, in tree order. Internal nodes point at further tree nodes;
// level 0 children are "SNOD" symbol table nodes.
//
// Node layout mirrors the chunk B-tree except for the keys: each key
// is one heap offset (lengthSize) naming the link that separates
// adjacent children.
func CollectGroupEntries(r io.ReaderAt, address uint64, sb *core.Superblock) ([]SymbolTableEntry, error) {
	var entries []SymbolTableEntry
	if err := walkGroupNode(r, address, sb, 0, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func walkGroupNode(r io.ReaderAt, address uint64, sb *core.Superblock, depth int, out *[]SymbolTableEntry) error {
	if depth > maxGroupTreeDepth {
		return utils.NewFormatError(address, "group B-tree deeper than %d levels", maxGroupTreeDepth)
	}

	br := binio.NewReader(r).At(address)
	head, err := br.ReadBytes(8)
	if err != nil {
		return utils.WrapError("B-tree node read failed", err)
	}
	if string(head[:4]) != treeSignature {
		return utils.NewFormatError(address, "bad B-tree signature: %q", string(head[:4]))
	}
	if head[4] != 0 {
		return utils.NewFormatError(address, "expected group B-tree node, got type %d", head[4])
	}
	level := head[5]
	count := int(sb.Endianness.Uint16(head[6:8]))

	br.Skip(2 * int(sb.OffsetSize)) // sibling addresses
	br.Skip(int(sb.LengthSize))     // key 0

	for i := 0; i < count; i++ {
		childRaw, err := br.ReadSized(sb.OffsetSize)
		if err != nil {
			return utils.WrapError("B-tree child address read failed", err)
		}
		br.Skip(int(sb.LengthSize)) // key i+1

		child := sb.Adjust(childRaw)
		if level > 0 {
			if err := walkGroupNode(r, child, sb, depth+1, out); err != nil {
				return err
			}
			continue
		}
		nodeEntries, err := ReadSymbolNode(r, child, sb)
		if err != nil {
			return err
		}
		*out = append(*out, nodeEntries...)
	}
	return nil
}
