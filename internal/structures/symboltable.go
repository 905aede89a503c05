package structures

import (
	"io"

	"github.com/gridframe/hdf5/internal/binio"
	"github.com/gridframe/hdf5/internal/core"
	"github.com/gridframe/hdf5/internal/utils"
)

const snodSignature = "SNOD"

// SymbolTableEntry names one child of a group: an offset into the
// group's local heap for the link name and the child's raw object
// header address.
type SymbolTableEntry struct {
	NameOffset    uint64 // offset into the group's local heap
	HeaderAddress uint64 // raw (unadjusted) object header address
}

// ParseSymbolTableMessage decodes a symbol table header message: the
// raw addresses of the group's B-tree and local heap.
func ParseSymbolTableMessage(data []byte, sb *core.Superblock) (btreeAddr, heapAddr uint64, err error) {
	buf := binio.FromBytes(data)
	btreeAddr, err = buf.ReadSized(sb.OffsetSize)
	if err != nil {
		return 0, 0, utils.WrapError("symbol table B-tree address read failed", err)
	}
	heapAddr, err = buf.ReadSized(sb.OffsetSize)
	if err != nil {
		return 0, 0, utils.WrapError("symbol table heap address read failed", err)
	}
	return btreeAddr, heapAddr, nil
}

// ReadSymbolNode parses a symbol table node ("SNOD") at the given
// absolute address and returns its entries in stored order.
//
// Layout: signature (4), version (1), reserved (1), symbol count (2),
// then entries of link name offset (offsetSize), object header address
// (offsetSize), cache type (4), reserved (4), scratch-pad (16).
func ReadSymbolNode(r io.ReaderAt, address uint64, sb *core.Superblock) ([]SymbolTableEntry, error) {
	br := binio.NewReader(r).At(address)

	head, err := br.ReadBytes(8)
	if err != nil {
		return nil, utils.WrapError("symbol node read failed", err)
	}
	if string(head[:4]) != snodSignature {
		return nil, utils.NewFormatError(address, "bad symbol node signature: %q", string(head[:4]))
	}
	if head[4] != 1 {
		return nil, utils.NewUnsupportedError("symbol node version %d", head[4])
	}
	count := int(sb.Endianness.Uint16(head[6:8]))

	entries := make([]SymbolTableEntry, 0, count)
	for i := 0; i < count; i++ {
		nameOffset, err := br.ReadSized(sb.OffsetSize)
		if err != nil {
			return nil, utils.WrapError("symbol entry name offset read failed", err)
		}
		headerAddr, err := br.ReadSized(sb.OffsetSize)
		if err != nil {
			return nil, utils.WrapError("symbol entry header address read failed", err)
		}
		br.Skip(4 + 4 + 16) // cache type, reserved, scratch-pad

		entries = append(entries, SymbolTableEntry{
			NameOffset:    nameOffset,
			HeaderAddress: headerAddr,
		})
	}
	return entries, nil
}
