// Package structures parses the group directory structures: local
// heaps, symbol table nodes, the group B-tree and link messages.
package structures

import (
	"io"

	"github.com/gridframe/hdf5/internal/binio"
	"github.com/gridframe/hdf5/internal/core"
	"github.com/gridframe/hdf5/internal/utils"
)

const heapSignature = "HEAP"

// maxHeapString bounds one heap-stored link name.
const maxHeapString = 64 * 1024

// LocalHeap is a group's name heap. Symbol table entries store offsets
// into its data segment; StringAt resolves them to link names.
type LocalHeap struct {
	DataAddress uint64 // absolute address of the data segment
	DataSize    uint64
}

// ReadLocalHeap parses a local heap header at the given absolute
// address.
//
// Layout: signature "HEAP" (4), version (1), reserved (3), data
// segment size (lengthSize), free-list head offset (lengthSize), data
// segment address (offsetSize).
func ReadLocalHeap(r io.ReaderAt, address uint64, sb *core.Superblock) (*LocalHeap, error) {
	br := binio.NewReader(r).At(address)

	head, err := br.ReadBytes(8)
	if err != nil {
		return nil, utils.WrapError("local heap read failed", err)
	}
	if string(head[:4]) != heapSignature {
		return nil, utils.NewFormatError(address, "bad local heap signature: %q", string(head[:4]))
	}
	if head[4] != 0 {
		return nil, utils.NewUnsupportedError("local heap version %d", head[4])
	}

	size, err := br.ReadSized(sb.LengthSize)
	if err != nil {
		return nil, utils.WrapError("local heap size read failed", err)
	}
	br.Skip(int(sb.LengthSize)) // free-list head offset

	dataAddr, err := br.ReadSized(sb.OffsetSize)
	if err != nil {
		return nil, utils.WrapError("local heap data address read failed", err)
	}
	return &LocalHeap{DataAddress: sb.Adjust(dataAddr), DataSize: size}, nil
}

// StringAt reads the null-terminated string at the given offset into
// the heap's data segment.
func (h *LocalHeap) StringAt(r io.ReaderAt, offset uint64) (string, error) {
	if offset >= h.DataSize {
		return "", utils.NewFormatError(h.DataAddress,
			"heap offset %d past data segment of %d bytes", offset, h.DataSize)
	}

	limit := h.DataSize - offset
	if limit > maxHeapString {
		limit = maxHeapString
	}

	buf := make([]byte, limit)
	n, err := r.ReadAt(buf, int64(h.DataAddress+offset)) //nolint:gosec // G115: addresses fit int64
	if n == 0 && err != nil {
		return "", utils.WrapError("heap string read failed", err)
	}
	for i := 0; i < n; i++ {
		if buf[i] == 0 {
			return string(buf[:i]), nil
		}
	}
	return "", utils.NewFormatError(h.DataAddress+offset, "unterminated heap string")
}
