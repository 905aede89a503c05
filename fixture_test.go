package hdf5

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/require"
)

// The test fixture is a hand-assembled version 0 HDF5 file holding:
//
//	/vals    1-D int32 x6, contiguous
//	/grid    2-D float64 4x6, chunked 2x3, deflate
//	/scalar  float64 scalar, contiguous
//	/grp/leaf  1-D int16 x3, compact
//	/grp/sub/deep  hard link to the same header as /grp/leaf
//	/virt    dataset with a virtual layout (rejected on resolve)
//
// Every structure sits at a fixed offset; only the compressed chunk
// bytes are produced at runtime.
const (
	fxSize = 0x1400

	fxRootOH    = 0x0100
	fxRootBTree = 0x0200
	fxRootHeap  = 0x0300
	fxRootNames = 0x0340
	fxRootSNOD  = 0x0400

	fxValsOH     = 0x0500
	fxValsData   = 0x05c0
	fxGridOH     = 0x0600
	fxScalarOH   = 0x0700
	fxScalarData = 0x0780
	fxGrpOH      = 0x0800
	fxGridTree   = 0x0900
	fxChunk0     = 0x0a00
	fxChunk1     = 0x0a80
	fxChunk2     = 0x0b00
	fxChunk3     = 0x0b80
	fxGrpBTree   = 0x0c00
	fxGrpHeap    = 0x0c80
	fxGrpNames   = 0x0cc0
	fxGrpSNOD    = 0x0d00
	fxVirtOH     = 0x0e00
	fxLeafOH     = 0x0f00
	fxSubOH      = 0x1000
	fxSubBTree   = 0x1080
	fxSubHeap    = 0x1100
	fxSubNames   = 0x1140
	fxSubSNOD    = 0x1180
)

var le = binary.LittleEndian

func u16(v uint16) []byte { b := make([]byte, 2); le.PutUint16(b, v); return b }
func u32(v uint32) []byte { b := make([]byte, 4); le.PutUint32(b, v); return b }
func u64(v uint64) []byte { b := make([]byte, 8); le.PutUint64(b, v); return b }

func cat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// v1Message frames one v1 header message with its 8-byte header and
// trailing alignment padding.
func v1Message(typ uint16, payload []byte) []byte {
	pad := (8 - len(payload)%8) % 8
	msg := make([]byte, 8+len(payload)+pad)
	le.PutUint16(msg[0:], typ)
	le.PutUint16(msg[2:], uint16(len(payload)))
	copy(msg[8:], payload)
	return msg
}

// v1Header assembles a version 1 object header from framed messages.
func v1Header(msgs ...[]byte) []byte {
	var body []byte
	for _, m := range msgs {
		body = append(body, m...)
	}
	head := make([]byte, 16)
	head[0] = 1
	le.PutUint16(head[2:], uint16(len(msgs)))
	le.PutUint32(head[4:], 1) // reference count
	le.PutUint32(head[8:], uint32(len(body)))
	return append(head, body...)
}

// Datatype message payloads.

func dtFixed(size uint32, signed bool) []byte {
	bits := uint32(0)
	if signed {
		bits = 0x08
	}
	word := uint32(0)<<0 | 1<<4 | bits<<8 // class 0, version 1
	return cat(u32(word), u32(size), u16(0), u16(uint16(size*8)))
}

func dtFloat64() []byte {
	word := uint32(1) | 1<<4 // class 1, version 1
	return cat(u32(word), u32(8), make([]byte, 12))
}

func dtString(size uint32) []byte {
	word := uint32(3) | 1<<4 // class 3, version 1, null-terminated
	return cat(u32(word), u32(size))
}

// Dataspace message payload (version 1). No dims makes a scalar.
func dsSimple(dims ...uint64) []byte {
	out := []byte{1, byte(len(dims)), 0, 0, 0, 0, 0, 0}
	for _, d := range dims {
		out = append(out, u64(d)...)
	}
	return out
}

// Data layout message payloads (version 3).

func layoutContiguous(addr, size uint64) []byte {
	return cat([]byte{3, 1}, u64(addr), u64(size))
}

func layoutChunked(treeAddr uint64, elemSize uint32, chunkDims ...uint32) []byte {
	out := cat([]byte{3, 2, byte(len(chunkDims) + 1)}, u64(treeAddr))
	for _, d := range chunkDims {
		out = append(out, u32(d)...)
	}
	return append(out, u32(elemSize)...)
}

func layoutCompact(data []byte) []byte {
	return cat([]byte{3, 0}, u16(uint16(len(data))), data)
}

func layoutVirtual() []byte {
	return cat([]byte{3, 3}, u64(0), u32(0))
}

// filterDeflate is a version 1 filter pipeline with one deflate entry.
func filterDeflate() []byte {
	return cat(
		[]byte{1, 1, 0, 0, 0, 0, 0, 0},
		u16(1), u16(0), u16(0), u16(0),
	)
}

func symbolTableMsg(btreeAddr, heapAddr uint64) []byte {
	return cat(u64(btreeAddr), u64(heapAddr))
}

// attrMsg frames a version 1 attribute message: name, datatype and
// dataspace blocks padded to 8-byte multiples, then the raw value.
func attrMsg(name string, dtPayload, dsPayload, value []byte) []byte {
	pad8 := func(b []byte) []byte {
		for len(b)%8 != 0 {
			b = append(b, 0)
		}
		return b
	}
	nameBlock := pad8(append([]byte(name), 0))
	out := cat(
		[]byte{1, 0},
		u16(uint16(len(name)+1)),
		u16(uint16(len(dtPayload))),
		u16(uint16(len(dsPayload))),
		nameBlock, pad8(dtPayload), pad8(dsPayload), value,
	)
	return out
}

// localHeap frames a local heap header pointing at a separate data
// segment.
func localHeap(dataAddr, dataSize uint64) []byte {
	return cat([]byte("HEAP"), []byte{0, 0, 0, 0}, u64(dataSize), u64(0), u64(dataAddr))
}

type snodEntry struct {
	nameOffset uint64
	headerAddr uint64
}

func symbolNode(entries ...snodEntry) []byte {
	out := cat([]byte("SNOD"), []byte{1, 0}, u16(uint16(len(entries))))
	for _, e := range entries {
		out = cat(out, u64(e.nameOffset), u64(e.headerAddr), make([]byte, 24))
	}
	return out
}

// groupBTree frames a single-level group B-tree whose children are
// symbol table nodes.
func groupBTree(children ...uint64) []byte {
	out := cat([]byte("TREE"), []byte{0, 0}, u16(uint16(len(children))),
		u64(^uint64(0)), u64(^uint64(0)), // siblings
		u64(0)) // key 0
	for _, c := range children {
		out = cat(out, u64(c), u64(0))
	}
	return out
}

type chunkEntry struct {
	size   uint32
	offset []uint64 // element offsets, one per dataset dimension
	addr   uint64
}

func chunkBTree(entries ...chunkEntry) []byte {
	out := cat([]byte("TREE"), []byte{1, 0}, u16(uint16(len(entries))),
		u64(^uint64(0)), u64(^uint64(0)))
	for _, e := range entries {
		out = cat(out, u32(e.size), u32(0))
		for _, o := range e.offset {
			out = append(out, u64(o)...)
		}
		out = cat(out, u64(0), u64(e.addr)) // trailing zero offset, child
	}
	return out
}

func deflate(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	_, err := zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// buildFixture assembles the whole test file.
func buildFixture(t *testing.T) []byte {
	t.Helper()
	buf := make([]byte, fxSize)
	place := func(off int, data []byte) {
		require.LessOrEqual(t, off+len(data), len(buf), "fixture region overflow at %#x", off)
		copy(buf[off:], data)
	}

	// Superblock version 0.
	super := cat(
		[]byte{0x89, 'H', 'D', 'F', '\r', '\n', 0x1a, '\n'},
		[]byte{0, 0, 0, 0, 0, 8, 8, 0}, // versions, offset/length sizes
		u16(4), u16(16), u32(0), // group Ks, consistency flags
		u64(0),          // base address
		u64(^uint64(0)), // free-space address
		u64(fxSize),     // end of file
		u64(^uint64(0)), // driver info
		u64(0),          // root link name offset
		u64(fxRootOH),   // root object header
		u32(0), u32(0), make([]byte, 16),
	)
	place(0, super)

	// Root group.
	place(fxRootOH, v1Header(
		v1Message(0x0011, symbolTableMsg(fxRootBTree, fxRootHeap)),
	))
	place(fxRootBTree, groupBTree(fxRootSNOD))
	place(fxRootHeap, localHeap(fxRootNames, 0x80))
	names := make([]byte, 0x80)
	for off, name := range map[int]string{8: "vals", 16: "grid", 24: "scalar", 32: "grp", 40: "virt"} {
		copy(names[off:], name)
	}
	place(fxRootNames, names)
	place(fxRootSNOD, symbolNode(
		snodEntry{16, fxGridOH},   // grid
		snodEntry{32, fxGrpOH},    // grp
		snodEntry{24, fxScalarOH}, // scalar
		snodEntry{8, fxValsOH},    // vals
		snodEntry{40, fxVirtOH},   // virt
	))

	// /vals: contiguous int32 x6 with a string attribute.
	place(fxValsOH, v1Header(
		v1Message(0x0003, dtFixed(4, true)),
		v1Message(0x0001, dsSimple(6)),
		v1Message(0x0008, layoutContiguous(fxValsData, 24)),
		v1Message(0x000C, attrMsg("units", dtString(5), dsSimple(), []byte("meter"))),
	))
	valsData := make([]byte, 0, 24)
	for _, v := range []int32{1, -2, 3, -4, 5, -6} {
		valsData = append(valsData, u32(uint32(v))...)
	}
	place(fxValsData, valsData)

	// /grid: chunked float64 4x6, chunk shape 2x3, deflate. Element
	// value is row*10+col.
	chunkAddrs := []uint64{fxChunk0, fxChunk1, fxChunk2, fxChunk3}
	chunkOffsets := [][]uint64{{0, 0}, {0, 3}, {2, 0}, {2, 3}}
	entries := make([]chunkEntry, 4)
	for i, origin := range chunkOffsets {
		raw := make([]byte, 0, 48)
		for r := uint64(0); r < 2; r++ {
			for c := uint64(0); c < 3; c++ {
				v := float64((origin[0]+r)*10 + origin[1] + c)
				raw = append(raw, u64(math.Float64bits(v))...)
			}
		}
		compressed := deflate(t, raw)
		require.Less(t, len(compressed), 0x80, "chunk overruns its fixture slot")
		place(int(chunkAddrs[i]), compressed)
		entries[i] = chunkEntry{uint32(len(compressed)), origin, chunkAddrs[i]}
	}
	place(fxGridTree, chunkBTree(entries...))
	place(fxGridOH, v1Header(
		v1Message(0x0003, dtFloat64()),
		v1Message(0x0001, dsSimple(4, 6)),
		v1Message(0x0008, layoutChunked(fxGridTree, 8, 2, 3)),
		v1Message(0x000B, filterDeflate()),
	))

	// /scalar: rank-0 float64.
	place(fxScalarOH, v1Header(
		v1Message(0x0003, dtFloat64()),
		v1Message(0x0001, dsSimple()),
		v1Message(0x0008, layoutContiguous(fxScalarData, 8)),
	))
	place(fxScalarData, u64(math.Float64bits(3.5)))

	// /grp holds a compact dataset /grp/leaf and a nested subgroup
	// /grp/sub whose member "deep" hard-links the same header as leaf.
	place(fxGrpOH, v1Header(
		v1Message(0x0011, symbolTableMsg(fxGrpBTree, fxGrpHeap)),
	))
	place(fxGrpBTree, groupBTree(fxGrpSNOD))
	place(fxGrpHeap, localHeap(fxGrpNames, 0x40))
	grpNames := make([]byte, 0x40)
	copy(grpNames[8:], "leaf")
	copy(grpNames[16:], "sub")
	place(fxGrpNames, grpNames)
	place(fxGrpSNOD, symbolNode(
		snodEntry{8, fxLeafOH},
		snodEntry{16, fxSubOH},
	))

	place(fxSubOH, v1Header(
		v1Message(0x0011, symbolTableMsg(fxSubBTree, fxSubHeap)),
	))
	place(fxSubBTree, groupBTree(fxSubSNOD))
	place(fxSubHeap, localHeap(fxSubNames, 0x40))
	subNames := make([]byte, 0x40)
	copy(subNames[8:], "deep")
	place(fxSubNames, subNames)
	place(fxSubSNOD, symbolNode(snodEntry{8, fxLeafOH}))

	leafData := cat(u16(7), u16(8), u16(9))
	place(fxLeafOH, v1Header(
		v1Message(0x0003, dtFixed(2, true)),
		v1Message(0x0001, dsSimple(3)),
		v1Message(0x0008, layoutCompact(leafData)),
	))

	// /virt: virtual layout, rejected when resolved as a dataset.
	place(fxVirtOH, v1Header(
		v1Message(0x0003, dtFixed(4, true)),
		v1Message(0x0001, dsSimple(1)),
		v1Message(0x0008, layoutVirtual()),
	))

	return buf
}

// openFixture builds the fixture and opens it through the in-memory
// entry point.
func openFixture(t *testing.T, opts ...Option) *File {
	t.Helper()
	data := buildFixture(t)
	f, err := NewFile(bytes.NewReader(data), int64(len(data)), opts...)
	require.NoError(t, err)
	return f
}
