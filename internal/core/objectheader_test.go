package core

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridframe/hdf5/internal/utils"
)

func testSuperblock() *Superblock {
	return &Superblock{
		OffsetSize: 8,
		LengthSize: 8,
		Endianness: binary.LittleEndian,
	}
}

// v1Msg frames a v1 message with alignment padding.
func v1Msg(typ MessageType, payload []byte) []byte {
	pad := (8 - len(payload)%8) % 8
	out := make([]byte, 8+len(payload)+pad)
	binary.LittleEndian.PutUint16(out[0:], uint16(typ))
	binary.LittleEndian.PutUint16(out[2:], uint16(len(payload)))
	copy(out[8:], payload)
	return out
}

// v1Hdr frames a v1 prologue over a message body. count is the total
// message count including messages in continuation blocks.
func v1Hdr(count uint16, body []byte) []byte {
	head := make([]byte, 16)
	head[0] = 1
	binary.LittleEndian.PutUint16(head[2:], count)
	binary.LittleEndian.PutUint32(head[4:], 1)
	binary.LittleEndian.PutUint32(head[8:], uint32(len(body)))
	return append(head, body...)
}

func TestReadObjectHeaderV1(t *testing.T) {
	body := append(
		v1Msg(MsgDatatype, []byte{1, 2, 3, 4}),
		v1Msg(MsgDataspace, []byte{5, 6})...,
	)
	data := v1Hdr(2, body)

	oh, err := ReadObjectHeader(bytes.NewReader(data), 0, testSuperblock())
	require.NoError(t, err)
	assert.Equal(t, uint8(1), oh.Version)
	require.Len(t, oh.Messages, 2)
	assert.Equal(t, MsgDatatype, oh.Messages[0].Type)
	assert.Equal(t, []byte{1, 2, 3, 4}, oh.Messages[0].Data)
	assert.Equal(t, MsgDataspace, oh.Messages[1].Type)
}

func TestReadObjectHeaderV1SkipsNil(t *testing.T) {
	body := append(
		v1Msg(MsgNil, make([]byte, 8)),
		v1Msg(MsgDatatype, []byte{9})...,
	)
	data := v1Hdr(2, body)

	oh, err := ReadObjectHeader(bytes.NewReader(data), 0, testSuperblock())
	require.NoError(t, err)
	require.Len(t, oh.Messages, 1)
	assert.Equal(t, MsgDatatype, oh.Messages[0].Type)
}

func TestReadObjectHeaderV1Continuation(t *testing.T) {
	// First block: one real message and a continuation pointing at a
	// second block further into the file.
	const contAddr = 0x100
	contPayload := make([]byte, 16)
	binary.LittleEndian.PutUint64(contPayload[0:], contAddr)

	secondBlock := v1Msg(MsgDataspace, []byte{7, 7})
	binary.LittleEndian.PutUint64(contPayload[8:], uint64(len(secondBlock)))

	body := append(
		v1Msg(MsgDatatype, []byte{1}),
		v1Msg(MsgContinuation, contPayload)...,
	)
	file := make([]byte, contAddr+len(secondBlock))
	copy(file, v1Hdr(3, body))
	copy(file[contAddr:], secondBlock)

	oh, err := ReadObjectHeader(bytes.NewReader(file), 0, testSuperblock())
	require.NoError(t, err)
	require.Len(t, oh.Messages, 2)
	assert.Equal(t, MsgDatatype, oh.Messages[0].Type)
	assert.Equal(t, MsgDataspace, oh.Messages[1].Type)
	assert.Equal(t, []byte{7, 7}, oh.Messages[1].Data)
}

func TestReadObjectHeaderV1ContinuationAdjusted(t *testing.T) {
	// With a nonzero start offset the continuation's raw address must
	// be shifted before following it.
	const shift = 512
	const contAddr = 0x100
	contPayload := make([]byte, 16)
	binary.LittleEndian.PutUint64(contPayload[0:], contAddr)

	secondBlock := v1Msg(MsgDataspace, []byte{3})
	binary.LittleEndian.PutUint64(contPayload[8:], uint64(len(secondBlock)))

	body := append(
		v1Msg(MsgDatatype, []byte{1}),
		v1Msg(MsgContinuation, contPayload)...,
	)
	file := make([]byte, shift+contAddr+len(secondBlock))
	copy(file[shift:], v1Hdr(3, body))
	copy(file[shift+contAddr:], secondBlock)

	sb := testSuperblock()
	sb.StartOffset = shift

	oh, err := ReadObjectHeader(bytes.NewReader(file), shift, sb)
	require.NoError(t, err)
	require.Len(t, oh.Messages, 2)
}

func TestReadObjectHeaderV1UndeliveredMessages(t *testing.T) {
	// The prologue promises three messages but the block holds two and
	// no continuation follows.
	body := append(
		v1Msg(MsgDatatype, []byte{1}),
		v1Msg(MsgDataspace, []byte{2})...,
	)
	data := v1Hdr(3, body)

	_, err := ReadObjectHeader(bytes.NewReader(data), 0, testSuperblock())
	require.Error(t, err)
	assert.True(t, utils.IsFormatError(err))
}

// v2Hdr frames a minimal v2 header (no times, no creation tracking,
// 1-byte chunk size) over a message body.
func v2Hdr(body []byte) []byte {
	out := []byte("OHDR")
	out = append(out, 2, 0, byte(len(body)))
	return append(out, body...)
}

func v2Msg(typ MessageType, payload []byte) []byte {
	out := []byte{byte(typ), 0, 0, 0}
	binary.LittleEndian.PutUint16(out[1:], uint16(len(payload)))
	return append(out, payload...)
}

func TestReadObjectHeaderV2(t *testing.T) {
	body := append(
		v2Msg(MsgDatatype, []byte{1, 2}),
		v2Msg(MsgDataspace, []byte{3})...,
	)
	data := v2Hdr(body)

	oh, err := ReadObjectHeader(bytes.NewReader(data), 0, testSuperblock())
	require.NoError(t, err)
	assert.Equal(t, uint8(2), oh.Version)
	require.Len(t, oh.Messages, 2)
	assert.Equal(t, []byte{1, 2}, oh.Messages[0].Data)
	assert.Equal(t, []byte{3}, oh.Messages[1].Data)
}

func TestReadObjectHeaderV2TimesStored(t *testing.T) {
	body := v2Msg(MsgGroupInfo, []byte{0, 0})
	out := []byte("OHDR")
	out = append(out, 2, v2FlagTimesStored)
	out = append(out, make([]byte, 16)...) // four time fields
	out = append(out, byte(len(body)))
	out = append(out, body...)

	oh, err := ReadObjectHeader(bytes.NewReader(out), 0, testSuperblock())
	require.NoError(t, err)
	require.Len(t, oh.Messages, 1)
	assert.Equal(t, MsgGroupInfo, oh.Messages[0].Type)
}

func TestReadObjectHeaderBadPrologue(t *testing.T) {
	_, err := ReadObjectHeader(bytes.NewReader([]byte{0xDE, 0xAD, 0xBE, 0xEF, 0, 0, 0, 0}), 0, testSuperblock())
	require.Error(t, err)
}

func TestObjectKindClassification(t *testing.T) {
	tests := []struct {
		name  string
		types []MessageType
		want  ObjectKind
	}{
		{"dataset triple", []MessageType{MsgDatatype, MsgDataspace, MsgDataLayout}, KindDataset},
		{"symbol table group", []MessageType{MsgSymbolTable}, KindGroup},
		{"link group", []MessageType{MsgLinkInfo, MsgGroupInfo}, KindGroup},
		{"incomplete dataset", []MessageType{MsgDatatype, MsgDataspace}, KindUnknown},
		{"empty header", nil, KindUnknown},
		{"group wins over partial triple", []MessageType{MsgDatatype, MsgSymbolTable}, KindGroup},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			oh := &ObjectHeader{}
			for _, typ := range tc.types {
				oh.Messages = append(oh.Messages, &Message{Type: typ})
			}
			assert.Equal(t, tc.want, oh.Kind())
		})
	}
}
