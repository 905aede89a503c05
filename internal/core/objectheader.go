package core

import (
	"io"

	"github.com/gridframe/hdf5/internal/binio"
	"github.com/gridframe/hdf5/internal/utils"
)

// ObjectKind classifies an HDF5 object by the messages its header
// carries.
type ObjectKind uint8

// Object kinds. Unknown is a legitimate outcome (for example a header
// carrying only a comment message), not an error.
const (
	KindUnknown ObjectKind = iota
	KindGroup
	KindDataset
)

// String returns the object kind name.
func (k ObjectKind) String() string {
	switch k {
	case KindGroup:
		return "group"
	case KindDataset:
		return "dataset"
	default:
		return "unknown"
	}
}

// MessageType identifies one header message type.
type MessageType uint16

// Header message types (HDF5 format spec, section IV.A.2).
const (
	MsgNil            MessageType = 0x0000
	MsgDataspace      MessageType = 0x0001
	MsgLinkInfo       MessageType = 0x0002
	MsgDatatype       MessageType = 0x0003
	MsgFillValueOld   MessageType = 0x0004
	MsgFillValue      MessageType = 0x0005
	MsgLink           MessageType = 0x0006
	MsgExternalFiles  MessageType = 0x0007
	MsgDataLayout     MessageType = 0x0008
	MsgGroupInfo      MessageType = 0x000A
	MsgFilterPipeline MessageType = 0x000B
	MsgAttribute      MessageType = 0x000C
	MsgComment        MessageType = 0x000D
	MsgContinuation   MessageType = 0x0010
	MsgSymbolTable    MessageType = 0x0011
	MsgModTime        MessageType = 0x0012
	MsgAttributeInfo  MessageType = 0x0015
	MsgRefCount       MessageType = 0x0016
)

// Message is one decoded header message: its type, flags and raw
// payload. Unrecognized types are retained as-is so inspection tools
// still see them.
type Message struct {
	Type  MessageType
	Flags uint8
	Data  []byte
}

// ObjectHeader is the parsed message list describing one HDF5 object.
// Immutable once read.
type ObjectHeader struct {
	Address  uint64 // absolute offset the header was read from
	Version  uint8
	Flags    uint8
	Messages []*Message
}

// messageScanner yields header messages one at a time, transparently
// following continuation blocks. next returns (nil, nil) when the
// message stream is exhausted.
type messageScanner interface {
	next() (*Message, error)
}

// ReadObjectHeader reads and parses the object header at the given
// absolute address, handling both version 1 and version 2 layouts.
func ReadObjectHeader(r io.ReaderAt, address uint64, sb *Superblock) (*ObjectHeader, error) {
	br := binio.NewReader(r).At(address)

	prefix, err := br.ReadBytes(4)
	if err != nil {
		return nil, utils.WrapError("object header read failed", err)
	}

	oh := &ObjectHeader{Address: address}
	var scanner messageScanner

	switch {
	case string(prefix) == ohdrSignature:
		oh.Version = 2
		scanner, oh.Flags, err = newV2Scanner(br, address, sb)
	case prefix[0] == 1 && prefix[1] == 0:
		oh.Version = 1
		scanner, err = newV1Scanner(binio.NewReader(r).At(address), address, sb)
	default:
		return nil, utils.NewFormatError(address, "unrecognized object header prologue: % x", prefix)
	}
	if err != nil {
		return nil, err
	}

	for {
		msg, err := scanner.next()
		if err != nil {
			return nil, err
		}
		if msg == nil {
			break
		}
		oh.Messages = append(oh.Messages, msg)
	}
	return oh, nil
}

// Kind classifies the object. A datatype+dataspace+layout triple marks
// a dataset; symbol table, link or group-info messages mark a group;
// anything else is unknown.
func (oh *ObjectHeader) Kind() ObjectKind {
	var hasType, hasSpace, hasLayout bool
	for _, msg := range oh.Messages {
		switch msg.Type {
		case MsgSymbolTable, MsgLink, MsgLinkInfo, MsgGroupInfo:
			return KindGroup
		case MsgDatatype:
			hasType = true
		case MsgDataspace:
			hasSpace = true
		case MsgDataLayout:
			hasLayout = true
		}
	}
	if hasType && hasSpace && hasLayout {
		return KindDataset
	}
	return KindUnknown
}

// Find returns the first message of the given type, or nil.
func (oh *ObjectHeader) Find(t MessageType) *Message {
	for _, msg := range oh.Messages {
		if msg.Type == t {
			return msg
		}
	}
	return nil
}

// FindAll returns every message of the given type, in header order.
func (oh *ObjectHeader) FindAll(t MessageType) []*Message {
	var out []*Message
	for _, msg := range oh.Messages {
		if msg.Type == t {
			out = append(out, msg)
		}
	}
	return out
}
