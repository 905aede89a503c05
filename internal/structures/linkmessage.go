package structures

import (
	"github.com/gridframe/hdf5/internal/binio"
	"github.com/gridframe/hdf5/internal/core"
	"github.com/gridframe/hdf5/internal/utils"
)

// Link types stored in a link message.
const (
	LinkHard     uint8 = 0
	LinkSoft     uint8 = 1
	LinkExternal uint8 = 64
)

// Link message flag bits.
const (
	linkFlagSizeMask      = 0x03 // width of the name-length field
	linkFlagCreationOrder = 0x04
	linkFlagTypePresent   = 0x08
	linkFlagCharset       = 0x10
)

// Link is one decoded link message: the name and either a raw object
// header address (hard links) or a target path (soft links).
type Link struct {
	Name    string
	Type    uint8
	Address uint64 // hard links: raw object header address
	Target  string // soft links: path the link points at
}

// ParseLinkMessage decodes a version 1 link message. These carry
// group membership for files written with the newer link-based group
// format instead of symbol tables.
func ParseLinkMessage(data []byte, sb *core.Superblock) (*Link, error) {
	buf := binio.FromBytes(data)

	head, err := buf.ReadBytes(2)
	if err != nil {
		return nil, utils.WrapError("link message read failed", err)
	}
	if head[0] != 1 {
		return nil, utils.NewUnsupportedError("link message version %d", head[0])
	}
	flags := head[1]

	link := &Link{Type: LinkHard}
	if flags&linkFlagTypePresent != 0 {
		link.Type, err = buf.ReadUint8()
		if err != nil {
			return nil, utils.WrapError("link type read failed", err)
		}
	}
	if flags&linkFlagCreationOrder != 0 {
		if err := buf.Skip(8); err != nil {
			return nil, utils.WrapError("link creation order skip failed", err)
		}
	}
	if flags&linkFlagCharset != 0 {
		if err := buf.Skip(1); err != nil {
			return nil, utils.WrapError("link charset skip failed", err)
		}
	}

	nameLen, err := buf.ReadSized(uint8(1) << (flags & linkFlagSizeMask))
	if err != nil {
		return nil, utils.WrapError("link name length read failed", err)
	}
	nameRaw, err := buf.ReadBytes(int(nameLen))
	if err != nil {
		return nil, utils.WrapError("link name read failed", err)
	}
	link.Name = string(nameRaw)

	switch link.Type {
	case LinkHard:
		link.Address, err = buf.ReadSized(sb.OffsetSize)
		if err != nil {
			return nil, utils.WrapError("link target address read failed", err)
		}
	case LinkSoft:
		targetLen, err := buf.ReadUint16()
		if err != nil {
			return nil, utils.WrapError("soft link length read failed", err)
		}
		targetRaw, err := buf.ReadBytes(int(targetLen))
		if err != nil {
			return nil, utils.WrapError("soft link target read failed", err)
		}
		link.Target = string(targetRaw)
	default:
		// External and user-defined links keep their name but carry no
		// resolvable address.
	}
	return link, nil
}

// LinkInfo carries a group's link storage bookkeeping. When the
// fractal heap address is defined the group stores its links densely,
// which this reader does not traverse.
type LinkInfo struct {
	FractalHeapAddress uint64 // raw address, all-ones when compact
	NameIndexAddress   uint64
}

// ParseLinkInfo decodes a link info message.
func ParseLinkInfo(data []byte, sb *core.Superblock) (*LinkInfo, error) {
	buf := binio.FromBytes(data)

	head, err := buf.ReadBytes(2)
	if err != nil {
		return nil, utils.WrapError("link info read failed", err)
	}
	if head[0] != 0 {
		return nil, utils.NewUnsupportedError("link info version %d", head[0])
	}
	if head[1]&0x01 != 0 {
		if err := buf.Skip(8); err != nil { // max creation index
			return nil, utils.WrapError("link info creation index skip failed", err)
		}
	}

	li := &LinkInfo{}
	li.FractalHeapAddress, err = buf.ReadSized(sb.OffsetSize)
	if err != nil {
		return nil, utils.WrapError("link info heap address read failed", err)
	}
	li.NameIndexAddress, err = buf.ReadSized(sb.OffsetSize)
	if err != nil {
		return nil, utils.WrapError("link info index address read failed", err)
	}
	return li, nil
}

// Dense reports whether the group's links live in a fractal heap
// instead of link messages.
func (li *LinkInfo) Dense(sb *core.Superblock) bool {
	return !core.UndefinedAddress(li.FractalHeapAddress, sb.OffsetSize)
}
