package hdf5

import (
	"fmt"

	"github.com/gridframe/hdf5/internal/core"
	"github.com/gridframe/hdf5/internal/structures"
)

// Group is a resolved HDF5 group. Children are loaded once at
// resolution time; old-style groups come from the symbol table B-tree
// and local heap, new-style groups from link messages.
type Group struct {
	file   *File
	path   string
	header *core.ObjectHeader

	names     []string
	addresses map[string]uint64 // raw object header addresses, hard links only
}

func newGroup(f *File, path string, oh *core.ObjectHeader) (*Group, error) {
	g := &Group{
		file:      f,
		path:      path,
		header:    oh,
		addresses: make(map[string]uint64),
	}
	if err := g.loadChildren(); err != nil {
		return nil, fmt.Errorf("hdf5: group %s: %w", path, err)
	}
	return g, nil
}

// Path returns the absolute path this group was resolved from.
func (g *Group) Path() string {
	return g.path
}

// Children returns the names of the group's members in directory
// order. Soft links are listed but carry no address.
func (g *Group) Children() []string {
	return g.names
}

// ChildAddress returns the raw object header address of a named
// child. The second result is false for absent names and for soft
// links.
func (g *Group) ChildAddress(name string) (uint64, bool) {
	addr, ok := g.addresses[name]
	return addr, ok
}

// Attributes decodes the group's attributes in header order.
func (g *Group) Attributes() ([]core.Attribute, error) {
	return readAttributes(g.file, g.header)
}

func (g *Group) loadChildren() error {
	if msg := g.header.Find(core.MsgSymbolTable); msg != nil {
		return g.loadSymbolTable(msg.Data)
	}
	return g.loadLinkMessages()
}

// loadSymbolTable walks an old-style group: the symbol table message
// names a B-tree of SNOD nodes and a local heap of link names.
func (g *Group) loadSymbolTable(msgData []byte) error {
	sb := g.file.sb
	btreeAddr, heapAddr, err := structures.ParseSymbolTableMessage(msgData, sb)
	if err != nil {
		return err
	}
	heap, err := structures.ReadLocalHeap(g.file.r, sb.Adjust(heapAddr), sb)
	if err != nil {
		return err
	}
	entries, err := structures.CollectGroupEntries(g.file.r, sb.Adjust(btreeAddr), sb)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		name, err := heap.StringAt(g.file.r, entry.NameOffset)
		if err != nil {
			return err
		}
		g.names = append(g.names, name)
		g.addresses[name] = entry.HeaderAddress
	}
	return nil
}

// loadLinkMessages walks a new-style group: one link message per
// member. Dense groups keep their links in a fractal heap instead,
// which this reader recognizes but does not traverse.
func (g *Group) loadLinkMessages() error {
	sb := g.file.sb

	if msg := g.header.Find(core.MsgLinkInfo); msg != nil {
		li, err := structures.ParseLinkInfo(msg.Data, sb)
		if err != nil {
			return err
		}
		if li.Dense(sb) {
			g.file.log.Warn().
				Str("group", g.path).
				Msg("dense link storage not supported; group listed as empty")
			return nil
		}
	}

	for _, msg := range g.header.FindAll(core.MsgLink) {
		link, err := structures.ParseLinkMessage(msg.Data, sb)
		if err != nil {
			return err
		}
		g.names = append(g.names, link.Name)
		switch link.Type {
		case structures.LinkHard:
			g.addresses[link.Name] = link.Address
		case structures.LinkSoft:
			g.file.log.Warn().
				Str("group", g.path).
				Str("link", link.Name).
				Str("target", link.Target).
				Msg("soft link not followed")
		}
	}
	return nil
}
