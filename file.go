// Package hdf5 reads HDF5 files: the path-based API opens a file,
// walks its group hierarchy and decodes dataset elements into Go
// values. Write support is not provided.
package hdf5

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gridframe/hdf5/internal/core"
)

// ObjectKind classifies what a path points at.
type ObjectKind = core.ObjectKind

// Object kinds returned by ObjectType. KindUnknown is a legitimate
// answer for headers that are neither group nor dataset.
const (
	KindUnknown = core.KindUnknown
	KindGroup   = core.KindGroup
	KindDataset = core.KindDataset
)

// File is an open HDF5 file. A File owns one read cursor per call and
// no shared mutable state beyond the closed flag, but it is not safe
// for concurrent use; open independent Files for concurrent readers.
type File struct {
	r      io.ReaderAt
	closer io.Closer
	sb     *core.Superblock
	log    zerolog.Logger
	closed bool
}

// Option configures a File during Open.
type Option func(*File)

// WithLogger routes structural warnings (soft links, dense groups) to
// the given logger. The default discards them.
func WithLogger(log zerolog.Logger) Option {
	return func(f *File) { f.log = log }
}

// Open opens the HDF5 file at path. The signature is located at
// offset 0 or at a 512-byte-aligned offset further in, so HDF5
// payloads embedded after other content are found. The handle is
// released on failure.
func Open(path string, opts ...Option) (*File, error) {
	osf, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("hdf5: open %s: %w", path, err)
	}
	info, err := osf.Stat()
	if err != nil {
		osf.Close()
		return nil, fmt.Errorf("hdf5: stat %s: %w", path, err)
	}
	f, err := NewFile(osf, info.Size(), opts...)
	if err != nil {
		osf.Close()
		return nil, err
	}
	f.closer = osf
	return f, nil
}

// NewFile reads an HDF5 file from an arbitrary io.ReaderAt of known
// size. Close releases nothing in this form; the caller keeps
// ownership of r.
func NewFile(r io.ReaderAt, size int64, opts ...Option) (*File, error) {
	f := &File{r: r, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(f)
	}

	sb, err := core.ReadSuperblock(r, size)
	if err != nil {
		if errors.Is(err, core.ErrNoSignature) {
			return nil, ErrNotHDF5
		}
		return nil, fmt.Errorf("hdf5: superblock: %w", err)
	}
	f.sb = sb

	f.log.Debug().
		Uint8("version", sb.Version).
		Uint64("start_offset", sb.StartOffset).
		Uint8("offset_size", sb.OffsetSize).
		Msg("superblock parsed")
	return f, nil
}

// Close releases the underlying file handle. Safe to call more than
// once.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	if f.closer != nil {
		return f.closer.Close()
	}
	return nil
}

// Superblock exposes the parsed file-level metadata.
func (f *File) Superblock() *core.Superblock {
	return f.sb
}

// ObjectType reports what the path points at. KindUnknown is returned
// for objects that are neither group nor dataset, without error.
func (f *File) ObjectType(path string) (ObjectKind, error) {
	oh, err := f.resolve(path)
	if err != nil {
		return KindUnknown, err
	}
	return oh.Kind(), nil
}

// List returns the child names of the group at path, in directory
// order.
func (f *File) List(path string) ([]string, error) {
	g, err := f.Group(path)
	if err != nil {
		return nil, err
	}
	return g.Children(), nil
}

// Group resolves path to a group.
func (f *File) Group(path string) (*Group, error) {
	oh, err := f.resolve(path)
	if err != nil {
		return nil, err
	}
	if oh.Kind() != KindGroup {
		return nil, fmt.Errorf("%w: %s", ErrNotGroup, cleanPath(path))
	}
	return newGroup(f, cleanPath(path), oh)
}

// Dataset resolves path to a dataset and parses its describing
// messages.
func (f *File) Dataset(path string) (*Dataset, error) {
	oh, err := f.resolve(path)
	if err != nil {
		return nil, err
	}
	if oh.Kind() != KindDataset {
		return nil, fmt.Errorf("%w: %s", ErrNotDataset, cleanPath(path))
	}
	return newDataset(f, cleanPath(path), oh)
}

// ReadDataset reads the full dataset at path as a flat row-major
// []any. The slice length equals the dataspace's element count.
func (f *File) ReadDataset(path string) ([]any, error) {
	d, err := f.Dataset(path)
	if err != nil {
		return nil, err
	}
	return d.Read()
}

// resolve walks the group hierarchy from the root to the object the
// path names and reads its object header.
func (f *File) resolve(path string) (*core.ObjectHeader, error) {
	if f.closed {
		return nil, ErrClosed
	}

	oh, err := core.ReadObjectHeader(f.r, f.sb.Adjust(f.sb.RootGroup), f.sb)
	if err != nil {
		return nil, fmt.Errorf("hdf5: root group: %w", err)
	}

	walked := "/"
	for _, name := range splitPath(path) {
		if oh.Kind() != KindGroup {
			return nil, fmt.Errorf("%w: %s", ErrNotGroup, walked)
		}
		g, err := newGroup(f, walked, oh)
		if err != nil {
			return nil, err
		}
		addr, ok := g.ChildAddress(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, joinPath(walked, name))
		}
		oh, err = core.ReadObjectHeader(f.r, f.sb.Adjust(addr), f.sb)
		if err != nil {
			return nil, fmt.Errorf("hdf5: %s: %w", joinPath(walked, name), err)
		}
		walked = joinPath(walked, name)
	}
	return oh, nil
}

// splitPath breaks an absolute path into its non-empty components.
func splitPath(path string) []string {
	var out []string
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

func cleanPath(path string) string {
	return "/" + strings.Join(splitPath(path), "/")
}

func joinPath(base, name string) string {
	if base == "/" {
		return "/" + name
	}
	return base + "/" + name
}
