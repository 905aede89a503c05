package hdf5

import (
	"errors"

	"github.com/gridframe/hdf5/internal/utils"
)

// Sentinel errors returned by the path-based API. Structural failures
// carry a *utils.FormatError or *utils.UnsupportedError instead; use
// IsCorrupt and IsUnsupported to classify those.
var (
	// ErrNotHDF5 means no HDF5 signature was found in the file.
	ErrNotHDF5 = errors.New("hdf5: not an HDF5 file")

	// ErrNotFound means a path component does not exist.
	ErrNotFound = errors.New("hdf5: object not found")

	// ErrNotGroup means a path component that must be a group is not.
	ErrNotGroup = errors.New("hdf5: object is not a group")

	// ErrNotDataset means the path resolves to something other than a
	// dataset.
	ErrNotDataset = errors.New("hdf5: object is not a dataset")

	// ErrClosed means the file handle was already closed.
	ErrClosed = errors.New("hdf5: file is closed")
)

// IsUnsupported reports whether err stems from a valid HDF5 feature
// this reader does not implement (virtual datasets, szip, dense
// groups).
func IsUnsupported(err error) bool {
	return utils.IsUnsupported(err)
}

// IsCorrupt reports whether err stems from malformed file structure.
func IsCorrupt(err error) bool {
	return utils.IsFormatError(err)
}
