package utils

import (
	"errors"
	"fmt"
)

// H5Error represents a structured HDF5 error with context.
type H5Error struct {
	Context string
	Cause   error
}

// Error implements the error interface.
func (e *H5Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Context, e.Cause)
}

// Unwrap provides compatibility with errors.Unwrap().
func (e *H5Error) Unwrap() error {
	return e.Cause
}

// WrapError creates a contextual error.
func WrapError(context string, cause error) error {
	if cause == nil {
		return nil
	}
	return &H5Error{
		Context: context,
		Cause:   cause,
	}
}

// FormatError reports a malformed on-disk structure. It carries the byte
// offset where the problem was detected so callers can distinguish
// corruption from unimplemented features.
type FormatError struct {
	Offset uint64
	Detail string
}

// Error implements the error interface.
func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid HDF5 structure at offset 0x%X: %s", e.Offset, e.Detail)
}

// NewFormatError creates a FormatError for the given offset.
func NewFormatError(offset uint64, format string, args ...interface{}) error {
	return &FormatError{Offset: offset, Detail: fmt.Sprintf(format, args...)}
}

// UnsupportedError reports a well-formed file using a feature this
// implementation does not handle (virtual datasets, unknown filters,
// exotic datatype classes). Distinct from FormatError so callers can
// tell "corrupt" apart from "not implemented".
type UnsupportedError struct {
	Feature string
}

// Error implements the error interface.
func (e *UnsupportedError) Error() string {
	return "unsupported HDF5 feature: " + e.Feature
}

// NewUnsupportedError creates an UnsupportedError for the named feature.
func NewUnsupportedError(format string, args ...interface{}) error {
	return &UnsupportedError{Feature: fmt.Sprintf(format, args...)}
}

// IsUnsupported reports whether err (or anything it wraps) is an
// UnsupportedError.
func IsUnsupported(err error) bool {
	var ue *UnsupportedError
	return errors.As(err, &ue)
}

// IsFormatError reports whether err (or anything it wraps) is a
// FormatError.
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}
