package utils

import (
	"fmt"
	"math"
)

// Buffer size limits. Reads that would allocate more than these fail
// loudly instead of exhausting memory on a corrupt length field.
const (
	// MaxChunkSize limits a single chunk to 1GB.
	MaxChunkSize = 1024 * 1024 * 1024

	// MaxDatasetSize limits a whole in-memory dataset read to 4GB.
	MaxDatasetSize = 4 * uint64(MaxChunkSize)

	// MaxAttributeSize limits attribute values to 64MB.
	MaxAttributeSize = 64 * 1024 * 1024
)

// CheckMultiplyOverflow checks if multiplying two uint64 values would
// overflow.
func CheckMultiplyOverflow(a, b uint64) error {
	if a == 0 || b == 0 {
		return nil
	}
	if a > math.MaxUint64/b {
		return fmt.Errorf("multiplication overflow: %d * %d exceeds uint64 max", a, b)
	}
	return nil
}

// SafeMultiply multiplies two uint64 values, failing on overflow.
func SafeMultiply(a, b uint64) (uint64, error) {
	if err := CheckMultiplyOverflow(a, b); err != nil {
		return 0, err
	}
	return a * b, nil
}

// ValidateBufferSize validates that a buffer size is within limits.
func ValidateBufferSize(size, maxSize uint64, description string) error {
	if size == 0 {
		return fmt.Errorf("%s: size cannot be zero", description)
	}
	if size > maxSize {
		return fmt.Errorf("%s: size %d exceeds maximum %d", description, size, maxSize)
	}
	return nil
}
