package zfp

import (
	"errors"

	"github.com/mrjoshuak/go-zfp/bitstream"
	"github.com/mrjoshuak/go-zfp/internal/codestream"
)

// Sentinel errors. Operations wrap these with context; test with errors.Is.
var (
	// ErrCapacityExceeded is returned when a block does not fit the bit
	// buffer supplied for it, or a read runs past the end of the buffer.
	ErrCapacityExceeded = bitstream.ErrCapacity

	// ErrInvalidParams is returned for inconsistent rate control parameters.
	ErrInvalidParams = errors.New("invalid parameters")

	// ErrInvalidDims is returned for a dimensionality outside 1-4.
	ErrInvalidDims = errors.New("invalid dimensionality")

	// ErrBlockSize is returned when a block buffer holds fewer than 4^d samples.
	ErrBlockSize = errors.New("block buffer too small")

	// ErrNonFinite is returned when a lossy mode is asked to encode infinity
	// or NaN. Reversible mode encodes such blocks bit for bit instead.
	ErrNonFinite = errors.New("non-finite value in lossy mode")

	// ErrRange is returned when an integer sample exceeds the range lossy
	// modes can represent, |v| < 2^(width-2).
	ErrRange = errors.New("integer value out of range for lossy mode")

	// ErrTypeMismatch is returned when an array is accessed as the wrong type.
	ErrTypeMismatch = errors.New("scalar type does not match header")

	// ErrDimsMismatch is returned when an array is accessed with the wrong
	// dimensionality.
	ErrDimsMismatch = errors.New("dimensionality does not match header")

	// ErrShape is returned for invalid extents or mismatched buffer lengths.
	ErrShape = errors.New("invalid array shape")

	// ErrInvalidHeader is returned for malformed serialized arrays.
	ErrInvalidHeader = codestream.ErrInvalidHeader

	// ErrCorrupt is returned when compressed data does not decode consistently.
	ErrCorrupt = errors.New("corrupt compressed data")
)
