package zfp

import (
	"fmt"

	"github.com/mrjoshuak/go-zfp/bitstream"
	"github.com/mrjoshuak/go-zfp/internal/tile"
)

// Scalar is the set of supported sample types.
type Scalar interface {
	int32 | int64 | float32 | float64
}

// TypeOf returns the ScalarType of T.
func TypeOf[T Scalar]() ScalarType {
	var z T
	switch any(z).(type) {
	case int32:
		return TypeInt32
	case int64:
		return TypeInt64
	case float32:
		return TypeFloat32
	default:
		return TypeFloat64
	}
}

// EncodeBlock compresses the first 4^dims samples of block to w under p and
// returns the number of bits written. Samples are laid out with x varying
// fastest. The bits land in [start, start+bits) of w, where start is the write
// position on entry; nothing else is touched.
//
// w must have room for BlockBits bits; running out of room returns an error
// wrapping ErrCapacityExceeded.
func EncodeBlock[T Scalar](w *bitstream.Writer, block []T, dims int, p Params) (int, error) {
	if err := check(TypeOf[T](), dims, len(block), p); err != nil {
		return 0, err
	}

	var bits int
	var err error
	switch b := any(block).(type) {
	case []int32:
		bits, err = encodeInt(w, b, dims, p)
	case []int64:
		bits, err = encodeInt(w, b, dims, p)
	case []float32:
		bits, err = encodeFloat[float32, int32](w, b, dims, p)
	case []float64:
		bits, err = encodeFloat[float64, int64](w, b, dims, p)
	}
	if err != nil {
		return 0, err
	}
	if err := w.Err(); err != nil {
		return bits, fmt.Errorf("encoding block: %w", err)
	}
	return bits, nil
}

// DecodeBlock decompresses one block from r under p into the first 4^dims
// samples of block and returns the number of bits read, which always equals
// the count EncodeBlock reported for the block.
func DecodeBlock[T Scalar](r *bitstream.Reader, block []T, dims int, p Params) (int, error) {
	if err := check(TypeOf[T](), dims, len(block), p); err != nil {
		return 0, err
	}

	var bits int
	switch b := any(block).(type) {
	case []int32:
		bits = decodeInt(r, b, dims, p)
	case []int64:
		bits = decodeInt(r, b, dims, p)
	case []float32:
		bits = decodeFloat[float32, int32](r, b, dims, p)
	case []float64:
		bits = decodeFloat[float64, int64](r, b, dims, p)
	}
	if err := r.Err(); err != nil {
		return bits, fmt.Errorf("decoding block: %w", err)
	}
	return bits, nil
}

// EncodePartialBlock compresses a block with only extent[axis] valid samples
// along each of its dims axes. The valid samples sit at their usual block
// positions; the rest of block is ignored and replaced, in a copy, by the last
// valid sample along each short axis.
func EncodePartialBlock[T Scalar](w *bitstream.Writer, block []T, dims int, extent []int, p Params) (int, error) {
	if err := check(TypeOf[T](), dims, len(block), p); err != nil {
		return 0, err
	}
	if len(extent) != dims {
		return 0, fmt.Errorf("%w: %d extents for %d dimensions", ErrShape, len(extent), dims)
	}
	e := [4]int{1, 1, 1, 1}
	for axis, n := range extent {
		if n < 1 || n > tile.Side {
			return 0, fmt.Errorf("%w: block extent %d on axis %d", ErrShape, n, axis)
		}
		e[axis] = n
	}

	var padded [256]T
	n := 1 << (2 * dims)
	copy(padded[:n], block)
	tile.Pad(padded[:n], dims, e)
	return EncodeBlock(w, padded[:n], dims, p)
}
