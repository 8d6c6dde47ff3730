// Package blockfp implements the block-floating-point stage.
//
// A block of floats shares a single binary exponent emax, the frexp exponent of
// its largest magnitude. Samples are mapped to signed integers with two guard bits
// relative to that exponent before the integer transform runs, and mapped back
// after the inverse transform. Blocks that must survive bit for bit but cannot be
// represented exactly this way are reinterpreted as integers instead.
package blockfp

import "math"

// Float is the set of floating-point sample types.
type Float interface {
	float32 | float64
}

// Int is the set of integer storage types.
type Int interface {
	int32 | int64
}

// Exponent field layout per float type.
const (
	EBits32 = 8
	EBias32 = 127
	EBits64 = 11
	EBias64 = 1023
)

// EBits returns the width of the stored exponent field for F.
func EBits[F Float]() uint {
	var z F
	if _, ok := any(z).(float32); ok {
		return EBits32
	}
	return EBits64
}

// EBias returns the exponent bias for F. A biased exponent of zero is reserved
// for blocks with no nonzero samples.
func EBias[F Float]() int {
	var z F
	if _, ok := any(z).(float32); ok {
		return EBias32
	}
	return EBias64
}

// Width returns the number of bits in I.
func Width[I Int]() uint {
	var z I
	if _, ok := any(z).(int32); ok {
		return 32
	}
	return 64
}

// Exponent returns the common exponent of block: the frexp exponent of its
// largest finite magnitude, clamped below at 1-EBias. A block whose finite
// samples are all zero, either sign, yields the sentinel -EBias.
func Exponent[F Float](block []F) int {
	max := 0.0
	for _, x := range block {
		v := math.Abs(float64(x))
		if v > max && !math.IsInf(v, 0) {
			max = v
		}
	}
	bias := EBias[F]()
	if max == 0 {
		return -bias
	}
	_, e := math.Frexp(max)
	if e < 1-bias {
		e = 1 - bias
	}
	return e
}

// Finite reports whether every sample of block is finite.
func Finite[F Float](block []F) bool {
	for _, x := range block {
		v := float64(x)
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return false
		}
	}
	return true
}

// FwdCast maps src to fixed point relative to emax: dst[i] =
// trunc(src[i] * 2^(width-2-emax)). Every |src[i]| < 2^emax so the results
// leave two guard bits free.
func FwdCast[F Float, I Int](dst []I, src []F, emax int) {
	shift := int(Width[I]()) - 2 - emax
	for i, x := range src {
		dst[i] = I(math.Ldexp(float64(x), shift))
	}
}

// InvCast undoes FwdCast: dst[i] = src[i] * 2^(emax-width+2).
func InvCast[F Float, I Int](dst []F, src []I, emax int) {
	shift := emax - int(Width[I]()) + 2
	for i, v := range src {
		dst[i] = F(math.Ldexp(float64(v), shift))
	}
}

// Exact reports whether casting src with emax loses no information, that is,
// InvCast(FwdCast(src)) reproduces src bit for bit. On success dst holds the
// fixed-point samples.
func Exact[F Float, I Int](dst []I, src []F, emax int) bool {
	FwdCast(dst, src, emax)
	shift := emax - int(Width[I]()) + 2
	for i, v := range dst {
		if !sameBits(F(math.Ldexp(float64(v), shift)), src[i]) {
			return false
		}
	}
	return true
}

func sameBits[F Float](a, b F) bool {
	switch x := any(a).(type) {
	case float32:
		return math.Float32bits(x) == math.Float32bits(any(b).(float32))
	case float64:
		return math.Float64bits(x) == math.Float64bits(any(b).(float64))
	}
	return false
}

// Reinterpret stores the IEEE bits of src as integers ordered like the values
// they encode: negative values have their magnitude bits flipped. F and I must
// have the same width.
func Reinterpret[F Float, I Int](dst []I, src []F) {
	switch s := any(src).(type) {
	case []float32:
		d := any(dst).([]int32)
		for i, x := range s {
			v := int32(math.Float32bits(x))
			if v < 0 {
				v ^= math.MaxInt32
			}
			d[i] = v
		}
	case []float64:
		d := any(dst).([]int64)
		for i, x := range s {
			v := int64(math.Float64bits(x))
			if v < 0 {
				v ^= math.MaxInt64
			}
			d[i] = v
		}
	}
}

// Restore undoes Reinterpret.
func Restore[F Float, I Int](dst []F, src []I) {
	switch d := any(dst).(type) {
	case []float32:
		s := any(src).([]int32)
		for i, v := range s {
			if v < 0 {
				v ^= math.MaxInt32
			}
			d[i] = math.Float32frombits(uint32(v))
		}
	case []float64:
		s := any(src).([]int64)
		for i, v := range s {
			if v < 0 {
				v ^= math.MaxInt64
			}
			d[i] = math.Float64frombits(uint64(v))
		}
	}
}

// Zero reports whether every sample of block is positive zero.
func Zero[F Float](block []F) bool {
	for _, x := range block {
		if x != 0 || math.Signbit(float64(x)) {
			return false
		}
	}
	return true
}
