// Package zfp provides a pure Go implementation of a block-transform codec for
// regularly gridded arrays of float32, float64, int32 and int64 values.
//
// Arrays of 1 to 4 dimensions are split into blocks of 4^d samples. Each block
// is compressed on its own: floats are aligned to a common exponent, the block
// is decorrelated by an integer lifting transform, and the coefficients are
// coded one bit plane at a time. The resulting bit stream can be cut at any
// point, which gives four ways to control the output:
//
//   - Fixed rate: every block takes exactly the same number of bits, so any
//     block can be located without an index.
//   - Fixed precision: a fixed number of bit planes is kept per block.
//   - Fixed accuracy: planes are kept until the absolute error bound holds.
//   - Reversible: every bit is kept and decoding is bit for bit exact.
//
// Basic usage for arrays:
//
//	a, err := zfp.Compress(data, []int{nx, ny, nz}, &zfp.Options{
//	    Params: zfp.FixedAccuracy(1e-3),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	out := make([]float64, len(data))
//	err = zfp.Decompress(a, out)
//
// Basic usage for single blocks:
//
//	words := make([]uint64, bitstream.Words(uint64(zfp.BlockBits(zfp.TypeFloat32, 2, p))))
//	w := bitstream.NewWriter(words)
//	bits, err := zfp.EncodeBlock(w, block, 2, p)
package zfp

import (
	"fmt"
	"math"

	"github.com/mrjoshuak/go-zfp/internal/blockfp"
	"github.com/mrjoshuak/go-zfp/internal/codestream"
	"github.com/mrjoshuak/go-zfp/internal/embed"
)

// Limits of the rate control parameters.
const (
	// MinExponent is the exponent of the smallest subnormal float64. A
	// MinExp below it selects reversible coding.
	MinExponent = -1074

	// MaxPrecision is the largest number of bit planes per block.
	MaxPrecision = 64

	// MaxBlockBits bounds the size of any encoded block: the largest block
	// header, one bit per group per plane of a 4D int64 block, and one sign
	// bit per coefficient.
	MaxBlockBits = 19 + 64*embed.MaxNodes + 256

	// MaxDims is the largest supported dimensionality.
	MaxDims = 4
)

// ScalarType identifies the type of array samples.
type ScalarType int

// Scalar type constants. The zero value is not a valid type.
const (
	TypeNone ScalarType = iota
	TypeInt32
	TypeInt64
	TypeFloat32
	TypeFloat64
)

// String returns the string representation of the scalar type.
func (t ScalarType) String() string {
	switch t {
	case TypeInt32:
		return "int32"
	case TypeInt64:
		return "int64"
	case TypeFloat32:
		return "float32"
	case TypeFloat64:
		return "float64"
	default:
		return "none"
	}
}

// Bits returns the storage width of the type, 0 for TypeNone.
func (t ScalarType) Bits() int {
	switch t {
	case TypeInt32, TypeFloat32:
		return 32
	case TypeInt64, TypeFloat64:
		return 64
	default:
		return 0
	}
}

// IsFloat reports whether t is a floating-point type.
func (t ScalarType) IsFloat() bool {
	return t == TypeFloat32 || t == TypeFloat64
}

// valid reports whether t names a supported type.
func (t ScalarType) valid() bool {
	return t >= TypeInt32 && t <= TypeFloat64
}

// ParseScalarType returns the type named s.
func ParseScalarType(s string) (ScalarType, error) {
	for t := TypeInt32; t <= TypeFloat64; t++ {
		if t.String() == s {
			return t, nil
		}
	}
	return TypeNone, fmt.Errorf("unknown scalar type %q", s)
}

// Mode is the rate control policy implied by a set of Params.
type Mode int

const (
	// ModeExpert is any parameter combination not matching another mode.
	ModeExpert Mode = iota
	// ModeFixedRate codes every block in exactly MaxBits bits.
	ModeFixedRate
	// ModeFixedPrecision codes MaxPrec bit planes per block.
	ModeFixedPrecision
	// ModeFixedAccuracy codes planes down to the tolerance 2^MinExp.
	ModeFixedAccuracy
	// ModeReversible codes every plane for lossless reconstruction.
	ModeReversible
)

// String returns the string representation of the mode.
func (m Mode) String() string {
	switch m {
	case ModeFixedRate:
		return "fixed-rate"
	case ModeFixedPrecision:
		return "fixed-precision"
	case ModeFixedAccuracy:
		return "fixed-accuracy"
	case ModeReversible:
		return "reversible"
	default:
		return "expert"
	}
}

// Params holds the per-block rate control parameters. Together the four
// fields determine where coding of a block stops.
type Params struct {
	// MinBits is the least number of bits per block; shorter blocks are
	// zero padded.
	MinBits int

	// MaxBits is the most bits spent on a block, header included.
	MaxBits int

	// MaxPrec is the most bit planes coded per block.
	MaxPrec int

	// MinExp is the exponent of the smallest bit plane coded for floats,
	// i.e. the absolute error tolerance is 2^MinExp. Values below MinExponent
	// select reversible coding.
	MinExp int
}

// FixedRate returns parameters that code each block of type t and dimension
// dims in rate bits per sample, rounded to a whole number of bits per block.
// Float blocks always get room for their exponent.
func FixedRate(t ScalarType, dims int, rate float64) Params {
	n := 1 << (2 * dims)
	bits := int(math.Floor(float64(n)*rate + 0.5))
	floor := 1
	switch t {
	case TypeFloat32:
		floor = 1 + blockfp.EBits32
	case TypeFloat64:
		floor = 1 + blockfp.EBits64
	}
	bits = min(max(bits, floor), MaxBlockBits)
	return Params{MinBits: bits, MaxBits: bits, MaxPrec: MaxPrecision, MinExp: MinExponent}
}

// FixedPrecision returns parameters that code prec bit planes per block.
func FixedPrecision(prec int) Params {
	prec = min(max(prec, 1), MaxPrecision)
	return Params{MinBits: 0, MaxBits: MaxBlockBits, MaxPrec: prec, MinExp: MinExponent}
}

// FixedAccuracy returns parameters that bound the absolute error of float
// samples by tolerance. The tolerance actually used is the largest power of two
// not above it; a tolerance of zero keeps every plane down to MinExponent.
//
// The bound holds only down to the resolution of a block's fixed-point values,
// about 2^(emax-52) for float64 and 2^(emax-23) for float32, where 2^emax
// bounds the block's largest magnitude. Smaller tolerances behave like a
// tolerance at that resolution.
func FixedAccuracy(tolerance float64) Params {
	minexp := MinExponent
	if tolerance > 0 {
		_, e := math.Frexp(tolerance)
		minexp = max(e-1, MinExponent)
	}
	return Params{MinBits: 0, MaxBits: MaxBlockBits, MaxPrec: MaxPrecision, MinExp: minexp}
}

// Reversible returns parameters for lossless coding.
func Reversible() Params {
	return Params{MinBits: 0, MaxBits: MaxBlockBits, MaxPrec: MaxPrecision, MinExp: MinExponent - 1}
}

// Mode returns the rate control policy the parameters describe.
func (p Params) Mode() Mode {
	unbounded := p.MinBits <= 0 && p.MaxBits >= MaxBlockBits
	switch {
	case unbounded && p.MaxPrec >= MaxPrecision && p.MinExp < MinExponent:
		return ModeReversible
	case p.MinBits == p.MaxBits && p.MaxBits >= 1 && p.MaxBits <= MaxBlockBits &&
		p.MaxPrec >= MaxPrecision && p.MinExp <= MinExponent:
		return ModeFixedRate
	case unbounded && p.MaxPrec >= 1 && p.MaxPrec <= MaxPrecision && p.MinExp == MinExponent:
		return ModeFixedPrecision
	case unbounded && p.MaxPrec >= MaxPrecision && p.MinExp > MinExponent:
		return ModeFixedAccuracy
	default:
		return ModeExpert
	}
}

// Tolerance returns the absolute error tolerance 2^MinExp, or 0 when every
// plane is kept.
func (p Params) Tolerance() float64 {
	if p.MinExp <= MinExponent {
		return 0
	}
	return math.Ldexp(1, p.MinExp)
}

// Rate returns the number of bits per sample for blocks of dims dimensions
// when every block is MaxBits long.
func (p Params) Rate(dims int) float64 {
	return float64(p.MaxBits) / float64(int(1)<<(2*dims))
}

// Validate checks the parameters for consistency.
func (p Params) Validate() error {
	if p.MaxBits < 1 || p.MaxBits > MaxBlockBits {
		return fmt.Errorf("%w: maxbits %d outside [1, %d]", ErrInvalidParams, p.MaxBits, MaxBlockBits)
	}
	if p.MinBits < 0 || p.MinBits > p.MaxBits {
		return fmt.Errorf("%w: minbits %d outside [0, %d]", ErrInvalidParams, p.MinBits, p.MaxBits)
	}
	if p.MaxPrec < 1 || p.MaxPrec > MaxPrecision {
		return fmt.Errorf("%w: maxprec %d outside [1, %d]", ErrInvalidParams, p.MaxPrec, MaxPrecision)
	}
	if p.MinExp < MinExponent-1 || p.MinExp > math.MaxInt16 {
		return fmt.Errorf("%w: minexp %d outside [%d, %d]", ErrInvalidParams, p.MinExp, MinExponent-1, math.MaxInt16)
	}
	return nil
}

// reversible reports whether blocks are coded losslessly.
func (p Params) reversible() bool {
	return p.MinExp < MinExponent
}

// precision returns the number of bit planes to code for a block with common
// exponent emax: enough planes to reach 2^minexp after the transform's gain,
// capped at maxprec.
func precision(emax, maxprec, minexp, dims int) int {
	return min(maxprec, max(0, emax-minexp+2*(dims+1)))
}

// headerBits returns the largest block header for t: the exponent fields of
// float blocks and the precision field of reversible blocks.
func headerBits(t ScalarType) int {
	switch t {
	case TypeFloat32:
		return 2 + blockfp.EBits32 + pbits(32)
	case TypeFloat64:
		return 2 + blockfp.EBits64 + pbits(64)
	default:
		return pbits(t.Bits())
	}
}

// minBits returns the fewest MaxBits that can hold a block header of type t
// under p.
func minBits(t ScalarType, p Params) int {
	switch {
	case p.reversible():
		return headerBits(t)
	case t == TypeFloat32:
		return 1 + blockfp.EBits32
	case t == TypeFloat64:
		return 1 + blockfp.EBits64
	default:
		return 1
	}
}

// pbits returns the width of the precision field of reversible blocks.
func pbits(width int) int {
	if width == 32 {
		return 5
	}
	return 6
}

// BlockBits returns the number of bits a caller must reserve to encode one
// block of type t and dimension dims under p.
func BlockBits(t ScalarType, dims int, p Params) int {
	worst := headerBits(t) + embed.MaxBits(t.Bits(), dims)
	return min(p.MaxBits, max(p.MinBits, worst))
}

// blockLength returns the length shared by every block under p, if the length
// does not depend on the samples: fixed-rate blocks, and lossy integer blocks
// left with no bit planes to code.
func blockLength(t ScalarType, dims int, p Params) (int, bool) {
	if p.MinBits == p.MaxBits {
		return p.MaxBits, true
	}
	if !p.reversible() && !t.IsFloat() && precision(t.Bits()-2, p.MaxPrec, p.MinExp, dims) == 0 {
		return p.MinBits, true
	}
	return 0, false
}

// minBlockBits returns the fewest bits a block of type t can take under p when
// blockLength reports a variable length.
func minBlockBits(t ScalarType, p Params) int {
	least := 1
	if p.reversible() && !t.IsFloat() {
		least = pbits(t.Bits())
	}
	return max(least, p.MinBits)
}

// check validates the arguments shared by block operations.
func check(t ScalarType, dims, n int, p Params) error {
	if dims < 1 || dims > MaxDims {
		return fmt.Errorf("%w: %d", ErrInvalidDims, dims)
	}
	if n < 1<<(2*dims) {
		return fmt.Errorf("%w: %d samples for %d dimensions", ErrBlockSize, n, dims)
	}
	if err := p.Validate(); err != nil {
		return err
	}
	if need := minBits(t, p); p.MaxBits < need {
		return fmt.Errorf("%w: maxbits %d below %s block header of %d bits", ErrInvalidParams, p.MaxBits, t, need)
	}
	return nil
}

// toHeaderType converts a scalar type to its serialized tag.
func toHeaderType(t ScalarType) uint8 {
	switch t {
	case TypeInt32:
		return codestream.TypeInt32
	case TypeInt64:
		return codestream.TypeInt64
	case TypeFloat32:
		return codestream.TypeFloat32
	case TypeFloat64:
		return codestream.TypeFloat64
	}
	return 0
}

// fromHeaderType converts a serialized tag to a scalar type.
func fromHeaderType(tag uint8) ScalarType {
	switch tag {
	case codestream.TypeInt32:
		return TypeInt32
	case codestream.TypeInt64:
		return TypeInt64
	case codestream.TypeFloat32:
		return TypeFloat32
	case codestream.TypeFloat64:
		return TypeFloat64
	}
	return TypeNone
}
