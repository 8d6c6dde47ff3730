// Package xform implements the decorrelating block transforms.
//
// Two separable lifting transforms operate on 4-sample lines of a block of
// side 4 in each of its 1-4 dimensions:
// - near-orthogonal lifting (lossy modes): integer shifts, two guard bits
// - reversible lifting (lossless mode): exact modulo 2^width for any input
//
// Integer arithmetic relies on Go's defined two's-complement wraparound.
package xform

// Int is the set of coefficient storage types.
type Int interface {
	~int32 | ~int64
}

// MaxDims is the largest supported dimensionality.
const MaxDims = 4

// Size returns the number of samples in a block of the given dimensionality.
func Size(dims int) int {
	return 1 << (2 * dims)
}

// fwdLift applies the forward near-orthogonal transform to the line
// p[off], p[off+s], p[off+2s], p[off+3s].
//
//	       ( 4  4  4  4) (x)
//	1/16 * ( 5  1 -1 -5) (y)
//	       (-4  4  4 -4) (z)
//	       (-2  6 -6  2) (w)
func fwdLift[I Int](p []I, off, s int) {
	x := p[off]
	y := p[off+s]
	z := p[off+2*s]
	w := p[off+3*s]

	x += w
	x >>= 1
	w -= x
	z += y
	z >>= 1
	y -= z
	x += z
	x >>= 1
	z -= x
	w += y
	w >>= 1
	y -= w
	w += y >> 1
	y -= w >> 1

	p[off] = x
	p[off+s] = y
	p[off+2*s] = z
	p[off+3*s] = w
}

// invLift applies the inverse near-orthogonal transform.
//
//	      ( 4  6 -4 -1) (x)
//	1/4 * ( 4  2  4  5) (y)
//	      ( 4 -2  4 -5) (z)
//	      ( 4 -6 -4  1) (w)
func invLift[I Int](p []I, off, s int) {
	x := p[off]
	y := p[off+s]
	z := p[off+2*s]
	w := p[off+3*s]

	y += w >> 1
	w -= y >> 1
	y += w
	w <<= 1
	w -= y
	z += x
	x <<= 1
	x -= z
	y += z
	z <<= 1
	z -= y
	w += x
	x <<= 1
	x -= w

	p[off] = x
	p[off+s] = y
	p[off+2*s] = z
	p[off+3*s] = w
}

// revFwdLift applies the forward reversible transform, a high-order Lorenzo
// predictor.
//
//	( 1  0  0  0) (x)
//	(-1  1  0  0) (y)
//	( 1 -2  1  0) (z)
//	(-1  3 -3  1) (w)
func revFwdLift[I Int](p []I, off, s int) {
	x := p[off]
	y := p[off+s]
	z := p[off+2*s]
	w := p[off+3*s]

	w -= z
	z -= y
	y -= x
	w -= z
	z -= y
	w -= z

	p[off+s] = y
	p[off+2*s] = z
	p[off+3*s] = w
}

// revInvLift undoes revFwdLift exactly.
func revInvLift[I Int](p []I, off, s int) {
	x := p[off]
	y := p[off+s]
	z := p[off+2*s]
	w := p[off+3*s]

	w += z
	z += y
	w += z
	y += x
	z += y
	w += z

	p[off+s] = y
	p[off+2*s] = z
	p[off+3*s] = w
}

// lineOffset returns the offset of line i among the lines running along axis,
// where stride is 4^axis.
func lineOffset(i, stride int) int {
	return (i/stride)*stride*4 + i%stride
}

// axisPass applies lift to every line along axis of a block.
func axisPass[I Int](p []I, dims, axis int, lift func([]I, int, int)) {
	stride := 1 << (2 * axis)
	lines := Size(dims) / 4
	for i := 0; i < lines; i++ {
		lift(p, lineOffset(i, stride), stride)
	}
}

// Forward applies the near-orthogonal transform along axes 0..dims-1.
// Inputs must satisfy |v| < 2^(width-2).
func Forward[I Int](p []I, dims int) {
	for axis := 0; axis < dims; axis++ {
		axisPass(p, dims, axis, fwdLift[I])
	}
}

// Inverse undoes Forward, transforming axes in reverse order.
func Inverse[I Int](p []I, dims int) {
	for axis := dims - 1; axis >= 0; axis-- {
		axisPass(p, dims, axis, invLift[I])
	}
}

// ForwardReversible applies the reversible transform along axes 0..dims-1.
func ForwardReversible[I Int](p []I, dims int) {
	for axis := 0; axis < dims; axis++ {
		axisPass(p, dims, axis, revFwdLift[I])
	}
}

// InverseReversible undoes ForwardReversible exactly.
func InverseReversible[I Int](p []I, dims int) {
	for axis := dims - 1; axis >= 0; axis-- {
		axisPass(p, dims, axis, revInvLift[I])
	}
}
