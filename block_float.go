package zfp

import (
	"fmt"

	"github.com/mrjoshuak/go-zfp/bitstream"
	"github.com/mrjoshuak/go-zfp/internal/blockfp"
)

// Float block layouts, first bit written first:
//
//	lossy       0                             all zero or below tolerance
//	            1 exponent ints               exponent is EBits wide, biased
//	reversible  0                             every sample is +0.0
//	            1 0 exponent ints             exact block-floating-point
//	            1 1 ints                      IEEE bits reinterpreted
//
// Reversible ints carry their own precision field.

// encodeFloat encodes a block of float samples.
func encodeFloat[F blockfp.Float, I blockfp.Int](w *bitstream.Writer, block []F, dims int, p Params) (int, error) {
	n := 1 << (2 * dims)
	src := block[:n]
	ebits := blockfp.EBits[F]()
	bias := blockfp.EBias[F]()
	var ints [256]I

	if p.reversible() {
		return pad(w, encodeFloatReversible(w, src, ints[:n], dims, p), p), nil
	}

	if !blockfp.Finite(src) {
		return 0, fmt.Errorf("%w: %s block in %s mode", ErrNonFinite, TypeOf[F](), p.Mode())
	}
	emax := blockfp.Exponent(src)
	prec := precision(emax, p.MaxPrec, p.MinExp, dims)
	e := 0
	if emax > -bias && prec > 0 {
		e = emax + bias
	}
	if e == 0 {
		w.WriteBit(0)
		return pad(w, 1, p), nil
	}

	w.WriteBits(uint64(2*e+1), ebits+1)
	blockfp.FwdCast(ints[:n], src, emax)
	bits := 1 + int(ebits)
	bits += encodeInts(w, ints[:n], dims, p.MaxBits-bits, prec, false)
	return pad(w, bits, p), nil
}

// encodeFloatReversible encodes src losslessly, preferring the exact
// block-floating-point form and falling back to the raw IEEE bits.
func encodeFloatReversible[F blockfp.Float, I blockfp.Int](w *bitstream.Writer, src []F, ints []I, dims int, p Params) int {
	if blockfp.Zero(src) {
		w.WriteBit(0)
		return 1
	}
	w.WriteBit(1)

	var bits int
	emax := blockfp.Exponent(src)
	if emax > -blockfp.EBias[F]() && blockfp.Finite(src) && blockfp.Exact(ints, src, emax) {
		ebits := blockfp.EBits[F]()
		w.WriteBit(0)
		w.WriteBits(uint64(emax+blockfp.EBias[F]()), ebits)
		bits = 2 + int(ebits)
	} else {
		w.WriteBit(1)
		blockfp.Reinterpret(ints, src)
		bits = 2
	}
	return bits + encodeInts(w, ints, dims, p.MaxBits-bits, 0, true)
}

// decodeFloat decodes a block of float samples.
func decodeFloat[F blockfp.Float, I blockfp.Int](r *bitstream.Reader, block []F, dims int, p Params) int {
	n := 1 << (2 * dims)
	dst := block[:n]
	ebits := blockfp.EBits[F]()
	bias := blockfp.EBias[F]()
	var ints [256]I

	if p.reversible() {
		return skip(r, decodeFloatReversible(r, dst, ints[:n], dims, p), p)
	}

	if r.ReadBit() == 0 {
		clear(dst)
		return skip(r, 1, p)
	}
	emax := int(r.ReadBits(ebits)) - bias
	prec := precision(emax, p.MaxPrec, p.MinExp, dims)
	bits := 1 + int(ebits)
	bits += decodeInts(r, ints[:n], dims, p.MaxBits-bits, prec, false)
	blockfp.InvCast(dst, ints[:n], emax)
	return skip(r, bits, p)
}

// decodeFloatReversible mirrors encodeFloatReversible.
func decodeFloatReversible[F blockfp.Float, I blockfp.Int](r *bitstream.Reader, dst []F, ints []I, dims int, p Params) int {
	if r.ReadBit() == 0 {
		clear(dst)
		return 1
	}

	if r.ReadBit() == 0 {
		ebits := blockfp.EBits[F]()
		emax := int(r.ReadBits(ebits)) - blockfp.EBias[F]()
		bits := 2 + int(ebits)
		bits += decodeInts(r, ints, dims, p.MaxBits-bits, 0, true)
		blockfp.InvCast(dst, ints, emax)
		return bits
	}

	bits := 2 + decodeInts(r, ints, dims, p.MaxBits-2, 0, true)
	blockfp.Restore(dst, ints)
	return bits
}
