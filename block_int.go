package zfp

import (
	"fmt"
	"math/bits"

	"github.com/mrjoshuak/go-zfp/bitstream"
	"github.com/mrjoshuak/go-zfp/internal/blockfp"
	"github.com/mrjoshuak/go-zfp/internal/embed"
	"github.com/mrjoshuak/go-zfp/internal/xform"
)

// encodeInts transforms a block of integers in place and codes it with at most
// maxbits bits. Lossy blocks keep prec planes; reversible blocks store their
// own precision and keep every plane.
func encodeInts[I blockfp.Int](w *bitstream.Writer, ints []I, dims, maxbits, prec int, reversible bool) int {
	var coef [256]I
	var mag [256]uint64
	var neg [256]bool
	n := len(ints)
	width := int(blockfp.Width[I]())

	if !reversible {
		xform.Forward(ints, dims)
		xform.Order(coef[:n], ints, dims)
		embed.Split(mag[:n], neg[:n], coef[:n])
		return embed.Encode(w, maxbits, width, max(0, width-prec), dims, mag[:n], neg[:n])
	}

	xform.ForwardReversible(ints, dims)
	xform.Order(coef[:n], ints, dims)
	embed.Split(mag[:n], neg[:n], coef[:n])
	var or uint64
	for _, m := range mag[:n] {
		or |= m
	}
	top := max(bits.Len64(or), 1)
	pb := pbits(width)
	w.WriteBits(uint64(top-1), uint(pb))
	return pb + embed.Encode(w, maxbits-pb, top, 0, dims, mag[:n], neg[:n])
}

// decodeInts mirrors encodeInts.
func decodeInts[I blockfp.Int](r *bitstream.Reader, ints []I, dims, maxbits, prec int, reversible bool) int {
	var coef [256]I
	var mag [256]uint64
	var neg [256]bool
	n := len(ints)
	width := int(blockfp.Width[I]())

	if !reversible {
		bits := embed.Decode(r, maxbits, width, max(0, width-prec), dims, mag[:n], neg[:n])
		embed.Join(coef[:n], mag[:n], neg[:n])
		xform.Unorder(ints, coef[:n], dims)
		xform.Inverse(ints, dims)
		return bits
	}

	pb := pbits(width)
	top := int(r.ReadBits(uint(pb))) + 1
	bits := pb + embed.Decode(r, maxbits-pb, top, 0, dims, mag[:n], neg[:n])
	embed.Join(coef[:n], mag[:n], neg[:n])
	xform.Unorder(ints, coef[:n], dims)
	xform.InverseReversible(ints, dims)
	return bits
}

// encodeInt encodes a block of integer samples. Lossy modes treat the block as
// having exponent width-2, the largest magnitude they can represent.
func encodeInt[I blockfp.Int](w *bitstream.Writer, block []I, dims int, p Params) (int, error) {
	var ints [256]I
	n := 1 << (2 * dims)
	copy(ints[:n], block)
	width := int(blockfp.Width[I]())

	var bits int
	if p.reversible() {
		bits = encodeInts(w, ints[:n], dims, p.MaxBits, 0, true)
	} else {
		limit := I(1) << (width - 2)
		for i, v := range ints[:n] {
			if v >= limit || v <= -limit {
				return 0, fmt.Errorf("%w: sample %d is %d", ErrRange, i, v)
			}
		}
		prec := precision(width-2, p.MaxPrec, p.MinExp, dims)
		bits = encodeInts(w, ints[:n], dims, p.MaxBits, prec, false)
	}
	return pad(w, bits, p), nil
}

// decodeInt decodes a block of integer samples.
func decodeInt[I blockfp.Int](r *bitstream.Reader, block []I, dims int, p Params) int {
	n := 1 << (2 * dims)
	width := int(blockfp.Width[I]())

	var bits int
	if p.reversible() {
		bits = decodeInts(r, block[:n], dims, p.MaxBits, 0, true)
	} else {
		prec := precision(width-2, p.MaxPrec, p.MinExp, dims)
		bits = decodeInts(r, block[:n], dims, p.MaxBits, prec, false)
	}
	return skip(r, bits, p)
}

// pad zero fills the block up to MinBits.
func pad(w *bitstream.Writer, bits int, p Params) int {
	if bits < p.MinBits {
		w.Pad(uint64(p.MinBits - bits))
		return p.MinBits
	}
	return bits
}

// skip moves past the padding pad wrote.
func skip(r *bitstream.Reader, bits int, p Params) int {
	if bits < p.MinBits {
		r.Skip(uint64(p.MinBits - bits))
		return p.MinBits
	}
	return bits
}
