// Package embed implements the embedded bit-plane coder.
//
// Coefficients arrive in sequency order as sign and magnitude. Each bit plane,
// from the most significant down, is coded in one preorder pass over a fixed
// fanout-4 group hierarchy:
//
//   - A group or coefficient not yet significant costs one significance bit. An
//     insignificant group is skipped along with its whole subtree.
//   - A group that just became significant sends the position of its first
//     significant child as a truncated unary code. Earlier children are
//     insignificant on this plane, and the last child is implied when the first
//     three are not.
//   - A coefficient that just became significant sends its sign bit. Later
//     planes send one refinement bit per significant coefficient.
//
// Coding stops at the bit budget. Encoder and decoder count bits identically,
// so the decoder always stops on the same bit the encoder did.
package embed

import (
	"github.com/mrjoshuak/go-zfp/bitstream"
)

// Int is the set of coefficient storage types.
type Int interface {
	~int32 | ~int64
}

// Node states within a pass.
const (
	insignificant = iota
	fresh         // significant from this plane, code not yet sent
	significant
)

// maxRun is the largest value of the first-significant-child code.
const maxRun = 3

// MaxBits returns the most bits Encode can produce for width-bit coefficients
// over a block of dims dimensions: one bit per node per plane plus one sign bit
// per coefficient.
func MaxBits(width, dims int) int {
	return width*Nodes(dims) + 1<<(2*dims)
}

// Split separates coefficients into magnitudes and signs.
func Split[I Int](mag []uint64, neg []bool, coef []I) {
	for i, v := range coef {
		u := uint64(int64(v))
		if v < 0 {
			u = -u
		}
		mag[i] = u
		neg[i] = v < 0
	}
}

// Join recombines magnitudes and signs, wrapping modulo the width of I.
func Join[I Int](coef []I, mag []uint64, neg []bool) {
	for i, u := range mag {
		v := I(u)
		if neg[i] {
			v = -v
		}
		coef[i] = v
	}
}

// Encode codes bit planes top-1 down to bottom of the magnitudes mag and signs
// neg, spending at most maxbits bits. It returns the number of bits written.
func Encode(w *bitstream.Writer, maxbits, top, bottom, dims int, mag []uint64, neg []bool) int {
	tree := trees[dims]

	// or[i] holds the union of magnitude bits below node i.
	var or [MaxNodes]uint64
	for i := len(tree) - 1; i >= 0; i-- {
		n := tree[i]
		if n.leaf() {
			or[i] = mag[n.first]
			continue
		}
		span := n.span()
		for j := 0; j < 4; j++ {
			or[i] |= or[i+1+j*span]
		}
	}

	var state [MaxNodes]uint8
	bits := maxbits
	for k := top - 1; k >= bottom && bits > 0; k-- {
		for i := 0; i < len(tree) && bits > 0; {
			n := tree[i]
			switch state[i] {
			case significant:
				if n.leaf() {
					w.WriteBit(mag[n.first] >> uint(k))
					bits--
				}
				i++
			case insignificant:
				bits--
				if w.WriteBit(boolBit(or[i]>>uint(k) != 0)) == 0 {
					i = int(n.next)
					continue
				}
				// Revisit as fresh.
				state[i] = fresh
			case fresh:
				state[i] = significant
				if n.leaf() {
					w.WriteBit(boolBit(neg[n.first]))
					bits--
					i++
					continue
				}
				span := n.span()
				run := 0
				for or[i+1+run*span]>>uint(k) == 0 {
					run++
				}
				limit := min(maxRun, bits)
				w.WriteUnary(uint(run), uint(limit))
				if run < limit {
					bits -= run + 1
				} else {
					bits -= limit
					if limit < maxRun {
						// Budget spent inside the code.
						break
					}
				}
				i += 1 + run*span
				state[i] = fresh
			}
		}
	}
	return maxbits - bits
}

// Decode mirrors Encode, reconstructing mag and neg from at most maxbits bits
// of r. Coefficients whose sign was cut off by the budget decode as zero. It
// returns the number of bits read.
func Decode(r *bitstream.Reader, maxbits, top, bottom, dims int, mag []uint64, neg []bool) int {
	tree := trees[dims]
	size := 1 << (2 * dims)
	for i := 0; i < size; i++ {
		mag[i] = 0
		neg[i] = false
	}

	var state [MaxNodes]uint8
	bits := maxbits
	for k := top - 1; k >= bottom && bits > 0; k-- {
		for i := 0; i < len(tree) && bits > 0; {
			n := tree[i]
			switch state[i] {
			case significant:
				if n.leaf() {
					mag[n.first] |= r.ReadBit() << uint(k)
					bits--
				}
				i++
			case insignificant:
				bits--
				if r.ReadBit() == 0 {
					i = int(n.next)
					continue
				}
				state[i] = fresh
			case fresh:
				state[i] = significant
				if n.leaf() {
					neg[n.first] = r.ReadBit() == 1
					mag[n.first] = 1 << uint(k)
					bits--
					i++
					continue
				}
				span := n.span()
				limit := min(maxRun, bits)
				run := int(r.ReadUnary(uint(limit)))
				if run < limit {
					bits -= run + 1
				} else {
					bits -= limit
					if limit < maxRun {
						break
					}
				}
				i += 1 + run*span
				state[i] = fresh
			}
		}
	}
	return maxbits - bits
}

func boolBit(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
