// Package tile maps arrays onto the grid of 4^d-sample blocks.
//
// Arrays are stored row-major with the x axis varying fastest, and so are
// blocks: sample (x, y, z, w) of a block lives at x + 4y + 16z + 64w. Blocks on
// the upper edge of an axis whose extent is not a multiple of 4 are partial.
// Their missing samples are filled by replicating the last valid sample along
// each short axis and are never written back.
package tile

// Side is the number of samples along each block axis.
const Side = 4

// Grid is the block decomposition of an array.
type Grid struct {
	Dims   int
	Shape  [4]int // Samples per axis, 1 beyond Dims
	Blocks [4]int // Blocks per axis, 1 beyond Dims
}

// NewGrid creates the block grid of an array with the given extents.
// Extents must be positive.
func NewGrid(shape []int) Grid {
	g := Grid{Dims: len(shape)}
	for axis := 0; axis < 4; axis++ {
		g.Shape[axis] = 1
		g.Blocks[axis] = 1
		if axis < len(shape) {
			g.Shape[axis] = shape[axis]
			g.Blocks[axis] = ceilDiv(shape[axis], Side)
		}
	}
	return g
}

// Count returns the number of blocks.
func (g Grid) Count() int {
	return g.Blocks[0] * g.Blocks[1] * g.Blocks[2] * g.Blocks[3]
}

// Samples returns the number of samples in the array.
func (g Grid) Samples() int {
	return g.Shape[0] * g.Shape[1] * g.Shape[2] * g.Shape[3]
}

// BlockSize returns the number of samples in one block.
func (g Grid) BlockSize() int {
	return 1 << (2 * g.Dims)
}

// Origin returns the array coordinates of the first sample of block index.
// Blocks are numbered with the x axis varying fastest.
func (g Grid) Origin(index int) [4]int {
	var o [4]int
	for axis := 0; axis < 4; axis++ {
		o[axis] = index % g.Blocks[axis] * Side
		index /= g.Blocks[axis]
	}
	return o
}

// Extent returns the number of valid samples along each axis of block index.
// Axes beyond Dims report 1.
func (g Grid) Extent(index int) [4]int {
	o := g.Origin(index)
	var e [4]int
	for axis := 0; axis < 4; axis++ {
		e[axis] = 1
		if axis < g.Dims {
			e[axis] = min(Side, g.Shape[axis]-o[axis])
		}
	}
	return e
}

// strides returns the array strides along each axis.
func (g Grid) strides() [4]int {
	return [4]int{1, g.Shape[0], g.Shape[0] * g.Shape[1], g.Shape[0] * g.Shape[1] * g.Shape[2]}
}

// Gather copies block index out of data into block, padding partial blocks.
func Gather[T any](block, data []T, g Grid, index int) {
	o := g.Origin(index)
	e := g.Extent(index)
	s := g.strides()
	base := o[0]*s[0] + o[1]*s[1] + o[2]*s[2] + o[3]*s[3]
	for w := 0; w < e[3]; w++ {
		for z := 0; z < e[2]; z++ {
			for y := 0; y < e[1]; y++ {
				src := base + w*s[3] + z*s[2] + y*s[1]
				dst := 16*(4*w+z) + 4*y
				copy(block[dst:dst+e[0]], data[src:src+e[0]])
			}
		}
	}
	Pad(block, g.Dims, e)
}

// Scatter copies the valid samples of block into block index of data.
func Scatter[T any](data, block []T, g Grid, index int) {
	o := g.Origin(index)
	e := g.Extent(index)
	s := g.strides()
	base := o[0]*s[0] + o[1]*s[1] + o[2]*s[2] + o[3]*s[3]
	for w := 0; w < e[3]; w++ {
		for z := 0; z < e[2]; z++ {
			for y := 0; y < e[1]; y++ {
				dst := base + w*s[3] + z*s[2] + y*s[1]
				src := 16*(4*w+z) + 4*y
				copy(data[dst:dst+e[0]], block[src:src+e[0]])
			}
		}
	}
}

// Pad fills the samples of a block beyond extent by replicating the last valid
// sample along each short axis, axis 0 first.
func Pad[T any](block []T, dims int, extent [4]int) {
	size := 1 << (2 * dims)
	for axis := 0; axis < dims; axis++ {
		n := extent[axis]
		if n >= Side {
			continue
		}
		stride := 1 << (2 * axis)
		for i := 0; i < size; i++ {
			if c := i / stride % Side; c >= n {
				block[i] = block[i-(c-n+1)*stride]
			}
		}
	}
}

// ceilDiv returns ceil(a / b) for positive b.
func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
