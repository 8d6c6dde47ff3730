package tile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGrid(t *testing.T) {
	tests := []struct {
		name    string
		shape   []int
		blocks  [4]int
		count   int
		samples int
	}{
		{"1d exact", []int{16}, [4]int{4, 1, 1, 1}, 4, 16},
		{"1d partial", []int{5}, [4]int{2, 1, 1, 1}, 2, 5},
		{"2d", []int{7, 9}, [4]int{2, 3, 1, 1}, 6, 63},
		{"3d single", []int{1, 1, 1}, [4]int{1, 1, 1, 1}, 1, 1},
		{"4d", []int{4, 8, 5, 2}, [4]int{1, 2, 2, 1}, 4, 320},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGrid(tt.shape)
			assert.Equal(t, len(tt.shape), g.Dims)
			assert.Equal(t, tt.blocks, g.Blocks)
			assert.Equal(t, tt.count, g.Count())
			assert.Equal(t, tt.samples, g.Samples())
		})
	}
}

func TestGrid_OriginExtent(t *testing.T) {
	g := NewGrid([]int{7, 9})
	assert.Equal(t, [4]int{0, 0, 0, 0}, g.Origin(0))
	assert.Equal(t, [4]int{4, 0, 0, 0}, g.Origin(1))
	assert.Equal(t, [4]int{0, 4, 0, 0}, g.Origin(2))
	assert.Equal(t, [4]int{4, 8, 0, 0}, g.Origin(5))

	assert.Equal(t, [4]int{4, 4, 1, 1}, g.Extent(0))
	assert.Equal(t, [4]int{3, 4, 1, 1}, g.Extent(1))
	assert.Equal(t, [4]int{3, 1, 1, 1}, g.Extent(5))
}

func TestPad(t *testing.T) {
	// 1D block with two valid samples.
	b1 := []int{1, 2, 0, 0}
	Pad(b1, 1, [4]int{2, 1, 1, 1})
	assert.Equal(t, []int{1, 2, 2, 2}, b1)

	// 2D block with 1x2 valid samples.
	b2 := make([]int, 16)
	b2[0] = 5
	b2[4] = 6
	Pad(b2, 2, [4]int{1, 2, 1, 1})
	assert.Equal(t, []int{
		5, 5, 5, 5,
		6, 6, 6, 6,
		6, 6, 6, 6,
		6, 6, 6, 6,
	}, b2)

	// Full blocks are untouched.
	b3 := []int{1, 2, 3, 4}
	Pad(b3, 1, [4]int{4, 1, 1, 1})
	assert.Equal(t, []int{1, 2, 3, 4}, b3)
}

func TestPad_SingleSample3D(t *testing.T) {
	block := make([]float32, 64)
	for i := range block {
		block[i] = -1
	}
	block[0] = 3.5
	Pad(block, 3, [4]int{1, 1, 1, 1})
	for i, v := range block {
		require.Equal(t, float32(3.5), v, "sample %d", i)
	}
}

func TestGatherScatter(t *testing.T) {
	shape := []int{6, 5, 3}
	g := NewGrid(shape)
	data := make([]int64, g.Samples())
	for i := range data {
		data[i] = int64(i)
	}

	out := make([]int64, len(data))
	block := make([]int64, 64)
	for i := 0; i < g.Count(); i++ {
		Gather(block, data, g, i)
		Scatter(out, block, g, i)
	}
	assert.Equal(t, data, out)
}

func TestGather_Replicates(t *testing.T) {
	// 5x2 array: the second block along x holds one valid column.
	data := []int32{
		0, 1, 2, 3, 4,
		5, 6, 7, 8, 9,
	}
	g := NewGrid([]int{5, 2})
	block := make([]int32, 16)
	Gather(block, data, g, 1)
	assert.Equal(t, []int32{
		4, 4, 4, 4,
		9, 9, 9, 9,
		9, 9, 9, 9,
		9, 9, 9, 9,
	}, block)

	Gather(block, data, g, 0)
	assert.Equal(t, []int32{
		0, 1, 2, 3,
		5, 6, 7, 8,
		5, 6, 7, 8,
		5, 6, 7, 8,
	}, block)
}

func TestScatter_LeavesOutsideUntouched(t *testing.T) {
	g := NewGrid([]int{3})
	data := []float64{0, 0, 0}
	Scatter(data, []float64{1, 2, 3, 4}, g, 0)
	assert.Equal(t, []float64{1, 2, 3}, data)
}
