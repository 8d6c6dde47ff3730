package xform

import "sort"

// perms holds the sequency permutation for each dimensionality.
var perms [MaxDims + 1][]uint8

func init() {
	for d := 1; d <= MaxDims; d++ {
		perms[d] = sequency(d)
	}
}

// sequency orders the coefficients of a block from low to high frequency:
// by sum of coordinates, then by sum of squared coordinates, then by index.
func sequency(dims int) []uint8 {
	n := Size(dims)
	sum := make([]int, n)
	sq := make([]int, n)
	order := make([]int, n)
	for i := 0; i < n; i++ {
		order[i] = i
		for axis := 0; axis < dims; axis++ {
			c := (i >> (2 * axis)) & 3
			sum[i] += c
			sq[i] += c * c
		}
	}
	sort.SliceStable(order, func(a, b int) bool {
		i, j := order[a], order[b]
		if sum[i] != sum[j] {
			return sum[i] < sum[j]
		}
		return sq[i] < sq[j]
	})
	perm := make([]uint8, n)
	for k, i := range order {
		perm[k] = uint8(i)
	}
	return perm
}

// Perm returns the sequency permutation for dims: coefficient k of the ordered
// sequence is sample Perm(dims)[k] of the block. The result must not be modified.
func Perm(dims int) []uint8 {
	return perms[dims]
}

// Order gathers block coefficients into sequency order.
func Order[I Int](dst, src []I, dims int) {
	for k, i := range perms[dims] {
		dst[k] = src[i]
	}
}

// Unorder scatters sequency-ordered coefficients back into block order.
func Unorder[I Int](dst, src []I, dims int) {
	for k, i := range perms[dims] {
		dst[i] = src[k]
	}
}
