package embed

// MaxNodes is the size of the largest group hierarchy (4 dimensions).
const MaxNodes = (4*256 - 1) / 3

// node describes one group of consecutive sequency-ordered coefficients.
// Groups of more than one coefficient split into four equal children that
// immediately follow the node in preorder.
type node struct {
	first uint16 // Index of the first coefficient
	count uint16 // Number of coefficients (a power of 4)
	next  uint16 // Index of the node following this subtree
}

func (n node) leaf() bool {
	return n.count == 1
}

// span returns the number of nodes in each child subtree.
func (n node) span() int {
	return int(n.count-1) / 3
}

// trees holds the preorder group hierarchy for each dimensionality.
var trees [5][]node

func init() {
	for d := 1; d <= 4; d++ {
		trees[d] = hierarchy(1 << (2 * d))
	}
}

// subtree returns the number of nodes in the hierarchy over count coefficients.
func subtree(count int) int {
	return (4*count - 1) / 3
}

// hierarchy builds the preorder arena over n coefficients. Children always
// follow their parent, so a single forward sweep fills every node.
func hierarchy(n int) []node {
	tree := make([]node, subtree(n))
	tree[0] = node{first: 0, count: uint16(n), next: uint16(len(tree))}
	for i := range tree {
		p := tree[i]
		if p.leaf() {
			continue
		}
		span := p.span()
		c := p.count / 4
		for j := 0; j < 4; j++ {
			k := i + 1 + j*span
			tree[k] = node{
				first: p.first + uint16(j)*c,
				count: c,
				next:  uint16(k + span),
			}
		}
	}
	return tree
}

// Nodes returns the number of groups, leaves included, for dims.
func Nodes(dims int) int {
	return len(trees[dims])
}
