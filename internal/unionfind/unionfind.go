// Package unionfind implements a disjoint-set forest over dense integer ids.
package unionfind

// UnionFind is a disjoint-set structure with path compression and union by size.
// It is not safe for concurrent use.
type UnionFind struct {
	parent []int32
	size   []int32
	sets   int
}

// New creates n singleton sets {0}, {1}, ..., {n-1}.
func New(n int) *UnionFind {
	u := &UnionFind{
		parent: make([]int32, n),
		size:   make([]int32, n),
		sets:   n,
	}
	for i := range u.parent {
		u.parent[i] = int32(i)
		u.size[i] = 1
	}
	return u
}

// Len returns the number of elements.
func (u *UnionFind) Len() int {
	return len(u.parent)
}

// Sets returns the number of disjoint sets.
func (u *UnionFind) Sets() int {
	return u.sets
}

// Find returns the representative of x's set.
func (u *UnionFind) Find(x int) int {
	root := int32(x)
	for u.parent[root] != root {
		root = u.parent[root]
	}
	// Path compression.
	for cur := int32(x); u.parent[cur] != root; {
		next := u.parent[cur]
		u.parent[cur] = root
		cur = next
	}
	return int(root)
}

// Union merges the sets containing a and b and reports whether they were distinct.
func (u *UnionFind) Union(a, b int) bool {
	ra, rb := u.Find(a), u.Find(b)
	if ra == rb {
		return false
	}
	if u.size[ra] < u.size[rb] {
		ra, rb = rb, ra
	}
	u.parent[rb] = int32(ra)
	u.size[ra] += u.size[rb]
	u.sets--
	return true
}

// Connected reports whether a and b are in the same set.
func (u *UnionFind) Connected(a, b int) bool {
	return u.Find(a) == u.Find(b)
}

// Labels returns a dense label per element. Labels are numbered in order of
// the smallest element of each set, so element 0 always has label 0.
func (u *UnionFind) Labels() []int {
	labels := make([]int, len(u.parent))
	byRoot := make(map[int]int, u.sets)
	for i := range u.parent {
		root := u.Find(i)
		label, ok := byRoot[root]
		if !ok {
			label = len(byRoot)
			byRoot[root] = label
		}
		labels[i] = label
	}
	return labels
}
