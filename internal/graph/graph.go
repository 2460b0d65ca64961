// Package graph provides a compact undirected graph over dense vertex ids and
// its connected components.
package graph

import (
	"github.com/bits-and-blooms/bitset"
)

// Builder accumulates undirected edges for a graph with a fixed vertex count.
type Builder struct {
	n   int
	src []uint32
	dst []uint32
}

// NewBuilder creates a builder for n vertices. edgeHint preallocates edge storage.
func NewBuilder(n, edgeHint int) *Builder {
	if edgeHint < 0 {
		edgeHint = 0
	}
	return &Builder{
		n:   n,
		src: make([]uint32, 0, edgeHint),
		dst: make([]uint32, 0, edgeHint),
	}
}

// AddEdge records the undirected edge u-v. Self loops are ignored.
// It panics if either vertex is out of range.
func (b *Builder) AddEdge(u, v uint32) {
	if int(u) >= b.n || int(v) >= b.n {
		panic("graph: vertex out of range")
	}
	if u == v {
		return
	}
	b.src = append(b.src, u)
	b.dst = append(b.dst, v)
}

// Edges returns the number of recorded edges.
func (b *Builder) Edges() int {
	return len(b.src)
}

// Build lays the edges out as an adjacency arena (compressed rows).
func (b *Builder) Build() *Graph {
	offsets := make([]int, b.n+1)
	for i := range b.src {
		offsets[b.src[i]+1]++
		offsets[b.dst[i]+1]++
	}
	for v := 1; v <= b.n; v++ {
		offsets[v] += offsets[v-1]
	}

	adj := make([]uint32, offsets[b.n])
	cursor := make([]int, b.n)
	copy(cursor, offsets[:b.n])
	for i := range b.src {
		u, v := b.src[i], b.dst[i]
		adj[cursor[u]] = v
		cursor[u]++
		adj[cursor[v]] = u
		cursor[v]++
	}

	return &Graph{offsets: offsets, adj: adj}
}

// Graph is an immutable undirected graph.
type Graph struct {
	offsets []int
	adj     []uint32
}

// Len returns the number of vertices.
func (g *Graph) Len() int {
	return len(g.offsets) - 1
}

// Neighbors returns the adjacency of v. The slice must not be modified.
func (g *Graph) Neighbors(v uint32) []uint32 {
	return g.adj[g.offsets[v]:g.offsets[v+1]]
}

// Degree returns the number of edges incident to v.
func (g *Graph) Degree(v uint32) int {
	return g.offsets[v+1] - g.offsets[v]
}

// Components labels every vertex with its connected component.
// Components are numbered in ascending order of their smallest vertex.
func (g *Graph) Components() (labels []int, count int) {
	n := g.Len()
	labels = make([]int, n)
	visited := bitset.New(uint(n))
	stack := make([]uint32, 0, 64)

	for start := 0; start < n; start++ {
		if visited.Test(uint(start)) {
			continue
		}
		visited.Set(uint(start))
		stack = append(stack[:0], uint32(start))
		for len(stack) > 0 {
			v := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			labels[v] = count
			for _, w := range g.Neighbors(v) {
				if !visited.Test(uint(w)) {
					visited.Set(uint(w))
					stack = append(stack, w)
				}
			}
		}
		count++
	}

	return labels, count
}
