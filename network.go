package entitynet

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/entitynet/category"
	"github.com/hupe1980/entitynet/internal/unionfind"
	"github.com/hupe1980/entitynet/nodeindex"
)

// NetworkRow is one node related in at least one category.
type NetworkRow[K comparable] struct {
	Node      nodeindex.Node `json:"node"`
	NetworkID int            `json:"network_id"`
	// EntityID is set when names were compared.
	EntityID *int `json:"entity_id,omitempty"`
	// CategoryIDs holds the category id of the node per compared category.
	CategoryIDs map[category.Category]int `json:"category_ids"`

	nodeindex.Ref[K]
}

// Network partitions the related nodes into connected networks.
type Network[K comparable] struct {
	Categories  []category.Category `json:"categories"`
	Rows        []NetworkRow[K]     `json:"rows"`
	HasEntities bool                `json:"has_entities"`
}

// NetworkSummary describes one network.
type NetworkSummary struct {
	NetworkID int `json:"network_id"`
	Nodes     int `json:"nodes"`
	NodesA    int `json:"nodes_a"`
	NodesB    int `json:"nodes_b"`
	// CategoryIDs counts the distinct category ids per category.
	CategoryIDs map[category.Category]int `json:"category_ids"`
	Entities    int                       `json:"entities"`
}

// Network unions the category relations into networks: two nodes belong to
// the same network when a chain of shared category ids connects them. When
// the name category is included, each network is further split into
// entities by name id.
func (s *Session[K]) Network(ctx context.Context, relations map[category.Category]*CategoryRelation[K]) (*Network[K], error) {
	start := time.Now()

	net, err := s.network(ctx, relations)

	nodes, networks, entities := 0, 0, false
	if net != nil {
		nodes, networks, entities = net.Len(), net.Count(), net.HasEntities
	}
	s.opts.logger.LogNetwork(ctx, nodes, networks, entities, err)
	s.opts.metricsCollector.RecordNetwork(nodes, networks, time.Since(start), err)

	if err != nil {
		return nil, err
	}
	return net, nil
}

func (s *Session[K]) network(ctx context.Context, relations map[category.Category]*CategoryRelation[K]) (*Network[K], error) {
	cats := make([]category.Category, 0, len(relations))
	for c, rel := range relations {
		if rel == nil {
			return nil, fmt.Errorf("%w: no relation for %q", ErrInvalidCategory, c)
		}
		if rel.Category != c {
			return nil, fmt.Errorf("%w: relation for %q stored under %q", ErrInvalidCategory, rel.Category, c)
		}
		cats = append(cats, c)
	}
	slices.Sort(cats)

	all := roaring.New()
	for _, c := range cats {
		for _, m := range relations[c].Rows {
			if int(m.Node) >= s.nodes.Len() {
				return nil, fmt.Errorf("%w: relation %q references unknown node %d", ErrForeignRelation, c, m.Node)
			}
			all.Add(uint32(m.Node))
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	net := &Network[K]{Categories: cats}
	if all.IsEmpty() {
		return net, nil
	}

	nodes := all.ToArray()
	local := make(map[nodeindex.Node]int, len(nodes))
	for i, n := range nodes {
		local[nodeindex.Node(n)] = i
	}

	uf := unionfind.New(len(nodes))
	ids := make([]map[category.Category]int, len(nodes))
	for _, c := range cats {
		first := make(map[int]int)
		for _, m := range relations[c].Rows {
			li := local[m.Node]
			if ids[li] == nil {
				ids[li] = make(map[category.Category]int, len(cats))
			}
			ids[li][c] = m.CategoryID
			link(uf, first, m.CategoryID, li)
		}
	}

	labels := uf.Labels()

	net.Rows = make([]NetworkRow[K], len(nodes))
	for i, n := range nodes {
		node := nodeindex.Node(n)
		net.Rows[i] = NetworkRow[K]{
			Node:        node,
			NetworkID:   labels[i],
			CategoryIDs: ids[i],
			Ref:         s.nodes.Translate(node),
		}
	}

	if _, ok := relations[category.Name]; ok {
		assignEntities(net.Rows)
		net.HasEntities = true
	}

	return net, nil
}

// assignEntities numbers (network, name id) pairs in ascending order. Rows
// without a name id get fresh ids after those, in row order.
func assignEntities[K comparable](rows []NetworkRow[K]) {
	type key struct{ network, name int }

	var keys []key
	seen := make(map[key]struct{})
	for _, r := range rows {
		name, ok := r.CategoryIDs[category.Name]
		if !ok {
			continue
		}
		k := key{r.NetworkID, name}
		if _, dup := seen[k]; !dup {
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	slices.SortFunc(keys, func(a, b key) int {
		if c := cmp.Compare(a.network, b.network); c != 0 {
			return c
		}
		return cmp.Compare(a.name, b.name)
	})

	entityOf := make(map[key]int, len(keys))
	for i, k := range keys {
		entityOf[k] = i
	}

	next := len(keys)
	for i := range rows {
		var id int
		if name, ok := rows[i].CategoryIDs[category.Name]; ok {
			id = entityOf[key{rows[i].NetworkID, name}]
		} else {
			id = next
			next++
		}
		rows[i].EntityID = &id
	}
}

// Len returns the number of related nodes.
func (n *Network[K]) Len() int {
	return len(n.Rows)
}

// Count returns the number of networks.
func (n *Network[K]) Count() int {
	count := 0
	for _, r := range n.Rows {
		count = max(count, r.NetworkID+1)
	}
	return count
}

// NetworkIDs maps every related node to its network.
func (n *Network[K]) NetworkIDs() map[nodeindex.Node]int {
	ids := make(map[nodeindex.Node]int, len(n.Rows))
	for _, r := range n.Rows {
		ids[r.Node] = r.NetworkID
	}
	return ids
}

// EntityIDs maps every related node to its entity, or returns nil when names
// were not compared.
func (n *Network[K]) EntityIDs() map[nodeindex.Node]int {
	if !n.HasEntities {
		return nil
	}
	ids := make(map[nodeindex.Node]int, len(n.Rows))
	for _, r := range n.Rows {
		if r.EntityID != nil {
			ids[r.Node] = *r.EntityID
		}
	}
	return ids
}

// Members returns the node set of every network.
func (n *Network[K]) Members() map[int]*roaring.Bitmap {
	members := make(map[int]*roaring.Bitmap)
	for _, r := range n.Rows {
		bm, ok := members[r.NetworkID]
		if !ok {
			bm = roaring.New()
			members[r.NetworkID] = bm
		}
		bm.Add(uint32(r.Node))
	}
	return members
}

// Summaries describes every network, largest first.
func (n *Network[K]) Summaries() []NetworkSummary {
	byID := make(map[int]*NetworkSummary)
	distinct := make(map[int]map[category.Category]map[int]struct{})
	entities := make(map[int]map[int]struct{})

	for _, r := range n.Rows {
		sum, ok := byID[r.NetworkID]
		if !ok {
			sum = &NetworkSummary{NetworkID: r.NetworkID, CategoryIDs: make(map[category.Category]int)}
			byID[r.NetworkID] = sum
			distinct[r.NetworkID] = make(map[category.Category]map[int]struct{})
			entities[r.NetworkID] = make(map[int]struct{})
		}

		sum.Nodes++
		if r.SourceB != nil {
			sum.NodesB++
		} else {
			sum.NodesA++
		}

		for c, id := range r.CategoryIDs {
			set, ok := distinct[r.NetworkID][c]
			if !ok {
				set = make(map[int]struct{})
				distinct[r.NetworkID][c] = set
			}
			set[id] = struct{}{}
		}
		if r.EntityID != nil {
			entities[r.NetworkID][*r.EntityID] = struct{}{}
		}
	}

	out := make([]NetworkSummary, 0, len(byID))
	for id, sum := range byID {
		for c, set := range distinct[id] {
			sum.CategoryIDs[c] = len(set)
		}
		sum.Entities = len(entities[id])
		out = append(out, *sum)
	}

	slices.SortFunc(out, func(a, b NetworkSummary) int {
		if c := cmp.Compare(b.Nodes, a.Nodes); c != 0 {
			return c
		}
		return cmp.Compare(a.NetworkID, b.NetworkID)
	})
	return out
}
