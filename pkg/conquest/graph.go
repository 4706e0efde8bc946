// Package conquest is the state-forecasting and order-resolution engine for a
// two-player cell conquest match. It keeps an arena of cells indexed by id,
// a capped all-pairs routing table, per-cell forecast windows of incoming
// units, bomb impact predictions, a threat classifier, and the per-cell
// request rings that are resolved into orders each round.
package conquest

import (
	"fmt"
	"sort"
)

// NoCell marks the absence of a cell (unknown bomb target, no next hop).
const NoCell = -1

// Link is an undirected connection between two cells.
type Link struct {
	A, B     int
	Distance int
}

// Neighbor is another cell and its distance from the owning cell.
type Neighbor struct {
	ID       int
	Distance int
}

// Graph holds the static cell graph: the symmetric distance matrix and each
// cell's neighbors ordered nearest first. Immutable after NewGraph.
type Graph struct {
	n         int
	dist      []int // flat [a*n + b]; 0 = not linked
	neighbors [][]Neighbor
}

// NewGraph builds the graph for n cells from the given links.
func NewGraph(n int, links []Link) (*Graph, error) {
	if n <= 0 {
		return nil, fmt.Errorf("graph: cell count must be positive, got %d", n)
	}
	g := &Graph{
		n:         n,
		dist:      make([]int, n*n),
		neighbors: make([][]Neighbor, n),
	}
	for _, l := range links {
		if l.A < 0 || l.A >= n || l.B < 0 || l.B >= n {
			return nil, fmt.Errorf("graph: link %d-%d out of range [0,%d)", l.A, l.B, n)
		}
		if l.A == l.B {
			return nil, fmt.Errorf("graph: self link on cell %d", l.A)
		}
		if l.Distance <= 0 {
			return nil, fmt.Errorf("graph: link %d-%d has non-positive distance %d", l.A, l.B, l.Distance)
		}
		g.dist[l.A*n+l.B] = l.Distance
		g.dist[l.B*n+l.A] = l.Distance
	}

	for a := range n {
		nbs := make([]Neighbor, 0, n-1)
		for b := range n {
			if d := g.dist[a*n+b]; d > 0 {
				nbs = append(nbs, Neighbor{ID: b, Distance: d})
			}
		}
		sort.SliceStable(nbs, func(i, j int) bool { return nbs[i].Distance < nbs[j].Distance })
		g.neighbors[a] = nbs
	}
	return g, nil
}

// Size returns the number of cells.
func (g *Graph) Size() int { return g.n }

// Distance returns the direct link distance between a and b, or 0 when the
// cells are not linked (or a == b).
func (g *Graph) Distance(a, b int) int {
	return g.dist[a*g.n+b]
}

// Linked reports whether a and b share a direct link.
func (g *Graph) Linked(a, b int) bool {
	return a != b && g.dist[a*g.n+b] > 0
}

// Neighbors returns the linked cells of id, nearest first. Callers must not
// mutate the returned slice.
func (g *Graph) Neighbors(id int) []Neighbor {
	return g.neighbors[id]
}

// Closest returns the nearest neighbor of id satisfying pred.
func (g *Graph) Closest(id int, pred func(Neighbor) bool) (Neighbor, bool) {
	for _, nb := range g.neighbors[id] {
		if pred(nb) {
			return nb, true
		}
	}
	return Neighbor{ID: NoCell}, false
}
