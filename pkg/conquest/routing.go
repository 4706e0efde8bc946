package conquest

// DefaultRoutingCutoff is the longest direct link still treated as an edge
// when building the routing table. Longer links must be composed of hops.
const DefaultRoutingCutoff = 7

// Unreachable is the relaxed distance of a pair with no route under the cutoff.
const Unreachable = 1 << 20

// RoutingTable holds pre-computed multi-hop routes between all cell pairs.
// Computed once per match; immutable afterwards.
type RoutingTable struct {
	n      int
	cutoff int
	dist   []int // flat [i*n + j] relaxed distance
	next   []int // flat [i*n + j] first hop, NoCell if none
}

// NewRoutingTable runs the capped all-pairs relaxation over g. Links longer
// than cutoff start out as Unreachable. Only strictly shorter paths replace
// a known one, so equal-length alternatives keep the first path found.
func NewRoutingTable(g *Graph, cutoff int) *RoutingTable {
	if cutoff <= 0 {
		cutoff = DefaultRoutingCutoff
	}
	n := g.Size()
	rt := &RoutingTable{
		n:      n,
		cutoff: cutoff,
		dist:   make([]int, n*n),
		next:   make([]int, n*n),
	}

	for i := range n {
		for j := range n {
			d := g.Distance(i, j)
			if i != j && d > 0 && d <= cutoff {
				rt.dist[i*n+j] = d
				rt.next[i*n+j] = j
			} else {
				rt.dist[i*n+j] = Unreachable
				rt.next[i*n+j] = NoCell
			}
		}
	}

	// The table is symmetric, so relax each unordered pair once (i > j) and
	// mirror the result.
	for k := range n {
		for i := range n {
			if i == k {
				continue
			}
			dik := rt.dist[i*n+k]
			if dik >= Unreachable {
				continue
			}
			for j := 0; j < i; j++ {
				if j == k {
					continue
				}
				via := dik + rt.dist[k*n+j]
				if via < rt.dist[i*n+j] {
					rt.dist[i*n+j] = via
					rt.dist[j*n+i] = via
					rt.next[i*n+j] = rt.next[i*n+k]
					rt.next[j*n+i] = rt.next[j*n+k]
				}
			}
		}
	}
	return rt
}

// Cutoff returns the direct-link cutoff the table was built with.
func (rt *RoutingTable) Cutoff() int { return rt.cutoff }

// NextHop returns the first cell on the route from -> to, or NoCell when no
// route exists under the cutoff. Callers fall back to a direct move.
func (rt *RoutingTable) NextHop(from, to int) int {
	if from == to {
		return NoCell
	}
	return rt.next[from*rt.n+to]
}

// RouteDistance returns the length of the route from -> to, or Unreachable.
func (rt *RoutingTable) RouteDistance(from, to int) int {
	if from == to {
		return 0
	}
	return rt.dist[from*rt.n+to]
}

// Path returns the hops from -> to, excluding from and ending with to.
// It returns nil when no route exists.
func (rt *RoutingTable) Path(from, to int) []int {
	if rt.NextHop(from, to) == NoCell {
		return nil
	}
	var path []int
	cur := from
	for cur != to && len(path) <= rt.n {
		cur = rt.NextHop(cur, to)
		if cur == NoCell {
			return nil
		}
		path = append(path, cur)
	}
	return path
}
