package distance

import (
	"fmt"
	"math"
	"slices"
	"sync"

	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/oran-planner/oran-planner/design"
)

// Network is an in-memory undirected road graph with edge weights in meters.
// Shortest-path trees are computed lazily per source node and cached, so
// queries are cheap once every source has been seen. Safe for concurrent
// queries after construction.
type Network struct {
	g        *simple.WeightedUndirectedGraph
	coords   map[int64]design.Location
	ids      []int64 // sorted, for deterministic nearest-node ties
	geodesic GeodesicFunc

	mu    sync.Mutex
	trees map[int64]path.Shortest
}

// NewNetwork returns an empty network that snaps locations with geodesic
// (Haversine when nil).
func NewNetwork(geodesic GeodesicFunc) *Network {
	if geodesic == nil {
		geodesic = Haversine
	}
	return &Network{
		g:        simple.NewWeightedUndirectedGraph(0, math.Inf(1)),
		coords:   make(map[int64]design.Location),
		geodesic: geodesic,
		trees:    make(map[int64]path.Shortest),
	}
}

// AddNode registers a node. Re-adding an id updates its coordinates.
func (n *Network) AddNode(id int64, loc design.Location) error {
	if !loc.Valid() {
		return fmt.Errorf("road node %d: invalid location %s", id, loc)
	}
	if _, ok := n.coords[id]; !ok {
		n.g.AddNode(simple.Node(id))
		pos, _ := slices.BinarySearch(n.ids, id)
		n.ids = slices.Insert(n.ids, pos, id)
	}
	n.coords[id] = loc
	n.invalidate()
	return nil
}

// AddRoad adds an undirected edge. Self loops are ignored and parallel
// roads keep the shorter length.
func (n *Network) AddRoad(from, to int64, meters float64) error {
	if meters < 0 || math.IsNaN(meters) || math.IsInf(meters, 0) {
		return fmt.Errorf("road %d-%d: invalid length %f", from, to, meters)
	}
	for _, id := range []int64{from, to} {
		if _, ok := n.coords[id]; !ok {
			return fmt.Errorf("road %d-%d: unknown node %d", from, to, id)
		}
	}
	if from == to {
		return nil
	}
	if e := n.g.WeightedEdge(from, to); e != nil && e.Weight() <= meters {
		return nil
	}
	n.g.SetWeightedEdge(n.g.NewWeightedEdge(simple.Node(from), simple.Node(to), meters))
	n.invalidate()
	return nil
}

// Len returns the number of nodes.
func (n *Network) Len() int {
	return len(n.ids)
}

// Coordinates returns the location of node id.
func (n *Network) Coordinates(id int64) (design.Location, bool) {
	loc, ok := n.coords[id]
	return loc, ok
}

// NearestNode returns the node closest to loc. Ties go to the lowest id.
func (n *Network) NearestNode(loc design.Location) (int64, bool) {
	best, arg := math.Inf(1), int64(0)
	found := false
	for _, id := range n.ids {
		if d := n.geodesic(loc, n.coords[id]); d < best {
			best, arg, found = d, id, true
		}
	}
	return arg, found
}

// ShortestPathLength returns the road distance between two nodes.
func (n *Network) ShortestPathLength(from, to int64) (float64, bool) {
	if _, ok := n.coords[from]; !ok {
		return 0, false
	}
	if _, ok := n.coords[to]; !ok {
		return 0, false
	}
	if from == to {
		return 0, true
	}
	w := n.tree(from).WeightTo(to)
	if math.IsInf(w, 1) {
		return 0, false
	}
	return w, true
}

func (n *Network) tree(from int64) path.Shortest {
	n.mu.Lock()
	t, ok := n.trees[from]
	n.mu.Unlock()
	if ok {
		return t
	}
	// Computed outside the lock; concurrent misses on the same source do
	// redundant work but agree on the result.
	t = path.DijkstraFrom(simple.Node(from), n.g)
	n.mu.Lock()
	n.trees[from] = t
	n.mu.Unlock()
	return t
}

func (n *Network) invalidate() {
	n.mu.Lock()
	if len(n.trees) > 0 {
		n.trees = make(map[int64]path.Shortest)
	}
	n.mu.Unlock()
}
