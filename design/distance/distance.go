// Package distance builds the RU×DU and DU×CU distance matrices consumed by
// the network design model.
//
// Two measurement modes are supported. Straight-line mode multiplies the
// haversine distance by a detour factor and repositions radio units that
// have no DU within the fronthaul ceiling (see Repair). Road-graph mode snaps
// each location to its nearest road node and uses shortest-path lengths;
// pairs without a path get design.Sentinel and are never linked.
package distance

import (
	"context"
	"fmt"

	"github.com/paulmach/orb/geo"

	"github.com/oran-planner/oran-planner/design"
)

// Mode selects how pair distances are measured.
type Mode string

const (
	ModeStraightLine Mode = "straight-line"
	ModeRoadGraph    Mode = "road-graph"
)

// ValidModes is the set of recognized modes ("" means straight-line).
var ValidModes = map[Mode]bool{"": true, ModeStraightLine: true, ModeRoadGraph: true}

// DefaultDetourFactor inflates straight-line distances to approximate cable routes.
const DefaultDetourFactor = 1.3

// DefaultAnchor is the STI/UFBA hub in Salvador, used as repair target when a
// scenario names none.
var DefaultAnchor = design.Location{Lat: -13.0025, Lon: -38.5085}

// GeodesicFunc returns the surface distance between two locations in meters.
type GeodesicFunc func(a, b design.Location) float64

// Haversine is the default GeodesicFunc.
func Haversine(a, b design.Location) float64 {
	return geo.DistanceHaversine(a.Point(), b.Point())
}

// RoadGraph is the road-network provider used in road-graph mode.
type RoadGraph interface {
	// NearestNode returns the graph node closest to loc, or false for an empty graph.
	NearestNode(loc design.Location) (int64, bool)
	// ShortestPathLength returns the path length in meters, or false when no path exists.
	ShortestPathLength(from, to int64) (float64, bool)
}

// Measurement is one raw pair distance written to a Cache.
type Measurement struct {
	Origin design.Location
	Dest   design.Location
	Meters float64
}

// Cache stores raw pair measurements (before any detour factor) keyed by
// namespace and coordinates. Put writes a batch at once; the builder calls it
// once per matrix row. Implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, namespace string, a, b design.Location) (float64, bool, error)
	Put(ctx context.Context, namespace string, ms []Measurement) error
}

// Options configures a Builder.
type Options struct {
	Mode         Mode
	DetourFactor float64          // straight-line only; 0 means DefaultDetourFactor
	Anchor       *design.Location // straight-line repair target
	Geodesic     GeodesicFunc     // nil means Haversine
	Graph        RoadGraph        // required in road-graph mode
	Cache        Cache            // optional
	Namespace    string           // cache key space
	Workers      int              // 0 means GOMAXPROCS
}

// EffectiveMode returns the mode with the straight-line default applied.
func (o Options) EffectiveMode() Mode {
	if o.Mode == "" {
		return ModeStraightLine
	}
	return o.Mode
}

// Validate checks option consistency.
func (o Options) Validate() error {
	if !ValidModes[o.Mode] {
		return fmt.Errorf("unknown distance mode %q; valid: straight-line, road-graph", o.Mode)
	}
	if o.DetourFactor != 0 && o.DetourFactor < 1 {
		return fmt.Errorf("detour_factor must be >= 1, got %f", o.DetourFactor)
	}
	if o.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", o.Workers)
	}
	switch o.EffectiveMode() {
	case ModeStraightLine:
		if o.Anchor == nil {
			return fmt.Errorf("straight-line mode requires an anchor location")
		}
		if !o.Anchor.Valid() {
			return fmt.Errorf("invalid anchor %s", o.Anchor)
		}
	case ModeRoadGraph:
		if o.Graph == nil {
			return fmt.Errorf("road-graph mode requires a road graph")
		}
	}
	return nil
}

// Repair records one radio unit moved to the anchor because no DU was within
// the fronthaul ceiling of its original location.
type Repair struct {
	RU            int
	From          design.Location
	To            design.Location
	NearestBefore float64 // closest DU distance at the original location
	NearestAfter  float64 // closest DU distance at the anchor
	Resolved      bool    // NearestAfter is within the ceiling
}

// Matrices is the output of Builder.Build.
type Matrices struct {
	RUDU *design.DistanceMatrix
	DUCU *design.DistanceMatrix

	// RadioUnits is the RU list actually measured: a copy of the input with
	// repaired units moved to the anchor.
	RadioUnits []design.RadioUnit
	Repairs    []Repair

	DisconnectedFH int // RU×DU pairs without a road path
	DisconnectedMH int // DU×CU pairs without a road path

	Pairs       int // measurements taken, including repaired rows
	CacheHits   int
	CacheMisses int
}

// Instance returns inst with the measured (possibly repaired) radio units.
func (m *Matrices) Instance(inst design.Instance) design.Instance {
	return inst.WithRadioUnits(m.RadioUnits)
}

// Unresolved returns the RUs whose repair still left them out of range.
func (m *Matrices) Unresolved() []int {
	var out []int
	for _, r := range m.Repairs {
		if !r.Resolved {
			out = append(out, r.RU)
		}
	}
	return out
}
