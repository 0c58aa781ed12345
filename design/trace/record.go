// Package trace records what happened during one planning run: radio units
// repositioned by the repair policy, road pairs without a path, the solver
// outcome and the load placed on every opened facility.
// This package has no dependencies on design/ or its sub-packages; it stores pure data types.
package trace

// RepairRecord captures one radio unit moved to the anchor.
type RepairRecord struct {
	RU            int
	FromLat       float64
	FromLon       float64
	ToLat         float64
	ToLon         float64
	NearestBefore float64 // meters to the closest DU before the move
	NearestAfter  float64 // meters to the closest DU after the move
	Resolved      bool
}

// DisconnectedRecord counts origin/destination pairs of one tier without a road path.
type DisconnectedRecord struct {
	Tier  string // "fronthaul" or "midhaul"
	Pairs int
}

// SolveRecord captures the solver outcome.
type SolveRecord struct {
	Status       string
	Objective    float64
	BestBound    float64
	Nodes        int
	LPSolves     int
	ElapsedMS    int64
	HasIncumbent bool
}

// FacilityRecord captures the load of one opened DU or CU.
type FacilityRecord struct {
	Tier     string // "DU" or "CU"
	Index    int
	Load     int // RUs served by a DU, DUs uplinked to a CU
	Capacity int
}
