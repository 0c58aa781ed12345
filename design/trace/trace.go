package trace

// TraceLevel controls the verbosity of plan tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing.
	TraceLevelNone TraceLevel = "none"
	// TraceLevelEvents captures repairs, disconnected pairs, the solve and facility loads.
	TraceLevelEvents TraceLevel = "events"
)

var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:   true,
	TraceLevelEvents: true,
	"":               true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// PlanTrace collects the records of a single planning run.
type PlanTrace struct {
	Level        TraceLevel
	RunID        string
	Repairs      []RepairRecord
	Disconnected []DisconnectedRecord
	Solve        *SolveRecord
	Facilities   []FacilityRecord
}

// NewPlanTrace creates a PlanTrace ready for recording.
func NewPlanTrace(level TraceLevel, runID string) *PlanTrace {
	return &PlanTrace{
		Level:        level,
		RunID:        runID,
		Repairs:      make([]RepairRecord, 0),
		Disconnected: make([]DisconnectedRecord, 0),
		Facilities:   make([]FacilityRecord, 0),
	}
}

// Enabled reports whether records are kept. Safe on a nil trace.
func (pt *PlanTrace) Enabled() bool {
	return pt != nil && pt.Level == TraceLevelEvents
}

// RecordRepair appends a repair record.
func (pt *PlanTrace) RecordRepair(record RepairRecord) {
	if !pt.Enabled() {
		return
	}
	pt.Repairs = append(pt.Repairs, record)
}

// RecordDisconnected appends a disconnected-pairs record; zero counts are skipped.
func (pt *PlanTrace) RecordDisconnected(record DisconnectedRecord) {
	if !pt.Enabled() || record.Pairs == 0 {
		return
	}
	pt.Disconnected = append(pt.Disconnected, record)
}

// RecordSolve stores the solver outcome, replacing any earlier one.
func (pt *PlanTrace) RecordSolve(record SolveRecord) {
	if !pt.Enabled() {
		return
	}
	pt.Solve = &record
}

// RecordFacility appends a facility load record.
func (pt *PlanTrace) RecordFacility(record FacilityRecord) {
	if !pt.Enabled() {
		return
	}
	pt.Facilities = append(pt.Facilities, record)
}
