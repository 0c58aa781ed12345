package trace

import (
	"testing"
)

func TestPlanTrace_RecordRepair_AppendsRecord(t *testing.T) {
	// GIVEN a trace configured for events
	pt := NewPlanTrace(TraceLevelEvents, "run-1")

	// WHEN a repair record is recorded
	pt.RecordRepair(RepairRecord{RU: 3, NearestBefore: 5000, NearestAfter: 800, Resolved: true})

	// THEN the trace contains it
	if len(pt.Repairs) != 1 {
		t.Fatalf("expected 1 repair, got %d", len(pt.Repairs))
	}
	if pt.Repairs[0].RU != 3 {
		t.Errorf("expected RU 3, got %d", pt.Repairs[0].RU)
	}
}

func TestPlanTrace_LevelNone_RecordsNothing(t *testing.T) {
	// GIVEN a disabled trace
	pt := NewPlanTrace(TraceLevelNone, "run-1")

	// WHEN every kind of record is offered
	pt.RecordRepair(RepairRecord{RU: 1})
	pt.RecordDisconnected(DisconnectedRecord{Tier: "fronthaul", Pairs: 2})
	pt.RecordSolve(SolveRecord{Status: "Optimal"})
	pt.RecordFacility(FacilityRecord{Tier: "DU", Load: 1, Capacity: 8})

	// THEN nothing is kept
	if len(pt.Repairs) != 0 || len(pt.Disconnected) != 0 || len(pt.Facilities) != 0 || pt.Solve != nil {
		t.Error("expected an empty trace at level none")
	}
}

func TestPlanTrace_NilTrace_SafeToRecord(t *testing.T) {
	var pt *PlanTrace
	pt.RecordRepair(RepairRecord{RU: 1})
	pt.RecordSolve(SolveRecord{})
	if pt.Enabled() {
		t.Error("nil trace must report disabled")
	}
}

func TestPlanTrace_RecordDisconnected_SkipsZero(t *testing.T) {
	pt := NewPlanTrace(TraceLevelEvents, "run-1")
	pt.RecordDisconnected(DisconnectedRecord{Tier: "midhaul", Pairs: 0})
	if len(pt.Disconnected) != 0 {
		t.Errorf("expected zero-count record to be skipped, got %d", len(pt.Disconnected))
	}
}

func TestIsValidTraceLevel(t *testing.T) {
	for _, level := range []string{"", "none", "events"} {
		if !IsValidTraceLevel(level) {
			t.Errorf("expected %q to be valid", level)
		}
	}
	if IsValidTraceLevel("decisions") {
		t.Error("expected decisions to be invalid")
	}
}
