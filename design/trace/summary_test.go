package trace

import (
	"math"
	"testing"
)

func TestSummarize_EmptyTrace_ZeroValues(t *testing.T) {
	// GIVEN an empty trace
	pt := NewPlanTrace(TraceLevelEvents, "run-1")

	// WHEN summarized
	summary := Summarize(pt)

	// THEN all counts are zero
	if summary.Repairs != 0 || summary.DisconnectedPairs != 0 {
		t.Error("expected 0 repairs and disconnected pairs")
	}
	if summary.OpenDUs != 0 || summary.OpenCUs != 0 {
		t.Error("expected no open facilities")
	}
	if summary.SolveStatus != "" {
		t.Errorf("expected empty status, got %q", summary.SolveStatus)
	}
}

func TestSummarize_NilTrace_ZeroValues(t *testing.T) {
	if s := Summarize(nil); s.Repairs != 0 {
		t.Errorf("expected 0 repairs, got %d", s.Repairs)
	}
}

func TestSummarize_PopulatedTrace_CorrectCounts(t *testing.T) {
	// GIVEN repairs, disconnected pairs and a solve
	pt := NewPlanTrace(TraceLevelEvents, "run-1")
	pt.RecordRepair(RepairRecord{RU: 0, Resolved: true})
	pt.RecordRepair(RepairRecord{RU: 4, Resolved: false})
	pt.RecordDisconnected(DisconnectedRecord{Tier: "fronthaul", Pairs: 3})
	pt.RecordDisconnected(DisconnectedRecord{Tier: "midhaul", Pairs: 2})
	pt.RecordSolve(SolveRecord{Status: "Optimal", Nodes: 17})

	// WHEN summarized
	summary := Summarize(pt)

	// THEN counts match
	if summary.Repairs != 2 {
		t.Errorf("expected 2 repairs, got %d", summary.Repairs)
	}
	if summary.UnresolvedRepairs != 1 {
		t.Errorf("expected 1 unresolved repair, got %d", summary.UnresolvedRepairs)
	}
	if summary.DisconnectedPairs != 5 {
		t.Errorf("expected 5 disconnected pairs, got %d", summary.DisconnectedPairs)
	}
	if summary.SolveStatus != "Optimal" || summary.Nodes != 17 {
		t.Errorf("expected Optimal after 17 nodes, got %s after %d", summary.SolveStatus, summary.Nodes)
	}
}

func TestSummarize_Utilization_CorrectMeanAndMax(t *testing.T) {
	// GIVEN DUs at 4/8 and 8/8 and one CU at 2/20
	pt := NewPlanTrace(TraceLevelEvents, "run-1")
	pt.RecordFacility(FacilityRecord{Tier: "DU", Index: 0, Load: 4, Capacity: 8})
	pt.RecordFacility(FacilityRecord{Tier: "DU", Index: 3, Load: 8, Capacity: 8})
	pt.RecordFacility(FacilityRecord{Tier: "CU", Index: 1, Load: 2, Capacity: 20})

	// WHEN summarized
	summary := Summarize(pt)

	// THEN utilization statistics are correct
	if summary.OpenDUs != 2 || summary.OpenCUs != 1 {
		t.Fatalf("expected 2 DUs and 1 CU, got %d and %d", summary.OpenDUs, summary.OpenCUs)
	}
	if math.Abs(summary.MeanDUUtilization-0.75) > 1e-9 {
		t.Errorf("expected mean DU utilization 0.75, got %f", summary.MeanDUUtilization)
	}
	if math.Abs(summary.MaxDUUtilization-1.0) > 1e-9 {
		t.Errorf("expected max DU utilization 1.0, got %f", summary.MaxDUUtilization)
	}
	if math.Abs(summary.MeanCUUtilization-0.1) > 1e-9 {
		t.Errorf("expected mean CU utilization 0.1, got %f", summary.MeanCUUtilization)
	}
}
