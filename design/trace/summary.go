package trace

// TraceSummary aggregates statistics from a PlanTrace.
type TraceSummary struct {
	Repairs           int
	UnresolvedRepairs int
	DisconnectedPairs int
	SolveStatus       string
	Nodes             int
	OpenDUs           int
	OpenCUs           int
	MeanDUUtilization float64 // load / capacity, averaged over open DUs
	MaxDUUtilization  float64
	MeanCUUtilization float64
	MaxCUUtilization  float64
}

// Summarize computes aggregate statistics from a PlanTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(pt *PlanTrace) *TraceSummary {
	summary := &TraceSummary{}
	if pt == nil {
		return summary
	}

	summary.Repairs = len(pt.Repairs)
	for _, r := range pt.Repairs {
		if !r.Resolved {
			summary.UnresolvedRepairs++
		}
	}
	for _, d := range pt.Disconnected {
		summary.DisconnectedPairs += d.Pairs
	}
	if pt.Solve != nil {
		summary.SolveStatus = pt.Solve.Status
		summary.Nodes = pt.Solve.Nodes
	}

	var duTotal, cuTotal float64
	for _, f := range pt.Facilities {
		util := 0.0
		if f.Capacity > 0 {
			util = float64(f.Load) / float64(f.Capacity)
		}
		switch f.Tier {
		case "DU":
			summary.OpenDUs++
			duTotal += util
			if util > summary.MaxDUUtilization {
				summary.MaxDUUtilization = util
			}
		case "CU":
			summary.OpenCUs++
			cuTotal += util
			if util > summary.MaxCUUtilization {
				summary.MaxCUUtilization = util
			}
		}
	}
	if summary.OpenDUs > 0 {
		summary.MeanDUUtilization = duTotal / float64(summary.OpenDUs)
	}
	if summary.OpenCUs > 0 {
		summary.MeanCUUtilization = cuTotal / float64(summary.OpenCUs)
	}

	return summary
}
