package design

import "fmt"

// Expectation declares how many locations a scenario is supposed to provide.
// Zero fields are not checked.
type Expectation struct {
	RadioUnits   int
	DUCandidates int
	CUCandidates int
}

// CheckCandidates fails with *InsufficientCandidatesError when a tier is
// empty, smaller than declared, or too small for the capacities to cover
// every radio unit.
func CheckCandidates(inst Instance, params Params, expect Expectation) error {
	tiers := []struct {
		name   string
		have   int
		expect int
	}{
		{"radio units", len(inst.RadioUnits), expect.RadioUnits},
		{"DU candidates", len(inst.DUCandidates), expect.DUCandidates},
		{"CU candidates", len(inst.CUCandidates), expect.CUCandidates},
	}
	for _, t := range tiers {
		if t.have == 0 {
			return &InsufficientCandidatesError{Tier: t.name, Have: 0, Need: 1, Reason: "tier is empty"}
		}
		if t.have < t.expect {
			return &InsufficientCandidatesError{Tier: t.name, Have: t.have, Need: t.expect, Reason: "fewer than the scenario declares"}
		}
	}
	if params.CapDU <= 0 || params.CapCU <= 0 {
		return fmt.Errorf("capacities must be positive (cap_du=%d, cap_cu=%d)", params.CapDU, params.CapCU)
	}
	needDU := ceilDiv(len(inst.RadioUnits), params.CapDU)
	if len(inst.DUCandidates) < needDU {
		return &InsufficientCandidatesError{Tier: "DU candidates", Have: len(inst.DUCandidates), Need: needDU,
			Reason: fmt.Sprintf("%d radio units at cap_du=%d", len(inst.RadioUnits), params.CapDU)}
	}
	needCU := ceilDiv(needDU, params.CapCU)
	if len(inst.CUCandidates) < needCU {
		return &InsufficientCandidatesError{Tier: "CU candidates", Have: len(inst.CUCandidates), Need: needCU,
			Reason: fmt.Sprintf("at least %d open DUs at cap_cu=%d", needDU, params.CapCU)}
	}
	return nil
}

// uplinkable reports, per DU, whether some CU lies within the midhaul ceiling.
func uplinkable(duCU *DistanceMatrix, params Params) []bool {
	out := make([]bool, duCU.Rows)
	for j := range out {
		out[j] = len(duCU.Reachable(j, params.MaxDistMH)) > 0
	}
	return out
}

// CheckReachability fails with *UnreachableDemandError when some RU has no
// DU within the fronthaul ceiling whose own uplink is within the midhaul ceiling.
func CheckReachability(ruDU, duCU *DistanceMatrix, params Params) error {
	up := uplinkable(duCU, params)
	var stranded []int
	for i := 0; i < ruDU.Rows; i++ {
		ok := false
		for _, j := range ruDU.Reachable(i, params.MaxDistFH) {
			if up[j] {
				ok = true
				break
			}
		}
		if !ok {
			stranded = append(stranded, i)
		}
	}
	if len(stranded) == 0 {
		return nil
	}
	return &UnreachableDemandError{
		RadioUnits: stranded,
		Reason: fmt.Sprintf("no DU within max_dist_fh=%.0fm that has a CU within max_dist_mh=%.0fm",
			params.MaxDistFH, params.MaxDistMH),
	}
}

// DiagnoseInfeasible lists the parameters most likely responsible for an
// infeasible model, most specific first.
func DiagnoseInfeasible(inst Instance, params Params, ruDU, duCU *DistanceMatrix) []string {
	var hints []string
	up := uplinkable(duCU, params)

	captive := make([][]int, ruDU.Cols)
	for i := 0; i < ruDU.Rows; i++ {
		var options []int
		for _, j := range ruDU.Reachable(i, params.MaxDistFH) {
			if up[j] {
				options = append(options, j)
			}
		}
		if len(options) == 1 {
			captive[options[0]] = append(captive[options[0]], i)
		}
	}
	for j, rus := range captive {
		if len(rus) > params.CapDU {
			hints = append(hints, fmt.Sprintf("radio units %v can only reach DU %d, which serves at most cap_du=%d",
				rus, j, params.CapDU))
		}
	}

	usableDU := 0
	for j, ok := range up {
		if ok {
			usableDU++
		} else if servesAny(ruDU, j, params.MaxDistFH) {
			hints = append(hints, fmt.Sprintf("DU %d has radio units in range but no CU within max_dist_mh=%.0fm",
				j, params.MaxDistMH))
		}
	}
	if n := len(inst.RadioUnits); n > usableDU*params.CapDU {
		hints = append(hints, fmt.Sprintf("cap_du=%d is too low: %d radio units, %d usable DU candidates",
			params.CapDU, n, usableDU))
	}
	if need := ceilDiv(len(inst.RadioUnits), params.CapDU); need > len(inst.CUCandidates)*params.CapCU {
		hints = append(hints, fmt.Sprintf("cap_cu=%d is too low: at least %d DUs must open, %d CU candidates",
			params.CapCU, need, len(inst.CUCandidates)))
	}

	if len(hints) == 0 {
		hints = append(hints,
			fmt.Sprintf("distance ceilings may be too tight (max_dist_fh=%.0fm, max_dist_mh=%.0fm)", params.MaxDistFH, params.MaxDistMH),
			fmt.Sprintf("capacities may be too low (cap_du=%d, cap_cu=%d)", params.CapDU, params.CapCU),
			"there may be too few candidate sites near the demand",
		)
	}
	return hints
}

func servesAny(ruDU *DistanceMatrix, j int, ceiling float64) bool {
	for i := 0; i < ruDU.Rows; i++ {
		if ruDU.Within(i, j, ceiling) {
			return true
		}
	}
	return false
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
