package design

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// Extract reads a solver assignment into a DesignSolution. A value counts as 1
// when it exceeds the model's decision threshold. Links whose endpoints are
// not open are dropped, and the cost is recomputed from the resulting
// discrete topology rather than taken from the solver objective.
func Extract(m *NetworkDesignModel, values []float64) (*DesignSolution, error) {
	if m == nil {
		return nil, fmt.Errorf("extract: nil model")
	}
	if len(values) != m.Problem.NumVars() {
		return nil, fmt.Errorf("extract: %d values for %d variables", len(values), m.Problem.NumVars())
	}
	threshold := m.Params.DecisionThreshold()
	on := func(v int) bool { return values[v] > threshold }

	nRU, nDU, nCU := len(m.Instance.RadioUnits), len(m.Instance.DUCandidates), len(m.Instance.CUCandidates)
	sol := &DesignSolution{RadioUnits: append([]RadioUnit(nil), m.Instance.RadioUnits...)}

	duOpen := make([]bool, nDU)
	for j := 0; j < nDU; j++ {
		if on(m.OpenDU[j]) {
			duOpen[j] = true
			sol.OpenDUs = append(sol.OpenDUs, j)
		}
	}
	cuOpen := make([]bool, nCU)
	for k := 0; k < nCU; k++ {
		if on(m.OpenCU[k]) {
			cuOpen[k] = true
			sol.OpenCUs = append(sol.OpenCUs, k)
		}
	}

	dropped := 0
	for i := 0; i < nRU; i++ {
		for j := 0; j < nDU; j++ {
			v, ok := m.LinkRUDU[Pair{i, j}]
			if !ok || !on(v) {
				continue
			}
			if !duOpen[j] {
				dropped++
				continue
			}
			sol.Fronthaul = append(sol.Fronthaul, Link{From: i, To: j, Distance: m.RUDU.At(i, j)})
		}
	}
	for j := 0; j < nDU; j++ {
		for k := 0; k < nCU; k++ {
			v, ok := m.LinkDUCU[Pair{j, k}]
			if !ok || !on(v) {
				continue
			}
			if !duOpen[j] || !cuOpen[k] {
				dropped++
				continue
			}
			sol.Midhaul = append(sol.Midhaul, Link{From: j, To: k, Distance: m.DUCU.At(j, k)})
		}
	}
	if dropped > 0 {
		logrus.Warnf("extract: dropped %d active link(s) referencing closed facilities", dropped)
	}

	sol.Cost = EvaluateCost(m.Instance, m.Params, sol.OpenDUs, sol.OpenCUs, sol.Fronthaul, sol.Midhaul)
	if err := sol.Verify(m.Instance, m.Params, m.RUDU, m.DUCU); err != nil {
		return nil, err
	}
	return sol, nil
}
