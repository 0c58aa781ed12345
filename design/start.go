package design

import (
	"math"
	"sort"
)

// GreedyStart builds a feasible assignment by sending each RU to the
// cheapest DU with spare capacity and each opened DU to the cheapest CU with
// spare capacity. RUs with the fewest reachable DUs are placed first. It
// returns false when the greedy pass strands an RU or a DU, which does not
// mean the model is infeasible.
func (m *NetworkDesignModel) GreedyStart() ([]float64, bool) {
	p := m.Params
	nRU, nDU, nCU := len(m.Instance.RadioUnits), len(m.Instance.DUCandidates), len(m.Instance.CUCandidates)

	// A DU is only worth opening if some CU can serve it.
	duUsable := make([]bool, nDU)
	for j := 0; j < nDU; j++ {
		for k := 0; k < nCU; k++ {
			if _, ok := m.LinkDUCU[Pair{j, k}]; ok && m.DUCU.Within(j, k, p.MaxDistMH) {
				duUsable[j] = true
				break
			}
		}
	}
	candidates := make([][]int, nRU)
	for i := 0; i < nRU; i++ {
		for j := 0; j < nDU; j++ {
			if _, ok := m.LinkRUDU[Pair{i, j}]; ok && duUsable[j] && m.RUDU.Within(i, j, p.MaxDistFH) {
				candidates[i] = append(candidates[i], j)
			}
		}
	}
	order := make([]int, nRU)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return len(candidates[order[a]]) < len(candidates[order[b]])
	})

	values := make([]float64, m.Problem.NumVars())
	duLoad := make([]int, nDU)
	for _, i := range order {
		best, bestCost := -1, math.Inf(1)
		for _, j := range candidates[i] {
			if duLoad[j] >= p.CapDU {
				continue
			}
			cost := m.RUDU.At(i, j) * p.FiberCostFH
			if duLoad[j] == 0 {
				cost += p.DUInstallCost(m.Instance.DUCandidates[j])
			}
			if cost < bestCost {
				best, bestCost = j, cost
			}
		}
		if best < 0 {
			return nil, false
		}
		duLoad[best]++
		values[m.LinkRUDU[Pair{i, best}]] = 1
	}

	cuLoad := make([]int, nCU)
	for j := 0; j < nDU; j++ {
		if duLoad[j] == 0 {
			continue
		}
		values[m.OpenDU[j]] = 1
		best, bestCost := -1, math.Inf(1)
		for k := 0; k < nCU; k++ {
			if _, ok := m.LinkDUCU[Pair{j, k}]; !ok || !m.DUCU.Within(j, k, p.MaxDistMH) || cuLoad[k] >= p.CapCU {
				continue
			}
			cost := m.DUCU.At(j, k) * p.FiberCostMH
			if cuLoad[k] == 0 {
				cost += p.CUInstallCost(m.Instance.CUCandidates[k])
			}
			if cost < bestCost {
				best, bestCost = k, cost
			}
		}
		if best < 0 {
			return nil, false
		}
		cuLoad[best]++
		values[m.OpenCU[best]] = 1
		values[m.LinkDUCU[Pair{j, best}]] = 1
	}
	return values, true
}
