package design

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/oran-planner/oran-planner/design/milp"
)

// Pair keys a link variable by (origin index, destination index).
type Pair struct {
	From int
	To   int
}

// NetworkDesignModel is the capacitated two-echelon facility-location model
// together with the lookup tables needed to read a solver assignment back.
type NetworkDesignModel struct {
	Problem *milp.Problem

	OpenDU   []int        // variable index of open_DU[j]
	OpenCU   []int        // variable index of open_CU[k]
	LinkRUDU map[Pair]int // variable index of link_RU_DU[i,j]
	LinkDUCU map[Pair]int // variable index of link_DU_CU[j,k]

	Instance Instance
	Params   Params
	RUDU     *DistanceMatrix
	DUCU     *DistanceMatrix
}

// BuildModel assembles variables, objective and constraints from the two
// distance matrices. inst supplies the site flags for install costs and must
// match the matrix dimensions.
func BuildModel(inst Instance, ruDU, duCU *DistanceMatrix, params Params) (*NetworkDesignModel, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	nRU, nDU, nCU := len(inst.RadioUnits), len(inst.DUCandidates), len(inst.CUCandidates)
	if ruDU == nil || ruDU.Rows != nRU || ruDU.Cols != nDU {
		return nil, fmt.Errorf("RU×DU matrix does not match %d radio units × %d DU candidates", nRU, nDU)
	}
	if duCU == nil || duCU.Rows != nDU || duCU.Cols != nCU {
		return nil, fmt.Errorf("DU×CU matrix does not match %d DU candidates × %d CU candidates", nDU, nCU)
	}

	dense := params.EffectiveDomain() == DomainDense
	m := &NetworkDesignModel{
		Problem:  milp.NewProblem("openran_network_design"),
		OpenDU:   make([]int, nDU),
		OpenCU:   make([]int, nCU),
		LinkRUDU: make(map[Pair]int),
		LinkDUCU: make(map[Pair]int),
		Instance: inst,
		Params:   params,
		RUDU:     ruDU,
		DUCU:     duCU,
	}
	p := m.Problem

	for j, site := range inst.DUCandidates {
		m.OpenDU[j] = p.AddBinary(fmt.Sprintf("open_DU[%d]", j), params.DUInstallCost(site))
	}
	for k, site := range inst.CUCandidates {
		m.OpenCU[k] = p.AddBinary(fmt.Sprintf("open_CU[%d]", k), params.CUInstallCost(site))
	}

	// Out-of-range pairs exist only in the dense domain, where they are forced
	// to zero below; the sparse domain never creates them.
	for i := 0; i < nRU; i++ {
		for j := 0; j < nDU; j++ {
			if !dense && !ruDU.Within(i, j, params.MaxDistFH) {
				continue
			}
			cost := ruDU.At(i, j) * params.FiberCostFH
			m.LinkRUDU[Pair{i, j}] = p.AddBinary(fmt.Sprintf("link_RU_DU[%d,%d]", i, j), cost)
		}
	}
	for j := 0; j < nDU; j++ {
		for k := 0; k < nCU; k++ {
			if !dense && !duCU.Within(j, k, params.MaxDistMH) {
				continue
			}
			cost := duCU.At(j, k) * params.FiberCostMH
			m.LinkDUCU[Pair{j, k}] = p.AddBinary(fmt.Sprintf("link_DU_CU[%d,%d]", j, k), cost)
		}
	}

	// (1) every RU has exactly one RU→DU link
	for i := 0; i < nRU; i++ {
		var terms []milp.Term
		for j := 0; j < nDU; j++ {
			if v, ok := m.LinkRUDU[Pair{i, j}]; ok {
				terms = append(terms, milp.Term{Var: v, Coef: 1})
			}
		}
		p.AddConstraint(fmt.Sprintf("coverage_RU_%d", i), milp.Equal, 1, terms...)
	}
	// (2) link_RU_DU[i,j] <= open_DU[j]; implied by (3) at binary points, so
	// the relaxation only carries the violated ones.
	for i := 0; i < nRU; i++ {
		for j := 0; j < nDU; j++ {
			if v, ok := m.LinkRUDU[Pair{i, j}]; ok {
				p.AddCut(fmt.Sprintf("link_open_DU_%d_%d", i, j), milp.LessEqual, 0,
					milp.Term{Var: v, Coef: 1}, milp.Term{Var: m.OpenDU[j], Coef: -1})
			}
		}
	}
	// (3) Σ_i link_RU_DU[i,j] <= CAP_DU · open_DU[j]
	for j := 0; j < nDU; j++ {
		terms := []milp.Term{{Var: m.OpenDU[j], Coef: -float64(params.CapDU)}}
		for i := 0; i < nRU; i++ {
			if v, ok := m.LinkRUDU[Pair{i, j}]; ok {
				terms = append(terms, milp.Term{Var: v, Coef: 1})
			}
		}
		p.AddConstraint(fmt.Sprintf("capacity_DU_%d", j), milp.LessEqual, 0, terms...)
	}
	// (4) Σ_k link_DU_CU[j,k] = open_DU[j]
	for j := 0; j < nDU; j++ {
		terms := []milp.Term{{Var: m.OpenDU[j], Coef: -1}}
		for k := 0; k < nCU; k++ {
			if v, ok := m.LinkDUCU[Pair{j, k}]; ok {
				terms = append(terms, milp.Term{Var: v, Coef: 1})
			}
		}
		p.AddConstraint(fmt.Sprintf("uplink_DU_%d", j), milp.Equal, 0, terms...)
	}
	// (5) link_DU_CU[j,k] <= open_CU[k]; implied by (6) at binary points.
	for j := 0; j < nDU; j++ {
		for k := 0; k < nCU; k++ {
			if v, ok := m.LinkDUCU[Pair{j, k}]; ok {
				p.AddCut(fmt.Sprintf("link_open_CU_%d_%d", j, k), milp.LessEqual, 0,
					milp.Term{Var: v, Coef: 1}, milp.Term{Var: m.OpenCU[k], Coef: -1})
			}
		}
	}
	// (6) Σ_j link_DU_CU[j,k] <= CAP_CU · open_CU[k]
	for k := 0; k < nCU; k++ {
		terms := []milp.Term{{Var: m.OpenCU[k], Coef: -float64(params.CapCU)}}
		for j := 0; j < nDU; j++ {
			if v, ok := m.LinkDUCU[Pair{j, k}]; ok {
				terms = append(terms, milp.Term{Var: v, Coef: 1})
			}
		}
		p.AddConstraint(fmt.Sprintf("capacity_CU_%d", k), milp.LessEqual, 0, terms...)
	}
	// (7) distance forcing, dense domain only
	if dense {
		forced := 0
		for i := 0; i < nRU; i++ {
			for j := 0; j < nDU; j++ {
				if !ruDU.Within(i, j, params.MaxDistFH) {
					p.AddConstraint(fmt.Sprintf("max_dist_FH_%d_%d", i, j), milp.Equal, 0,
						milp.Term{Var: m.LinkRUDU[Pair{i, j}], Coef: 1})
					forced++
				}
			}
		}
		for j := 0; j < nDU; j++ {
			for k := 0; k < nCU; k++ {
				if !duCU.Within(j, k, params.MaxDistMH) {
					p.AddConstraint(fmt.Sprintf("max_dist_MH_%d_%d", j, k), milp.Equal, 0,
						milp.Term{Var: m.LinkDUCU[Pair{j, k}], Coef: 1})
					forced++
				}
			}
		}
		logrus.Debugf("model: %d out-of-range links forced to zero", forced)
	}

	logrus.Debugf("model: %d variables, %d constraints (%s domain)",
		len(p.Vars), len(p.Constraints), params.EffectiveDomain())
	return m, nil
}
