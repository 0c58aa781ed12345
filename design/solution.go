package design

import (
	"fmt"
	"math"
)

// Link is an active connection with its distance in meters.
type Link struct {
	From     int     `yaml:"from"`
	To       int     `yaml:"to"`
	Distance float64 `yaml:"distance_m"`
}

// CostBreakdown splits the realized cost into its four objective summands.
type CostBreakdown struct {
	DUInstall      float64 `yaml:"du_install"`
	CUInstall      float64 `yaml:"cu_install"`
	FronthaulFiber float64 `yaml:"fronthaul_fiber"`
	MidhaulFiber   float64 `yaml:"midhaul_fiber"`
	Total          float64 `yaml:"total"`
}

// Installation is the DU plus CU install cost.
func (c CostBreakdown) Installation() float64 {
	return c.DUInstall + c.CUInstall
}

// Fiber is the fronthaul plus midhaul fiber cost.
func (c CostBreakdown) Fiber() float64 {
	return c.FronthaulFiber + c.MidhaulFiber
}

// DesignSolution is the discrete topology read from a solver assignment.
// It is created once by Extract and not modified afterwards.
type DesignSolution struct {
	OpenDUs    []int         `yaml:"open_dus"`
	OpenCUs    []int         `yaml:"open_cus"`
	Fronthaul  []Link        `yaml:"fronthaul"` // RU→DU, ordered by RU
	Midhaul    []Link        `yaml:"midhaul"`   // DU→CU, ordered by DU
	Cost       CostBreakdown `yaml:"cost"`
	RadioUnits []RadioUnit   `yaml:"-"`
}

// ServingDU returns the DU serving RU i, or -1.
func (s *DesignSolution) ServingDU(i int) int {
	for _, l := range s.Fronthaul {
		if l.From == i {
			return l.To
		}
	}
	return -1
}

// UplinkCU returns the CU that DU j uplinks to, or -1.
func (s *DesignSolution) UplinkCU(j int) int {
	for _, l := range s.Midhaul {
		if l.From == j {
			return l.To
		}
	}
	return -1
}

// EvaluateCost recomputes the four cost components from the links and open sites.
func EvaluateCost(inst Instance, params Params, openDUs, openCUs []int, fronthaul, midhaul []Link) CostBreakdown {
	var c CostBreakdown
	for _, j := range openDUs {
		c.DUInstall += params.DUInstallCost(inst.DUCandidates[j])
	}
	for _, k := range openCUs {
		c.CUInstall += params.CUInstallCost(inst.CUCandidates[k])
	}
	for _, l := range fronthaul {
		c.FronthaulFiber += l.Distance * params.FiberCostFH
	}
	for _, l := range midhaul {
		c.MidhaulFiber += l.Distance * params.FiberCostMH
	}
	c.Total = c.DUInstall + c.CUInstall + c.FronthaulFiber + c.MidhaulFiber
	return c
}

// Verify checks every network invariant against the instance, params and matrices.
func (s *DesignSolution) Verify(inst Instance, params Params, ruDU, duCU *DistanceMatrix) error {
	nRU, nDU, nCU := len(inst.RadioUnits), len(inst.DUCandidates), len(inst.CUCandidates)
	duOpen := make([]bool, nDU)
	cuOpen := make([]bool, nCU)
	for _, j := range s.OpenDUs {
		if j < 0 || j >= nDU {
			return fmt.Errorf("%w: open DU index %d out of range", ErrInconsistentSolution, j)
		}
		duOpen[j] = true
	}
	for _, k := range s.OpenCUs {
		if k < 0 || k >= nCU {
			return fmt.Errorf("%w: open CU index %d out of range", ErrInconsistentSolution, k)
		}
		cuOpen[k] = true
	}

	served := make([]int, nRU)
	duLoad := make([]int, nDU)
	for _, l := range s.Fronthaul {
		if l.From < 0 || l.From >= nRU || l.To < 0 || l.To >= nDU {
			return fmt.Errorf("%w: fronthaul link %d→%d out of range", ErrInconsistentSolution, l.From, l.To)
		}
		if !duOpen[l.To] {
			return fmt.Errorf("%w: RU %d linked to closed DU %d", ErrInconsistentSolution, l.From, l.To)
		}
		if !ruDU.Within(l.From, l.To, params.MaxDistFH) {
			return fmt.Errorf("%w: fronthaul RU %d→DU %d is %.1fm, ceiling %.1fm",
				ErrInconsistentSolution, l.From, l.To, ruDU.At(l.From, l.To), params.MaxDistFH)
		}
		served[l.From]++
		duLoad[l.To]++
	}
	for i, n := range served {
		if n != 1 {
			return fmt.Errorf("%w: RU %d has %d fronthaul links", ErrInconsistentSolution, i, n)
		}
	}
	for j, load := range duLoad {
		if load > params.CapDU {
			return fmt.Errorf("%w: DU %d serves %d RUs, capacity %d", ErrInconsistentSolution, j, load, params.CapDU)
		}
	}

	uplinks := make([]int, nDU)
	cuLoad := make([]int, nCU)
	for _, l := range s.Midhaul {
		if l.From < 0 || l.From >= nDU || l.To < 0 || l.To >= nCU {
			return fmt.Errorf("%w: midhaul link %d→%d out of range", ErrInconsistentSolution, l.From, l.To)
		}
		if !cuOpen[l.To] {
			return fmt.Errorf("%w: DU %d linked to closed CU %d", ErrInconsistentSolution, l.From, l.To)
		}
		if !duCU.Within(l.From, l.To, params.MaxDistMH) {
			return fmt.Errorf("%w: midhaul DU %d→CU %d is %.1fm, ceiling %.1fm",
				ErrInconsistentSolution, l.From, l.To, duCU.At(l.From, l.To), params.MaxDistMH)
		}
		uplinks[l.From]++
		cuLoad[l.To]++
	}
	for j := 0; j < nDU; j++ {
		want := 0
		if duOpen[j] {
			want = 1
		}
		if uplinks[j] != want {
			return fmt.Errorf("%w: DU %d (open=%t) has %d uplinks", ErrInconsistentSolution, j, duOpen[j], uplinks[j])
		}
	}
	for k, load := range cuLoad {
		if load > params.CapCU {
			return fmt.Errorf("%w: CU %d serves %d DUs, capacity %d", ErrInconsistentSolution, k, load, params.CapCU)
		}
	}

	want := EvaluateCost(inst, params, s.OpenDUs, s.OpenCUs, s.Fronthaul, s.Midhaul)
	if math.Abs(want.Total-s.Cost.Total) > 1e-6*math.Max(1, math.Abs(want.Total)) {
		return fmt.Errorf("%w: reported total %.4f, recomputed %.4f", ErrInconsistentSolution, s.Cost.Total, want.Total)
	}
	return nil
}
