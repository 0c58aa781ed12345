package design

import (
	"fmt"
	"math"
)

// Domain selects how distance ceilings are enforced in the model.
type Domain string

const (
	// DomainSparse omits link variables whose distance exceeds the ceiling.
	DomainSparse Domain = "sparse"
	// DomainDense creates every link variable and forces out-of-range ones to zero.
	DomainDense Domain = "dense"
)

// ValidDomains is the set of recognized variable domains ("" means sparse).
var ValidDomains = map[Domain]bool{"": true, DomainSparse: true, DomainDense: true}

// DefaultThreshold absorbs solver tolerance when reading binary values.
const DefaultThreshold = 0.9

// Params groups the capacities, ceilings and cost coefficients of one run.
type Params struct {
	MaxDistFH float64 // fronthaul ceiling, meters
	MaxDistMH float64 // midhaul ceiling, meters
	CapDU     int     // RUs per open DU
	CapCU     int     // DUs per open CU

	CostInstDU         float64
	CostInstDUExisting float64 // negative means "same as CostInstDU"
	CostInstCUNew      float64
	CostInstCUExisting float64
	FiberCostFH        float64 // per meter, RU→DU
	FiberCostMH        float64 // per meter, DU→CU

	Domain    Domain
	Threshold float64 // binary decision threshold; 0 means DefaultThreshold
}

// NewParams returns Params with the domain, threshold and existing-DU cost left at their defaults.
func NewParams(maxFH, maxMH float64, capDU, capCU int, duCost, cuNew, cuExisting, fiberFH, fiberMH float64) Params {
	return Params{
		MaxDistFH:          maxFH,
		MaxDistMH:          maxMH,
		CapDU:              capDU,
		CapCU:              capCU,
		CostInstDU:         duCost,
		CostInstDUExisting: -1,
		CostInstCUNew:      cuNew,
		CostInstCUExisting: cuExisting,
		FiberCostFH:        fiberFH,
		FiberCostMH:        fiberMH,
	}
}

// Validate checks parameter ranges.
func (p Params) Validate() error {
	if err := validatePositive("max_dist_fh", p.MaxDistFH); err != nil {
		return err
	}
	if err := validatePositive("max_dist_mh", p.MaxDistMH); err != nil {
		return err
	}
	if p.CapDU <= 0 {
		return fmt.Errorf("cap_du must be positive, got %d", p.CapDU)
	}
	if p.CapCU <= 0 {
		return fmt.Errorf("cap_cu must be positive, got %d", p.CapCU)
	}
	costs := []struct {
		name string
		val  float64
	}{
		{"du_install", p.CostInstDU},
		{"cu_install_new", p.CostInstCUNew},
		{"cu_install_existing", p.CostInstCUExisting},
		{"fiber_fh_per_meter", p.FiberCostFH},
		{"fiber_mh_per_meter", p.FiberCostMH},
	}
	for _, c := range costs {
		if err := validateNonNegative(c.name, c.val); err != nil {
			return err
		}
	}
	if math.IsNaN(p.CostInstDUExisting) || math.IsInf(p.CostInstDUExisting, 0) {
		return fmt.Errorf("du_install_existing must be a finite number, got %f", p.CostInstDUExisting)
	}
	if !ValidDomains[p.Domain] {
		return fmt.Errorf("unknown domain %q; valid: sparse, dense", p.Domain)
	}
	if p.Threshold != 0 && (p.Threshold <= 0 || p.Threshold >= 1) {
		return fmt.Errorf("threshold must be in (0, 1), got %f", p.Threshold)
	}
	return nil
}

// DUInstallCost is the install coefficient of a DU site.
func (p Params) DUInstallCost(site SiteCandidate) float64 {
	if site.Existing && p.CostInstDUExisting >= 0 {
		return p.CostInstDUExisting
	}
	return p.CostInstDU
}

// CUInstallCost is the install coefficient of a CU site; pre-existing sites get the reduced cost.
func (p Params) CUInstallCost(site SiteCandidate) float64 {
	if site.Existing {
		return p.CostInstCUExisting
	}
	return p.CostInstCUNew
}

// DecisionThreshold returns the effective binary threshold.
func (p Params) DecisionThreshold() float64 {
	if p.Threshold == 0 {
		return DefaultThreshold
	}
	return p.Threshold
}

// EffectiveDomain returns the domain with the sparse default applied.
func (p Params) EffectiveDomain() Domain {
	if p.Domain == "" {
		return DomainSparse
	}
	return p.Domain
}

func validatePositive(name string, val float64) error {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return fmt.Errorf("%s must be a finite number, got %f", name, val)
	}
	if val <= 0 {
		return fmt.Errorf("%s must be positive, got %f", name, val)
	}
	return nil
}

func validateNonNegative(name string, val float64) error {
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return fmt.Errorf("%s must be a finite number, got %f", name, val)
	}
	if val < 0 {
		return fmt.Errorf("%s must be non-negative, got %f", name, val)
	}
	return nil
}
