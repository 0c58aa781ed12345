// Package metrics exposes Prometheus collectors for planning runs. A run is a
// batch job, so the values are written to a node-exporter textfile rather
// than served over HTTP.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/oran-planner/oran-planner/design"
)

// PlanCollector bundles the Prometheus metrics of the planning pipeline.
// All methods are safe on a nil collector.
type PlanCollector struct {
	gatherer prometheus.Gatherer

	SolveDuration prometheus.Histogram
	SolveOutcomes *prometheus.CounterVec
	SolverNodes   prometheus.Counter

	DistancePairs     prometheus.Counter
	CacheLookups      *prometheus.CounterVec
	Repairs           prometheus.Counter
	DisconnectedPairs *prometheus.CounterVec

	PlanCost       *prometheus.GaugeVec
	OpenFacilities *prometheus.GaugeVec
}

// NewPlanCollector registers the planning metrics against reg, defaulting to
// the global Prometheus registry when nil.
func NewPlanCollector(reg prometheus.Registerer) (*PlanCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	duration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "oran_planner_solve_duration_seconds",
		Help:    "Wall time of the MILP solve in seconds.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
	}), "oran_planner_solve_duration_seconds")
	if err != nil {
		return nil, err
	}
	outcomes, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oran_planner_solve_outcomes_total",
		Help: "Solver outcomes, labeled by status.",
	}, []string{"status"}), "oran_planner_solve_outcomes_total")
	if err != nil {
		return nil, err
	}
	nodes, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "oran_planner_solver_nodes_total",
		Help: "Branch-and-bound nodes explored.",
	}), "oran_planner_solver_nodes_total")
	if err != nil {
		return nil, err
	}
	pairs, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "oran_planner_distance_pairs_total",
		Help: "Origin/destination pairs measured, including repaired rows.",
	}), "oran_planner_distance_pairs_total")
	if err != nil {
		return nil, err
	}
	lookups, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oran_planner_distance_cache_lookups_total",
		Help: "Distance cache lookups, labeled by result (hit or miss).",
	}, []string{"result"}), "oran_planner_distance_cache_lookups_total")
	if err != nil {
		return nil, err
	}
	repairs, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "oran_planner_ru_repairs_total",
		Help: "Radio units moved to the anchor because no DU was in fronthaul range.",
	}), "oran_planner_ru_repairs_total")
	if err != nil {
		return nil, err
	}
	disconnected, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oran_planner_disconnected_pairs_total",
		Help: "Pairs without a road path, labeled by tier.",
	}, []string{"tier"}), "oran_planner_disconnected_pairs_total")
	if err != nil {
		return nil, err
	}
	cost, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "oran_planner_plan_cost",
		Help: "Cost of the last extracted plan, labeled by component.",
	}, []string{"component"}), "oran_planner_plan_cost")
	if err != nil {
		return nil, err
	}
	open, err := registerGaugeVec(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "oran_planner_open_facilities",
		Help: "Facilities opened by the last extracted plan, labeled by tier.",
	}, []string{"tier"}), "oran_planner_open_facilities")
	if err != nil {
		return nil, err
	}

	return &PlanCollector{
		gatherer:          gatherer,
		SolveDuration:     duration,
		SolveOutcomes:     outcomes,
		SolverNodes:       nodes,
		DistancePairs:     pairs,
		CacheLookups:      lookups,
		Repairs:           repairs,
		DisconnectedPairs: disconnected,
		PlanCost:          cost,
		OpenFacilities:    open,
	}, nil
}

// ObserveDistances records the distance-matrix build.
func (c *PlanCollector) ObserveDistances(pairs, hits, misses, repairs, disconnectedFH, disconnectedMH int) {
	if c == nil {
		return
	}
	c.DistancePairs.Add(float64(pairs))
	c.CacheLookups.WithLabelValues("hit").Add(float64(hits))
	c.CacheLookups.WithLabelValues("miss").Add(float64(misses))
	c.Repairs.Add(float64(repairs))
	c.DisconnectedPairs.WithLabelValues("fronthaul").Add(float64(disconnectedFH))
	c.DisconnectedPairs.WithLabelValues("midhaul").Add(float64(disconnectedMH))
}

// ObserveSolve records one solver call.
func (c *PlanCollector) ObserveSolve(status string, nodes int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.SolveOutcomes.WithLabelValues(status).Inc()
	c.SolverNodes.Add(float64(nodes))
	c.SolveDuration.Observe(elapsed.Seconds())
}

// ObservePlan records the cost and size of an extracted plan.
func (c *PlanCollector) ObservePlan(sol *design.DesignSolution) {
	if c == nil || sol == nil {
		return
	}
	c.PlanCost.WithLabelValues("du_install").Set(sol.Cost.DUInstall)
	c.PlanCost.WithLabelValues("cu_install").Set(sol.Cost.CUInstall)
	c.PlanCost.WithLabelValues("fronthaul_fiber").Set(sol.Cost.FronthaulFiber)
	c.PlanCost.WithLabelValues("midhaul_fiber").Set(sol.Cost.MidhaulFiber)
	c.PlanCost.WithLabelValues("total").Set(sol.Cost.Total)
	c.OpenFacilities.WithLabelValues("DU").Set(float64(len(sol.OpenDUs)))
	c.OpenFacilities.WithLabelValues("CU").Set(float64(len(sol.OpenCUs)))
}

// WriteTextfile writes every gathered metric in the text exposition format,
// atomically replacing path.
func (c *PlanCollector) WriteTextfile(path string) error {
	if c == nil {
		return fmt.Errorf("metrics: nil collector")
	}
	if err := prometheus.WriteToTextfile(path, c.gatherer); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerGaugeVec(reg prometheus.Registerer, vec *prometheus.GaugeVec, name string) (*prometheus.GaugeVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.GaugeVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
