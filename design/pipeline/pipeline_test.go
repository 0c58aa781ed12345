package pipeline

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oran-planner/oran-planner/design"
	"github.com/oran-planner/oran-planner/design/distance"
	"github.com/oran-planner/oran-planner/design/metrics"
	"github.com/oran-planner/oran-planner/design/milp"
	"github.com/oran-planner/oran-planner/design/trace"
)

// manhattan is a deterministic geodesic: 1000 m per degree of |Δlat|+|Δlon|.
func manhattan(a, b design.Location) float64 {
	return 1000 * (math.Abs(a.Lat-b.Lat) + math.Abs(a.Lon-b.Lon))
}

func loc(lat, lon float64) design.Location { return design.Location{Lat: lat, Lon: lon} }

// request builds two RUs, two DU candidates and one existing CU on the
// equator. With the default ruLon of 2, DU 0 is the cheapest hub for both RUs.
func request(ruLon float64) Request {
	anchor := loc(0, 20)
	inst := design.Instance{
		RadioUnits: []design.RadioUnit{
			{Index: 0, Location: loc(0, 0)},
			{Index: 1, Location: loc(0, ruLon)},
		},
		DUCandidates: []design.SiteCandidate{
			{Index: 0, Location: loc(0, 1)},
			{Index: 1, Location: loc(0, 5)},
		},
		CUCandidates: []design.SiteCandidate{
			{Index: 0, Location: loc(0, 3), Existing: true},
		},
	}
	return Request{
		Instance: inst,
		Params:   design.NewParams(3500, 9000, 2, 2, 1000, 500, 0, 1, 1),
		Distance: distance.Options{
			Mode:         distance.ModeStraightLine,
			DetourFactor: 1,
			Anchor:       &anchor,
			Geodesic:     manhattan,
			Workers:      2,
		},
		TraceLevel: trace.TraceLevelEvents,
	}
}

func TestRun_Optimal_ExtractsCheapestPlan(t *testing.T) {
	// GIVEN both RUs within reach of DU 0
	req := request(2)
	reg := prometheus.NewRegistry()
	collector, err := metrics.NewPlanCollector(reg)
	require.NoError(t, err)
	req.Metrics = collector

	// WHEN the pipeline runs
	out, err := Run(context.Background(), req)

	// THEN DU 0 serves both RUs and uplinks to the existing CU
	require.NoError(t, err)
	require.NoError(t, out.Err())
	assert.Equal(t, milp.StatusOptimal, out.Status)
	require.NotNil(t, out.Solution)
	assert.Equal(t, []int{0}, out.Solution.OpenDUs)
	assert.Equal(t, []int{0}, out.Solution.OpenCUs)
	assert.InDelta(t, 5000, out.Solution.Cost.Total, 1e-6)
	assert.Same(t, out.Solution, out.Plan())
	assert.NotEmpty(t, out.RunID)

	// AND the trace records the solve and one load record per open facility
	require.NotNil(t, out.Trace.Solve)
	assert.Equal(t, "Optimal", out.Trace.Solve.Status)
	assert.Equal(t, []trace.FacilityRecord{
		{Tier: "DU", Index: 0, Load: 2, Capacity: 2},
		{Tier: "CU", Index: 0, Load: 1, Capacity: 2},
	}, out.Trace.Facilities)

	// AND metrics count every measured pair
	assert.Equal(t, 6.0, testutil.ToFloat64(collector.DistancePairs))
	assert.Equal(t, 5000.0, testutil.ToFloat64(collector.PlanCost.WithLabelValues("total")))
}

func TestRun_Infeasible_ReturnsDiagnosis(t *testing.T) {
	// GIVEN two RUs that can only reach DU 0, which serves one RU
	req := request(-0.5)
	req.Params.CapDU = 1

	// WHEN the pipeline runs
	out, err := Run(context.Background(), req)

	// THEN the outcome is infeasible and the captive DU is named
	require.NoError(t, err)
	assert.Equal(t, milp.StatusInfeasible, out.Status)
	assert.Nil(t, out.Plan())
	require.NotEmpty(t, out.Diagnosis)
	assert.Contains(t, out.Diagnosis[0], "radio units [0 1] can only reach DU 0")

	var infeasible *design.InfeasibleError
	require.True(t, errors.As(out.Err(), &infeasible))
	assert.Equal(t, out.Diagnosis, infeasible.Hints)
}

func TestRun_UnresolvedRepair_IsUnreachableDemand(t *testing.T) {
	// GIVEN an RU far from every DU and an anchor that is no closer
	req := request(12)

	// WHEN the pipeline runs
	out, err := Run(context.Background(), req)

	// THEN the run stops before the model with the stranded RU named
	assert.Nil(t, out)
	var unreachable *design.UnreachableDemandError
	require.True(t, errors.As(err, &unreachable))
	assert.Equal(t, []int{1}, unreachable.RadioUnits)
}

func TestRun_ExpectationNotMet_IsInsufficientCandidates(t *testing.T) {
	// GIVEN a scenario declaring three DU candidates but providing two
	req := request(2)
	req.Expect = design.Expectation{DUCandidates: 3}

	// WHEN the pipeline runs
	_, err := Run(context.Background(), req)

	// THEN the precheck fails with the tier named
	var insufficient *design.InsufficientCandidatesError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, "DU candidates", insufficient.Tier)
	assert.Equal(t, 2, insufficient.Have)
	assert.Equal(t, 3, insufficient.Need)
}

func TestRun_SingleDUBelowCapacity_IsInsufficientCandidates(t *testing.T) {
	// GIVEN two RUs, one DU candidate and a DU capacity of one
	req := request(2)
	req.Instance.DUCandidates = req.Instance.DUCandidates[:1]
	req.Params.CapDU = 1

	// WHEN the pipeline runs
	_, err := Run(context.Background(), req)

	// THEN the counting precheck rejects it before any distance is measured
	var insufficient *design.InsufficientCandidatesError
	require.True(t, errors.As(err, &insufficient), "got %v", err)
	assert.Equal(t, "DU candidates", insufficient.Tier)
	assert.Equal(t, 1, insufficient.Have)
	assert.Equal(t, 2, insufficient.Need)
	var infeasible *design.InfeasibleError
	assert.False(t, errors.As(err, &infeasible))
}

// startRecorder records the options it was handed before solving.
type startRecorder struct {
	opts milp.Options
}

func (s *startRecorder) Solve(ctx context.Context, p *milp.Problem, opts milp.Options) (*milp.Result, error) {
	s.opts = opts
	return milp.NewBranchAndBound().Solve(ctx, p, opts)
}

func TestRun_PassesGreedyStartToSolver(t *testing.T) {
	// GIVEN a solver that records its options
	rec := &startRecorder{}
	req := request(2)
	req.Solver = rec

	// WHEN the pipeline runs
	out, err := Run(context.Background(), req)

	// THEN the solver received a feasible start no cheaper than the optimum
	require.NoError(t, err)
	require.NotNil(t, rec.opts.Start)
	assert.NoError(t, out.Model.Problem.CheckAssignment(rec.opts.Start, 1e-9))
	assert.GreaterOrEqual(t, out.Model.Problem.Objective(rec.opts.Start), out.Solution.Cost.Total-1e-6)
}

// earlyStop solves to optimality and then reports a time-out, so the
// assignment is handed back as an incumbent.
type earlyStop struct{}

func (earlyStop) Solve(ctx context.Context, p *milp.Problem, opts milp.Options) (*milp.Result, error) {
	res, err := milp.NewBranchAndBound().Solve(ctx, p, opts)
	if err != nil {
		return nil, err
	}
	res.Status = milp.StatusTimedOut
	res.HasIncumbent = true
	res.Detail = "time limit reached"
	return res, nil
}

func TestRun_TimedOutWithIncumbent(t *testing.T) {
	// GIVEN a solver that stops early holding a feasible assignment
	req := request(2)
	req.Solver = earlyStop{}

	// WHEN the pipeline runs
	out, err := Run(context.Background(), req)

	// THEN the incumbent is extracted and the outcome error says so
	require.NoError(t, err)
	assert.Nil(t, out.Solution)
	require.NotNil(t, out.Incumbent)
	assert.InDelta(t, 5000, out.Incumbent.Cost.Total, 1e-6)
	assert.Same(t, out.Incumbent, out.Plan())

	var notSolved *design.NotSolvedError
	require.True(t, errors.As(out.Err(), &notSolved))
	assert.Equal(t, "TimedOut", notSolved.Status)
	assert.True(t, notSolved.HasIncumbent)
	assert.Equal(t, "time limit reached", notSolved.Detail)
}

func TestRun_CancelledContext(t *testing.T) {
	// GIVEN a context cancelled before the run starts
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// WHEN the pipeline runs
	_, err := Run(ctx, request(2))

	// THEN the distance stage reports the cancellation
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRun_TraceDisabled_RecordsNothing(t *testing.T) {
	// GIVEN tracing switched off
	req := request(2)
	req.TraceLevel = trace.TraceLevelNone

	// WHEN the pipeline runs
	out, err := Run(context.Background(), req)

	// THEN the plan is produced but the trace stays empty
	require.NoError(t, err)
	require.NotNil(t, out.Solution)
	assert.Nil(t, out.Trace.Solve)
	assert.Empty(t, out.Trace.Facilities)
}
