// Package pipeline runs one planning invocation end to end: candidate
// prechecks, distance matrices, reachability, model construction, solve and
// extraction. It owns no state between runs.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oran-planner/oran-planner/design"
	"github.com/oran-planner/oran-planner/design/distance"
	"github.com/oran-planner/oran-planner/design/metrics"
	"github.com/oran-planner/oran-planner/design/milp"
	"github.com/oran-planner/oran-planner/design/trace"
)

// Request carries everything a run needs. Solver defaults to
// milp.BranchAndBound; Metrics may be nil.
type Request struct {
	Instance      design.Instance
	Params        design.Params
	Expect        design.Expectation
	Distance      distance.Options
	Solver        milp.Solver
	SolverOptions milp.Options
	TraceLevel    trace.TraceLevel
	Metrics       *metrics.PlanCollector
}

// Outcome is the result of a run that reached the solver.
type Outcome struct {
	RunID  string
	Status milp.Status

	// Solution is set when Status is Optimal.
	Solution *design.DesignSolution
	// Incumbent is set when the solver stopped early holding a feasible assignment.
	Incumbent *design.DesignSolution
	// Diagnosis is set when Status is Infeasible.
	Diagnosis []string

	Instance  design.Instance // radio units as measured, after repairs
	Distances *distance.Matrices
	Model     *design.NetworkDesignModel
	Result    *milp.Result
	Trace     *trace.PlanTrace
}

// Plan returns the optimal solution, falling back to the incumbent.
func (o *Outcome) Plan() *design.DesignSolution {
	if o.Solution != nil {
		return o.Solution
	}
	return o.Incumbent
}

// Err converts a non-optimal status into a typed error.
func (o *Outcome) Err() error {
	switch o.Status {
	case milp.StatusOptimal:
		return nil
	case milp.StatusInfeasible:
		return &design.InfeasibleError{Hints: o.Diagnosis}
	default:
		e := &design.NotSolvedError{Status: o.Status.String(), HasIncumbent: o.Incumbent != nil}
		if o.Result != nil {
			e.Detail = o.Result.Detail
		}
		return e
	}
}

// Run executes the pipeline. Errors returned here mean the solver was never
// reached or its assignment could not be read; solver outcomes such as
// Infeasible are reported through Outcome.Status.
func Run(ctx context.Context, req Request) (*Outcome, error) {
	out := &Outcome{RunID: uuid.NewString()}
	out.Trace = trace.NewPlanTrace(req.TraceLevel, out.RunID)
	log := logrus.WithField("run", out.RunID)

	if err := req.Params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	if err := design.CheckCandidates(req.Instance, req.Params, req.Expect); err != nil {
		return nil, err
	}
	log.Infof("planning %d radio units, %d DU candidates, %d CU candidates",
		len(req.Instance.RadioUnits), len(req.Instance.DUCandidates), len(req.Instance.CUCandidates))

	builder, err := distance.NewBuilder(req.Params, req.Distance)
	if err != nil {
		return nil, fmt.Errorf("distance options: %w", err)
	}
	mats, err := builder.Build(ctx, req.Instance)
	if err != nil {
		return nil, fmt.Errorf("building distance matrices: %w", err)
	}
	out.Distances = mats
	out.Instance = mats.Instance(req.Instance)
	recordDistances(out.Trace, mats)
	req.Metrics.ObserveDistances(mats.Pairs, mats.CacheHits, mats.CacheMisses, len(mats.Repairs),
		mats.DisconnectedFH, mats.DisconnectedMH)

	if unresolved := mats.Unresolved(); len(unresolved) > 0 {
		return nil, &design.UnreachableDemandError{
			RadioUnits: unresolved,
			Reason:     fmt.Sprintf("no DU within max_dist_fh=%.0fm even after moving to the anchor", req.Params.MaxDistFH),
		}
	}
	if err := design.CheckReachability(mats.RUDU, mats.DUCU, req.Params); err != nil {
		return nil, err
	}

	model, err := design.BuildModel(out.Instance, mats.RUDU, mats.DUCU, req.Params)
	if err != nil {
		return nil, fmt.Errorf("building model: %w", err)
	}
	out.Model = model
	log.Debugf("model has %d variables and %d constraints", model.Problem.NumVars(), len(model.Problem.Constraints))

	solver := req.Solver
	if solver == nil {
		solver = milp.NewBranchAndBound()
	}
	opts := req.SolverOptions
	if opts.Start == nil {
		if greedy, ok := model.GreedyStart(); ok {
			opts.Start = greedy
			log.Debugf("greedy start costs %.2f", model.Problem.Objective(greedy))
		}
	}
	start := time.Now()
	res, err := solver.Solve(ctx, model.Problem, opts)
	if err != nil {
		return nil, fmt.Errorf("solving model: %w", err)
	}
	elapsed := res.Stats.Elapsed
	if elapsed == 0 {
		elapsed = time.Since(start)
	}
	out.Result = res
	out.Status = res.Status
	out.Trace.RecordSolve(trace.SolveRecord{
		Status:       res.Status.String(),
		Objective:    res.Objective,
		BestBound:    res.Stats.BestBound,
		Nodes:        res.Stats.Nodes,
		LPSolves:     res.Stats.LPSolves,
		ElapsedMS:    elapsed.Milliseconds(),
		HasIncumbent: res.HasIncumbent,
	})
	req.Metrics.ObserveSolve(res.Status.String(), res.Stats.Nodes, elapsed)
	log.Infof("solver finished: %s after %d nodes in %s", res.Status, res.Stats.Nodes, elapsed.Round(time.Millisecond))

	switch {
	case res.Status == milp.StatusOptimal:
		sol, err := design.Extract(model, res.Values)
		if err != nil {
			return nil, err
		}
		out.Solution = sol
	case res.Status == milp.StatusInfeasible:
		out.Diagnosis = design.DiagnoseInfeasible(out.Instance, req.Params, mats.RUDU, mats.DUCU)
		for _, h := range out.Diagnosis {
			log.Warnf("infeasible: %s", h)
		}
	case res.HasIncumbent:
		sol, err := design.Extract(model, res.Values)
		if err != nil {
			return nil, fmt.Errorf("reading incumbent: %w", err)
		}
		out.Incumbent = sol
		log.Warnf("solver stopped with status %s; incumbent costs %.2f", res.Status, sol.Cost.Total)
	}

	if plan := out.Plan(); plan != nil {
		recordFacilities(out.Trace, plan, req.Params)
		req.Metrics.ObservePlan(plan)
	}
	return out, nil
}

func recordDistances(pt *trace.PlanTrace, mats *distance.Matrices) {
	for _, r := range mats.Repairs {
		pt.RecordRepair(trace.RepairRecord{
			RU:            r.RU,
			FromLat:       r.From.Lat,
			FromLon:       r.From.Lon,
			ToLat:         r.To.Lat,
			ToLon:         r.To.Lon,
			NearestBefore: r.NearestBefore,
			NearestAfter:  r.NearestAfter,
			Resolved:      r.Resolved,
		})
	}
	pt.RecordDisconnected(trace.DisconnectedRecord{Tier: "fronthaul", Pairs: mats.DisconnectedFH})
	pt.RecordDisconnected(trace.DisconnectedRecord{Tier: "midhaul", Pairs: mats.DisconnectedMH})
}

func recordFacilities(pt *trace.PlanTrace, plan *design.DesignSolution, params design.Params) {
	if !pt.Enabled() {
		return
	}
	duLoad := make(map[int]int)
	for _, l := range plan.Fronthaul {
		duLoad[l.To]++
	}
	cuLoad := make(map[int]int)
	for _, l := range plan.Midhaul {
		cuLoad[l.To]++
	}
	for _, j := range plan.OpenDUs {
		pt.RecordFacility(trace.FacilityRecord{Tier: "DU", Index: j, Load: duLoad[j], Capacity: params.CapDU})
	}
	for _, k := range plan.OpenCUs {
		pt.RecordFacility(trace.FacilityRecord{Tier: "CU", Index: k, Load: cuLoad[k], Capacity: params.CapCU})
	}
}
