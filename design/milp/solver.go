package milp

import (
	"context"
	"time"
)

// Status is the outcome of a solve.
type Status int

const (
	StatusNotSolved Status = iota
	StatusOptimal
	StatusInfeasible
	StatusUnbounded
	StatusTimedOut
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "Optimal"
	case StatusInfeasible:
		return "Infeasible"
	case StatusUnbounded:
		return "Unbounded"
	case StatusTimedOut:
		return "TimedOut"
	default:
		return "NotSolved"
	}
}

// DefaultTolerance is the integrality and feasibility tolerance.
const DefaultTolerance = 1e-6

// Options bounds a solve. Zero values mean no limit.
type Options struct {
	TimeLimit time.Duration
	MaxNodes  int
	Tolerance float64
	// Start is a feasible assignment the search begins from. A solve that
	// stops early still reports it as the incumbent. Ignored when it does not
	// satisfy the problem.
	Start []float64
}

func (o Options) tolerance() float64 {
	if o.Tolerance <= 0 {
		return DefaultTolerance
	}
	return o.Tolerance
}

// Stats describes the work a solve performed.
type Stats struct {
	Nodes     int
	LPSolves  int
	Elapsed   time.Duration
	BestBound float64
}

// Result is what a solver returns. Values is indexed like Problem.Vars and is
// only meaningful when Status is Optimal or HasIncumbent is true.
type Result struct {
	Status       Status
	Values       []float64
	Objective    float64
	HasIncumbent bool
	Stats        Stats
	Detail       string
}

// IsOptimal returns true if the result is a proven optimum.
func (r *Result) IsOptimal() bool {
	return r.Status == StatusOptimal
}

// HasSolution returns true if Values holds a feasible assignment.
func (r *Result) HasSolution() bool {
	return r.Status == StatusOptimal || r.HasIncumbent
}

// Value returns the value of variable index, or 0 when out of range.
func (r *Result) Value(index int) float64 {
	if index < 0 || index >= len(r.Values) {
		return 0
	}
	return r.Values[index]
}

// Solver solves a binary linear program. A non-nil error means the problem
// itself was malformed; every other outcome is reported through Result.Status.
type Solver interface {
	Solve(ctx context.Context, p *Problem, opts Options) (*Result, error)
}
