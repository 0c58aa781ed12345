package milp

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// knapsack has a fractional LP optimum (a=1, b=0.5) so the solver must branch.
func knapsack() *Problem {
	p := NewProblem("knapsack")
	a := p.AddBinary("a", -3)
	b := p.AddBinary("b", -2)
	c := p.AddBinary("c", -2)
	p.AddConstraint("weight", LessEqual, 3, Term{a, 2}, Term{b, 2}, Term{c, 2})
	return p
}

func TestBranchAndBound_CoverProblem_Optimal(t *testing.T) {
	// GIVEN min a + 2b subject to a + b >= 1
	p := NewProblem("cover")
	a := p.AddBinary("a", 1)
	b := p.AddBinary("b", 2)
	p.AddConstraint("cover", GreaterEqual, 1, Term{a, 1}, Term{b, 1})

	// WHEN solved
	res, err := NewBranchAndBound().Solve(context.Background(), p, Options{})

	// THEN the cheaper variable is chosen
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, res.Status)
	assert.InDelta(t, 1.0, res.Objective, 1e-9)
	assert.InDelta(t, 1.0, res.Value(a), 1e-9)
	assert.InDelta(t, 0.0, res.Value(b), 1e-9)
}

func TestBranchAndBound_FractionalRelaxation_BranchesToIntegerOptimum(t *testing.T) {
	res, err := NewBranchAndBound().Solve(context.Background(), knapsack(), Options{})

	require.NoError(t, err)
	require.Equal(t, StatusOptimal, res.Status)
	assert.InDelta(t, -3.0, res.Objective, 1e-9)
	assert.Equal(t, []float64{1, 0, 0}, res.Values)
	assert.Greater(t, res.Stats.Nodes, 1, "a fractional root must be branched")
	assert.InDelta(t, -4.0, res.Stats.BestBound, 1e-6, "root bound is the LP optimum")
}

func TestBranchAndBound_IntegerInfeasibleTriangle(t *testing.T) {
	// GIVEN three pairwise equalities that only a fractional point satisfies
	p := NewProblem("triangle")
	x := []int{p.AddBinary("x0", 1), p.AddBinary("x1", 1), p.AddBinary("x2", 1)}
	p.AddConstraint("e01", Equal, 1, Term{x[0], 1}, Term{x[1], 1})
	p.AddConstraint("e12", Equal, 1, Term{x[1], 1}, Term{x[2], 1})
	p.AddConstraint("e02", Equal, 1, Term{x[0], 1}, Term{x[2], 1})

	res, err := NewBranchAndBound().Solve(context.Background(), p, Options{})

	require.NoError(t, err)
	assert.Equal(t, StatusInfeasible, res.Status)
	assert.False(t, res.HasSolution())
}

func TestBranchAndBound_InfeasibleByPropagation(t *testing.T) {
	p := NewProblem("impossible")
	a := p.AddBinary("a", 1)
	b := p.AddBinary("b", 1)
	p.AddConstraint("three", Equal, 3, Term{a, 1}, Term{b, 1})

	res, err := NewBranchAndBound().Solve(context.Background(), p, Options{})

	require.NoError(t, err)
	assert.Equal(t, StatusInfeasible, res.Status)
	assert.Equal(t, 1, res.Stats.Nodes)
}

func TestBranchAndBound_CancelledContext_TimedOut(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := NewBranchAndBound().Solve(ctx, knapsack(), Options{})

	require.NoError(t, err)
	assert.Equal(t, StatusTimedOut, res.Status)
	assert.False(t, res.HasIncumbent)
}

func TestBranchAndBound_NodeLimit_NotSolved(t *testing.T) {
	res, err := NewBranchAndBound().Solve(context.Background(), knapsack(), Options{MaxNodes: 1})

	require.NoError(t, err)
	assert.Equal(t, StatusNotSolved, res.Status)
	assert.Contains(t, res.Detail, "node limit")
}

func TestBranchAndBound_MalformedProblem_ReturnsError(t *testing.T) {
	p := NewProblem("malformed")
	p.AddBinary("a", 1)
	p.AddConstraint("row", Equal, 1, Term{Var: -1, Coef: 1})

	_, err := NewBranchAndBound().Solve(context.Background(), p, Options{})

	assert.Error(t, err)
}

func TestBranchAndBound_NoConstraints_PicksNegativeCosts(t *testing.T) {
	p := NewProblem("free")
	p.AddBinary("gain", -5)
	p.AddBinary("loss", 5)

	res, err := NewBranchAndBound().Solve(context.Background(), p, Options{})

	require.NoError(t, err)
	require.Equal(t, StatusOptimal, res.Status)
	assert.Equal(t, []float64{1, 0}, res.Values)
}

// facilityProblem builds a capacitated facility-location problem with link
// rows marked as cuts, together with a feasible assignment that opens the
// first customers/capacity facilities.
func facilityProblem(facilities, customers, capacity int, seed int64) (*Problem, []float64) {
	rng := rand.New(rand.NewSource(seed))
	p := NewProblem("facility")
	open := make([]int, facilities)
	for f := range open {
		open[f] = p.AddBinary(fmt.Sprintf("open_%d", f), 1000+rng.Float64()*1000)
	}
	assign := make([][]int, facilities)
	for f := range assign {
		assign[f] = make([]int, customers)
		for c := range assign[f] {
			assign[f][c] = p.AddBinary(fmt.Sprintf("assign_%d_%d", f, c), rng.Float64()*500)
		}
	}
	for c := 0; c < customers; c++ {
		terms := make([]Term, facilities)
		for f := range terms {
			terms[f] = Term{assign[f][c], 1}
		}
		p.AddConstraint(fmt.Sprintf("cover_%d", c), Equal, 1, terms...)
	}
	for f := 0; f < facilities; f++ {
		terms := []Term{{open[f], -float64(capacity)}}
		for c := 0; c < customers; c++ {
			terms = append(terms, Term{assign[f][c], 1})
			p.AddCut(fmt.Sprintf("link_%d_%d", f, c), LessEqual, 0, Term{assign[f][c], 1}, Term{open[f], -1})
		}
		p.AddConstraint(fmt.Sprintf("capacity_%d", f), LessEqual, 0, terms...)
	}
	start := make([]float64, p.NumVars())
	for c := 0; c < customers; c++ {
		f := c / capacity
		start[open[f]] = 1
		start[assign[f][c]] = 1
	}
	return p, start
}

func TestBranchAndBound_ViolatedCutIsActivated(t *testing.T) {
	// GIVEN a customer served either through a facility or directly, where the
	// capacity row alone lets the facility be half open
	p := NewProblem("cut")
	y := p.AddBinary("open", 10)
	x := p.AddBinary("via_facility", 1)
	z := p.AddBinary("direct", 8)
	p.AddConstraint("cover", Equal, 1, Term{x, 1}, Term{z, 1})
	p.AddConstraint("capacity", LessEqual, 0, Term{x, 1}, Term{y, -2})
	p.AddCut("link", LessEqual, 0, Term{x, 1}, Term{y, -1})

	// WHEN solved
	res, err := NewBranchAndBound().Solve(context.Background(), p, Options{})

	// THEN the link cut is added and closes the root relaxation without branching
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, res.Status)
	assert.InDelta(t, 8.0, res.Objective, 1e-9)
	assert.Equal(t, []float64{0, 0, 1}, res.Values)
	assert.InDelta(t, 8.0, res.Stats.BestBound, 1e-6)
	assert.Equal(t, 1, res.Stats.Nodes)
	assert.Equal(t, 2, res.Stats.LPSolves, "one solve without the cut, one with it")
}

func TestBranchAndBound_SmallFacilityProblem_MatchesStartOrBetter(t *testing.T) {
	p, start := facilityProblem(4, 8, 3, 3)

	res, err := NewBranchAndBound().Solve(context.Background(), p, Options{Start: start})

	require.NoError(t, err)
	require.Equal(t, StatusOptimal, res.Status)
	assert.LessOrEqual(t, res.Objective, p.Objective(start)+1e-9)
	assert.NoError(t, p.CheckAssignment(res.Values, 1e-6))
}

func TestBranchAndBound_TimeLimit_StopsLongSolveWithStartIncumbent(t *testing.T) {
	// GIVEN a problem whose root relaxation alone takes far longer than the limit
	p, start := facilityProblem(60, 120, 10, 11)
	limit := 50 * time.Millisecond

	// WHEN solved under a time limit on a context that is never cancelled
	began := time.Now()
	res, err := NewBranchAndBound().Solve(context.Background(), p, Options{TimeLimit: limit, Start: start})
	took := time.Since(began)

	// THEN the solve returns promptly with the start as incumbent
	require.NoError(t, err)
	assert.Equal(t, StatusTimedOut, res.Status)
	require.True(t, res.HasIncumbent)
	assert.LessOrEqual(t, res.Objective, p.Objective(start)+1e-9)
	assert.NoError(t, p.CheckAssignment(res.Values, 1e-6))
	assert.Less(t, took, 3*time.Second, "time limit %s was not enforced", limit)
}

func TestBranchAndBound_InvalidStart_Ignored(t *testing.T) {
	res, err := NewBranchAndBound().Solve(context.Background(), knapsack(), Options{Start: []float64{1, 1, 1}})

	require.NoError(t, err)
	require.Equal(t, StatusOptimal, res.Status)
	assert.InDelta(t, -3.0, res.Objective, 1e-9)
}

func TestStatus_String(t *testing.T) {
	tests := map[Status]string{
		StatusOptimal:    "Optimal",
		StatusInfeasible: "Infeasible",
		StatusUnbounded:  "Unbounded",
		StatusTimedOut:   "TimedOut",
		StatusNotSolved:  "NotSolved",
	}
	for status, want := range tests {
		assert.Equal(t, want, status.String())
	}
}
