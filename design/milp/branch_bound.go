package milp

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultLPTolerance is the reduced-cost tolerance of the node simplex.
const DefaultLPTolerance = 1e-9

// BranchAndBound is a depth-first branch-and-bound solver. Node relaxations
// are presolved by bound propagation and solved by a bounded primal simplex
// that polls the context between pivots.
type BranchAndBound struct {
	LPTolerance float64
}

// NewBranchAndBound returns a solver with default tolerances.
func NewBranchAndBound() *BranchAndBound {
	return &BranchAndBound{LPTolerance: DefaultLPTolerance}
}

type bbNode struct {
	fixed []int8
	depth int
}

// Solve implements Solver.
func (s *BranchAndBound) Solve(ctx context.Context, p *Problem, opts Options) (*Result, error) {
	if p == nil {
		return nil, fmt.Errorf("milp: nil problem")
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("milp: %w", err)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.TimeLimit > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.TimeLimit)
		defer cancel()
	}
	lpTol := s.LPTolerance
	if lpTol <= 0 {
		lpTol = DefaultLPTolerance
	}
	tol := opts.tolerance()
	start := time.Now()

	root := make([]int8, len(p.Vars))
	for i := range root {
		root[i] = varFree
	}
	stack := []bbNode{{fixed: root}}

	var (
		stats      Stats
		incumbent  []float64
		incObj     = math.Inf(1)
		timedOut   bool
		nodeLimit  bool
		unbounded  bool
		incomplete error
	)
	stats.BestBound = math.Inf(-1)
	if opts.Start != nil {
		if err := p.CheckAssignment(opts.Start, tol*10); err != nil {
			logrus.Debugf("milp: start assignment ignored: %v", err)
		} else {
			incumbent = roundBinary(opts.Start)
			incObj = p.Objective(incumbent)
			logrus.Debugf("milp: starting from incumbent %.4f", incObj)
		}
	}
	active := make([]bool, len(p.Constraints))

	for len(stack) > 0 {
		if ctx.Err() != nil {
			timedOut = true
			break
		}
		if opts.MaxNodes > 0 && stats.Nodes >= opts.MaxNodes {
			nodeLimit = true
			break
		}
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		stats.Nodes++

		rel, err := relax(ctx, p, node.fixed, active, tol, lpTol)
		if err != nil && ctx.Err() != nil {
			timedOut = true
			break
		}
		if err != nil {
			// The subtree cannot be pruned without a bound; keep searching
			// elsewhere but give up the optimality proof.
			logrus.Debugf("milp: node at depth %d not solved: %v", node.depth, err)
			incomplete = err
			continue
		}
		stats.LPSolves += rel.lpSolves
		if node.depth == 0 && rel.status == relaxOptimal {
			stats.BestBound = rel.objective
		}
		if rel.status == relaxInfeasible {
			continue
		}
		if rel.status == relaxUnbounded {
			unbounded = true
			break
		}
		if rel.objective >= incObj-pruneGap(incObj) {
			continue
		}

		branch := mostFractional(rel.values, tol)
		if branch < 0 {
			vals := roundBinary(rel.values)
			if err := p.CheckAssignment(vals, tol*10); err != nil {
				logrus.Debugf("milp: rounded relaxation rejected at depth %d: %v", node.depth, err)
				incomplete = err
				continue
			}
			obj := p.Objective(vals)
			if obj < incObj {
				incumbent, incObj = vals, obj
				logrus.Debugf("milp: new incumbent %.4f after %d nodes", obj, stats.Nodes)
			}
			continue
		}

		down := append([]int8(nil), node.fixed...)
		up := append([]int8(nil), node.fixed...)
		down[branch] = varZero
		up[branch] = varOne
		stack = append(stack, bbNode{fixed: down, depth: node.depth + 1}, bbNode{fixed: up, depth: node.depth + 1})
	}
	stats.Elapsed = time.Since(start)

	res := &Result{Stats: stats}
	if incumbent != nil {
		res.Values = incumbent
		res.Objective = incObj
		res.HasIncumbent = true
	}
	switch {
	case unbounded:
		res.Status = StatusUnbounded
		res.HasIncumbent = false
		res.Values = nil
	case timedOut:
		res.Status = StatusTimedOut
		res.Detail = fmt.Sprintf("stopped after %d nodes (%s)", stats.Nodes, stats.Elapsed.Round(time.Millisecond))
	case nodeLimit:
		res.Status = StatusNotSolved
		res.Detail = fmt.Sprintf("node limit %d reached", opts.MaxNodes)
	case incomplete != nil:
		res.Status = StatusNotSolved
		res.Detail = incomplete.Error()
	case incumbent != nil:
		res.Status = StatusOptimal
	default:
		res.Status = StatusInfeasible
	}
	return res, nil
}

func pruneGap(incumbent float64) float64 {
	if math.IsInf(incumbent, 1) {
		return 0
	}
	return 1e-9 * math.Max(1, math.Abs(incumbent))
}

// mostFractional returns the variable whose value is closest to 0.5, or -1
// when every value is integral. Ties go to the lowest index.
func mostFractional(values []float64, tol float64) int {
	best, arg := tol, -1
	for i, v := range values {
		frac := math.Min(v, 1-v)
		if frac > best {
			best, arg = frac, i
		}
	}
	return arg
}

func roundBinary(values []float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if v >= 0.5 {
			out[i] = 1
		}
	}
	return out
}
