package milp

import (
	"context"
	"fmt"
)

const (
	varFree int8 = -1
	varZero int8 = 0
	varOne  int8 = 1
)

type relaxStatus int

const (
	relaxOptimal relaxStatus = iota
	relaxInfeasible
	relaxUnbounded
)

// relaxation is the LP bound of one branch-and-bound node.
type relaxation struct {
	status    relaxStatus
	values    []float64
	objective float64
	lpSolves  int
}

// rowBounds summarizes a row over the variables that are still free.
type rowBounds struct {
	rhs    float64 // right-hand side after moving fixed variables over
	minAct float64
	maxAct float64
	free   int
}

func boundsOf(c *Constraint, fixed []int8) rowBounds {
	rb := rowBounds{rhs: c.RHS}
	for _, t := range c.Terms {
		switch fixed[t.Var] {
		case varOne:
			rb.rhs -= t.Coef
		case varZero:
		default:
			rb.free++
			if t.Coef > 0 {
				rb.maxAct += t.Coef
			} else {
				rb.minAct += t.Coef
			}
		}
	}
	return rb
}

// propagate fixes variables implied by the rows until nothing changes.
// It returns false when some row can no longer be satisfied.
func propagate(p *Problem, fixed []int8, tol float64) bool {
	for changed := true; changed; {
		changed = false
		for ci := range p.Constraints {
			c := &p.Constraints[ci]
			rb := boundsOf(c, fixed)
			var fixes map[int]int8
			set := func(v int, val int8) bool {
				if fixes == nil {
					fixes = make(map[int]int8)
				}
				if prev, ok := fixes[v]; ok && prev != val {
					return false
				}
				fixes[v] = val
				return true
			}
			if c.Sense != GreaterEqual {
				if rb.minAct > rb.rhs+tol {
					return false
				}
				for _, t := range c.Terms {
					if fixed[t.Var] != varFree {
						continue
					}
					if t.Coef > 0 && rb.minAct+t.Coef > rb.rhs+tol {
						if !set(t.Var, varZero) {
							return false
						}
					} else if t.Coef < 0 && rb.minAct-t.Coef > rb.rhs+tol {
						if !set(t.Var, varOne) {
							return false
						}
					}
				}
			}
			if c.Sense != LessEqual {
				if rb.maxAct < rb.rhs-tol {
					return false
				}
				for _, t := range c.Terms {
					if fixed[t.Var] != varFree {
						continue
					}
					if t.Coef > 0 && rb.maxAct-t.Coef < rb.rhs-tol {
						if !set(t.Var, varOne) {
							return false
						}
					} else if t.Coef < 0 && rb.maxAct+t.Coef < rb.rhs-tol {
						if !set(t.Var, varZero) {
							return false
						}
					}
				}
			}
			for v, val := range fixes {
				fixed[v] = val
				changed = true
			}
		}
	}
	return true
}

// redundant reports whether a row holds for every completion of the free variables.
func redundant(c *Constraint, rb rowBounds, tol float64) bool {
	switch c.Sense {
	case LessEqual:
		return rb.maxAct <= rb.rhs+tol
	case GreaterEqual:
		return rb.minAct >= rb.rhs-tol
	default:
		return rb.free == 0
	}
}

// relax presolves the node by propagation and solves the remaining LP with
// the bounded simplex. Cut rows enter the LP only once active; a violated
// cut is activated and the LP solved again. active is shared by every node
// of a search. fixed is not modified.
func relax(ctx context.Context, p *Problem, fixed []int8, active []bool, tol, lpTol float64) (*relaxation, error) {
	n := len(p.Vars)
	state := append([]int8(nil), fixed...)
	if !propagate(p, state, tol) {
		return &relaxation{status: relaxInfeasible}, nil
	}

	rel := &relaxation{}
	for {
		var rows []lpRow
		inRow := make([]bool, n)
		col := make([]int, n)
		var freeVars []int
		for v := 0; v < n; v++ {
			col[v] = -1
			if state[v] == varFree {
				col[v] = len(freeVars)
				freeVars = append(freeVars, v)
			}
		}
		for ci := range p.Constraints {
			c := &p.Constraints[ci]
			if c.Cut && !active[ci] {
				continue
			}
			rb := boundsOf(c, state)
			if rb.free == 0 || redundant(c, rb, tol) {
				continue
			}
			row := lpRow{sense: c.Sense, rhs: rb.rhs}
			for _, t := range c.Terms {
				if k := col[t.Var]; k >= 0 {
					row.cols = append(row.cols, k)
					row.coefs = append(row.coefs, t.Coef)
					inRow[t.Var] = true
				}
			}
			rows = append(rows, row)
		}

		values := make([]float64, n)
		cost := make([]float64, len(freeVars))
		for v := 0; v < n; v++ {
			switch {
			case state[v] == varOne:
				values[v] = 1
			case state[v] == varFree && !inRow[v] && p.Vars[v].Cost < 0:
				// Free variables outside every row take their cheaper bound.
				values[v] = 1
			}
		}
		for k, v := range freeVars {
			cost[k] = p.Vars[v].Cost
		}

		sol, err := solveBoundedLP(ctx, cost, rows, lpTol)
		if err != nil {
			return nil, fmt.Errorf("milp: lp relaxation: %w", err)
		}
		rel.lpSolves++
		if sol.status != relaxOptimal {
			rel.status = sol.status
			return rel, nil
		}
		for k, v := range freeVars {
			if inRow[v] {
				values[v] = sol.x[k]
			}
		}

		added := 0
		for ci := range p.Constraints {
			c := &p.Constraints[ci]
			if c.Cut && !active[ci] && !c.Satisfied(values, tol) {
				active[ci] = true
				added++
			}
		}
		if added == 0 {
			rel.status = relaxOptimal
			rel.values = values
			rel.objective = p.Objective(values)
			return rel, nil
		}
	}
}
