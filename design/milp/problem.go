// Package milp describes pure-binary linear programs and the solvers that accept them.
//
// A Problem is built incrementally with AddBinary and AddConstraint and then
// handed to a Solver. The package has no dependency on the design package; it
// knows nothing about radio units or sites.
package milp

import (
	"fmt"
	"math"
)

// Sense is the relation of a constraint row to its right-hand side.
type Sense int

const (
	LessEqual Sense = iota
	Equal
	GreaterEqual
)

func (s Sense) String() string {
	switch s {
	case LessEqual:
		return "<="
	case Equal:
		return "="
	case GreaterEqual:
		return ">="
	default:
		return fmt.Sprintf("Sense(%d)", int(s))
	}
}

// Term is one coefficient of a constraint row.
type Term struct {
	Var  int
	Coef float64
}

// Variable is a binary decision variable with its objective coefficient.
type Variable struct {
	Name string
	Cost float64
}

// Constraint is a linear row: Σ terms (sense) RHS.
//
// A Cut row holds at every binary point that satisfies the other rows; it
// only tightens relaxations. Solvers may leave it out until it is violated.
type Constraint struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
	Cut   bool
}

// Problem is a minimization over binary variables.
type Problem struct {
	Name        string
	Vars        []Variable
	Constraints []Constraint
}

// NewProblem creates an empty minimization problem.
func NewProblem(name string) *Problem {
	return &Problem{Name: name}
}

// AddBinary appends a binary variable and returns its index.
func (p *Problem) AddBinary(name string, cost float64) int {
	p.Vars = append(p.Vars, Variable{Name: name, Cost: cost})
	return len(p.Vars) - 1
}

// AddConstraint appends a row and returns its index.
// Repeated variables are merged and zero coefficients dropped.
func (p *Problem) AddConstraint(name string, sense Sense, rhs float64, terms ...Term) int {
	merged := make([]Term, 0, len(terms))
	pos := make(map[int]int, len(terms))
	for _, t := range terms {
		if k, ok := pos[t.Var]; ok {
			merged[k].Coef += t.Coef
			continue
		}
		pos[t.Var] = len(merged)
		merged = append(merged, t)
	}
	kept := merged[:0]
	for _, t := range merged {
		if t.Coef != 0 {
			kept = append(kept, t)
		}
	}
	p.Constraints = append(p.Constraints, Constraint{Name: name, Terms: kept, Sense: sense, RHS: rhs})
	return len(p.Constraints) - 1
}

// AddCut appends a row like AddConstraint and marks it as a Cut.
func (p *Problem) AddCut(name string, sense Sense, rhs float64, terms ...Term) int {
	ci := p.AddConstraint(name, sense, rhs, terms...)
	p.Constraints[ci].Cut = true
	return ci
}

// NumVars returns the number of variables.
func (p *Problem) NumVars() int { return len(p.Vars) }

// Validate checks variable references and that every coefficient is finite.
func (p *Problem) Validate() error {
	for i, v := range p.Vars {
		if math.IsNaN(v.Cost) || math.IsInf(v.Cost, 0) {
			return fmt.Errorf("variable %q (%d): cost must be finite, got %f", v.Name, i, v.Cost)
		}
	}
	for ci, c := range p.Constraints {
		if c.Sense < LessEqual || c.Sense > GreaterEqual {
			return fmt.Errorf("constraint %q (%d): unknown sense %d", c.Name, ci, int(c.Sense))
		}
		if math.IsNaN(c.RHS) || math.IsInf(c.RHS, 0) {
			return fmt.Errorf("constraint %q (%d): rhs must be finite, got %f", c.Name, ci, c.RHS)
		}
		for _, t := range c.Terms {
			if t.Var < 0 || t.Var >= len(p.Vars) {
				return fmt.Errorf("constraint %q (%d): variable index %d out of range", c.Name, ci, t.Var)
			}
			if math.IsNaN(t.Coef) || math.IsInf(t.Coef, 0) {
				return fmt.Errorf("constraint %q (%d): coefficient of %q must be finite", c.Name, ci, p.Vars[t.Var].Name)
			}
		}
	}
	return nil
}

// Objective evaluates the objective at values.
func (p *Problem) Objective(values []float64) float64 {
	total := 0.0
	for i, v := range p.Vars {
		total += v.Cost * values[i]
	}
	return total
}

// Activity evaluates the left-hand side of a constraint at values.
func (c *Constraint) Activity(values []float64) float64 {
	total := 0.0
	for _, t := range c.Terms {
		total += t.Coef * values[t.Var]
	}
	return total
}

// Satisfied reports whether the row holds at values within tol.
func (c *Constraint) Satisfied(values []float64, tol float64) bool {
	act := c.Activity(values)
	switch c.Sense {
	case LessEqual:
		return act <= c.RHS+tol
	case GreaterEqual:
		return act >= c.RHS-tol
	default:
		return math.Abs(act-c.RHS) <= tol
	}
}

// CheckAssignment verifies that values is binary and satisfies every row.
func (p *Problem) CheckAssignment(values []float64, tol float64) error {
	if len(values) != len(p.Vars) {
		return fmt.Errorf("assignment has %d values, problem has %d variables", len(values), len(p.Vars))
	}
	for i, v := range values {
		if math.Abs(v) > tol && math.Abs(v-1) > tol {
			return fmt.Errorf("variable %q is not binary: %f", p.Vars[i].Name, v)
		}
	}
	for ci := range p.Constraints {
		c := &p.Constraints[ci]
		if !c.Satisfied(values, tol) {
			return fmt.Errorf("constraint %q violated: activity %f %s %f", c.Name, c.Activity(values), c.Sense, c.RHS)
		}
	}
	return nil
}
