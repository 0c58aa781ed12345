package milp

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// errIterationLimit is returned when the simplex makes no progress within its pivot budget.
var errIterationLimit = errors.New("milp: simplex iteration limit reached")

const (
	// ctxCheckEvery is the number of pivots between context checks.
	ctxCheckEvery = 32
	// blandAfter is the length of a degenerate pivot streak after which
	// pricing falls back to Bland's rule.
	blandAfter  = 50
	pivotTol    = 1e-9
	phaseOneTol = 1e-7
)

// lpRow is Σ coefs[k]·x[cols[k]] (sense) rhs.
type lpRow struct {
	cols  []int
	coefs []float64
	sense Sense
	rhs   float64
}

type lpSolution struct {
	status relaxStatus
	x      []float64
	pivots int
}

// boundedSimplex is a dense-tableau primal simplex over columns bounded by
// [lower, upper]. Structural columns are in [0, 1], so binary bounds never
// become rows. Nonbasic columns rest at one of their bounds.
type boundedSimplex struct {
	m, n    int // rows, columns including slacks and artificials
	tab     *mat.Dense
	rhs     []float64 // values of the basic columns
	basis   []int
	pos     []int // row of a basic column, -1 when nonbasic
	atUpper []bool
	lower   []float64
	upper   []float64
	d       []float64 // reduced costs
	art     []bool

	tol    float64
	pivots int
	limit  int
}

// solveBoundedLP minimizes cost·x subject to rows and 0 <= x <= 1.
// The context is polled between pivots, so a deadline stops a long solve.
func solveBoundedLP(ctx context.Context, cost []float64, rows []lpRow, tol float64) (*lpSolution, error) {
	nx := len(cost)
	m := len(rows)
	if m == 0 {
		x := make([]float64, nx)
		for j, c := range cost {
			if c < 0 {
				x[j] = 1
			}
		}
		return &lpSolution{status: relaxOptimal, x: x}, nil
	}

	// Column layout: structurals, then one slack per inequality, then one
	// artificial per row whose slack cannot start basic.
	n := nx
	slackCol := make([]int, m)
	artCol := make([]int, m)
	for r, row := range rows {
		slackCol[r], artCol[r] = -1, -1
		if row.sense != Equal {
			slackCol[r] = n
			n++
		}
	}
	for r, row := range rows {
		switch {
		case row.sense == LessEqual && row.rhs >= 0:
		case row.sense == GreaterEqual && row.rhs <= 0:
		default:
			artCol[r] = n
			n++
		}
	}

	s := &boundedSimplex{
		m:       m,
		n:       n,
		tab:     mat.NewDense(m, n, nil),
		rhs:     make([]float64, m),
		basis:   make([]int, m),
		pos:     make([]int, n),
		atUpper: make([]bool, n),
		lower:   make([]float64, n),
		upper:   make([]float64, n),
		d:       make([]float64, n),
		art:     make([]bool, n),
		tol:     tol,
		limit:   50*(m+n) + 1000,
	}
	for j := range s.pos {
		s.pos[j] = -1
		s.upper[j] = math.Inf(1)
	}
	for j := 0; j < nx; j++ {
		s.upper[j] = 1
	}

	for r, row := range rows {
		tr := s.tab.RawRowView(r)
		for k, j := range row.cols {
			tr[j] += row.coefs[k]
		}
		if sc := slackCol[r]; sc >= 0 {
			if row.sense == LessEqual {
				tr[sc] = 1
			} else {
				tr[sc] = -1
			}
		}
		b := row.rhs
		basic := slackCol[r]
		if ac := artCol[r]; ac >= 0 {
			s.art[ac] = true
			tr[ac] = 1
			if b < 0 {
				tr[ac] = -1
			}
			basic = ac
		}
		// Scale the row so the basic column has coefficient +1.
		if sign := tr[basic]; sign < 0 {
			for j := range tr {
				tr[j] = -tr[j]
			}
			b = -b
		}
		s.rhs[r] = b
		s.basis[r] = basic
		s.pos[basic] = r
	}

	hasArt := false
	for r := range artCol {
		if artCol[r] >= 0 {
			hasArt = true
			break
		}
	}
	if hasArt {
		phase1 := make([]float64, n)
		for j := range phase1 {
			if s.art[j] {
				phase1[j] = 1
			}
		}
		s.price(phase1)
		st, err := s.iterate(ctx)
		if err != nil {
			return nil, err
		}
		if st == relaxUnbounded {
			return nil, fmt.Errorf("milp: phase one unbounded")
		}
		infeas := 0.0
		for r, j := range s.basis {
			if s.art[j] {
				infeas += s.rhs[r]
			}
		}
		if infeas > phaseOneTol {
			return &lpSolution{status: relaxInfeasible, pivots: s.pivots}, nil
		}
		for j := range s.art {
			if s.art[j] {
				s.upper[j] = 0
				s.atUpper[j] = false
			}
		}
	}

	phase2 := make([]float64, n)
	copy(phase2, cost)
	s.price(phase2)
	st, err := s.iterate(ctx)
	if err != nil {
		return nil, err
	}
	if st == relaxUnbounded {
		return &lpSolution{status: relaxUnbounded, pivots: s.pivots}, nil
	}
	x := make([]float64, nx)
	for j := 0; j < nx; j++ {
		x[j] = math.Min(1, math.Max(0, s.value(j)))
	}
	return &lpSolution{status: relaxOptimal, x: x, pivots: s.pivots}, nil
}

func (s *boundedSimplex) value(j int) float64 {
	if r := s.pos[j]; r >= 0 {
		return s.rhs[r]
	}
	if s.atUpper[j] {
		return s.upper[j]
	}
	return s.lower[j]
}

// price recomputes reduced costs for cost c against the current basis.
func (s *boundedSimplex) price(c []float64) {
	copy(s.d, c)
	for r, b := range s.basis {
		cb := c[b]
		if cb == 0 {
			continue
		}
		tr := s.tab.RawRowView(r)
		for j, a := range tr {
			if a != 0 {
				s.d[j] -= cb * a
			}
		}
	}
	for _, b := range s.basis {
		s.d[b] = 0
	}
}

// entering picks the nonbasic column to move. Dantzig's rule is used until
// degeneracy persists, then the lowest eligible index.
func (s *boundedSimplex) entering(bland bool) int {
	best, arg := s.tol, -1
	for j := 0; j < s.n; j++ {
		if s.pos[j] >= 0 || s.upper[j] <= s.lower[j] {
			continue
		}
		var score float64
		if s.atUpper[j] {
			score = s.d[j]
		} else {
			score = -s.d[j]
		}
		if score <= s.tol {
			continue
		}
		if bland {
			return j
		}
		if score > best {
			best, arg = score, j
		}
	}
	return arg
}

func (s *boundedSimplex) iterate(ctx context.Context) (relaxStatus, error) {
	degenerate := 0
	for {
		if s.pivots%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		if s.pivots > s.limit {
			return 0, errIterationLimit
		}
		bland := degenerate > blandAfter
		q := s.entering(bland)
		if q < 0 {
			return relaxOptimal, nil
		}
		dir := 1.0
		if s.atUpper[q] {
			dir = -1
		}

		theta := s.upper[q] - s.lower[q]
		leave, leaveUpper := -1, false
		bestA := 0.0
		for r := 0; r < s.m; r++ {
			a := dir * s.tab.At(r, q)
			b := s.basis[r]
			var lim float64
			var toUpper bool
			switch {
			case a > pivotTol:
				lim = (s.rhs[r] - s.lower[b]) / a
			case a < -pivotTol && !math.IsInf(s.upper[b], 1):
				lim = (s.upper[b] - s.rhs[r]) / -a
				toUpper = true
			default:
				continue
			}
			if lim < 0 {
				lim = 0
			}
			abs := math.Abs(a)
			tie := leave >= 0 && lim <= theta+1e-12
			if bland {
				tie = tie && b < s.basis[leave]
			} else {
				tie = tie && abs > bestA
			}
			if lim < theta-1e-12 || tie {
				theta, leave, leaveUpper, bestA = lim, r, toUpper, abs
			}
		}
		if math.IsInf(theta, 1) {
			return relaxUnbounded, nil
		}

		if theta > 1e-12 {
			degenerate = 0
		} else {
			degenerate++
		}
		s.pivots++

		for r := 0; r < s.m; r++ {
			if a := s.tab.At(r, q); a != 0 {
				s.rhs[r] -= dir * theta * a
			}
		}
		if leave < 0 {
			s.atUpper[q] = !s.atUpper[q]
			continue
		}

		enterValue := s.lower[q] + theta
		if dir < 0 {
			enterValue = s.upper[q] - theta
		}
		out := s.basis[leave]
		s.pos[out] = -1
		s.atUpper[out] = leaveUpper
		s.pivot(leave, q)
		s.basis[leave] = q
		s.pos[q] = leave
		s.atUpper[q] = false
		s.rhs[leave] = enterValue
	}
}

// pivot makes column q basic in row r. rhs is maintained by the caller.
func (s *boundedSimplex) pivot(r, q int) {
	pr := s.tab.RawRowView(r)
	inv := 1 / pr[q]
	for j := range pr {
		pr[j] *= inv
	}
	pr[q] = 1
	for i := 0; i < s.m; i++ {
		if i == r {
			continue
		}
		ri := s.tab.RawRowView(i)
		f := ri[q]
		if f == 0 {
			continue
		}
		for j, a := range pr {
			if a != 0 {
				ri[j] -= f * a
			}
		}
		ri[q] = 0
	}
	if f := s.d[q]; f != 0 {
		for j, a := range pr {
			if a != 0 {
				s.d[j] -= f * a
			}
		}
	}
	s.d[q] = 0
}
