package design

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInconsistentSolution is returned when an extracted topology breaks a network invariant.
var ErrInconsistentSolution = errors.New("design: extracted solution violates network invariants")

// InsufficientCandidatesError reports a tier with fewer sites than required.
type InsufficientCandidatesError struct {
	Tier   string // "radio units", "DU candidates" or "CU candidates"
	Have   int
	Need   int
	Reason string
}

func (e *InsufficientCandidatesError) Error() string {
	return fmt.Sprintf("insufficient %s: have %d, need %d (%s)", e.Tier, e.Have, e.Need, e.Reason)
}

// UnreachableDemandError lists RUs with no usable DU, detected before model construction.
type UnreachableDemandError struct {
	RadioUnits []int
	Reason     string
}

func (e *UnreachableDemandError) Error() string {
	return fmt.Sprintf("%d radio unit(s) cannot be served %v: %s", len(e.RadioUnits), e.RadioUnits, e.Reason)
}

// InfeasibleError is the typed form of an Infeasible solver outcome.
type InfeasibleError struct {
	Hints []string
}

func (e *InfeasibleError) Error() string {
	if len(e.Hints) == 0 {
		return "network design model is infeasible"
	}
	return "network design model is infeasible: " + strings.Join(e.Hints, "; ")
}

// NotSolvedError reports a solve that ended without proving optimality.
type NotSolvedError struct {
	Status       string
	HasIncumbent bool
	Detail       string
}

func (e *NotSolvedError) Error() string {
	msg := fmt.Sprintf("solver finished with status %s", e.Status)
	if e.HasIncumbent {
		msg += " (incumbent available)"
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}
