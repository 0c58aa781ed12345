package design

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oran-planner/oran-planner/design/milp"
)

// testInstance builds an instance with placeholder coordinates. Matrices are
// supplied separately, so locations only need to be valid.
func testInstance(nRU, nDU int, cuExisting ...bool) Instance {
	var inst Instance
	for i := 0; i < nRU; i++ {
		inst.RadioUnits = append(inst.RadioUnits, RadioUnit{Index: i, Location: Location{Lat: -13, Lon: -38.5}})
	}
	for j := 0; j < nDU; j++ {
		inst.DUCandidates = append(inst.DUCandidates, SiteCandidate{Index: j, Location: Location{Lat: -13, Lon: -38.5}})
	}
	for k, existing := range cuExisting {
		inst.CUCandidates = append(inst.CUCandidates, SiteCandidate{Index: k, Location: Location{Lat: -13, Lon: -38.5}, Existing: existing})
	}
	return inst
}

func mustMatrix(t *testing.T, rows [][]float64) *DistanceMatrix {
	t.Helper()
	m, err := MatrixFromRows(rows)
	require.NoError(t, err)
	return m
}

func solveModel(t *testing.T, m *NetworkDesignModel) *milp.Result {
	t.Helper()
	res, err := milp.NewBranchAndBound().Solve(context.Background(), m.Problem, milp.Options{})
	require.NoError(t, err)
	return res
}

// twoTierFixture has three RUs, two DUs and two CUs (CU 1 pre-existing).
// RU 0 only reaches DU 0, RU 2 only reaches DU 1, and DU 0
// only reaches CU 0, so both DUs and both CUs must open. Optimum:
// DU 2×1000 + CU 500 + fronthaul 100+200+400 + midhaul 500+600 = 4300.
func twoTierFixture(t *testing.T) (Instance, *DistanceMatrix, *DistanceMatrix, Params) {
	t.Helper()
	inst := testInstance(3, 2, false, true)
	ruDU := mustMatrix(t, [][]float64{
		{100, 5000},
		{300, 200},
		{Sentinel, 400},
	})
	duCU := mustMatrix(t, [][]float64{
		{500, 20000},
		{700, 600},
	})
	params := NewParams(3500, 9000, 2, 2, 1000, 500, 0, 1, 1)
	return inst, ruDU, duCU, params
}
