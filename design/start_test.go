package design

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGreedyStart_TwoTierFixture_IsFeasible(t *testing.T) {
	inst, ruDU, duCU, params := twoTierFixture(t)
	for _, domain := range []Domain{DomainSparse, DomainDense} {
		params.Domain = domain
		m, err := BuildModel(inst, ruDU, duCU, params)
		require.NoError(t, err)

		start, ok := m.GreedyStart()

		require.True(t, ok, "domain %s", domain)
		assert.NoError(t, m.Problem.CheckAssignment(start, 1e-9), "domain %s", domain)
		assert.GreaterOrEqual(t, m.Problem.Objective(start), 4300.0-1e-6)
	}
}

func TestGreedyStart_NoSpareCapacity_ReportsFailure(t *testing.T) {
	// GIVEN two RUs and a single DU that serves one RU
	inst := testInstance(2, 1, true)
	ruDU := mustMatrix(t, [][]float64{{100}, {200}})
	duCU := mustMatrix(t, [][]float64{{300}})
	params := NewParams(3500, 9000, 1, 1, 1000, 500, 0, 1, 1)
	m, err := BuildModel(inst, ruDU, duCU, params)
	require.NoError(t, err)

	_, ok := m.GreedyStart()

	assert.False(t, ok)
}
