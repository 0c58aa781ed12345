package distcache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oran-planner/oran-planner/design"
	"github.com/oran-planner/oran-planner/design/distance"
)

var _ distance.Cache = (*Store)(nil)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache", "distances.db")
	s, err := Open(path)
	require.NoError(t, err)
	return s, path
}

func TestStore_SetGet_RoundTrip(t *testing.T) {
	s, _ := openTemp(t)
	defer s.Close()
	ctx := context.Background()
	a := design.Location{Lat: -12.99, Lon: -38.51}
	b := design.Location{Lat: -13.01, Lon: -38.49}

	_, ok, err := s.Get(ctx, "ns", a, b)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Put(ctx, "ns", []distance.Measurement{{Origin: a, Dest: b, Meters: 3141.5}}))
	v, ok, err := s.Get(ctx, "ns", a, b)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 3141.5, v, 1e-9)

	// direction and namespace are part of the key
	_, ok, _ = s.Get(ctx, "ns", b, a)
	assert.False(t, ok)
	_, ok, _ = s.Get(ctx, "other", a, b)
	assert.False(t, ok)
}

func TestStore_RoundsCoordinates(t *testing.T) {
	s, _ := openTemp(t)
	defer s.Close()
	ctx := context.Background()
	a := design.Location{Lat: -12.990001, Lon: -38.51}
	b := design.Location{Lat: -13.01, Lon: -38.49}

	require.NoError(t, s.Put(ctx, "ns", []distance.Measurement{{Origin: a, Dest: b, Meters: 10}}))
	v, ok, err := s.Get(ctx, "ns", design.Location{Lat: -12.99, Lon: -38.51}, b)

	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 10.0, v, 1e-9)
}

func TestStore_SurvivesReopen(t *testing.T) {
	// GIVEN a store with one entry that is closed
	s, path := openTemp(t)
	ctx := context.Background()
	a := design.Location{Lat: 1, Lon: 2}
	b := design.Location{Lat: 3, Lon: 4}
	require.NoError(t, s.SetBatch(ctx, []Entry{
		{Namespace: "ns", Origin: a, Dest: b, Meters: 42},
		{Namespace: "ns", Origin: b, Dest: a, Meters: 43},
	}))
	require.NoError(t, s.Close())

	// WHEN reopened
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	// THEN the entries are still there
	v, ok, err := s.Get(ctx, "ns", a, b)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 42.0, v, 1e-9)
	n, err := s.Len(ctx, "ns")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestStore_Clear(t *testing.T) {
	s, _ := openTemp(t)
	defer s.Close()
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, "ns", []distance.Measurement{{Origin: design.Location{}, Dest: design.Location{Lat: 1}, Meters: 1}}))

	require.NoError(t, s.Clear(ctx))

	n, err := s.Len(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_RejectsInvalidDistance(t *testing.T) {
	s, _ := openTemp(t)
	defer s.Close()
	err := s.Put(context.Background(), "ns", []distance.Measurement{{Origin: design.Location{}, Dest: design.Location{Lat: 1}, Meters: -5}})
	assert.Error(t, err)
}

func TestStore_AsBuilderCache(t *testing.T) {
	// GIVEN a builder backed by the SQLite store
	s, _ := openTemp(t)
	defer s.Close()
	anchor := design.Location{Lat: -13.0025, Lon: -38.5085}
	inst := design.Instance{
		RadioUnits:   []design.RadioUnit{{Index: 0, Location: design.Location{Lat: -13.0, Lon: -38.50}}},
		DUCandidates: []design.SiteCandidate{{Index: 0, Location: design.Location{Lat: -13.01, Lon: -38.50}}},
		CUCandidates: []design.SiteCandidate{{Index: 0, Location: design.Location{Lat: -13.02, Lon: -38.50}}},
	}
	params := design.NewParams(3500, 9000, 8, 4, 2000, 5000, 0, 1, 1)
	b, err := distance.NewBuilder(params, distance.Options{Anchor: &anchor, Cache: s, Namespace: "salvador"})
	require.NoError(t, err)

	// WHEN built twice
	first, err := b.Build(context.Background(), inst)
	require.NoError(t, err)
	second, err := b.Build(context.Background(), inst)
	require.NoError(t, err)

	// THEN the second build is served from SQLite with identical values
	assert.Equal(t, 2, second.CacheHits)
	assert.InDelta(t, first.RUDU.At(0, 0), second.RUDU.At(0, 0), 1e-9)
	assert.InDelta(t, first.DUCU.At(0, 0), second.DUCU.At(0, 0), 1e-9)
}
