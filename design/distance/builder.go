package distance

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/oran-planner/oran-planner/design"
)

// Builder computes distance matrices for one parameter set.
type Builder struct {
	params   design.Params
	opts     Options
	mode     Mode
	geodesic GeodesicFunc
	detour   float64
	workers  int
}

// NewBuilder validates opts and fills in defaults.
func NewBuilder(params design.Params, opts Options) (*Builder, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if params.MaxDistFH <= 0 {
		return nil, fmt.Errorf("max_dist_fh must be positive, got %f", params.MaxDistFH)
	}
	b := &Builder{
		params:   params,
		opts:     opts,
		mode:     opts.EffectiveMode(),
		geodesic: opts.Geodesic,
		detour:   opts.DetourFactor,
		workers:  opts.Workers,
	}
	if b.geodesic == nil {
		b.geodesic = Haversine
	}
	if b.detour == 0 {
		b.detour = DefaultDetourFactor
	}
	if b.mode == ModeRoadGraph {
		b.detour = 1
	}
	if b.workers == 0 {
		b.workers = runtime.GOMAXPROCS(0)
	}
	return b, nil
}

// endpoint is a location plus its snapped road node (road-graph mode only).
type endpoint struct {
	loc     design.Location
	node    int64
	snapped bool
}

// buildRun holds the per-call counters shared by the row workers.
type buildRun struct {
	*Builder
	namespace string
	pairs     atomic.Int64
	hits      atomic.Int64
	misses    atomic.Int64
	cacheWarn sync.Once
}

// Build measures every RU×DU and DU×CU pair. The input instance is not
// modified; repaired radio units appear only in the returned Matrices.
func (b *Builder) Build(ctx context.Context, inst design.Instance) (*Matrices, error) {
	if err := inst.Validate(); err != nil {
		return nil, fmt.Errorf("invalid instance: %w", err)
	}
	r := &buildRun{Builder: b, namespace: b.opts.Namespace + "|" + string(b.mode)}

	rus := append([]design.RadioUnit(nil), inst.RadioUnits...)
	ruEnds := r.endpoints(inst.RULocations())
	duEnds := r.endpoints(inst.DULocations())
	cuEnds := r.endpoints(inst.CULocations())

	ruDU := design.NewDistanceMatrix(len(rus), len(duEnds))
	repairs := make([]*Repair, len(rus))
	err := r.forEachRow(ctx, len(rus), func(i int) {
		row := ruDU.Row(i)
		r.fillRow(ctx, row, ruEnds[i], duEnds)
		if r.mode != ModeStraightLine {
			return
		}
		before, _ := ruDU.RowMin(i)
		if before <= r.params.MaxDistFH {
			return
		}
		anchor := *r.opts.Anchor
		r.fillRow(ctx, row, endpoint{loc: anchor}, duEnds)
		after, _ := ruDU.RowMin(i)
		repairs[i] = &Repair{
			RU:            i,
			From:          rus[i].Location,
			To:            anchor,
			NearestBefore: before,
			NearestAfter:  after,
			Resolved:      after <= r.params.MaxDistFH,
		}
		rus[i].Location = anchor
	})
	if err != nil {
		return nil, err
	}

	duCU := design.NewDistanceMatrix(len(duEnds), len(cuEnds))
	err = r.forEachRow(ctx, len(duEnds), func(j int) {
		r.fillRow(ctx, duCU.Row(j), duEnds[j], cuEnds)
	})
	if err != nil {
		return nil, err
	}

	out := &Matrices{
		RUDU:        ruDU,
		DUCU:        duCU,
		RadioUnits:  rus,
		Pairs:       int(r.pairs.Load()),
		CacheHits:   int(r.hits.Load()),
		CacheMisses: int(r.misses.Load()),
	}
	for _, rep := range repairs {
		if rep == nil {
			continue
		}
		out.Repairs = append(out.Repairs, *rep)
		logrus.Warnf("distance: RU %d at %s has no DU within %.0fm (nearest %.0fm); moved to anchor %s (nearest %.0fm)",
			rep.RU, rep.From, r.params.MaxDistFH, rep.NearestBefore, rep.To, rep.NearestAfter)
		if !rep.Resolved {
			logrus.Warnf("distance: RU %d is still out of fronthaul range after repair", rep.RU)
		}
	}
	if r.mode == ModeRoadGraph {
		out.DisconnectedFH = countSentinel(ruDU)
		out.DisconnectedMH = countSentinel(duCU)
		if out.DisconnectedFH > 0 {
			logrus.Warnf("distance: %d RU×DU pair(s) have no road path", out.DisconnectedFH)
		}
		if out.DisconnectedMH > 0 {
			logrus.Warnf("distance: %d DU×CU pair(s) have no road path", out.DisconnectedMH)
		}
	}
	logrus.Debugf("distance: %d pairs measured (%d cache hits, %d misses), %d repairs",
		out.Pairs, out.CacheHits, out.CacheMisses, len(out.Repairs))
	return out, nil
}

func (r *buildRun) endpoints(locs []design.Location) []endpoint {
	out := make([]endpoint, len(locs))
	for i, loc := range locs {
		out[i].loc = loc
		if r.mode == ModeRoadGraph {
			out[i].node, out[i].snapped = r.opts.Graph.NearestNode(loc)
		}
	}
	return out
}

// forEachRow runs task for rows 0..n-1 on a fixed pool of workers. Tasks
// write only to their own row.
func (r *buildRun) forEachRow(ctx context.Context, n int, task func(i int)) error {
	rows := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < min(r.workers, n); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range rows {
				task(i)
			}
		}()
	}
	var err error
feed:
	for i := 0; i < n; i++ {
		if err = ctx.Err(); err != nil {
			break
		}
		select {
		case rows <- i:
		case <-ctx.Done():
			err = ctx.Err()
			break feed
		}
	}
	close(rows)
	wg.Wait()
	if err != nil {
		return fmt.Errorf("distance: %w", err)
	}
	return nil
}

// fillRow measures one matrix row and writes its cache misses in one batch.
func (r *buildRun) fillRow(ctx context.Context, row []float64, from endpoint, to []endpoint) {
	var misses []Measurement
	for j := range to {
		raw, hit := r.lookup(ctx, from, to[j])
		if !hit {
			raw = r.raw(from, to[j])
			if r.opts.Cache != nil {
				misses = append(misses, Measurement{Origin: from.loc, Dest: to[j].loc, Meters: raw})
			}
		}
		row[j] = r.scale(raw)
	}
	if len(misses) > 0 {
		if err := r.opts.Cache.Put(ctx, r.namespace, misses); err != nil {
			r.cacheFailed(err)
		}
	}
}

// lookup returns the cached raw distance of one pair.
func (r *buildRun) lookup(ctx context.Context, a, b endpoint) (float64, bool) {
	r.pairs.Add(1)
	cache := r.opts.Cache
	if cache == nil {
		return 0, false
	}
	v, ok, err := cache.Get(ctx, r.namespace, a.loc, b.loc)
	switch {
	case err != nil:
		r.cacheFailed(err)
		return 0, false
	case ok:
		r.hits.Add(1)
		return v, true
	default:
		r.misses.Add(1)
		return 0, false
	}
}

func (r *buildRun) raw(a, b endpoint) float64 {
	if r.mode == ModeStraightLine {
		return r.geodesic(a.loc, b.loc)
	}
	if !a.snapped || !b.snapped {
		return design.Sentinel
	}
	length, ok := r.opts.Graph.ShortestPathLength(a.node, b.node)
	if !ok || length >= design.Sentinel {
		return design.Sentinel
	}
	return length
}

func (r *buildRun) scale(raw float64) float64 {
	if raw >= design.Sentinel {
		return design.Sentinel
	}
	return raw * r.detour
}

func (r *buildRun) cacheFailed(err error) {
	r.cacheWarn.Do(func() {
		logrus.Warnf("distance: cache unavailable, computing directly: %v", err)
	})
}

func countSentinel(m *design.DistanceMatrix) int {
	n := 0
	for i := 0; i < m.Rows; i++ {
		for _, v := range m.Row(i) {
			if v >= design.Sentinel {
				n++
			}
		}
	}
	return n
}
