package pipeline

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/oran-planner/oran-planner/design/distance"
	"github.com/oran-planner/oran-planner/design/distcache"
	"github.com/oran-planner/oran-planner/design/scenario"
)

// FromScenario assembles a Request from a loaded scenario, reading its
// location lists and road graph and opening its distance cache. The returned
// release func closes the cache and is never nil.
func FromScenario(sc *scenario.Scenario) (Request, func(), error) {
	noop := func() {}
	if err := sc.Validate(); err != nil {
		return Request{}, noop, fmt.Errorf("invalid scenario: %w", err)
	}
	inst, err := sc.Instance()
	if err != nil {
		return Request{}, noop, fmt.Errorf("loading locations: %w", err)
	}

	var graph distance.RoadGraph
	network, err := sc.LoadRoadGraph()
	if err != nil {
		return Request{}, noop, fmt.Errorf("loading road graph: %w", err)
	}
	if network != nil {
		graph = network
		logrus.Infof("road graph loaded with %d nodes", network.Len())
	}

	var cache distance.Cache
	release := noop
	if path := sc.CachePath(); path != "" {
		store, err := distcache.Open(path)
		if err != nil {
			return Request{}, noop, fmt.Errorf("opening distance cache: %w", err)
		}
		cache = store
		release = func() {
			if err := store.Close(); err != nil {
				logrus.Warnf("closing distance cache %s: %v", path, err)
			}
		}
	}

	distOpts, err := sc.DistanceOptions(graph, cache)
	if err != nil {
		release()
		return Request{}, noop, err
	}
	return Request{
		Instance:      inst,
		Params:        sc.Params(),
		Expect:        sc.Expectation(),
		Distance:      distOpts,
		SolverOptions: sc.SolverOptions(),
	}, release, nil
}
