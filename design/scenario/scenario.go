// Package scenario loads planning scenarios: network parameters, costs,
// distance and solver settings, and the RU / DU / CU location lists.
//
// A scenario is a strict YAML document (unknown keys are rejected). It may be
// layered on top of a base scenario such as a preset from defaults.yaml:
// every key present in the file overrides the base, every absent key keeps
// the base value. Location lists come either inline or from CSV files whose
// relative paths are resolved against the scenario file's directory.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	"gopkg.in/yaml.v3"

	"github.com/oran-planner/oran-planner/design"
	"github.com/oran-planner/oran-planner/design/distance"
	"github.com/oran-planner/oran-planner/design/milp"
)

// Scenario is the full configuration of one planning run.
type Scenario struct {
	Name        string `yaml:"name,omitempty"`
	Description string `yaml:"description,omitempty"`
	Seed        int64  `yaml:"seed,omitempty"` // recorded in reports; the engine is deterministic

	Network  NetworkSpec  `yaml:"network"`
	Costs    CostSpec     `yaml:"costs"`
	Distance DistanceSpec `yaml:"distance"`
	Solver   SolverSpec   `yaml:"solver"`
	Expect   ExpectSpec   `yaml:"expect,omitempty"`

	RadioUnits       []LocationSpec `yaml:"radio_units,omitempty"`
	RadioUnitsFile   string         `yaml:"radio_units_file,omitempty"`
	DUCandidates     []LocationSpec `yaml:"du_candidates,omitempty"`
	DUCandidatesFile string         `yaml:"du_candidates_file,omitempty"`
	CUCandidates     []LocationSpec `yaml:"cu_candidates,omitempty"`
	CUCandidatesFile string         `yaml:"cu_candidates_file,omitempty"`

	dir string // base for relative file paths
}

// NetworkSpec holds the ceilings (meters) and capacities.
type NetworkSpec struct {
	MaxDistFH float64 `yaml:"max_dist_fh"`
	MaxDistMH float64 `yaml:"max_dist_mh"`
	CapDU     int     `yaml:"cap_du"`
	CapCU     int     `yaml:"cap_cu"`
}

// CostSpec holds install costs and per-meter fiber costs.
type CostSpec struct {
	DUInstall         float64  `yaml:"du_install"`
	DUInstallExisting *float64 `yaml:"du_install_existing,omitempty"` // nil means du_install
	CUInstallNew      float64  `yaml:"cu_install_new"`
	CUInstallExisting float64  `yaml:"cu_install_existing"`
	FiberFHPerMeter   float64  `yaml:"fiber_fh_per_meter"`
	FiberMHPerMeter   float64  `yaml:"fiber_mh_per_meter"`
}

// DistanceSpec selects the measurement mode.
type DistanceSpec struct {
	Mode         string           `yaml:"mode,omitempty"`
	DetourFactor float64          `yaml:"detour_factor,omitempty"`
	Anchor       *design.Location `yaml:"anchor,omitempty"`
	RoadGraph    RoadGraphSpec    `yaml:"road_graph,omitempty"`
	Cache        string           `yaml:"cache,omitempty"` // SQLite file; empty disables caching
	Workers      int              `yaml:"workers,omitempty"`
}

// RoadGraphSpec names the node and edge CSV files of a road network.
type RoadGraphSpec struct {
	Nodes string `yaml:"nodes,omitempty"`
	Edges string `yaml:"edges,omitempty"`
}

// SolverSpec bounds the search and selects the variable domain.
type SolverSpec struct {
	TimeLimit time.Duration `yaml:"time_limit,omitempty"`
	MaxNodes  int           `yaml:"max_nodes,omitempty"`
	Domain    string        `yaml:"domain,omitempty"`
	Threshold float64       `yaml:"threshold,omitempty"`
}

// ExpectSpec declares how many locations each tier should contain.
type ExpectSpec struct {
	RadioUnits   int `yaml:"radio_units,omitempty"`
	DUCandidates int `yaml:"du_candidates,omitempty"`
	CUCandidates int `yaml:"cu_candidates,omitempty"`
}

// LocationSpec is one row of a location list, inline or CSV.
type LocationSpec struct {
	Lat      float64 `yaml:"lat" csv:"lat"`
	Lon      float64 `yaml:"lon" csv:"lon"`
	Existing bool    `yaml:"existing,omitempty" csv:"existing"`
	Name     string  `yaml:"name,omitempty" csv:"name"`
}

// Load reads a scenario file layered over base (which may be nil). base is
// not modified.
func Load(path string, base *Scenario) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	s, err := Parse(data, base)
	if err != nil {
		return nil, err
	}
	s.dir = filepath.Dir(path)
	return s, nil
}

// Parse decodes scenario YAML over a copy of base. An empty document yields
// the base unchanged. Relative paths resolve against the working directory
// until SetDir is called.
func Parse(data []byte, base *Scenario) (*Scenario, error) {
	var s Scenario
	if base != nil {
		s = base.clone()
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	return &s, nil
}

// SetDir sets the directory that relative file paths are resolved against.
func (s *Scenario) SetDir(dir string) {
	s.dir = dir
}

func (s *Scenario) clone() Scenario {
	c := *s
	if s.Costs.DUInstallExisting != nil {
		v := *s.Costs.DUInstallExisting
		c.Costs.DUInstallExisting = &v
	}
	if s.Distance.Anchor != nil {
		a := *s.Distance.Anchor
		c.Distance.Anchor = &a
	}
	c.RadioUnits = append([]LocationSpec(nil), s.RadioUnits...)
	c.DUCandidates = append([]LocationSpec(nil), s.DUCandidates...)
	c.CUCandidates = append([]LocationSpec(nil), s.CUCandidates...)
	return c
}

// Validate checks that all fields in the scenario are valid.
func (s *Scenario) Validate() error {
	if err := s.Params().Validate(); err != nil {
		return err
	}
	if s.Costs.DUInstallExisting != nil && *s.Costs.DUInstallExisting < 0 {
		return fmt.Errorf("du_install_existing must be non-negative, got %f", *s.Costs.DUInstallExisting)
	}
	opts := distance.Options{
		Mode:         distance.Mode(s.Distance.Mode),
		DetourFactor: s.Distance.DetourFactor,
		Workers:      s.Distance.Workers,
	}
	if !distance.ValidModes[opts.Mode] {
		return fmt.Errorf("unknown distance mode %q; valid: straight-line, road-graph", s.Distance.Mode)
	}
	if opts.DetourFactor != 0 && opts.DetourFactor < 1 {
		return fmt.Errorf("detour_factor must be >= 1, got %f", opts.DetourFactor)
	}
	if opts.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", opts.Workers)
	}
	if s.Distance.Anchor != nil && !s.Distance.Anchor.Valid() {
		return fmt.Errorf("invalid anchor %s", s.Distance.Anchor)
	}
	if opts.EffectiveMode() == distance.ModeRoadGraph {
		if s.Distance.RoadGraph.Nodes == "" || s.Distance.RoadGraph.Edges == "" {
			return fmt.Errorf("road-graph mode requires road_graph.nodes and road_graph.edges")
		}
	}
	if s.Solver.TimeLimit < 0 {
		return fmt.Errorf("time_limit must be non-negative, got %s", s.Solver.TimeLimit)
	}
	if s.Solver.MaxNodes < 0 {
		return fmt.Errorf("max_nodes must be non-negative, got %d", s.Solver.MaxNodes)
	}
	if s.Expect.RadioUnits < 0 || s.Expect.DUCandidates < 0 || s.Expect.CUCandidates < 0 {
		return fmt.Errorf("expect counts must be non-negative")
	}
	tiers := []struct {
		name   string
		inline int
		file   string
	}{
		{"radio_units", len(s.RadioUnits), s.RadioUnitsFile},
		{"du_candidates", len(s.DUCandidates), s.DUCandidatesFile},
		{"cu_candidates", len(s.CUCandidates), s.CUCandidatesFile},
	}
	for _, t := range tiers {
		if t.inline > 0 && t.file != "" {
			return fmt.Errorf("%s: set either the inline list or %s_file, not both", t.name, t.name)
		}
	}
	return nil
}

// Params converts the network and cost sections.
func (s *Scenario) Params() design.Params {
	p := design.NewParams(
		s.Network.MaxDistFH, s.Network.MaxDistMH, s.Network.CapDU, s.Network.CapCU,
		s.Costs.DUInstall, s.Costs.CUInstallNew, s.Costs.CUInstallExisting,
		s.Costs.FiberFHPerMeter, s.Costs.FiberMHPerMeter,
	)
	if s.Costs.DUInstallExisting != nil {
		p.CostInstDUExisting = *s.Costs.DUInstallExisting
	}
	p.Domain = design.Domain(s.Solver.Domain)
	p.Threshold = s.Solver.Threshold
	return p
}

// SolverOptions converts the solver section.
func (s *Scenario) SolverOptions() milp.Options {
	return milp.Options{TimeLimit: s.Solver.TimeLimit, MaxNodes: s.Solver.MaxNodes}
}

// Expectation converts the expect section.
func (s *Scenario) Expectation() design.Expectation {
	return design.Expectation{
		RadioUnits:   s.Expect.RadioUnits,
		DUCandidates: s.Expect.DUCandidates,
		CUCandidates: s.Expect.CUCandidates,
	}
}

// DistanceOptions converts the distance section. graph and cache are the
// already-opened collaborators (either may be nil). A missing anchor falls
// back to distance.DefaultAnchor.
func (s *Scenario) DistanceOptions(graph distance.RoadGraph, cache distance.Cache) (distance.Options, error) {
	anchor := distance.DefaultAnchor
	if s.Distance.Anchor != nil {
		anchor = *s.Distance.Anchor
	}
	namespace, err := s.cacheNamespace()
	if err != nil {
		return distance.Options{}, err
	}
	opts := distance.Options{
		Mode:         distance.Mode(s.Distance.Mode),
		DetourFactor: s.Distance.DetourFactor,
		Anchor:       &anchor,
		Workers:      s.Distance.Workers,
		Cache:        cache,
		Namespace:    namespace,
		Graph:        graph,
	}
	return opts, nil
}

// cacheNamespace separates road-graph measurements taken on different
// graphs. The digest of both CSV files is part of the name, so editing a
// graph in place starts a fresh namespace.
func (s *Scenario) cacheNamespace() (string, error) {
	if distance.Mode(s.Distance.Mode) != distance.ModeRoadGraph {
		return "geodesic", nil
	}
	nodes := s.ResolvePath(s.Distance.RoadGraph.Nodes)
	edges := s.ResolvePath(s.Distance.RoadGraph.Edges)
	h := xxhash.New()
	for _, path := range []string{nodes, edges} {
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("hashing road graph: %w", err)
		}
		_, err = io.Copy(h, f)
		f.Close()
		if err != nil {
			return "", fmt.Errorf("hashing road graph %s: %w", path, err)
		}
		// Separator so moving bytes between the two files changes the digest.
		_, _ = h.Write([]byte{0})
	}
	return fmt.Sprintf("road:%s:%s:%016x", nodes, edges, h.Sum64()), nil
}

// CachePath returns the resolved cache file, or "" when caching is off.
func (s *Scenario) CachePath() string {
	if s.Distance.Cache == "" {
		return ""
	}
	return s.ResolvePath(s.Distance.Cache)
}

// ResolvePath makes p absolute-or-relative to the scenario directory.
func (s *Scenario) ResolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) || s.dir == "" {
		return p
	}
	return filepath.Join(s.dir, p)
}

// Instance assembles the location lists, reading CSV files where configured.
func (s *Scenario) Instance() (design.Instance, error) {
	var inst design.Instance
	rus, err := s.tier("radio_units", s.RadioUnits, s.RadioUnitsFile)
	if err != nil {
		return inst, err
	}
	dus, err := s.tier("du_candidates", s.DUCandidates, s.DUCandidatesFile)
	if err != nil {
		return inst, err
	}
	cus, err := s.tier("cu_candidates", s.CUCandidates, s.CUCandidatesFile)
	if err != nil {
		return inst, err
	}
	for i, r := range rus {
		inst.RadioUnits = append(inst.RadioUnits, design.RadioUnit{
			Index: i, Name: r.Name, Location: design.Location{Lat: r.Lat, Lon: r.Lon},
		})
	}
	inst.DUCandidates = toSites(dus)
	inst.CUCandidates = toSites(cus)
	if err := inst.Validate(); err != nil {
		return inst, err
	}
	return inst, nil
}

func (s *Scenario) tier(name string, inline []LocationSpec, file string) ([]LocationSpec, error) {
	if file == "" {
		return inline, nil
	}
	rows, err := ReadLocations(s.ResolvePath(file))
	if err != nil {
		return nil, fmt.Errorf("%s_file: %w", name, err)
	}
	return rows, nil
}

func toSites(rows []LocationSpec) []design.SiteCandidate {
	out := make([]design.SiteCandidate, len(rows))
	for i, r := range rows {
		out[i] = design.SiteCandidate{
			Index: i, Name: r.Name, Existing: r.Existing,
			Location: design.Location{Lat: r.Lat, Lon: r.Lon},
		}
	}
	return out
}

// LoadRoadGraph reads the configured road network, or returns nil outside
// road-graph mode.
func (s *Scenario) LoadRoadGraph() (*distance.Network, error) {
	if distance.Mode(s.Distance.Mode) != distance.ModeRoadGraph {
		return nil, nil
	}
	return ReadRoadGraph(s.ResolvePath(s.Distance.RoadGraph.Nodes), s.ResolvePath(s.Distance.RoadGraph.Edges))
}
