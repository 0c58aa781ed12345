package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/oran-planner/oran-planner/design/scenario"
)

// Config represents the full defaults.yaml structure.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type Config struct {
	Version string                       `yaml:"version"`
	Presets map[string]scenario.Scenario `yaml:"presets"`
}

// loadDefaultsConfig parses defaults.yaml into a Config struct with strict
// field checking, so a typo in a preset is an error rather than a silent default.
func loadDefaultsConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading defaults file: %w", err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing defaults YAML %s: %w", path, err)
	}
	return cfg, nil
}

// loadPreset returns the named preset with relative paths resolved against
// the defaults file's directory.
func loadPreset(path, name string) (*scenario.Scenario, error) {
	cfg, err := loadDefaultsConfig(path)
	if err != nil {
		return nil, err
	}
	preset, ok := cfg.Presets[name]
	if !ok {
		return nil, fmt.Errorf("unknown preset %q in %s; available: %v", name, path, presetNames(cfg))
	}
	preset.SetDir(filepath.Dir(path))
	return &preset, nil
}

func presetNames(cfg Config) []string {
	names := make([]string, 0, len(cfg.Presets))
	for name := range cfg.Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// loadScenario layers the scenario file over the preset, if one is named.
func loadScenario(scenarioPath, defaultsPath, preset string) (*scenario.Scenario, error) {
	var base *scenario.Scenario
	if preset != "" {
		p, err := loadPreset(defaultsPath, preset)
		if err != nil {
			return nil, err
		}
		base = p
	}
	if scenarioPath == "" {
		if base == nil {
			return nil, fmt.Errorf("either --scenario or --preset is required")
		}
		return base, nil
	}
	return scenario.Load(scenarioPath, base)
}
