package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/oran-planner/oran-planner/design"
)

// salvadorScenario places two radio units a few hundred meters from DU 0 and
// the existing CU. DU 1 is out of fronthaul range of both.
func salvadorScenario(capDU int) string {
	return fmt.Sprintf(`
name: salvador-test
network: {max_dist_fh: 3500, max_dist_mh: 9000, cap_du: %d, cap_cu: 2}
costs:
  du_install: 2000
  cu_install_new: 10000
  cu_install_existing: 0
  fiber_fh_per_meter: 1.5
  fiber_mh_per_meter: 1.5
distance:
  mode: straight-line
  detour_factor: 1.3
radio_units:
  - {lat: -13.0000, lon: -38.5000, name: ru-a}
  - {lat: -13.0000, lon: -38.5020, name: ru-b}
du_candidates:
  - {lat: -13.0010, lon: -38.5010, name: du-hub}
  - {lat: -13.1000, lon: -38.5000}
cu_candidates:
  - {lat: -13.0030, lon: -38.5010, existing: true, name: sti}
`, capDU)
}

func writeScenario(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRunPlan_OptimalWritesReportAndExports(t *testing.T) {
	// GIVEN a feasible scenario and both export files requested
	path := writeScenario(t, salvadorScenario(2))
	dir := t.TempDir()
	opts := runOptions{
		ScenarioPath: path,
		OutputFile:   filepath.Join(dir, "solution.yaml"),
		MetricsFile:  filepath.Join(dir, "planner.prom"),
		TraceLevel:   "events",
	}
	var buf bytes.Buffer

	// WHEN the plan runs
	err := runPlan(context.Background(), &buf, opts)

	// THEN the report names the hub and both exports are written
	require.NoError(t, err)
	report := buf.String()
	assert.Contains(t, report, "Status               : Optimal")
	assert.Contains(t, report, "Active DUs (1)       : 0 (du-hub)")
	assert.Contains(t, report, "ru-a")
	assert.Contains(t, report, "Trace:")

	data, err := os.ReadFile(opts.OutputFile)
	require.NoError(t, err)
	var doc struct {
		Status  string `yaml:"status"`
		Optimal bool   `yaml:"optimal"`
		Plan    struct {
			OpenDUs []int `yaml:"open_dus"`
			OpenCUs []int `yaml:"open_cus"`
		} `yaml:"plan"`
	}
	require.NoError(t, yaml.Unmarshal(data, &doc))
	assert.Equal(t, "Optimal", doc.Status)
	assert.True(t, doc.Optimal)
	assert.Equal(t, []int{0}, doc.Plan.OpenDUs)
	assert.Equal(t, []int{0}, doc.Plan.OpenCUs)

	prom, err := os.ReadFile(opts.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `oran_planner_solve_outcomes_total{status="Optimal"} 1`)
}

func TestRunPlan_InfeasibleReportsCauses(t *testing.T) {
	// GIVEN both radio units captive on DU 0 with cap_du=1
	path := writeScenario(t, salvadorScenario(1))
	var buf bytes.Buffer

	// WHEN the plan runs
	err := runPlan(context.Background(), &buf, runOptions{ScenarioPath: path, TraceLevel: "none", AcceptIncumbent: true})

	// THEN the error is typed and the report lists the captive DU
	var infeasible *design.InfeasibleError
	require.True(t, errors.As(err, &infeasible))
	assert.Contains(t, buf.String(), "Likely causes:")
	assert.Contains(t, buf.String(), "can only reach DU 0")
}

func TestRunPlan_InvalidTraceLevel(t *testing.T) {
	err := runPlan(context.Background(), &bytes.Buffer{}, runOptions{ScenarioPath: "unused.yaml", TraceLevel: "verbose"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown trace level")
}

func TestRunPlan_UnknownScenarioKeyFails(t *testing.T) {
	// GIVEN a scenario with a misspelled section
	path := writeScenario(t, salvadorScenario(2)+"solvr: {time_limit: 10s}\n")

	// WHEN the plan runs
	err := runPlan(context.Background(), &bytes.Buffer{}, runOptions{ScenarioPath: path})

	// THEN strict parsing rejects it
	require.Error(t, err)
	assert.Contains(t, err.Error(), "solvr")
}

func TestExportMatrices_Fronthaul(t *testing.T) {
	// GIVEN the two-RU scenario
	path := writeScenario(t, salvadorScenario(2))
	var buf bytes.Buffer

	// WHEN only the fronthaul matrix is exported
	err := exportMatrices(context.Background(), &buf, path, "", "", "fronthaul")

	// THEN there is a header plus one row per RU×DU pair
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "tier,from,to,meters,in_range", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "fronthaul,0,0,"))
	assert.True(t, strings.HasSuffix(lines[1], ",true"))
	assert.True(t, strings.HasSuffix(lines[2], ",false"), "DU 1 is out of range: %s", lines[2])
}

func TestExportMatrices_UnknownTier(t *testing.T) {
	err := exportMatrices(context.Background(), &bytes.Buffer{}, "x.yaml", "", "", "backhaul")
	require.Error(t, err)
}

func TestValidateScenario(t *testing.T) {
	// GIVEN a feasible scenario
	path := writeScenario(t, salvadorScenario(2))
	var buf bytes.Buffer

	// WHEN it is validated
	err := validateScenario(context.Background(), &buf, path, "", "")

	// THEN the summary counts every tier
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Scenario OK: 2 radio units, 2 DU candidates, 1 CU candidates, 0 repairs")
}

func TestValidateScenario_TooFewCandidates(t *testing.T) {
	// GIVEN a scenario that declares more CU candidates than it provides
	path := writeScenario(t, salvadorScenario(2)+"expect: {cu_candidates: 2}\n")

	// WHEN it is validated
	err := validateScenario(context.Background(), &bytes.Buffer{}, path, "", "")

	// THEN the precheck names the tier
	var insufficient *design.InsufficientCandidatesError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, "CU candidates", insufficient.Tier)
}
