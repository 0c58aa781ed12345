package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/oran-planner/oran-planner/design"
	"github.com/oran-planner/oran-planner/design/pipeline"
	"github.com/oran-planner/oran-planner/design/scenario"
	"github.com/oran-planner/oran-planner/design/trace"
)

// writeReport prints the plan in human-readable form: open sites, every
// link with its distance, the cost per component and any repairs.
func writeReport(w io.Writer, sc *scenario.Scenario, out *pipeline.Outcome) {
	fmt.Fprintln(w, "=== Network Design ===")
	if sc.Name != "" {
		fmt.Fprintf(w, "Scenario             : %s\n", sc.Name)
	}
	fmt.Fprintf(w, "Run ID               : %s\n", out.RunID)
	fmt.Fprintf(w, "Status               : %s\n", out.Status)

	if len(out.Diagnosis) > 0 {
		fmt.Fprintln(w, "Likely causes:")
		for _, h := range out.Diagnosis {
			fmt.Fprintf(w, "  - %s\n", h)
		}
	}

	plan := out.Plan()
	if plan == nil {
		return
	}
	if out.Solution == nil {
		fmt.Fprintln(w, "Plan is the best incumbent found, not a proven optimum.")
	}
	inst := out.Instance

	fmt.Fprintf(w, "Active DUs (%d)       : %s\n", len(plan.OpenDUs), siteList(inst.DUCandidates, plan.OpenDUs))
	fmt.Fprintf(w, "Active CUs (%d)       : %s\n", len(plan.OpenCUs), siteList(inst.CUCandidates, plan.OpenCUs))

	fmt.Fprintln(w, "Fronthaul (RU -> DU):")
	for _, l := range plan.Fronthaul {
		fmt.Fprintf(w, "  %-12s -> %-12s %10.1f m\n",
			ruLabel(inst.RadioUnits, l.From), siteLabel("DU", inst.DUCandidates, l.To), l.Distance)
	}
	fmt.Fprintln(w, "Midhaul (DU -> CU):")
	for _, l := range plan.Midhaul {
		fmt.Fprintf(w, "  %-12s -> %-12s %10.1f m\n",
			siteLabel("DU", inst.DUCandidates, l.From), siteLabel("CU", inst.CUCandidates, l.To), l.Distance)
	}

	c := plan.Cost
	fmt.Fprintln(w, "Cost:")
	fmt.Fprintf(w, "  DU installation    : %12.2f\n", c.DUInstall)
	fmt.Fprintf(w, "  CU installation    : %12.2f\n", c.CUInstall)
	fmt.Fprintf(w, "  Fronthaul fiber    : %12.2f\n", c.FronthaulFiber)
	fmt.Fprintf(w, "  Midhaul fiber      : %12.2f\n", c.MidhaulFiber)
	fmt.Fprintf(w, "  Total              : %12.2f\n", c.Total)

	if out.Distances != nil && len(out.Distances.Repairs) > 0 {
		fmt.Fprintln(w, "Repositioned radio units:")
		for _, r := range out.Distances.Repairs {
			fmt.Fprintf(w, "  RU %d %s -> %s (nearest DU %.0f m -> %.0f m)\n",
				r.RU, r.From, r.To, r.NearestBefore, r.NearestAfter)
		}
	}

	if out.Trace.Enabled() {
		s := trace.Summarize(out.Trace)
		fmt.Fprintln(w, "Trace:")
		fmt.Fprintf(w, "  Repairs            : %d (%d unresolved)\n", s.Repairs, s.UnresolvedRepairs)
		fmt.Fprintf(w, "  Disconnected pairs : %d\n", s.DisconnectedPairs)
		fmt.Fprintf(w, "  Solver nodes       : %d\n", s.Nodes)
		fmt.Fprintf(w, "  DU utilization     : mean %.2f, max %.2f\n", s.MeanDUUtilization, s.MaxDUUtilization)
		fmt.Fprintf(w, "  CU utilization     : mean %.2f, max %.2f\n", s.MeanCUUtilization, s.MaxCUUtilization)
	}
}

func siteList(sites []design.SiteCandidate, idx []int) string {
	parts := make([]string, len(idx))
	for n, i := range idx {
		parts[n] = fmt.Sprintf("%d", i)
		if i < len(sites) && sites[i].Name != "" {
			parts[n] += " (" + sites[i].Name + ")"
		}
	}
	return strings.Join(parts, ", ")
}

func ruLabel(rus []design.RadioUnit, i int) string {
	if i < len(rus) && rus[i].Name != "" {
		return rus[i].Name
	}
	return fmt.Sprintf("RU %d", i)
}

func siteLabel(tier string, sites []design.SiteCandidate, i int) string {
	if i < len(sites) && sites[i].Name != "" {
		return sites[i].Name
	}
	return fmt.Sprintf("%s %d", tier, i)
}

// solutionExport is the YAML document written by --output-file.
type solutionExport struct {
	RunID     string                 `yaml:"run_id"`
	Scenario  string                 `yaml:"scenario,omitempty"`
	Seed      int64                  `yaml:"seed,omitempty"`
	Status    string                 `yaml:"status"`
	Optimal   bool                   `yaml:"optimal"`
	Plan      *design.DesignSolution `yaml:"plan,omitempty"`
	Diagnosis []string               `yaml:"diagnosis,omitempty"`
	Repairs   []repairExport         `yaml:"repairs,omitempty"`
}

type repairExport struct {
	RU       int             `yaml:"ru"`
	From     design.Location `yaml:"from"`
	To       design.Location `yaml:"to"`
	Resolved bool            `yaml:"resolved"`
}

func exportOutcome(sc *scenario.Scenario, out *pipeline.Outcome) solutionExport {
	doc := solutionExport{
		RunID:     out.RunID,
		Scenario:  sc.Name,
		Seed:      sc.Seed,
		Status:    out.Status.String(),
		Optimal:   out.Solution != nil,
		Plan:      out.Plan(),
		Diagnosis: out.Diagnosis,
	}
	if out.Distances != nil {
		for _, r := range out.Distances.Repairs {
			doc.Repairs = append(doc.Repairs, repairExport{RU: r.RU, From: r.From, To: r.To, Resolved: r.Resolved})
		}
	}
	return doc
}

// writeSolutionYAML writes the outcome to path.
func writeSolutionYAML(path string, sc *scenario.Scenario, out *pipeline.Outcome) error {
	data, err := yaml.Marshal(exportOutcome(sc, out))
	if err != nil {
		return fmt.Errorf("YAML marshal failed: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing solution file: %w", err)
	}
	return nil
}
