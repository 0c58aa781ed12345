package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/oran-planner/oran-planner/design/metrics"
	"github.com/oran-planner/oran-planner/design/milp"
	"github.com/oran-planner/oran-planner/design/pipeline"
	"github.com/oran-planner/oran-planner/design/trace"
)

var (
	// CLI flags shared by run, matrix and validate
	scenarioPath     string // Scenario YAML file
	presetName       string // Preset from defaults.yaml the scenario is layered on
	defaultsFilePath string // Path to defaults.yaml
	logLevel         string // Log verbosity level

	// CLI flags for run
	timeLimit       time.Duration // Overrides solver.time_limit when set
	outputFile      string        // YAML solution export
	metricsFile     string        // Prometheus textfile export
	acceptIncumbent bool          // Treat a time-limited incumbent as success
	traceLevel      string        // Plan trace verbosity
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "oran-planner",
	Short: "Plans OpenRAN fronthaul/midhaul networks by cost-minimizing DU/CU placement",
}

// setLogLevel applies --log; an unknown level is fatal.
func setLogLevel() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// runOptions carries the run flags into runPlan.
type runOptions struct {
	ScenarioPath    string
	Preset          string
	DefaultsPath    string
	TimeLimit       time.Duration // 0 keeps the scenario value
	OutputFile      string
	MetricsFile     string
	AcceptIncumbent bool
	TraceLevel      string
}

// runPlan loads the scenario, plans it and writes the report to w. The
// returned error is nil only for an optimal plan, or for an incumbent when
// AcceptIncumbent is set.
func runPlan(ctx context.Context, w io.Writer, opts runOptions) error {
	if !trace.IsValidTraceLevel(opts.TraceLevel) {
		return fmt.Errorf("unknown trace level %q; valid: none, events", opts.TraceLevel)
	}
	sc, err := loadScenario(opts.ScenarioPath, opts.DefaultsPath, opts.Preset)
	if err != nil {
		return err
	}
	if opts.TimeLimit > 0 {
		sc.Solver.TimeLimit = opts.TimeLimit
	}

	req, release, err := pipeline.FromScenario(sc)
	defer release()
	if err != nil {
		return err
	}
	req.TraceLevel = trace.TraceLevel(opts.TraceLevel)

	var collector *metrics.PlanCollector
	if opts.MetricsFile != "" {
		collector, err = metrics.NewPlanCollector(prometheus.NewRegistry())
		if err != nil {
			return fmt.Errorf("registering metrics: %w", err)
		}
		req.Metrics = collector
	}

	logrus.Infof("Planning scenario %q (domain=%s, time limit=%s)", sc.Name, req.Params.EffectiveDomain(), sc.Solver.TimeLimit)
	startTime := time.Now()
	out, err := pipeline.Run(ctx, req)
	if err != nil {
		return err
	}
	logrus.Infof("Planning finished in %s", time.Since(startTime).Round(time.Millisecond))

	writeReport(w, sc, out)
	if opts.OutputFile != "" {
		if err := writeSolutionYAML(opts.OutputFile, sc, out); err != nil {
			return err
		}
	}
	if collector != nil {
		if err := collector.WriteTextfile(opts.MetricsFile); err != nil {
			return err
		}
	}

	if err := out.Err(); err != nil {
		if opts.AcceptIncumbent && out.Incumbent != nil && out.Status != milp.StatusInfeasible {
			logrus.Warnf("Accepting incumbent: %v", err)
			return nil
		}
		return err
	}
	return nil
}

// runCmd plans the network described by the scenario
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Solve the network design for a scenario",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		opts := runOptions{
			ScenarioPath:    scenarioPath,
			Preset:          presetName,
			DefaultsPath:    defaultsFilePath,
			OutputFile:      outputFile,
			MetricsFile:     metricsFile,
			AcceptIncumbent: acceptIncumbent,
			TraceLevel:      traceLevel,
		}
		if cmd.Flags().Changed("time-limit") {
			opts.TimeLimit = timeLimit
		}
		if err := runPlan(ctx, os.Stdout, opts); err != nil {
			logrus.Fatalf("Planning failed: %v", err)
		}
		logrus.Info("Planning complete.")
	},
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// addScenarioFlags registers the flags every scenario-consuming command takes.
func addScenarioFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&scenarioPath, "scenario", "", "Path to scenario YAML")
	cmd.Flags().StringVar(&presetName, "preset", "", "Preset from defaults.yaml to layer the scenario on (e.g., carnaval-v2, pcc-v1)")
	cmd.Flags().StringVar(&defaultsFilePath, "defaults-filepath", "defaults.yaml", "Path to defaults.yaml")
	cmd.Flags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
}

// init sets up CLI flags and subcommands
func init() {
	addScenarioFlags(runCmd)
	runCmd.Flags().DurationVar(&timeLimit, "time-limit", 0, "Solver time limit, overrides solver.time_limit (e.g., 60s)")
	runCmd.Flags().StringVar(&outputFile, "output-file", "", "Write the solution as YAML to this file")
	runCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics in textfile format to this file")
	runCmd.Flags().BoolVar(&acceptIncumbent, "accept-incumbent", false, "Exit successfully with the best incumbent when the solver stops early")
	runCmd.Flags().StringVar(&traceLevel, "trace", "none", "Plan trace level (none, events)")

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}
