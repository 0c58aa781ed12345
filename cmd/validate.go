package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/oran-planner/oran-planner/design"
	"github.com/oran-planner/oran-planner/design/distance"
	"github.com/oran-planner/oran-planner/design/pipeline"
)

// validateCmd runs every check that precedes the solver.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a scenario without solving it",
	Long:  "Parse the scenario strictly, check candidate counts against capacities, build the distance matrices and confirm every radio unit can reach a DU with a CU uplink.",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()
		if err := validateScenario(context.Background(), os.Stdout, scenarioPath, defaultsFilePath, presetName); err != nil {
			logrus.Fatalf("Scenario is not valid: %v", err)
		}
	},
}

func validateScenario(ctx context.Context, w io.Writer, scenarioPath, defaultsPath, preset string) error {
	sc, err := loadScenario(scenarioPath, defaultsPath, preset)
	if err != nil {
		return err
	}
	req, release, err := pipeline.FromScenario(sc)
	defer release()
	if err != nil {
		return err
	}
	if err := design.CheckCandidates(req.Instance, req.Params, req.Expect); err != nil {
		return err
	}
	builder, err := distance.NewBuilder(req.Params, req.Distance)
	if err != nil {
		return err
	}
	mats, err := builder.Build(ctx, req.Instance)
	if err != nil {
		return err
	}
	if unresolved := mats.Unresolved(); len(unresolved) > 0 {
		return &design.UnreachableDemandError{RadioUnits: unresolved, Reason: "out of fronthaul range even after moving to the anchor"}
	}
	if err := design.CheckReachability(mats.RUDU, mats.DUCU, req.Params); err != nil {
		return err
	}
	fmt.Fprintf(w, "Scenario OK: %d radio units, %d DU candidates, %d CU candidates, %d repairs, %d disconnected pairs\n",
		len(req.Instance.RadioUnits), len(req.Instance.DUCandidates), len(req.Instance.CUCandidates),
		len(mats.Repairs), mats.DisconnectedFH+mats.DisconnectedMH)
	return nil
}

func init() {
	addScenarioFlags(validateCmd)
	rootCmd.AddCommand(validateCmd)
}
