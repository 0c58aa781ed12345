package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/gocarina/gocsv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/oran-planner/oran-planner/design"
	"github.com/oran-planner/oran-planner/design/distance"
	"github.com/oran-planner/oran-planner/design/pipeline"
)

// matrixRow is one measured pair in the CSV export.
type matrixRow struct {
	Tier    string  `csv:"tier"`
	From    int     `csv:"from"`
	To      int     `csv:"to"`
	Meters  float64 `csv:"meters"`
	InRange bool    `csv:"in_range"`
}

var (
	matrixTier   string
	matrixOutput string
)

// matrixCmd exports the distance matrices the model would be built from.
var matrixCmd = &cobra.Command{
	Use:   "matrix",
	Short: "Compute the RU×DU and DU×CU distance matrices and write them as CSV",
	Long:  "Compute the distance matrices for a scenario (including RU repairs and road-graph disconnections) and write them as long-form CSV. Output goes to stdout unless --output-file is set.",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()
		w := io.Writer(os.Stdout)
		if matrixOutput != "" {
			f, err := os.Create(matrixOutput)
			if err != nil {
				logrus.Fatalf("Creating %s failed: %v", matrixOutput, err)
			}
			defer f.Close()
			w = f
		}
		if err := exportMatrices(context.Background(), w, scenarioPath, defaultsFilePath, presetName, matrixTier); err != nil {
			logrus.Fatalf("Matrix export failed: %v", err)
		}
	},
}

// exportMatrices builds the matrices for a scenario and writes the requested
// tier ("fronthaul", "midhaul" or "all") as CSV.
func exportMatrices(ctx context.Context, w io.Writer, scenarioPath, defaultsPath, preset, tier string) error {
	if tier != "all" && tier != "fronthaul" && tier != "midhaul" {
		return fmt.Errorf("unknown tier %q; valid: all, fronthaul, midhaul", tier)
	}
	sc, err := loadScenario(scenarioPath, defaultsPath, preset)
	if err != nil {
		return err
	}
	req, release, err := pipeline.FromScenario(sc)
	defer release()
	if err != nil {
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

	var rows []matrixRow
	if tier != "midhaul" {
		rows = appendRows(rows, "fronthaul", mats.RUDU, req.Params.MaxDistFH)
	}
	if tier != "fronthaul" {
		rows = appendRows(rows, "midhaul", mats.DUCU, req.Params.MaxDistMH)
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("CSV marshal failed: %w", err)
	}
	return nil
}

func appendRows(rows []matrixRow, tier string, m *design.DistanceMatrix, ceiling float64) []matrixRow {
	for i := 0; i < m.Rows; i++ {
		for j := 0; j < m.Cols; j++ {
			rows = append(rows, matrixRow{Tier: tier, From: i, To: j, Meters: m.At(i, j), InRange: m.Within(i, j, ceiling)})
		}
	}
	return rows
}

func init() {
	addScenarioFlags(matrixCmd)
	matrixCmd.Flags().StringVar(&matrixTier, "tier", "all", "Which matrix to export (all, fronthaul, midhaul)")
	matrixCmd.Flags().StringVar(&matrixOutput, "output-file", "", "Write CSV to this file instead of stdout")

	rootCmd.AddCommand(matrixCmd)
}
