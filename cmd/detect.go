package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/envtrac/chemrisk-cli/internal/anomaly"
	"github.com/envtrac/chemrisk-cli/internal/model"
	"github.com/envtrac/chemrisk-cli/internal/tabular"
)

var (
	detectInput  string
	detectOutput string
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Flag anomalous facilities among the scored records",
	Long: `Runs the anomaly ensemble over scored facilities and writes the
records, now carrying anomaly flags and confidences, to the data.anomaly
path. Flagged facilities print to stdout.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		input := detectInput
		if input == "" {
			input = cfg.Data.Risk
		}
		if _, err := os.Stat(input); os.IsNotExist(err) {
			return eris.Errorf("detect: %s does not exist; run 'chemrisk-cli score' first", input)
		}

		records, err := tabular.ReadFacilities(input)
		if err != nil {
			return eris.Wrap(err, "detect: read facilities")
		}

		detector := anomaly.NewDetector(anomaly.Options{
			Variant:               model.Variant(cfg.Model.Variant),
			Seed:                  cfg.Model.Seed,
			SampleSize:            cfg.Model.SampleSize,
			GlobalTrees:           cfg.Model.Trees,
			GlobalContamination:   cfg.Model.ContaminationGlobal,
			IndustryTrees:         cfg.Model.IndustryTrees,
			IndustryContamination: cfg.Model.ContaminationIndustry,
			IndustryMinGroup:      cfg.Model.IndustryMinGroup,
			RiskPercentile:        cfg.Model.RiskPercentile,
		})
		flagged, err := detector.Detect(records)
		if err != nil {
			return eris.Wrap(err, "detect")
		}
		if err := tabular.WriteFacilities(cfg.Data.Anomaly, records); err != nil {
			return eris.Wrap(err, "detect: write facilities")
		}

		zap.L().Info("detection complete",
			zap.Int("facilities", len(records)),
			zap.Int("flagged", flagged),
			zap.String("output", cfg.Data.Anomaly),
		)

		anomalies := make([]model.FacilityRecord, 0, flagged)
		for _, r := range records {
			if r.Anomaly {
				anomalies = append(anomalies, r)
			}
		}
		return outputFacilities(os.Stdout, anomalies, detectOutput, 0)
	},
}

func init() {
	detectCmd.Flags().StringVar(&detectInput, "input", "", "scored facilities path (default: data.risk from config)")
	detectCmd.Flags().StringVar(&detectOutput, "output", "table", "stdout format: table, csv, or json")
	rootCmd.AddCommand(detectCmd)
}
