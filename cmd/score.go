package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/envtrac/chemrisk-cli/internal/model"
	"github.com/envtrac/chemrisk-cli/internal/pipeline"
	"github.com/envtrac/chemrisk-cli/internal/risk"
	"github.com/envtrac/chemrisk-cli/internal/tabular"
)

var (
	scoreInput   string
	scoreVariant string
	scoreOutput  string
	scoreTop     int
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score per-facility environmental risk from clean release rows",
	Long: `Aggregates clean release rows per facility, applies toxicity and
proximity weighting, and writes scored facilities to the data.risk path.

Examples:
  # Score with the configured variant, print the top 15
  chemrisk-cli score

  # Legacy variant, full CSV to stdout
  chemrisk-cli score --variant legacy --output csv --top 0`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		input := scoreInput
		if input == "" {
			input = cfg.Data.Clean
		}
		if _, err := os.Stat(input); os.IsNotExist(err) {
			return eris.Errorf("score: %s does not exist; run 'chemrisk-cli ingest' first", input)
		}

		variant := model.Variant(cfg.Model.Variant)
		if scoreVariant != "" {
			variant = model.Variant(scoreVariant)
		}
		if !variant.Valid() {
			return eris.Errorf("score: invalid variant %q (advanced, legacy)", variant)
		}

		rows, err := tabular.ReadReleaseRows(input)
		if err != nil {
			return eris.Wrap(err, "score: read clean rows")
		}

		resolver, locations, err := pipeline.LoadKnowledge(cfg)
		if err != nil {
			return err
		}

		scorer := risk.NewScorer(resolver, locations, risk.Options{
			Variant:     variant,
			Parallelism: cfg.Model.Parallelism,
		})
		records, err := scorer.Score(ctx, rows)
		if err != nil {
			return eris.Wrap(err, "score")
		}
		if err := tabular.WriteFacilities(cfg.Data.Risk, records); err != nil {
			return eris.Wrap(err, "score: write facilities")
		}

		zap.L().Info("scoring complete",
			zap.String("variant", string(variant)),
			zap.Int("rows", len(rows)),
			zap.Int("facilities", len(records)),
			zap.String("output", cfg.Data.Risk),
		)

		return outputFacilities(os.Stdout, records, scoreOutput, scoreTop)
	},
}

func init() {
	scoreCmd.Flags().StringVar(&scoreInput, "input", "", "clean rows path (default: data.clean from config)")
	scoreCmd.Flags().StringVar(&scoreVariant, "variant", "", "model variant: advanced or legacy (default from config)")
	scoreCmd.Flags().StringVar(&scoreOutput, "output", "table", "stdout format: table, csv, or json")
	scoreCmd.Flags().IntVar(&scoreTop, "top", 15, "limit stdout to the N riskiest facilities (0 = all)")
	rootCmd.AddCommand(scoreCmd)
}
