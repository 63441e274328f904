package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/envtrac/chemrisk-cli/internal/model"
)

var (
	runInput   string
	runVariant string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: clean, score, detect, export",
	Long: `Executes every stage over the raw extract, records the run and its
phases in the ledger, and prints the run summary as JSON.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		c := *cfg
		if runVariant != "" {
			if !model.Variant(runVariant).Valid() {
				return eris.Errorf("run: invalid variant %q (advanced, legacy)", runVariant)
			}
			c.Model.Variant = runVariant
		}

		input := runInput
		if input == "" {
			input = c.Data.Raw
		}
		if _, err := os.Stat(input); os.IsNotExist(err) {
			return eris.Errorf("run: %s does not exist; run 'chemrisk-cli fetch' or 'chemrisk-cli sample' first", input)
		}

		env, err := initPipeline(ctx, &c)
		if err != nil {
			return err
		}
		defer env.Close()

		summary, err := env.Pipeline.Run(ctx, input)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		zap.L().Info("run complete",
			zap.String("run_id", summary.RunID),
			zap.Int("rows", summary.Rows),
			zap.Int("facilities", summary.Facilities),
			zap.Int("anomalies", summary.Anomalies),
			zap.Float64("max_risk", summary.MaxRisk),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	runCmd.Flags().StringVar(&runInput, "input", "", "raw extract path (default: data.raw from config)")
	runCmd.Flags().StringVar(&runVariant, "variant", "", "model variant: advanced or legacy (default from config)")
	rootCmd.AddCommand(runCmd)
}
