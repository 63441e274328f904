package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/envtrac/chemrisk-cli/internal/ingest"
	"github.com/envtrac/chemrisk-cli/internal/tabular"
)

var (
	ingestInput   string
	ingestCharset string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Clean a raw disclosure extract into release rows",
	Long: `Reads a raw extract (CSV or XLSX by extension), normalizes headers
and quantities, drops rows without a facility id, and writes the clean
release rows to the data.clean path.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		input := ingestInput
		if input == "" {
			input = cfg.Data.Raw
		}
		if _, err := os.Stat(input); os.IsNotExist(err) {
			return eris.Errorf("ingest: %s does not exist; run 'chemrisk-cli fetch' or 'chemrisk-cli sample' first", input)
		}

		res, err := ingest.Clean(ctx, input, ingest.Options{Charset: ingestCharset})
		if err != nil {
			return eris.Wrap(err, "ingest")
		}
		if err := tabular.WriteReleaseRows(cfg.Data.Clean, res.Rows); err != nil {
			return eris.Wrap(err, "ingest: write clean rows")
		}

		zap.L().Info("ingest complete",
			zap.String("input", input),
			zap.String("output", cfg.Data.Clean),
			zap.Int("rows", len(res.Rows)),
			zap.Int("dropped", res.Dropped),
		)
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestInput, "input", "", "raw extract path (default: data.raw from config)")
	ingestCmd.Flags().StringVar(&ingestCharset, "charset", "", "transcode CSV input from this charset (e.g. latin1)")
	rootCmd.AddCommand(ingestCmd)
}
