package main

import (
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/envtrac/chemrisk-cli/internal/export"
	"github.com/envtrac/chemrisk-cli/internal/pipeline"
	"github.com/envtrac/chemrisk-cli/internal/tabular"
)

var (
	exportRows       string
	exportFacilities string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the web JSON document and GeoJSON layer",
	Long: `Joins clean release rows against the scored and flagged facility
records and writes the map document to export.web and the feature
collection to export.geojson.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		rowsPath := exportRows
		if rowsPath == "" {
			rowsPath = cfg.Data.Clean
		}
		facPath := exportFacilities
		if facPath == "" {
			facPath = cfg.Data.Anomaly
		}
		if _, err := os.Stat(rowsPath); os.IsNotExist(err) {
			return eris.Errorf("export: %s does not exist; run 'chemrisk-cli ingest' first", rowsPath)
		}
		if _, err := os.Stat(facPath); os.IsNotExist(err) {
			return eris.Errorf("export: %s does not exist; run 'chemrisk-cli detect' first", facPath)
		}

		rows, err := tabular.ReadReleaseRows(rowsPath)
		if err != nil {
			return eris.Wrap(err, "export: read clean rows")
		}
		records, err := tabular.ReadFacilities(facPath)
		if err != nil {
			return eris.Wrap(err, "export: read facilities")
		}

		resolver, _, err := pipeline.LoadKnowledge(cfg)
		if err != nil {
			return err
		}

		doc := export.Build(resolver, rows, records, time.Now().UTC())
		if err := export.WriteJSON(cfg.Export.Web, doc); err != nil {
			return eris.Wrap(err, "export: write web json")
		}
		if err := export.WriteGeoJSON(cfg.Export.GeoJSON, export.GeoJSON(doc)); err != nil {
			return eris.Wrap(err, "export: write geojson")
		}

		zap.L().Info("export complete",
			zap.Int("facilities", len(doc.Facilities)),
			zap.Int("anomalies", doc.Summary.Anomalies),
			zap.String("web", cfg.Export.Web),
			zap.String("geojson", cfg.Export.GeoJSON),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportRows, "rows", "", "clean rows path (default: data.clean from config)")
	exportCmd.Flags().StringVar(&exportFacilities, "facilities", "", "flagged facilities path (default: data.anomaly from config)")
	rootCmd.AddCommand(exportCmd)
}
