package export

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
)

// GeoJSON renders the exported facilities as a WGS84 FeatureCollection.
// Facilities without coordinates are skipped; they cannot be placed on a
// layer.
func GeoJSON(doc *Document) *geojson.FeatureCollection {
	features := make([]*geojson.Feature, 0, len(doc.Facilities))
	for _, fac := range doc.Facilities {
		if fac.Latitude == 0 && fac.Longitude == 0 {
			continue
		}

		props := map[string]interface{}{
			"name":               fac.Name,
			"industry":           fac.Industry,
			"total_release_kg":   fac.TotalReleaseKG,
			"n_chemicals":        fac.ChemicalCount,
			"anomaly":            fac.Anomaly,
			"anomaly_confidence": fac.AnomalyConfidence,
			"proximity_risk":     fac.ProximityRisk,
			"carcinogen_count":   fac.CarcinogenCount,
			"risk_color":         fac.RiskColor,
			"marker_radius":      fac.MarkerRadius,
		}
		if fac.RiskScore != nil {
			props["risk_score"] = *fac.RiskScore
		}

		features = append(features, &geojson.Feature{
			ID:         fac.ID,
			Geometry:   geom.NewPointFlat(geom.XY, []float64{fac.Longitude, fac.Latitude}).SetSRID(4326),
			Properties: props,
		})
	}

	return &geojson.FeatureCollection{Features: features}
}

// WriteGeoJSON writes the FeatureCollection, creating parent directories as
// needed.
func WriteGeoJSON(path string, fc *geojson.FeatureCollection) error {
	data, err := json.Marshal(fc)
	if err != nil {
		return eris.Wrap(err, "export: encode feature collection")
	}

	if err := writeFile(path, data); err != nil {
		return err
	}

	zap.L().Info("export: wrote feature collection",
		zap.String("path", path),
		zap.Int("features", len(fc.Features)))
	return nil
}
