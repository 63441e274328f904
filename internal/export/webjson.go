// Package export renders the scored population into the documents the map
// front end consumes: a facilities JSON with a summary block, and a GeoJSON
// FeatureCollection for layer-based clients.
package export

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/envtrac/chemrisk-cli/internal/exposure"
	"github.com/envtrac/chemrisk-cli/internal/model"
	"github.com/envtrac/chemrisk-cli/internal/stats"
	"github.com/envtrac/chemrisk-cli/internal/toxicity"
)

// Chemical is one disclosed substance on a facility, sorted by mass in the
// output.
type Chemical struct {
	Name          string  `json:"name"`
	AmountKG      float64 `json:"amount_kg"`
	ToxicityScore float64 `json:"toxicity_score"`
	HealthImpact  string  `json:"health_impact"`
}

// Facility is one exported map record. RiskScore is nil when the facility
// was never scored, and consumers render it gray.
type Facility struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	Industry          string     `json:"industry"`
	EmployeeCount     *int       `json:"employee_count"`
	Latitude          float64    `json:"latitude"`
	Longitude         float64    `json:"longitude"`
	TotalReleaseKG    float64    `json:"total_release_kg"`
	ChemicalCount     int        `json:"n_chemicals"`
	RiskScore         *float64   `json:"risk_score"`
	RiskColor         string     `json:"risk_color"`
	MarkerRadius      float64    `json:"marker_radius"`
	Anomaly           bool       `json:"anomaly"`
	AnomalyConfidence float64    `json:"anomaly_confidence"`
	ProximityRisk     float64    `json:"proximity_risk"`
	CarcinogenCount   int        `json:"carcinogen_count"`
	Chemicals         []Chemical `json:"chemicals"`
}

// Summary aggregates the whole export for dashboards.
type Summary struct {
	Facilities     int       `json:"facilities"`
	TotalReleaseKG float64   `json:"total_release_kg"`
	Anomalies      int       `json:"anomalies"`
	MaxRiskScore   float64   `json:"max_risk_score"`
	MeanRiskScore  float64   `json:"mean_risk_score"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// Document is the full web export.
type Document struct {
	Summary    Summary    `json:"summary"`
	Facilities []Facility `json:"facilities"`
}

// Build joins clean release rows against scored facility records into the
// web document. Facilities appear in facility-id order; a facility present
// in the rows but absent from the records exports with a null risk score.
func Build(resolver *toxicity.Resolver, rows []model.ReleaseRow, records []model.FacilityRecord, now time.Time) *Document {
	byID := make(map[string]model.FacilityRecord, len(records))
	for _, rec := range records {
		byID[rec.FacilityID] = rec
	}

	groups := exposure.Group(rows)
	facilities := make([]Facility, 0, len(groups))
	var risks []float64
	summary := Summary{GeneratedAt: now}

	for _, group := range groups {
		meta := group.Rows[0]

		var chems []Chemical
		chemIDs := make(map[string]struct{})
		var total float64
		for _, row := range group.Rows {
			total += row.TotalReleaseKG
			chemIDs[row.ChemicalID] = struct{}{}
			if row.ChemicalName == "" {
				continue
			}
			chems = append(chems, Chemical{
				Name:          row.ChemicalName,
				AmountKG:      stats.Round3(row.TotalReleaseKG),
				ToxicityScore: stats.Round1(resolver.Resolve(row.ChemicalName)),
				HealthImpact:  HealthImpact(row.ChemicalName),
			})
		}
		sort.SliceStable(chems, func(i, j int) bool {
			return chems[i].AmountKG > chems[j].AmountKG
		})

		fac := Facility{
			ID:             group.FacilityID,
			Name:           meta.FacilityName,
			Industry:       meta.Industry,
			EmployeeCount:  employeeCount(meta.EmployeeCount),
			Latitude:       meta.Latitude,
			Longitude:      meta.Longitude,
			TotalReleaseKG: stats.Round3(total),
			ChemicalCount:  len(chemIDs),
			ProximityRisk:  1.0,
			Chemicals:      chems,
		}

		if rec, ok := byID[group.FacilityID]; ok {
			score := rec.RiskScore
			fac.RiskScore = &score
			fac.Anomaly = rec.Anomaly
			fac.AnomalyConfidence = rec.AnomalyConfidence
			fac.ProximityRisk = stats.Round2(rec.ProximityMultiplier)
			fac.CarcinogenCount = rec.CarcinogenCount
			risks = append(risks, score)
			if rec.Anomaly {
				summary.Anomalies++
			}
		}
		fac.RiskColor = RiskColor(fac.RiskScore)
		fac.MarkerRadius = MarkerRadius(fac.RiskScore)

		facilities = append(facilities, fac)
		summary.TotalReleaseKG += total
	}

	summary.Facilities = len(facilities)
	summary.TotalReleaseKG = stats.Round3(summary.TotalReleaseKG)
	if len(risks) > 0 {
		summary.MaxRiskScore = stats.Max(risks)
		summary.MeanRiskScore = stats.Round2(stats.Mean(risks))
	}

	return &Document{Summary: summary, Facilities: facilities}
}

// RiskColor maps a score to its map band; unscored facilities are gray.
func RiskColor(score *float64) string {
	switch {
	case score == nil:
		return "gray"
	case *score >= 80:
		return "darkred"
	case *score >= 60:
		return "red"
	case *score >= 40:
		return "orange"
	case *score >= 20:
		return "lightgreen"
	default:
		return "green"
	}
}

// MarkerRadius is the circle-marker size hint for map clients.
func MarkerRadius(score *float64) float64 {
	s := 0.0
	if score != nil {
		s = *score
	}
	return 6 + s/15
}

// WriteJSON writes the document, creating parent directories as needed.
func WriteJSON(path string, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return eris.Wrap(err, "export: encode facilities document")
	}

	if err := writeFile(path, data); err != nil {
		return err
	}

	zap.L().Info("export: wrote facilities document",
		zap.String("path", path),
		zap.Int("facilities", len(doc.Facilities)),
		zap.Int("anomalies", doc.Summary.Anomalies))
	return nil
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "export: create directory %s", dir)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrapf(err, "export: write %s", path)
	}
	return nil
}

func employeeCount(v float64) *int {
	if v <= 0 {
		return nil
	}
	n := int(math.Round(v))
	return &n
}
