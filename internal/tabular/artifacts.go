package tabular

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/envtrac/chemrisk-cli/internal/model"
)

// releaseColumns is the clean row table contract. Column names and order are
// part of the pipeline interface.
var releaseColumns = []string{
	"facility_id", "facility_name", "industry", "latitude", "longitude",
	"employee_count", "chemical_id", "chemical_name",
	"use_manufactured", "use_processed", "use_other_use",
	"rel_air", "rel_water", "rel_land", "rel_disposal", "rel_recycling",
	"total_release_kg",
}

// facilityColumns is the facility table contract, shared by the scored and
// flagged artifacts; the anomaly columns are zero until detection runs.
var facilityColumns = []string{
	"facility_id", "facility_name", "industry", "employee_count",
	"latitude", "longitude", "total_release_kg", "n_chemicals",
	"toxicity_weighted_exposure", "proximity_multiplier",
	"max_chemical_toxicity", "carcinogen_count", "heavy_metal_kg",
	"chemical_details", "log_release", "log_toxicity_exposure", "log_chems",
	"log_heavy_metals", "industry_norm_release", "base_risk", "risk_score",
	"anomaly", "anomaly_confidence",
}

// ReadReleaseRows loads a clean row table artifact. Malformed numeric cells
// coerce to zero; a missing file or missing required column is an error.
func ReadReleaseRows(path string) ([]model.ReleaseRow, error) {
	records, index, err := readTable(path, releaseColumns)
	if err != nil {
		return nil, err
	}

	rows := make([]model.ReleaseRow, 0, len(records))
	for _, rec := range records {
		cell := func(col string) string { return field(rec, index[col]) }
		rows = append(rows, model.ReleaseRow{
			FacilityID:       cell("facility_id"),
			FacilityName:     cell("facility_name"),
			Industry:         cell("industry"),
			Latitude:         coerceFloat(cell("latitude")),
			Longitude:        coerceFloat(cell("longitude")),
			EmployeeCount:    coerceFloat(cell("employee_count")),
			ChemicalID:       cell("chemical_id"),
			ChemicalName:     cell("chemical_name"),
			UseManufactured:  coerceBool(cell("use_manufactured")),
			UseProcessed:     coerceBool(cell("use_processed")),
			UseOtherUse:      coerceBool(cell("use_other_use")),
			ReleaseAir:       coerceFloat(cell("rel_air")),
			ReleaseWater:     coerceFloat(cell("rel_water")),
			ReleaseLand:      coerceFloat(cell("rel_land")),
			ReleaseDisposal:  coerceFloat(cell("rel_disposal")),
			ReleaseRecycling: coerceFloat(cell("rel_recycling")),
			TotalReleaseKG:   coerceFloat(cell("total_release_kg")),
		})
	}
	return rows, nil
}

// WriteReleaseRows writes a clean row table artifact, creating parent
// directories as needed.
func WriteReleaseRows(path string, rows []model.ReleaseRow) error {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{
			r.FacilityID, r.FacilityName, r.Industry,
			formatFloat(r.Latitude), formatFloat(r.Longitude),
			formatFloat(r.EmployeeCount), r.ChemicalID, r.ChemicalName,
			strconv.FormatBool(r.UseManufactured),
			strconv.FormatBool(r.UseProcessed),
			strconv.FormatBool(r.UseOtherUse),
			formatFloat(r.ReleaseAir), formatFloat(r.ReleaseWater),
			formatFloat(r.ReleaseLand), formatFloat(r.ReleaseDisposal),
			formatFloat(r.ReleaseRecycling),
			formatFloat(r.TotalReleaseKG),
		})
	}
	return writeTable(path, releaseColumns, records)
}

// ReadFacilities loads a facility table artifact (scored or flagged).
func ReadFacilities(path string) ([]model.FacilityRecord, error) {
	records, index, err := readTable(path, facilityColumns)
	if err != nil {
		return nil, err
	}

	facilities := make([]model.FacilityRecord, 0, len(records))
	for _, rec := range records {
		cell := func(col string) string { return field(rec, index[col]) }

		var details []model.ChemicalDetail
		if raw := cell("chemical_details"); raw != "" && raw != "null" {
			if err := json.Unmarshal([]byte(raw), &details); err != nil {
				return nil, eris.Wrapf(err, "tabular: %s: decode chemical_details", path)
			}
		}
		if len(details) == 0 {
			details = nil
		}

		facilities = append(facilities, model.FacilityRecord{
			FacilityID:          cell("facility_id"),
			FacilityName:        cell("facility_name"),
			Industry:            cell("industry"),
			EmployeeCount:       coerceFloat(cell("employee_count")),
			Latitude:            coerceFloat(cell("latitude")),
			Longitude:           coerceFloat(cell("longitude")),
			TotalReleaseKG:      coerceFloat(cell("total_release_kg")),
			ChemicalCount:       int(coerceFloat(cell("n_chemicals"))),
			ToxicityExposure:    coerceFloat(cell("toxicity_weighted_exposure")),
			ProximityMultiplier: coerceFloat(cell("proximity_multiplier")),
			MaxToxicity:         coerceFloat(cell("max_chemical_toxicity")),
			CarcinogenCount:     int(coerceFloat(cell("carcinogen_count"))),
			HeavyMetalKG:        coerceFloat(cell("heavy_metal_kg")),
			Chemicals:           details,
			LogRelease:          coerceFloat(cell("log_release")),
			LogToxicityExposure: coerceFloat(cell("log_toxicity_exposure")),
			LogChemicals:        coerceFloat(cell("log_chems")),
			LogHeavyMetals:      coerceFloat(cell("log_heavy_metals")),
			IndustryNormRelease: coerceFloat(cell("industry_norm_release")),
			BaseRisk:            coerceFloat(cell("base_risk")),
			RiskScore:           coerceFloat(cell("risk_score")),
			Anomaly:             coerceBool(cell("anomaly")),
			AnomalyConfidence:   coerceFloat(cell("anomaly_confidence")),
		})
	}
	return facilities, nil
}

// WriteFacilities writes a facility table artifact.
func WriteFacilities(path string, facilities []model.FacilityRecord) error {
	records := make([][]string, 0, len(facilities))
	for _, f := range facilities {
		details, err := json.Marshal(f.Chemicals)
		if err != nil {
			return eris.Wrapf(err, "tabular: encode chemical_details for %s", f.FacilityID)
		}
		if f.Chemicals == nil {
			details = []byte("[]")
		}

		records = append(records, []string{
			f.FacilityID, f.FacilityName, f.Industry,
			formatFloat(f.EmployeeCount),
			formatFloat(f.Latitude), formatFloat(f.Longitude),
			formatFloat(f.TotalReleaseKG), strconv.Itoa(f.ChemicalCount),
			formatFloat(f.ToxicityExposure),
			formatFloat(f.ProximityMultiplier),
			formatFloat(f.MaxToxicity), strconv.Itoa(f.CarcinogenCount),
			formatFloat(f.HeavyMetalKG), string(details),
			formatFloat(f.LogRelease), formatFloat(f.LogToxicityExposure),
			formatFloat(f.LogChemicals), formatFloat(f.LogHeavyMetals),
			formatFloat(f.IndustryNormRelease), formatFloat(f.BaseRisk),
			formatFloat(f.RiskScore),
			strconv.FormatBool(f.Anomaly),
			formatFloat(f.AnomalyConfidence),
		})
	}
	return writeTable(path, facilityColumns, records)
}

// readTable loads a whole CSV, verifies required columns, and returns the
// data records plus a column-name index into them.
func readTable(path string, required []string) ([][]string, map[string]int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "tabular: open %s", path)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	all, err := reader.ReadAll()
	if err != nil {
		return nil, nil, eris.Wrapf(err, "tabular: read %s", path)
	}
	if len(all) == 0 {
		return nil, nil, eris.Errorf("tabular: %s has no header row", path)
	}

	index := make(map[string]int, len(all[0]))
	for i, name := range all[0] {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}

	var missing []string
	for _, col := range required {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, nil, eris.Errorf("tabular: %s missing required columns: %s",
			path, strings.Join(missing, ", "))
	}

	return all[1:], index, nil
}

func writeTable(path string, header []string, records [][]string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "tabular: create directory %s", dir)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "tabular: create %s", path)
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return eris.Wrapf(err, "tabular: write header to %s", path)
	}
	for _, rec := range records {
		if err := w.Write(rec); err != nil {
			f.Close()
			return eris.Wrapf(err, "tabular: write row to %s", path)
		}
	}
	w.Flush()

	if err := w.Error(); err != nil {
		f.Close()
		return eris.Wrapf(err, "tabular: write %s", path)
	}
	if err := f.Close(); err != nil {
		return eris.Wrapf(err, "tabular: close %s", path)
	}
	return nil
}

// field returns record[idx], tolerating ragged rows.
func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}

// coerceFloat parses a numeric cell; malformed or empty values become 0 so a
// single bad cell never aborts a run.
func coerceFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

// coerceBool accepts true/false in any case plus numeric truthiness.
func coerceBool(s string) bool {
	s = strings.TrimSpace(s)
	if b, err := strconv.ParseBool(strings.ToLower(s)); err == nil {
		return b
	}
	return coerceFloat(s) > 0
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
