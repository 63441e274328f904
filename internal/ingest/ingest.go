// Package ingest normalizes raw ChemTRAC disclosure extracts into the clean
// release-row table the rest of the pipeline consumes. The portal publishes
// flattened facility-by-chemical rows with SHOUTING_CASE headers; cleaning
// renames them, coerces malformed numerics to zero, and materializes the
// per-row total release.
package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/envtrac/chemrisk-cli/internal/model"
	"github.com/envtrac/chemrisk-cli/internal/tabular"
)

// columnRenames maps the portal's raw headers to canonical column names.
// Headers already in canonical form pass through untouched, so re-cleaning a
// clean table is a no-op.
var columnRenames = map[string]string{
	"FACILITY_ID":           "facility_id",
	"FACILITY_NAME":         "facility_name",
	"NAICS_CODE_6_DESC_ENG": "industry",
	"EMPLOYEE_COUNT":        "employee_count",
	"FA_LAT":                "latitude",
	"FA_LON":                "longitude",
	"CHEMICAL_ID":           "chemical_id",
	"CHEMICAL_NAME":         "chemical_name",
	"USE_MANUFACTURED":      "use_manufactured",
	"USE_PROCESSED":         "use_processed",
	"USE_OTHER_USE":         "use_other_use",
	"REL_AIR":               "rel_air",
	"REL_LAND":              "rel_land",
	"REL_WATER":             "rel_water",
	"REL_DISPOSAL":          "rel_disposal",
	"REL_RECYCLING":         "rel_recycling",
}

// Options configures an ingest pass.
type Options struct {
	Charset string // transcode CSV input from this charset; empty means UTF-8
}

// Result carries the cleaned rows plus what cleaning discarded.
type Result struct {
	Rows    []model.ReleaseRow
	Dropped int // rows without a facility id
}

// Clean reads a raw disclosure extract (CSV or XLSX, by extension) and
// returns the normalized release rows in input order.
func Clean(ctx context.Context, path string, opts Options) (*Result, error) {
	var (
		header  []string
		records [][]string
		err     error
	)

	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		header, records, err = readRawXLSX(path)
	} else {
		header, records, err = readRawCSV(ctx, path, opts.Charset)
	}
	if err != nil {
		return nil, err
	}

	result := normalize(header, records)

	zap.L().Info("ingest: cleaned raw extract",
		zap.String("path", path),
		zap.Int("rows", len(result.Rows)),
		zap.Int("dropped", result.Dropped))
	return result, nil
}

func readRawCSV(ctx context.Context, path string, charset string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "ingest: open %s", path)
	}
	defer f.Close()

	reader, err := tabular.DecodeReader(charset, f)
	if err != nil {
		return nil, nil, err
	}

	headerCh := make(chan []string, 1)
	// Chemical names keep their raw whitespace: the toxicity resolver trims
	// for matching, and exports carry the name as disclosed.
	rowCh, errCh := tabular.StreamCSV(ctx, reader, tabular.CSVOptions{
		HasHeader: true,
		HeaderCh:  headerCh,
	})

	var records [][]string
	for row := range rowCh {
		records = append(records, row)
	}
	if err := <-errCh; err != nil {
		return nil, nil, eris.Wrapf(err, "ingest: read %s", path)
	}

	select {
	case header := <-headerCh:
		return header, records, nil
	default:
		return nil, nil, eris.Errorf("ingest: %s has no header row", path)
	}
}

func readRawXLSX(path string) ([]string, [][]string, error) {
	rows, err := tabular.ReadXLSX(path, tabular.XLSXOptions{})
	if err != nil {
		return nil, nil, eris.Wrapf(err, "ingest: read %s", path)
	}
	if len(rows) == 0 {
		return nil, nil, eris.Errorf("ingest: %s has no header row", path)
	}
	return rows[0], rows[1:], nil
}

// normalize maps raw records onto canonical release rows. Rows without a
// facility id carry no usable identity and are dropped, counted.
func normalize(header []string, records [][]string) *Result {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[canonical(name)] = i
	}

	result := &Result{Rows: make([]model.ReleaseRow, 0, len(records))}
	for _, rec := range records {
		cell := func(col string) string {
			idx, ok := index[col]
			if !ok || idx >= len(rec) {
				return ""
			}
			return rec[idx]
		}

		facilityID := strings.TrimSpace(cell("facility_id"))
		if facilityID == "" {
			result.Dropped++
			continue
		}

		row := model.ReleaseRow{
			FacilityID:       facilityID,
			FacilityName:     strings.TrimSpace(cell("facility_name")),
			Industry:         strings.TrimSpace(cell("industry")),
			EmployeeCount:    coerceFloat(cell("employee_count")),
			Latitude:         coerceFloat(cell("latitude")),
			Longitude:        coerceFloat(cell("longitude")),
			ChemicalID:       strings.TrimSpace(cell("chemical_id")),
			ChemicalName:     cell("chemical_name"),
			UseManufactured:  coerceBool(cell("use_manufactured")),
			UseProcessed:     coerceBool(cell("use_processed")),
			UseOtherUse:      coerceBool(cell("use_other_use")),
			ReleaseAir:       coerceFloat(cell("rel_air")),
			ReleaseWater:     coerceFloat(cell("rel_water")),
			ReleaseLand:      coerceFloat(cell("rel_land")),
			ReleaseDisposal:  coerceFloat(cell("rel_disposal")),
			ReleaseRecycling: coerceFloat(cell("rel_recycling")),
		}
		row.TotalReleaseKG = row.ReleaseAir + row.ReleaseLand + row.ReleaseWater +
			row.ReleaseDisposal + row.ReleaseRecycling

		result.Rows = append(result.Rows, row)
	}
	return result
}

func canonical(name string) string {
	name = strings.TrimSpace(name)
	if mapped, ok := columnRenames[name]; ok {
		return mapped
	}
	return strings.ToLower(name)
}

// coerceFloat parses leniently: malformed or empty becomes 0.
func coerceFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

// coerceBool accepts the portal's 1/0 flags plus spelled-out booleans.
func coerceBool(s string) bool {
	s = strings.TrimSpace(s)
	if b, err := strconv.ParseBool(strings.ToLower(s)); err == nil {
		return b
	}
	return coerceFloat(s) > 0
}
