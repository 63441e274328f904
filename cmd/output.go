package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"text/tabwriter"

	"github.com/rotisserie/eris"

	"github.com/envtrac/chemrisk-cli/internal/model"
)

// outputFacilities writes facility records to out in the requested format,
// ordered by risk score descending. top limits the output when > 0.
func outputFacilities(out io.Writer, records []model.FacilityRecord, format string, top int) error {
	sorted := make([]model.FacilityRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].RiskScore > sorted[j].RiskScore })
	if top > 0 && top < len(sorted) {
		sorted = sorted[:top]
	}

	switch format {
	case "table":
		writeFacilityTable(out, sorted)
		return nil
	case "csv":
		return writeFacilityCSV(out, sorted)
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(sorted)
	default:
		return eris.Errorf("unsupported output format %q (table, csv, json)", format)
	}
}

func writeFacilityTable(out io.Writer, records []model.FacilityRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tFACILITY\tINDUSTRY\tRISK\tANOMALY\tCONFIDENCE")
	_, _ = fmt.Fprintln(w, "--\t--------\t--------\t----\t-------\t----------")

	for _, r := range records {
		name := r.FacilityName
		if len(name) > 40 {
			name = name[:37] + "..."
		}
		anomaly := ""
		confidence := ""
		if r.Anomaly {
			anomaly = "yes"
			confidence = fmt.Sprintf("%.0f%%", r.AnomalyConfidence)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%.1f\t%s\t%s\n",
			r.FacilityID, name, r.Industry, r.RiskScore, anomaly, confidence)
	}
	_ = w.Flush()
}

func writeFacilityCSV(out io.Writer, records []model.FacilityRecord) error {
	cw := csv.NewWriter(out)
	defer cw.Flush()

	header := []string{"facility_id", "facility_name", "industry", "risk_score", "anomaly", "anomaly_confidence"}
	if err := cw.Write(header); err != nil {
		return eris.Wrap(err, "write CSV header")
	}
	for _, r := range records {
		row := []string{
			r.FacilityID,
			r.FacilityName,
			r.Industry,
			strconv.FormatFloat(r.RiskScore, 'f', 2, 64),
			strconv.FormatBool(r.Anomaly),
			strconv.FormatFloat(r.AnomalyConfidence, 'f', 1, 64),
		}
		if err := cw.Write(row); err != nil {
			return eris.Wrap(err, "write CSV row")
		}
	}
	return nil
}
