// Package sample generates a synthetic ChemTRAC-style disclosure extract for
// demos and offline development. Output uses the portal's raw headers so it
// feeds the ingest stage unchanged, and a fixed seed makes every run
// byte-identical.
package sample

import (
	"encoding/csv"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Toronto bounding box, approximately: lat 43.58-43.85, lon -79.64 to -79.11.
const (
	latMin, latMax = 43.58, 43.85
	lonMin, lonMax = -79.64, -79.11
)

var industries = []string{
	"Metal fabrication",
	"Chemical manufacturing",
	"Food processing",
	"Printing",
	"Auto parts",
	"Waste treatment",
	"Pharmaceutical",
	"Electronics",
	"Plastics",
	"Oil and gas storage",
}

// chemicalProfile is a reportable substance with its typical annual range.
type chemicalProfile struct {
	name   string
	lo, hi float64 // kg/year
}

var chemicals = []chemicalProfile{
	{"Ammonia", 100, 50000},
	{"Benzene", 10, 5000},
	{"Lead", 1, 2000},
	{"Sulphuric acid", 500, 100000},
	{"Toluene", 50, 20000},
	{"Xylene", 50, 15000},
	{"Zinc", 100, 10000},
	{"Particulate matter", 500, 80000},
	{"VOCs", 200, 40000},
	{"Nitrogen oxides", 100, 30000},
}

var rawHeader = []string{
	"_id", "FACILITY_ID", "FACILITY_NAME", "NAICS_CODE_6_DESC_ENG",
	"EMPLOYEE_COUNT", "FA_LAT", "FA_LON", "CHEMICAL_ID", "CHEMICAL_NAME",
	"USE_MANUFACTURED", "USE_PROCESSED", "USE_OTHER_USE",
	"REL_AIR", "REL_LAND", "REL_WATER", "REL_DISPOSAL", "REL_RECYCLING",
}

// Options configures generation.
type Options struct {
	Facilities int    // default 120
	Seed       uint64 // default 42
}

// Generate writes a raw extract to path and returns the number of data rows.
// Each facility reports one to five distinct chemicals; a small fraction of
// rows carries blank quantities or padded chemical names, the same dirt the
// real extracts have.
func Generate(path string, opts Options) (int, error) {
	if opts.Facilities <= 0 {
		opts.Facilities = 120
	}
	if opts.Seed == 0 {
		opts.Seed = 42
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed))

	var records [][]string
	rowID := 0
	for i := 1; i <= opts.Facilities; i++ {
		facilityID := fmt.Sprintf("FAC_%04d", i)
		facilityName := fmt.Sprintf("Facility %d", i)
		industry := industries[rng.IntN(len(industries))]
		lat := latMin + rng.Float64()*(latMax-latMin)
		lon := lonMin + rng.Float64()*(lonMax-lonMin)

		employees := strconv.Itoa(5 + rng.IntN(496))
		if rng.Float64() < 0.05 {
			employees = "" // some facilities never report headcount
		}

		for _, c := range pick(rng, 1+rng.IntN(5)) {
			rowID++
			chem := chemicals[c]
			name := chem.name
			if rng.Float64() < 0.01 {
				name = "  Toluene  "
			}

			amount := chem.lo + rng.Float64()*(chem.hi-chem.lo)
			rels := spreadReleases(rng, amount)
			if rng.Float64() < 0.02 {
				rels = [5]string{} // missing quantities, coerced to zero downstream
			}

			uses := [3]string{"0", "0", "0"}
			if u := rng.IntN(4); u < 3 {
				uses[u] = "1"
			}

			records = append(records, []string{
				strconv.Itoa(rowID), facilityID, facilityName, industry,
				employees,
				strconv.FormatFloat(lat, 'f', 6, 64),
				strconv.FormatFloat(lon, 'f', 6, 64),
				fmt.Sprintf("CHEM_%02d", c+1), name,
				uses[0], uses[1], uses[2],
				rels[0], rels[1], rels[2], rels[3], rels[4],
			})
		}
	}

	if err := writeRaw(path, records); err != nil {
		return 0, err
	}

	zap.L().Info("sample: generated synthetic extract",
		zap.String("path", path),
		zap.Int("facilities", opts.Facilities),
		zap.Int("rows", len(records)))
	return len(records), nil
}

// pick returns n distinct chemical indices.
func pick(rng *rand.Rand, n int) []int {
	perm := rng.Perm(len(chemicals))
	return perm[:n]
}

// spreadReleases splits an annual amount across pathways: most mass goes to
// a primary air-biased pathway, occasionally with a disposal remainder.
// Cells are REL_AIR, REL_LAND, REL_WATER, REL_DISPOSAL, REL_RECYCLING.
func spreadReleases(rng *rand.Rand, amount float64) [5]string {
	var rels [5]string

	primary := [4]int{0, 2, 1, 0}[rng.IntN(4)] // air, water, land, air
	main := amount
	if rng.Float64() < 0.25 {
		side := amount * 0.1 * rng.Float64()
		main -= side
		rels[3] = format2(side)
	}
	rels[primary] = format2(main)
	return rels
}

func writeRaw(path string, records [][]string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "sample: create directory %s", dir)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "sample: create %s", path)
	}

	w := csv.NewWriter(f)
	if err := w.Write(rawHeader); err != nil {
		f.Close()
		return eris.Wrap(err, "sample: write header")
	}
	for _, rec := range records {
		if err := w.Write(rec); err != nil {
			f.Close()
			return eris.Wrap(err, "sample: write row")
		}
	}
	w.Flush()

	if err := w.Error(); err != nil {
		f.Close()
		return eris.Wrapf(err, "sample: write %s", path)
	}
	if err := f.Close(); err != nil {
		return eris.Wrapf(err, "sample: close %s", path)
	}
	return nil
}

func format2(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
