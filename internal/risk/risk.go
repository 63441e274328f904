// Package risk turns aggregated facility metrics into a bounded 0-100 risk
// score. Scoring is population-relative: the whole run is scaled together,
// so scores from different runs are not comparable.
package risk

import (
	"context"
	"math"
	"runtime"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/envtrac/chemrisk-cli/internal/exposure"
	"github.com/envtrac/chemrisk-cli/internal/model"
	"github.com/envtrac/chemrisk-cli/internal/proximity"
	"github.com/envtrac/chemrisk-cli/internal/stats"
	"github.com/envtrac/chemrisk-cli/internal/toxicity"
)

// Composite weights for the advanced variant. They must sum to 1.0.
const (
	weightToxicityExposure = 0.40
	weightRelease          = 0.25
	weightMaxToxicity      = 0.20
	weightHeavyMetals      = 0.15
)

// Facilities reporting at least this many carcinogens get the bonus multiplier.
const (
	carcinogenBonusCount      = 2
	carcinogenBonusMultiplier = 1.15
)

// epsilon guards denominators when a whole population ties.
const epsilon = 1e-9

// Options configures a Scorer.
type Options struct {
	Variant     model.Variant
	Parallelism int // per-facility aggregation workers; <=0 means GOMAXPROCS
}

// Scorer computes facility risk scores for one model variant.
type Scorer struct {
	resolver    *toxicity.Resolver
	locations   []proximity.SensitiveLocation
	variant     model.Variant
	parallelism int
}

// NewScorer builds a Scorer. A nil resolver falls back to the default
// knowledge base; empty locations fall back to the default Toronto set.
func NewScorer(resolver *toxicity.Resolver, locations []proximity.SensitiveLocation, opts Options) *Scorer {
	if resolver == nil {
		resolver = toxicity.NewResolver(toxicity.DefaultEntries)
	}
	if len(locations) == 0 {
		locations = proximity.DefaultLocations
	}
	variant := opts.Variant
	if variant == "" {
		variant = model.VariantAdvanced
	}
	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	return &Scorer{
		resolver:    resolver,
		locations:   locations,
		variant:     variant,
		parallelism: parallelism,
	}
}

// Score aggregates release rows into facility records and scores them.
//
// Per-facility aggregation and proximity are independent and run in a bounded
// worker group; the population-wide normalization that follows needs every
// facility present, so it only runs after the group is fully drained.
func (s *Scorer) Score(ctx context.Context, rows []model.ReleaseRow) ([]model.FacilityRecord, error) {
	groups := exposure.Group(rows)
	if len(groups) == 0 {
		return nil, eris.New("risk: no release rows to score")
	}

	records := make([]model.FacilityRecord, len(groups))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for i, group := range groups {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return eris.Wrap(err, "risk: aggregation cancelled")
			}
			rec := exposure.Aggregate(s.resolver, group.Rows)
			rec.ProximityMultiplier = proximity.Multiplier(rec.Latitude, rec.Longitude, s.locations)
			records[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	switch s.variant {
	case model.VariantLegacy:
		s.scoreLegacy(records)
	default:
		s.scoreAdvanced(records)
	}

	zap.L().Debug("risk: scored facilities",
		zap.Int("facilities", len(records)),
		zap.String("variant", string(s.variant)),
	)
	return records, nil
}

// scoreAdvanced implements the multi-factor model: log features, industry
// z-scores, robust scaling, weighted composite, proximity and carcinogen
// multipliers, then a population min-max rescale to [0,100].
func (s *Scorer) scoreAdvanced(records []model.FacilityRecord) {
	for i := range records {
		rec := &records[i]
		rec.LogRelease = math.Log1p(rec.TotalReleaseKG)
		rec.LogToxicityExposure = math.Log1p(rec.ToxicityExposure)
		rec.LogChemicals = math.Log1p(float64(rec.ChemicalCount))
		rec.LogHeavyMetals = math.Log1p(rec.HeavyMetalKG)
	}

	applyIndustryNorm(records)

	matrix := make([][]float64, len(records))
	for i, rec := range records {
		matrix[i] = []float64{rec.LogToxicityExposure, rec.LogRelease, rec.MaxToxicity, rec.LogHeavyMetals}
	}
	scaled := stats.RobustScale(matrix)

	raw := make([]float64, len(records))
	for i := range records {
		rec := &records[i]
		rec.BaseRisk = weightToxicityExposure*scaled[i][0] +
			weightRelease*scaled[i][1] +
			weightMaxToxicity*scaled[i][2] +
			weightHeavyMetals*scaled[i][3]

		risk := rec.BaseRisk * rec.ProximityMultiplier
		if rec.CarcinogenCount >= carcinogenBonusCount {
			risk *= carcinogenBonusMultiplier
		}
		raw[i] = risk
	}

	rescale(records, raw)
}

// scoreLegacy implements the earlier single-factor model: release volume
// moderated by the worst chemical, no robust scaling and no location terms.
func (s *Scorer) scoreLegacy(records []model.FacilityRecord) {
	raw := make([]float64, len(records))
	for i := range records {
		rec := &records[i]
		rec.LogRelease = math.Log1p(rec.TotalReleaseKG)
		rec.LogToxicityExposure = math.Log1p(rec.ToxicityExposure)
		rec.LogChemicals = math.Log1p(float64(rec.ChemicalCount))
		rec.LogHeavyMetals = math.Log1p(rec.HeavyMetalKG)

		rec.BaseRisk = rec.LogRelease * (rec.MaxToxicity / 100.0)
		raw[i] = rec.BaseRisk
	}

	rescale(records, raw)
}

// applyIndustryNorm z-scores log-release within each industry. The feature is
// kept for analysis and anomaly detection but stays out of the advanced
// composite. Single-facility industries have zero numerator and normalize to 0.
func applyIndustryNorm(records []model.FacilityRecord) {
	byIndustry := make(map[string][]int)
	for i, rec := range records {
		byIndustry[rec.Industry] = append(byIndustry[rec.Industry], i)
	}

	for _, indices := range byIndustry {
		vals := make([]float64, len(indices))
		for j, i := range indices {
			vals[j] = records[i].LogRelease
		}
		mean := stats.Mean(vals)
		std := stats.SampleStd(vals)
		for _, i := range indices {
			records[i].IndustryNormRelease = (records[i].LogRelease - mean) / (std + epsilon)
		}
	}
}

// rescale min-max normalizes raw scores onto [0,100] and rounds to 2 decimal
// places. The epsilon keeps a fully tied population at 0 instead of NaN.
func rescale(records []model.FacilityRecord, raw []float64) {
	lo := stats.Min(raw)
	hi := stats.Max(raw)
	for i := range records {
		records[i].RiskScore = stats.Round2((raw[i] - lo) / (hi - lo + epsilon) * 100)
	}
}
