package anomaly

import (
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/envtrac/chemrisk-cli/internal/model"
	"github.com/envtrac/chemrisk-cli/internal/stats"
)

// Ensemble vote weights: four independent signals, two votes to flag.
const (
	ensembleSignals = 4
	ensembleQuorum  = 2

	hotspotCarcinogenCount = 2
	hotspotProximityFloor  = 1.3
)

// Options tunes the anomaly ensemble. The zero value is completed by
// NewDetector with the production defaults.
type Options struct {
	Variant model.Variant

	Seed       uint64
	SampleSize int

	GlobalTrees         int
	GlobalContamination float64

	IndustryTrees         int
	IndustryContamination float64
	IndustryMinGroup      int

	RiskPercentile float64

	LegacyContamination float64
}

// Detector flags anomalous facilities over a scored population.
type Detector struct {
	opts Options
}

// NewDetector fills unset options with defaults and returns a Detector.
func NewDetector(opts Options) *Detector {
	if opts.Variant == "" {
		opts.Variant = model.VariantAdvanced
	}
	if opts.Seed == 0 {
		opts.Seed = 42
	}
	if opts.SampleSize <= 0 {
		opts.SampleSize = 256
	}
	if opts.GlobalTrees <= 0 {
		opts.GlobalTrees = 200
	}
	if opts.GlobalContamination <= 0 {
		opts.GlobalContamination = 0.06
	}
	if opts.IndustryTrees <= 0 {
		opts.IndustryTrees = 100
	}
	if opts.IndustryContamination <= 0 {
		opts.IndustryContamination = 0.15
	}
	if opts.IndustryMinGroup <= 0 {
		opts.IndustryMinGroup = 3
	}
	if opts.RiskPercentile <= 0 {
		opts.RiskPercentile = 95
	}
	if opts.LegacyContamination <= 0 {
		opts.LegacyContamination = 0.05
	}
	return &Detector{opts: opts}
}

// Detect sets Anomaly and AnomalyConfidence on every record in place and
// returns the number of facilities flagged. Records must already carry risk
// scores; detection never reorders the slice.
func (d *Detector) Detect(records []model.FacilityRecord) (int, error) {
	if len(records) == 0 {
		return 0, eris.New("anomaly: no facility records to score")
	}

	var flagged int
	switch d.opts.Variant {
	case model.VariantLegacy:
		flagged = d.detectLegacy(records)
	default:
		flagged = d.detectAdvanced(records)
	}

	zap.L().Debug("anomaly detection complete",
		zap.String("variant", string(d.opts.Variant)),
		zap.Int("facilities", len(records)),
		zap.Int("anomalies", flagged))
	return flagged, nil
}

// detectAdvanced runs the four-signal ensemble. Each signal yields one vote
// per facility; two votes flag it, and confidence is the vote share.
func (d *Detector) detectAdvanced(records []model.FacilityRecord) int {
	features := make([][]float64, len(records))
	for i, rec := range records {
		features[i] = []float64{
			rec.RiskScore,
			rec.LogToxicityExposure,
			rec.LogRelease,
			rec.MaxToxicity,
			float64(rec.CarcinogenCount),
			rec.LogHeavyMetals,
			rec.IndustryNormRelease,
		}
	}
	scaled := scaleColumns(features)

	global := d.globalSignal(scaled)
	industry := d.industrySignal(records, scaled)
	extreme := d.extremeRiskSignal(records)

	var flagged int
	for i := range records {
		votes := 0
		if global[i] {
			votes++
		}
		if industry[i] {
			votes++
		}
		if extreme[i] {
			votes++
		}
		if records[i].CarcinogenCount >= hotspotCarcinogenCount &&
			records[i].ProximityMultiplier > hotspotProximityFloor {
			votes++
		}

		records[i].Anomaly = votes >= ensembleQuorum
		records[i].AnomalyConfidence = stats.Round1(float64(votes) / ensembleSignals * 100)
		if records[i].Anomaly {
			flagged++
		}
	}
	return flagged
}

// globalSignal isolates outliers over the whole population.
func (d *Detector) globalSignal(scaled [][]float64) []bool {
	forest := NewIsolationForest(ForestOptions{
		Trees:      d.opts.GlobalTrees,
		SampleSize: d.opts.SampleSize,
		Seed:       d.opts.Seed,
	})
	forest.Fit(scaled)
	return FlagOutliers(forest.Scores(scaled), d.opts.GlobalContamination)
}

// industrySignal isolates outliers within each industry peer group. Groups
// below the minimum size carry too little signal and are never flagged.
func (d *Detector) industrySignal(records []model.FacilityRecord, scaled [][]float64) []bool {
	flags := make([]bool, len(records))

	groups := make(map[string][]int)
	for i, rec := range records {
		groups[rec.Industry] = append(groups[rec.Industry], i)
	}
	industries := make([]string, 0, len(groups))
	for name := range groups {
		industries = append(industries, name)
	}
	sort.Strings(industries)

	for _, name := range industries {
		idx := groups[name]
		if len(idx) < d.opts.IndustryMinGroup {
			continue
		}

		sub := make([][]float64, len(idx))
		for j, i := range idx {
			sub[j] = scaled[i]
		}

		forest := NewIsolationForest(ForestOptions{
			Trees:      d.opts.IndustryTrees,
			SampleSize: d.opts.SampleSize,
			Seed:       d.opts.Seed,
		})
		forest.Fit(sub)
		outliers := FlagOutliers(forest.Scores(sub), d.opts.IndustryContamination)
		for j, i := range idx {
			flags[i] = outliers[j]
		}
	}
	return flags
}

// extremeRiskSignal flags risk scores above the population percentile.
func (d *Detector) extremeRiskSignal(records []model.FacilityRecord) []bool {
	risks := make([]float64, len(records))
	for i, rec := range records {
		risks[i] = rec.RiskScore
	}
	threshold := stats.Percentile(risks, d.opts.RiskPercentile)

	flags := make([]bool, len(records))
	for i, r := range risks {
		flags[i] = r > threshold
	}
	return flags
}

// detectLegacy runs the original single-forest pass over release volume and
// peak toxicity only. Confidence is binary.
func (d *Detector) detectLegacy(records []model.FacilityRecord) int {
	features := make([][]float64, len(records))
	for i, rec := range records {
		features[i] = []float64{rec.LogRelease, rec.MaxToxicity}
	}
	scaled := scaleColumns(features)

	forest := NewIsolationForest(ForestOptions{
		Trees:      d.opts.IndustryTrees,
		SampleSize: d.opts.SampleSize,
		Seed:       d.opts.Seed,
	})
	forest.Fit(scaled)
	outliers := FlagOutliers(forest.Scores(scaled), d.opts.LegacyContamination)

	var flagged int
	for i := range records {
		records[i].Anomaly = outliers[i]
		if outliers[i] {
			records[i].AnomalyConfidence = 100
			flagged++
		} else {
			records[i].AnomalyConfidence = 0
		}
	}
	return flagged
}

// scaleColumns standardizes each feature column to zero mean and unit
// variance so no single feature dominates the isolation splits.
func scaleColumns(features [][]float64) [][]float64 {
	return stats.StandardScale(features)
}
