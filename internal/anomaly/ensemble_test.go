package anomaly

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/envtrac/chemrisk-cli/internal/model"
)

var testIndustries = []string{
	"Chemical Manufacturing",
	"Metal Finishing & Plating",
	"Printing & Publishing",
}

// scoredPopulation builds 48 unremarkable facilities plus one facility that
// is extreme on every signal: top risk, multiple carcinogens near sensitive
// locations, and outlying release features.
func scoredPopulation() []model.FacilityRecord {
	records := make([]model.FacilityRecord, 0, 49)
	for i := 0; i < 48; i++ {
		records = append(records, model.FacilityRecord{
			FacilityID:          string(rune('A'+i/10)) + string(rune('0'+i%10)),
			Industry:            testIndustries[i%len(testIndustries)],
			RiskScore:           20 + float64(i%10),
			LogToxicityExposure: 5 + float64(i%7)*0.1,
			LogRelease:          6 + float64(i%5)*0.1,
			MaxToxicity:         50 + float64(i%4)*5,
			CarcinogenCount:     i % 2,
			LogHeavyMetals:      float64(i%3) * 0.5,
			IndustryNormRelease: float64(i%5-2) * 0.3,
			ProximityMultiplier: 1.0 + float64(i%3)*0.1,
		})
	}
	records = append(records, model.FacilityRecord{
		FacilityID:          "HOTSPOT",
		Industry:            testIndustries[0],
		RiskScore:           100,
		LogToxicityExposure: 12,
		LogRelease:          11,
		MaxToxicity:         100,
		CarcinogenCount:     3,
		LogHeavyMetals:      8,
		IndustryNormRelease: 3.0,
		ProximityMultiplier: 2.0,
	})
	return records
}

func TestDetectFlagsExtremeFacility(t *testing.T) {
	records := scoredPopulation()
	detector := NewDetector(Options{Variant: model.VariantAdvanced})

	flagged, err := detector.Detect(records)
	require.NoError(t, err)
	assert.Greater(t, flagged, 0)

	hotspot := records[len(records)-1]
	assert.True(t, hotspot.Anomaly)
	assert.GreaterOrEqual(t, hotspot.AnomalyConfidence, 50.0)
}

func TestDetectConfidenceQuantization(t *testing.T) {
	records := scoredPopulation()
	detector := NewDetector(Options{Variant: model.VariantAdvanced})

	_, err := detector.Detect(records)
	require.NoError(t, err)

	for _, rec := range records {
		assert.Contains(t, []float64{0, 25, 50, 75, 100}, rec.AnomalyConfidence,
			"facility %s confidence %v", rec.FacilityID, rec.AnomalyConfidence)
		assert.Equal(t, rec.AnomalyConfidence >= 50, rec.Anomaly,
			"facility %s flag must match its vote share", rec.FacilityID)
	}
}

func TestDetectDeterministic(t *testing.T) {
	first := scoredPopulation()
	second := scoredPopulation()

	_, err := NewDetector(Options{}).Detect(first)
	require.NoError(t, err)
	_, err = NewDetector(Options{}).Detect(second)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestDetectPreservesOrder(t *testing.T) {
	records := scoredPopulation()
	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.FacilityID
	}

	_, err := NewDetector(Options{}).Detect(records)
	require.NoError(t, err)

	for i, rec := range records {
		assert.Equal(t, ids[i], rec.FacilityID)
	}
}

func TestDetectEmptyPopulation(t *testing.T) {
	_, err := NewDetector(Options{}).Detect(nil)
	assert.Error(t, err)
}

func TestIndustrySignalSkipsSmallGroups(t *testing.T) {
	// Two facilities in a tiny industry carry extreme features; eight in a
	// large industry include one outlier. Only the large group may flag.
	records := make([]model.FacilityRecord, 0, 10)
	features := make([][]float64, 0, 10)
	for i := 0; i < 8; i++ {
		records = append(records, model.FacilityRecord{Industry: "Large Group"})
		features = append(features, []float64{float64(i%3) * 0.1, 1.0})
	}
	features[7] = []float64{50, 50}

	records = append(records,
		model.FacilityRecord{Industry: "Tiny Group"},
		model.FacilityRecord{Industry: "Tiny Group"},
	)
	features = append(features, []float64{100, 100}, []float64{-100, -100})

	detector := NewDetector(Options{})
	flags := detector.industrySignal(records, features)
	require.Len(t, flags, 10)

	assert.True(t, flags[7], "outlier within a large peer group should flag")
	assert.False(t, flags[8], "groups below the minimum size never flag")
	assert.False(t, flags[9], "groups below the minimum size never flag")
}

func TestExtremeRiskSignal(t *testing.T) {
	records := make([]model.FacilityRecord, 0, 20)
	for i := 0; i < 19; i++ {
		records = append(records, model.FacilityRecord{RiskScore: float64(i)})
	}
	records = append(records, model.FacilityRecord{RiskScore: 99})

	flags := NewDetector(Options{}).extremeRiskSignal(records)
	assert.True(t, flags[19])
	for i := 0; i < 18; i++ {
		assert.False(t, flags[i], "facility %d sits below the percentile", i)
	}
}

func TestDetectLegacyBinaryConfidence(t *testing.T) {
	records := scoredPopulation()
	detector := NewDetector(Options{Variant: model.VariantLegacy})

	flagged, err := detector.Detect(records)
	require.NoError(t, err)
	assert.Greater(t, flagged, 0)

	for _, rec := range records {
		assert.Contains(t, []float64{0, 100}, rec.AnomalyConfidence)
		assert.Equal(t, rec.AnomalyConfidence == 100, rec.Anomaly)
	}
	assert.True(t, records[len(records)-1].Anomaly, "extreme facility should flag under the legacy detector")
}

func TestScaleColumns(t *testing.T) {
	features := [][]float64{{1, 10}, {3, 10}}
	scaled := scaleColumns(features)

	assert.InDelta(t, -1, scaled[0][0], 1e-9)
	assert.InDelta(t, 1, scaled[1][0], 1e-9)
	// Constant columns stay at zero rather than dividing by zero.
	assert.Equal(t, 0.0, scaled[0][1])
	assert.Equal(t, 0.0, scaled[1][1])
}
