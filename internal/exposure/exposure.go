// Package exposure aggregates per-chemical release rows into per-facility
// toxicity-weighted exposure and the summary statistics the risk model
// consumes.
package exposure

import (
	"sort"

	"github.com/envtrac/chemrisk-cli/internal/model"
	"github.com/envtrac/chemrisk-cli/internal/toxicity"
)

// Pathway weights reflect how directly each release medium reaches people:
// inhalation first, contained recovery last.
var pathwayWeights = map[model.Pathway]float64{
	model.PathwayAir:       1.0,
	model.PathwayWater:     0.95,
	model.PathwayLand:      0.7,
	model.PathwayDisposal:  0.3,
	model.PathwayRecycling: 0.15,
}

// Use-type weights. When several flags are set the heaviest applies; rows
// with no flag at all fall back to UseWeightDefault.
const (
	UseWeightManufactured = 1.0
	UseWeightProcessed    = 0.8
	UseWeightOther        = 0.5
	UseWeightDefault      = 0.4
)

// PathwayWeight returns the fixed weight for a release pathway.
func PathwayWeight(p model.Pathway) float64 {
	return pathwayWeights[p]
}

// UseWeight returns the applicable use-type weight for a row.
func UseWeight(r model.ReleaseRow) float64 {
	weight := 0.0
	if r.UseManufactured {
		weight = UseWeightManufactured
	}
	if r.UseProcessed && UseWeightProcessed > weight {
		weight = UseWeightProcessed
	}
	if r.UseOtherUse && UseWeightOther > weight {
		weight = UseWeightOther
	}
	if weight == 0 {
		return UseWeightDefault
	}
	return weight
}

// FacilityRows groups the release rows belonging to one facility.
type FacilityRows struct {
	FacilityID string
	Rows       []model.ReleaseRow
}

// Group buckets rows by facility identifier, ordered by ascending ID so the
// output table is deterministic regardless of input order.
func Group(rows []model.ReleaseRow) []FacilityRows {
	byID := make(map[string][]model.ReleaseRow)
	for _, r := range rows {
		byID[r.FacilityID] = append(byID[r.FacilityID], r)
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	groups := make([]FacilityRows, len(ids))
	for i, id := range ids {
		groups[i] = FacilityRows{FacilityID: id, Rows: byID[id]}
	}
	return groups
}

// Aggregate folds one facility's rows into a FacilityRecord. Identity fields
// come from the first row; they are assumed invariant across a facility's
// rows. Risk, feature, and anomaly fields are left zero for later stages.
func Aggregate(resolver *toxicity.Resolver, rows []model.ReleaseRow) model.FacilityRecord {
	if len(rows) == 0 {
		return model.FacilityRecord{ProximityMultiplier: 1.0}
	}

	first := rows[0]
	rec := model.FacilityRecord{
		FacilityID:          first.FacilityID,
		FacilityName:        first.FacilityName,
		Industry:            first.Industry,
		EmployeeCount:       first.EmployeeCount,
		Latitude:            first.Latitude,
		Longitude:           first.Longitude,
		ProximityMultiplier: 1.0,
	}

	chemicalIDs := make(map[string]struct{})

	for _, r := range rows {
		score := resolver.Resolve(r.ChemicalName)

		if toxicity.IsCarcinogen(score) {
			rec.CarcinogenCount++
		}
		if toxicity.IsHeavyMetal(r.ChemicalName) {
			rec.HeavyMetalKG += r.TotalReleaseKG
		}
		if score > rec.MaxToxicity {
			rec.MaxToxicity = score
		}

		useWeight := UseWeight(r)
		for _, p := range r.ActivePathways() {
			rec.ToxicityExposure += r.PathwayQuantity(p) * (score / 100.0) * pathwayWeights[p] * useWeight
		}

		rec.TotalReleaseKG += r.TotalReleaseKG
		chemicalIDs[r.ChemicalID] = struct{}{}

		rec.Chemicals = append(rec.Chemicals, model.ChemicalDetail{
			Name:          r.ChemicalName,
			AmountKG:      r.TotalReleaseKG,
			ToxicityScore: score,
		})
	}

	rec.ChemicalCount = len(chemicalIDs)
	return rec
}
