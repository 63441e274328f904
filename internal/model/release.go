// Package model defines the domain types shared across the pipeline stages.
package model

// ReleaseRow is one cleaned (facility, chemical) disclosure row as produced
// by the row normalizer. Quantities are kg/year, non-negative; missing or
// malformed numerics have already been coerced to 0.
type ReleaseRow struct {
	FacilityID       string  `json:"facility_id"`
	FacilityName     string  `json:"facility_name"`
	Industry         string  `json:"industry"`
	EmployeeCount    float64 `json:"employee_count"`
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	ChemicalID       string  `json:"chemical_id"`
	ChemicalName     string  `json:"chemical_name"`
	UseManufactured  bool    `json:"use_manufactured"`
	UseProcessed     bool    `json:"use_processed"`
	UseOtherUse      bool    `json:"use_other_use"`
	ReleaseAir       float64 `json:"rel_air"`
	ReleaseWater     float64 `json:"rel_water"`
	ReleaseLand      float64 `json:"rel_land"`
	ReleaseDisposal  float64 `json:"rel_disposal"`
	ReleaseRecycling float64 `json:"rel_recycling"`

	// TotalReleaseKG is the sum of the five pathway quantities, materialized
	// at cleaning time so downstream stages never recompute it.
	TotalReleaseKG float64 `json:"total_release_kg"`
}

// Pathway identifies an environmental release medium.
type Pathway string

const (
	PathwayAir       Pathway = "air"
	PathwayWater     Pathway = "water"
	PathwayLand      Pathway = "land"
	PathwayDisposal  Pathway = "disposal"
	PathwayRecycling Pathway = "recycling"
)

// Pathways lists the release media in their canonical column order.
var Pathways = []Pathway{PathwayAir, PathwayWater, PathwayLand, PathwayDisposal, PathwayRecycling}

// PathwayQuantity returns the release quantity for a single pathway.
func (r ReleaseRow) PathwayQuantity(p Pathway) float64 {
	switch p {
	case PathwayAir:
		return r.ReleaseAir
	case PathwayWater:
		return r.ReleaseWater
	case PathwayLand:
		return r.ReleaseLand
	case PathwayDisposal:
		return r.ReleaseDisposal
	case PathwayRecycling:
		return r.ReleaseRecycling
	}
	return 0
}

// ActivePathways returns the pathways with a positive quantity, in canonical order.
func (r ReleaseRow) ActivePathways() []Pathway {
	var active []Pathway
	for _, p := range Pathways {
		if r.PathwayQuantity(p) > 0 {
			active = append(active, p)
		}
	}
	return active
}

// ChemicalDetail is the per-chemical breakdown retained on a facility for
// downstream display, sorted by descending mass in exports.
type ChemicalDetail struct {
	Name          string  `json:"name"`
	AmountKG      float64 `json:"amount_kg"`
	ToxicityScore float64 `json:"toxicity_score"`
}
