package model

// FacilityRecord is the per-facility aggregate carried through the scoring
// and anomaly stages. It is rebuilt from scratch on every run; risk and
// anomaly fields are only meaningful relative to the population of the run
// that produced them.
type FacilityRecord struct {
	FacilityID    string  `json:"facility_id"`
	FacilityName  string  `json:"facility_name"`
	Industry      string  `json:"industry"`
	EmployeeCount float64 `json:"employee_count"`
	Latitude      float64 `json:"latitude"`
	Longitude     float64 `json:"longitude"`

	TotalReleaseKG      float64          `json:"total_release_kg"`
	ChemicalCount       int              `json:"n_chemicals"`
	ToxicityExposure    float64          `json:"toxicity_weighted_exposure"`
	ProximityMultiplier float64          `json:"proximity_multiplier"`
	MaxToxicity         float64          `json:"max_chemical_toxicity"`
	CarcinogenCount     int              `json:"carcinogen_count"`
	HeavyMetalKG        float64          `json:"heavy_metal_kg"`
	Chemicals           []ChemicalDetail `json:"chemical_details"`

	// Engineered features, populated by the risk scorer.
	LogRelease          float64 `json:"log_release"`
	LogToxicityExposure float64 `json:"log_toxicity_exposure"`
	LogChemicals        float64 `json:"log_chems"`
	LogHeavyMetals      float64 `json:"log_heavy_metals"`
	IndustryNormRelease float64 `json:"industry_norm_release"`

	BaseRisk  float64 `json:"base_risk"`
	RiskScore float64 `json:"risk_score"`

	Anomaly           bool    `json:"anomaly"`
	AnomalyConfidence float64 `json:"anomaly_confidence"`
}
