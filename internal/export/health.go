package export

import "strings"

// healthImpacts is the fixed substance → one-line impact map used for map
// tooltips. Keys are matched case-insensitively on the trimmed name.
var healthImpacts = map[string]string{
	"ammonia":            "Respiratory irritant",
	"benzene":            "Carcinogen; blood and immune effects",
	"lead":               "Neurotoxic; developmental",
	"sulphuric acid":     "Corrosive; respiratory",
	"toluene":            "Neurological; respiratory",
	"xylene":             "Neurological; irritant",
	"zinc":               "Metal fume fever at high exposure",
	"particulate matter": "Respiratory; cardiovascular",
	"vocs":               "Varies by compound; respiratory",
	"nitrogen oxides":    "Respiratory irritant",
	"plastics":           "Varies by polymer/additives",
}

const genericHealthImpact = "See substance details"

// HealthImpact returns the tooltip line for a disclosed chemical name.
func HealthImpact(name string) string {
	if impact, ok := healthImpacts[strings.ToLower(strings.TrimSpace(name))]; ok {
		return impact
	}
	return genericHealthImpact
}
