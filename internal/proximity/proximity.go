// Package proximity computes the location-based risk multiplier from a
// facility's distance to sensitive locations (hospitals, schools, dense
// residential areas).
package proximity

import "math"

const earthRadiusKM = 6371.0

// Category classifies a sensitive location.
type Category string

const (
	CategoryHospital    Category = "hospital"
	CategorySchool      Category = "school"
	CategoryResidential Category = "residential"
)

// SensitiveLocation is a place whose nearby population amplifies facility
// risk. Weight expresses relative importance; hospitals weigh more than
// residential centres.
type SensitiveLocation struct {
	Name      string   `yaml:"name" json:"name"`
	Latitude  float64  `yaml:"latitude" json:"latitude"`
	Longitude float64  `yaml:"longitude" json:"longitude"`
	Category  Category `yaml:"category" json:"category"`
	Weight    float64  `yaml:"weight" json:"weight"`
}

// DefaultLocations is the built-in Toronto sensitive-location set.
var DefaultLocations = []SensitiveLocation{
	// Major hospital clusters
	{"Toronto General Hospital", 43.6591, -79.3879, CategoryHospital, 2.5},
	{"SickKids", 43.6566, -79.3900, CategoryHospital, 3.0},
	{"Sunnybrook", 43.7315, -79.4558, CategoryHospital, 2.5},

	// University areas, high population density
	{"University of Toronto", 43.6629, -79.3957, CategorySchool, 2.2},
	{"York University", 43.7735, -79.5019, CategorySchool, 2.2},
	{"UofT Scarborough", 43.7843, -79.1864, CategorySchool, 2.0},

	// High-density residential areas
	{"Downtown Core", 43.6426, -79.3871, CategoryResidential, 1.8},
	{"North York Centre", 43.7615, -79.4111, CategoryResidential, 1.5},
	{"Scarborough Town", 43.7731, -79.2578, CategoryResidential, 1.5},
}

// Haversine returns the great-circle distance in kilometres between two
// coordinates.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	radLat1 := lat1 * math.Pi / 180
	radLat2 := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radLat1)*math.Cos(radLat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKM * c
}

// Multiplier returns the risk multiplier for a facility at (lat, lon).
//
// Each location contributes weight×(1−d) inside 1 km, weight×0.3×(1−(d−1)/4)
// between 1 and 5 km, and nothing beyond 5 km. The multiplier is
// 1 + 0.4×contribution of the single most influential location; contributions
// are never summed across locations. Baseline is 1.0 when nothing is within
// 5 km.
func Multiplier(lat, lon float64, locations []SensitiveLocation) float64 {
	multiplier := 1.0

	for _, loc := range locations {
		dist := Haversine(lat, lon, loc.Latitude, loc.Longitude)

		var contribution float64
		switch {
		case dist < 1.0:
			contribution = loc.Weight * (1.0 - dist)
		case dist < 5.0:
			contribution = loc.Weight * 0.3 * (1.0 - (dist-1.0)/4.0)
		default:
			contribution = 0
		}

		multiplier = math.Max(multiplier, 1.0+math.Max(0, contribution)*0.4)
	}

	return multiplier
}
