// Package toxicity maps free-text chemical names to severity scores using a
// priority-ordered knowledge base. Matching is first-configured-match-wins;
// the iteration order of the entries is part of the contract.
package toxicity

import (
	"math"
	"strings"
)

// DefaultFloor is the severity assigned to chemicals the knowledge base does
// not recognize, and the minimum severity any match can produce.
const DefaultFloor = 30.0

// CarcinogenThreshold is the severity at or above which a chemical counts as
// a carcinogen in aggregate statistics.
const CarcinogenThreshold = 80.0

// Entry pairs a lower-case substring key with a severity score in [0,100].
type Entry struct {
	Match string  `yaml:"match"`
	Score float64 `yaml:"score"`
}

// DefaultEntries is the built-in severity table, derived from EPA IRIS and
// IARC classifications plus bioaccumulation potential. Order encodes match
// priority; earlier entries win over later ones.
var DefaultEntries = []Entry{
	// Extreme neurotoxins and carcinogens
	{"mercury", 100.0},
	{"lead", 95.0},
	{"formaldehyde", 92.0},
	{"hexavalent chromium", 90.0},
	{"chromium (vi)", 90.0},
	{"benzene", 88.0},
	{"cadmium", 87.0},

	// Known carcinogens and severe toxins
	{"tetrachloroethylene", 82.0},
	{"perchloroethylene", 82.0},
	{"trichloroethylene", 80.0},
	{"dichloromethane", 78.0},
	{"methylene chloride", 78.0},
	{"arsenic", 95.0},
	{"nickel", 75.0},
	{"styrene", 72.0},

	// PAHs and persistent organics
	{"benzo(a)pyrene", 85.0},
	{"polycyclic aromatic hydrocarbons", 83.0},
	{"pahs", 83.0},
	{"dioxins", 90.0},
	{"pcbs", 85.0},

	// Respiratory and systemic toxins
	{"nitrogen oxides", 68.0},
	{"nox", 68.0},
	{"sulfur dioxide", 65.0},
	{"so2", 65.0},
	{"particulate matter", 70.0},
	{"pm2.5", 74.0},
	{"pm10", 66.0},
	{"ammonia", 62.0},

	// VOCs and organic compounds
	{"volatile organic compounds", 58.0},
	{"vocs", 58.0},
	{"toluene", 60.0},
	{"xylene", 58.0},
	{"ethylbenzene", 56.0},
	{"acetone", 45.0},
	{"methanol", 50.0},

	// Lower toxicity but still harmful
	{"carbon monoxide", 52.0},
	{"co", 52.0},
	{"hydrogen chloride", 55.0},
	{"hcl", 55.0},
}

// heavyMetals are the substrings that classify a chemical as a heavy metal
// for cumulative-mass tracking.
var heavyMetals = []string{"mercury", "lead", "cadmium", "chromium", "arsenic"}

// Resolver resolves chemical names against a fixed knowledge base. It is
// immutable after construction and safe for concurrent use.
type Resolver struct {
	entries []Entry
}

// NewResolver builds a Resolver over the given entries. Pass DefaultEntries
// for the built-in table; a nil or empty slice resolves everything to the floor.
func NewResolver(entries []Entry) *Resolver {
	return &Resolver{entries: entries}
}

// Resolve returns the severity score for a chemical name. The name is
// lower-cased and trimmed, then checked against each entry in priority order;
// the first entry whose key is a substring of the name decides the score,
// floored at DefaultFloor. Unmatched names resolve to DefaultFloor, never an
// error: unknown chemicals are a data-quality fact, not a failure.
func (r *Resolver) Resolve(name string) float64 {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for _, e := range r.entries {
		if strings.Contains(normalized, e.Match) {
			return math.Max(DefaultFloor, e.Score)
		}
	}
	return DefaultFloor
}

// IsCarcinogen reports whether a severity score meets the carcinogen threshold.
func IsCarcinogen(score float64) bool {
	return score >= CarcinogenThreshold
}

// IsHeavyMetal reports whether a chemical name contains any heavy-metal key.
func IsHeavyMetal(name string) bool {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for _, metal := range heavyMetals {
		if strings.Contains(normalized, metal) {
			return true
		}
	}
	return false
}
