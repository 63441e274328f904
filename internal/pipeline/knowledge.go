package pipeline

import (
	"github.com/envtrac/chemrisk-cli/internal/config"
	"github.com/envtrac/chemrisk-cli/internal/proximity"
	"github.com/envtrac/chemrisk-cli/internal/toxicity"
)

// LoadKnowledge assembles the toxicity resolver and sensitive-location set
// from the built-in tables plus any configured overrides. A YAML toxicity or
// locations file replaces its built-in table outright; a shapefile appends to
// whichever location set is in effect.
func LoadKnowledge(cfg *config.Config) (*toxicity.Resolver, []proximity.SensitiveLocation, error) {
	entries := toxicity.DefaultEntries
	if cfg.Knowledge.ToxicityFile != "" {
		loaded, err := toxicity.LoadEntries(cfg.Knowledge.ToxicityFile)
		if err != nil {
			return nil, nil, err
		}
		entries = loaded
	}

	locations := proximity.DefaultLocations
	if cfg.Knowledge.LocationsFile != "" {
		loaded, err := proximity.LoadLocations(cfg.Knowledge.LocationsFile)
		if err != nil {
			return nil, nil, err
		}
		locations = loaded
	}
	if cfg.Knowledge.LocationsSHP != "" {
		fromSHP, err := proximity.LoadShapefile(
			cfg.Knowledge.LocationsSHP,
			proximity.Category(cfg.Knowledge.SHPCategory),
			cfg.Knowledge.SHPWeight,
		)
		if err != nil {
			return nil, nil, err
		}
		locations = append(locations[:len(locations):len(locations)], fromSHP...)
	}

	return toxicity.NewResolver(entries), locations, nil
}
