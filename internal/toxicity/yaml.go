package toxicity

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// LoadEntries reads a replacement knowledge base from a YAML file. The file
// must be a sequence of {match, score} mappings; sequence order becomes match
// priority:
//
//	- match: mercury
//	  score: 100
//	- match: lead
//	  score: 95
func LoadEntries(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "toxicity: read knowledge base %s", path)
	}

	var entries []Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, eris.Wrapf(err, "toxicity: parse knowledge base %s", path)
	}
	if len(entries) == 0 {
		return nil, eris.Errorf("toxicity: knowledge base %s is empty", path)
	}

	for i, e := range entries {
		if e.Match == "" {
			return nil, eris.Errorf("toxicity: entry %d has an empty match key", i)
		}
		if e.Score < 0 || e.Score > 100 {
			return nil, eris.Errorf("toxicity: entry %q score %.1f outside [0,100]", e.Match, e.Score)
		}
	}

	return entries, nil
}
