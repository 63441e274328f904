package toxicity

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveKnownChemicals(t *testing.T) {
	r := NewResolver(DefaultEntries)

	tests := []struct {
		name     string
		chemical string
		expected float64
	}{
		{"exact match", "mercury", 100.0},
		{"mixed case", "Benzene", 88.0},
		{"whitespace", "  lead  ", 95.0},
		{"substring in longer name", "Mercury (and its compounds)", 100.0},
		{"pm2.5", "PM2.5", 74.0},
		{"acetone", "Acetone", 45.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, r.Resolve(tt.chemical))
		})
	}
}

func TestResolveUnknownReturnsFloor(t *testing.T) {
	r := NewResolver(DefaultEntries)
	assert.Equal(t, DefaultFloor, r.Resolve("dihydrogen monoxide"))
	assert.Equal(t, DefaultFloor, r.Resolve(""))
}

func TestResolveFirstMatchWinsOverHigherScore(t *testing.T) {
	// The earlier key decides even when a later key would score higher.
	r := NewResolver([]Entry{
		{Match: "chloride", Score: 40},
		{Match: "methylene chloride", Score: 78},
	})
	assert.Equal(t, 40.0, r.Resolve("Methylene Chloride"))
}

func TestResolveFloorsLowScoringMatch(t *testing.T) {
	r := NewResolver([]Entry{{Match: "water", Score: 5}})
	assert.Equal(t, DefaultFloor, r.Resolve("water vapour"))
}

func TestResolveDefaultTableOrder(t *testing.T) {
	r := NewResolver(DefaultEntries)
	// "lead" precedes "chromium": a name containing both resolves as lead.
	assert.Equal(t, 95.0, r.Resolve("lead chromium alloy dust"))
	// "co" sits behind "carbon monoxide" but still catches bare names.
	assert.Equal(t, 52.0, r.Resolve("co emissions"))
}

func TestIsCarcinogen(t *testing.T) {
	assert.True(t, IsCarcinogen(80.0))
	assert.True(t, IsCarcinogen(95.5))
	assert.False(t, IsCarcinogen(79.99))
}

func TestIsHeavyMetal(t *testing.T) {
	assert.True(t, IsHeavyMetal("Lead"))
	assert.True(t, IsHeavyMetal("hexavalent chromium"))
	assert.True(t, IsHeavyMetal("  Arsenic compounds "))
	assert.False(t, IsHeavyMetal("toluene"))
}

func TestLoadEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kb.yaml")
	content := "- match: solvent x\n  score: 66\n- match: solvent\n  score: 44\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	entries, err := LoadEntries(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "solvent x", entries[0].Match)
	assert.Equal(t, 66.0, entries[0].Score)

	// Priority follows file order.
	r := NewResolver(entries)
	assert.Equal(t, 66.0, r.Resolve("Solvent X blend"))
	assert.Equal(t, 44.0, r.Resolve("plain solvent"))
}

func TestLoadEntriesRejectsBadScores(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kb.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- match: x\n  score: 120\n"), 0o644))

	_, err := LoadEntries(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside [0,100]")
}

func TestLoadEntriesMissingFile(t *testing.T) {
	_, err := LoadEntries(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
