package sample

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/envtrac/chemrisk-cli/internal/ingest"
)

func TestGenerateDeterministic(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.csv")
	second := filepath.Join(dir, "b.csv")

	n1, err := Generate(first, Options{Facilities: 20})
	require.NoError(t, err)
	n2, err := Generate(second, Options{Facilities: 20})
	require.NoError(t, err)
	assert.Equal(t, n1, n2)

	a, err := os.ReadFile(first)
	require.NoError(t, err)
	b, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Equal(t, a, b, "same seed must produce identical extracts")
}

func TestGenerateSeedChangesOutput(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.csv")
	second := filepath.Join(dir, "b.csv")

	_, err := Generate(first, Options{Facilities: 20, Seed: 42})
	require.NoError(t, err)
	_, err = Generate(second, Options{Facilities: 20, Seed: 43})
	require.NoError(t, err)

	a, _ := os.ReadFile(first)
	b, _ := os.ReadFile(second)
	assert.NotEqual(t, a, b)
}

func TestGenerateFeedsIngest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chemtrac_raw.csv")

	n, err := Generate(path, Options{})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 120, "every facility reports at least one chemical")

	result, err := ingest.Clean(context.Background(), path, ingest.Options{})
	require.NoError(t, err)
	assert.Len(t, result.Rows, n)
	assert.Zero(t, result.Dropped)

	seen := make(map[string]bool)
	for _, row := range result.Rows {
		seen[row.FacilityID] = true
		assert.Regexp(t, `^FAC_\d{4}$`, row.FacilityID)
		if row.Latitude != 0 {
			assert.InDelta(t, 43.715, row.Latitude, 0.14, "latitude inside the Toronto box")
			assert.InDelta(t, -79.375, row.Longitude, 0.27, "longitude inside the Toronto box")
		}
	}
	assert.Len(t, seen, 120)
}
