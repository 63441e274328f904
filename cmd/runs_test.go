package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/envtrac/chemrisk-cli/internal/model"
)

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2026, 5, 20, 9, 30, 0, 0, time.UTC)
	runs := []model.Run{
		{
			ID:        "abc12345-6789-0000-0000-000000000000",
			Variant:   model.VariantAdvanced,
			Status:    model.RunStatusComplete,
			Result:    &model.RunResult{Rows: 310, Facilities: 120, Anomalies: 9, MaxRisk: 100},
			CreatedAt: now,
			UpdatedAt: now.Add(90 * time.Second),
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			Variant:   model.VariantLegacy,
			Status:    model.RunStatusScoring,
			CreatedAt: now.Add(-1 * time.Hour),
			UpdatedAt: now.Add(-59 * time.Minute),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "ID")
	assert.Contains(t, output, "VARIANT")
	assert.Contains(t, output, "STATUS")
	assert.Contains(t, output, "abc12345")
	assert.Contains(t, output, "advanced")
	assert.Contains(t, output, "complete")
	assert.Contains(t, output, "120")
	assert.Contains(t, output, "def12345")
	assert.Contains(t, output, "legacy")
	assert.Contains(t, output, "scoring")
	assert.Contains(t, output, "2026-05-20 09:30")
}

func TestFormatRunsList_NoResult(t *testing.T) {
	now := time.Date(2026, 5, 20, 9, 30, 0, 0, time.UTC)
	runs := []model.Run{
		{
			ID:        "abc12345-6789-0000-0000-000000000000",
			Variant:   model.VariantAdvanced,
			Status:    model.RunStatusFailed,
			CreatedAt: now,
			UpdatedAt: now.Add(5 * time.Second),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "failed")
	assert.Contains(t, output, "-")
}

func TestComputeRunStats(t *testing.T) {
	now := time.Date(2026, 5, 20, 9, 0, 0, 0, time.UTC)
	runs := []model.Run{
		{
			ID:        "1",
			Status:    model.RunStatusComplete,
			Result:    &model.RunResult{Rows: 300, Facilities: 120, Anomalies: 8, MaxRisk: 100},
			CreatedAt: now,
			UpdatedAt: now.Add(2 * time.Minute),
		},
		{
			ID:        "2",
			Status:    model.RunStatusComplete,
			Result:    &model.RunResult{Rows: 200, Facilities: 80, Anomalies: 3, MaxRisk: 97.5},
			CreatedAt: now.Add(5 * time.Minute),
			UpdatedAt: now.Add(9 * time.Minute),
		},
		{
			ID:        "3",
			Status:    model.RunStatusFailed,
			CreatedAt: now.Add(10 * time.Minute),
			UpdatedAt: now.Add(11 * time.Minute),
		},
		{
			ID:        "4",
			Status:    model.RunStatusScoring,
			CreatedAt: now.Add(12 * time.Minute),
			UpdatedAt: now.Add(12 * time.Minute),
		},
	}

	s := computeRunStats(runs)

	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 2, s.Complete)
	assert.Equal(t, 1, s.Failed)
	assert.Equal(t, 1, s.Other)
	assert.Equal(t, 500, s.Rows)
	assert.Equal(t, 200, s.Facilities)
	assert.Equal(t, 11, s.Anomalies)
	assert.InDelta(t, 100.0, s.MaxRisk, 0.001)
	assert.InDelta(t, 180.0, s.AvgDurSecs, 0.001) // (120s + 240s) / 2
}

func TestComputeRunStats_Empty(t *testing.T) {
	s := computeRunStats(nil)
	assert.Equal(t, 0, s.Total)
	assert.Zero(t, s.AvgDurSecs)
}

func TestFormatRunStats(t *testing.T) {
	var buf bytes.Buffer
	formatRunStats(&buf, runStats{
		Total: 3, Complete: 2, Failed: 1,
		Rows: 500, Facilities: 200, Anomalies: 11,
		MaxRisk: 100, AvgDurSecs: 180,
	})

	output := buf.String()
	assert.Contains(t, output, "Total runs:")
	assert.Contains(t, output, "Facilities scored:")
	assert.Contains(t, output, "200")
	assert.Contains(t, output, "100.0")
	assert.Contains(t, output, "180.0s")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789-0000-0000-000000000000"))
	assert.Equal(t, "short", truncateID("short"))
}
