package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/envtrac/chemrisk-cli/internal/model"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func testRecords() []model.FacilityRecord {
	return []model.FacilityRecord{
		{
			FacilityID:   "FAC_0002",
			FacilityName: "North Plating Ltd",
			Industry:     "Metal fabrication",
			Latitude:     43.71,
			Longitude:    -79.40,
			RiskScore:    83.25,
			Anomaly:      true, AnomalyConfidence: 75,
			Chemicals: []model.ChemicalDetail{{Name: "Chromium", AmountKG: 120.5, ToxicityScore: 98}},
		},
		{
			FacilityID:   "FAC_0001",
			FacilityName: "Lakeshore Coatings",
			Industry:     "Printing",
			Latitude:     43.64,
			Longitude:    -79.38,
			RiskScore:    12.5,
		},
	}
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("CreateAndGetRun", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, model.VariantAdvanced, "data/raw/chemtrac_raw.csv")
		require.NoError(t, err)
		assert.NotEmpty(t, run.ID)
		assert.Equal(t, model.RunStatusQueued, run.Status)
		assert.Equal(t, model.VariantAdvanced, run.Variant)

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, run.ID, got.ID)
		assert.Equal(t, model.RunStatusQueued, got.Status)
		assert.Equal(t, model.VariantAdvanced, got.Variant)
		assert.Equal(t, "data/raw/chemtrac_raw.csv", got.InputPath)
	})

	t.Run("UpdateRunStatus", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, model.VariantAdvanced, "raw.csv")
		require.NoError(t, err)

		err = s.UpdateRunStatus(ctx, run.ID, model.RunStatusScoring)
		require.NoError(t, err)

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusScoring, got.Status)
	})

	t.Run("UpdateRunStatusNotFound", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		err := s.UpdateRunStatus(ctx, "nonexistent-id", model.RunStatusScoring)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("UpdateRunResultComplete", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, model.VariantAdvanced, "raw.csv")
		require.NoError(t, err)

		result := &model.RunResult{
			Rows:       512,
			Facilities: 120,
			Anomalies:  7,
			MaxRisk:    100,
			MeanRisk:   31.77,
			Phases: []model.PhaseResult{
				{Name: "clean", Status: model.PhaseStatusComplete, Duration: 42, Records: 512},
			},
		}

		err = s.UpdateRunResult(ctx, run.ID, result)
		require.NoError(t, err)

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusComplete, got.Status)
		require.NotNil(t, got.Result)
		assert.Equal(t, 120, got.Result.Facilities)
		assert.Equal(t, 7, got.Result.Anomalies)
		assert.InDelta(t, 31.77, got.Result.MeanRisk, 0.001)
		require.Len(t, got.Result.Phases, 1)
		assert.Equal(t, "clean", got.Result.Phases[0].Name)
	})

	t.Run("UpdateRunResultFailure", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, model.VariantLegacy, "raw.csv")
		require.NoError(t, err)

		err = s.UpdateRunResult(ctx, run.ID, &model.RunResult{Error: "score: no facility rows"})
		require.NoError(t, err)

		got, err := s.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RunStatusFailed, got.Status)
		require.NotNil(t, got.Result)
		assert.Equal(t, "score: no facility rows", got.Result.Error)
	})

	t.Run("ListRuns", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.CreateRun(ctx, model.VariantAdvanced, "a.csv")
		require.NoError(t, err)
		run2, err := s.CreateRun(ctx, model.VariantLegacy, "b.csv")
		require.NoError(t, err)
		err = s.UpdateRunStatus(ctx, run2.ID, model.RunStatusScoring)
		require.NoError(t, err)

		all, err := s.ListRuns(ctx, RunFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 2)

		queued, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusQueued})
		require.NoError(t, err)
		require.Len(t, queued, 1)
		assert.Equal(t, "a.csv", queued[0].InputPath)

		legacy, err := s.ListRuns(ctx, RunFilter{Variant: model.VariantLegacy})
		require.NoError(t, err)
		require.Len(t, legacy, 1)
		assert.Equal(t, run2.ID, legacy[0].ID)

		limited, err := s.ListRuns(ctx, RunFilter{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, limited, 1)
	})

	t.Run("ListRuns_WithOffset", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for _, in := range []string{"a.csv", "b.csv", "c.csv"} {
			_, err := s.CreateRun(ctx, model.VariantAdvanced, in)
			require.NoError(t, err)
		}

		paged, err := s.ListRuns(ctx, RunFilter{Limit: 1, Offset: 1})
		require.NoError(t, err)
		assert.Len(t, paged, 1)
	})

	t.Run("ListRuns_Empty", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		runs, err := s.ListRuns(ctx, RunFilter{})
		require.NoError(t, err)
		assert.Empty(t, runs)
	})

	t.Run("GetRun_NotFound", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.GetRun(ctx, "nonexistent")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("UpdateRunResult_NotFound", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		err := s.UpdateRunResult(ctx, "nonexistent", &model.RunResult{Facilities: 1})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("CreateAndCompletePhase", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, model.VariantAdvanced, "raw.csv")
		require.NoError(t, err)

		phase, err := s.CreatePhase(ctx, run.ID, "clean")
		require.NoError(t, err)
		assert.NotEmpty(t, phase.ID)
		assert.Equal(t, run.ID, phase.RunID)
		assert.Equal(t, "clean", phase.Name)
		assert.Equal(t, model.PhaseStatusRunning, phase.Status)

		result := &model.PhaseResult{
			Name:     "clean",
			Status:   model.PhaseStatusComplete,
			Duration: 1500,
			Records:  512,
			Metadata: map[string]any{"dropped": float64(3)},
		}

		err = s.CompletePhase(ctx, phase.ID, result)
		require.NoError(t, err)
	})

	t.Run("CompletePhaseNotFound", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		result := &model.PhaseResult{Name: "clean", Status: model.PhaseStatusComplete}

		err := s.CompletePhase(ctx, "nonexistent-id", result)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("SaveAndLoadFacilities", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, model.VariantAdvanced, "raw.csv")
		require.NoError(t, err)

		require.NoError(t, s.SaveFacilities(ctx, run.ID, testRecords()))

		got, err := s.FacilitiesForRun(ctx, run.ID)
		require.NoError(t, err)
		require.Len(t, got, 2)

		// Ordered by facility id, not insertion order.
		assert.Equal(t, "FAC_0001", got[0].FacilityID)
		assert.Equal(t, "FAC_0002", got[1].FacilityID)
		assert.True(t, got[1].Anomaly)
		assert.InDelta(t, 83.25, got[1].RiskScore, 0.001)
		require.Len(t, got[1].Chemicals, 1)
		assert.Equal(t, "Chromium", got[1].Chemicals[0].Name)
	})

	t.Run("SaveFacilitiesReplaces", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		run, err := s.CreateRun(ctx, model.VariantAdvanced, "raw.csv")
		require.NoError(t, err)

		require.NoError(t, s.SaveFacilities(ctx, run.ID, testRecords()))
		require.NoError(t, s.SaveFacilities(ctx, run.ID, testRecords()[:1]))

		got, err := s.FacilitiesForRun(ctx, run.ID)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "FAC_0002", got[0].FacilityID)
	})

	t.Run("FacilitiesForRun_Empty", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		got, err := s.FacilitiesForRun(ctx, "no-such-run")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}
