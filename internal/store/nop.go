package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/envtrac/chemrisk-cli/internal/model"
)

// NopStore discards everything. It backs the "none" store driver, so the
// batch pipeline can run without a ledger database.
type NopStore struct{}

// NewNop returns a Store that records nothing.
func NewNop() *NopStore {
	return &NopStore{}
}

func (n *NopStore) CreateRun(_ context.Context, variant model.Variant, inputPath string) (*model.Run, error) {
	now := clock.Now().UTC()
	return &model.Run{
		ID:        uuid.New().String(),
		Variant:   variant,
		InputPath: inputPath,
		Status:    model.RunStatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (n *NopStore) UpdateRunStatus(context.Context, string, model.RunStatus) error {
	return nil
}

func (n *NopStore) UpdateRunResult(context.Context, string, *model.RunResult) error {
	return nil
}

func (n *NopStore) GetRun(_ context.Context, runID string) (*model.Run, error) {
	return nil, eris.Wrapf(ErrNotFound, "run %s", runID)
}

func (n *NopStore) ListRuns(context.Context, RunFilter) ([]model.Run, error) {
	return nil, nil
}

func (n *NopStore) CreatePhase(_ context.Context, runID string, name string) (*model.RunPhase, error) {
	now := clock.Now().UTC()
	return &model.RunPhase{
		ID:        uuid.New().String(),
		RunID:     runID,
		Name:      name,
		Status:    model.PhaseStatusRunning,
		StartedAt: now,
	}, nil
}

func (n *NopStore) CompletePhase(context.Context, string, *model.PhaseResult) error {
	return nil
}

func (n *NopStore) SaveFacilities(context.Context, string, []model.FacilityRecord) error {
	return nil
}

func (n *NopStore) FacilitiesForRun(context.Context, string) ([]model.FacilityRecord, error) {
	return nil, nil
}

func (n *NopStore) Migrate(context.Context) error { return nil }

func (n *NopStore) Close() error { return nil }
