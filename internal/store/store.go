// Package store persists pipeline runs, per-stage phases, and scored facility
// rows. SQLite is the default driver; Postgres is available for deployments
// that want PostGIS access to facility geometry.
package store

import (
	"context"
	"errors"

	"github.com/envtrac/chemrisk-cli/internal/model"
)

// ErrNotFound reports that a run or phase does not exist. Both drivers wrap
// it, so callers can map it with errors.Is.
var ErrNotFound = errors.New("not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status  model.RunStatus `json:"status,omitempty"`
	Variant model.Variant   `json:"variant,omitempty"`
	Limit   int             `json:"limit,omitempty"`
	Offset  int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for the scoring pipeline.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, variant model.Variant, inputPath string) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	UpdateRunResult(ctx context.Context, runID string, result *model.RunResult) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Phases
	CreatePhase(ctx context.Context, runID string, name string) (*model.RunPhase, error)
	CompletePhase(ctx context.Context, phaseID string, result *model.PhaseResult) error

	// Facility scores
	SaveFacilities(ctx context.Context, runID string, records []model.FacilityRecord) error
	FacilitiesForRun(ctx context.Context, runID string) ([]model.FacilityRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
