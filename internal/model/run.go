package model

import "time"

// Variant selects which generation of the risk and anomaly models a run uses.
// The advanced variant is canonical; legacy is the earlier single-detector
// model kept for comparison runs.
type Variant string

const (
	VariantAdvanced Variant = "advanced"
	VariantLegacy   Variant = "legacy"
)

// Valid reports whether v names a known model variant.
func (v Variant) Valid() bool {
	return v == VariantAdvanced || v == VariantLegacy
}

// RunStatus represents the current state of a pipeline run.
type RunStatus string

const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusCleaning  RunStatus = "cleaning"
	RunStatusScoring   RunStatus = "scoring"
	RunStatusDetecting RunStatus = "detecting"
	RunStatusExporting RunStatus = "exporting"
	RunStatusComplete  RunStatus = "complete"
	RunStatusFailed    RunStatus = "failed"
)

// Run represents a single pipeline execution over one input snapshot.
type Run struct {
	ID        string     `json:"id"`
	Variant   Variant    `json:"variant"`
	InputPath string     `json:"input_path"`
	Status    RunStatus  `json:"status"`
	Result    *RunResult `json:"result,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RunResult holds the final outcome of a run.
type RunResult struct {
	Rows       int           `json:"rows"`
	Facilities int           `json:"facilities"`
	Anomalies  int           `json:"anomalies"`
	MaxRisk    float64       `json:"max_risk"`
	MeanRisk   float64       `json:"mean_risk"`
	Phases     []PhaseResult `json:"phases"`
	Error      string        `json:"error,omitempty"`
}

// PhaseStatus represents the current state of a pipeline phase.
type PhaseStatus string

const (
	PhaseStatusRunning  PhaseStatus = "running"
	PhaseStatusComplete PhaseStatus = "complete"
	PhaseStatusFailed   PhaseStatus = "failed"
	PhaseStatusSkipped  PhaseStatus = "skipped"
)

// RunPhase represents a phase within a run.
type RunPhase struct {
	ID        string       `json:"id"`
	RunID     string       `json:"run_id"`
	Name      string       `json:"name"`
	Status    PhaseStatus  `json:"status"`
	Result    *PhaseResult `json:"result,omitempty"`
	StartedAt time.Time    `json:"started_at"`
}

// PhaseResult holds the outcome of a pipeline phase.
type PhaseResult struct {
	Name     string         `json:"name"`
	Status   PhaseStatus    `json:"status"`
	Duration int64          `json:"duration_ms"`
	Records  int            `json:"records"`
	Error    string         `json:"error,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}
