// Package pipeline orchestrates a full scoring run over one disclosure
// snapshot: clean, score, detect, export. Every stage is recorded as a run
// phase in the store and timed in the metrics, so a half-finished run shows
// exactly where it stopped.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/envtrac/chemrisk-cli/internal/alerts"
	"github.com/envtrac/chemrisk-cli/internal/anomaly"
	"github.com/envtrac/chemrisk-cli/internal/config"
	"github.com/envtrac/chemrisk-cli/internal/export"
	"github.com/envtrac/chemrisk-cli/internal/ingest"
	"github.com/envtrac/chemrisk-cli/internal/model"
	"github.com/envtrac/chemrisk-cli/internal/observability"
	"github.com/envtrac/chemrisk-cli/internal/proximity"
	"github.com/envtrac/chemrisk-cli/internal/risk"
	"github.com/envtrac/chemrisk-cli/internal/stats"
	"github.com/envtrac/chemrisk-cli/internal/store"
	"github.com/envtrac/chemrisk-cli/internal/tabular"
	"github.com/envtrac/chemrisk-cli/internal/toxicity"
)

// Pipeline runs the scoring stages for one input snapshot.
type Pipeline struct {
	cfg       *config.Config
	store     store.Store
	metrics   *observability.Metrics
	alerts    *alerts.Publisher // nil when alert publishing is disabled
	resolver  *toxicity.Resolver
	locations []proximity.SensitiveLocation
}

// Summary is what a run produced, for CLI display.
type Summary struct {
	RunID      string              `json:"run_id"`
	Rows       int                 `json:"rows"`
	Dropped    int                 `json:"dropped"`
	Facilities int                 `json:"facilities"`
	Anomalies  int                 `json:"anomalies"`
	MaxRisk    float64             `json:"max_risk"`
	MeanRisk   float64             `json:"mean_risk"`
	Phases     []model.PhaseResult `json:"phases"`
}

// New builds a Pipeline. Knowledge overrides from the config are loaded once
// here, so a bad override file fails construction instead of a run.
func New(cfg *config.Config, st store.Store, metrics *observability.Metrics, pub *alerts.Publisher) (*Pipeline, error) {
	resolver, locations, err := LoadKnowledge(cfg)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		cfg:       cfg,
		store:     st,
		metrics:   metrics,
		alerts:    pub,
		resolver:  resolver,
		locations: locations,
	}, nil
}

// Run executes the full pipeline over inputPath. The returned Summary is
// non-nil even on failure, carrying whatever phases did complete.
func (p *Pipeline) Run(ctx context.Context, inputPath string) (*Summary, error) {
	variant := model.Variant(p.cfg.Model.Variant)
	log := zap.L().With(zap.String("input", inputPath), zap.String("variant", string(variant)))
	log.Info("pipeline: starting run")

	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	run, err := p.store.CreateRun(ctx, variant, inputPath)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}

	summary := &Summary{RunID: run.ID}

	setStatus := func(status model.RunStatus) {
		if statusErr := p.store.UpdateRunStatus(ctx, run.ID, status); statusErr != nil {
			log.Warn("pipeline: failed to update status", zap.Error(statusErr))
		}
	}

	// Phases run strictly in order; each later stage consumes the one before.
	trackPhase := func(name string, fn func() (*model.PhaseResult, error)) *model.PhaseResult {
		phase, phaseErr := p.store.CreatePhase(ctx, run.ID, name)
		if phaseErr != nil {
			log.Warn("pipeline: failed to create phase", zap.String("phase", name), zap.Error(phaseErr))
		}

		start := time.Now()
		phaseResult, fnErr := fn()
		elapsed := time.Since(start)

		if phaseResult == nil {
			phaseResult = &model.PhaseResult{}
		}
		phaseResult.Name = name
		phaseResult.Duration = elapsed.Milliseconds()

		p.metrics.StageDuration.WithLabelValues(name).Observe(elapsed.Seconds())

		if fnErr != nil {
			phaseResult.Status = model.PhaseStatusFailed
			phaseResult.Error = fnErr.Error()
			p.metrics.StageFailures.WithLabelValues(name).Inc()
			log.Error("pipeline: phase failed",
				zap.String("phase", name),
				zap.Int64("duration_ms", phaseResult.Duration),
				zap.Error(fnErr),
			)
		} else {
			phaseResult.Status = model.PhaseStatusComplete
			log.Info("pipeline: phase complete",
				zap.String("phase", name),
				zap.Int64("duration_ms", phaseResult.Duration),
				zap.Int("records", phaseResult.Records),
			)
		}

		if phase != nil {
			_ = p.store.CompletePhase(ctx, phase.ID, phaseResult)
		}
		summary.Phases = append(summary.Phases, *phaseResult)
		return phaseResult
	}

	// The store derives the failed status from the result's error message.
	failRun := func(phase, msg string) error {
		result := &model.RunResult{
			Rows:       summary.Rows,
			Facilities: summary.Facilities,
			Anomalies:  summary.Anomalies,
			MaxRisk:    summary.MaxRisk,
			MeanRisk:   summary.MeanRisk,
			Phases:     summary.Phases,
			Error:      msg,
		}
		if saveErr := p.store.UpdateRunResult(ctx, run.ID, result); saveErr != nil {
			log.Warn("pipeline: failed to save run result", zap.Error(saveErr))
		}
		return eris.Errorf("pipeline: %s phase: %s", phase, msg)
	}

	setStatus(model.RunStatusCleaning)
	var rows []model.ReleaseRow
	pr := trackPhase("clean", func() (*model.PhaseResult, error) {
		res, cleanErr := ingest.Clean(ctx, inputPath, ingest.Options{})
		if cleanErr != nil {
			return nil, cleanErr
		}
		if writeErr := tabular.WriteReleaseRows(p.cfg.Data.Clean, res.Rows); writeErr != nil {
			return nil, writeErr
		}
		rows = res.Rows
		summary.Rows = len(res.Rows)
		summary.Dropped = res.Dropped
		p.metrics.RowsIngested.Add(float64(len(res.Rows)))
		p.metrics.RowsDropped.Add(float64(res.Dropped))
		return &model.PhaseResult{
			Records:  len(res.Rows),
			Metadata: map[string]any{"dropped": res.Dropped, "path": p.cfg.Data.Clean},
		}, nil
	})
	if pr.Status == model.PhaseStatusFailed {
		return summary, failRun("clean", pr.Error)
	}

	setStatus(model.RunStatusScoring)
	var records []model.FacilityRecord
	pr = trackPhase("score", func() (*model.PhaseResult, error) {
		scorer := risk.NewScorer(p.resolver, p.locations, risk.Options{
			Variant:     variant,
			Parallelism: p.cfg.Model.Parallelism,
		})
		scored, scoreErr := scorer.Score(ctx, rows)
		if scoreErr != nil {
			return nil, scoreErr
		}
		if writeErr := tabular.WriteFacilities(p.cfg.Data.Risk, scored); writeErr != nil {
			return nil, writeErr
		}
		records = scored
		summary.Facilities = len(scored)
		p.metrics.FacilitiesScored.Add(float64(len(scored)))
		return &model.PhaseResult{
			Records:  len(scored),
			Metadata: map[string]any{"path": p.cfg.Data.Risk},
		}, nil
	})
	if pr.Status == model.PhaseStatusFailed {
		return summary, failRun("score", pr.Error)
	}

	setStatus(model.RunStatusDetecting)
	pr = trackPhase("detect", func() (*model.PhaseResult, error) {
		detector := anomaly.NewDetector(anomaly.Options{
			Variant:               variant,
			Seed:                  p.cfg.Model.Seed,
			SampleSize:            p.cfg.Model.SampleSize,
			GlobalTrees:           p.cfg.Model.Trees,
			GlobalContamination:   p.cfg.Model.ContaminationGlobal,
			IndustryTrees:         p.cfg.Model.IndustryTrees,
			IndustryContamination: p.cfg.Model.ContaminationIndustry,
			IndustryMinGroup:      p.cfg.Model.IndustryMinGroup,
			RiskPercentile:        p.cfg.Model.RiskPercentile,
		})
		flagged, detectErr := detector.Detect(records)
		if detectErr != nil {
			return nil, detectErr
		}
		if writeErr := tabular.WriteFacilities(p.cfg.Data.Anomaly, records); writeErr != nil {
			return nil, writeErr
		}
		summary.Anomalies = flagged
		p.metrics.AnomaliesFlagged.Add(float64(flagged))
		return &model.PhaseResult{
			Records:  flagged,
			Metadata: map[string]any{"path": p.cfg.Data.Anomaly},
		}, nil
	})
	if pr.Status == model.PhaseStatusFailed {
		return summary, failRun("detect", pr.Error)
	}

	risks := make([]float64, len(records))
	for i, rec := range records {
		risks[i] = rec.RiskScore
	}
	summary.MaxRisk = stats.Max(risks)
	summary.MeanRisk = stats.Round2(stats.Mean(risks))

	setStatus(model.RunStatusExporting)
	pr = trackPhase("export", func() (*model.PhaseResult, error) {
		doc := export.Build(p.resolver, rows, records, time.Now().UTC())
		if writeErr := export.WriteJSON(p.cfg.Export.Web, doc); writeErr != nil {
			return nil, writeErr
		}
		if writeErr := export.WriteGeoJSON(p.cfg.Export.GeoJSON, export.GeoJSON(doc)); writeErr != nil {
			return nil, writeErr
		}
		return &model.PhaseResult{
			Records:  len(doc.Facilities),
			Metadata: map[string]any{"web": p.cfg.Export.Web, "geojson": p.cfg.Export.GeoJSON},
		}, nil
	})
	if pr.Status == model.PhaseStatusFailed {
		return summary, failRun("export", pr.Error)
	}

	if saveErr := p.store.SaveFacilities(ctx, run.ID, records); saveErr != nil {
		log.Warn("pipeline: failed to save facility scores", zap.Error(saveErr))
	}

	if p.alerts != nil {
		if _, pubErr := p.alerts.PublishAnomalies(ctx, run.ID, records); pubErr != nil {
			log.Warn("pipeline: failed to publish anomaly alerts", zap.Error(pubErr))
		}
	}

	result := &model.RunResult{
		Rows:       summary.Rows,
		Facilities: summary.Facilities,
		Anomalies:  summary.Anomalies,
		MaxRisk:    summary.MaxRisk,
		MeanRisk:   summary.MeanRisk,
		Phases:     summary.Phases,
	}
	if saveErr := p.store.UpdateRunResult(ctx, run.ID, result); saveErr != nil {
		log.Warn("pipeline: failed to save run result", zap.Error(saveErr))
	}

	p.metrics.LastRunUnix.Set(float64(time.Now().Unix()))

	log.Info("pipeline: run complete",
		zap.String("run_id", run.ID),
		zap.Int("rows", summary.Rows),
		zap.Int("facilities", summary.Facilities),
		zap.Int("anomalies", summary.Anomalies),
		zap.Float64("max_risk", summary.MaxRisk),
	)
	return summary, nil
}
