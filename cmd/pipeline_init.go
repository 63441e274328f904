package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/envtrac/chemrisk-cli/internal/alerts"
	"github.com/envtrac/chemrisk-cli/internal/config"
	"github.com/envtrac/chemrisk-cli/internal/observability"
	"github.com/envtrac/chemrisk-cli/internal/pipeline"
	"github.com/envtrac/chemrisk-cli/internal/store"
)

// pipelineEnv holds the store, optional alert publisher, and the pipeline
// shared by the run and serve commands.
type pipelineEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
	Alerts   *alerts.Publisher // nil when alerts are disabled
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Alerts != nil {
		_ = pe.Alerts.Close()
	}
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline opens the store, registers metrics, and builds the Pipeline.
// Callers should defer env.Close().
func initPipeline(ctx context.Context, c *config.Config) (*pipelineEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	var pub *alerts.Publisher
	if c.Alerts.Enabled {
		pub = alerts.NewPublisher(c.Alerts.Brokers, c.Alerts.Topic)
		zap.L().Info("anomaly alerts enabled",
			zap.Strings("brokers", c.Alerts.Brokers),
			zap.String("topic", c.Alerts.Topic),
		)
	}

	p, err := pipeline.New(c, st, observability.NewMetrics(), pub)
	if err != nil {
		if pub != nil {
			_ = pub.Close()
		}
		_ = st.Close()
		return nil, err
	}

	return &pipelineEnv{
		Store:    st,
		Pipeline: p,
		Alerts:   pub,
	}, nil
}
