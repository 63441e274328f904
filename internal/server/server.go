// Package server exposes the latest scored snapshot over HTTP: facility and
// summary JSON for the map front end, GeoJSON for mapping clients, run
// history from the store, and Prometheus metrics. The served snapshot is
// swapped atomically, so a scheduled refresh never disturbs in-flight reads.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	geojson "github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/envtrac/chemrisk-cli/internal/config"
	"github.com/envtrac/chemrisk-cli/internal/export"
	"github.com/envtrac/chemrisk-cli/internal/pipeline"
	"github.com/envtrac/chemrisk-cli/internal/store"
)

// Server serves the exported facility document and run history.
type Server struct {
	cfg   *config.Config
	store store.Store
	pipe  *pipeline.Pipeline // nil disables Refresh and the cron schedule

	mu  sync.RWMutex
	doc *export.Document
	fc  *geojson.FeatureCollection
}

// New builds a Server. pipe may be nil when the server only replays an
// existing export and never refreshes it.
func New(cfg *config.Config, st store.Store, pipe *pipeline.Pipeline) *Server {
	return &Server{cfg: cfg, store: st, pipe: pipe}
}

// LoadSnapshot reads the exported web document from disk and swaps it in.
func (s *Server) LoadSnapshot() error {
	data, err := os.ReadFile(s.cfg.Export.Web)
	if err != nil {
		return eris.Wrapf(err, "server: read snapshot %s", s.cfg.Export.Web)
	}
	var doc export.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return eris.Wrapf(err, "server: decode snapshot %s", s.cfg.Export.Web)
	}
	s.swap(&doc)
	zap.L().Info("snapshot loaded",
		zap.String("path", s.cfg.Export.Web),
		zap.Int("facilities", len(doc.Facilities)),
	)
	return nil
}

func (s *Server) swap(doc *export.Document) {
	fc := export.GeoJSON(doc)
	s.mu.Lock()
	s.doc = doc
	s.fc = fc
	s.mu.Unlock()
}

// snapshot returns the served document and feature collection. Both are nil
// until the first successful LoadSnapshot.
func (s *Server) snapshot() (*export.Document, *geojson.FeatureCollection) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.doc, s.fc
}

// Refresh re-runs the pipeline over the configured raw extract and serves
// the resulting snapshot.
func (s *Server) Refresh(ctx context.Context) error {
	if s.pipe == nil {
		return eris.New("server: refresh requires a pipeline")
	}
	if _, err := s.pipe.Run(ctx, s.cfg.Data.Raw); err != nil {
		return err
	}
	return s.LoadSnapshot()
}

// Start serves until ctx is cancelled, then drains in-flight requests. A
// missing snapshot is not fatal: the API answers 503 until one appears.
func (s *Server) Start(ctx context.Context) error {
	if err := s.LoadSnapshot(); err != nil {
		zap.L().Warn("no snapshot at startup, API serves 503 until a run completes", zap.Error(err))
	}

	if spec := s.cfg.Server.RefreshCron; spec != "" && s.pipe != nil {
		c := cron.New()
		_, err := c.AddFunc(spec, func() {
			if err := s.Refresh(context.Background()); err != nil {
				zap.L().Error("scheduled refresh failed", zap.Error(err))
			}
		})
		if err != nil {
			return eris.Wrapf(err, "server: bad refresh schedule %q", spec)
		}
		c.Start()
		defer c.Stop()
		zap.L().Info("scheduled refresh enabled", zap.String("cron", spec))
	}

	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("starting server", zap.String("addr", s.cfg.Server.Addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server listen")
	}
	return nil
}
