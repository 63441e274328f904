package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/envtrac/chemrisk-cli/internal/export"
	"github.com/envtrac/chemrisk-cli/internal/model"
	"github.com/envtrac/chemrisk-cli/internal/store"
)

type facilitiesResponse struct {
	Count      int               `json:"count"`
	Facilities []export.Facility `json:"facilities"`
}

type runsResponse struct {
	Count int         `json:"count"`
	Runs  []model.Run `json:"runs"`
}

type runFacilitiesResponse struct {
	RunID      string                 `json:"run_id"`
	Count      int                    `json:"count"`
	Facilities []model.FacilityRecord `json:"facilities"`
}

// Router assembles the API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.Server.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/facilities", s.handleFacilities)
		r.Get("/facilities/geojson", s.handleGeoJSON)
		r.Get("/summary", s.handleSummary)
		r.Get("/runs", s.handleRuns)
		r.Get("/runs/{runID}", s.handleRun)
		r.Get("/runs/{runID}/facilities", s.handleRunFacilities)
	})

	return r
}

// handleFacilities serves the exported facilities, optionally filtered by
// anomalies_only, industry (case-insensitive substring), and min_risk.
// Unscored facilities never match a min_risk filter.
func (s *Server) handleFacilities(w http.ResponseWriter, r *http.Request) {
	doc, _ := s.snapshot()
	if doc == nil {
		writeError(w, http.StatusServiceUnavailable, "no snapshot loaded; run the pipeline first")
		return
	}

	q := r.URL.Query()
	anomaliesOnly := false
	if v := q.Get("anomalies_only"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "anomalies_only must be a boolean")
			return
		}
		anomaliesOnly = b
	}
	industry := strings.ToLower(q.Get("industry"))
	minRisk := 0.0
	minRiskSet := false
	if v := q.Get("min_risk"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "min_risk must be a number")
			return
		}
		minRisk, minRiskSet = f, true
	}

	out := make([]export.Facility, 0, len(doc.Facilities))
	for _, f := range doc.Facilities {
		if anomaliesOnly && !f.Anomaly {
			continue
		}
		if industry != "" && !strings.Contains(strings.ToLower(f.Industry), industry) {
			continue
		}
		if minRiskSet && (f.RiskScore == nil || *f.RiskScore < minRisk) {
			continue
		}
		out = append(out, f)
	}
	writeJSON(w, http.StatusOK, facilitiesResponse{Count: len(out), Facilities: out})
}

func (s *Server) handleGeoJSON(w http.ResponseWriter, _ *http.Request) {
	_, fc := s.snapshot()
	if fc == nil {
		writeError(w, http.StatusServiceUnavailable, "no snapshot loaded; run the pipeline first")
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(fc)
}

func (s *Server) handleSummary(w http.ResponseWriter, _ *http.Request) {
	doc, _ := s.snapshot()
	if doc == nil {
		writeError(w, http.StatusServiceUnavailable, "no snapshot loaded; run the pipeline first")
		return
	}
	writeJSON(w, http.StatusOK, doc.Summary)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.RunFilter{
		Status:  model.RunStatus(q.Get("status")),
		Variant: model.Variant(q.Get("variant")),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		filter.Offset = n
	}

	runs, err := s.store.ListRuns(r.Context(), filter)
	if err != nil {
		zap.L().Error("list runs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not list runs")
		return
	}
	writeJSON(w, http.StatusOK, runsResponse{Count: len(runs), Runs: runs})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	run, err := s.store.GetRun(r.Context(), runID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		zap.L().Error("get run failed", zap.String("run_id", runID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load run")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleRunFacilities(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	if _, err := s.store.GetRun(r.Context(), runID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		zap.L().Error("get run failed", zap.String("run_id", runID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load run")
		return
	}

	records, err := s.store.FacilitiesForRun(r.Context(), runID)
	if err != nil {
		zap.L().Error("load run facilities failed", zap.String("run_id", runID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not load facilities")
		return
	}
	writeJSON(w, http.StatusOK, runFacilitiesResponse{RunID: runID, Count: len(records), Facilities: records})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("encode response failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}
