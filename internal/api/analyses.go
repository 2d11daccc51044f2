package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/todmy/faers-signals/internal/auth"
	"github.com/todmy/faers-signals/internal/cache"
	"github.com/todmy/faers-signals/internal/export"
	"github.com/todmy/faers-signals/internal/signal"
	"github.com/todmy/faers-signals/internal/storage"
	"github.com/todmy/faers-signals/pkg/models"
)

// AnalysisRequest represents a request to run a persisted analysis
type AnalysisRequest struct {
	Drug     string   `json:"drug"`
	MinAge   *float64 `json:"min_age,omitempty"`
	MaxAge   *float64 `json:"max_age,omitempty"`
	MinCount *int     `json:"min_count,omitempty"`
	Alpha    *float64 `json:"alpha,omitempty"`
}

// AnalysisResponse pairs a stored run with its full result
type AnalysisResponse struct {
	Analysis *models.AnalysisRun `json:"analysis"`
	Result   *signal.Result      `json:"result"`
	Cached   bool                `json:"cached"`
}

// validate checks the request fields the engine configuration does not cover
func (req *AnalysisRequest) validate() error {
	if strings.TrimSpace(req.Drug) == "" {
		return errors.New("drug is required")
	}
	for _, age := range []*float64{req.MinAge, req.MaxAge} {
		if age != nil && (math.IsNaN(*age) || math.IsInf(*age, 0) || *age < 0) {
			return errors.New("age bounds must be non-negative numbers")
		}
	}
	if req.MinAge != nil && req.MaxAge != nil && *req.MinAge > *req.MaxAge {
		return errors.New("min_age must not exceed max_age")
	}
	return nil
}

// AnalystSummary describes the signed-in analyst and how many analysis
// runs they have saved
type AnalystSummary struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Analyses int    `json:"analyses"`
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	count, err := s.analysisRepo.CountByAnalystID(r.Context(), claims.AnalystID)
	if err != nil {
		s.logger.WithError(err).WithField("analyst_id", claims.AnalystID).Error("Failed to count analysis runs")
		respondError(w, http.StatusInternalServerError, "failed to load analyst")
		return
	}

	respondJSON(w, http.StatusOK, AnalystSummary{ID: claims.AnalystID, Email: claims.Email, Analyses: count})
}

// handleCreateAnalysis loads the cohort for a drug, runs both exposure
// partitions (or reuses a cached result) and persists the run
func (s *Server) handleCreateAnalysis(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := req.validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	engine, err := s.engineFor(req.MinCount, req.Alpha)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	cases, err := s.caseRepo.LoadCases(ctx, storage.CaseQuery{
		Drug:   req.Drug,
		MinAge: req.MinAge,
		MaxAge: req.MaxAge,
	})
	if err != nil {
		s.logger.WithError(err).WithField("drug", req.Drug).Error("Failed to load cases")
		respondError(w, http.StatusInternalServerError, "failed to load cases")
		return
	}

	key := cache.Key(req.Drug, engine.Config(), cases)
	result, cached, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.WithError(err).WithField("cache_key", key).Warn("Cache read failed")
	}
	if !cached {
		result = engine.Analyze(cases)
		if err := s.cache.Set(ctx, key, result); err != nil {
			s.logger.WithError(err).WithField("cache_key", key).Warn("Cache write failed")
		}
	}

	run := &models.AnalysisRun{
		AnalystID:           claims.AnalystID,
		Drug:                strings.TrimSpace(req.Drug),
		MinCount:            result.MinCount,
		Alpha:               result.Alpha,
		TotalCases:          result.TotalCases,
		ExposedCases:        result.AnyMention.ExposedCases,
		PrimarySuspectCases: result.PrimarySuspect.ExposedCases,
		CacheKey:            key,
	}

	records := make(map[signal.Exposure][]models.SignalRecord, len(signal.Exposures))
	for _, exposure := range signal.Exposures {
		records[exposure] = result.Partition(exposure).Records
	}

	if err := s.analysisRepo.SaveRun(ctx, run, records); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"drug":      run.Drug,
			"cache_key": key,
		}).Error("Failed to save analysis run")
		respondError(w, http.StatusInternalServerError, "failed to save analysis")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"analysis_id": run.ID,
		"drug":        run.Drug,
		"total_cases": run.TotalCases,
		"cached":      cached,
	}).Info("Analysis completed")

	respondJSON(w, http.StatusCreated, AnalysisResponse{
		Analysis: run,
		Result:   result,
		Cached:   cached,
	})
}

// handleListAnalyses returns all runs of the authenticated analyst
func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	runs, err := s.analysisRepo.GetByAnalystID(r.Context(), claims.AnalystID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch analyses")
		return
	}

	respondJSON(w, http.StatusOK, runs)
}

// handleGetAnalysis returns the metadata of one run
func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	run, ok := s.ownedRun(w, r)
	if !ok {
		return
	}

	respondJSON(w, http.StatusOK, run)
}

// handleGetSignals returns the stored records of one exposure partition.
// only_signals=true keeps flagged terms only.
func (s *Server) handleGetSignals(w http.ResponseWriter, r *http.Request) {
	exposure, err := signal.ParseExposure(r.URL.Query().Get("exposure"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	onlySignals := false
	if raw := r.URL.Query().Get("only_signals"); raw != "" {
		onlySignals, err = strconv.ParseBool(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "only_signals must be a boolean")
			return
		}
	}

	run, ok := s.ownedRun(w, r)
	if !ok {
		return
	}

	records, err := s.analysisRepo.GetSignals(r.Context(), run.ID, exposure)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch signals")
		return
	}

	if onlySignals {
		flagged := make([]models.SignalRecord, 0, len(records))
		for _, rec := range records {
			if rec.Signal {
				flagged = append(flagged, rec)
			}
		}
		records = flagged
	}

	respondJSON(w, http.StatusOK, signal.PartitionResult{
		Exposure:       exposure,
		ExposedCases:   exposedCases(run, exposure),
		UnexposedCases: run.TotalCases - exposedCases(run, exposure),
		Records:        records,
	})
}

// handleExportAnalysis streams both partitions of a run as an xlsx workbook
func (s *Server) handleExportAnalysis(w http.ResponseWriter, r *http.Request) {
	run, ok := s.ownedRun(w, r)
	if !ok {
		return
	}

	records := make(map[signal.Exposure][]models.SignalRecord, len(signal.Exposures))
	for _, exposure := range signal.Exposures {
		recs, err := s.analysisRepo.GetSignals(r.Context(), run.ID, exposure)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to fetch signals")
			return
		}
		records[exposure] = recs
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=signals-%s.xlsx", run.ID))
	if err := export.WriteWorkbook(w, run, records); err != nil {
		s.logger.WithError(err).WithField("analysis_id", run.ID).Error("Failed to write workbook")
	}
}

// ownedRun loads the run named in the URL and verifies the caller owns it.
// It writes the error response itself and reports false on failure.
func (s *Server) ownedRun(w http.ResponseWriter, r *http.Request) (*models.AnalysisRun, bool) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}

	analysisID := chi.URLParam(r, "analysisID")
	if _, err := uuid.Parse(analysisID); err != nil {
		respondError(w, http.StatusBadRequest, "invalid analysis id")
		return nil, false
	}

	run, err := s.analysisRepo.GetByID(r.Context(), analysisID)
	if errors.Is(err, storage.ErrAnalysisNotFound) {
		respondError(w, http.StatusNotFound, "analysis not found")
		return nil, false
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch analysis")
		return nil, false
	}

	// Verify ownership
	if run.AnalystID != claims.AnalystID {
		respondError(w, http.StatusForbidden, "access denied")
		return nil, false
	}

	return run, true
}

func exposedCases(run *models.AnalysisRun, exposure signal.Exposure) int {
	if exposure == signal.ExposurePrimarySuspect {
		return run.PrimarySuspectCases
	}
	return run.ExposedCases
}
