package api

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"

	"github.com/todmy/faers-signals/internal/cohort"
	"github.com/todmy/faers-signals/internal/signal"
	"github.com/todmy/faers-signals/pkg/models"
)

const maxRequestBytes = 64 << 20

// SignalsRequest is the body of a stateless signal-detection request
type SignalsRequest struct {
	Cases    []models.Case `json:"cases"`
	MinCount *int          `json:"min_count,omitempty"`
	Alpha    *float64      `json:"alpha,omitempty"`
}

// handleDetectSignals runs the engine over caller-supplied cases without persisting anything
func (s *Server) handleDetectSignals(w http.ResponseWriter, r *http.Request) {
	var req SignalsRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	engine, err := s.engineFor(req.MinCount, req.Alpha)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, engine.Analyze(req.Cases))
}

// CohortRequest carries normalized DRUG, REAC and DEMO rows from which the
// case collection is assembled before analysis
type CohortRequest struct {
	Drug           string               `json:"drug"`
	Drugs          []cohort.DrugMention `json:"drugs"`
	Reactions      []cohort.Reaction    `json:"reactions"`
	Demographics   []cohort.Demographic `json:"demographics,omitempty"`
	MinAge         *float64             `json:"min_age,omitempty"`
	MaxAge         *float64             `json:"max_age,omitempty"`
	PreferredTerms []string             `json:"preferred_terms,omitempty"`
	MinCount       *int                 `json:"min_count,omitempty"`
	Alpha          *float64             `json:"alpha,omitempty"`
}

// options translates the request filters into cohort builder options
func (req *CohortRequest) options() ([]cohort.Option, error) {
	var opts []cohort.Option

	if req.MinAge != nil || req.MaxAge != nil {
		minAge, maxAge := 0.0, math.Inf(1)
		if req.MinAge != nil {
			minAge = *req.MinAge
		}
		if req.MaxAge != nil {
			maxAge = *req.MaxAge
		}
		if math.IsNaN(minAge) || math.IsNaN(maxAge) || minAge < 0 || minAge > maxAge {
			return nil, errors.New("invalid age range")
		}
		opts = append(opts, cohort.WithAgeRange(minAge, maxAge, req.Demographics))
	}

	if len(req.PreferredTerms) > 0 {
		opts = append(opts, cohort.WithPreferredTerms(req.PreferredTerms...))
	}

	return opts, nil
}

// handleDetectCohortSignals assembles cases from normalized rows and runs the engine
func (s *Server) handleDetectCohortSignals(w http.ResponseWriter, r *http.Request) {
	var req CohortRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if cohort.NormalizeDrugName(req.Drug) == "" {
		respondError(w, http.StatusBadRequest, "drug is required")
		return
	}

	opts, err := req.options()
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	engine, err := s.engineFor(req.MinCount, req.Alpha)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	cases := cohort.Build(req.Drug, req.Drugs, req.Reactions, opts...)
	respondJSON(w, http.StatusOK, engine.Analyze(cases))
}

// engineFor returns the configured engine, or a copy with the request's
// overrides applied. Invalid overrides are reported as signal.ErrInvalidInput.
func (s *Server) engineFor(minCount *int, alpha *float64) (*signal.Service, error) {
	if minCount == nil && alpha == nil {
		return s.engine, nil
	}

	cfg := s.engine.Config()
	if minCount != nil {
		cfg.MinCount = *minCount
	}
	if alpha != nil {
		cfg.Alpha = *alpha
	}

	return signal.NewService(cfg, s.logger)
}
