// Package api exposes the attribution engine over HTTP for dashboards and
// the reporting tooling.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/paidsearchnav/attribution-service/internal/attribution"
	"github.com/paidsearchnav/attribution-service/internal/cache"
	"github.com/paidsearchnav/attribution-service/internal/domain"
	"github.com/paidsearchnav/attribution-service/internal/repository/postgres"
)

// JourneyReader loads journeys and touches for on-demand calculation.
type JourneyReader interface {
	Get(ctx context.Context, journeyID string) (*domain.CustomerJourney, error)
	Touches(ctx context.Context, journeyID string) ([]domain.AttributionTouch, error)
	GCLIDMappings(ctx context.Context, customerID string) ([]domain.GCLIDMapping, error)
}

// ResultReader serves stored results for reporting endpoints.
type ResultReader interface {
	GetByJourney(ctx context.Context, journeyID string, modelType domain.AttributionModelType) (*domain.AttributionResult, error)
	ListSince(ctx context.Context, modelType domain.AttributionModelType, since time.Time, limit int) ([]*domain.AttributionResult, error)
	AttachTouchWeights(ctx context.Context, results []*domain.AttributionResult) error
	ChannelMetrics(ctx context.Context, modelType domain.AttributionModelType, windowStart, windowEnd time.Time) ([]domain.CrossPlatformMetrics, error)
}

// Handlers contains all HTTP handlers.
type Handlers struct {
	engine   *attribution.Engine
	journeys JourneyReader
	results  ResultReader
	cache    *cache.ResultCache
}

// NewHandlers creates a Handlers instance around the engine and the stored
// data it reports on.
func NewHandlers(engine *attribution.Engine, journeys JourneyReader, results ResultReader) *Handlers {
	return &Handlers{engine: engine, journeys: journeys, results: results}
}

// SetResultCache sets the optional read-through result cache.
func (h *Handlers) SetResultCache(c *cache.ResultCache) {
	h.cache = c
}

// HealthCheck reports service liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

type calculateRequest struct {
	JourneyID string                    `json:"journey_id,omitempty"`
	Journey   *domain.CustomerJourney   `json:"journey,omitempty"`
	Touches   []domain.AttributionTouch `json:"touches,omitempty"`
	Model     modelSpec                 `json:"model"`
}

// HandleCalculate computes attribution for one journey, supplied either
// inline or by ID.
func (h *Handlers) HandleCalculate(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	model, err := req.Model.build()
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	journey, touches, err := h.resolveJourney(r.Context(), &req)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	result, err := h.engine.CalculateAttribution(r.Context(), journey, touches, model)
	if err != nil {
		var inputErr *attribution.InvalidInputError
		if errors.As(err, &inputErr) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, result)
}

type compareRequest struct {
	JourneyID string                    `json:"journey_id,omitempty"`
	Journey   *domain.CustomerJourney   `json:"journey,omitempty"`
	Touches   []domain.AttributionTouch `json:"touches,omitempty"`
	Models    []modelSpec               `json:"models"`
}

// HandleCompare runs several models against the same journey.
func (h *Handlers) HandleCompare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Models) == 0 {
		respondError(w, http.StatusBadRequest, "at least one model is required")
		return
	}

	models := make([]*attribution.Model, 0, len(req.Models))
	for _, spec := range req.Models {
		model, err := spec.build()
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		models = append(models, model)
	}

	calcReq := calculateRequest{JourneyID: req.JourneyID, Journey: req.Journey, Touches: req.Touches}
	journey, touches, err := h.resolveJourney(r.Context(), &calcReq)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	results, err := h.engine.CompareModels(r.Context(), journey, touches, models)
	if err != nil {
		var inputErr *attribution.InvalidInputError
		if errors.As(err, &inputErr) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, results)
}

func (h *Handlers) resolveJourney(ctx context.Context, req *calculateRequest) (*domain.CustomerJourney, []domain.AttributionTouch, error) {
	if req.Journey != nil {
		return req.Journey, req.Touches, nil
	}
	if req.JourneyID == "" {
		return nil, nil, errors.New("either journey_id or an inline journey is required")
	}
	journey, err := h.journeys.Get(ctx, req.JourneyID)
	if err != nil {
		return nil, nil, err
	}
	touches, err := h.journeys.Touches(ctx, req.JourneyID)
	if err != nil {
		return nil, nil, err
	}
	return journey, touches, nil
}

// HandleGetResult serves a stored result, consulting the cache first.
func (h *Handlers) HandleGetResult(w http.ResponseWriter, r *http.Request) {
	journeyID := chi.URLParam(r, "journeyID")
	modelType := domain.AttributionModelType(r.URL.Query().Get("model"))
	if modelType == "" {
		modelType = domain.ModelLinear
	}

	if h.cache != nil {
		if result, err := h.cache.Get(r.Context(), journeyID, string(modelType)); err == nil {
			respondJSON(w, http.StatusOK, result)
			return
		}
	}

	result, err := h.results.GetByJourney(r.Context(), journeyID, modelType)
	if errors.Is(err, postgres.ErrNotFound) {
		respondError(w, http.StatusNotFound, "no result for journey "+journeyID)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// HandleSummary aggregates stored results over a trailing window.
func (h *Handlers) HandleSummary(w http.ResponseWriter, r *http.Request) {
	modelType, since, limit := reportParams(r)

	results, err := h.results.ListSince(r.Context(), modelType, since, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, h.engine.Summarize(results))
}

// HandleSequences mines the most frequent converting touchpoint sequences.
func (h *Handlers) HandleSequences(w http.ResponseWriter, r *http.Request) {
	modelType, since, limit := reportParams(r)

	minOccurrences := 2
	if v := r.URL.Query().Get("min_occurrences"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			minOccurrences = n
		}
	}

	results, err := h.results.ListSince(r.Context(), modelType, since, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := h.results.AttachTouchWeights(r.Context(), results); err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, h.engine.TopConvertingSequences(results, minOccurrences))
}

type incrementalRequest struct {
	Channel       string    `json:"channel"`
	ModelType     string    `json:"model_type"`
	CurrentSince  time.Time `json:"current_since"`
	BaselineSince time.Time `json:"baseline_since"`
	BaselineUntil time.Time `json:"baseline_until"`
	Limit         int       `json:"limit,omitempty"`
}

// HandleIncremental compares a channel's attributed revenue between the
// current window and a baseline window.
func (h *Handlers) HandleIncremental(w http.ResponseWriter, r *http.Request) {
	var req incrementalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Channel == "" {
		respondError(w, http.StatusBadRequest, "channel is required")
		return
	}
	modelType := domain.AttributionModelType(req.ModelType)
	if modelType == "" {
		modelType = domain.ModelLinear
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 1000
	}

	current, err := h.results.ListSince(r.Context(), modelType, req.CurrentSince, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	baselineAll, err := h.results.ListSince(r.Context(), modelType, req.BaselineSince, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// The baseline window closes where the current one opens.
	baseline := baselineAll[:0:0]
	for _, result := range baselineAll {
		if req.BaselineUntil.IsZero() || result.CalculatedAt.Before(req.BaselineUntil) {
			baseline = append(baseline, result)
		}
	}

	respondJSON(w, http.StatusOK, h.engine.CalculateIncrementalValue(current, baseline, req.Channel))
}

// HandleInsights derives findings from the stored results in a trailing window.
func (h *Handlers) HandleInsights(w http.ResponseWriter, r *http.Request) {
	modelType, since, limit := reportParams(r)

	results, err := h.results.ListSince(r.Context(), modelType, since, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, h.engine.GenerateInsights(h.engine.Summarize(results), modelType))
}

// HandleChannelMetrics blends per-channel ads and GA4 figures over a window.
func (h *Handlers) HandleChannelMetrics(w http.ResponseWriter, r *http.Request) {
	modelType, since, _ := reportParams(r)

	metrics, err := h.results.ChannelMetrics(r.Context(), modelType, since, time.Now().UTC())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, metrics)
}

// HandleGCLIDMappings lists a customer's click-to-session matches.
func (h *Handlers) HandleGCLIDMappings(w http.ResponseWriter, r *http.Request) {
	customerID := chi.URLParam(r, "customerID")

	mappings, err := h.journeys.GCLIDMappings(r.Context(), customerID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if mappings == nil {
		mappings = []domain.GCLIDMapping{}
	}
	respondJSON(w, http.StatusOK, mappings)
}

func reportParams(r *http.Request) (domain.AttributionModelType, time.Time, int) {
	modelType := domain.AttributionModelType(r.URL.Query().Get("model"))
	if modelType == "" {
		modelType = domain.ModelLinear
	}
	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			days = n
		}
	}
	limit := 1000
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	return modelType, time.Now().AddDate(0, 0, -days), limit
}

// Response helpers

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
