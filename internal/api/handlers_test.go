package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paidsearchnav/attribution-service/internal/attribution"
	"github.com/paidsearchnav/attribution-service/internal/domain"
	"github.com/paidsearchnav/attribution-service/internal/repository/postgres"
)

var handlerBase = time.Date(2026, 4, 10, 9, 0, 0, 0, time.UTC)

type fakeJourneys struct {
	journey  *domain.CustomerJourney
	touches  []domain.AttributionTouch
	mappings []domain.GCLIDMapping
	err      error
}

func (f *fakeJourneys) Get(ctx context.Context, journeyID string) (*domain.CustomerJourney, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.journey, nil
}

func (f *fakeJourneys) Touches(ctx context.Context, journeyID string) ([]domain.AttributionTouch, error) {
	return f.touches, nil
}

func (f *fakeJourneys) GCLIDMappings(ctx context.Context, customerID string) ([]domain.GCLIDMapping, error) {
	return f.mappings, nil
}

type fakeResults struct {
	byJourney map[string]*domain.AttributionResult
	listed    []*domain.AttributionResult
	metrics   []domain.CrossPlatformMetrics
	err       error
}

func (f *fakeResults) GetByJourney(ctx context.Context, journeyID string, modelType domain.AttributionModelType) (*domain.AttributionResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	result, ok := f.byJourney[journeyID]
	if !ok {
		return nil, postgres.ErrNotFound
	}
	return result, nil
}

func (f *fakeResults) ListSince(ctx context.Context, modelType domain.AttributionModelType, since time.Time, limit int) ([]*domain.AttributionResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.listed, nil
}

func (f *fakeResults) AttachTouchWeights(ctx context.Context, results []*domain.AttributionResult) error {
	return f.err
}

func (f *fakeResults) ChannelMetrics(ctx context.Context, modelType domain.AttributionModelType, windowStart, windowEnd time.Time) ([]domain.CrossPlatformMetrics, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.metrics, nil
}

func testJourney(t *testing.T) (*domain.CustomerJourney, []domain.AttributionTouch) {
	t.Helper()
	journey, err := domain.NewCustomerJourney("cust-1", handlerBase, handlerBase.Add(48*time.Hour), true, 200)
	require.NoError(t, err)

	touches := make([]domain.AttributionTouch, 0, 3)
	for i, tt := range []domain.TouchpointType{domain.TouchGoogleAdsClick, domain.TouchGA4Session, domain.TouchDirectVisit} {
		touch, err := domain.NewAttributionTouch(journey.JourneyID, journey.CustomerID, tt, handlerBase.Add(time.Duration(i)*24*time.Hour))
		require.NoError(t, err)
		touch.Source = "google"
		touch.Medium = "cpc"
		touches = append(touches, *touch)
	}
	return journey, touches
}

func newTestServer(t *testing.T, journeys *fakeJourneys, results *fakeResults) *httptest.Server {
	t.Helper()
	h := NewHandlers(attribution.NewEngine(), journeys, results)
	srv := httptest.NewServer(SetupRoutes(h))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(t, &fakeJourneys{}, &fakeResults{})

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	decodeBody(t, resp, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestHandleCalculate_InlineJourney(t *testing.T) {
	journey, touches := testJourney(t)
	srv := newTestServer(t, &fakeJourneys{}, &fakeResults{})

	resp := postJSON(t, srv.URL+"/api/attribution/calculate", calculateRequest{
		Journey: journey,
		Touches: touches,
		Model:   modelSpec{Type: "linear"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result domain.AttributionResult
	decodeBody(t, resp, &result)
	assert.Equal(t, domain.ModelLinear, result.ModelType)
	require.Len(t, result.TouchAttributions, 3)
	for _, ta := range result.TouchAttributions {
		assert.InDelta(t, 1.0/3.0, ta.Weight, 1e-9)
	}
	assert.InDelta(t, 200, result.TotalAttributedValue, 1e-6)
}

func TestHandleCalculate_StoredJourney(t *testing.T) {
	journey, touches := testJourney(t)
	srv := newTestServer(t, &fakeJourneys{journey: journey, touches: touches}, &fakeResults{})

	resp := postJSON(t, srv.URL+"/api/attribution/calculate", calculateRequest{
		JourneyID: journey.JourneyID,
		Model:     modelSpec{Type: "time_decay", HalfLifeDays: 7},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result domain.AttributionResult
	decodeBody(t, resp, &result)
	assert.Equal(t, journey.JourneyID, result.CustomerJourneyID)
	assert.Equal(t, domain.ModelTimeDecay, result.ModelType)
}

func TestHandleCalculate_BadModel(t *testing.T) {
	journey, touches := testJourney(t)
	srv := newTestServer(t, &fakeJourneys{}, &fakeResults{})

	resp := postJSON(t, srv.URL+"/api/attribution/calculate", calculateRequest{
		Journey: journey,
		Touches: touches,
		Model:   modelSpec{Type: "position_based", FirstTouchWeight: 0.8, LastTouchWeight: 0.8},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestHandleCalculate_EmptyTouches(t *testing.T) {
	journey, _ := testJourney(t)
	srv := newTestServer(t, &fakeJourneys{}, &fakeResults{})

	resp := postJSON(t, srv.URL+"/api/attribution/calculate", calculateRequest{
		Journey: journey,
		Model:   modelSpec{Type: "linear"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestHandleCalculate_UnknownJourney(t *testing.T) {
	srv := newTestServer(t, &fakeJourneys{err: postgres.ErrNotFound}, &fakeResults{})

	resp := postJSON(t, srv.URL+"/api/attribution/calculate", calculateRequest{
		JourneyID: "missing",
		Model:     modelSpec{Type: "linear"},
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestHandleCompare(t *testing.T) {
	journey, touches := testJourney(t)
	srv := newTestServer(t, &fakeJourneys{}, &fakeResults{})

	resp := postJSON(t, srv.URL+"/api/attribution/compare", compareRequest{
		Journey: journey,
		Touches: touches,
		Models: []modelSpec{
			{Type: "first_touch"},
			{Type: "last_touch"},
			{Type: "linear"},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var results map[string]*domain.AttributionResult
	decodeBody(t, resp, &results)
	require.Len(t, results, 3)
	assert.Equal(t, 1.0, results["first_touch"].TouchAttributions[0].Weight)
	assert.Equal(t, 1.0, results["last_touch"].TouchAttributions[2].Weight)
}

func TestHandleCompare_NoModels(t *testing.T) {
	journey, touches := testJourney(t)
	srv := newTestServer(t, &fakeJourneys{}, &fakeResults{})

	resp := postJSON(t, srv.URL+"/api/attribution/compare", compareRequest{
		Journey: journey,
		Touches: touches,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}

func TestHandleGetResult(t *testing.T) {
	stored := &domain.AttributionResult{
		ResultID:          "res-1",
		CustomerJourneyID: "jrn-1",
		ModelType:         domain.ModelLinear,
		CalculatedAt:      handlerBase,
	}
	srv := newTestServer(t, &fakeJourneys{}, &fakeResults{
		byJourney: map[string]*domain.AttributionResult{"jrn-1": stored},
	})

	resp, err := http.Get(srv.URL + "/api/attribution/results/jrn-1?model=linear")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result domain.AttributionResult
	decodeBody(t, resp, &result)
	assert.Equal(t, "res-1", result.ResultID)
}

func TestHandleGetResult_NotFound(t *testing.T) {
	srv := newTestServer(t, &fakeJourneys{}, &fakeResults{byJourney: map[string]*domain.AttributionResult{}})

	resp, err := http.Get(srv.URL + "/api/attribution/results/missing")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestHandleSummary(t *testing.T) {
	srv := newTestServer(t, &fakeJourneys{}, &fakeResults{
		listed: []*domain.AttributionResult{
			{
				ResultID:              "res-1",
				ModelType:             domain.ModelLinear,
				TotalConversionValue:  100,
				TotalAttributedValue:  100,
				AttributionConfidence: 0.6,
				ChannelAttribution:    map[string]float64{"google/cpc": 100},
				CalculatedAt:          handlerBase,
			},
			{
				ResultID:              "res-2",
				ModelType:             domain.ModelLinear,
				TotalConversionValue:  50,
				TotalAttributedValue:  50,
				AttributionConfidence: 0.4,
				ChannelAttribution:    map[string]float64{"google/organic": 50},
				CalculatedAt:          handlerBase,
			},
		},
	})

	resp, err := http.Get(srv.URL + "/api/attribution/summary?model=linear&days=7")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summary attribution.Summary
	decodeBody(t, resp, &summary)
	assert.Equal(t, 2, summary.TotalConversions)
	assert.InDelta(t, 150, summary.TotalAttributedRevenue, 1e-6)
	assert.InDelta(t, 0.5, summary.AverageConfidence, 1e-9)
}

func TestHandleIncremental(t *testing.T) {
	current := []*domain.AttributionResult{
		{ChannelAttribution: map[string]float64{"google/cpc": 300}, CalculatedAt: handlerBase},
	}
	srv := newTestServer(t, &fakeJourneys{}, &fakeResults{listed: current})

	resp := postJSON(t, srv.URL+"/api/attribution/incremental", incrementalRequest{
		Channel:      "google/cpc",
		ModelType:    "linear",
		CurrentSince: handlerBase.AddDate(0, 0, -7),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var iv attribution.IncrementalValue
	decodeBody(t, resp, &iv)
	assert.Equal(t, "google/cpc", iv.Channel)
	assert.InDelta(t, 300, iv.CurrentAttributedRevenue, 1e-6)
}

func TestHandleInsights(t *testing.T) {
	srv := newTestServer(t, &fakeJourneys{}, &fakeResults{
		listed: []*domain.AttributionResult{
			{
				ModelType:             domain.ModelLinear,
				TotalAttributedValue:  900,
				AttributionConfidence: 0.7,
				ChannelAttribution:    map[string]float64{"google/cpc": 800},
				CalculatedAt:          handlerBase,
			},
			{
				ModelType:             domain.ModelLinear,
				TotalAttributedValue:  100,
				AttributionConfidence: 0.7,
				ChannelAttribution:    map[string]float64{"google/organic": 100},
				CalculatedAt:          handlerBase,
			},
		},
	})

	resp, err := http.Get(srv.URL + "/api/attribution/insights?model=linear")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var insights []domain.AttributionInsight
	decodeBody(t, resp, &insights)
	require.NotEmpty(t, insights)
	assert.Equal(t, "channel_concentration", insights[0].Category)
}

func TestHandleChannelMetrics(t *testing.T) {
	srv := newTestServer(t, &fakeJourneys{}, &fakeResults{
		metrics: []domain.CrossPlatformMetrics{
			{Channel: "google/cpc", AdsClicks: 12, AdsCost: 34.5, GA4Sessions: 9, Conversions: 4, AttributedRevenue: 600},
		},
	})

	resp, err := http.Get(srv.URL + "/api/attribution/channels?model=linear&days=7")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var metrics []domain.CrossPlatformMetrics
	decodeBody(t, resp, &metrics)
	require.Len(t, metrics, 1)
	assert.Equal(t, "google/cpc", metrics[0].Channel)
	assert.EqualValues(t, 12, metrics[0].AdsClicks)
}

func TestHandleGCLIDMappings(t *testing.T) {
	srv := newTestServer(t, &fakeJourneys{
		mappings: []domain.GCLIDMapping{
			{GCLID: "Cj0KCQjw8abc", CustomerID: "cust-1", SessionID: "sess-1", MatchConfidence: 0.93, ClickTimestamp: handlerBase},
		},
	}, &fakeResults{})

	resp, err := http.Get(srv.URL + "/api/attribution/customers/cust-1/gclid-mappings")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var mappings []domain.GCLIDMapping
	decodeBody(t, resp, &mappings)
	require.Len(t, mappings, 1)
	assert.Equal(t, "sess-1", mappings[0].SessionID)
}

func TestHandleGCLIDMappings_Empty(t *testing.T) {
	srv := newTestServer(t, &fakeJourneys{}, &fakeResults{})

	resp, err := http.Get(srv.URL + "/api/attribution/customers/cust-2/gclid-mappings")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var mappings []domain.GCLIDMapping
	decodeBody(t, resp, &mappings)
	assert.Empty(t, mappings)
}

func TestHandleIncremental_MissingChannel(t *testing.T) {
	srv := newTestServer(t, &fakeJourneys{}, &fakeResults{})

	resp := postJSON(t, srv.URL+"/api/attribution/incremental", incrementalRequest{ModelType: "linear"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()
}
