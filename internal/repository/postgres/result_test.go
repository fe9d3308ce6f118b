package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paidsearchnav/attribution-service/internal/domain"
)

func storedResult() *domain.AttributionResult {
	now := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	return &domain.AttributionResult{
		ResultID:              "res-1",
		CustomerJourneyID:     "j-1",
		CustomerID:            "cust-1",
		AttributionModelID:    "model-1",
		ModelType:             domain.ModelLinear,
		TotalConversionValue:  150,
		TotalAttributedValue:  150,
		AttributionConfidence: 0.7,
		TouchAttributions: []domain.TouchAttribution{
			{TouchID: "t-1", TouchpointType: domain.TouchGoogleAdsClick, Timestamp: now, Source: "google", Medium: "cpc", GCLID: "g-1", Weight: 0.5, AttributedRevenue: 75},
			{TouchID: "t-2", TouchpointType: domain.TouchDirectVisit, Timestamp: now.Add(time.Hour), Source: "direct", Medium: "(none)", Weight: 0.5, AttributedRevenue: 75},
		},
		ChannelAttribution: map[string]float64{"google/cpc": 75, "direct/(none)": 75},
		CalculatedAt:       now,
	}
}

func TestResultRepo_Save(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	result := storedResult()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO attribution_results").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO attribution_touch_weights").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO attribution_touch_weights").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := NewResultRepo(db)
	require.NoError(t, repo.Save(context.Background(), result))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepo_Save_RollsBackOnTouchInsertFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	result := storedResult()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO attribution_results").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO attribution_touch_weights").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	repo := NewResultRepo(db)
	err = repo.Save(context.Background(), result)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepo_GetByJourney(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM attribution_results").
		WithArgs("j-1", "linear").
		WillReturnRows(sqlmock.NewRows([]string{
			"result_id", "customer_journey_id", "customer_id", "attribution_model_id", "model_type",
			"total_conversion_value", "total_attributed_value", "attribution_confidence",
			"channel_attribution", "calculated_at",
		}).AddRow("res-1", "j-1", "cust-1", "model-1", "linear",
			150.0, 150.0, 0.7, []byte(`{"google/cpc":150}`), now))

	mock.ExpectQuery("SELECT (.+) FROM attribution_touch_weights").
		WithArgs("res-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"touch_id", "touchpoint_type", "timestamp", "source", "medium", "gclid",
			"weight", "attributed_revenue",
		}).AddRow("t-1", "google_ads_click", now, "google", "cpc", "g-1", 1.0, 150.0))

	repo := NewResultRepo(db)
	result, err := repo.GetByJourney(context.Background(), "j-1", domain.ModelLinear)
	require.NoError(t, err)

	assert.Equal(t, "res-1", result.ResultID)
	assert.InDelta(t, 150.0, result.ChannelAttribution["google/cpc"], 1e-9)
	require.Len(t, result.TouchAttributions, 1)
	assert.InDelta(t, 1.0, result.TouchAttributions[0].Weight, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepo_GetByJourney_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM attribution_results").
		WithArgs("j-9", "linear").
		WillReturnRows(sqlmock.NewRows([]string{"result_id"}))

	repo := NewResultRepo(db)
	_, err = repo.GetByJourney(context.Background(), "j-9", domain.ModelLinear)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResultRepo_AttachTouchWeights(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)
	results := []*domain.AttributionResult{
		{ResultID: "res-1"},
		{ResultID: "res-2"},
	}

	mock.ExpectQuery("SELECT (.+) FROM attribution_touch_weights").
		WillReturnRows(sqlmock.NewRows([]string{
			"result_id", "touch_id", "touchpoint_type", "timestamp", "source", "medium",
			"gclid", "weight", "attributed_revenue",
		}).
			AddRow("res-1", "t-1", "google_ads_click", now, "google", "cpc", "", 1.0, 100.0).
			AddRow("res-2", "t-2", "ga4_session", now, "google", "organic", "", 0.4, 40.0).
			AddRow("res-2", "t-3", "direct_visit", now, "direct", "(none)", "", 0.6, 60.0))

	repo := NewResultRepo(db)
	require.NoError(t, repo.AttachTouchWeights(context.Background(), results))

	require.Len(t, results[0].TouchAttributions, 1)
	require.Len(t, results[1].TouchAttributions, 2)
	assert.Equal(t, domain.TouchGA4Session, results[1].TouchAttributions[0].TouchpointType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResultRepo_ChannelMetrics(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	windowStart := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	windowEnd := windowStart.AddDate(0, 0, 7)

	rows := sqlmock.NewRows([]string{
		"channel", "ads_clicks", "ads_cost", "ga4_sessions", "conversions", "attributed_revenue",
	}).AddRow(
		"google/cpc", 12, 34.5, 9, 4, 600.0,
	).AddRow(
		"direct/(none)", 0, 0.0, 0, 3, 150.0,
	)
	mock.ExpectQuery("SELECT (.+) FROM attribution_results").
		WithArgs(string(domain.ModelLinear), windowStart, windowEnd).
		WillReturnRows(rows)

	repo := NewResultRepo(db)
	metrics, err := repo.ChannelMetrics(context.Background(), domain.ModelLinear, windowStart, windowEnd)
	require.NoError(t, err)
	require.Len(t, metrics, 2)

	assert.Equal(t, "google/cpc", metrics[0].Channel)
	assert.EqualValues(t, 12, metrics[0].AdsClicks)
	assert.InDelta(t, 34.5, metrics[0].AdsCost, 1e-9)
	assert.Equal(t, windowStart, metrics[0].WindowStart)
	assert.Equal(t, windowEnd, metrics[0].WindowEnd)
	assert.NoError(t, mock.ExpectationsWereMet())
}
