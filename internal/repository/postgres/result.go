package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/paidsearchnav/attribution-service/internal/domain"
)

// ResultRepo persists attribution results and their per-touch records.
type ResultRepo struct{ db *sql.DB }

// NewResultRepo creates a Postgres-backed result repository.
func NewResultRepo(db *sql.DB) *ResultRepo { return &ResultRepo{db: db} }

// Save writes one result and its touch attributions in a single transaction.
// The channel rollup is stored as JSONB; the per-touch rows carry the weights.
func (r *ResultRepo) Save(ctx context.Context, result *domain.AttributionResult) error {
	channels, err := json.Marshal(result.ChannelAttribution)
	if err != nil {
		return fmt.Errorf("marshal channel attribution: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save result: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO attribution_results
			(result_id, customer_journey_id, customer_id, attribution_model_id, model_type,
			 total_conversion_value, total_attributed_value, attribution_confidence,
			 channel_attribution, calculated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, result.ResultID, result.CustomerJourneyID, result.CustomerID, result.AttributionModelID,
		string(result.ModelType), result.TotalConversionValue, result.TotalAttributedValue,
		result.AttributionConfidence, channels, result.CalculatedAt)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}

	for i := range result.TouchAttributions {
		ta := &result.TouchAttributions[i]
		_, err = tx.ExecContext(ctx, `
			INSERT INTO attribution_touch_weights
				(result_id, position, touch_id, touchpoint_type, timestamp,
				 source, medium, gclid, weight, attributed_revenue)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, result.ResultID, i, ta.TouchID, string(ta.TouchpointType), ta.Timestamp,
			ta.Source, ta.Medium, ta.GCLID, ta.Weight, ta.AttributedRevenue)
		if err != nil {
			return fmt.Errorf("insert touch weight %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save result: %w", err)
	}
	return nil
}

// GetByJourney returns the stored result for one journey under one model
// type, including its ordered touch attributions.
func (r *ResultRepo) GetByJourney(ctx context.Context, journeyID string, modelType domain.AttributionModelType) (*domain.AttributionResult, error) {
	result := &domain.AttributionResult{}
	var channels []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT result_id, customer_journey_id, customer_id, attribution_model_id, model_type,
		       total_conversion_value, total_attributed_value, attribution_confidence,
		       channel_attribution, calculated_at
		FROM attribution_results
		WHERE customer_journey_id = $1 AND model_type = $2
		ORDER BY calculated_at DESC
		LIMIT 1
	`, journeyID, string(modelType)).Scan(
		&result.ResultID, &result.CustomerJourneyID, &result.CustomerID,
		&result.AttributionModelID, &result.ModelType,
		&result.TotalConversionValue, &result.TotalAttributedValue, &result.AttributionConfidence,
		&channels, &result.CalculatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get result: %w", err)
	}
	if err := json.Unmarshal(channels, &result.ChannelAttribution); err != nil {
		return nil, fmt.Errorf("unmarshal channel attribution: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT touch_id, touchpoint_type, timestamp, COALESCE(source,''),
		       COALESCE(medium,''), COALESCE(gclid,''), weight, attributed_revenue
		FROM attribution_touch_weights
		WHERE result_id = $1
		ORDER BY position ASC
	`, result.ResultID)
	if err != nil {
		return nil, fmt.Errorf("list touch weights: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ta domain.TouchAttribution
		if err := rows.Scan(
			&ta.TouchID, &ta.TouchpointType, &ta.Timestamp, &ta.Source,
			&ta.Medium, &ta.GCLID, &ta.Weight, &ta.AttributedRevenue,
		); err != nil {
			return nil, fmt.Errorf("scan touch weight: %w", err)
		}
		result.TouchAttributions = append(result.TouchAttributions, ta)
	}
	return result, rows.Err()
}

// ListSince returns results calculated on or after the cutoff, newest first,
// for summary and sequence reporting.
func (r *ResultRepo) ListSince(ctx context.Context, modelType domain.AttributionModelType, since time.Time, limit int) ([]*domain.AttributionResult, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT result_id, customer_journey_id, customer_id, attribution_model_id, model_type,
		       total_conversion_value, total_attributed_value, attribution_confidence,
		       channel_attribution, calculated_at
		FROM attribution_results
		WHERE model_type = $1 AND calculated_at >= $2
		ORDER BY calculated_at DESC
		LIMIT $3
	`, string(modelType), since, limit)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var results []*domain.AttributionResult
	for rows.Next() {
		result := &domain.AttributionResult{}
		var channels []byte
		if err := rows.Scan(
			&result.ResultID, &result.CustomerJourneyID, &result.CustomerID,
			&result.AttributionModelID, &result.ModelType,
			&result.TotalConversionValue, &result.TotalAttributedValue, &result.AttributionConfidence,
			&channels, &result.CalculatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if err := json.Unmarshal(channels, &result.ChannelAttribution); err != nil {
			return nil, fmt.Errorf("unmarshal channel attribution: %w", err)
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// ChannelMetrics blends per-channel ads and GA4 figures for results of one
// model type inside a reporting window. Ad spend comes from the ingestion
// pipeline's channel_ad_spend table; channels without a spend row report 0.
func (r *ResultRepo) ChannelMetrics(ctx context.Context, modelType domain.AttributionModelType, windowStart, windowEnd time.Time) ([]domain.CrossPlatformMetrics, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT COALESCE(NULLIF(w.source,''),'unknown') || '/' || COALESCE(NULLIF(w.medium,''),'(none)') AS channel,
		       COUNT(*) FILTER (WHERE w.gclid <> '') AS ads_clicks,
		       COALESCE(MAX(s.cost), 0) AS ads_cost,
		       COUNT(*) FILTER (WHERE w.touchpoint_type = 'ga4_session') AS ga4_sessions,
		       COUNT(DISTINCT res.result_id) AS conversions,
		       SUM(w.attributed_revenue) AS attributed_revenue
		FROM attribution_results res
		JOIN attribution_touch_weights w ON w.result_id = res.result_id
		LEFT JOIN channel_ad_spend s
		       ON s.channel = COALESCE(NULLIF(w.source,''),'unknown') || '/' || COALESCE(NULLIF(w.medium,''),'(none)')
		      AND s.window_start = $2 AND s.window_end = $3
		WHERE res.model_type = $1
		  AND res.calculated_at >= $2 AND res.calculated_at < $3
		GROUP BY w.source, w.medium
		ORDER BY attributed_revenue DESC
	`, string(modelType), windowStart, windowEnd)
	if err != nil {
		return nil, fmt.Errorf("channel metrics: %w", err)
	}
	defer rows.Close()

	var metrics []domain.CrossPlatformMetrics
	for rows.Next() {
		m := domain.CrossPlatformMetrics{WindowStart: windowStart, WindowEnd: windowEnd}
		if err := rows.Scan(
			&m.Channel, &m.AdsClicks, &m.AdsCost,
			&m.GA4Sessions, &m.Conversions, &m.AttributedRevenue,
		); err != nil {
			return nil, fmt.Errorf("scan channel metrics: %w", err)
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

// AttachTouchWeights loads the ordered touch attributions for a batch of
// results in one query. Sequence mining needs the touchpoint ordering, which
// ListSince leaves out to keep summary reads cheap.
func (r *ResultRepo) AttachTouchWeights(ctx context.Context, results []*domain.AttributionResult) error {
	if len(results) == 0 {
		return nil
	}
	byID := make(map[string]*domain.AttributionResult, len(results))
	ids := make([]string, 0, len(results))
	for _, result := range results {
		byID[result.ResultID] = result
		ids = append(ids, result.ResultID)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT result_id, touch_id, touchpoint_type, timestamp, COALESCE(source,''),
		       COALESCE(medium,''), COALESCE(gclid,''), weight, attributed_revenue
		FROM attribution_touch_weights
		WHERE result_id = ANY($1)
		ORDER BY result_id, position ASC
	`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("load touch weights: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var resultID string
		var ta domain.TouchAttribution
		if err := rows.Scan(
			&resultID, &ta.TouchID, &ta.TouchpointType, &ta.Timestamp, &ta.Source,
			&ta.Medium, &ta.GCLID, &ta.Weight, &ta.AttributedRevenue,
		); err != nil {
			return fmt.Errorf("scan touch weight: %w", err)
		}
		if result, ok := byID[resultID]; ok {
			result.TouchAttributions = append(result.TouchAttributions, ta)
		}
	}
	return rows.Err()
}
