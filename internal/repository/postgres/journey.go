// Package postgres implements the attribution service's repositories against
// PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/paidsearchnav/attribution-service/internal/domain"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("postgres: not found")

// JourneyRepo reads customer journeys and their touches. Journeys are written
// by the ingestion pipeline; this service only consumes them.
type JourneyRepo struct{ db *sql.DB }

// NewJourneyRepo creates a Postgres-backed journey repository.
func NewJourneyRepo(db *sql.DB) *JourneyRepo { return &JourneyRepo{db: db} }

// Get returns one journey by ID.
func (r *JourneyRepo) Get(ctx context.Context, journeyID string) (*domain.CustomerJourney, error) {
	j := &domain.CustomerJourney{}
	err := r.db.QueryRowContext(ctx, `
		SELECT journey_id, customer_id, first_touch, last_touch, conversion_timestamp,
		       total_touches, converted, conversion_value, COALESCE(attribution_model,''),
		       journey_length_days,
		       COALESCE(first_touch_source,''), COALESCE(first_touch_medium,''),
		       COALESCE(last_touch_source,''), COALESCE(last_touch_medium,''),
		       created_at
		FROM customer_journeys
		WHERE journey_id = $1
	`, journeyID).Scan(
		&j.JourneyID, &j.CustomerID, &j.FirstTouch, &j.LastTouch, &j.ConversionTimestamp,
		&j.TotalTouches, &j.Converted, &j.ConversionValue, &j.AttributionModel,
		&j.JourneyLengthDays,
		&j.FirstTouchSource, &j.FirstTouchMedium,
		&j.LastTouchSource, &j.LastTouchMedium,
		&j.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get journey: %w", err)
	}
	return j, nil
}

// Touches returns a journey's touches in chronological order, which is the
// ordering contract the attribution engine relies on.
func (r *JourneyRepo) Touches(ctx context.Context, journeyID string) ([]domain.AttributionTouch, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT touch_id, customer_journey_id, customer_id, touchpoint_type, timestamp,
		       COALESCE(gclid,''), COALESCE(campaign_id,''), COALESCE(source,''),
		       COALESCE(medium,''), COALESCE(device_category,''), COALESCE(country,''),
		       COALESCE(landing_page,''), is_conversion_touch, COALESCE(conversion_type,''),
		       conversion_value
		FROM attribution_touches
		WHERE customer_journey_id = $1
		ORDER BY timestamp ASC
	`, journeyID)
	if err != nil {
		return nil, fmt.Errorf("list touches: %w", err)
	}
	defer rows.Close()

	var touches []domain.AttributionTouch
	for rows.Next() {
		var t domain.AttributionTouch
		if err := rows.Scan(
			&t.TouchID, &t.CustomerJourneyID, &t.CustomerID, &t.TouchpointType, &t.Timestamp,
			&t.GCLID, &t.CampaignID, &t.Source,
			&t.Medium, &t.DeviceCategory, &t.Country,
			&t.LandingPage, &t.IsConversionTouch, &t.ConversionType,
			&t.ConversionValue,
		); err != nil {
			return nil, fmt.Errorf("scan touch: %w", err)
		}
		touches = append(touches, t)
	}
	return touches, rows.Err()
}

// GCLIDMappings returns the click-to-session matches recorded for one
// customer, newest click first. The matcher in the ingestion pipeline writes
// these; this service surfaces them for match-quality debugging.
func (r *JourneyRepo) GCLIDMappings(ctx context.Context, customerID string) ([]domain.GCLIDMapping, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT gclid, customer_id, COALESCE(campaign_id,''), click_timestamp,
		       COALESCE(session_id,''), session_start, match_confidence
		FROM gclid_mappings
		WHERE customer_id = $1
		ORDER BY click_timestamp DESC
	`, customerID)
	if err != nil {
		return nil, fmt.Errorf("list gclid mappings: %w", err)
	}
	defer rows.Close()

	var mappings []domain.GCLIDMapping
	for rows.Next() {
		var m domain.GCLIDMapping
		if err := rows.Scan(
			&m.GCLID, &m.CustomerID, &m.CampaignID, &m.ClickTimestamp,
			&m.SessionID, &m.SessionStart, &m.MatchConfidence,
		); err != nil {
			return nil, fmt.Errorf("scan gclid mapping: %w", err)
		}
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}

// ListPending returns journey IDs that converted within the window but have
// no stored result for the given model type. The batch worker drains this.
func (r *JourneyRepo) ListPending(ctx context.Context, modelType domain.AttributionModelType, since time.Time, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT j.journey_id
		FROM customer_journeys j
		LEFT JOIN attribution_results r
		       ON r.customer_journey_id = j.journey_id AND r.model_type = $1
		WHERE r.result_id IS NULL AND j.created_at >= $2
		ORDER BY j.created_at ASC
		LIMIT $3
	`, string(modelType), since, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending journeys: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan journey id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
