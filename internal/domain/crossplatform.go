package domain

import "time"

// GCLIDMapping links a Google Ads click to the GA4 session it produced.
// Populated by the ingestion pipeline's click-to-session matcher; the
// attribution engine only reads the GCLID fields already denormalized onto
// touches.
type GCLIDMapping struct {
	GCLID           string     `json:"gclid" db:"gclid"`
	CustomerID      string     `json:"customer_id" db:"customer_id"`
	CampaignID      string     `json:"campaign_id,omitempty" db:"campaign_id"`
	ClickTimestamp  time.Time  `json:"click_timestamp" db:"click_timestamp"`
	SessionID       string     `json:"session_id,omitempty" db:"session_id"`
	SessionStart    *time.Time `json:"session_start,omitempty" db:"session_start"`
	MatchConfidence float64    `json:"match_confidence" db:"match_confidence"`
}

// MLAttributionModel is metadata for a trained data-driven weighting model
// served by the ML scoring service.
type MLAttributionModel struct {
	ModelID             string             `json:"model_id" db:"model_id"`
	Version             string             `json:"version" db:"version"`
	TrainedAt           time.Time          `json:"trained_at" db:"trained_at"`
	ConfidenceThreshold float64            `json:"confidence_threshold" db:"confidence_threshold"`
	FeatureImportance   map[string]float64 `json:"feature_importance,omitempty"`
}

// AttributionInsight is a human-readable finding derived from attribution
// results, surfaced on dashboards by the reporting layer.
type AttributionInsight struct {
	InsightID   string    `json:"insight_id" db:"insight_id"`
	Category    string    `json:"category" db:"category"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Severity    string    `json:"severity" db:"severity"`
	GeneratedAt time.Time `json:"generated_at" db:"generated_at"`
}

// CrossPlatformMetrics blends Google Ads and GA4 figures for one channel over
// one reporting window.
type CrossPlatformMetrics struct {
	Channel           string    `json:"channel" db:"channel"`
	WindowStart       time.Time `json:"window_start" db:"window_start"`
	WindowEnd         time.Time `json:"window_end" db:"window_end"`
	AdsClicks         int64     `json:"ads_clicks" db:"ads_clicks"`
	AdsCost           float64   `json:"ads_cost" db:"ads_cost"`
	GA4Sessions       int64     `json:"ga4_sessions" db:"ga4_sessions"`
	Conversions       int64     `json:"conversions" db:"conversions"`
	AttributedRevenue float64   `json:"attributed_revenue" db:"attributed_revenue"`
}
