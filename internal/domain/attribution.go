package domain

import (
	"time"
)

// AttributionModelType enumerates the supported credit-allocation algorithms.
type AttributionModelType string

const (
	ModelFirstTouch    AttributionModelType = "first_touch"
	ModelLastTouch     AttributionModelType = "last_touch"
	ModelLinear        AttributionModelType = "linear"
	ModelTimeDecay     AttributionModelType = "time_decay"
	ModelPositionBased AttributionModelType = "position_based"
	ModelCustom        AttributionModelType = "custom"
	ModelDataDriven    AttributionModelType = "data_driven"
)

// TouchAttribution is the engine's per-touch output record: the credit one
// touchpoint earned and the revenue that credit represents. It references the
// original touch by ID instead of mutating it.
type TouchAttribution struct {
	TouchID           string         `json:"touch_id" db:"touch_id"`
	TouchpointType    TouchpointType `json:"touchpoint_type" db:"touchpoint_type"`
	Timestamp         time.Time      `json:"timestamp" db:"timestamp"`
	Source            string         `json:"source,omitempty" db:"source"`
	Medium            string         `json:"medium,omitempty" db:"medium"`
	GCLID             string         `json:"gclid,omitempty" db:"gclid"`
	Weight            float64        `json:"weight" db:"weight"`
	AttributedRevenue float64        `json:"attributed_revenue" db:"attributed_revenue"`
}

// AttributionResult is the engine's output for one (journey, touches, model)
// run. Produced fresh per call and immutable once returned; every field is
// plain data so downstream exporters can serialize it directly.
type AttributionResult struct {
	ResultID              string             `json:"result_id" db:"result_id"`
	CustomerJourneyID     string             `json:"customer_journey_id" db:"customer_journey_id"`
	CustomerID            string             `json:"customer_id" db:"customer_id"`
	AttributionModelID    string             `json:"attribution_model_id" db:"attribution_model_id"`
	ModelType             AttributionModelType `json:"model_type" db:"model_type"`
	TotalConversionValue  float64            `json:"total_conversion_value" db:"total_conversion_value"`
	TotalAttributedValue  float64            `json:"total_attributed_value" db:"total_attributed_value"`
	AttributionConfidence float64            `json:"attribution_confidence" db:"attribution_confidence"`
	TouchAttributions     []TouchAttribution `json:"touch_attributions"`
	ChannelAttribution    map[string]float64 `json:"channel_attribution"`
	CalculatedAt          time.Time          `json:"calculated_at" db:"calculated_at"`
}

// SequenceKey joins the touchpoint types of this result's touch records in
// order, producing the grouping key used by sequence mining.
func (r *AttributionResult) SequenceKey(separator string) string {
	key := ""
	for i, ta := range r.TouchAttributions {
		if i > 0 {
			key += separator
		}
		key += string(ta.TouchpointType)
	}
	return key
}
