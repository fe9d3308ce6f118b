package attribution

import (
	"github.com/google/uuid"

	"github.com/paidsearchnav/attribution-service/internal/domain"
)

// DefaultHalfLifeDays is the time-decay half-life used when a model does not
// specify one, and by the silent fallback path for data-driven models.
const DefaultHalfLifeDays = 7.0

// Model selects a weighting algorithm and carries its parameters. Construct
// through the New*Model functions; they validate composite constraints up
// front so a Model in hand is always runnable.
type Model struct {
	ModelID   string                      `json:"model_id"`
	ModelName string                      `json:"model_name"`
	ModelType domain.AttributionModelType `json:"model_type"`

	TimeDecayHalfLifeDays    float64 `json:"time_decay_half_life_days,omitempty"`
	PositionBasedFirstWeight float64 `json:"position_based_first_weight,omitempty"`
	PositionBasedLastWeight  float64 `json:"position_based_last_weight,omitempty"`

	CustomWeights map[domain.TouchpointType]float64 `json:"custom_weights,omitempty"`

	MLModelPath              string             `json:"ml_model_path,omitempty"`
	ConfidenceThreshold      float64            `json:"confidence_threshold,omitempty"`
	FeatureImportanceWeights map[string]float64 `json:"feature_importance_weights,omitempty"`

	// MaxJourneyLengthDays is advisory: journey windowing is owned by the
	// ingestion pipeline, the engine does not enforce it.
	MaxJourneyLengthDays float64 `json:"max_journey_length_days,omitempty"`
	RequireConversion    bool    `json:"require_conversion"`
}

func newModel(name string, modelType domain.AttributionModelType) *Model {
	return &Model{
		ModelID:   uuid.NewString(),
		ModelName: name,
		ModelType: modelType,
	}
}

// NewFirstTouchModel credits the first touchpoint with the full conversion.
func NewFirstTouchModel(name string) *Model {
	return newModel(name, domain.ModelFirstTouch)
}

// NewLastTouchModel credits the last touchpoint with the full conversion.
func NewLastTouchModel(name string) *Model {
	return newModel(name, domain.ModelLastTouch)
}

// NewLinearModel splits credit evenly across all touchpoints.
func NewLinearModel(name string) *Model {
	return newModel(name, domain.ModelLinear)
}

// NewTimeDecayModel weights touchpoints by exponential recency with the given
// half-life in days. The half-life must be positive.
func NewTimeDecayModel(name string, halfLifeDays float64) (*Model, error) {
	if halfLifeDays <= 0 {
		return nil, &ModelConfigurationError{
			ModelType: string(domain.ModelTimeDecay),
			Reason:    "time_decay_half_life_days must be positive",
		}
	}
	m := newModel(name, domain.ModelTimeDecay)
	m.TimeDecayHalfLifeDays = halfLifeDays
	return m, nil
}

// NewPositionBasedModel gives fixed shares to the first and last touchpoints
// and splits the remainder across interior ones. Each weight must lie in
// [0,1] and their sum must not exceed 1.0.
func NewPositionBasedModel(name string, firstWeight, lastWeight float64) (*Model, error) {
	if firstWeight < 0 || firstWeight > 1 || lastWeight < 0 || lastWeight > 1 {
		return nil, &ModelConfigurationError{
			ModelType: string(domain.ModelPositionBased),
			Reason:    "first and last weights must each lie in [0,1]",
		}
	}
	if firstWeight+lastWeight > 1.0 {
		return nil, &ModelConfigurationError{
			ModelType: string(domain.ModelPositionBased),
			Reason:    "first_weight + last_weight must not exceed 1.0",
		}
	}
	m := newModel(name, domain.ModelPositionBased)
	m.PositionBasedFirstWeight = firstWeight
	m.PositionBasedLastWeight = lastWeight
	return m, nil
}

// NewCustomModel weights touchpoints by their type using the supplied
// relative weights. Types missing from the map get weight zero. Weights need
// not sum to 1.0; the engine normalizes.
func NewCustomModel(name string, weights map[domain.TouchpointType]float64) (*Model, error) {
	if len(weights) == 0 {
		return nil, &ModelConfigurationError{
			ModelType: string(domain.ModelCustom),
			Reason:    "custom_weights must not be empty",
		}
	}
	for tt, w := range weights {
		if w < 0 {
			return nil, &ModelConfigurationError{
				ModelType: string(domain.ModelCustom),
				Reason:    "custom weight for " + string(tt) + " must be non-negative",
			}
		}
	}
	m := newModel(name, domain.ModelCustom)
	m.CustomWeights = weights
	return m, nil
}

// DataDrivenConfig carries the optional parameters of a data-driven model.
type DataDrivenConfig struct {
	MLModelPath              string
	ConfidenceThreshold      float64
	FeatureImportanceWeights map[string]float64
}

// NewDataDrivenModel delegates weighting to the ML scoring collaborator,
// falling back to time decay when the collaborator is unavailable.
func NewDataDrivenModel(name string, cfg DataDrivenConfig) (*Model, error) {
	if cfg.ConfidenceThreshold < 0 || cfg.ConfidenceThreshold > 1 {
		return nil, &ModelConfigurationError{
			ModelType: string(domain.ModelDataDriven),
			Reason:    "confidence_threshold must lie in [0,1]",
		}
	}
	m := newModel(name, domain.ModelDataDriven)
	m.MLModelPath = cfg.MLModelPath
	m.ConfidenceThreshold = cfg.ConfidenceThreshold
	m.FeatureImportanceWeights = cfg.FeatureImportanceWeights
	return m, nil
}
