package api

import (
	"fmt"

	"github.com/paidsearchnav/attribution-service/internal/attribution"
	"github.com/paidsearchnav/attribution-service/internal/domain"
)

// modelSpec is the wire form of an attribution model configuration.
type modelSpec struct {
	Type                string             `json:"type"`
	Name                string             `json:"name,omitempty"`
	HalfLifeDays        float64            `json:"half_life_days,omitempty"`
	FirstTouchWeight    float64            `json:"first_touch_weight,omitempty"`
	LastTouchWeight     float64            `json:"last_touch_weight,omitempty"`
	CustomWeights       map[string]float64 `json:"custom_weights,omitempty"`
	MLModelPath         string             `json:"ml_model_path,omitempty"`
	ConfidenceThreshold float64            `json:"confidence_threshold,omitempty"`
	RequireConversion   bool               `json:"require_conversion,omitempty"`
}

func (s modelSpec) build() (*attribution.Model, error) {
	name := s.Name
	if name == "" {
		name = s.Type
	}

	var (
		model *attribution.Model
		err   error
	)
	switch domain.AttributionModelType(s.Type) {
	case domain.ModelFirstTouch:
		model = attribution.NewFirstTouchModel(name)
	case domain.ModelLastTouch:
		model = attribution.NewLastTouchModel(name)
	case domain.ModelLinear:
		model = attribution.NewLinearModel(name)
	case domain.ModelTimeDecay:
		halfLife := s.HalfLifeDays
		if halfLife == 0 {
			halfLife = attribution.DefaultHalfLifeDays
		}
		model, err = attribution.NewTimeDecayModel(name, halfLife)
	case domain.ModelPositionBased:
		model, err = attribution.NewPositionBasedModel(name, s.FirstTouchWeight, s.LastTouchWeight)
	case domain.ModelCustom:
		weights := make(map[domain.TouchpointType]float64, len(s.CustomWeights))
		for k, v := range s.CustomWeights {
			weights[domain.TouchpointType(k)] = v
		}
		model, err = attribution.NewCustomModel(name, weights)
	case domain.ModelDataDriven:
		model, err = attribution.NewDataDrivenModel(name, attribution.DataDrivenConfig{
			MLModelPath:         s.MLModelPath,
			ConfidenceThreshold: s.ConfidenceThreshold,
		})
	default:
		return nil, fmt.Errorf("unknown model type %q", s.Type)
	}
	if err != nil {
		return nil, err
	}

	model.RequireConversion = s.RequireConversion
	return model, nil
}
