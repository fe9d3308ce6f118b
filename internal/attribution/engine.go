package attribution

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/paidsearchnav/attribution-service/internal/domain"
	"github.com/paidsearchnav/attribution-service/internal/pkg/logger"
)

// weightTolerance is the permitted floating-point drift on the normalized
// weight sum.
const weightTolerance = 1e-6

// WeightPredictor is the capability interface for the ML scoring
// collaborator used by data-driven models. It returns one raw (not
// necessarily normalized) weight per touch, in input order.
type WeightPredictor interface {
	PredictWeights(ctx context.Context, journey *domain.CustomerJourney, touches []domain.AttributionTouch) ([]float64, error)
}

// Engine computes multi-touch attribution for customer journeys. It is
// stateless between calls and safe for concurrent use; the only injected
// collaborator is the optional weight predictor.
type Engine struct {
	predictor        WeightPredictor
	predictorTimeout time.Duration
}

// NewEngine creates an attribution engine with no ML predictor configured.
func NewEngine() *Engine {
	return &Engine{predictorTimeout: 10 * time.Second}
}

// SetPredictor sets the ML weight predictor used by data-driven models.
func (e *Engine) SetPredictor(p WeightPredictor) {
	e.predictor = p
}

// SetPredictorTimeout bounds each call into the ML predictor.
func (e *Engine) SetPredictorTimeout(d time.Duration) {
	if d > 0 {
		e.predictorTimeout = d
	}
}

// CalculateAttribution distributes the journey's conversion value across its
// touchpoints under the given model.
//
// Touches must be non-empty and sorted by timestamp ascending; ordering is a
// caller contract and is not re-checked. Every touch must belong to the
// journey's customer.
func (e *Engine) CalculateAttribution(ctx context.Context, journey *domain.CustomerJourney, touches []domain.AttributionTouch, model *Model) (*domain.AttributionResult, error) {
	if len(touches) == 0 {
		return nil, &InvalidInputError{Reason: "no touchpoints provided"}
	}
	for i := range touches {
		if touches[i].CustomerID != journey.CustomerID {
			return nil, &InvalidInputError{Reason: "touch " + touches[i].TouchID + " does not belong to customer " + journey.CustomerID}
		}
	}

	// Non-converting journey under a conversion-only model is a defined
	// terminal state, not an error.
	if model.RequireConversion && !journey.Converted {
		return e.zeroResult(journey, model), nil
	}

	weights, err := e.computeWeights(ctx, journey, touches, model)
	if err != nil {
		return nil, err
	}
	weights, err = normalize(weights)
	if err != nil {
		return nil, err
	}

	result := &domain.AttributionResult{
		ResultID:              uuid.NewString(),
		CustomerJourneyID:     journey.JourneyID,
		CustomerID:            journey.CustomerID,
		AttributionModelID:    model.ModelID,
		ModelType:             model.ModelType,
		TotalConversionValue:  journey.ConversionValue,
		TouchAttributions:     make([]domain.TouchAttribution, 0, len(touches)),
		ChannelAttribution:    make(map[string]float64),
		CalculatedAt:          time.Now().UTC(),
		AttributionConfidence: e.calculateConfidence(touches),
	}

	for i := range touches {
		t := &touches[i]
		revenue := weights[i] * journey.ConversionValue
		if revenue < 0 {
			return nil, &ComputationError{Reason: "negative attributed revenue for touch " + t.TouchID}
		}
		result.TouchAttributions = append(result.TouchAttributions, domain.TouchAttribution{
			TouchID:           t.TouchID,
			TouchpointType:    t.TouchpointType,
			Timestamp:         t.Timestamp,
			Source:            t.Source,
			Medium:            t.Medium,
			GCLID:             t.GCLID,
			Weight:            weights[i],
			AttributedRevenue: revenue,
		})
		result.ChannelAttribution[t.Channel()] += revenue
		result.TotalAttributedValue += revenue
	}

	return result, nil
}

func (e *Engine) zeroResult(journey *domain.CustomerJourney, model *Model) *domain.AttributionResult {
	return &domain.AttributionResult{
		ResultID:           uuid.NewString(),
		CustomerJourneyID:  journey.JourneyID,
		CustomerID:         journey.CustomerID,
		AttributionModelID: model.ModelID,
		ModelType:          model.ModelType,
		TouchAttributions:  []domain.TouchAttribution{},
		ChannelAttribution: map[string]float64{},
		CalculatedAt:       time.Now().UTC(),
	}
}

func (e *Engine) computeWeights(ctx context.Context, journey *domain.CustomerJourney, touches []domain.AttributionTouch, model *Model) ([]float64, error) {
	n := len(touches)
	switch model.ModelType {
	case domain.ModelFirstTouch:
		weights := make([]float64, n)
		weights[0] = 1.0
		return weights, nil

	case domain.ModelLastTouch:
		weights := make([]float64, n)
		weights[n-1] = 1.0
		return weights, nil

	case domain.ModelLinear:
		weights := make([]float64, n)
		for i := range weights {
			weights[i] = 1.0 / float64(n)
		}
		return weights, nil

	case domain.ModelTimeDecay:
		halfLife := model.TimeDecayHalfLifeDays
		if halfLife <= 0 {
			halfLife = DefaultHalfLifeDays
		}
		return timeDecayWeights(touches, halfLife), nil

	case domain.ModelPositionBased:
		return positionBasedWeights(n, model.PositionBasedFirstWeight, model.PositionBasedLastWeight), nil

	case domain.ModelCustom:
		return customWeights(touches, model.CustomWeights), nil

	case domain.ModelDataDriven:
		return e.dataDrivenWeights(ctx, journey, touches)

	default:
		return nil, &ModelConfigurationError{ModelType: string(model.ModelType), Reason: "unknown model type"}
	}
}

// timeDecayWeights scores each touch by 2^(-Δt/halfLife) where Δt is the gap
// in days to the last touch, so the most recent touch carries the largest raw
// score. Scores are normalized by the caller.
func timeDecayWeights(touches []domain.AttributionTouch, halfLifeDays float64) []float64 {
	last := touches[len(touches)-1].Timestamp
	weights := make([]float64, len(touches))
	for i := range touches {
		deltaDays := last.Sub(touches[i].Timestamp).Hours() / 24
		weights[i] = math.Exp2(-deltaDays / halfLifeDays)
	}
	return weights
}

// positionBasedWeights gives firstWeight to the first touch, lastWeight to
// the last, and splits the remainder evenly across interior touches.
//
// With a single touch the positions collapse and it takes the full weight.
// With two touches there are no interior positions to absorb the remainder;
// the unallocated mass is redistributed proportionally to the two configured
// weights rather than dropped, which the caller-side normalization performs.
func positionBasedWeights(n int, firstWeight, lastWeight float64) []float64 {
	if n == 1 {
		return []float64{1.0}
	}
	weights := make([]float64, n)
	weights[0] = firstWeight
	weights[n-1] = lastWeight
	if n == 2 {
		return weights
	}
	remainder := 1.0 - firstWeight - lastWeight
	interior := remainder / float64(n-2)
	for i := 1; i < n-1; i++ {
		weights[i] = interior
	}
	return weights
}

// customWeights maps each touch's type through the model's relative weights.
// Types without an entry get zero. If nothing matches at all, the journey
// degrades to an even split so the full conversion value is still allocated.
func customWeights(touches []domain.AttributionTouch, typeWeights map[domain.TouchpointType]float64) []float64 {
	weights := make([]float64, len(touches))
	var sum float64
	for i := range touches {
		weights[i] = typeWeights[touches[i].TouchpointType]
		sum += weights[i]
	}
	if sum == 0 {
		logger.Warn("custom weights matched no touchpoint types, falling back to even split",
			"journey_id", touches[0].CustomerJourneyID)
		for i := range weights {
			weights[i] = 1.0 / float64(len(weights))
		}
	}
	return weights
}

// dataDrivenWeights asks the injected predictor for a raw weight vector.
// Absence, failure, timeout, or a malformed response all fall back to time
// decay with the default half-life; the fallback is logged, never surfaced.
func (e *Engine) dataDrivenWeights(ctx context.Context, journey *domain.CustomerJourney, touches []domain.AttributionTouch) ([]float64, error) {
	if e.predictor == nil {
		logger.Debug("no ML predictor configured, using time-decay fallback",
			"journey_id", journey.JourneyID)
		return timeDecayWeights(touches, DefaultHalfLifeDays), nil
	}

	predictCtx, cancel := context.WithTimeout(ctx, e.predictorTimeout)
	defer cancel()

	raw, err := e.predictor.PredictWeights(predictCtx, journey, touches)
	if err != nil {
		logger.Warn("ML predictor failed, using time-decay fallback",
			"journey_id", journey.JourneyID, "error", err.Error())
		return timeDecayWeights(touches, DefaultHalfLifeDays), nil
	}
	if len(raw) != len(touches) {
		logger.Warn("ML predictor returned wrong-length weight vector, using time-decay fallback",
			"journey_id", journey.JourneyID, "expected", len(touches), "got", len(raw))
		return timeDecayWeights(touches, DefaultHalfLifeDays), nil
	}
	var sum float64
	for _, w := range raw {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			logger.Warn("ML predictor returned invalid weight, using time-decay fallback",
				"journey_id", journey.JourneyID)
			return timeDecayWeights(touches, DefaultHalfLifeDays), nil
		}
		sum += w
	}
	if sum == 0 {
		logger.Warn("ML predictor returned all-zero weights, using time-decay fallback",
			"journey_id", journey.JourneyID)
		return timeDecayWeights(touches, DefaultHalfLifeDays), nil
	}
	return raw, nil
}

// normalize scales the raw weight vector to sum to 1.0 and verifies the
// result within tolerance.
func normalize(weights []float64) ([]float64, error) {
	var sum float64
	for _, w := range weights {
		sum += w
	}
	if sum <= 0 {
		return nil, &ComputationError{Reason: "raw weights sum to zero"}
	}
	normalized := make([]float64, len(weights))
	var check float64
	for i, w := range weights {
		normalized[i] = w / sum
		check += normalized[i]
	}
	if math.Abs(check-1.0) > weightTolerance {
		return nil, &ComputationError{Reason: "normalized weights do not sum to 1.0"}
	}
	return normalized, nil
}
