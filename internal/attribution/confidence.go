package attribution

import (
	"math"

	"github.com/paidsearchnav/attribution-service/internal/domain"
)

// Confidence blends three evidence signals into [0,1]:
//
//   - touch count, saturating: more touches are more evidence, with
//     diminishing returns
//   - GCLID density: the fraction of touches deterministically matchable to
//     a Google Ads click
//   - temporal tightness: consecutive GCLID-bearing touches close together
//     are stronger evidence than loosely spaced ones
//
// The composition is monotonically non-decreasing in touch count and GCLID
// fraction, holding the other factors fixed.
const (
	confidenceCountWeight     = 0.45
	confidenceGCLIDWeight     = 0.35
	confidenceProximityWeight = 0.20

	// proximityScaleDays controls how fast the tightness signal decays with
	// the gap between correlated touches.
	proximityScaleDays = 3.0
)

func (e *Engine) calculateConfidence(touches []domain.AttributionTouch) float64 {
	n := len(touches)
	if n == 0 {
		return 0
	}

	// Saturates toward 1 as touch count grows.
	countScore := float64(n) / float64(n+3)

	gclidCount := 0
	for i := range touches {
		if touches[i].GCLID != "" {
			gclidCount++
		}
	}
	gclidScore := float64(gclidCount) / float64(n)

	proximityScore := gclidProximity(touches)

	confidence := confidenceCountWeight*countScore +
		confidenceGCLIDWeight*gclidScore +
		confidenceProximityWeight*proximityScore

	return clamp01(confidence)
}

// gclidProximity averages an exponential tightness score over consecutive
// pairs of touches that both carry a GCLID. Journeys with no such pair score
// zero on this component.
func gclidProximity(touches []domain.AttributionTouch) float64 {
	var total float64
	pairs := 0
	for i := 1; i < len(touches); i++ {
		if touches[i-1].GCLID == "" || touches[i].GCLID == "" {
			continue
		}
		gapDays := touches[i].Timestamp.Sub(touches[i-1].Timestamp).Hours() / 24
		if gapDays < 0 {
			gapDays = -gapDays
		}
		total += math.Exp(-gapDays / proximityScaleDays)
		pairs++
	}
	if pairs == 0 {
		return 0
	}
	return total / float64(pairs)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
