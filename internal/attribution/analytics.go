package attribution

import (
	"context"
	"sort"

	"github.com/paidsearchnav/attribution-service/internal/domain"
)

// SequenceSeparator joins touchpoint types into a journey sequence key.
const SequenceSeparator = " → "

// CompareModels runs attribution once per model against the same journey and
// touches, keyed by model name. Duplicate names are last-write-wins.
func (e *Engine) CompareModels(ctx context.Context, journey *domain.CustomerJourney, touches []domain.AttributionTouch, models []*Model) (map[string]*domain.AttributionResult, error) {
	results := make(map[string]*domain.AttributionResult, len(models))
	for _, model := range models {
		result, err := e.CalculateAttribution(ctx, journey, touches, model)
		if err != nil {
			return nil, err
		}
		results[model.ModelName] = result
	}
	return results, nil
}

// IncrementalValue reports one channel's revenue delta between two
// attribution runs, typically with and without a campaign active.
type IncrementalValue struct {
	Channel                   string  `json:"channel"`
	CurrentAttributedRevenue  float64 `json:"current_attributed_revenue"`
	BaselineAttributedRevenue float64 `json:"baseline_attributed_revenue"`
	IncrementalRevenue        float64 `json:"incremental_revenue"`
	LiftPercentage            float64 `json:"lift_percentage"`
}

// CalculateIncrementalValue sums the channel's attributed revenue across the
// current and baseline result sets and computes the lift. A zero baseline
// yields a zero lift percentage rather than a division error.
func (e *Engine) CalculateIncrementalValue(currentResults, baselineResults []*domain.AttributionResult, channel string) IncrementalValue {
	iv := IncrementalValue{Channel: channel}
	for _, r := range currentResults {
		iv.CurrentAttributedRevenue += r.ChannelAttribution[channel]
	}
	for _, r := range baselineResults {
		iv.BaselineAttributedRevenue += r.ChannelAttribution[channel]
	}
	iv.IncrementalRevenue = iv.CurrentAttributedRevenue - iv.BaselineAttributedRevenue
	if iv.BaselineAttributedRevenue != 0 {
		iv.LiftPercentage = (iv.IncrementalRevenue / iv.BaselineAttributedRevenue) * 100
	}
	return iv
}

// ConvertingSequence is one recurring touchpoint ordering with its frequency
// and the conversion value it carried.
type ConvertingSequence struct {
	Sequence     string  `json:"sequence"`
	Occurrences  int     `json:"occurrences"`
	TotalRevenue float64 `json:"total_revenue"`
}

// TopConvertingSequences groups results by their ordered touchpoint-type
// sequence, drops groups seen fewer than minOccurrences times, and ranks by
// occurrence count descending with total revenue as the tie-break.
func (e *Engine) TopConvertingSequences(results []*domain.AttributionResult, minOccurrences int) []ConvertingSequence {
	if minOccurrences < 1 {
		minOccurrences = 1
	}

	groups := make(map[string]*ConvertingSequence)
	for _, r := range results {
		key := r.SequenceKey(SequenceSeparator)
		if key == "" {
			continue
		}
		g, ok := groups[key]
		if !ok {
			g = &ConvertingSequence{Sequence: key}
			groups[key] = g
		}
		g.Occurrences++
		g.TotalRevenue += r.TotalConversionValue
	}

	sequences := make([]ConvertingSequence, 0, len(groups))
	for _, g := range groups {
		if g.Occurrences >= minOccurrences {
			sequences = append(sequences, *g)
		}
	}
	sort.Slice(sequences, func(i, j int) bool {
		if sequences[i].Occurrences != sequences[j].Occurrences {
			return sequences[i].Occurrences > sequences[j].Occurrences
		}
		return sequences[i].TotalRevenue > sequences[j].TotalRevenue
	})
	return sequences
}

// ChannelSummary aggregates one channel across many results.
type ChannelSummary struct {
	Channel     string  `json:"channel"`
	Revenue     float64 `json:"revenue"`
	Conversions int     `json:"conversions"`
}

// Summary is the cross-journey rollup consumed by dashboards and exports.
type Summary struct {
	TotalConversions       int                       `json:"total_conversions"`
	TotalAttributedRevenue float64                   `json:"total_attributed_revenue"`
	AverageConfidence      float64                   `json:"average_confidence"`
	Channels               map[string]ChannelSummary `json:"channels"`
	TopChannels            []ChannelSummary          `json:"top_channels"`
}

// Summarize aggregates a batch of attribution results: totals, mean
// confidence, per-channel revenue and conversion counts, and a revenue-ranked
// channel list.
func (e *Engine) Summarize(results []*domain.AttributionResult) Summary {
	summary := Summary{
		TotalConversions: len(results),
		Channels:         make(map[string]ChannelSummary),
	}
	if len(results) == 0 {
		summary.TopChannels = []ChannelSummary{}
		return summary
	}

	var confidenceSum float64
	for _, r := range results {
		summary.TotalAttributedRevenue += r.TotalAttributedValue
		confidenceSum += r.AttributionConfidence
		for channel, revenue := range r.ChannelAttribution {
			cs := summary.Channels[channel]
			cs.Channel = channel
			cs.Revenue += revenue
			cs.Conversions++
			summary.Channels[channel] = cs
		}
	}
	summary.AverageConfidence = confidenceSum / float64(len(results))

	summary.TopChannels = make([]ChannelSummary, 0, len(summary.Channels))
	for _, cs := range summary.Channels {
		summary.TopChannels = append(summary.TopChannels, cs)
	}
	sort.Slice(summary.TopChannels, func(i, j int) bool {
		return summary.TopChannels[i].Revenue > summary.TopChannels[j].Revenue
	})
	return summary
}
