package attribution

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/paidsearchnav/attribution-service/internal/domain"
)

func insightCategories(insights []domain.AttributionInsight) []string {
	categories := make([]string, 0, len(insights))
	for _, in := range insights {
		categories = append(categories, in.Category)
	}
	return categories
}

func TestGenerateInsights_ChannelConcentration(t *testing.T) {
	e := NewEngine()
	summary := Summary{
		TotalConversions:       10,
		TotalAttributedRevenue: 1000,
		AverageConfidence:      0.7,
		TopChannels: []ChannelSummary{
			{Channel: "google/cpc", Revenue: 800, Conversions: 8},
			{Channel: "google/organic", Revenue: 200, Conversions: 4},
		},
	}

	insights := e.GenerateInsights(summary, domain.ModelLinear)
	assert.Contains(t, insightCategories(insights), "channel_concentration")
	for _, in := range insights {
		assert.NotEmpty(t, in.InsightID)
		assert.NotEmpty(t, in.Title)
		assert.NotEmpty(t, in.Description)
	}
}

func TestGenerateInsights_LowConfidence(t *testing.T) {
	e := NewEngine()
	summary := Summary{
		TotalConversions:       5,
		TotalAttributedRevenue: 500,
		AverageConfidence:      0.2,
		TopChannels: []ChannelSummary{
			{Channel: "google/cpc", Revenue: 250, Conversions: 3},
			{Channel: "direct/(none)", Revenue: 250, Conversions: 2},
		},
	}

	insights := e.GenerateInsights(summary, domain.ModelTimeDecay)
	categories := insightCategories(insights)
	assert.Contains(t, categories, "low_confidence")
	assert.NotContains(t, categories, "channel_concentration")
}

func TestGenerateInsights_UbiquitousChannel(t *testing.T) {
	e := NewEngine()
	summary := Summary{
		TotalConversions:       4,
		TotalAttributedRevenue: 400,
		AverageConfidence:      0.6,
		TopChannels: []ChannelSummary{
			{Channel: "google/cpc", Revenue: 190, Conversions: 4},
			{Channel: "google/organic", Revenue: 120, Conversions: 2},
			{Channel: "direct/(none)", Revenue: 90, Conversions: 3},
		},
	}

	insights := e.GenerateInsights(summary, domain.ModelLinear)
	assert.Contains(t, insightCategories(insights), "ubiquitous_channel")
}

func TestGenerateInsights_EmptySummary(t *testing.T) {
	e := NewEngine()
	insights := e.GenerateInsights(Summary{}, domain.ModelLinear)
	assert.Empty(t, insights)
}
