package attribution

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/paidsearchnav/attribution-service/internal/domain"
)

// Insight generation thresholds.
const (
	concentrationThreshold = 0.5
	lowConfidenceThreshold = 0.3
)

// GenerateInsights derives dashboard findings from a cross-journey summary:
// channel concentration, weak identifier coverage, and channels earning
// revenue without conversions of their own.
func (e *Engine) GenerateInsights(summary Summary, modelType domain.AttributionModelType) []domain.AttributionInsight {
	insights := []domain.AttributionInsight{}
	if summary.TotalConversions == 0 {
		return insights
	}
	now := time.Now().UTC()

	if len(summary.TopChannels) > 1 && summary.TotalAttributedRevenue > 0 {
		top := summary.TopChannels[0]
		share := top.Revenue / summary.TotalAttributedRevenue
		if share > concentrationThreshold {
			insights = append(insights, domain.AttributionInsight{
				InsightID: uuid.NewString(),
				Category:  "channel_concentration",
				Title:     fmt.Sprintf("%s carries %.0f%% of attributed revenue", top.Channel, share*100),
				Description: fmt.Sprintf("Under the %s model, %s accounts for %.0f%% of all attributed revenue across %d conversions. Budget shifts in this channel will dominate overall performance.",
					modelType, top.Channel, share*100, summary.TotalConversions),
				Severity:    "info",
				GeneratedAt: now,
			})
		}
	}

	if summary.AverageConfidence < lowConfidenceThreshold {
		insights = append(insights, domain.AttributionInsight{
			InsightID: uuid.NewString(),
			Category:  "low_confidence",
			Title:     fmt.Sprintf("Average attribution confidence is %.2f", summary.AverageConfidence),
			Description: fmt.Sprintf("Mean confidence across %d conversions is %.2f. Short journeys or missing GCLID coverage weaken cross-platform matching; check auto-tagging and the click-to-session matcher.",
				summary.TotalConversions, summary.AverageConfidence),
			Severity:    "warning",
			GeneratedAt: now,
		})
	}

	for _, cs := range summary.TopChannels {
		if cs.Revenue > 0 && cs.Conversions == summary.TotalConversions {
			insights = append(insights, domain.AttributionInsight{
				InsightID: uuid.NewString(),
				Category:  "ubiquitous_channel",
				Title:     fmt.Sprintf("%s appears in every converting journey", cs.Channel),
				Description: fmt.Sprintf("%s received credit in all %d conversions. Single-touch models will over- or under-state it sharply; compare against linear or position-based before reallocating.",
					cs.Channel, summary.TotalConversions),
				Severity:    "info",
				GeneratedAt: now,
			})
		}
	}

	return insights
}
