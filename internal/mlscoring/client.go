// Package mlscoring is the HTTP client for the ML weight-prediction service
// used by data-driven attribution models. The engine treats this collaborator
// as optional: any failure here triggers its time-decay fallback, so the
// client reports errors honestly instead of papering over them.
package mlscoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/paidsearchnav/attribution-service/internal/domain"
	"github.com/paidsearchnav/attribution-service/internal/pkg/httpretry"
)

// Client calls the ML scoring service's weight-prediction endpoint. It
// satisfies the engine's WeightPredictor interface.
type Client struct {
	baseURL string
	apiKey  string
	http    httpretry.HTTPDoer
}

// NewClient creates an ML scoring client. timeout bounds each underlying
// request; retries are handled inside the retry client.
func NewClient(baseURL, apiKey string, timeout time.Duration, maxRetries int) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    httpretry.NewRetryClient(&http.Client{Timeout: timeout}, maxRetries),
	}
}

type predictRequest struct {
	Journey *domain.CustomerJourney   `json:"journey"`
	Touches []domain.AttributionTouch `json:"touches"`
}

type predictResponse struct {
	Weights []float64 `json:"weights"`
	ModelID string    `json:"model_id,omitempty"`
}

// PredictWeights returns one raw weight per touch, in input order. The
// engine normalizes the vector itself.
func (c *Client) PredictWeights(ctx context.Context, journey *domain.CustomerJourney, touches []domain.AttributionTouch) ([]float64, error) {
	payload, err := json.Marshal(predictRequest{Journey: journey, Touches: touches})
	if err != nil {
		return nil, fmt.Errorf("mlscoring: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/attribution/weights", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("mlscoring: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mlscoring: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("mlscoring: service returned status %d: %s", resp.StatusCode, string(body))
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("mlscoring: decode response: %w", err)
	}
	if len(out.Weights) != len(touches) {
		return nil, fmt.Errorf("mlscoring: expected %d weights, got %d", len(touches), len(out.Weights))
	}
	return out.Weights, nil
}

// ModelInfo returns metadata for the weighting model the service is
// currently serving.
func (c *Client) ModelInfo(ctx context.Context) (*domain.MLAttributionModel, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/attribution/model", nil)
	if err != nil {
		return nil, fmt.Errorf("mlscoring: build request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mlscoring: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("mlscoring: service returned status %d: %s", resp.StatusCode, string(body))
	}

	var model domain.MLAttributionModel
	if err := json.NewDecoder(resp.Body).Decode(&model); err != nil {
		return nil, fmt.Errorf("mlscoring: decode model info: %w", err)
	}
	return &model, nil
}
