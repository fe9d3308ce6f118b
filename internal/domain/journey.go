package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CustomerJourney summarizes one customer's purchase funnel for a single
// analysis window: the span from the first recorded touchpoint to the last,
// whether it ended in a conversion, and the conversion value if it did.
//
// Journeys are assembled by the ingestion pipeline once all touches for a
// window are known. The attribution engine treats them as read-only.
type CustomerJourney struct {
	JourneyID           string     `json:"journey_id" db:"journey_id"`
	CustomerID          string     `json:"customer_id" db:"customer_id"`
	FirstTouch          time.Time  `json:"first_touch" db:"first_touch"`
	LastTouch           time.Time  `json:"last_touch" db:"last_touch"`
	ConversionTimestamp *time.Time `json:"conversion_timestamp,omitempty" db:"conversion_timestamp"`
	TotalTouches        int        `json:"total_touches" db:"total_touches"`
	Converted           bool       `json:"converted" db:"converted"`
	ConversionValue     float64    `json:"conversion_value" db:"conversion_value"`
	AttributionModel    string     `json:"attribution_model,omitempty" db:"attribution_model"`
	JourneyLengthDays   float64    `json:"journey_length_days" db:"journey_length_days"`
	FirstTouchSource    string     `json:"first_touch_source,omitempty" db:"first_touch_source"`
	FirstTouchMedium    string     `json:"first_touch_medium,omitempty" db:"first_touch_medium"`
	LastTouchSource     string     `json:"last_touch_source,omitempty" db:"last_touch_source"`
	LastTouchMedium     string     `json:"last_touch_medium,omitempty" db:"last_touch_medium"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
}

// NewCustomerJourney builds a journey with a generated ID and a derived
// journey length. The window must be well-ordered and the conversion value
// non-negative.
func NewCustomerJourney(customerID string, firstTouch, lastTouch time.Time, converted bool, conversionValue float64) (*CustomerJourney, error) {
	if customerID == "" {
		return nil, fmt.Errorf("customer journey: customer_id is required")
	}
	if lastTouch.Before(firstTouch) {
		return nil, fmt.Errorf("customer journey: last_touch %s precedes first_touch %s", lastTouch.Format(time.RFC3339), firstTouch.Format(time.RFC3339))
	}
	if conversionValue < 0 {
		return nil, fmt.Errorf("customer journey: conversion_value must be non-negative, got %.2f", conversionValue)
	}
	j := &CustomerJourney{
		JourneyID:       uuid.NewString(),
		CustomerID:      customerID,
		Converted:       converted,
		ConversionValue: conversionValue,
		CreatedAt:       time.Now().UTC(),
	}
	j.setWindow(firstTouch, lastTouch)
	return j, nil
}

// SetWindow updates the journey window and recomputes the derived length.
// JourneyLengthDays is never accepted from callers directly.
func (j *CustomerJourney) SetWindow(firstTouch, lastTouch time.Time) error {
	if lastTouch.Before(firstTouch) {
		return fmt.Errorf("customer journey: last_touch precedes first_touch")
	}
	j.setWindow(firstTouch, lastTouch)
	return nil
}

func (j *CustomerJourney) setWindow(firstTouch, lastTouch time.Time) {
	j.FirstTouch = firstTouch
	j.LastTouch = lastTouch
	j.JourneyLengthDays = lastTouch.Sub(firstTouch).Hours() / 24
}
