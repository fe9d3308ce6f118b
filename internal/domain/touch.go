package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TouchpointType enumerates the kinds of marketing interactions we record.
type TouchpointType string

const (
	TouchGoogleAdsClick      TouchpointType = "google_ads_click"
	TouchGoogleAdsImpression TouchpointType = "google_ads_impression"
	TouchGA4Session          TouchpointType = "ga4_session"
	TouchOrganicSearch       TouchpointType = "organic_search"
	TouchDirectVisit         TouchpointType = "direct_visit"
	TouchReferral            TouchpointType = "referral"
	TouchEmailClick          TouchpointType = "email_click"
	TouchSocial              TouchpointType = "social"
)

// ConversionType enumerates recognized conversion events.
type ConversionType string

const (
	ConversionPurchase   ConversionType = "purchase"
	ConversionLead       ConversionType = "lead"
	ConversionSignup     ConversionType = "signup"
	ConversionPhoneCall  ConversionType = "phone_call"
	ConversionStoreVisit ConversionType = "store_visit"
)

// AttributionTouch is a single touchpoint event within a customer journey.
//
// The ingestion pipeline constructs one per raw event (ad click, GA4 session,
// direct visit). The attribution engine never mutates a touch; it emits a
// separate weighted record referencing TouchID.
type AttributionTouch struct {
	TouchID           string         `json:"touch_id" db:"touch_id"`
	CustomerJourneyID string         `json:"customer_journey_id" db:"customer_journey_id"`
	CustomerID        string         `json:"customer_id" db:"customer_id"`
	TouchpointType    TouchpointType `json:"touchpoint_type" db:"touchpoint_type"`
	Timestamp         time.Time      `json:"timestamp" db:"timestamp"`

	GCLID          string `json:"gclid,omitempty" db:"gclid"`
	CampaignID     string `json:"campaign_id,omitempty" db:"campaign_id"`
	Source         string `json:"source,omitempty" db:"source"`
	Medium         string `json:"medium,omitempty" db:"medium"`
	DeviceCategory string `json:"device_category,omitempty" db:"device_category"`
	Country        string `json:"country,omitempty" db:"country"`
	LandingPage    string `json:"landing_page,omitempty" db:"landing_page"`

	IsConversionTouch bool           `json:"is_conversion_touch" db:"is_conversion_touch"`
	ConversionType    ConversionType `json:"conversion_type,omitempty" db:"conversion_type"`
	ConversionValue   float64        `json:"conversion_value" db:"conversion_value"`
}

// NewAttributionTouch builds a touch with a generated ID.
func NewAttributionTouch(journeyID, customerID string, touchType TouchpointType, ts time.Time) (*AttributionTouch, error) {
	if journeyID == "" || customerID == "" {
		return nil, fmt.Errorf("attribution touch: journey_id and customer_id are required")
	}
	return &AttributionTouch{
		TouchID:           uuid.NewString(),
		CustomerJourneyID: journeyID,
		CustomerID:        customerID,
		TouchpointType:    touchType,
		Timestamp:         ts,
	}, nil
}

// Channel returns the "source/medium" bucket for this touch. Missing fields
// degrade to sentinels rather than producing empty keys.
func (t *AttributionTouch) Channel() string {
	source := t.Source
	if source == "" {
		source = "unknown"
	}
	medium := t.Medium
	if medium == "" {
		medium = "(none)"
	}
	return source + "/" + medium
}

// Validate checks the per-touch constraints enforced at ingestion time.
func (t *AttributionTouch) Validate() error {
	if t.ConversionValue < 0 {
		return fmt.Errorf("attribution touch %s: conversion_value must be non-negative, got %.2f", t.TouchID, t.ConversionValue)
	}
	if t.Timestamp.IsZero() {
		return fmt.Errorf("attribution touch %s: timestamp is required", t.TouchID)
	}
	return nil
}
