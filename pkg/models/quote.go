package models

import (
	"time"
)

// QuotePayload is the wire shape of a single quote candidate.
type QuotePayload struct {
	QuoteID      string  `json:"quote_id"`
	EstimatedAt  int64   `json:"estimated_at,omitempty"`
	StartTime    int64   `json:"start_time"`
	EndTime      int64   `json:"end_time"`
	Fee          float64 `json:"fee"`
	CurrencyCode string  `json:"currency_code"`
	PickupETA    *int    `json:"pickup_eta,omitempty"`
	DropoffETA   *int    `json:"dropoff_eta,omitempty"`
}

// Quote is an immutable snapshot of a priced, time-windowed delivery offer.
// PickupDate and DropoffDate are absolute times computed from the ETAs at the
// moment the quote was received.
type Quote struct {
	QuoteID      string
	StartTime    time.Time
	EndTime      time.Time
	Fee          float64
	CurrencyCode string
	PickupETA    *int
	DropoffETA   *int
	PickupDate   *time.Time
	DropoffDate  *time.Time
}

// NewQuote builds a quote from its wire payload, anchoring ETA-derived
// absolute times at now.
func NewQuote(payload QuotePayload, now time.Time) *Quote {
	q := &Quote{
		QuoteID:      payload.QuoteID,
		StartTime:    time.Unix(payload.StartTime, 0),
		EndTime:      time.Unix(payload.EndTime, 0),
		Fee:          payload.Fee,
		CurrencyCode: payload.CurrencyCode,
		PickupETA:    payload.PickupETA,
		DropoffETA:   payload.DropoffETA,
	}

	if payload.PickupETA != nil {
		d := now.Add(time.Duration(*payload.PickupETA) * time.Minute)
		q.PickupDate = &d
	}
	if payload.DropoffETA != nil {
		d := now.Add(time.Duration(*payload.DropoffETA) * time.Minute)
		q.DropoffDate = &d
	}

	return q
}
