// Package store persists accepted suggestions and serves the read API.
// Failures here are logged and swallowed; the suggestion pipeline never
// depends on a successful write.
package store

import (
	"context"
	"time"
)

// Record is one persisted suggestion event.
type Record struct {
	UserID     string    `json:"user_id"`
	SessionID  string    `json:"session_id"`
	Category   string    `json:"category"`
	Text       string    `json:"text"`
	Confidence float64   `json:"confidence"`
	Feedback   *bool     `json:"feedback,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Aggregate summarizes a user's suggestion history.
type Aggregate struct {
	Total             int            `json:"total"`
	ByCategory        map[string]int `json:"byCategory"`
	AverageConfidence float64        `json:"averageConfidence"`
	FeedbackRate      float64        `json:"feedbackRate"`
}

// Store is the suggestion event store boundary.
type Store interface {
	Save(ctx context.Context, rec Record) error
	ListByUser(ctx context.Context, userID, sessionID string, limit int) ([]Record, error)
	AggregateByUser(ctx context.Context, userID string) (Aggregate, error)
}

// DefaultListLimit bounds list queries when the caller passes no limit.
const DefaultListLimit = 50

// aggregate computes the summary from a page of records.
func aggregate(recs []Record) Aggregate {
	agg := Aggregate{ByCategory: make(map[string]int)}
	if len(recs) == 0 {
		return agg
	}
	var confSum float64
	var withFeedback int
	for _, r := range recs {
		agg.ByCategory[r.Category]++
		confSum += r.Confidence
		if r.Feedback != nil {
			withFeedback++
		}
	}
	agg.Total = len(recs)
	agg.AverageConfidence = confSum / float64(len(recs))
	agg.FeedbackRate = float64(withFeedback) / float64(len(recs))
	return agg
}
