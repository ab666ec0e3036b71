package store

import (
	"context"
	"fmt"
	"time"

	"github.com/supabase-community/postgrest-go"
	"github.com/supabase-community/supabase-go"
)

const suggestionsTable = "suggestions"

// aggregateScanLimit bounds the page the aggregate is computed from; the
// stats endpoint summarizes recent activity, not all of history.
const aggregateScanLimit = 500

// SupabaseStore implements Store on a Supabase "suggestions" table.
type SupabaseStore struct {
	client *supabase.Client
}

// NewSupabaseStore constructs the store. URL and service role key are
// required.
func NewSupabaseStore(url, serviceRoleKey string) (*SupabaseStore, error) {
	if url == "" || serviceRoleKey == "" {
		return nil, fmt.Errorf("missing Supabase configuration: SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY required")
	}
	client, err := supabase.NewClient(url, serviceRoleKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create Supabase client: %w", err)
	}
	return &SupabaseStore{client: client}, nil
}

// Save implements Store.
func (s *SupabaseStore) Save(ctx context.Context, rec Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, _, err := s.client.From(suggestionsTable).Insert(rec, false, "", "", "").Execute()
	if err != nil {
		return fmt.Errorf("failed to insert suggestion: %w", err)
	}
	return nil
}

// ListByUser implements Store. Most recent first.
func (s *SupabaseStore) ListByUser(ctx context.Context, userID, sessionID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	q := s.client.From(suggestionsTable).
		Select("*", "", false).
		Eq("user_id", userID)
	if sessionID != "" {
		q = q.Eq("session_id", sessionID)
	}
	var recs []Record
	_, err := q.Order("created_at", &postgrest.OrderOpts{Ascending: false}).
		Limit(limit, "").
		ExecuteTo(&recs)
	if err != nil {
		return nil, fmt.Errorf("failed to list suggestions: %w", err)
	}
	return recs, nil
}

// AggregateByUser implements Store. The summary is computed from the most
// recent aggregateScanLimit rows.
func (s *SupabaseStore) AggregateByUser(ctx context.Context, userID string) (Aggregate, error) {
	recs, err := s.ListByUser(ctx, userID, "", aggregateScanLimit)
	if err != nil {
		return Aggregate{}, err
	}
	return aggregate(recs), nil
}
