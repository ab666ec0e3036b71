package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Mikba883/salesgenius-backend-sub000/internal/store"
	"github.com/Mikba883/salesgenius-backend-sub000/internal/ws"
)

func newTestServer(t *testing.T, password string) (*Server, *store.MemoryStore) {
	t.Helper()
	events := store.NewMemoryStore()
	srv := New(Deps{
		WS:           &ws.Handler{Events: events, AuthPassword: password},
		Events:       events,
		AuthPassword: password,
	})
	return srv, events
}

func seed(t *testing.T, events *store.MemoryStore) {
	t.Helper()
	recs := []store.Record{
		{UserID: "u1", SessionID: "s1", Category: "discovery", Text: "Ask about timeline", Confidence: 0.9},
		{UserID: "u1", SessionID: "s2", Category: "value", Text: "Quantify savings", Confidence: 0.7},
		{UserID: "u2", SessionID: "s3", Category: "closing", Text: "Propose next step", Confidence: 0.8},
	}
	for _, r := range recs {
		if err := events.Save(context.Background(), r); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, "")
	r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	srv.Echo.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestListSuggestions(t *testing.T) {
	srv, events := newTestServer(t, "")
	seed(t, events)

	r := httptest.NewRequest(http.MethodGet, "/api/suggestions?user_id=u1", nil)
	w := httptest.NewRecorder()
	srv.Echo.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var recs []store.Record
	if err := json.Unmarshal(w.Body.Bytes(), &recs); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records for u1, got %d", len(recs))
	}
	for _, rec := range recs {
		if rec.UserID != "u1" {
			t.Fatalf("leaked record for %q", rec.UserID)
		}
	}
}

func TestListSuggestions_SessionFilterAndLimit(t *testing.T) {
	srv, events := newTestServer(t, "")
	seed(t, events)

	r := httptest.NewRequest(http.MethodGet, "/api/suggestions?user_id=u1&session_id=s2", nil)
	w := httptest.NewRecorder()
	srv.Echo.ServeHTTP(w, r)
	var recs []store.Record
	if err := json.Unmarshal(w.Body.Bytes(), &recs); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(recs) != 1 || recs[0].SessionID != "s2" {
		t.Fatalf("unexpected records: %+v", recs)
	}

	r2 := httptest.NewRequest(http.MethodGet, "/api/suggestions?user_id=u1&limit=1", nil)
	w2 := httptest.NewRecorder()
	srv.Echo.ServeHTTP(w2, r2)
	recs = nil
	if err := json.Unmarshal(w2.Body.Bytes(), &recs); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected limit=1 to return one record, got %d", len(recs))
	}
}

func TestListSuggestions_BadRequests(t *testing.T) {
	srv, _ := newTestServer(t, "")
	cases := []string{
		"/api/suggestions",
		"/api/suggestions?user_id=u1&limit=-1",
		"/api/suggestions?user_id=u1&limit=abc",
	}
	for _, path := range cases {
		r := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		srv.Echo.ServeHTTP(w, r)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", path, w.Code)
		}
	}
}

func TestListSuggestions_EmptyIsArray(t *testing.T) {
	srv, _ := newTestServer(t, "")
	r := httptest.NewRequest(http.MethodGet, "/api/suggestions?user_id=nobody", nil)
	w := httptest.NewRecorder()
	srv.Echo.ServeHTTP(w, r)
	if body := w.Body.String(); body != "[]\n" && body != "[]" {
		t.Fatalf("expected empty JSON array, got %q", body)
	}
}

func TestSuggestionStats(t *testing.T) {
	srv, events := newTestServer(t, "")
	seed(t, events)

	r := httptest.NewRequest(http.MethodGet, "/api/suggestions/stats?user_id=u1", nil)
	w := httptest.NewRecorder()
	srv.Echo.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var agg store.Aggregate
	if err := json.Unmarshal(w.Body.Bytes(), &agg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if agg.Total != 2 {
		t.Fatalf("expected total 2, got %d", agg.Total)
	}
	if agg.ByCategory["discovery"] != 1 || agg.ByCategory["value"] != 1 {
		t.Fatalf("unexpected category counts: %v", agg.ByCategory)
	}
	if agg.AverageConfidence != 0.8 {
		t.Fatalf("expected avg confidence 0.8, got %f", agg.AverageConfidence)
	}
}

func TestSuggestionStats_RequiresUserID(t *testing.T) {
	srv, _ := newTestServer(t, "")
	r := httptest.NewRequest(http.MethodGet, "/api/suggestions/stats", nil)
	w := httptest.NewRecorder()
	srv.Echo.ServeHTTP(w, r)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestAPIAuth(t *testing.T) {
	srv, events := newTestServer(t, "secret")
	seed(t, events)

	r := httptest.NewRequest(http.MethodGet, "/api/suggestions?user_id=u1", nil)
	w := httptest.NewRecorder()
	srv.Echo.ServeHTTP(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without credentials, got %d", w.Code)
	}

	r2 := httptest.NewRequest(http.MethodGet, "/api/suggestions?user_id=u1", nil)
	r2.Header.Set("Authorization", "Bearer secret")
	w2 := httptest.NewRecorder()
	srv.Echo.ServeHTTP(w2, r2)
	if w2.Code != http.StatusOK {
		t.Fatalf("expected 200 with bearer token, got %d", w2.Code)
	}

	r3 := httptest.NewRequest(http.MethodGet, "/api/suggestions?user_id=u1&password=secret", nil)
	w3 := httptest.NewRecorder()
	srv.Echo.ServeHTTP(w3, r3)
	if w3.Code != http.StatusOK {
		t.Fatalf("expected 200 with query password, got %d", w3.Code)
	}

	// Health stays open.
	r4 := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w4 := httptest.NewRecorder()
	srv.Echo.ServeHTTP(w4, r4)
	if w4.Code != http.StatusOK {
		t.Fatalf("expected open healthz, got %d", w4.Code)
	}
}
