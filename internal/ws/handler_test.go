package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Mikba883/salesgenius-backend-sub000/internal/llm"
	"github.com/Mikba883/salesgenius-backend-sub000/internal/store"
	"github.com/Mikba883/salesgenius-backend-sub000/internal/stream"
)

type fakeInvoker struct {
	sug llm.Suggestion
	err error
}

func (f *fakeInvoker) Invoke(context.Context, []llm.Message, llm.QualityPreset) (llm.Suggestion, error) {
	return f.sug, f.err
}

func newTestHandler(inv *fakeInvoker, password string) *Handler {
	return &Handler{
		Invoker:      inv,
		Emitter:      &stream.Emitter{Pacer: stream.NopPacer{}},
		Events:       store.NewMemoryStore(),
		AuthPassword: password,
	}
}

func dialTest(t *testing.T, h *Handler, query string) (*websocket.Conn, func()) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(h.ServeWebSocket))
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + query
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("dial: %v", err)
	}
	return conn, func() {
		_ = conn.Close()
		srv.Close()
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal %q: %v", data, err)
	}
	return m
}

func TestServeWebSocket_TranscriptStreamsSuggestion(t *testing.T) {
	inv := &fakeInvoker{sug: llm.Suggestion{
		ID:       "id-1",
		Category: "discovery",
		Intent:   "explore",
		Language: "en",
		Text:     "Ask about their timeline",
	}}
	conn, done := dialTest(t, newTestHandler(inv, ""), "")
	defer done()

	msg := `{"type":"transcript","text":"We are still evaluating options","confidence":0.9}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("write: %v", err)
	}

	ev := readEvent(t, conn)
	if ev["type"] != "suggestion.start" || ev["emoji"] != "🔍" {
		t.Fatalf("unexpected first event: %v", ev)
	}
	for {
		ev = readEvent(t, conn)
		if ev["type"] == "suggestion.end" {
			break
		}
		if ev["type"] != "suggestion.delta" {
			t.Fatalf("unexpected event between start and end: %v", ev)
		}
	}
	if ev["fullText"] != "Ask about their timeline" {
		t.Fatalf("unexpected end event: %v", ev)
	}
}

func TestServeWebSocket_TimeoutErrorEvent(t *testing.T) {
	conn, done := dialTest(t, newTestHandler(&fakeInvoker{err: llm.ErrCompletionTimeout}, ""), "")
	defer done()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"transcript","text":"hello","confidence":0.5}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	ev := readEvent(t, conn)
	if ev["type"] != "error" || ev["reason"] != "timeout" {
		t.Fatalf("unexpected event: %v", ev)
	}
}

func TestServeWebSocket_ByeClosesConnection(t *testing.T) {
	conn, done := dialTest(t, newTestHandler(&fakeInvoker{}, ""), "")
	defer done()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"bye"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected the server to close after bye")
	}
}

func TestServeWebSocket_InvalidJSONIgnored(t *testing.T) {
	inv := &fakeInvoker{sug: llm.Suggestion{ID: "x", Category: "value", Text: "Quantify the savings"}}
	conn, done := dialTest(t, newTestHandler(inv, ""), "")
	defer done()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`not-json`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	// Connection survives; a valid message still works.
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"transcript","text":"price is high","confidence":0.8}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if ev := readEvent(t, conn); ev["type"] != "suggestion.start" {
		t.Fatalf("unexpected event: %v", ev)
	}
}

func TestServeWebSocket_RejectsBadPassword(t *testing.T) {
	h := newTestHandler(&fakeInvoker{}, "secret")
	srv := httptest.NewServer(http.HandlerFunc(h.ServeWebSocket))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "?password=wrong"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatalf("expected dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %+v", resp)
	}
}

func TestServeWebSocket_AcceptsQueryPassword(t *testing.T) {
	conn, done := dialTest(t, newTestHandler(&fakeInvoker{}, "secret"), "?password=secret")
	defer done()
	_ = conn
}

func TestAuthOK(t *testing.T) {
	mk := func(query, authz, token string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/ws"+query, nil)
		if authz != "" {
			r.Header.Set("Authorization", authz)
		}
		if token != "" {
			r.Header.Set("X-Auth-Token", token)
		}
		return r
	}
	cases := []struct {
		name     string
		r        *http.Request
		password string
		want     bool
	}{
		{"no password configured", mk("", "", ""), "", true},
		{"query match", mk("?password=s3cret", "", ""), "s3cret", true},
		{"query mismatch", mk("?password=nope", "", ""), "s3cret", false},
		{"bearer match", mk("", "Bearer s3cret", ""), "s3cret", true},
		{"bearer case-insensitive scheme", mk("", "bearer s3cret", ""), "s3cret", true},
		{"bearer mismatch", mk("", "Bearer nope", ""), "s3cret", false},
		{"x-auth-token match", mk("", "", "s3cret"), "s3cret", true},
		{"nothing provided", mk("", "", ""), "s3cret", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := authOK(tc.r, tc.password); got != tc.want {
				t.Fatalf("got %v want %v", got, tc.want)
			}
		})
	}
}
