// Package session owns one client connection: it receives transcript-ready
// events, drives prompt building, completion, dedup, history, and streaming in
// order, and forwards protocol messages to the connection.
package session

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/Mikba883/salesgenius-backend-sub000/internal/dedup"
	"github.com/Mikba883/salesgenius-backend-sub000/internal/history"
	"github.com/Mikba883/salesgenius-backend-sub000/internal/llm"
	"github.com/Mikba883/salesgenius-backend-sub000/internal/prompt"
	"github.com/Mikba883/salesgenius-backend-sub000/internal/store"
	"github.com/Mikba883/salesgenius-backend-sub000/internal/stream"
)

// Outcome classifies one transcript cycle.
type Outcome int

const (
	// OutcomeDropped means another cycle was already in flight.
	OutcomeDropped Outcome = iota
	// OutcomeError means an error event was sent to the client.
	OutcomeError
	// OutcomeSuppressed means the model returned no text; silent no-op.
	OutcomeSuppressed
	// OutcomeDuplicate means the fingerprint was still cached; silent no-op.
	OutcomeDuplicate
	// OutcomeAccepted means the suggestion was streamed and recorded.
	OutcomeAccepted
)

// fingerprintPrefixLen is how many characters of suggestion text go into the
// dedup fingerprint.
const fingerprintPrefixLen = 40

// persistTimeout bounds the write-behind call to the event store.
const persistTimeout = 10 * time.Second

// CompletionInvoker runs one timeout-bounded completion.
type CompletionInvoker interface {
	Invoke(ctx context.Context, messages []llm.Message, preset llm.QualityPreset) (llm.Suggestion, error)
}

// SuggestionEmitter streams one accepted suggestion to a sink.
type SuggestionEmitter interface {
	Emit(ctx context.Context, sug llm.Suggestion, sink stream.Sink) error
}

// Config carries per-session settings.
type Config struct {
	UserID       string
	SessionID    string
	Preset       llm.QualityPreset
	CategoryHint string
	MaxTurns     int
	DedupTTL     time.Duration
}

// Session orchestrates the suggestion pipeline for one connection. It
// exclusively owns its history buffer and dedup cache; both are discarded on
// Close. At most one cycle runs at a time: a transcript arriving while a
// cycle is in flight is dropped.
type Session struct {
	cfg     Config
	invoker CompletionInvoker
	emitter SuggestionEmitter
	sink    stream.Sink
	events  store.Store // optional; nil disables persistence

	history *history.Buffer
	dedup   *dedup.Cache

	mu       sync.Mutex
	inFlight bool
	turn     int
}

// New constructs a session with fresh per-session state. events may be nil.
func New(cfg Config, invoker CompletionInvoker, emitter SuggestionEmitter, sink stream.Sink, events store.Store) *Session {
	if cfg.SessionID == "" {
		cfg.SessionID = time.Now().Format("0102150405.000")
	}
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = dedup.DefaultTTL
	}
	return &Session{
		cfg:     cfg,
		invoker: invoker,
		emitter: emitter,
		sink:    sink,
		events:  events,
		history: history.NewBuffer(cfg.MaxTurns),
		dedup:   dedup.NewCache(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.cfg.SessionID }

// Close discards session state and stops the dedup janitor.
func (s *Session) Close() { s.dedup.Close() }

// Fingerprint derives the dedup key for a suggestion: category plus a
// lowercased prefix of the text. No similarity scoring beyond this.
func Fingerprint(category, text string) string {
	t := strings.ToLower(strings.TrimSpace(text))
	if r := []rune(t); len(r) > fingerprintPrefixLen {
		t = string(r[:fingerprintPrefixLen])
	}
	return category + ":" + t
}

// HandleTranscript runs one full cycle for a finalized transcript fragment.
// Safe to call from concurrent goroutines; overlapping calls are dropped.
func (s *Session) HandleTranscript(ctx context.Context, text string, confidence float64) Outcome {
	text = strings.TrimSpace(text)
	if text == "" {
		return OutcomeSuppressed
	}

	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		log.Printf("[%s] transcript dropped, cycle already in flight", s.cfg.SessionID)
		return OutcomeDropped
	}
	s.inFlight = true
	s.turn++
	turn := s.turn
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	msgs := prompt.Build(text, confidence, s.history.Snapshot(), s.cfg.CategoryHint)
	sug, err := s.invoker.Invoke(ctx, msgs, s.cfg.Preset)
	if err != nil {
		s.reportError(turn, err)
		return OutcomeError
	}

	if sug.Text == "" {
		log.Printf("[%s] turn %d: empty suggestion, skipping", s.cfg.SessionID, turn)
		return OutcomeSuppressed
	}

	fp := Fingerprint(sug.Category, sug.Text)
	if s.dedup.ShouldSuppress(fp) {
		log.Printf("[%s] turn %d: duplicate suggestion, skipping", s.cfg.SessionID, turn)
		return OutcomeDuplicate
	}
	s.dedup.Remember(fp, s.cfg.DedupTTL)
	s.history.AppendExchange(text, sug.Text)

	if err := s.emitter.Emit(ctx, sug, s.sink); err != nil {
		log.Printf("[%s] turn %d: emit failed: %v", s.cfg.SessionID, turn, err)
	}

	s.persist(sug, confidence)
	return OutcomeAccepted
}

// reportError sends exactly one error event for the cycle.
func (s *Session) reportError(turn int, err error) {
	ev := stream.ErrorEvent{Type: stream.TypeError}
	switch {
	case errors.Is(err, llm.ErrCompletionTimeout):
		ev.Message = "The suggestion took too long. Keep going, the next one will catch up."
		ev.Reason = stream.ReasonTimeout
	default:
		ev.Message = "Could not generate a suggestion for that."
		ev.Reason = stream.ReasonUnknown
	}
	log.Printf("[%s] turn %d: completion failed: %v", s.cfg.SessionID, turn, err)
	if sendErr := s.sink.Send(ev); sendErr != nil {
		log.Printf("[%s] turn %d: error event send failed: %v", s.cfg.SessionID, turn, sendErr)
	}
}

// persist writes the accepted suggestion behind the response. Failures are
// logged and swallowed; they never fail the pipeline.
func (s *Session) persist(sug llm.Suggestion, confidence float64) {
	if s.events == nil {
		return
	}
	rec := store.Record{
		UserID:     s.cfg.UserID,
		SessionID:  s.cfg.SessionID,
		Category:   sug.Category,
		Text:       sug.Text,
		Confidence: confidence,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()
		if err := s.events.Save(ctx, rec); err != nil {
			log.Printf("[%s] suggestion persist failed: %v", s.cfg.SessionID, err)
		}
	}()
}
