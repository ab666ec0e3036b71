package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"
)

// DefaultCompletionTimeout is the hard bound on one completion cycle.
const DefaultCompletionTimeout = 8 * time.Second

// CompletionClient issues one completion request.
type CompletionClient interface {
	Complete(ctx context.Context, messages []Message, preset QualityPreset) (string, error)
}

// Invoker runs one completion request raced against a hard timer and parses
// the structured result. No retries: a failed or timed-out call is reported
// once and dropped.
type Invoker struct {
	Client  CompletionClient
	Timeout time.Duration
}

// NewInvoker constructs an invoker with the default timeout.
func NewInvoker(client CompletionClient) *Invoker {
	return &Invoker{Client: client, Timeout: DefaultCompletionTimeout}
}

type completionResult struct {
	text string
	err  error
}

// Invoke performs the request. Whichever of response and timer resolves first
// wins: on timeout the request context is cancelled and the eventual result,
// if any, lands in a buffered channel nobody reads. Returns
// ErrCompletionTimeout or ErrMalformedOutput accordingly. A parsed result
// with empty Text is the empty-suggestion outcome, not an error.
func (inv *Invoker) Invoke(ctx context.Context, messages []Message, preset QualityPreset) (Suggestion, error) {
	timeout := inv.Timeout
	if timeout <= 0 {
		timeout = DefaultCompletionTimeout
	}

	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Buffered so the goroutine never leaks on a lost race.
	resultCh := make(chan completionResult, 1)
	go func() {
		text, err := inv.Client.Complete(reqCtx, messages, preset)
		resultCh <- completionResult{text: text, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-resultCh:
		if res.err != nil {
			return Suggestion{}, fmt.Errorf("completion request: %w", res.err)
		}
		return parseSuggestion(res.text)
	case <-timer.C:
		cancel()
		return Suggestion{}, ErrCompletionTimeout
	case <-ctx.Done():
		return Suggestion{}, ctx.Err()
	}
}

// rawResult mirrors the structured object the model is instructed to return.
// All fields are optional; a single defaulting step below turns it into a
// valid Suggestion.
type rawResult struct {
	Category   string `json:"category"`
	Suggestion string `json:"suggestion"`
	Intent     string `json:"intent"`
	Language   string `json:"language"`
}

func parseSuggestion(payload string) (Suggestion, error) {
	var raw rawResult
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		log.Printf("malformed model output: %v payload=%q", err, payload)
		return Suggestion{}, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}

	category := strings.ToLower(strings.TrimSpace(raw.Category))
	if !ValidCategory(category) {
		category = DefaultCategory
	}
	intent := strings.TrimSpace(raw.Intent)
	if intent == "" {
		intent = DefaultIntent
	}
	language := strings.TrimSpace(raw.Language)
	if language == "" {
		language = DefaultLanguage
	}

	return Suggestion{
		ID:       newSuggestionID(),
		Category: category,
		Intent:   intent,
		Language: language,
		Text:     strings.TrimSpace(raw.Suggestion),
	}, nil
}
