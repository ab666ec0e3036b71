package stream

import (
	"context"
	"strings"
	"time"

	"github.com/Mikba883/salesgenius-backend-sub000/internal/llm"
)

// DefaultPacingGap spaces successive delta events. Presentation only; tests
// run with NopPacer.
const DefaultPacingGap = 50 * time.Millisecond

// Sink receives protocol messages bound for one client connection.
type Sink interface {
	Send(v any) error
}

// Pacer imposes the gap between successive delta events.
type Pacer interface {
	Pace(ctx context.Context)
}

// SleepPacer waits a fixed gap.
type SleepPacer struct {
	Gap time.Duration
}

func (p SleepPacer) Pace(ctx context.Context) {
	gap := p.Gap
	if gap <= 0 {
		gap = DefaultPacingGap
	}
	select {
	case <-time.After(gap):
	case <-ctx.Done():
	}
}

// NopPacer runs the emitter synchronously.
type NopPacer struct{}

func (NopPacer) Pace(context.Context) {}

// Emitter turns an accepted suggestion into the ordered start/delta/end
// sequence. The sequence is finite and non-restartable; no event is skipped or
// reordered.
type Emitter struct {
	Pacer Pacer
}

// NewEmitter returns an emitter with the default pacing gap.
func NewEmitter() *Emitter {
	return &Emitter{Pacer: SleepPacer{Gap: DefaultPacingGap}}
}

// Emit sends one start event, one delta per whitespace-delimited word (each
// delta prefixed with a single space except the first), then one end event.
// Concatenating all delta chunks reconstructs the full text exactly.
func (e *Emitter) Emit(ctx context.Context, sug llm.Suggestion, sink Sink) error {
	pacer := e.Pacer
	if pacer == nil {
		pacer = SleepPacer{Gap: DefaultPacingGap}
	}

	if err := sink.Send(StartEvent{
		Type:     TypeStart,
		ID:       sug.ID,
		Category: sug.Category,
		Intent:   sug.Intent,
		Language: sug.Language,
		Emoji:    EmojiFor(sug.Category),
	}); err != nil {
		return err
	}

	words := strings.Fields(sug.Text)
	fullText := strings.Join(words, " ")
	for i, word := range words {
		if i > 0 {
			pacer.Pace(ctx)
			word = " " + word
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := sink.Send(DeltaEvent{Type: TypeDelta, ID: sug.ID, TextChunk: word}); err != nil {
			return err
		}
	}

	return sink.Send(EndEvent{
		Type:     TypeEnd,
		ID:       sug.ID,
		FullText: fullText,
		Category: sug.Category,
		Intent:   sug.Intent,
	})
}
