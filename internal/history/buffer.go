package history

import "sync"

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one retained utterance. Immutable once appended.
type Turn struct {
	Role Role
	Text string
}

// DefaultMaxTurns bounds the buffer to this many user/assistant pairs.
const DefaultMaxTurns = 8

// Buffer is a bounded sliding window of conversation turns for one session.
// It holds at most 2*maxTurns entries and evicts the oldest pair first, so the
// user/assistant pairing is never split. Not persisted; dies with the session.
type Buffer struct {
	mu       sync.Mutex
	maxTurns int
	turns    []Turn
}

// NewBuffer creates a buffer capped at 2*maxTurns entries.
// A non-positive maxTurns falls back to DefaultMaxTurns.
func NewBuffer(maxTurns int) *Buffer {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &Buffer{maxTurns: maxTurns}
}

// Append adds one turn and enforces the cap.
func (b *Buffer) Append(t Turn) {
	b.mu.Lock()
	b.turns = append(b.turns, t)
	b.trim()
	b.mu.Unlock()
}

// AppendExchange adds a user turn and its paired assistant turn atomically.
func (b *Buffer) AppendExchange(user, assistant string) {
	b.mu.Lock()
	b.turns = append(b.turns,
		Turn{Role: RoleUser, Text: user},
		Turn{Role: RoleAssistant, Text: assistant},
	)
	b.trim()
	b.mu.Unlock()
}

// trim drops whole pairs from the front until the cap holds.
// Caller must hold mu.
func (b *Buffer) trim() {
	for len(b.turns) > 2*b.maxTurns {
		b.turns = b.turns[2:]
	}
}

// Snapshot returns a copy of the retained turns, oldest first.
func (b *Buffer) Snapshot() []Turn {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Turn, len(b.turns))
	copy(out, b.turns)
	return out
}

// Len reports the current number of retained turns.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.turns)
}
