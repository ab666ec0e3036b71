package llm

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Message is one chat-completion instruction.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Suggestion is a finalized next-move suggestion for the seller.
// Text may be empty when the model declined to suggest anything; such a
// suggestion is dropped silently and never streamed.
type Suggestion struct {
	ID       string
	Category string
	Intent   string
	Language string
	Text     string
}

// Suggestion categories the model is allowed to use.
const (
	CategoryRapport   = "rapport"
	CategoryDiscovery = "discovery"
	CategoryValue     = "value"
	CategoryObjection = "objection"
	CategoryClosing   = "closing"
)

// Defaults substituted when the model omits a field.
const (
	DefaultCategory = CategoryDiscovery
	DefaultIntent   = "explore"
	DefaultLanguage = "en"
)

var validCategories = map[string]bool{
	CategoryRapport:   true,
	CategoryDiscovery: true,
	CategoryValue:     true,
	CategoryObjection: true,
	CategoryClosing:   true,
}

// ValidCategory reports whether c belongs to the category taxonomy.
func ValidCategory(c string) bool { return validCategories[c] }

var (
	// ErrMalformedOutput means the model response could not be parsed as the
	// expected structured object. Not retried.
	ErrMalformedOutput = errors.New("malformed model output")
	// ErrCompletionTimeout means the hard completion timer fired before the
	// model responded. Not retried; any late response is discarded.
	ErrCompletionTimeout = errors.New("completion timed out")
)

// newSuggestionID builds a unique id: timestamp plus a random suffix.
func newSuggestionID() string {
	return time.Now().UTC().Format("20060102150405.000") + "-" + uuid.NewString()[:8]
}
