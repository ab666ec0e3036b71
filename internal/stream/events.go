package stream

// Wire message types. Shapes must stay byte-for-byte compatible with deployed
// clients.
const (
	TypeStart = "suggestion.start"
	TypeDelta = "suggestion.delta"
	TypeEnd   = "suggestion.end"
	TypeError = "error"
)

// StartEvent opens a suggestion stream.
type StartEvent struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	Category string `json:"category"`
	Intent   string `json:"intent"`
	Language string `json:"language"`
	Emoji    string `json:"emoji"`
}

// DeltaEvent carries exactly one word of suggestion text.
type DeltaEvent struct {
	Type      string `json:"type"`
	ID        string `json:"id"`
	TextChunk string `json:"textChunk"`
}

// EndEvent closes a suggestion stream with the full text.
type EndEvent struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	FullText string `json:"fullText"`
	Category string `json:"category"`
	Intent   string `json:"intent"`
}

// ErrorEvent reports one failed cycle. Reason is "timeout" for completion
// timeouts and omitted or "unknown" otherwise.
type ErrorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

// Reasons carried by ErrorEvent.
const (
	ReasonTimeout = "timeout"
	ReasonUnknown = "unknown"
)

var categoryEmoji = map[string]string{
	"rapport":   "🤝",
	"discovery": "🔍",
	"value":     "💎",
	"objection": "🛡️",
	"closing":   "✅",
}

const defaultEmoji = "💡"

// EmojiFor returns the display glyph for a category, with a default for
// unrecognized categories.
func EmojiFor(category string) string {
	if e, ok := categoryEmoji[category]; ok {
		return e
	}
	return defaultEmoji
}
