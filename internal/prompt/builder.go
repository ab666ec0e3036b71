package prompt

import (
	"fmt"
	"strings"

	"github.com/Mikba883/salesgenius-backend-sub000/internal/history"
	"github.com/Mikba883/salesgenius-backend-sub000/internal/llm"
)

// maxPromptTurns limits how much session history is rendered into a prompt.
const maxPromptTurns = 6

// systemInstructions is the fixed instruction block. Dynamic context never
// goes here.
const systemInstructions = `You are a real-time sales coach listening to a live call. The seller sees your suggestions on screen while the client is speaking.

Rules:
- Detect the language the client is speaking and answer in that language.
- Respond with a single JSON object: {"category": string, "suggestion": string, "intent": string, "language": string}. No prose outside the JSON.
- Never invent product facts, prices, or capabilities. If you lack the facts, suggest a question instead.
- category must be one of: rapport, discovery, value, objection, closing.
- intent describes the client's current intent and must be one of: explore, express_need, show_interest, raise_objection, decide.
- suggestion is one concrete next move for the seller, 35 to 40 words at most, phrased as advice.`

// Build renders the ordered instruction sequence for one transcript fragment.
// Pure rendering: no validation, no IO, no model call. The fragment is assumed
// non-empty by the caller. hint, when set, nudges the model toward a category.
func Build(fragment string, confidence float64, hist []history.Turn, hint string) []llm.Message {
	var b strings.Builder

	b.WriteString("Conversation so far:\n")
	rendered := hist
	if len(rendered) > maxPromptTurns {
		rendered = rendered[len(rendered)-maxPromptTurns:]
	}
	if len(rendered) == 0 {
		b.WriteString("(call just started)\n")
	}
	for _, t := range rendered {
		label := "[CLIENT]"
		if t.Role == history.RoleAssistant {
			label = "[SELLER]"
		}
		b.WriteString(label)
		b.WriteString(" ")
		b.WriteString(t.Text)
		b.WriteString("\n")
	}

	b.WriteString("\nThe client just said: ")
	b.WriteString(fragment)
	fmt.Fprintf(&b, "\nTranscription confidence: %.2f\n", confidence)
	if hint != "" {
		fmt.Fprintf(&b, "Lean toward the %s category if it fits.\n", hint)
	}
	b.WriteString("Reply with the JSON object only.")

	return []llm.Message{
		{Role: "system", Content: systemInstructions},
		{Role: "user", Content: b.String()},
	}
}
