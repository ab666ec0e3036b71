package llm

// QualityPreset is a named generation tier. Presets are fixed process-wide
// configuration; they are selected per request and never mutated.
type QualityPreset struct {
	Name             string
	ModelID          string
	Temperature      float64
	MaxTokens        int
	PresencePenalty  float64
	FrequencyPenalty float64
}

var presets = map[string]QualityPreset{
	"fast": {
		Name:             "fast",
		ModelID:          "llama-3.1-8b",
		Temperature:      0.5,
		MaxTokens:        120,
		PresencePenalty:  0.2,
		FrequencyPenalty: 0.2,
	},
	"balanced": {
		Name:             "balanced",
		ModelID:          "llama-3.3-70b",
		Temperature:      0.7,
		MaxTokens:        160,
		PresencePenalty:  0.3,
		FrequencyPenalty: 0.3,
	},
	"premium": {
		Name:             "premium",
		ModelID:          "gpt-oss-120b",
		Temperature:      0.8,
		MaxTokens:        220,
		PresencePenalty:  0.4,
		FrequencyPenalty: 0.4,
	},
}

// PresetByName returns the named preset, falling back to "balanced" for
// unknown names.
func PresetByName(name string) QualityPreset {
	if p, ok := presets[name]; ok {
		return p
	}
	return presets["balanced"]
}
