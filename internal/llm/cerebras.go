package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// CerebrasClient calls the Cerebras OpenAI-compatible chat-completions API.
type CerebrasClient struct {
	HTTPClient *http.Client
	APIKey     string
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatCompletionsRequest struct {
	Model            string         `json:"model"`
	Messages         []Message      `json:"messages"`
	Temperature      float64        `json:"temperature"`
	MaxTokens        int            `json:"max_tokens"`
	PresencePenalty  float64        `json:"presence_penalty"`
	FrequencyPenalty float64        `json:"frequency_penalty"`
	ResponseFormat   responseFormat `json:"response_format"`
}

type chatChoice struct {
	Index        int     `json:"index"`
	FinishReason string  `json:"finish_reason"`
	Message      Message `json:"message"`
}

type chatCompletionsResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
}

// NewCerebrasClient constructs a client. The HTTP client timeout is a network
// safety net; the pipeline's hard bound lives in the Invoker.
func NewCerebrasClient(apiKey string) *CerebrasClient {
	return &CerebrasClient{
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		APIKey:     apiKey,
	}
}

// Complete issues exactly one structured completion request and returns the
// raw text of the first choice.
func (c *CerebrasClient) Complete(ctx context.Context, messages []Message, preset QualityPreset) (string, error) {
	if c.APIKey == "" {
		return "", fmt.Errorf("cerebras api key missing")
	}
	endpoint := "https://api.cerebras.ai/v1/chat/completions"

	reqBody, _ := json.Marshal(chatCompletionsRequest{
		Model:            preset.ModelID,
		Messages:         messages,
		Temperature:      preset.Temperature,
		MaxTokens:        preset.MaxTokens,
		PresencePenalty:  preset.PresencePenalty,
		FrequencyPenalty: preset.FrequencyPenalty,
		ResponseFormat:   responseFormat{Type: "json_object"},
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("cerebras error: status=%d body=%s", resp.StatusCode, string(b))
	}
	var cr chatCompletionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return "", err
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("cerebras: empty choices")
	}
	return strings.TrimSpace(cr.Choices[0].Message.Content), nil
}
