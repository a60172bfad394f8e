package intent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/algointent/intentbot/internal/httpkit"
)

// completionTimeout bounds a single language-model call. On timeout the
// pipeline falls through to the deterministic parsers; it never retries.
const completionTimeout = 15 * time.Second

// Completer is the language-understanding collaborator: it takes a fixed
// system instruction and user text and returns free text expected to
// contain one JSON value. There is no guaranteed schema.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// ChatClient calls an OpenAI-compatible chat completions endpoint
// (Perplexity by default).
type ChatClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewChatClient creates a language-model client.
func NewChatClient(baseURL, apiKey, model string, logger *slog.Logger) *ChatClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		logger:  logger.With("component", "intent-model"),
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(completionTimeout),
		),
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends a single-turn chat completion request and returns the
// raw reply text.
func (c *ChatClient) Complete(ctx context.Context, system, user string) (string, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: 0.1,
		MaxTokens:   200,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error %d: %s", resp.StatusCode, httpkit.ReadErrorBody(resp.Body, 512))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("empty choices in response")
	}
	return chatResp.Choices[0].Message.Content, nil
}
