package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/algointent/intentbot/internal/httpkit"
)

// DefaultBaseURL is the production Bot API endpoint.
const DefaultBaseURL = "https://api.telegram.org"

// DefaultPollTimeout is the long-poll timeout passed to getUpdates.
const DefaultPollTimeout = 30 * time.Second

// pollGrace is the headroom the poll client allows past the requested
// long-poll window before treating the connection as dead.
const pollGrace = 15 * time.Second

// ClientConfig holds Bot API client settings. BaseURL is overridable
// for tests.
type ClientConfig struct {
	Token       string
	BaseURL     string
	PollTimeout time.Duration
	Logger      *slog.Logger
}

// Client is a minimal Telegram Bot API client covering what the bot
// actually sends: text replies and QR code photos.
type Client struct {
	token       string
	baseURL     string
	pollTimeout time.Duration
	logger      *slog.Logger
	httpClient  *http.Client
	pollClient  *http.Client
}

// NewClient creates a Bot API client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultPollTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		token:       cfg.Token,
		baseURL:     cfg.BaseURL,
		pollTimeout: cfg.PollTimeout,
		logger:      cfg.Logger.With("component", "telegram"),
		httpClient:  httpkit.NewClient(),
		// The poll client needs headroom beyond the long-poll window at
		// both levels: the overall client timeout and the transport's
		// response-header timeout, since Telegram holds a quiet poll
		// open for the full window before writing any headers.
		pollClient: httpkit.NewClient(
			httpkit.WithTimeout(cfg.PollTimeout+pollGrace),
			httpkit.WithResponseHeaderTimeout(cfg.PollTimeout+pollGrace),
		),
	}
}

// apiResponse is the Bot API envelope around every method result.
type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description"`
}

// GetUpdates long-polls for new updates starting at offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64) ([]Update, error) {
	body, err := json.Marshal(map[string]any{
		"offset":          offset,
		"timeout":         int(c.pollTimeout.Seconds()),
		"allowed_updates": []string{"message"},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal getUpdates: %w", err)
	}

	raw, err := c.call(ctx, c.pollClient, "getUpdates", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var updates []Update
	if err := json.Unmarshal(raw, &updates); err != nil {
		return nil, fmt.Errorf("decode updates: %w", err)
	}
	return updates, nil
}

// SendMessage sends a Markdown-formatted text reply.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	body, err := json.Marshal(map[string]any{
		"chat_id":    chatID,
		"text":       text,
		"parse_mode": "Markdown",
	})
	if err != nil {
		return fmt.Errorf("marshal sendMessage: %w", err)
	}
	if _, err := c.call(ctx, c.httpClient, "sendMessage", "application/json", bytes.NewReader(body)); err != nil {
		return fmt.Errorf("sendMessage: %w", err)
	}
	return nil
}

// SendPhoto uploads a photo with an optional caption.
func (c *Client) SendPhoto(ctx context.Context, chatID int64, filename string, photo []byte, caption string) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("chat_id", strconv.FormatInt(chatID, 10)); err != nil {
		return fmt.Errorf("build sendPhoto form: %w", err)
	}
	if caption != "" {
		if err := w.WriteField("caption", caption); err != nil {
			return fmt.Errorf("build sendPhoto form: %w", err)
		}
	}
	part, err := w.CreateFormFile("photo", filename)
	if err != nil {
		return fmt.Errorf("build sendPhoto form: %w", err)
	}
	if _, err := part.Write(photo); err != nil {
		return fmt.Errorf("build sendPhoto form: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("build sendPhoto form: %w", err)
	}

	if _, err := c.call(ctx, c.httpClient, "sendPhoto", w.FormDataContentType(), &buf); err != nil {
		return fmt.Errorf("sendPhoto: %w", err)
	}
	return nil
}

// call posts a Bot API method and unwraps the response envelope.
func (c *Client) call(ctx context.Context, client *http.Client, method, contentType string, body io.Reader) (json.RawMessage, error) {
	url := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, "POST", url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	var env apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%s: decode response (status %d): %w", method, resp.StatusCode, err)
	}
	if !env.OK {
		return nil, fmt.Errorf("%s: api error: %s", method, env.Description)
	}
	return env.Result, nil
}
