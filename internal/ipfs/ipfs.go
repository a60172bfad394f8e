// Package ipfs pins NFT media to IPFS via the Pinata API. Pinning is
// optional: without credentials the client reports itself disabled and
// asset creation proceeds with no media URL.
package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/algointent/intentbot/internal/httpkit"
)

// DefaultBaseURL is the production Pinata endpoint.
const DefaultBaseURL = "https://api.pinata.cloud"

// Client uploads files to Pinata and returns ipfs:// URLs.
type Client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	logger     *slog.Logger
	httpClient *http.Client
}

// ClientConfig holds Pinata settings. BaseURL is overridable for
// tests.
type ClientConfig struct {
	APIKey    string
	APISecret string
	BaseURL   string
	Logger    *slog.Logger
}

// NewClient creates a Pinata client. A client with empty credentials
// is valid but disabled.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		logger:     cfg.Logger.With("component", "ipfs"),
		httpClient: httpkit.NewClient(),
	}
}

// Enabled reports whether credentials are configured.
func (c *Client) Enabled() bool {
	return c.apiKey != "" && c.apiSecret != ""
}

// PinFile uploads data and returns its ipfs:// URL.
func (c *Client) PinFile(ctx context.Context, filename string, data []byte) (string, error) {
	if !c.Enabled() {
		return "", fmt.Errorf("ipfs pinning not configured")
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("build pin form: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("build pin form: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("build pin form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/pinning/pinFileToIPFS", &buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("pinata_api_key", c.apiKey)
	req.Header.Set("pinata_secret_api_key", c.apiSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("pin file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("pin rejected: status %d: %s", resp.StatusCode, httpkit.ReadErrorBody(resp.Body, 512))
	}

	var out struct {
		IpfsHash string `json:"IpfsHash"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode pin response: %w", err)
	}
	if out.IpfsHash == "" {
		return "", fmt.Errorf("pin response missing hash")
	}

	c.logger.Info("pinned file to ipfs", "filename", filename, "hash", out.IpfsHash)
	return "ipfs://" + out.IpfsHash, nil
}
