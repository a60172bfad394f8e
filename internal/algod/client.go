// Package algod is the ledger collaborator: a REST client for an
// Algorand-style node plus the unsigned-transaction builders the
// confirmation protocol hands out.
package algod

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/algointent/intentbot/internal/httpkit"
)

// tokenHeader carries the node API token.
const tokenHeader = "X-Algo-API-Token"

// confirmationPollInterval paces WaitForConfirmation. The overall wait
// is bounded by the caller's context.
const confirmationPollInterval = 2 * time.Second

// Client talks to a single algod node.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates an algod client.
func NewClient(baseURL, token string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    baseURL,
		token:      token,
		logger:     logger.With("component", "algod"),
		httpClient: httpkit.NewClient(),
	}
}

// SuggestedParams are the node's current transaction parameters.
type SuggestedParams struct {
	Fee         uint64 `json:"fee"`
	MinFee      uint64 `json:"min-fee"`
	GenesisID   string `json:"genesis-id"`
	GenesisHash string `json:"genesis-hash"`
	LastRound   uint64 `json:"last-round"`
}

// AccountInfo is the subset of account state the bot needs.
type AccountInfo struct {
	Address string `json:"address"`
	// Amount is the balance in microALGO.
	Amount uint64 `json:"amount"`
}

// PendingInfo describes a submitted transaction awaiting confirmation.
type PendingInfo struct {
	ConfirmedRound uint64 `json:"confirmed-round"`
	AssetIndex     uint64 `json:"asset-index"`
	PoolError      string `json:"pool-error"`
}

// SuggestedParams fetches the node's current transaction parameters.
func (c *Client) SuggestedParams(ctx context.Context) (*SuggestedParams, error) {
	var params SuggestedParams
	if err := c.get(ctx, "/v2/transactions/params", &params); err != nil {
		return nil, fmt.Errorf("suggested params: %w", err)
	}
	return &params, nil
}

// AccountInfo fetches balance state for an address.
func (c *Client) AccountInfo(ctx context.Context, address string) (*AccountInfo, error) {
	var info AccountInfo
	if err := c.get(ctx, "/v2/accounts/"+url.PathEscape(address), &info); err != nil {
		return nil, fmt.Errorf("account info: %w", err)
	}
	return &info, nil
}

// Submit posts a signed transaction and returns the transaction id.
func (c *Client) Submit(ctx context.Context, signed []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/v2/transactions", bytes.NewReader(signed))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-binary")
	req.Header.Set(tokenHeader, c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit transaction: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("submit rejected: status %d: %s", resp.StatusCode, httpkit.ReadErrorBody(resp.Body, 512))
	}

	var out struct {
		TxID string `json:"txId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode submit response: %w", err)
	}
	if out.TxID == "" {
		return "", fmt.Errorf("submit response missing txId")
	}
	return out.TxID, nil
}

// PendingInfo fetches the pending status of a submitted transaction.
func (c *Client) PendingInfo(ctx context.Context, txid string) (*PendingInfo, error) {
	var info PendingInfo
	if err := c.get(ctx, "/v2/transactions/pending/"+url.PathEscape(txid), &info); err != nil {
		return nil, fmt.Errorf("pending info: %w", err)
	}
	return &info, nil
}

// WaitForConfirmation polls until the transaction is confirmed or ctx
// expires. A pool error fails immediately; the caller decides whether
// anything is retried (nothing in this bot retries automatically).
func (c *Client) WaitForConfirmation(ctx context.Context, txid string) (*PendingInfo, error) {
	ticker := time.NewTicker(confirmationPollInterval)
	defer ticker.Stop()

	for {
		info, err := c.PendingInfo(ctx, txid)
		if err != nil {
			return nil, err
		}
		if info.PoolError != "" {
			return nil, fmt.Errorf("transaction rejected by pool: %s", info.PoolError)
		}
		if info.ConfirmedRound > 0 {
			return info, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set(tokenHeader, c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d: %s", resp.StatusCode, httpkit.ReadErrorBody(resp.Body, 512))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
