package intent

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
)

// systemPrompt is the fixed instruction sent to the language model.
const systemPrompt = `Analyze Algorand-related requests and return JSON with:
{
  "intent": "send_algo|create_wallet|connect_wallet|create_nft|disconnect|balance",
  "parameters": {
    "amount": float,
    "recipient": "address",
    "name": "string",
    "supply": int,
    "description": "string"
  }
}

Examples:
User: "Hey, send 3 ALGO to K54ZTTHNDB..."
{"intent": "send_algo", "parameters": {"amount": 3, "recipient": "K54ZTTHNDB..."}}

User: "Create a new wallet"
{"intent": "create_wallet", "parameters": {}}

User: "Check my balance"
{"intent": "balance", "parameters": {}}`

// Resolver runs the ordered attempt chain over sanitized text.
type Resolver struct {
	completer Completer
	logger    *slog.Logger
}

// NewResolver creates an intent resolver. A nil completer disables the
// language-model stage; the fallback parsers still run.
func NewResolver(completer Completer, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		completer: completer,
		logger:    logger.With("component", "intent"),
	}
}

// Resolve turns sanitized text into an Intent. The language model is
// tried first; any call failure or malformed reply yields the unknown
// sentinel rather than an error, and the deterministic fallbacks take
// over. An unknown result from every stage means the message was not
// understood.
func (r *Resolver) Resolve(ctx context.Context, text string) Intent {
	resolved := r.tryModel(ctx, text)
	if !resolved.IsUnknown() {
		return resolved
	}

	if resolved = ParseNFTFallback(text); !resolved.IsUnknown() {
		r.logger.Debug("intent resolved by nft fallback")
		return resolved
	}
	if resolved = ParseSendFallback(text); !resolved.IsUnknown() {
		r.logger.Debug("intent resolved by send fallback")
		return resolved
	}
	return Unknown()
}

func (r *Resolver) tryModel(ctx context.Context, text string) Intent {
	if r.completer == nil {
		return Unknown()
	}

	reply, err := r.completer.Complete(ctx, systemPrompt, text)
	if err != nil {
		// Fail closed: no intent from this stage, no retry.
		r.logger.Warn("language model call failed", "error", err)
		return Unknown()
	}
	return extractIntent(reply)
}

// extractIntent locates the first '{' and last '}' in the reply and
// decodes the slice between them. Any shape mismatch collapses to the
// unknown sentinel — the reply has no contractual schema.
func extractIntent(reply string) Intent {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return Unknown()
	}

	var raw rawIntent
	if err := json.Unmarshal([]byte(reply[start:end+1]), &raw); err != nil {
		return Unknown()
	}
	return raw.validate()
}
