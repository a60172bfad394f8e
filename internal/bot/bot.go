// Package bot is the control plane core: it owns the per-user state
// machine and turns resolved intents into wallet, ledger, and chat
// actions.
package bot

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/algointent/intentbot/internal/algod"
	"github.com/algointent/intentbot/internal/conversation"
	"github.com/algointent/intentbot/internal/intent"
	"github.com/algointent/intentbot/internal/sanitize"
	"github.com/algointent/intentbot/internal/security"
	"github.com/algointent/intentbot/internal/session"
	"github.com/algointent/intentbot/internal/telegram"
)

// Resolver turns sanitized text into a structured intent. The real
// implementation is *intent.Resolver.
type Resolver interface {
	Resolve(ctx context.Context, text string) intent.Intent
}

// Ledger abstracts the algod client for building, submitting, and
// confirming transactions.
type Ledger interface {
	BuildPayment(ctx context.Context, sender, recipient string, amount float64) (*algod.Unsigned, error)
	BuildAssetCreate(ctx context.Context, sender, name, description, assetURL string, total uint64) (*algod.Unsigned, error)
	AccountInfo(ctx context.Context, address string) (*algod.AccountInfo, error)
	Submit(ctx context.Context, signed []byte) (string, error)
	WaitForConfirmation(ctx context.Context, txid string) (*algod.PendingInfo, error)
}

// Chat sends replies back to the user. The real implementation is
// *telegram.Client.
type Chat interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendPhoto(ctx context.Context, chatID int64, filename string, photo []byte, caption string) error
}

// Pinner uploads NFT metadata to IPFS. Optional; a disabled pinner is
// skipped, never an error.
type Pinner interface {
	Enabled() bool
	PinFile(ctx context.Context, filename string, data []byte) (string, error)
}

// Config holds the bot's collaborators.
type Config struct {
	Sessions *session.Store
	Policy   *session.Policy
	Resolver Resolver
	Ledger   Ledger
	Chat     Chat
	Pinner   Pinner
	Events   session.EventSink
	Logger   *slog.Logger

	MaxPasswordAttempts int
	MaxMessageLength    int
}

// Bot processes inbound chat messages. It implements
// telegram.Handler.
type Bot struct {
	sessions *session.Store
	policy   *session.Policy
	resolver Resolver
	ledger   Ledger
	chat     Chat
	pinner   Pinner
	events   session.EventSink
	logger   *slog.Logger

	conversations *conversation.Tracker
	maxAttempts   int
	maxMessageLen int
}

// New creates a bot.
func New(cfg Config) *Bot {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxAttempts := cfg.MaxPasswordAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	maxMessageLen := cfg.MaxMessageLength
	if maxMessageLen <= 0 {
		maxMessageLen = sanitize.MaxTextLength
	}
	return &Bot{
		sessions:      cfg.Sessions,
		policy:        cfg.Policy,
		resolver:      cfg.Resolver,
		ledger:        cfg.Ledger,
		chat:          cfg.Chat,
		pinner:        cfg.Pinner,
		events:        cfg.Events,
		logger:        logger.With("component", "bot"),
		conversations: conversation.NewTracker(),
		maxAttempts:   maxAttempts,
		maxMessageLen: maxMessageLen,
	}
}

// HandleMessage processes one inbound message end to end: sanitize,
// route to an in-flight flow step if one is parked, otherwise rate
// limit, resolve, and dispatch.
func (b *Bot) HandleMessage(ctx context.Context, msg *telegram.Message) {
	userID := strconv.FormatInt(msg.From.ID, 10)
	chatID := msg.Chat.ID

	text := sanitize.TextN(msg.Text, b.maxMessageLen)
	if text == "" {
		b.reply(ctx, chatID, "I couldn't read that message. Try plain text, like \"send 5 ALGO to <address>\".")
		return
	}

	// Commands reset any in-flight flow. A user stuck mid-prompt can
	// always /start their way back to idle.
	if strings.HasPrefix(text, "/start") {
		b.conversations.Reset(userID)
		b.event(userID, security.EventBotStarted, "start command")
		b.reply(ctx, chatID, welcomeMessage)
		return
	}

	conv := b.conversations.Get(userID)
	if conv.State != conversation.StateIdle {
		b.handleFlowStep(ctx, userID, chatID, conv, text)
		return
	}

	if !b.policy.CheckRateLimit(userID, session.ActionGeneral) {
		b.reply(ctx, chatID, "You're sending messages too quickly. Please wait a bit and try again.")
		return
	}

	it := b.resolver.Resolve(ctx, text)
	if it.IsUnknown() {
		b.reply(ctx, chatID, helpMessage)
		return
	}

	b.logger.Info("intent resolved", "user_id", userID, "kind", it.Kind)

	switch it.Kind {
	case intent.KindCreateWallet:
		b.handleCreateWallet(ctx, userID, chatID)
	case intent.KindConnectWallet:
		b.handleConnectWallet(ctx, userID, chatID)
	case intent.KindSendAlgo:
		b.handleSend(ctx, userID, chatID, it.Send)
	case intent.KindCreateNFT:
		b.handleCreateNFT(ctx, userID, chatID, it.NFT)
	case intent.KindBalance:
		b.handleBalance(ctx, userID, chatID)
	case intent.KindDisconnect:
		b.handleDisconnect(ctx, userID, chatID)
	default:
		b.reply(ctx, chatID, helpMessage)
	}
}

// reply sends a text response, logging failures.
func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if err := b.chat.SendMessage(ctx, chatID, text); err != nil {
		b.logger.Error("reply failed", "chat_id", chatID, "error", err)
	}
}

// event records a security event when a sink is configured.
func (b *Bot) event(userID, eventType, details string) {
	if b.events != nil {
		b.events.Event(userID, eventType, details)
	}
}

var _ telegram.Handler = (*Bot)(nil)
var _ session.EventSink = (*security.Log)(nil)
