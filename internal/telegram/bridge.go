package telegram

import (
	"context"
	"log/slog"
	"time"
)

// Handler processes one inbound text message. The bot core implements
// this; replies go back out through the client it was wired with.
type Handler interface {
	HandleMessage(ctx context.Context, msg *Message)
}

// handleTimeout bounds how long a single inbound message may be
// processed, including any node round trips.
const handleTimeout = 2 * time.Minute

// pollErrorDelay is how long the bridge backs off after a failed
// getUpdates call before polling again.
const pollErrorDelay = 5 * time.Second

// Bridge long-polls the Bot API and feeds text messages to the
// handler one at a time. Sequential dispatch keeps each user's
// conversation state free of same-user races.
type Bridge struct {
	client  *Client
	handler Handler
	logger  *slog.Logger
}

// NewBridge creates a Telegram message bridge.
func NewBridge(client *Client, handler Handler, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		client:  client,
		handler: handler,
		logger:  logger.With("component", "telegram"),
	}
}

// Start polls for updates until ctx is cancelled.
func (b *Bridge) Start(ctx context.Context) {
	b.logger.Info("telegram bridge started")

	var offset int64
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("telegram bridge shutting down")
			return
		default:
		}

		updates, err := b.client.GetUpdates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				b.logger.Info("telegram bridge shutting down")
				return
			}
			b.logger.Warn("telegram poll failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(pollErrorDelay):
			}
			continue
		}

		for i := range updates {
			upd := &updates[i]
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			b.dispatch(ctx, upd)
		}
	}
}

// dispatch hands one update to the handler if it is a text message
// from an identifiable sender.
func (b *Bridge) dispatch(ctx context.Context, upd *Update) {
	msg := upd.Message
	if msg == nil || msg.Text == "" {
		b.logger.Debug("telegram ignoring non-text update", "update_id", upd.UpdateID)
		return
	}
	if msg.From == nil || msg.From.ID == 0 {
		b.logger.Debug("telegram ignoring update with no sender", "update_id", upd.UpdateID)
		return
	}

	b.logger.Info("telegram message received",
		"user_id", msg.From.ID,
		"chat_id", msg.Chat.ID,
		"message_len", len(msg.Text),
	)

	msgCtx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()
	b.handler.HandleMessage(msgCtx, msg)
}
