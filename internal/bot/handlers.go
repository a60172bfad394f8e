package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/algointent/intentbot/internal/algod"
	"github.com/algointent/intentbot/internal/conversation"
	"github.com/algointent/intentbot/internal/intent"
	"github.com/algointent/intentbot/internal/security"
	"github.com/algointent/intentbot/internal/session"
)

const welcomeMessage = `Welcome! I'm your Algorand wallet assistant.

Tell me what you want in plain language:
• "create a wallet"
• "connect my wallet"
• "send 5 ALGO to <address>"
• "mint an NFT called Sunset with supply 1"
• "what's my balance"
• "disconnect"`

const helpMessage = `I didn't understand that. I can help you:
• create or connect a wallet
• send ALGO, for example "send 5 ALGO to <address>"
• mint an NFT, for example "mint an NFT called Sunset"
• check your balance
• disconnect your wallet`

const noWalletMessage = "You don't have a wallet connected. Say \"create a wallet\" or \"connect my wallet\" first."

// handleCreateWallet starts the wallet-creation flow by asking for a
// password.
func (b *Bot) handleCreateWallet(ctx context.Context, userID string, chatID int64) {
	if b.policy.ValidateSession(userID) {
		sess, _ := b.sessions.Get(userID)
		b.reply(ctx, chatID, fmt.Sprintf("You already have a wallet connected:\n`%s`\n\nDisconnect it first if you want a new one.", sess.Address))
		return
	}
	b.conversations.Update(userID, func(c *conversation.Context) {
		*c = conversation.Context{State: conversation.StateCreatingWallet}
	})
	b.reply(ctx, chatID, "Let's create your wallet. Choose a password: at least 8 characters, with both letters and numbers.")
}

// handleConnectWallet starts the connect flow by asking for the
// recovery phrase.
func (b *Bot) handleConnectWallet(ctx context.Context, userID string, chatID int64) {
	if b.policy.ValidateSession(userID) {
		sess, _ := b.sessions.Get(userID)
		b.reply(ctx, chatID, fmt.Sprintf("You already have a wallet connected:\n`%s`\n\nDisconnect it first to connect a different one.", sess.Address))
		return
	}
	b.conversations.Update(userID, func(c *conversation.Context) {
		*c = conversation.Context{State: conversation.StateConnectingWallet}
	})
	b.reply(ctx, chatID, "Send me your 25-word recovery phrase. I recommend deleting that message afterwards.")
}

// handleSend builds a payment and parks it for password approval.
func (b *Bot) handleSend(ctx context.Context, userID string, chatID int64, params *intent.SendParams) {
	if !b.policy.ValidateSession(userID) {
		b.reply(ctx, chatID, noWalletMessage)
		return
	}
	if !b.policy.CheckRateLimit(userID, session.ActionTransaction) {
		b.reply(ctx, chatID, "You've hit the hourly transaction limit. Please try again later.")
		return
	}

	sess, _ := b.sessions.Get(userID)
	unsigned, err := b.ledger.BuildPayment(ctx, sess.Address, params.Recipient, params.Amount)
	if err != nil {
		if errors.Is(err, algod.ErrInsufficientFunds) {
			b.reply(ctx, chatID, fmt.Sprintf("Not enough funds: %v.", err))
			return
		}
		b.logger.Error("build payment failed", "user_id", userID, "error", err)
		b.event(userID, security.EventTransactionFailed, "build: "+err.Error())
		b.reply(ctx, chatID, "I couldn't prepare that transaction. Please try again.")
		return
	}

	b.conversations.Update(userID, func(c *conversation.Context) {
		*c = conversation.Context{
			State:      conversation.StateTransactionPassword,
			PendingTxn: unsigned,
			TxKind:     conversation.TxKindSend,
		}
	})
	b.event(userID, security.EventTransactionPending,
		fmt.Sprintf("send %.6f ALGO to %s", params.Amount, params.Recipient))

	b.reply(ctx, chatID, fmt.Sprintf(
		"Please confirm this transaction:\n\n"+
			"*Send:* %.6f ALGO\n*To:* `%s`\n*Fee:* %.6f ALGO\n\n"+
			"Enter your password to approve, or send /start to cancel.",
		unsigned.Summary.Amount, unsigned.Summary.Recipient, unsigned.Summary.FeeAlgo))
}

// handleCreateNFT builds an asset-creation transaction and parks it
// for password approval. Metadata pinning is best effort.
func (b *Bot) handleCreateNFT(ctx context.Context, userID string, chatID int64, params *intent.NFTParams) {
	if !b.policy.ValidateSession(userID) {
		b.reply(ctx, chatID, noWalletMessage)
		return
	}
	if !b.policy.CheckRateLimit(userID, session.ActionTransaction) {
		b.reply(ctx, chatID, "You've hit the hourly transaction limit. Please try again later.")
		return
	}

	assetURL := b.pinMetadata(ctx, userID, params)

	sess, _ := b.sessions.Get(userID)
	unsigned, err := b.ledger.BuildAssetCreate(ctx, sess.Address, params.Name, params.Description, assetURL, params.Supply)
	if err != nil {
		if errors.Is(err, algod.ErrInsufficientFunds) {
			b.reply(ctx, chatID, fmt.Sprintf("Not enough funds: %v.", err))
			return
		}
		b.logger.Error("build asset create failed", "user_id", userID, "error", err)
		b.event(userID, security.EventAssetCreationFailed, "build: "+err.Error())
		b.reply(ctx, chatID, "I couldn't prepare that NFT. Please try again.")
		return
	}

	b.conversations.Update(userID, func(c *conversation.Context) {
		*c = conversation.Context{
			State:      conversation.StateTransactionPassword,
			PendingTxn: unsigned,
			TxKind:     conversation.TxKindNFT,
		}
	})
	b.event(userID, security.EventTransactionPending,
		fmt.Sprintf("mint %q supply %d", params.Name, params.Supply))

	b.reply(ctx, chatID, fmt.Sprintf(
		"Please confirm this NFT:\n\n"+
			"*Name:* %s\n*Unit:* %s\n*Supply:* %d\n*Fee:* %.6f ALGO\n\n"+
			"Enter your password to approve, or send /start to cancel.",
		unsigned.Summary.AssetName, unsigned.Summary.UnitName, unsigned.Summary.Supply, unsigned.Summary.FeeAlgo))
}

// pinMetadata uploads a small metadata document for the asset and
// returns its ipfs:// URL, or "" when pinning is unavailable or fails.
func (b *Bot) pinMetadata(ctx context.Context, userID string, params *intent.NFTParams) string {
	if b.pinner == nil || !b.pinner.Enabled() {
		return ""
	}
	doc := fmt.Sprintf("{\"name\":%q,\"description\":%q}", params.Name, params.Description)
	url, err := b.pinner.PinFile(ctx, "metadata.json", []byte(doc))
	if err != nil {
		b.logger.Warn("metadata pin failed, continuing without media url",
			"user_id", userID, "error", err)
		return ""
	}
	return url
}

// handleBalance reports the account balance for the active session.
func (b *Bot) handleBalance(ctx context.Context, userID string, chatID int64) {
	if !b.policy.ValidateSession(userID) {
		b.reply(ctx, chatID, noWalletMessage)
		return
	}
	sess, _ := b.sessions.Get(userID)
	info, err := b.ledger.AccountInfo(ctx, sess.Address)
	if err != nil {
		b.logger.Error("balance lookup failed", "user_id", userID, "error", err)
		b.reply(ctx, chatID, "I couldn't reach the network to check your balance. Please try again.")
		return
	}
	b.event(userID, security.EventBalanceChecked, sess.Address)
	b.reply(ctx, chatID, fmt.Sprintf("Balance for `%s`:\n*%.6f ALGO*", sess.Address, algod.MicroToAlgo(info.Amount)))
}

// handleDisconnect removes the session and any in-flight flow state.
func (b *Bot) handleDisconnect(ctx context.Context, userID string, chatID int64) {
	sess, ok := b.sessions.Get(userID)
	if !ok {
		b.reply(ctx, chatID, "No wallet is connected.")
		return
	}
	if err := b.sessions.Delete(userID); err != nil {
		b.logger.Error("session delete failed", "user_id", userID, "error", err)
		b.reply(ctx, chatID, "Something went wrong disconnecting. Please try again.")
		return
	}
	b.conversations.Reset(userID)
	b.event(userID, security.EventWalletDisconnected, sess.Address)
	b.reply(ctx, chatID, "Wallet disconnected. Your keys stay encrypted with your password; connect again any time with your recovery phrase.")
}
