package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/algointent/intentbot/internal/algod"
	"github.com/algointent/intentbot/internal/conversation"
	"github.com/algointent/intentbot/internal/security"
	"github.com/algointent/intentbot/internal/session"
	"github.com/algointent/intentbot/internal/wallet"
)

// qrSize is the pixel size of generated address QR codes.
const qrSize = 256

// handleFlowStep routes a message to the parked flow step. Flow steps
// bypass the general rate limit so a user mid-prompt is never locked
// out of answering.
func (b *Bot) handleFlowStep(ctx context.Context, userID string, chatID int64, conv conversation.Context, text string) {
	switch conv.State {
	case conversation.StateCreatingWallet:
		b.stepCreatePassword(ctx, userID, chatID, conv, text)
	case conversation.StateConnectingWallet:
		b.stepMnemonic(ctx, userID, chatID, conv, text)
	case conversation.StateConnectingPassword:
		b.stepConnectPassword(ctx, userID, chatID, conv, text)
	case conversation.StateTransactionPassword:
		b.stepTransactionPassword(ctx, userID, chatID, conv, text)
	default:
		// Unrecognized state is a bug; recover by resetting.
		b.logger.Error("unknown conversation state", "user_id", userID, "state", conv.State)
		b.conversations.Reset(userID)
		b.reply(ctx, chatID, "Something went wrong. Let's start over; what would you like to do?")
	}
}

// strike burns one failed attempt for the parked flow. Returns true
// when the strike limit was hit and the flow was reset.
func (b *Bot) strike(ctx context.Context, userID string, chatID int64, conv conversation.Context, message string) bool {
	attempts := conv.FailedAttempts + 1
	if attempts >= b.maxAttempts {
		b.event(userID, security.EventMaxAttemptsExceeded,
			fmt.Sprintf("%d failed attempts in state %s", attempts, conv.State))
		b.conversations.Reset(userID)
		b.reply(ctx, chatID, "Too many failed attempts. Let's start over; what would you like to do?")
		return true
	}
	b.conversations.Update(userID, func(c *conversation.Context) {
		c.FailedAttempts = attempts
	})
	b.reply(ctx, chatID, message)
	return false
}

// stepCreatePassword finishes wallet creation with the chosen
// password.
func (b *Bot) stepCreatePassword(ctx context.Context, userID string, chatID int64, conv conversation.Context, password string) {
	if err := wallet.CheckPassword(password); err != nil {
		b.strike(ctx, userID, chatID, conv,
			"That password is too weak: it needs at least 8 characters with both letters and numbers. Try another one.")
		return
	}

	w, err := wallet.Create(password)
	if err != nil {
		b.logger.Error("wallet creation failed", "user_id", userID, "error", err)
		b.event(userID, security.EventWalletCreationFailed, err.Error())
		b.conversations.Reset(userID)
		b.reply(ctx, chatID, "Wallet creation failed. Please try again.")
		return
	}

	now := time.Now().UTC()
	if err := b.sessions.Put(userID, session.Session{
		Address:           w.Address,
		EncryptedMnemonic: w.EncryptedMnemonic,
		CreatedAt:         now,
		LastActivity:      now,
	}); err != nil {
		b.logger.Error("session save failed", "user_id", userID, "error", err)
		b.conversations.Reset(userID)
		b.reply(ctx, chatID, "Wallet creation failed. Please try again.")
		return
	}

	b.conversations.Reset(userID)
	b.event(userID, security.EventWalletCreated, w.Address)

	b.reply(ctx, chatID, fmt.Sprintf(
		"Your wallet is ready.\n\n*Address:*\n`%s`\n\n*Recovery phrase:*\n`%s`\n\n"+
			"Write the phrase down somewhere safe and delete this message. "+
			"Anyone with the phrase controls your funds.",
		w.Address, w.Mnemonic))
	b.sendAddressQR(ctx, chatID, w.Address)
}

// stepMnemonic accepts the recovery phrase and moves on to the
// password prompt. The phrase is held in memory only until the connect
// flow finishes.
func (b *Bot) stepMnemonic(ctx context.Context, userID string, chatID int64, conv conversation.Context, text string) {
	words := strings.Fields(strings.ToLower(text))
	if len(words) != wallet.MnemonicWords {
		b.strike(ctx, userID, chatID, conv, fmt.Sprintf(
			"A recovery phrase has exactly %d words; I counted %d. Please send it again, or /start to cancel.",
			wallet.MnemonicWords, len(words)))
		return
	}
	b.conversations.Update(userID, func(c *conversation.Context) {
		c.State = conversation.StateConnectingPassword
		c.Mnemonic = strings.Join(words, " ")
		c.FailedAttempts = 0
	})
	b.reply(ctx, chatID, "Got it. Now choose a password to encrypt the wallet on this bot: at least 8 characters, letters and numbers.")
}

// stepConnectPassword verifies the phrase and seals it under the new
// password.
func (b *Bot) stepConnectPassword(ctx context.Context, userID string, chatID int64, conv conversation.Context, password string) {
	if err := wallet.CheckPassword(password); err != nil {
		b.strike(ctx, userID, chatID, conv,
			"That password is too weak: it needs at least 8 characters with both letters and numbers. Try another one.")
		return
	}

	w, err := wallet.Connect(conv.Mnemonic, password)
	if err != nil {
		b.event(userID, security.EventWalletConnectFailed, err.Error())
		b.conversations.Reset(userID)
		if errors.Is(err, wallet.ErrInvalidMnemonic) {
			b.reply(ctx, chatID, "That recovery phrase doesn't check out. Double-check the words and their order, then say \"connect my wallet\" to try again.")
			return
		}
		b.logger.Error("wallet connect failed", "user_id", userID, "error", err)
		b.reply(ctx, chatID, "Connecting the wallet failed. Please try again.")
		return
	}

	now := time.Now().UTC()
	if err := b.sessions.Put(userID, session.Session{
		Address:           w.Address,
		EncryptedMnemonic: w.EncryptedMnemonic,
		CreatedAt:         now,
		LastActivity:      now,
	}); err != nil {
		b.logger.Error("session save failed", "user_id", userID, "error", err)
		b.conversations.Reset(userID)
		b.reply(ctx, chatID, "Connecting the wallet failed. Please try again.")
		return
	}

	b.conversations.Reset(userID)
	b.event(userID, security.EventWalletConnected, w.Address)

	b.reply(ctx, chatID, fmt.Sprintf("Wallet connected.\n\n*Address:*\n`%s`", w.Address))
	b.sendAddressQR(ctx, chatID, w.Address)
}

// stepTransactionPassword signs and submits the parked transaction.
// Wrong passwords burn attempts; exhausting them cancels the
// transaction.
func (b *Bot) stepTransactionPassword(ctx context.Context, userID string, chatID int64, conv conversation.Context, password string) {
	pending := conv.PendingTxn
	if pending == nil {
		b.conversations.Reset(userID)
		b.reply(ctx, chatID, "There's no transaction waiting for approval.")
		return
	}

	sess, ok := b.sessions.Get(userID)
	if !ok {
		b.conversations.Reset(userID)
		b.reply(ctx, chatID, "Your session has ended. Connect your wallet again to continue.")
		return
	}

	encoded, err := pending.Txn.Encode()
	if err != nil {
		b.logger.Error("transaction encode failed", "user_id", userID, "error", err)
		b.conversations.Reset(userID)
		b.reply(ctx, chatID, "Something went wrong with that transaction. Please start it again.")
		return
	}

	sig, err := wallet.Sign(sess.EncryptedMnemonic, password, encoded)
	if err != nil {
		if !errors.Is(err, wallet.ErrWrongPassword) {
			b.logger.Error("signing failed", "user_id", userID, "error", err)
			b.event(userID, security.EventSignFailed, err.Error())
			b.conversations.Reset(userID)
			b.reply(ctx, chatID, "Signing failed. The transaction was cancelled.")
			return
		}

		attempts := conv.FailedAttempts + 1
		if attempts >= b.maxAttempts {
			b.event(userID, security.EventMaxAttemptsExceeded,
				fmt.Sprintf("%d failed password attempts", attempts))
			b.conversations.Reset(userID)
			b.reply(ctx, chatID, "Too many wrong passwords. The transaction was cancelled.")
			return
		}
		b.conversations.Update(userID, func(c *conversation.Context) {
			c.FailedAttempts = attempts
		})
		b.reply(ctx, chatID, fmt.Sprintf("Wrong password. %d attempt(s) remaining.", b.maxAttempts-attempts))
		return
	}

	kind := conv.TxKind
	b.conversations.Reset(userID)

	signed, err := algod.EncodeSigned(pending.Txn, sig)
	if err != nil {
		b.logger.Error("signed encode failed", "user_id", userID, "error", err)
		b.reply(ctx, chatID, "Something went wrong with that transaction. Please start it again.")
		return
	}

	txid, err := b.ledger.Submit(ctx, signed)
	if err != nil {
		b.logger.Error("submit failed", "user_id", userID, "error", err)
		if kind == conversation.TxKindNFT {
			b.event(userID, security.EventAssetCreationFailed, err.Error())
		} else {
			b.event(userID, security.EventTransactionFailed, err.Error())
		}
		b.reply(ctx, chatID, "The network rejected the transaction. Nothing was sent; you can try again.")
		return
	}

	b.event(userID, security.EventTransactionSigned, txid)

	if kind == conversation.TxKindNFT {
		b.finishAssetCreation(ctx, userID, chatID, txid)
		return
	}

	b.reply(ctx, chatID, fmt.Sprintf(
		"Transaction sent.\n\n*Amount:* %.6f ALGO\n*To:* `%s`\n*Transaction ID:*\n`%s`",
		pending.Summary.Amount, pending.Summary.Recipient, txid))
}

// finishAssetCreation waits for confirmation so the reply can include
// the new asset id.
func (b *Bot) finishAssetCreation(ctx context.Context, userID string, chatID int64, txid string) {
	info, err := b.ledger.WaitForConfirmation(ctx, txid)
	if err != nil {
		b.logger.Error("asset confirmation failed", "user_id", userID, "txid", txid, "error", err)
		b.event(userID, security.EventAssetCreationFailed, err.Error())
		b.reply(ctx, chatID, fmt.Sprintf(
			"The mint was submitted but I couldn't confirm it yet.\n*Transaction ID:*\n`%s`", txid))
		return
	}
	b.event(userID, security.EventAssetCreated, fmt.Sprintf("asset %d tx %s", info.AssetIndex, txid))
	b.reply(ctx, chatID, fmt.Sprintf(
		"NFT minted.\n\n*Asset ID:* %d\n*Transaction ID:*\n`%s`", info.AssetIndex, txid))
}

// sendAddressQR sends the address as a scannable QR code. Best effort;
// the text reply already carries the address.
func (b *Bot) sendAddressQR(ctx context.Context, chatID int64, address string) {
	png, err := qrcode.Encode(address, qrcode.Medium, qrSize)
	if err != nil {
		b.logger.Warn("qr encode failed", "error", err)
		return
	}
	if err := b.chat.SendPhoto(ctx, chatID, "address.png", png, "Scan to get your address"); err != nil {
		b.logger.Warn("qr send failed", "error", err)
	}
}
