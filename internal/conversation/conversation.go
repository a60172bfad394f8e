// Package conversation tracks per-user multi-step flow state. The
// tracker is in-memory only: restarting the bot drops everyone back to
// idle, which is the safe direction for anything password-related.
package conversation

import (
	"sync"

	"github.com/algointent/intentbot/internal/algod"
)

// State names the step a user is parked on. Idle means free-form
// intent handling; every other state routes the next message to a
// dedicated handler.
type State string

const (
	StateIdle                State = ""
	StateCreatingWallet      State = "creating_wallet"
	StateConnectingWallet    State = "connecting_wallet"
	StateConnectingPassword  State = "connecting_password"
	StateTransactionPassword State = "transaction_password"
)

// TxKind distinguishes what a pending transaction will do once signed.
type TxKind string

const (
	TxKindSend TxKind = "send"
	TxKindNFT  TxKind = "nft"
)

// Context is one user's in-flight flow state. Mnemonic is only
// populated between the mnemonic prompt and the password prompt of a
// connect flow, and is wiped on every reset.
type Context struct {
	State          State
	FailedAttempts int
	Mnemonic       string
	PendingTxn     *algod.Unsigned
	TxKind         TxKind
}

// Tracker holds conversation contexts keyed by user id.
type Tracker struct {
	mu    sync.Mutex
	users map[string]*Context
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{users: make(map[string]*Context)}
}

// Get returns a snapshot of the user's context. Missing users read as
// idle; nothing is stored until Update mutates state, so reading never
// grows the map.
func (t *Tracker) Get(userID string) Context {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ctx, ok := t.users[userID]; ok {
		return *ctx
	}
	return Context{}
}

// Reset returns the user to idle and clears everything sensitive.
func (t *Tracker) Reset(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.users, userID)
}

// Update applies fn to the user's context under the tracker lock.
func (t *Tracker) Update(userID string, fn func(*Context)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ctx, ok := t.users[userID]
	if !ok {
		ctx = &Context{}
		t.users[userID] = ctx
	}
	fn(ctx)
}
