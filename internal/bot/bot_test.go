package bot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/algointent/intentbot/internal/algod"
	"github.com/algointent/intentbot/internal/intent"
	"github.com/algointent/intentbot/internal/session"
	"github.com/algointent/intentbot/internal/telegram"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeResolver maps exact text to canned intents.
type fakeResolver struct {
	intents  map[string]intent.Intent
	calls    int
	lastText string
}

func (f *fakeResolver) Resolve(ctx context.Context, text string) intent.Intent {
	f.calls++
	f.lastText = text
	if it, ok := f.intents[text]; ok {
		return it
	}
	return intent.Unknown()
}

// fakeLedger fabricates transactions locally and records every call.
type fakeLedger struct {
	buildErr      error
	submitErr     error
	confirmErr    error
	balance       uint64
	assetIndex    uint64
	buildCalls    int
	accountCalls  int
	submitCalls   int
	confirmCalls  int
	lastSender    string
	lastRecipient string
}

func (f *fakeLedger) BuildPayment(ctx context.Context, sender, recipient string, amount float64) (*algod.Unsigned, error) {
	f.buildCalls++
	f.lastSender = sender
	f.lastRecipient = recipient
	if f.buildErr != nil {
		return nil, f.buildErr
	}
	return &algod.Unsigned{
		Txn: &algod.Transaction{
			Type: algod.TypePayment, Sender: sender, Receiver: recipient,
			Amount: algod.AlgoToMicro(amount), Fee: 1000,
		},
		Summary: algod.Summary{Amount: amount, Recipient: recipient, FeeAlgo: 0.001},
	}, nil
}

func (f *fakeLedger) BuildAssetCreate(ctx context.Context, sender, name, description, assetURL string, total uint64) (*algod.Unsigned, error) {
	f.buildCalls++
	f.lastSender = sender
	if f.buildErr != nil {
		return nil, f.buildErr
	}
	return &algod.Unsigned{
		Txn: &algod.Transaction{
			Type: algod.TypeAssetConfig, Sender: sender, Fee: 1000,
			AssetParams: &algod.AssetParams{Total: total, AssetName: name, URL: assetURL},
		},
		Summary: algod.Summary{AssetName: name, UnitName: algod.UnitName(name), Supply: total, FeeAlgo: 0.001},
	}, nil
}

func (f *fakeLedger) AccountInfo(ctx context.Context, address string) (*algod.AccountInfo, error) {
	f.accountCalls++
	return &algod.AccountInfo{Address: address, Amount: f.balance}, nil
}

func (f *fakeLedger) Submit(ctx context.Context, signed []byte) (string, error) {
	f.submitCalls++
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return "TXID123", nil
}

func (f *fakeLedger) WaitForConfirmation(ctx context.Context, txid string) (*algod.PendingInfo, error) {
	f.confirmCalls++
	if f.confirmErr != nil {
		return nil, f.confirmErr
	}
	return &algod.PendingInfo{ConfirmedRound: 100, AssetIndex: f.assetIndex}, nil
}

// fakeChat records outbound messages and photos.
type fakeChat struct {
	mu     sync.Mutex
	texts  []string
	photos []string
}

func (f *fakeChat) SendMessage(ctx context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return nil
}

func (f *fakeChat) SendPhoto(ctx context.Context, chatID int64, filename string, photo []byte, caption string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.photos = append(f.photos, filename)
	return nil
}

func (f *fakeChat) last(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.texts) == 0 {
		t.Fatal("no replies sent")
	}
	return f.texts[len(f.texts)-1]
}

// fakeSink records security events as "TYPE:details".
type fakeSink struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeSink) Event(userID, eventType, details string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, eventType+":"+details)
}

func (f *fakeSink) has(eventType string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.events {
		if strings.HasPrefix(e, eventType+":") {
			return true
		}
	}
	return false
}

type testRig struct {
	bot      *Bot
	chat     *fakeChat
	ledger   *fakeLedger
	resolver *fakeResolver
	sink     *fakeSink
	sessions *session.Store
}

func newRig(t *testing.T, maxTxPerHour int) *testRig {
	t.Helper()
	logger := discardLogger()
	store := session.NewStore(filepath.Join(t.TempDir(), "sessions.json"), logger)
	sink := &fakeSink{}
	ledger := &fakeLedger{balance: 10_000_000}
	resolver := &fakeResolver{intents: map[string]intent.Intent{
		"create a wallet":   {Kind: intent.KindCreateWallet},
		"connect my wallet": {Kind: intent.KindConnectWallet},
		"balance":           {Kind: intent.KindBalance},
		"disconnect":        {Kind: intent.KindDisconnect},
		"send it": {Kind: intent.KindSendAlgo, Send: &intent.SendParams{
			Amount:    2.5,
			Recipient: strings.Repeat("A", 58),
		}},
		"mint it": {Kind: intent.KindCreateNFT, NFT: &intent.NFTParams{
			Name: "Sunset", Supply: 1, Description: "a sunset",
		}},
	}}
	chat := &fakeChat{}
	b := New(Config{
		Sessions:            store,
		Policy:              session.NewPolicy(store, maxTxPerHour, 24, sink, logger),
		Resolver:            resolver,
		Ledger:              ledger,
		Chat:                chat,
		Events:              sink,
		Logger:              logger,
		MaxPasswordAttempts: 3,
	})
	return &testRig{bot: b, chat: chat, ledger: ledger, resolver: resolver, sink: sink, sessions: store}
}

func (r *testRig) send(text string) {
	r.bot.HandleMessage(context.Background(), &telegram.Message{
		From: &telegram.User{ID: 42},
		Chat: telegram.Chat{ID: 42},
		Text: text,
	})
}

// createWallet walks the creation flow and returns the recovery phrase
// from the reply.
func (r *testRig) createWallet(t *testing.T, password string) string {
	t.Helper()
	r.send("create a wallet")
	r.send(password)
	reply := r.chat.last(t)
	if !strings.Contains(reply, "Recovery phrase") {
		t.Fatalf("wallet creation did not finish: %q", reply)
	}
	parts := strings.Split(reply, "`")
	// Reply structure: address and phrase are the backquoted segments.
	var phrase string
	for _, p := range parts {
		if len(strings.Fields(p)) == 25 {
			phrase = p
		}
	}
	if phrase == "" {
		t.Fatal("no 25-word phrase in creation reply")
	}
	return phrase
}

func TestStartWelcomes(t *testing.T) {
	r := newRig(t, 10)
	r.send("/start")
	if !strings.Contains(r.chat.last(t), "Welcome") {
		t.Errorf("reply = %q", r.chat.last(t))
	}
	if !r.sink.has("BOT_STARTED") {
		t.Error("missing BOT_STARTED event")
	}
}

func TestConfiguredMessageLengthCap(t *testing.T) {
	logger := discardLogger()
	store := session.NewStore(filepath.Join(t.TempDir(), "sessions.json"), logger)
	sink := &fakeSink{}
	resolver := &fakeResolver{}
	chat := &fakeChat{}
	b := New(Config{
		Sessions:         store,
		Policy:           session.NewPolicy(store, 10, 24, sink, logger),
		Resolver:         resolver,
		Ledger:           &fakeLedger{},
		Chat:             chat,
		Events:           sink,
		Logger:           logger,
		MaxMessageLength: 10,
	})
	b.HandleMessage(context.Background(), &telegram.Message{
		From: &telegram.User{ID: 42},
		Chat: telegram.Chat{ID: 42},
		Text: strings.Repeat("a", 40),
	})
	if got := len([]rune(resolver.lastText)); got != 10 {
		t.Errorf("resolver saw %d runes, want the configured cap of 10", got)
	}
}

func TestUnknownIntentGetsHelp(t *testing.T) {
	r := newRig(t, 10)
	r.send("what is the meaning of life")
	if !strings.Contains(r.chat.last(t), "didn't understand") {
		t.Errorf("reply = %q", r.chat.last(t))
	}
}

func TestBalanceWithoutSessionTouchesNothing(t *testing.T) {
	r := newRig(t, 10)
	r.send("balance")
	if !strings.Contains(r.chat.last(t), "don't have a wallet") {
		t.Errorf("reply = %q", r.chat.last(t))
	}
	if r.ledger.accountCalls != 0 {
		t.Errorf("ledger called %d times for sessionless balance", r.ledger.accountCalls)
	}
}

func TestCreateWalletFlow(t *testing.T) {
	r := newRig(t, 10)
	r.send("create a wallet")
	if !strings.Contains(r.chat.last(t), "Choose a password") {
		t.Fatalf("reply = %q", r.chat.last(t))
	}

	// Weak password keeps the flow parked.
	r.send("short")
	if !strings.Contains(r.chat.last(t), "too weak") {
		t.Fatalf("reply = %q", r.chat.last(t))
	}

	r.send("sturdy-pass-99")
	reply := r.chat.last(t)
	if !strings.Contains(reply, "Recovery phrase") {
		t.Fatalf("reply = %q", reply)
	}

	sess, ok := r.sessions.Get("42")
	if !ok {
		t.Fatal("no session after creation")
	}
	if len(sess.Address) != 58 {
		t.Errorf("address length = %d", len(sess.Address))
	}
	if !strings.Contains(reply, sess.Address) {
		t.Error("reply does not show the address")
	}
	if !r.sink.has("WALLET_CREATED") {
		t.Error("missing WALLET_CREATED event")
	}
	if len(r.chat.photos) != 1 {
		t.Errorf("expected 1 QR photo, got %d", len(r.chat.photos))
	}
}

func TestCreateWalletWeakPasswordStrikesOut(t *testing.T) {
	r := newRig(t, 10)
	r.send("create a wallet")
	r.send("short")
	r.send("short")
	r.send("short")
	if !strings.Contains(r.chat.last(t), "start over") {
		t.Fatalf("reply = %q", r.chat.last(t))
	}
	if !r.sink.has("MAX_ATTEMPTS_EXCEEDED") {
		t.Error("missing MAX_ATTEMPTS_EXCEEDED event")
	}

	// Back to idle: the next message resolves normally.
	before := r.resolver.calls
	r.send("balance")
	if r.resolver.calls != before+1 {
		t.Error("still parked after striking out")
	}
}

func TestConnectWalletFlow(t *testing.T) {
	r := newRig(t, 10)
	phrase := r.createWallet(t, "sturdy-pass-99")
	r.send("disconnect")

	r.send("connect my wallet")
	if !strings.Contains(r.chat.last(t), "25-word") {
		t.Fatalf("reply = %q", r.chat.last(t))
	}

	// Wrong word count re-prompts without leaving the flow.
	r.send("only three words")
	if !strings.Contains(r.chat.last(t), "I counted 3") {
		t.Fatalf("reply = %q", r.chat.last(t))
	}

	r.send(phrase)
	if !strings.Contains(r.chat.last(t), "choose a password") {
		t.Fatalf("reply = %q", r.chat.last(t))
	}

	r.send("other-pass-77")
	reply := r.chat.last(t)
	if !strings.Contains(reply, "Wallet connected") {
		t.Fatalf("reply = %q", reply)
	}
	if strings.Contains(reply, phrase) {
		t.Error("connect reply echoed the recovery phrase")
	}
	if !r.sink.has("WALLET_CONNECTED") {
		t.Error("missing WALLET_CONNECTED event")
	}

	sess, ok := r.sessions.Get("42")
	if !ok || len(sess.Address) != 58 {
		t.Fatalf("bad session after connect: %+v", sess)
	}
}

func TestConnectRejectsBadPhrase(t *testing.T) {
	r := newRig(t, 10)
	r.send("connect my wallet")
	bad := strings.TrimSpace(strings.Repeat("ledger ", 25))
	r.send(bad)
	r.send("other-pass-77")
	if !strings.Contains(r.chat.last(t), "doesn't check out") {
		t.Fatalf("reply = %q", r.chat.last(t))
	}
	if _, ok := r.sessions.Get("42"); ok {
		t.Error("session created from invalid phrase")
	}
	if !r.sink.has("WALLET_CONNECTION_FAILED") {
		t.Error("missing WALLET_CONNECTION_FAILED event")
	}
}

func TestSendFlow(t *testing.T) {
	r := newRig(t, 10)
	r.createWallet(t, "sturdy-pass-99")
	sess, _ := r.sessions.Get("42")

	r.send("send it")
	reply := r.chat.last(t)
	if !strings.Contains(reply, "confirm this transaction") {
		t.Fatalf("reply = %q", reply)
	}
	if r.ledger.lastSender != sess.Address {
		t.Errorf("payment built from %q, want session address", r.ledger.lastSender)
	}

	// Approve with the wallet password.
	r.send("sturdy-pass-99")
	reply = r.chat.last(t)
	if !strings.Contains(reply, "TXID123") {
		t.Fatalf("reply = %q", reply)
	}
	if r.ledger.submitCalls != 1 {
		t.Errorf("submit calls = %d", r.ledger.submitCalls)
	}
	if !r.sink.has("TRANSACTION_SIGNED") {
		t.Error("missing TRANSACTION_SIGNED event")
	}
}

func TestSendWrongPasswordBurnsAttempts(t *testing.T) {
	r := newRig(t, 10)
	r.createWallet(t, "sturdy-pass-99")

	r.send("send it")
	r.send("wrong-pass-11")
	if !strings.Contains(r.chat.last(t), "2 attempt(s) remaining") {
		t.Fatalf("reply = %q", r.chat.last(t))
	}
	r.send("wrong-pass-22")
	if !strings.Contains(r.chat.last(t), "1 attempt(s) remaining") {
		t.Fatalf("reply = %q", r.chat.last(t))
	}
	r.send("wrong-pass-33")
	if !strings.Contains(r.chat.last(t), "cancelled") {
		t.Fatalf("reply = %q", r.chat.last(t))
	}
	if !r.sink.has("MAX_ATTEMPTS_EXCEEDED") {
		t.Error("missing MAX_ATTEMPTS_EXCEEDED event")
	}
	if r.ledger.submitCalls != 0 {
		t.Errorf("submit calls = %d after cancellation", r.ledger.submitCalls)
	}

	// Back to idle: the next message goes through the resolver again.
	before := r.resolver.calls
	r.send("balance")
	if r.resolver.calls != before+1 {
		t.Error("still parked in a flow after cancellation")
	}
}

func TestSendWithoutSession(t *testing.T) {
	r := newRig(t, 10)
	r.send("send it")
	if !strings.Contains(r.chat.last(t), "don't have a wallet") {
		t.Fatalf("reply = %q", r.chat.last(t))
	}
	if r.ledger.buildCalls != 0 {
		t.Errorf("build calls = %d", r.ledger.buildCalls)
	}
}

func TestSendInsufficientFunds(t *testing.T) {
	r := newRig(t, 10)
	r.createWallet(t, "sturdy-pass-99")
	r.ledger.buildErr = fmt.Errorf("%w: balance too low", algod.ErrInsufficientFunds)

	r.send("send it")
	if !strings.Contains(r.chat.last(t), "Not enough funds") {
		t.Fatalf("reply = %q", r.chat.last(t))
	}
	// No transaction parked; next message resolves normally.
	before := r.resolver.calls
	r.send("balance")
	if r.resolver.calls != before+1 {
		t.Error("flow parked after failed build")
	}
}

func TestTransactionRateLimit(t *testing.T) {
	r := newRig(t, 1)
	r.createWallet(t, "sturdy-pass-99")

	r.send("send it")
	r.send("sturdy-pass-99")
	if !strings.Contains(r.chat.last(t), "TXID123") {
		t.Fatalf("first send did not go through: %q", r.chat.last(t))
	}

	r.send("send it")
	if !strings.Contains(r.chat.last(t), "hourly transaction limit") {
		t.Fatalf("reply = %q", r.chat.last(t))
	}
	if r.ledger.buildCalls != 1 {
		t.Errorf("build calls = %d, want 1 (second send blocked before build)", r.ledger.buildCalls)
	}
	if !r.sink.has("RATE_LIMIT_EXCEEDED") {
		t.Error("missing RATE_LIMIT_EXCEEDED event")
	}
}

func TestNFTFlow(t *testing.T) {
	r := newRig(t, 10)
	r.createWallet(t, "sturdy-pass-99")
	r.ledger.assetIndex = 777

	r.send("mint it")
	if !strings.Contains(r.chat.last(t), "confirm this NFT") {
		t.Fatalf("reply = %q", r.chat.last(t))
	}

	r.send("sturdy-pass-99")
	reply := r.chat.last(t)
	if !strings.Contains(reply, "777") || !strings.Contains(reply, "TXID123") {
		t.Fatalf("reply = %q", reply)
	}
	if r.ledger.confirmCalls != 1 {
		t.Errorf("confirm calls = %d", r.ledger.confirmCalls)
	}
	if !r.sink.has("ASSET_CREATED") {
		t.Error("missing ASSET_CREATED event")
	}
}

func TestMidFlowBypassesResolver(t *testing.T) {
	r := newRig(t, 10)
	r.send("create a wallet")
	before := r.resolver.calls
	r.send("balance")
	if r.resolver.calls != before {
		t.Error("resolver consulted for a mid-flow message")
	}
}

func TestStartCancelsFlow(t *testing.T) {
	r := newRig(t, 10)
	r.createWallet(t, "sturdy-pass-99")
	r.send("send it")
	r.send("/start")

	// A password-looking message now resolves instead of signing.
	before := r.resolver.calls
	r.send("sturdy-pass-99")
	if r.resolver.calls != before+1 {
		t.Error("flow survived /start")
	}
	if r.ledger.submitCalls != 0 {
		t.Errorf("submit calls = %d", r.ledger.submitCalls)
	}
}

func TestDisconnect(t *testing.T) {
	r := newRig(t, 10)
	r.createWallet(t, "sturdy-pass-99")
	r.send("disconnect")
	if !strings.Contains(r.chat.last(t), "disconnected") {
		t.Fatalf("reply = %q", r.chat.last(t))
	}
	if _, ok := r.sessions.Get("42"); ok {
		t.Error("session survived disconnect")
	}
	if !r.sink.has("WALLET_DISCONNECTED") {
		t.Error("missing WALLET_DISCONNECTED event")
	}

	r.send("disconnect")
	if !strings.Contains(r.chat.last(t), "No wallet") {
		t.Fatalf("reply = %q", r.chat.last(t))
	}
}
