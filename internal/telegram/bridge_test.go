package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type recordingHandler struct {
	mu   sync.Mutex
	msgs []*Message
	done chan struct{}
	want int
}

func (h *recordingHandler) HandleMessage(ctx context.Context, msg *Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = append(h.msgs, msg)
	if len(h.msgs) == h.want {
		close(h.done)
	}
}

func TestBridgeDispatchesTextAndAdvancesOffset(t *testing.T) {
	var mu sync.Mutex
	var offsets []int64
	served := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Offset int64 `json:"offset"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		mu.Lock()
		offsets = append(offsets, body.Offset)
		first := !served
		served = true
		mu.Unlock()

		result := []map[string]any{}
		if first {
			result = []map[string]any{
				{
					"update_id": 10,
					"message": map[string]any{
						"from": map[string]any{"id": 42},
						"chat": map[string]any{"id": 42},
						"text": "balance",
					},
				},
				// No text: must be skipped without reaching the handler.
				{"update_id": 11, "message": map[string]any{
					"from": map[string]any{"id": 42},
					"chat": map[string]any{"id": 42},
				}},
			}
		}
		json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": result})
	}))
	defer srv.Close()

	h := &recordingHandler{done: make(chan struct{}), want: 1}
	bridge := NewBridge(testClient(srv.URL), h, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		bridge.Start(ctx)
		close(stopped)
	}()

	select {
	case <-h.done:
	case <-time.After(5 * time.Second):
		t.Fatal("handler never called")
	}
	cancel()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("bridge did not stop")
	}

	if h.msgs[0].Text != "balance" || h.msgs[0].From.ID != 42 {
		t.Errorf("unexpected message %+v", h.msgs[0])
	}

	mu.Lock()
	defer mu.Unlock()
	if len(offsets) < 2 {
		t.Fatalf("expected at least 2 polls, got %d", len(offsets))
	}
	// Both updates consumed, including the skipped non-text one.
	if offsets[1] != 12 {
		t.Errorf("second poll offset = %d, want 12", offsets[1])
	}
}
