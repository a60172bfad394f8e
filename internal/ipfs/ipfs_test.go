package ipfs

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPinFile(t *testing.T) {
	var gotKey, gotSecret string
	var gotFile []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pinning/pinFileToIPFS" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotKey = r.Header.Get("pinata_api_key")
		gotSecret = r.Header.Get("pinata_secret_api_key")
		file, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("file part: %v", err)
		} else {
			gotFile, _ = io.ReadAll(file)
			file.Close()
		}
		json.NewEncoder(w).Encode(map[string]string{"IpfsHash": "QmTest123"})
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{APIKey: "key", APISecret: "secret", BaseURL: srv.URL, Logger: discardLogger()})
	url, err := c.PinFile(context.Background(), "art.png", []byte("png-bytes"))
	if err != nil {
		t.Fatalf("PinFile: %v", err)
	}
	if url != "ipfs://QmTest123" {
		t.Errorf("url = %q", url)
	}
	if gotKey != "key" || gotSecret != "secret" {
		t.Errorf("auth headers key=%q secret=%q", gotKey, gotSecret)
	}
	if string(gotFile) != "png-bytes" {
		t.Errorf("file = %q", gotFile)
	}
}

func TestPinFileDisabled(t *testing.T) {
	c := NewClient(ClientConfig{Logger: discardLogger()})
	if c.Enabled() {
		t.Error("client with no credentials should be disabled")
	}
	if _, err := c.PinFile(context.Background(), "art.png", []byte("x")); err == nil {
		t.Error("expected error from disabled client")
	}
}

func TestPinFileRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(ClientConfig{APIKey: "k", APISecret: "s", BaseURL: srv.URL, Logger: discardLogger()})
	if _, err := c.PinFile(context.Background(), "art.png", []byte("x")); err == nil {
		t.Error("expected error for rejected pin")
	}
}
