package intent

import (
	"strings"
	"testing"
)

func TestParseSendFallback(t *testing.T) {
	addr := strings.Repeat("B", 58)
	tests := []struct {
		name       string
		in         string
		wantKind   Kind
		wantAmount float64
	}{
		{"decimal", "send 5 algo to " + addr, KindSendAlgo, 5},
		{"fraction", "transfer 0.5 algos to " + addr, KindSendAlgo, 0.5},
		{"pay verb", "pay 12 algo to " + addr, KindSendAlgo, 12},
		{"spelled out", "send five algo to " + addr, KindSendAlgo, 5},
		{"spelled compound", "send twenty five algo to " + addr, KindSendAlgo, 25},
		{"spelled hundred", "send one hundred and fifty algo to " + addr, KindSendAlgo, 150},
		{"short address", "send 5 algo to short", KindUnknown, 0},
		{"zero amount", "send 0 algo to " + addr, KindUnknown, 0},
		{"over cap", "send 1000001 algo to " + addr, KindUnknown, 0},
		{"gibberish amount", "send lots algo to " + addr, KindUnknown, 0},
		{"no verb", "5 algo to " + addr, KindUnknown, 0},
		{"empty", "", KindUnknown, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseSendFallback(tt.in)
			if got.Kind != tt.wantKind {
				t.Fatalf("Kind = %q, want %q", got.Kind, tt.wantKind)
			}
			if got.Kind == KindSendAlgo {
				if got.Send.Amount != tt.wantAmount {
					t.Errorf("Amount = %v, want %v", got.Send.Amount, tt.wantAmount)
				}
				if got.Send.Recipient != addr {
					t.Errorf("Recipient = %q", got.Send.Recipient)
				}
			}
		})
	}
}

func TestParseNFTFallback(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		wantKind Kind
		wantName string
	}{
		{"named", "create an NFT named Dragon", KindCreateNFT, "Dragon"},
		{"called", "mint nft called Moon Cat", KindCreateNFT, "Moon Cat"},
		{"with name", "make an nft with name Star", KindCreateNFT, "Star"},
		{"suffix form", "create Dragon nft", KindCreateNFT, "Dragon"},
		{"help prefix", "help me create an nft named Pixel", KindCreateNFT, "Pixel"},
		{"no nft word", "create something cool", KindUnknown, ""},
		{"empty", "", KindUnknown, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseNFTFallback(tt.in)
			if got.Kind != tt.wantKind {
				t.Fatalf("Kind = %q, want %q", got.Kind, tt.wantKind)
			}
			if got.Kind == KindCreateNFT {
				if got.NFT.Name != tt.wantName {
					t.Errorf("Name = %q, want %q", got.NFT.Name, tt.wantName)
				}
				if got.NFT.Supply != 1 {
					t.Errorf("Supply = %d, want 1", got.NFT.Supply)
				}
			}
		})
	}
}

func TestWordsToNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"five", 5, true},
		{"twenty five", 25, true},
		{"one hundred", 100, true},
		{"one hundred and fifty", 150, true},
		{"two thousand", 2000, true},
		{"hundred", 100, true},
		{"banana", 0, false},
		{"", 0, false},
		{"five bananas", 0, false},
	}
	for _, tt := range tests {
		got, ok := wordsToNumber(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("wordsToNumber(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
