package wallet

import (
	_ "embed"
	"strings"
)

// wordlistRaw is the 2048-word phrase list used for mnemonic encoding.
// The list is project-specific: phrases produced here are not meant to
// be imported into third-party wallet software, and the signing stack is
// likewise self-contained.
//
//go:embed wordlist.txt
var wordlistRaw string

var (
	wordlist  = strings.Fields(wordlistRaw)
	wordIndex = buildWordIndex()
)

func buildWordIndex() map[string]int {
	idx := make(map[string]int, len(wordlist))
	for i, w := range wordlist {
		idx[w] = i
	}
	return idx
}
