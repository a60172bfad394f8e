package intent

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/algointent/intentbot/internal/sanitize"
)

// nftPatterns match phrasing variants for asset creation, e.g.
// "create an NFT named Dragon", "mint Dragon nft", "make nft called X".
var nftPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:create|mint|make)\s+(?:an?\s+)?nft\s+(?:with\s+name\s+|named\s+|called\s+)?(?P<name>[a-zA-Z0-9\s]{1,50})`),
	regexp.MustCompile(`(?i)(?:help\s+me\s+)?(?:create|mint|make)\s+(?:an?\s+)?nft\s+(?:with\s+name\s+|named\s+|called\s+)?(?P<name>[a-zA-Z0-9\s]{1,50})`),
	regexp.MustCompile(`(?i)(?:create|mint|make)\s+(?P<name>[a-zA-Z0-9\s]{1,50})\s+nft`),
}

// sendPattern matches "<verb> <amount> algo(s) to <address>" where the
// amount is a decimal literal or spelled-out words.
var sendPattern = regexp.MustCompile(`(?i)(?:send|transfer|pay)\s+(?P<amount>[\d.]{1,20}|\w+(?:\s+\w+)*)\s+(?:algo|algos)\s+to\s+(?P<address>[A-Z2-7]{58})`)

// ParseNFTFallback is the deterministic asset-creation parser. It
// returns the unknown sentinel when nothing matches.
func ParseNFTFallback(text string) Intent {
	text = sanitize.Text(text)
	if text == "" {
		return Unknown()
	}

	for _, p := range nftPatterns {
		m := p.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		name := sanitize.Text(m[p.SubexpIndex("name")])
		if name == "" {
			continue
		}
		return Intent{Kind: KindCreateNFT, NFT: &NFTParams{
			Name:   name,
			Supply: 1,
		}}
	}
	return Unknown()
}

// ParseSendFallback is the deterministic transfer parser. The recipient
// must pass structural address validation and the amount must be inside
// the spendable range, or the whole match is rejected.
func ParseSendFallback(text string) Intent {
	text = sanitize.Text(text)
	if text == "" {
		return Unknown()
	}

	m := sendPattern.FindStringSubmatch(text)
	if m == nil {
		return Unknown()
	}

	address := m[sendPattern.SubexpIndex("address")]
	if !sanitize.Address(address) {
		return Unknown()
	}

	amountText := strings.TrimSpace(m[sendPattern.SubexpIndex("amount")])
	amount, err := strconv.ParseFloat(amountText, 64)
	if err != nil {
		var ok bool
		amount, ok = wordsToNumber(amountText)
		if !ok {
			return Unknown()
		}
	}
	if !sanitize.Amount(amount) {
		return Unknown()
	}

	return Intent{Kind: KindSendAlgo, Send: &SendParams{
		Amount:    amount,
		Recipient: address,
	}}
}

var numberWords = map[string]float64{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4,
	"five": 5, "six": 6, "seven": 7, "eight": 8, "nine": 9,
	"ten": 10, "eleven": 11, "twelve": 12, "thirteen": 13,
	"fourteen": 14, "fifteen": 15, "sixteen": 16, "seventeen": 17,
	"eighteen": 18, "nineteen": 19, "twenty": 20, "thirty": 30,
	"forty": 40, "fifty": 50, "sixty": 60, "seventy": 70,
	"eighty": 80, "ninety": 90,
}

var numberScales = map[string]float64{
	"hundred":  100,
	"thousand": 1000,
	"million":  1_000_000,
}

// wordsToNumber converts a spelled-out amount ("twenty five", "one
// hundred and fifty") to its numeric value. Returns false for anything
// it cannot interpret as a number.
func wordsToNumber(text string) (float64, bool) {
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) == 0 {
		return 0, false
	}

	var total, current float64
	matched := false
	for _, word := range fields {
		word = strings.Trim(word, ",-")
		if word == "and" {
			continue
		}
		if v, ok := numberWords[word]; ok {
			current += v
			matched = true
			continue
		}
		if scale, ok := numberScales[word]; ok {
			if current == 0 {
				current = 1
			}
			current *= scale
			if scale >= 1000 {
				total += current
				current = 0
			}
			matched = true
			continue
		}
		return 0, false
	}
	if !matched {
		return 0, false
	}
	return total + current, true
}
