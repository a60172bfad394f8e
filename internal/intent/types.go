// Package intent turns sanitized chat text into a structured action.
//
// Resolution is an ordered attempt chain: the external language model is
// the richer parser but is untrusted network I/O with no availability
// guarantee, so deterministic regex fallbacks guarantee baseline
// functionality offline. The first stage to produce a known intent wins.
package intent

import "github.com/algointent/intentbot/internal/sanitize"

// Kind is the closed classification of what a message requests.
type Kind string

const (
	KindCreateWallet  Kind = "create_wallet"
	KindConnectWallet Kind = "connect_wallet"
	KindSendAlgo      Kind = "send_algo"
	KindCreateNFT     Kind = "create_nft"
	KindDisconnect    Kind = "disconnect"
	KindBalance       Kind = "balance"
	// KindUnknown is the parse-failure sentinel. It carries no
	// parameters and is never dispatched.
	KindUnknown Kind = "unknown"
)

// SendParams are the validated parameters of a transfer request.
type SendParams struct {
	Amount    float64
	Recipient string
}

// NFTParams are the validated parameters of an asset-creation request.
type NFTParams struct {
	Name        string
	Supply      uint64
	Description string
}

// Intent is the tagged union produced by resolution. Exactly the
// variant record matching Kind is non-nil; the dispatcher never sees
// untyped maps.
type Intent struct {
	Kind Kind
	Send *SendParams
	NFT  *NFTParams
}

// Unknown is the sentinel result for anything that failed to resolve.
func Unknown() Intent {
	return Intent{Kind: KindUnknown}
}

// IsUnknown reports whether the intent failed to resolve.
func (i Intent) IsUnknown() bool {
	return i.Kind == KindUnknown
}

// rawIntent is the loose shape decoded from the language model's reply
// before boundary validation.
type rawIntent struct {
	Intent     string `json:"intent"`
	Parameters struct {
		Amount      float64 `json:"amount"`
		Recipient   string  `json:"recipient"`
		Name        string  `json:"name"`
		Supply      uint64  `json:"supply"`
		Description string  `json:"description"`
	} `json:"parameters"`
}

// validate converts a loose decoded payload into a typed Intent,
// collapsing anything malformed to the unknown sentinel.
func (r rawIntent) validate() Intent {
	switch Kind(r.Intent) {
	case KindCreateWallet:
		return Intent{Kind: KindCreateWallet}
	case KindConnectWallet:
		return Intent{Kind: KindConnectWallet}
	case KindDisconnect:
		return Intent{Kind: KindDisconnect}
	case KindBalance:
		return Intent{Kind: KindBalance}
	case KindSendAlgo:
		if !sanitize.Address(r.Parameters.Recipient) || !sanitize.Amount(r.Parameters.Amount) {
			return Unknown()
		}
		return Intent{Kind: KindSendAlgo, Send: &SendParams{
			Amount:    r.Parameters.Amount,
			Recipient: r.Parameters.Recipient,
		}}
	case KindCreateNFT:
		name := sanitize.Text(r.Parameters.Name)
		if name == "" || len(name) > 50 {
			return Unknown()
		}
		supply := r.Parameters.Supply
		if supply == 0 {
			supply = 1
		}
		return Intent{Kind: KindCreateNFT, NFT: &NFTParams{
			Name:        name,
			Supply:      supply,
			Description: sanitize.Text(r.Parameters.Description),
		}}
	default:
		return Unknown()
	}
}
