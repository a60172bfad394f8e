package algod

import (
	"crypto/sha512"
	"encoding/base32"
	"encoding/json"
	"fmt"
)

// TxType discriminates the transaction kinds the bot can build.
type TxType string

const (
	TypePayment     TxType = "pay"
	TypeAssetConfig TxType = "acfg"
)

// domainSeparator prefixes the canonical encoding before signing, so a
// transaction signature can never be replayed as some other kind of
// signed message.
var domainSeparator = []byte("TX")

var base32NoPad = base32.StdEncoding.WithPadding(base32.NoPadding)

// AssetParams configures asset creation for an acfg transaction.
type AssetParams struct {
	Total         uint64 `json:"t"`
	Decimals      uint32 `json:"dc"`
	DefaultFrozen bool   `json:"df,omitempty"`
	UnitName      string `json:"un,omitempty"`
	AssetName     string `json:"an,omitempty"`
	URL           string `json:"au,omitempty"`
	Manager       string `json:"m,omitempty"`
	Reserve       string `json:"r,omitempty"`
}

// Transaction is the canonical unsigned transaction. Field names follow
// the node's short wire keys.
type Transaction struct {
	Type        TxType       `json:"type"`
	Sender      string       `json:"snd"`
	Fee         uint64       `json:"fee"`
	FirstValid  uint64       `json:"fv"`
	LastValid   uint64       `json:"lv"`
	GenesisID   string       `json:"gen,omitempty"`
	GenesisHash string       `json:"gh,omitempty"`
	Note        []byte       `json:"note,omitempty"`

	// Payment fields.
	Receiver string `json:"rcv,omitempty"`
	Amount   uint64 `json:"amt,omitempty"`

	// Asset creation fields.
	AssetParams *AssetParams `json:"apar,omitempty"`
}

// Encode returns the domain-separated canonical bytes. These are what
// gets signed and what the transaction id is derived from.
func (t *Transaction) Encode() ([]byte, error) {
	body, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encode transaction: %w", err)
	}
	return append(append([]byte{}, domainSeparator...), body...), nil
}

// ID derives the transaction id from the canonical encoding.
func (t *Transaction) ID() (string, error) {
	enc, err := t.Encode()
	if err != nil {
		return "", err
	}
	sum := sha512.Sum512_256(enc)
	return base32NoPad.EncodeToString(sum[:]), nil
}

// signedTxn is the submit envelope for a signed transaction.
type signedTxn struct {
	Signature []byte       `json:"sig"`
	Txn       *Transaction `json:"txn"`
}

// EncodeSigned wraps a transaction and its ed25519 signature into the
// bytes Submit accepts.
func EncodeSigned(txn *Transaction, signature []byte) ([]byte, error) {
	body, err := json.Marshal(signedTxn{Signature: signature, Txn: txn})
	if err != nil {
		return nil, fmt.Errorf("encode signed transaction: %w", err)
	}
	return body, nil
}
