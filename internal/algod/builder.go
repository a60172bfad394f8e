package algod

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// MicroPerAlgo converts between ALGO and the integer base unit.
const MicroPerAlgo = 1_000_000

// validityRounds is the window between first and last valid round.
const validityRounds = 1000

// maxUnitNameLen caps the derived asset unit name.
const maxUnitNameLen = 8

// ErrInsufficientFunds is returned when the sender's balance cannot
// cover amount plus fee.
var ErrInsufficientFunds = errors.New("insufficient funds")

// Unsigned pairs a built transaction with the human-readable summary
// shown to the user before they approve it.
type Unsigned struct {
	Txn     *Transaction
	Summary Summary
}

// Summary is what the confirmation prompt displays. Amounts are in
// ALGO, not base units.
type Summary struct {
	Amount      float64
	Recipient   string
	AssetName   string
	UnitName    string
	Supply      uint64
	Description string
	FeeAlgo     float64
}

// AlgoToMicro converts an ALGO amount to base units, rounding to the
// nearest microALGO.
func AlgoToMicro(amount float64) uint64 {
	return uint64(amount*MicroPerAlgo + 0.5)
}

// MicroToAlgo converts base units to ALGO for display.
func MicroToAlgo(micro uint64) float64 {
	return float64(micro) / MicroPerAlgo
}

// BuildPayment builds an unsigned payment transaction. The sender's
// balance is checked up front so the user hears about insufficient
// funds before being asked for a password.
func (c *Client) BuildPayment(ctx context.Context, sender, recipient string, amount float64) (*Unsigned, error) {
	params, err := c.SuggestedParams(ctx)
	if err != nil {
		return nil, err
	}
	fee := params.MinFee
	micro := AlgoToMicro(amount)

	info, err := c.AccountInfo(ctx, sender)
	if err != nil {
		return nil, err
	}
	if info.Amount < micro+fee {
		return nil, fmt.Errorf("%w: balance %.6f ALGO, need %.6f ALGO including fee",
			ErrInsufficientFunds, MicroToAlgo(info.Amount), MicroToAlgo(micro+fee))
	}

	txn := &Transaction{
		Type:        TypePayment,
		Sender:      sender,
		Receiver:    recipient,
		Amount:      micro,
		Fee:         fee,
		FirstValid:  params.LastRound,
		LastValid:   params.LastRound + validityRounds,
		GenesisID:   params.GenesisID,
		GenesisHash: params.GenesisHash,
	}
	return &Unsigned{
		Txn: txn,
		Summary: Summary{
			Amount:    amount,
			Recipient: recipient,
			FeeAlgo:   MicroToAlgo(fee),
		},
	}, nil
}

// BuildAssetCreate builds an unsigned asset-creation transaction. The
// unit name is derived from the asset name and the description travels
// in the note field. assetURL may be empty when no media was pinned.
func (c *Client) BuildAssetCreate(ctx context.Context, sender, name, description, assetURL string, total uint64) (*Unsigned, error) {
	params, err := c.SuggestedParams(ctx)
	if err != nil {
		return nil, err
	}
	fee := params.MinFee

	info, err := c.AccountInfo(ctx, sender)
	if err != nil {
		return nil, err
	}
	if info.Amount < fee {
		return nil, fmt.Errorf("%w: balance %.6f ALGO does not cover the %.6f ALGO fee",
			ErrInsufficientFunds, MicroToAlgo(info.Amount), MicroToAlgo(fee))
	}

	unit := UnitName(name)
	txn := &Transaction{
		Type:        TypeAssetConfig,
		Sender:      sender,
		Fee:         fee,
		FirstValid:  params.LastRound,
		LastValid:   params.LastRound + validityRounds,
		GenesisID:   params.GenesisID,
		GenesisHash: params.GenesisHash,
		AssetParams: &AssetParams{
			Total:     total,
			Decimals:  0,
			AssetName: name,
			UnitName:  unit,
			URL:       assetURL,
			Manager:   sender,
			Reserve:   sender,
		},
	}
	if description != "" {
		txn.Note = []byte(description)
	}
	return &Unsigned{
		Txn: txn,
		Summary: Summary{
			AssetName:   name,
			UnitName:    unit,
			Supply:      total,
			Description: description,
			FeeAlgo:     MicroToAlgo(fee),
		},
	}, nil
}

// UnitName derives a ticker-style unit name from an asset name: the
// first eight alphanumeric characters, uppercased. Falls back to "NFT"
// when the name has no usable characters.
func UnitName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			if b.Len() >= maxUnitNameLen {
				break
			}
		}
	}
	if b.Len() == 0 {
		return "NFT"
	}
	return b.String()
}
