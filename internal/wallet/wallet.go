// Package wallet is the key-management collaborator: account generation,
// mnemonic encoding, password-gated encryption of seeds at rest, and
// transaction signing. The core only ever holds the opaque encrypted
// blob; plaintext seeds exist in memory for the duration of a single
// operation.
package wallet

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"regexp"
)

// MinPasswordLength is the floor for vault passwords.
const MinPasswordLength = 8

var (
	hasLetter = regexp.MustCompile(`[A-Za-z]`)
	hasDigit  = regexp.MustCompile(`\d`)
)

// ErrWeakPassword is returned when a vault password fails the strength
// policy.
var ErrWeakPassword = errors.New("password must be at least 8 characters and contain both letters and numbers")

// Wallet is the result of creating or connecting an account.
type Wallet struct {
	// Address is the 58-character account address.
	Address string
	// Mnemonic is the 25-word recovery phrase. Only populated on
	// Create; it is shown to the user once and never stored.
	Mnemonic string
	// EncryptedMnemonic is the vault blob the session stores. Opaque
	// to everything outside this package.
	EncryptedMnemonic string
}

// CheckPassword validates the vault password policy: minimum length,
// at least one letter and one digit.
func CheckPassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	if !hasLetter.MatchString(password) || !hasDigit.MatchString(password) {
		return ErrWeakPassword
	}
	return nil
}

// Create generates a fresh account and seals its seed under the
// password.
func Create(password string) (*Wallet, error) {
	if err := CheckPassword(password); err != nil {
		return nil, err
	}

	seed := make([]byte, seedLen)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("generate seed: %w", err)
	}

	mnemonic, err := mnemonicFromSeed(seed)
	if err != nil {
		return nil, fmt.Errorf("encode mnemonic: %w", err)
	}

	blob, err := sealSeed(seed, password)
	if err != nil {
		return nil, fmt.Errorf("seal seed: %w", err)
	}

	_, pub := keyFromSeed(seed)
	return &Wallet{
		Address:           addressFromPublicKey(pub),
		Mnemonic:          mnemonic,
		EncryptedMnemonic: blob,
	}, nil
}

// Connect recovers an account from its mnemonic and seals the seed
// under a new password. The mnemonic is not echoed back.
func Connect(mnemonic, password string) (*Wallet, error) {
	if err := CheckPassword(password); err != nil {
		return nil, err
	}

	seed, err := seedFromMnemonic(mnemonic)
	if err != nil {
		return nil, err
	}

	blob, err := sealSeed(seed, password)
	if err != nil {
		return nil, fmt.Errorf("seal seed: %w", err)
	}

	_, pub := keyFromSeed(seed)
	return &Wallet{
		Address:           addressFromPublicKey(pub),
		EncryptedMnemonic: blob,
	}, nil
}

// Sign opens the vault blob with the password and signs the message
// with the account key. A wrong password returns ErrWrongPassword.
func Sign(encryptedMnemonic, password string, message []byte) ([]byte, error) {
	seed, err := openSeed(encryptedMnemonic, password)
	if err != nil {
		return nil, err
	}
	if len(seed) != seedLen {
		return nil, errors.New("vault produced a malformed seed")
	}

	priv, _ := keyFromSeed(seed)
	return ed25519.Sign(priv, message), nil
}
