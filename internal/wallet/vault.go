package wallet

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

// scrypt parameters for the password-derived vault key.
const (
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1

	saltLen     = 16
	nonceLen    = 24
	vaultKeyLen = 32
)

// ErrWrongPassword is returned when a vault blob cannot be opened with
// the supplied password. It is an authentication failure, not a
// transient fault: callers count it toward the attempt limit instead of
// retrying.
var ErrWrongPassword = errors.New("wrong wallet password")

// sealSeed encrypts a seed under a password. The blob layout is
// base64(salt || nonce || secretbox ciphertext); salt and nonce are
// fresh random values on every seal.
func sealSeed(seed []byte, password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	var nonce [nonceLen]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	key, err := deriveVaultKey(password, salt)
	if err != nil {
		return "", err
	}

	blob := make([]byte, 0, saltLen+nonceLen+len(seed)+secretbox.Overhead)
	blob = append(blob, salt...)
	blob = append(blob, nonce[:]...)
	blob = secretbox.Seal(blob, seed, &nonce, key)
	return base64.StdEncoding.EncodeToString(blob), nil
}

// openSeed decrypts a vault blob. A wrong password surfaces as
// ErrWrongPassword; a structurally broken blob is reported separately.
func openSeed(blob, password string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, fmt.Errorf("decode vault blob: %w", err)
	}
	if len(raw) < saltLen+nonceLen+secretbox.Overhead {
		return nil, errors.New("vault blob too short")
	}

	salt := raw[:saltLen]
	var nonce [nonceLen]byte
	copy(nonce[:], raw[saltLen:saltLen+nonceLen])
	box := raw[saltLen+nonceLen:]

	key, err := deriveVaultKey(password, salt)
	if err != nil {
		return nil, err
	}

	seed, ok := secretbox.Open(nil, box, &nonce, key)
	if !ok {
		return nil, ErrWrongPassword
	}
	return seed, nil
}

func deriveVaultKey(password string, salt []byte) (*[vaultKeyLen]byte, error) {
	derived, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, vaultKeyLen)
	if err != nil {
		return nil, fmt.Errorf("derive vault key: %w", err)
	}
	var key [vaultKeyLen]byte
	copy(key[:], derived)
	return &key, nil
}
