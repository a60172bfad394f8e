package wallet

import (
	"crypto/ed25519"
	"crypto/sha512"
	"encoding/base32"
)

// addressChecksumLen is the number of trailing digest bytes appended to
// the public key before base32 encoding.
const addressChecksumLen = 4

var base32NoPad = base32.StdEncoding.WithPadding(base32.NoPadding)

// addressFromPublicKey renders a 32-byte public key as the 58-character
// base32 account address: base32(pubkey || last 4 bytes of
// SHA-512/256(pubkey)).
func addressFromPublicKey(pub ed25519.PublicKey) string {
	sum := sha512.Sum512_256(pub)
	buf := make([]byte, 0, ed25519.PublicKeySize+addressChecksumLen)
	buf = append(buf, pub...)
	buf = append(buf, sum[len(sum)-addressChecksumLen:]...)
	return base32NoPad.EncodeToString(buf)
}

// keyFromSeed derives the signing key pair from a 32-byte seed.
func keyFromSeed(seed []byte) (ed25519.PrivateKey, ed25519.PublicKey) {
	priv := ed25519.NewKeyFromSeed(seed)
	return priv, priv.Public().(ed25519.PublicKey)
}
