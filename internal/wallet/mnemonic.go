package wallet

import (
	"crypto/sha512"
	"errors"
	"strings"
)

// MnemonicWords is the fixed phrase length: 24 data words encoding the
// 32-byte seed in 11-bit chunks, plus one checksum word.
const MnemonicWords = 25

// ErrInvalidMnemonic is returned for phrases with the wrong word count,
// words outside the list, or a failed checksum.
var ErrInvalidMnemonic = errors.New("invalid mnemonic phrase")

const seedLen = 32

// mnemonicFromSeed encodes a 32-byte seed as a 25-word phrase.
func mnemonicFromSeed(seed []byte) (string, error) {
	if len(seed) != seedLen {
		return "", errors.New("seed must be 32 bytes")
	}

	chunks := toUint11(seed)
	if len(chunks) != MnemonicWords-1 {
		return "", errors.New("unexpected chunk count")
	}

	words := make([]string, 0, MnemonicWords)
	for _, c := range chunks {
		words = append(words, wordlist[c])
	}
	words = append(words, checksumWord(seed))
	return strings.Join(words, " "), nil
}

// seedFromMnemonic decodes a 25-word phrase back to the 32-byte seed,
// verifying the checksum word.
func seedFromMnemonic(mnemonic string) ([]byte, error) {
	words := strings.Fields(strings.ToLower(strings.TrimSpace(mnemonic)))
	if len(words) != MnemonicWords {
		return nil, ErrInvalidMnemonic
	}

	chunks := make([]uint32, 0, MnemonicWords-1)
	for _, w := range words[:MnemonicWords-1] {
		idx, ok := wordIndex[w]
		if !ok {
			return nil, ErrInvalidMnemonic
		}
		chunks = append(chunks, uint32(idx))
	}

	data := fromUint11(chunks)
	// 24 chunks carry 264 bits; the trailing byte must be zero padding.
	if len(data) < seedLen+1 || data[seedLen] != 0 {
		return nil, ErrInvalidMnemonic
	}
	seed := data[:seedLen]

	if checksumWord(seed) != words[MnemonicWords-1] {
		return nil, ErrInvalidMnemonic
	}
	return seed, nil
}

// checksumWord derives the 25th word from the first 11 bits of the
// seed's SHA-512/256 digest.
func checksumWord(seed []byte) string {
	sum := sha512.Sum512_256(seed)
	chunks := toUint11(sum[:2])
	return wordlist[chunks[0]]
}

// toUint11 packs bytes into 11-bit little-endian chunks.
func toUint11(data []byte) []uint32 {
	var out []uint32
	var buf uint32
	var bits uint
	for _, b := range data {
		buf |= uint32(b) << bits
		bits += 8
		for bits >= 11 {
			out = append(out, buf&0x7ff)
			buf >>= 11
			bits -= 11
		}
	}
	if bits > 0 {
		out = append(out, buf&0x7ff)
	}
	return out
}

// fromUint11 unpacks 11-bit chunks back into bytes.
func fromUint11(chunks []uint32) []byte {
	var out []byte
	var buf uint32
	var bits uint
	for _, c := range chunks {
		buf |= (c & 0x7ff) << bits
		bits += 11
		for bits >= 8 {
			out = append(out, byte(buf&0xff))
			buf >>= 8
			bits -= 8
		}
	}
	if bits > 0 {
		out = append(out, byte(buf&0xff))
	}
	return out
}
