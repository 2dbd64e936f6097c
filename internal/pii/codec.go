// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package pii converts plaintext phone numbers into the three storage-safe
// artifacts the rest of the system works with: authenticated ciphertext,
// a deterministic lookup hash, and a truncated display value.
package pii

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// KeySize is the required encryption key length in bytes (AES-256).
const KeySize = 32

var (
	// ErrInvalidKey is returned when the configured key does not decode to
	// exactly KeySize bytes.
	ErrInvalidKey = errors.New("encryption key must be 32 bytes when base64 decoded")
	// ErrDecrypt is returned for any decryption failure: malformed layout,
	// authentication tag mismatch, or wrong key. Plaintext is never
	// partially returned.
	ErrDecrypt = errors.New("decryption failed")
)

// Codec encrypts, hashes and truncates phone numbers. It holds the symmetric
// key and is safe for concurrent use; all methods are pure apart from nonce
// randomization in Encrypt.
type Codec struct {
	aead cipher.AEAD
}

// New creates a Codec from a base64-encoded 256-bit key.
func New(keyBase64 string) (*Codec, error) {
	key, err := base64.StdEncoding.DecodeString(keyBase64)
	if err != nil {
		return nil, ErrInvalidKey
	}
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	return newWithKey(key)
}

// NewEphemeral creates a Codec with a random process-local key. Data
// encrypted with it is unrecoverable after restart; the caller is expected
// to refuse this outside development.
func NewEphemeral() (*Codec, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate ephemeral key: %w", err)
	}
	return newWithKey(key)
}

// GenerateKey returns a fresh base64-encoded 256-bit key, for provisioning.
func GenerateKey() (string, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(key), nil
}

func newWithKey(key []byte) (*Codec, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to init GCM: %w", err)
	}
	return &Codec{aead: aead}, nil
}

// PhoneData bundles the three artifacts derived from one plaintext. They are
// always produced together so ciphertext and lookup hash cannot drift apart.
type PhoneData struct {
	Encrypted string
	Hash      string
	Last4     string
}

// Encrypt seals plaintext with AES-256-GCM under a fresh random nonce and
// encodes the result as hex(nonce):hex(tag):hex(ciphertext). Two calls on
// the same input yield different outputs. An empty input yields an empty
// output and no error.
func (c *Codec) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	// Seal appends the authentication tag to the ciphertext; split it back
	// out so the stored layout stays nonce:tag:ciphertext.
	sealed := c.aead.Seal(nil, nonce, []byte(plaintext), nil)
	split := len(sealed) - c.aead.Overhead()
	ciphertext, tag := sealed[:split], sealed[split:]

	return hex.EncodeToString(nonce) + ":" + hex.EncodeToString(tag) + ":" + hex.EncodeToString(ciphertext), nil
}

// Decrypt reverses Encrypt. It fails closed with ErrDecrypt on any malformed
// input, tag mismatch or wrong key. An empty input yields an empty output.
func (c *Codec) Decrypt(encoded string) (string, error) {
	if encoded == "" {
		return "", nil
	}

	parts := strings.Split(encoded, ":")
	if len(parts) != 3 {
		return "", ErrDecrypt
	}

	nonce, err := hex.DecodeString(parts[0])
	if err != nil || len(nonce) != c.aead.NonceSize() {
		return "", ErrDecrypt
	}
	tag, err := hex.DecodeString(parts[1])
	if err != nil || len(tag) != c.aead.Overhead() {
		return "", ErrDecrypt
	}
	ciphertext, err := hex.DecodeString(parts[2])
	if err != nil {
		return "", ErrDecrypt
	}

	plaintext, err := c.aead.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return "", ErrDecrypt
	}
	return string(plaintext), nil
}

// LookupHash returns the deterministic SHA-256 hex digest of plaintext. It is
// used only for equality lookups and uniqueness enforcement; the plaintext is
// not recoverable from it. An empty input yields an empty output.
func LookupHash(plaintext string) string {
	if plaintext == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// DisplaySuffix returns the last four digits of the number for UI display.
// Shorter digit sequences are returned whole; empty input yields empty.
func DisplaySuffix(plaintext string) string {
	if plaintext == "" {
		return ""
	}
	var digits []rune
	for _, r := range plaintext {
		if unicode.IsDigit(r) {
			digits = append(digits, r)
		}
	}
	if len(digits) <= 4 {
		return string(digits)
	}
	return string(digits[len(digits)-4:])
}

// EncryptPhone derives all three storage artifacts from one plaintext in a
// single call, so callers cannot write a ciphertext and hash that disagree.
func (c *Codec) EncryptPhone(plaintext string) (PhoneData, error) {
	if plaintext == "" {
		return PhoneData{}, nil
	}
	encrypted, err := c.Encrypt(plaintext)
	if err != nil {
		return PhoneData{}, err
	}
	return PhoneData{
		Encrypted: encrypted,
		Hash:      LookupHash(plaintext),
		Last4:     DisplaySuffix(plaintext),
	}, nil
}
