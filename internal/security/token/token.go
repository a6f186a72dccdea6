// Package token generates opaque bearer tokens and derives the digest that
// is stored in their place.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// MinBytes is the smallest accepted token size (128 bits of entropy).
const MinBytes = 16

// Codec issues tokens of a fixed random size.
type Codec struct {
	nBytes int
}

// NewCodec returns a Codec producing tokens of nBytes random bytes.
func NewCodec(nBytes int) (*Codec, error) {
	if nBytes < MinBytes {
		return nil, fmt.Errorf("token size %d below minimum %d bytes", nBytes, MinBytes)
	}
	return &Codec{nBytes: nBytes}, nil
}

// Issue returns a new random token and its digest. Only the digest may be
// persisted; the plaintext goes to the caller once.
func (c *Codec) Issue() (plain string, digest string, err error) {
	b := make([]byte, c.nBytes)
	if _, err = rand.Read(b); err != nil {
		return "", "", fmt.Errorf("read random: %w", err)
	}

	// URL-safe, no padding.
	plain = base64.RawURLEncoding.EncodeToString(b)
	return plain, DigestOf(plain), nil
}

// DigestOf returns hex(SHA-256(token)) (64 hex chars).
func DigestOf(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
