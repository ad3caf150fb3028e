// Package csrf issues and verifies scoped anti-forgery tokens.
//
// A token is a random nonce followed by an HMAC-SHA256 of the scope and the
// nonce, base64url encoded. Tokens are stateless: any token signed with the
// same secret for the same scope verifies.
package csrf

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

const nonceSize = 16

// ErrSecretTooShort is returned when the signing secret is under 32 bytes.
var ErrSecretTooShort = errors.New("csrf: secret must be at least 32 bytes")

// Tokens signs and verifies tokens with a shared secret.
type Tokens struct {
	secret []byte
	random io.Reader
}

// Option configures Tokens.
type Option func(*Tokens)

// WithRandom overrides crypto/rand as the nonce source.
func WithRandom(r io.Reader) Option {
	return func(t *Tokens) {
		if r != nil {
			t.random = r
		}
	}
}

// New returns a token manager for secret.
func New(secret []byte, opts ...Option) (*Tokens, error) {
	if len(secret) < 32 {
		return nil, ErrSecretTooShort
	}
	t := &Tokens{secret: append([]byte(nil), secret...), random: rand.Reader}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Generate returns a fresh token bound to scope.
func (t *Tokens) Generate(scope string) (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := io.ReadFull(t.random, nonce); err != nil {
		return "", fmt.Errorf("csrf: read nonce: %w", err)
	}
	token := append(nonce, t.sign(scope, nonce)...)
	return base64.RawURLEncoding.EncodeToString(token), nil
}

// Verify reports whether token was issued for scope.
func (t *Tokens) Verify(scope, token string) bool {
	if token == "" {
		return false
	}
	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(decoded) != nonceSize+sha256.Size {
		return false
	}
	nonce, sig := decoded[:nonceSize], decoded[nonceSize:]
	return hmac.Equal(sig, t.sign(scope, nonce))
}

func (t *Tokens) sign(scope string, nonce []byte) []byte {
	mac := hmac.New(sha256.New, t.secret)
	mac.Write([]byte(scope))
	mac.Write([]byte{0})
	mac.Write(nonce)
	return mac.Sum(nil)
}
