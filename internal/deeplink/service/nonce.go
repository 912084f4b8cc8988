package service

import (
	"crypto/rand"
	"encoding/base64"

	apperrors "github.com/easymo/deeplinks/internal/errors"
)

// nonceBytes is the entropy of a nonce (128 bits).
const nonceBytes = 16

type randomNonceGenerator struct{}

// NewNonceGenerator creates a NonceGenerator backed by crypto/rand.
func NewNonceGenerator() NonceGenerator {
	return &randomNonceGenerator{}
}

// GenerateNonce returns 16 random bytes, base64url encoded without padding.
func (g *randomNonceGenerator) GenerateNonce() (string, error) {
	buf := make([]byte, nonceBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", apperrors.Wrap(err, "failed to generate nonce")
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
