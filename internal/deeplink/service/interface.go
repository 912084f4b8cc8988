// Package service provides the signing primitives for deep-link tokens.
package service

import "github.com/easymo/deeplinks/internal/deeplink/domain"

// TokenCodec signs and verifies capability tokens.
//
// Tokens have the form base64url(header).base64url(claims).base64url(mac)
// where mac is HMAC-SHA256 over the first two segments joined by ".".
type TokenCodec interface {
	// Sign encodes and signs claims. Fails with ErrTokenSignFailed when no
	// signing secret is configured.
	Sign(claims domain.Claims) (string, error)

	// Verify checks the segment count, the signature and the header, in that
	// order, and returns the decoded token. Fails with ErrTokenVerifyFailed
	// when no signing secret is configured.
	Verify(token string) (*domain.DecodedToken, error)
}

// NonceGenerator produces per-issuance random nonces.
type NonceGenerator interface {
	GenerateNonce() (string, error)
}
