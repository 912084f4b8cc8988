package domain

import (
	"time"

	"github.com/google/uuid"
)

// ExpLayout formats Claims.Exp: RFC 3339 in UTC with millisecond precision.
const ExpLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatExp renders t as a claims expiry.
func FormatExp(t time.Time) string {
	return t.UTC().Format(ExpLayout)
}

// TokenHeader is the fixed first segment of every token.
type TokenHeader struct {
	Alg string `json:"alg"`
	Typ string `json:"typ"`
}

// Claims is the signed body of a token. Exp is carried as an RFC 3339 string
// and parsed by callers so a well-signed token with an unreadable expiry can be
// reported distinctly.
type Claims struct {
	Flow   Flow    `json:"flow"`
	Nonce  string  `json:"nonce"`
	Exp    string  `json:"exp"`
	MSISDN *string `json:"msisdn"`
}

// ExpiresAt parses Exp.
func (c Claims) ExpiresAt() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, c.Exp)
}

// DecodedToken is a token whose signature and header were verified.
type DecodedToken struct {
	Header    TokenHeader
	Claims    Claims
	Signature string
}

// TokenRecord is the persisted issuance of a token.
type TokenRecord struct {
	ID         uuid.UUID
	Flow       Flow
	Token      string
	Payload    map[string]any
	MSISDN     *string
	ExpiresAt  time.Time
	MultiUse   bool
	CreatedBy  *string
	ConsumedAt *time.Time
	ConsumedBy *string
	CreatedAt  time.Time
}

// Nonce returns the nonce stored in the payload, or "" when absent.
func (r *TokenRecord) Nonce() string {
	nonce, _ := r.Payload[NonceKey].(string)
	return nonce
}

// PublicPayload returns the stored payload without the nonce.
func (r *TokenRecord) PublicPayload() map[string]any {
	return StripNonce(r.Payload)
}

// IsExpired reports whether the record expiry is at or before now.
func (r *TokenRecord) IsExpired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

// IsConsumed reports whether a single-use token was already activated.
func (r *TokenRecord) IsConsumed() bool {
	return r.ConsumedAt != nil
}
