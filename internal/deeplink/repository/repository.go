// Package repository implements persistence for deep-link token records, audit
// events, chat sessions and feature flags, with PostgreSQL and MySQL variants.
package repository

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	apperrors "github.com/easymo/deeplinks/internal/errors"
)

// TokenHash returns the lookup key stored for a signed token. Tokens are long
// and unbounded in length, so lookups go through a fixed-size unique hash.
func TokenHash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func marshalDocument(value any, what string) ([]byte, error) {
	if fields, ok := value.(map[string]any); ok && fields == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return nil, apperrors.Wrapf(err, "failed to marshal %s", what)
	}
	return data, nil
}

func unmarshalFields(data []byte, what string) (map[string]any, error) {
	fields := map[string]any{}
	if len(data) == 0 {
		return fields, nil
	}
	// Numbers stay json.Number so integer payload fields survive the round trip.
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&fields); err != nil {
		return nil, apperrors.Wrapf(err, "failed to unmarshal %s", what)
	}
	return fields, nil
}
