package service

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/easymo/deeplinks/internal/deeplink/domain"
	apperrors "github.com/easymo/deeplinks/internal/errors"
)

// HeaderJSON is the only accepted token header.
const HeaderJSON = `{"alg":"HS256","typ":"DL1"}`

var (
	encoding      = base64.RawURLEncoding
	encodedHeader = encoding.EncodeToString([]byte(HeaderJSON))

	errMissingSecret = apperrors.New("deeplink signing secret is not configured")
)

type hmacCodec struct {
	secret []byte
}

// NewTokenCodec creates a TokenCodec keyed with secret. The secret is used
// directly as the HMAC key so tokens stay verifiable by other services
// holding the same secret.
func NewTokenCodec(secret []byte) TokenCodec {
	key := make([]byte, len(secret))
	copy(key, secret)
	return &hmacCodec{secret: key}
}

// Sign encodes claims and appends the HMAC-SHA256 signature.
func (c *hmacCodec) Sign(claims domain.Claims) (string, error) {
	if len(c.secret) == 0 {
		return "", domain.ErrTokenSignFailed.WithCause(errMissingSecret)
	}

	body, err := json.Marshal(claims)
	if err != nil {
		return "", domain.ErrTokenSignFailed.WithCause(err)
	}

	signingInput := encodedHeader + "." + encoding.EncodeToString(body)
	return signingInput + "." + encoding.EncodeToString(c.mac(signingInput)), nil
}

// Verify splits the token, checks the signature in constant time, then checks
// the header literal. A header mismatch is rejected even when the signature is
// valid.
func (c *hmacCodec) Verify(token string) (*domain.DecodedToken, error) {
	if len(c.secret) == 0 {
		return nil, domain.ErrTokenVerifyFailed.WithCause(errMissingSecret)
	}

	segments := strings.Split(token, ".")
	if len(segments) != 3 {
		return nil, domain.ErrTokenMalformed
	}

	signature, err := encoding.DecodeString(segments[2])
	if err != nil {
		return nil, domain.ErrTokenSignatureInvalid
	}
	if !hmac.Equal(signature, c.mac(segments[0]+"."+segments[1])) {
		return nil, domain.ErrTokenSignatureInvalid
	}

	headerBytes, err := encoding.DecodeString(segments[0])
	if err != nil {
		return nil, domain.ErrTokenMalformed.WithCause(err)
	}
	var header domain.TokenHeader
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return nil, domain.ErrTokenMalformed.WithCause(err)
	}
	if !bytes.Equal(headerBytes, []byte(HeaderJSON)) {
		return nil, domain.ErrTokenHeaderInvalid
	}

	claimsBytes, err := encoding.DecodeString(segments[1])
	if err != nil {
		return nil, domain.ErrTokenMalformed.WithCause(err)
	}
	var claims domain.Claims
	if err := json.Unmarshal(claimsBytes, &claims); err != nil {
		return nil, domain.ErrTokenMalformed.WithCause(err)
	}

	return &domain.DecodedToken{
		Header:    header,
		Claims:    claims,
		Signature: segments[2],
	}, nil
}

func (c *hmacCodec) mac(signingInput string) []byte {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(signingInput))
	return mac.Sum(nil)
}
