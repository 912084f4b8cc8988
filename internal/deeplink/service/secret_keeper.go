package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"gocloud.dev/secrets"

	// Register the KMS provider drivers accepted in KMS_KEY_URI.
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// SecretKeeper unwraps the KMS-encrypted token signing secret.
type SecretKeeper interface {
	// UnwrapSecret decrypts the base64 ciphertext with the key at keyURI.
	// Supports: gcpkms://, awskms://, azurekeyvault://, hashivault://, base64key://
	UnwrapSecret(ctx context.Context, keyURI, ciphertext string) ([]byte, error)
}

type kmsSecretKeeper struct{}

// NewKMSSecretKeeper creates a SecretKeeper backed by gocloud.dev/secrets.
func NewKMSSecretKeeper() SecretKeeper {
	return &kmsSecretKeeper{}
}

// UnwrapSecret opens a keeper for keyURI, decrypts once and closes it.
func (k *kmsSecretKeeper) UnwrapSecret(ctx context.Context, keyURI, ciphertext string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(ciphertext))
	if err != nil {
		return nil, fmt.Errorf("failed to decode signing secret ciphertext: %w", err)
	}

	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	defer func() {
		_ = keeper.Close()
	}()

	plaintext, err := keeper.Decrypt(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt signing secret: %w", err)
	}
	if len(plaintext) == 0 {
		return nil, errors.New("decrypted signing secret is empty")
	}

	return plaintext, nil
}
