// Package vault encrypts OAuth tokens and application secrets at rest.
//
// The master key never touches the database: it lives in the host's secret
// storage (macOS Keychain, Windows Credential Manager, Secret Service on
// Linux) through zalando/go-keyring, and ciphertexts are produced with
// AES-GCM from cryptox. When the secret storage cannot be reached the vault
// reports itself unavailable and refuses to encrypt or decrypt; there is no
// plaintext fallback.
package vault

import (
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/newsnexus/internal/common"
	"github.com/dmitrijs2005/newsnexus/internal/cryptox"
	"github.com/zalando/go-keyring"
)

// Vault is the contract every credential writer/reader depends on.
type Vault interface {
	// IsAvailable reports whether host encryption can be used right now.
	IsAvailable() bool
	// Encrypt returns a base64 blob carrying nonce and ciphertext.
	Encrypt(plaintext string) (string, error)
	// Decrypt reverses Encrypt.
	Decrypt(ciphertext string) (string, error)
}

// masterKeyAccount is the keyring account under the configured service name.
const masterKeyAccount = "master-key"

// KeyringVault implements Vault with a master key held in the OS keyring.
type KeyringVault struct {
	service string

	mu  sync.Mutex
	key []byte
}

// NewKeyringVault binds the vault to a keyring service name. Nothing is
// read until the first call.
func NewKeyringVault(service string) *KeyringVault {
	return &KeyringVault{service: service}
}

func (v *KeyringVault) IsAvailable() bool {
	_, err := v.masterKey()
	return err == nil
}

func (v *KeyringVault) Encrypt(plaintext string) (string, error) {
	key, err := v.masterKey()
	if err != nil {
		return "", err
	}
	sealed, err := cryptox.Seal([]byte(plaintext), key)
	if err != nil {
		return "", fmt.Errorf("encrypt: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (v *KeyringVault) Decrypt(ciphertext string) (string, error) {
	key, err := v.masterKey()
	if err != nil {
		return "", err
	}
	sealed, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("decode ciphertext: %w", err)
	}
	plain, err := cryptox.Open(sealed, key)
	if err != nil {
		return "", fmt.Errorf("decrypt: %w", err)
	}
	return string(plain), nil
}

// masterKey loads the key from the keyring, creating it on first use.
// Failures are not cached: a locked keyring may become available later.
func (v *KeyringVault) masterKey() ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.key != nil {
		return v.key, nil
	}

	encoded, err := keyring.Get(v.service, masterKeyAccount)
	switch {
	case errors.Is(err, keyring.ErrNotFound):
		key := cryptox.GenerateKey()
		if err := keyring.Set(v.service, masterKeyAccount, base64.StdEncoding.EncodeToString(key)); err != nil {
			common.WipeByteArray(key)
			return nil, fmt.Errorf("%w: %v", common.ErrEncryptionUnavailable, err)
		}
		v.key = key
		return v.key, nil
	case err != nil:
		return nil, fmt.Errorf("%w: %v", common.ErrEncryptionUnavailable, err)
	}

	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || len(key) != cryptox.KeySize {
		return nil, fmt.Errorf("%w: master key in keyring is malformed", common.ErrEncryptionUnavailable)
	}
	v.key = key
	return v.key, nil
}
