// Package cryptox wraps AES-GCM from the standard library into the two
// primitives the vault needs. It never invents its own construction.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"

	"github.com/dmitrijs2005/newsnexus/internal/common"
)

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

var ErrCiphertextTooShort = errors.New("ciphertext too short")

// GenerateKey returns a fresh random AES-256 key.
func GenerateKey() []byte {
	return common.GenerateRandByteArray(KeySize)
}

// Seal encrypts plaintext with AES-GCM under key.
//
// A new random nonce is generated for each call and prepended to the
// ciphertext, so the result is self-contained: nonce || ciphertext || tag.
// The key must be 16, 24 or 32 bytes.
//
// Example:
//
//	key := cryptox.GenerateKey()
//	sealed, err := cryptox.Seal([]byte("token"), key)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	plain, _ := cryptox.Open(sealed, key)
func Seal(plaintext, key []byte) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	nonce := common.GenerateRandByteArray(aesgcm.NonceSize())

	// nonce doubles as the destination prefix
	return aesgcm.Seal(nonce, nonce, plaintext, nil), nil
}

// Open reverses Seal. It fails if the data was tampered with, was sealed
// under a different key, or is shorter than a nonce.
func Open(sealed, key []byte) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	ns := aesgcm.NonceSize()
	if len(sealed) < ns {
		return nil, ErrCiphertextTooShort
	}

	return aesgcm.Open(nil, sealed[:ns], sealed[ns:], nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
