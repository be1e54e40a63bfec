// Package vault encrypts deployment secret values for storage in the
// ledger. Plaintext exists only in memory while a value is being
// sealed for the database or opened for injection into the cluster.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/KAMRON-DEVELOPER/cloud-compute/pkg/apperrors"
)

const masterKeySize = 32

// hkdfInfo binds the derived data key to this purpose so the master
// key can be shared with other consumers without key reuse.
var hkdfInfo = []byte("cloud-compute/deployment-secrets/v1")

type Vault struct {
	aead cipher.AEAD
}

// New derives the AES-256-GCM data key from the base64 master key.
// A missing or malformed key is a startup failure, not a per-request
// condition.
func New(encodedMasterKey string) (*Vault, error) {
	if encodedMasterKey == "" {
		return nil, apperrors.Encryption("encryption key is not set", nil)
	}

	masterKey, err := base64.StdEncoding.DecodeString(encodedMasterKey)

	if err != nil {
		return nil, apperrors.Encryption("encryption key is not valid base64", err)
	}

	if len(masterKey) != masterKeySize {
		return nil, apperrors.Encryption(
			fmt.Sprintf("encryption key must decode to %d bytes, got %d", masterKeySize, len(masterKey)), nil)
	}

	dataKey := make([]byte, masterKeySize)

	if _, err := io.ReadFull(hkdf.New(sha256.New, masterKey, nil, hkdfInfo), dataKey); err != nil {
		return nil, apperrors.Encryption("failed to derive data key", err)
	}

	block, err := aes.NewCipher(dataKey)

	if err != nil {
		return nil, apperrors.Encryption("failed to initialize cipher", err)
	}

	aead, err := cipher.NewGCM(block)

	if err != nil {
		return nil, apperrors.Encryption("failed to initialize cipher", err)
	}

	return &Vault{aead: aead}, nil
}

// Encrypt seals plaintext and returns nonce||ciphertext.
func (v *Vault) Encrypt(plaintext []byte) ([]byte, error) {
	nonce := make([]byte, v.aead.NonceSize())

	if _, err := rand.Read(nonce); err != nil {
		return nil, apperrors.Encryption("failed to generate nonce", err)
	}

	return v.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a value produced by Encrypt. Truncated or tampered
// input yields a DecryptionError.
func (v *Vault) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < v.aead.NonceSize() {
		return nil, apperrors.Decryption("ciphertext is truncated", nil)
	}

	nonce, sealed := ciphertext[:v.aead.NonceSize()], ciphertext[v.aead.NonceSize():]

	plaintext, err := v.aead.Open(nil, nonce, sealed, nil)

	if err != nil {
		return nil, apperrors.Decryption("failed to decrypt secret value", err)
	}

	return plaintext, nil
}
