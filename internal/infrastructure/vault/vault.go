// Package vault encrypts provider credential blobs before they touch
// persistent storage. The design is envelope encryption: a fresh random
// nonce per call, stored as a prefix of the ciphertext, with AES-256-GCM so
// tampered blobs fail authentication instead of decrypting to garbage.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/bizpulse/backend/internal/domain/erp"
)

// MinKeyBytes is the minimum accepted key material length. The effective
// AES key is always 32 bytes, derived via HKDF.
const MinKeyBytes = 32

// ErrKeyTooShort indicates the configured key material is unusable.
var ErrKeyTooShort = errors.New("vault: key material must be at least 32 bytes")

// hkdfInfo domain-separates the derived key from any other use of the
// same key material.
var hkdfInfo = []byte("bizpulse/erp-credential-vault/v1")

// CredentialVault performs symmetric encryption of erp.Credentials values.
// It is safe for concurrent use.
type CredentialVault struct {
	aead cipher.AEAD
}

// New derives the encryption key from the configured key material and
// prepares the AEAD. Key material shorter than MinKeyBytes is rejected;
// the caller treats that as a fatal configuration error.
func New(keyMaterial []byte) (*CredentialVault, error) {
	if len(keyMaterial) < MinKeyBytes {
		return nil, ErrKeyTooShort
	}

	key := make([]byte, 32)
	kdf := hkdf.New(sha256.New, keyMaterial, nil, hkdfInfo)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("vault: key derivation failed: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: cipher init failed: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vault: GCM init failed: %w", err)
	}
	return &CredentialVault{aead: aead}, nil
}

// Encrypt serializes the credentials and seals them under a fresh random
// nonce. The returned blob is base64(nonce || ciphertext).
func (v *CredentialVault) Encrypt(creds erp.Credentials) (string, error) {
	plaintext, err := json.Marshal(creds)
	if err != nil {
		return "", fmt.Errorf("vault: credential serialization failed: %w", err)
	}

	nonce := make([]byte, v.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("vault: nonce generation failed: %w", err)
	}

	sealed := v.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a blob produced by Encrypt. Malformed encoding, a wrong
// key, a tampered ciphertext, and an unparseable payload all surface as
// erp.ErrDecryptionFailed.
func (v *CredentialVault) Decrypt(blob string) (erp.Credentials, error) {
	var creds erp.Credentials

	sealed, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return creds, fmt.Errorf("%w: invalid encoding", erp.ErrDecryptionFailed)
	}
	if len(sealed) < v.aead.NonceSize() {
		return creds, fmt.Errorf("%w: blob too short", erp.ErrDecryptionFailed)
	}

	nonce, ciphertext := sealed[:v.aead.NonceSize()], sealed[v.aead.NonceSize():]
	plaintext, err := v.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return creds, fmt.Errorf("%w: authentication failed", erp.ErrDecryptionFailed)
	}

	if err := json.Unmarshal(plaintext, &creds); err != nil {
		return creds, fmt.Errorf("%w: payload is not valid credentials", erp.ErrDecryptionFailed)
	}
	return creds, nil
}
