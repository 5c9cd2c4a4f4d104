package cryptoutils

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/ruteri/encrypted-secrets-vault/interfaces"
)

// GCMNonceSize is the fixed IV length of every stored record.
const GCMNonceSize = 12

// DeriveSecretKey computes the AES-256 key for a password token. Deterministic:
// the same token always yields the same key.
func DeriveSecretKey(token interfaces.PasswordToken) [32]byte {
	return sha256.Sum256(token.Bytes())
}

// EncryptSecret encrypts message under the key derived from token using
// AES-256-GCM with a fresh random 12-byte nonce. It returns the authenticated
// ciphertext and the nonce, both of which are stored in the clear; failures
// are reported as ErrEncryptionFailure.
func EncryptSecret(message []byte, token interfaces.PasswordToken) (ciphertext, iv []byte, err error) {
	aesGCM, err := newGCM(token)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", interfaces.ErrEncryptionFailure, err)
	}

	iv = make([]byte, GCMNonceSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, nil, fmt.Errorf("%w: failed to generate IV: %v", interfaces.ErrEncryptionFailure, err)
	}

	ciphertext = aesGCM.Seal(nil, iv, message, nil)
	return ciphertext, iv, nil
}

// DecryptSecret performs the inverse authenticated decryption. It fails with
// ErrAuthenticationFailure if ciphertext and iv were not produced under this
// exact token, and never returns partial or unauthenticated plaintext.
func DecryptSecret(ciphertext, iv []byte, token interfaces.PasswordToken) ([]byte, error) {
	if len(iv) != GCMNonceSize {
		return nil, fmt.Errorf("%w: invalid IV length %d", interfaces.ErrAuthenticationFailure, len(iv))
	}

	aesGCM, err := newGCM(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrAuthenticationFailure, err)
	}

	message, err := aesGCM.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", interfaces.ErrAuthenticationFailure, err)
	}
	return message, nil
}

func newGCM(token interfaces.PasswordToken) (cipher.AEAD, error) {
	key := DeriveSecretKey(token)

	aesBlock, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCMWithNonceSize(aesBlock, GCMNonceSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aesGCM, nil
}
