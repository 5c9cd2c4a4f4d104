package cryptoutils

import (
	"testing"

	"github.com/ruteri/encrypted-secrets-vault/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	token, err := interfaces.NewRandomPasswordToken()
	require.NoError(t, err)

	message := []byte("My message")
	ciphertext, iv, err := EncryptSecret(message, token)
	require.NoError(t, err)
	require.Len(t, iv, GCMNonceSize)
	require.NotEqual(t, message, ciphertext)

	decrypted, err := DecryptSecret(ciphertext, iv, token)
	require.NoError(t, err)
	assert.Equal(t, message, decrypted)
}

func TestDeriveSecretKeyDeterministic(t *testing.T) {
	token, err := interfaces.NewPasswordTokenFromHex("0x00000000000000000000000000000000000000aa")
	require.NoError(t, err)

	key1 := DeriveSecretKey(token)
	key2 := DeriveSecretKey(token)
	assert.Equal(t, key1, key2)

	other, err := interfaces.NewPasswordTokenFromHex("0x00000000000000000000000000000000000000ab")
	require.NoError(t, err)
	assert.NotEqual(t, key1, DeriveSecretKey(other))
}

func TestDecryptWrongTokenFails(t *testing.T) {
	token, err := interfaces.NewRandomPasswordToken()
	require.NoError(t, err)

	ciphertext, iv, err := EncryptSecret([]byte("secret payload"), token)
	require.NoError(t, err)

	wrong, err := interfaces.NewRandomPasswordToken()
	require.NoError(t, err)

	_, err = DecryptSecret(ciphertext, iv, wrong)
	require.ErrorIs(t, err, interfaces.ErrAuthenticationFailure)
}

func TestDecryptTamperedDataFails(t *testing.T) {
	token, err := interfaces.NewRandomPasswordToken()
	require.NoError(t, err)

	ciphertext, iv, err := EncryptSecret([]byte("tamper me"), token)
	require.NoError(t, err)

	for bit := range ciphertext {
		mutated := make([]byte, len(ciphertext))
		copy(mutated, ciphertext)
		mutated[bit] ^= 0x01

		_, err := DecryptSecret(mutated, iv, token)
		require.ErrorIs(t, err, interfaces.ErrAuthenticationFailure)
	}

	mutatedIV := make([]byte, len(iv))
	copy(mutatedIV, iv)
	mutatedIV[0] ^= 0x01
	_, err = DecryptSecret(ciphertext, mutatedIV, token)
	require.ErrorIs(t, err, interfaces.ErrAuthenticationFailure)
}

func TestDecryptRejectsBadIVLength(t *testing.T) {
	token, err := interfaces.NewRandomPasswordToken()
	require.NoError(t, err)

	ciphertext, iv, err := EncryptSecret([]byte("payload"), token)
	require.NoError(t, err)

	_, err = DecryptSecret(ciphertext, iv[:8], token)
	require.ErrorIs(t, err, interfaces.ErrAuthenticationFailure)
}

func TestFreshIVPerEncryption(t *testing.T) {
	token, err := interfaces.NewRandomPasswordToken()
	require.NoError(t, err)

	_, iv1, err := EncryptSecret([]byte("same message"), token)
	require.NoError(t, err)
	_, iv2, err := EncryptSecret([]byte("same message"), token)
	require.NoError(t, err)

	assert.NotEqual(t, iv1, iv2)
}
