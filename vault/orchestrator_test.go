package vault

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/encrypted-secrets-vault/interfaces"
	"github.com/ruteri/encrypted-secrets-vault/issuer"
	"github.com/ruteri/encrypted-secrets-vault/ledger"
	"github.com/ruteri/encrypted-secrets-vault/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var vaultContract = common.HexToAddress("0x00000000000000000000000000000000000000c0")

type testEnv struct {
	vault  *Vault
	issuer *issuer.SimulatedIssuer
	ledger *ledger.Ledger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	iss := issuer.NewSimulatedIssuer(vaultContract)
	led := ledger.New(storage.NewMemoryStore(), logger)
	return &testEnv{
		vault:  New(led, iss, logger),
		issuer: iss,
		ledger: led,
	}
}

func (env *testEnv) storeFor(t *testing.T, owner common.Address, message, label string) uint64 {
	t.Helper()
	input, err := PrepareStore(env.issuer, owner, []byte(message), label)
	require.NoError(t, err)
	index, err := env.vault.Store(context.Background(), owner, input)
	require.NoError(t, err)
	return index
}

func TestStoreReadRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ownerKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	owner := crypto.PubkeyToAddress(ownerKey.PublicKey)

	index := env.storeFor(t, owner, "My message", "My message")
	assert.Equal(t, uint64(0), index)

	count, err := env.vault.Count(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	record, err := env.vault.Get(ctx, owner, 0)
	require.NoError(t, err)
	assert.Equal(t, "My message", record.Label)
	assert.Positive(t, record.CreatedAt)
	assert.NotEmpty(t, record.Ciphertext)
	assert.Len(t, []byte(record.IV), 12)

	auth, err := issuer.SignDecryptAuthorization(ownerKey, []interfaces.PasswordHandle{record.PasswordHandle}, vaultContract, time.Now().Unix(), issuer.DefaultDurationDays)
	require.NoError(t, err)

	message, err := env.vault.Read(ctx, owner, 0, auth)
	require.NoError(t, err)
	assert.Equal(t, []byte("My message"), message)
}

func TestStoreIsolationBetweenOwners(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	aliceKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	alice := crypto.PubkeyToAddress(aliceKey.PublicKey)
	bobKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	bob := crypto.PubkeyToAddress(bobKey.PublicKey)

	env.storeFor(t, alice, "alice's words", "Alice secret")
	env.storeFor(t, bob, "bob's words", "Bob secret")

	countAlice, err := env.vault.Count(ctx, alice)
	require.NoError(t, err)
	countBob, err := env.vault.Count(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), countAlice)
	assert.Equal(t, uint64(1), countBob)

	recordAlice, err := env.vault.Get(ctx, alice, 0)
	require.NoError(t, err)
	assert.Equal(t, "Alice secret", recordAlice.Label)

	recordBob, err := env.vault.Get(ctx, bob, 0)
	require.NoError(t, err)
	assert.Equal(t, "Bob secret", recordBob.Label)
}

func TestReadRejectsNonOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ownerKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	owner := crypto.PubkeyToAddress(ownerKey.PublicKey)
	strangerKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	env.storeFor(t, owner, "for owner's eyes only", "")

	record, err := env.vault.Get(ctx, owner, 0)
	require.NoError(t, err)

	auth, err := issuer.SignDecryptAuthorization(strangerKey, []interfaces.PasswordHandle{record.PasswordHandle}, vaultContract, time.Now().Unix(), issuer.DefaultDurationDays)
	require.NoError(t, err)

	message, err := env.vault.Read(ctx, owner, 0, auth)
	require.ErrorIs(t, err, interfaces.ErrUnauthorized)
	assert.Nil(t, message)
}

func TestReadIndexOutOfRange(t *testing.T) {
	env := newTestEnv(t)

	ownerKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	owner := crypto.PubkeyToAddress(ownerKey.PublicKey)

	_, err = env.vault.Get(context.Background(), owner, 0)
	require.ErrorIs(t, err, interfaces.ErrIndexOutOfRange)

	_, err = env.vault.Read(context.Background(), owner, 0, interfaces.DecryptAuthorization{})
	require.ErrorIs(t, err, interfaces.ErrIndexOutOfRange)
}

func TestStoreRejectsInvalidProof(t *testing.T) {
	env := newTestEnv(t)

	ownerKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	owner := crypto.PubkeyToAddress(ownerKey.PublicKey)

	input, err := PrepareStore(env.issuer, owner, []byte("never stored"), "label")
	require.NoError(t, err)
	input.Encrypted.Proof[0] ^= 0x01

	_, err = env.vault.Store(context.Background(), owner, input)
	require.ErrorIs(t, err, interfaces.ErrInvalidProof)

	// The failed store must not leave a partial record behind.
	count, err := env.vault.Count(context.Background(), owner)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestReadDetectsTamperedCiphertext(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ownerKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	owner := crypto.PubkeyToAddress(ownerKey.PublicKey)

	env.storeFor(t, owner, "tamper target", "")
	record, err := env.vault.Get(ctx, owner, 0)
	require.NoError(t, err)

	// Append a record whose ciphertext was flipped but whose handle still
	// authorizes the original token.
	tampered := append([]byte{}, record.Ciphertext...)
	tampered[0] ^= 0x01
	_, err = env.ledger.Append(ctx, owner, tampered, record.IV, record.PasswordHandle, "tampered")
	require.NoError(t, err)

	auth, err := issuer.SignDecryptAuthorization(ownerKey, []interfaces.PasswordHandle{record.PasswordHandle}, vaultContract, time.Now().Unix(), issuer.DefaultDurationDays)
	require.NoError(t, err)

	message, err := env.vault.Read(ctx, owner, 1, auth)
	require.ErrorIs(t, err, interfaces.ErrAuthenticationFailure)
	assert.Nil(t, message)

	// The untampered record still decrypts.
	message, err = env.vault.Read(ctx, owner, 0, auth)
	require.NoError(t, err)
	assert.Equal(t, []byte("tamper target"), message)
}

func TestReadPropagatesIssuerErrorVerbatim(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	led := ledger.New(storage.NewMemoryStore(), logger)
	mockIssuer := new(issuer.MockIssuer)
	v := New(led, mockIssuer, logger)
	ctx := context.Background()

	owner := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	var handle interfaces.PasswordHandle
	handle[0] = 0x01
	_, err := led.Append(ctx, owner, []byte{0x01}, make([]byte, 12), handle, "")
	require.NoError(t, err)

	mockIssuer.On("AuthorizeDecrypt", mock.Anything, handle, mock.Anything).
		Return(interfaces.PasswordToken{}, interfaces.ErrUnauthorized)

	_, err = v.Read(ctx, owner, 0, interfaces.DecryptAuthorization{})
	require.ErrorIs(t, err, interfaces.ErrUnauthorized)
	mockIssuer.AssertExpectations(t)
}

func TestListSynthesizesDefaultLabels(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ownerKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	owner := crypto.PubkeyToAddress(ownerKey.PublicKey)

	env.storeFor(t, owner, "one", "named")
	env.storeFor(t, owner, "two", "")

	entries, err := env.vault.List(ctx, owner)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "named", entries[0].DisplayLabel)
	assert.Equal(t, "Secret #2", entries[1].DisplayLabel)
	assert.Empty(t, entries[1].Record.Label)
}
