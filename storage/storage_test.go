package storage

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/encrypted-secrets-vault/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecord(label string) interfaces.SecretRecord {
	var handle interfaces.PasswordHandle
	handle[0] = 0x42
	return interfaces.SecretRecord{
		Ciphertext:     []byte{0x11, 0x22, 0x33},
		IV:             []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12},
		PasswordHandle: handle,
		CreatedAt:      1700000000,
		Label:          label,
	}
}

func runRecordStoreSuite(t *testing.T, store interfaces.RecordStore) {
	ctx := context.Background()
	alice := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob := common.HexToAddress("0x00000000000000000000000000000000000000b1")

	count, err := store.Count(ctx, alice)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = store.Get(ctx, alice, 0)
	require.ErrorIs(t, err, interfaces.ErrRecordNotFound)

	require.NoError(t, store.Put(ctx, alice, 0, testRecord("first")))
	require.NoError(t, store.Put(ctx, alice, 1, testRecord("second")))
	require.NoError(t, store.Put(ctx, bob, 0, testRecord("bob's")))

	count, err = store.Count(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)

	count, err = store.Count(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	record, err := store.Get(ctx, alice, 1)
	require.NoError(t, err)
	assert.Equal(t, testRecord("second"), record)

	record, err = store.Get(ctx, bob, 0)
	require.NoError(t, err)
	assert.Equal(t, "bob's", record.Label)

	_, err = store.Get(ctx, alice, 2)
	require.ErrorIs(t, err, interfaces.ErrRecordNotFound)

	assert.True(t, store.Available(ctx))
}

func TestMemoryStore(t *testing.T) {
	runRecordStoreSuite(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store, err := NewFileStore(t.TempDir(), logger)
	require.NoError(t, err)
	runRecordStoreSuite(t, store)
}

func TestFileStoreSurvivesReopen(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()
	owner := common.HexToAddress("0x00000000000000000000000000000000000000a1")

	store, err := NewFileStore(dir, logger)
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), owner, 0, testRecord("persisted")))

	reopened, err := NewFileStore(dir, logger)
	require.NoError(t, err)

	count, err := reopened.Count(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	record, err := reopened.Get(context.Background(), owner, 0)
	require.NoError(t, err)
	assert.Equal(t, "persisted", record.Label)
}

func TestRecordStoreFactory(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	factory := NewRecordStoreFactory(logger)

	store, err := factory.RecordStoreFor("mem://")
	require.NoError(t, err)
	assert.Equal(t, "memory", store.Name())

	store, err = factory.RecordStoreFor("file://" + t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, store.Name(), "file-")

	store, err = factory.RecordStoreFor("s3://records-bucket/vault?region=eu-west-1")
	require.NoError(t, err)
	assert.Equal(t, "s3-records-bucket", store.Name())

	store, err = factory.RecordStoreFor("vault://127.0.0.1:8200/secret/records?token=dev&scheme=http")
	require.NoError(t, err)
	assert.Equal(t, "vault-records", store.Name())

	_, err = factory.RecordStoreFor("ftp://nope")
	require.Error(t, err)

	_, err = factory.RecordStoreFor("vault://127.0.0.1:8200/onlymount")
	require.Error(t, err)
}
