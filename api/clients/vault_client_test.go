package clients

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/go-chi/chi/v5"
	"github.com/ruteri/encrypted-secrets-vault/httpserver"
	"github.com/ruteri/encrypted-secrets-vault/interfaces"
	"github.com/ruteri/encrypted-secrets-vault/issuer"
	"github.com/ruteri/encrypted-secrets-vault/ledger"
	"github.com/ruteri/encrypted-secrets-vault/storage"
	"github.com/ruteri/encrypted-secrets-vault/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testContract = common.HexToAddress("0x00000000000000000000000000000000c0ffee02")

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	iss := issuer.NewSimulatedIssuer(testContract)
	led := ledger.New(storage.NewMemoryStore(), logger)
	handler := httpserver.NewHandler(vault.New(led, iss, logger), iss, logger)

	mux := chi.NewRouter()
	mux.Post("/api/issuer/token", handler.HandleEncryptToken)
	mux.Post("/api/vault/{owner}/secrets", handler.HandleStore)
	mux.Get("/api/vault/{owner}/secrets", handler.HandleList)
	mux.Get("/api/vault/{owner}/secrets/count", handler.HandleCount)
	mux.Get("/api/vault/{owner}/secrets/{index}", handler.HandleGet)
	mux.Post("/api/vault/{owner}/secrets/{index}/read", handler.HandleRead)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestVaultClientRoundTrip(t *testing.T) {
	srv := newTestServer(t)
	client := &VaultClient{ServerAddr: srv.URL}
	ctx := context.Background()

	ownerKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	owner := crypto.PubkeyToAddress(ownerKey.PublicKey)

	index, err := client.Store(ctx, owner, []byte("db password"), "prod db")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), index)

	count, err := client.Count(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	record, err := client.Get(ctx, owner, 0)
	require.NoError(t, err)
	assert.NotContains(t, string(record.Ciphertext), "db password")

	auth, err := issuer.SignDecryptAuthorization(ownerKey,
		[]interfaces.PasswordHandle{record.PasswordHandle}, testContract,
		time.Now().Unix(), issuer.DefaultDurationDays)
	require.NoError(t, err)

	read, err := client.Read(ctx, owner, 0, auth)
	require.NoError(t, err)
	assert.Equal(t, "db password", read.Message)
	assert.Equal(t, "prod db", read.DisplayLabel)
}

func TestVaultClientListAndErrors(t *testing.T) {
	srv := newTestServer(t)
	client := &VaultClient{ServerAddr: srv.URL}
	ctx := context.Background()

	ownerKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	owner := crypto.PubkeyToAddress(ownerKey.PublicKey)

	_, err = client.Store(ctx, owner, []byte("one"), "")
	require.NoError(t, err)
	_, err = client.Store(ctx, owner, []byte("two"), "second")
	require.NoError(t, err)

	entries, err := client.List(ctx, owner)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Secret #1", entries[0].DisplayLabel)
	assert.Equal(t, "second", entries[1].DisplayLabel)

	_, err = client.Get(ctx, owner, 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secret index out of range")
}
