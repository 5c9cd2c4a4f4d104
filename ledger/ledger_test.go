package ledger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/encrypted-secrets-vault/interfaces"
	"github.com/ruteri/encrypted-secrets-vault/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob   = common.HexToAddress("0x00000000000000000000000000000000000000b1")
)

func newTestLedger() *Ledger {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(storage.NewMemoryStore(), logger)
}

func testHandle(b byte) interfaces.PasswordHandle {
	var handle interfaces.PasswordHandle
	handle[0] = b
	return handle
}

func TestAppendAssignsDenseIndices(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()

	const n = 5
	for i := 0; i < n; i++ {
		index, err := l.Append(ctx, alice, []byte{0x11}, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, testHandle(byte(i)), fmt.Sprintf("secret %d", i))
		require.NoError(t, err)
		assert.Equal(t, uint64(i), index)
	}

	count, err := l.Count(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(n), count)

	for i := 0; i < n; i++ {
		record, err := l.Get(ctx, alice, uint64(i))
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("secret %d", i), record.Label)
		assert.Positive(t, record.CreatedAt)
	}

	_, err = l.Get(ctx, alice, n)
	require.ErrorIs(t, err, interfaces.ErrIndexOutOfRange)
}

func TestGetBeforeAnyStore(t *testing.T) {
	l := newTestLedger()

	count, err := l.Count(context.Background(), alice)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = l.Get(context.Background(), alice, 0)
	require.ErrorIs(t, err, interfaces.ErrIndexOutOfRange)
}

func TestOwnersAreIsolated(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()

	_, err := l.Append(ctx, alice, []byte{0x11, 0x22}, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, testHandle(0xa1), "Alice secret")
	require.NoError(t, err)
	_, err = l.Append(ctx, bob, []byte{0x11, 0x22}, []byte{12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1}, testHandle(0xb1), "Bob secret")
	require.NoError(t, err)

	countAlice, err := l.Count(ctx, alice)
	require.NoError(t, err)
	countBob, err := l.Count(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), countAlice)
	assert.Equal(t, uint64(1), countBob)

	recordAlice, err := l.Get(ctx, alice, 0)
	require.NoError(t, err)
	assert.Equal(t, "Alice secret", recordAlice.Label)

	recordBob, err := l.Get(ctx, bob, 0)
	require.NoError(t, err)
	assert.Equal(t, "Bob secret", recordBob.Label)

	_, err = l.Get(ctx, alice, 1)
	require.ErrorIs(t, err, interfaces.ErrIndexOutOfRange)
}

func TestConcurrentAppendsStayDense(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()

	const n = 32
	indices := make(chan uint64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			index, err := l.Append(ctx, alice, []byte{0x01}, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}, testHandle(0x01), "concurrent")
			assert.NoError(t, err)
			indices <- index
		}()
	}
	wg.Wait()
	close(indices)

	seen := make(map[uint64]bool)
	for index := range indices {
		assert.False(t, seen[index], "index %d assigned twice", index)
		seen[index] = true
	}
	assert.Len(t, seen, n)

	count, err := l.Count(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(n), count)
}

func TestCreatedAtMonotonicPerOwner(t *testing.T) {
	clock := int64(1000)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	l := New(storage.NewMemoryStore(), logger).WithClock(func() int64 { return clock })
	ctx := context.Background()

	_, err := l.Append(ctx, alice, []byte{0x01}, make([]byte, 12), testHandle(1), "first")
	require.NoError(t, err)

	// Clock going backwards must not produce a decreasing createdAt.
	clock = 900
	_, err = l.Append(ctx, alice, []byte{0x02}, make([]byte, 12), testHandle(2), "second")
	require.NoError(t, err)

	first, err := l.Get(ctx, alice, 0)
	require.NoError(t, err)
	second, err := l.Get(ctx, alice, 1)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, second.CreatedAt, first.CreatedAt)
}

func TestStoredEventEmitted(t *testing.T) {
	l := newTestLedger()

	events := make(chan interfaces.SecretStoredEvent, 1)
	sub := l.SubscribeStored(events)
	defer sub.Unsubscribe()

	index, err := l.Append(context.Background(), alice, []byte{0x01}, make([]byte, 12), testHandle(1), "My message")
	require.NoError(t, err)

	evt := <-events
	assert.Equal(t, alice, evt.Owner)
	assert.Equal(t, index, evt.Index)
	assert.Equal(t, "My message", evt.Label)
}

func TestRecordsAreImmutableCopies(t *testing.T) {
	l := newTestLedger()
	ctx := context.Background()

	ciphertext := []byte{0x11, 0x22, 0x33}
	iv := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	_, err := l.Append(ctx, alice, ciphertext, iv, testHandle(1), "immutable")
	require.NoError(t, err)

	// Mutating the caller's buffers must not affect the stored record.
	ciphertext[0] = 0xff
	iv[0] = 0xff

	record, err := l.Get(ctx, alice, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x11, 0x22, 0x33}, []byte(record.Ciphertext))
	assert.Equal(t, byte(1), record.IV[0])
}
