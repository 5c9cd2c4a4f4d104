package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ruteri/encrypted-secrets-vault/interfaces"
)

// Ledger is the append-only store of secret records. All appends go through
// one mutex: each observes the count left by the previous one, so no two
// records for the same owner ever share an index.
type Ledger struct {
	store interfaces.RecordStore
	log   *slog.Logger
	now   func() int64

	mu          sync.Mutex
	lastCreated map[common.Address]int64

	storedFeed event.Feed
}

// New creates a ledger over the given record store.
func New(store interfaces.RecordStore, log *slog.Logger) *Ledger {
	return &Ledger{
		store:       store,
		log:         log,
		now:         func() int64 { return time.Now().Unix() },
		lastCreated: make(map[common.Address]int64),
	}
}

// WithClock returns the ledger with a custom time source, used in tests.
func (l *Ledger) WithClock(now func() int64) *Ledger {
	l.now = now
	return l
}

// Append stores a new record under owner. The index is the owner's count at
// append time and createdAt is the ledger clock, clamped so it never
// decreases within an owner's sequence. Never rejects based on content.
func (l *Ledger) Append(ctx context.Context, owner common.Address, ciphertext, iv []byte, handle interfaces.PasswordHandle, label string) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	index, err := l.store.Count(ctx, owner)
	if err != nil {
		return 0, fmt.Errorf("failed to determine next index: %w", err)
	}

	createdAt := l.now()
	if last := l.lastCreated[owner]; createdAt < last {
		createdAt = last
	}

	record := interfaces.SecretRecord{
		Ciphertext:     append([]byte{}, ciphertext...),
		IV:             append([]byte{}, iv...),
		PasswordHandle: handle,
		CreatedAt:      createdAt,
		Label:          label,
	}

	if err := l.store.Put(ctx, owner, index, record); err != nil {
		return 0, fmt.Errorf("failed to persist record: %w", err)
	}
	l.lastCreated[owner] = createdAt

	l.log.Info("Secret stored",
		slog.String("owner", owner.Hex()),
		slog.Uint64("index", index))

	l.storedFeed.Send(interfaces.SecretStoredEvent{Owner: owner, Index: index, Label: label})
	return index, nil
}

// Count returns the number of records stored for owner.
func (l *Ledger) Count(ctx context.Context, owner common.Address) (uint64, error) {
	return l.store.Count(ctx, owner)
}

// Get returns the record exactly as stored. Fails with ErrIndexOutOfRange
// for any index that was never assigned.
func (l *Ledger) Get(ctx context.Context, owner common.Address, index uint64) (interfaces.SecretRecord, error) {
	record, err := l.store.Get(ctx, owner, index)
	if errors.Is(err, interfaces.ErrRecordNotFound) {
		return interfaces.SecretRecord{}, interfaces.ErrIndexOutOfRange
	}
	if err != nil {
		return interfaces.SecretRecord{}, err
	}
	return record, nil
}

// SubscribeStored delivers one SecretStoredEvent per successful append.
func (l *Ledger) SubscribeStored(ch chan<- interfaces.SecretStoredEvent) event.Subscription {
	return l.storedFeed.Subscribe(ch)
}
