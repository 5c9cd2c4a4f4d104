package storage

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/encrypted-secrets-vault/interfaces"
)

// MemoryStore is an in-memory record store. Used in tests and for running a
// vault without durable storage.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[common.Address][]interfaces.SecretRecord
}

// NewMemoryStore creates an empty in-memory record store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[common.Address][]interfaces.SecretRecord)}
}

// Put persists the record at (owner, index). The ledger hands out dense
// indices, so anything but index == len(records) indicates a caller bug.
func (s *MemoryStore) Put(ctx context.Context, owner common.Address, index uint64, record interfaces.SecretRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index == uint64(len(s.records[owner])) {
		s.records[owner] = append(s.records[owner], record)
		return nil
	}
	if index < uint64(len(s.records[owner])) {
		s.records[owner][index] = record
		return nil
	}
	return interfaces.ErrRecordNotFound
}

// Get retrieves the record at (owner, index).
func (s *MemoryStore) Get(ctx context.Context, owner common.Address, index uint64) (interfaces.SecretRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.records[owner]
	if index >= uint64(len(records)) {
		return interfaces.SecretRecord{}, interfaces.ErrRecordNotFound
	}
	return records[index], nil
}

// Count returns the number of records persisted for owner.
func (s *MemoryStore) Count(ctx context.Context, owner common.Address) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.records[owner])), nil
}

// Available always reports true for the in-memory store.
func (s *MemoryStore) Available(ctx context.Context) bool { return true }

// Name returns a unique identifier for this store.
func (s *MemoryStore) Name() string { return "memory" }

// LocationURI returns the URI identifying this store.
func (s *MemoryStore) LocationURI() string { return "mem://" }
