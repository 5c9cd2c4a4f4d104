package ledger

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ruteri/encrypted-secrets-vault/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockLedger mocks the SecretLedger interface
type MockLedger struct {
	mock.Mock
}

// Append mocks the Append method
func (m *MockLedger) Append(ctx context.Context, owner common.Address, ciphertext, iv []byte, handle interfaces.PasswordHandle, label string) (uint64, error) {
	args := m.Called(ctx, owner, ciphertext, iv, handle, label)
	return args.Get(0).(uint64), args.Error(1)
}

// Count mocks the Count method
func (m *MockLedger) Count(ctx context.Context, owner common.Address) (uint64, error) {
	args := m.Called(ctx, owner)
	return args.Get(0).(uint64), args.Error(1)
}

// Get mocks the Get method
func (m *MockLedger) Get(ctx context.Context, owner common.Address, index uint64) (interfaces.SecretRecord, error) {
	args := m.Called(ctx, owner, index)
	return args.Get(0).(interfaces.SecretRecord), args.Error(1)
}

// SubscribeStored mocks the SubscribeStored method
func (m *MockLedger) SubscribeStored(ch chan<- interfaces.SecretStoredEvent) event.Subscription {
	args := m.Called(ch)
	return args.Get(0).(event.Subscription)
}
