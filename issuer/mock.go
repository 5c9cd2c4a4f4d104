package issuer

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/encrypted-secrets-vault/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockIssuer mocks the PasswordIssuer interface
type MockIssuer struct {
	mock.Mock
}

// Issue mocks the Issue method
func (m *MockIssuer) Issue(ctx context.Context, input interfaces.EncryptedTokenInput, submitter common.Address) (interfaces.PasswordHandle, error) {
	args := m.Called(ctx, input, submitter)
	return args.Get(0).(interfaces.PasswordHandle), args.Error(1)
}

// AuthorizeDecrypt mocks the AuthorizeDecrypt method
func (m *MockIssuer) AuthorizeDecrypt(ctx context.Context, handle interfaces.PasswordHandle, auth interfaces.DecryptAuthorization) (interfaces.PasswordToken, error) {
	args := m.Called(ctx, handle, auth)
	return args.Get(0).(interfaces.PasswordToken), args.Error(1)
}
