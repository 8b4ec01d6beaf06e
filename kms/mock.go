package kms

import (
	"context"

	"github.com/ruteri/vault-wallet-custody/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockKeyCustody mocks the KeyCustody interface
type MockKeyCustody struct {
	mock.Mock
}

func publicKeyArg(args mock.Arguments) interfaces.PublicKey {
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(interfaces.PublicKey)
}

func bytesArg(args mock.Arguments) []byte {
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]byte)
}

// GetOrCreateKey mocks the GetOrCreateKey method
func (m *MockKeyCustody) GetOrCreateKey(ctx context.Context, handle interfaces.SigningKeyHandle, token string) (interfaces.PublicKey, error) {
	args := m.Called(ctx, handle, token)
	return publicKeyArg(args), args.Error(1)
}

// PublicKey mocks the PublicKey method
func (m *MockKeyCustody) PublicKey(ctx context.Context, handle interfaces.SigningKeyHandle, token string) (interfaces.PublicKey, error) {
	args := m.Called(ctx, handle, token)
	return publicKeyArg(args), args.Error(1)
}

// ListKeys mocks the ListKeys method
func (m *MockKeyCustody) ListKeys(ctx context.Context, basePath string, token string) ([]interfaces.KeyInfo, error) {
	args := m.Called(ctx, basePath, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]interfaces.KeyInfo), args.Error(1)
}

// Sign mocks the Sign method
func (m *MockKeyCustody) Sign(ctx context.Context, handle interfaces.SigningKeyHandle, payload []byte, token string) ([]byte, error) {
	args := m.Called(ctx, handle, payload, token)
	return bytesArg(args), args.Error(1)
}

// SignAsManager mocks the SignAsManager method
func (m *MockKeyCustody) SignAsManager(ctx context.Context, payload []byte, token string) ([]byte, error) {
	args := m.Called(ctx, payload, token)
	return bytesArg(args), args.Error(1)
}

// ManagerKey mocks the ManagerKey method
func (m *MockKeyCustody) ManagerKey(ctx context.Context, token string) (interfaces.PublicKey, error) {
	args := m.Called(ctx, token)
	return publicKeyArg(args), args.Error(1)
}

// Address mocks the Address method
func (m *MockKeyCustody) Address(pub interfaces.PublicKey) (string, error) {
	args := m.Called(pub)
	return args.String(0), args.Error(1)
}

// MockTokenValidator mocks the TokenValidator interface
type MockTokenValidator struct {
	mock.Mock
}

// Validate mocks the Validate method
func (m *MockTokenValidator) Validate(ctx context.Context, token string) (bool, error) {
	args := m.Called(ctx, token)
	return args.Bool(0), args.Error(1)
}
