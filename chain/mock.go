package chain

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockAssetService mocks the asset operations of Service
type MockAssetService struct {
	mock.Mock
}

func (m *MockAssetService) CreateAsset(ctx context.Context, params AssetParams, token string) (string, error) {
	args := m.Called(ctx, params, token)
	return args.String(0), args.Error(1)
}

func (m *MockAssetService) TransferAsset(ctx context.Context, req TransferRequest, token string) (string, error) {
	args := m.Called(ctx, req, token)
	return args.String(0), args.Error(1)
}

func (m *MockAssetService) ClawbackAsset(ctx context.Context, req ClawbackRequest, token string) (string, error) {
	args := m.Called(ctx, req, token)
	return args.String(0), args.Error(1)
}

func (m *MockAssetService) UserAssets(ctx context.Context, userID string, token string) (*AccountAssets, error) {
	args := m.Called(ctx, userID, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*AccountAssets), args.Error(1)
}
