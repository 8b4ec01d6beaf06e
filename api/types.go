package api

import "context"

// AuthorizationHeader carries the caller's secret store session token as
// "Bearer <token>".
const AuthorizationHeader = "Authorization"

// BearerPrefix precedes the token in AuthorizationHeader.
const BearerPrefix = "Bearer "

// WalletProvider defines the operations exposed by the wallet HTTP API.
// It is implemented by the HTTP client and mirrors the server routes.
type WalletProvider interface {
	// ListUsers returns every user wallet in the order the store lists them.
	ListUsers(ctx context.Context) ([]UserInfo, error)

	// GetUser returns an existing user's wallet address.
	GetUser(ctx context.Context, userID string) (*UserInfo, error)

	// CreateUser returns the user's wallet address, creating the key on first use.
	CreateUser(ctx context.Context, userID string) (*UserInfo, error)

	// GetManager returns the manager's wallet address.
	GetManager(ctx context.Context) (*ManagerInfo, error)

	// SignAsUser signs payload with the user's key.
	SignAsUser(ctx context.Context, userID string, payload []byte) ([]byte, error)

	// SignAsManager signs payload with the manager key.
	SignAsManager(ctx context.Context, payload []byte) ([]byte, error)
}

// UserInfo describes a user wallet.
type UserInfo struct {
	UserID        string `json:"user_id"`
	PublicAddress string `json:"public_address"`
}

// CreateUserRequest is the body of POST /wallet/user/.
type CreateUserRequest struct {
	UserID string `json:"user_id"`
}

// ManagerInfo describes the manager wallet.
type ManagerInfo struct {
	PublicAddress string `json:"public_address"`
}

// SignRequest is the body of the sign routes. Payload is base64 in JSON.
type SignRequest struct {
	Payload []byte `json:"payload"`
}

// SignResponse carries a raw signature, base64 in JSON.
type SignResponse struct {
	Signature []byte `json:"signature"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// AssetProvider defines the on-chain asset operations of the wallet HTTP
// API. They are served only when the server is connected to algod.
type AssetProvider interface {
	// CreateAsset creates an asset owned by the manager.
	CreateAsset(ctx context.Context, req CreateAssetRequest) (*TransactionResponse, error)

	// TransferAsset sends asset units from the manager to a user, opting the
	// user in first if needed.
	TransferAsset(ctx context.Context, req TransferAssetRequest) (*TransactionResponse, error)

	// ClawbackAsset returns asset units from a user to the manager.
	ClawbackAsset(ctx context.Context, req ClawbackAssetRequest) (*TransactionResponse, error)

	// GetUserAssets returns a user's balance and asset holdings.
	GetUserAssets(ctx context.Context, userID string) (*UserAssets, error)
}

// CreateAssetRequest is the body of POST /wallet/transactions/create-asset.
type CreateAssetRequest struct {
	Total         uint64 `json:"total"`
	Decimals      uint32 `json:"decimals"`
	DefaultFrozen bool   `json:"default_frozen"`
	UnitName      string `json:"unit_name"`
	AssetName     string `json:"asset_name"`
	URL           string `json:"url,omitempty"`
	Note          []byte `json:"note,omitempty"`
}

// TransferAssetRequest is the body of POST /wallet/transactions/transfer-asset.
type TransferAssetRequest struct {
	AssetID uint64 `json:"asset_id"`
	UserID  string `json:"user_id"`
	Amount  uint64 `json:"amount"`
	Note    []byte `json:"note,omitempty"`
	Lease   []byte `json:"lease,omitempty"`
}

// ClawbackAssetRequest is the body of POST /wallet/transactions/clawback-asset.
type ClawbackAssetRequest struct {
	AssetID uint64 `json:"asset_id"`
	UserID  string `json:"user_id"`
	Amount  uint64 `json:"amount"`
	Note    []byte `json:"note,omitempty"`
}

// TransactionResponse carries the id of a submitted transaction.
type TransactionResponse struct {
	TransactionID string `json:"transaction_id"`
}

type AssetHolding struct {
	AssetID  uint64 `json:"asset_id"`
	Amount   uint64 `json:"amount"`
	IsFrozen bool   `json:"is_frozen"`
}

// UserAssets describes the on-chain state of a user wallet.
type UserAssets struct {
	UserID        string         `json:"user_id"`
	PublicAddress string         `json:"public_address"`
	AlgoBalance   uint64         `json:"algo_balance"`
	Assets        []AssetHolding `json:"assets"`
}
