package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ruteri/vault-wallet-custody/api"
	"github.com/ruteri/vault-wallet-custody/interfaces"
	"github.com/stretchr/testify/mock"
)

// WalletClient implements api.WalletProvider over HTTP.
type WalletClient struct {
	// ServerAddr is the base URL of the wallet server
	ServerAddr string

	// Token is the secret store session token sent as a bearer token
	Token string

	// HTTPClient is used for requests. http.DefaultClient if nil.
	HTTPClient *http.Client
}

// NewWalletClient creates a client for the wallet server at serverAddr.
func NewWalletClient(serverAddr, token string) *WalletClient {
	return &WalletClient{
		ServerAddr: strings.TrimRight(serverAddr, "/"),
		Token:      token,
	}
}

// ListUsers returns every user wallet.
func (c *WalletClient) ListUsers(ctx context.Context) ([]api.UserInfo, error) {
	var users []api.UserInfo
	if err := c.do(ctx, http.MethodGet, "/wallet/users/", nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// GetUser returns an existing user's wallet.
func (c *WalletClient) GetUser(ctx context.Context, userID string) (*api.UserInfo, error) {
	var info api.UserInfo
	if err := c.do(ctx, http.MethodGet, "/wallet/users/"+url.PathEscape(userID), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// CreateUser returns the user's wallet, creating the key on first use.
func (c *WalletClient) CreateUser(ctx context.Context, userID string) (*api.UserInfo, error) {
	var info api.UserInfo
	if err := c.do(ctx, http.MethodPost, "/wallet/user/", api.CreateUserRequest{UserID: userID}, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// GetManager returns the manager wallet.
func (c *WalletClient) GetManager(ctx context.Context) (*api.ManagerInfo, error) {
	var info api.ManagerInfo
	if err := c.do(ctx, http.MethodGet, "/wallet/manager/", nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// SignAsUser signs payload with a user's key.
func (c *WalletClient) SignAsUser(ctx context.Context, userID string, payload []byte) ([]byte, error) {
	var resp api.SignResponse
	path := "/wallet/users/" + url.PathEscape(userID) + "/sign"
	if err := c.do(ctx, http.MethodPost, path, api.SignRequest{Payload: payload}, &resp); err != nil {
		return nil, err
	}
	return resp.Signature, nil
}

// SignAsManager signs payload with the manager key.
func (c *WalletClient) SignAsManager(ctx context.Context, payload []byte) ([]byte, error) {
	var resp api.SignResponse
	if err := c.do(ctx, http.MethodPost, "/wallet/manager/sign", api.SignRequest{Payload: payload}, &resp); err != nil {
		return nil, err
	}
	return resp.Signature, nil
}

// CreateAsset creates an asset owned by the manager.
func (c *WalletClient) CreateAsset(ctx context.Context, req api.CreateAssetRequest) (*api.TransactionResponse, error) {
	return c.transaction(ctx, "/wallet/transactions/create-asset", req)
}

// TransferAsset sends asset units from the manager to a user.
func (c *WalletClient) TransferAsset(ctx context.Context, req api.TransferAssetRequest) (*api.TransactionResponse, error) {
	return c.transaction(ctx, "/wallet/transactions/transfer-asset", req)
}

// ClawbackAsset returns asset units from a user to the manager.
func (c *WalletClient) ClawbackAsset(ctx context.Context, req api.ClawbackAssetRequest) (*api.TransactionResponse, error) {
	return c.transaction(ctx, "/wallet/transactions/clawback-asset", req)
}

// GetUserAssets returns a user's balance and asset holdings.
func (c *WalletClient) GetUserAssets(ctx context.Context, userID string) (*api.UserAssets, error) {
	var assets api.UserAssets
	if err := c.do(ctx, http.MethodGet, "/wallet/users/"+url.PathEscape(userID)+"/assets", nil, &assets); err != nil {
		return nil, err
	}
	return &assets, nil
}

func (c *WalletClient) transaction(ctx context.Context, path string, req any) (*api.TransactionResponse, error) {
	var resp api.TransactionResponse
	if err := c.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// do sends a request and decodes a 2xx JSON response into out. Error
// responses are returned as *interfaces.CustodyError so callers can match
// them with errors.Is.
func (c *WalletClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("could not encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.ServerAddr+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(api.AuthorizationHeader, api.BearerPrefix+c.Token)

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("could not request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return responseError(method, path, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("could not parse response: %w", err)
	}
	return nil
}

func responseError(method, path string, resp *http.Response) error {
	ce := &interfaces.CustodyError{
		Kind:   kindForStatus(resp.StatusCode),
		Status: resp.StatusCode,
		Op:     method + " " + path,
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		ce.Err = fmt.Errorf("wallet server returned %d", resp.StatusCode)
		return ce
	}

	var errResp api.ErrorResponse
	if json.Unmarshal(bodyBytes, &errResp) == nil && errResp.Error != "" {
		ce.Err = errors.New(errResp.Error)
	} else {
		ce.Err = errors.New(strings.TrimSpace(string(bodyBytes)))
	}
	return ce
}

func kindForStatus(status int) interfaces.ErrorKind {
	switch status {
	case http.StatusUnauthorized:
		return interfaces.KindUnauthorized
	case http.StatusForbidden:
		return interfaces.KindForbidden
	case http.StatusNotFound:
		return interfaces.KindNotFound
	case http.StatusBadGateway:
		return interfaces.KindProtocol
	default:
		return interfaces.KindInternal
	}
}

// MockWalletProvider implements mock api.WalletProvider and api.AssetProvider
// for testing.
type MockWalletProvider struct {
	mock.Mock
}

func (m *MockWalletProvider) ListUsers(ctx context.Context) ([]api.UserInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]api.UserInfo), args.Error(1)
}

func (m *MockWalletProvider) GetUser(ctx context.Context, userID string) (*api.UserInfo, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.UserInfo), args.Error(1)
}

func (m *MockWalletProvider) CreateUser(ctx context.Context, userID string) (*api.UserInfo, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.UserInfo), args.Error(1)
}

func (m *MockWalletProvider) GetManager(ctx context.Context) (*api.ManagerInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.ManagerInfo), args.Error(1)
}

func (m *MockWalletProvider) SignAsUser(ctx context.Context, userID string, payload []byte) ([]byte, error) {
	args := m.Called(ctx, userID, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockWalletProvider) SignAsManager(ctx context.Context, payload []byte) ([]byte, error) {
	args := m.Called(ctx, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockWalletProvider) CreateAsset(ctx context.Context, req api.CreateAssetRequest) (*api.TransactionResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.TransactionResponse), args.Error(1)
}

func (m *MockWalletProvider) TransferAsset(ctx context.Context, req api.TransferAssetRequest) (*api.TransactionResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.TransactionResponse), args.Error(1)
}

func (m *MockWalletProvider) ClawbackAsset(ctx context.Context, req api.ClawbackAssetRequest) (*api.TransactionResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.TransactionResponse), args.Error(1)
}

func (m *MockWalletProvider) GetUserAssets(ctx context.Context, userID string) (*api.UserAssets, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.UserAssets), args.Error(1)
}
