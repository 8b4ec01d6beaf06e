package clients

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/algorand/go-algorand-sdk/v2/types"
	"github.com/ruteri/vault-wallet-custody/api"
	"github.com/ruteri/vault-wallet-custody/chain"
	"github.com/ruteri/vault-wallet-custody/chain/algodtest"
	"github.com/ruteri/vault-wallet-custody/cryptoutils"
	"github.com/ruteri/vault-wallet-custody/httpserver"
	"github.com/ruteri/vault-wallet-custody/interfaces"
	"github.com/ruteri/vault-wallet-custody/kms"
	"github.com/ruteri/vault-wallet-custody/vault"
	"github.com/ruteri/vault-wallet-custody/vault/vaulttest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ api.WalletProvider = (*WalletClient)(nil)
var _ api.WalletProvider = (*MockWalletProvider)(nil)
var _ api.AssetProvider = (*WalletClient)(nil)
var _ api.AssetProvider = (*MockWalletProvider)(nil)

func startWallet(t *testing.T) (*vaulttest.Server, string) {
	vaultSrv, addr, _ := startWalletWithAlgod(t, nil)
	return vaultSrv, addr
}

// startWalletWithAlgod serves the wallet API, with the asset routes if
// algodSrv is not nil.
func startWalletWithAlgod(t *testing.T, algodSrv *algodtest.Server) (*vaulttest.Server, string, *kms.VaultCustody) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	vaultSrv := vaulttest.New(t, "token")

	transport, err := vault.NewTransport(vault.TransportConfig{Address: vaultSrv.URL, Timeout: 5 * time.Second}, logger)
	require.NoError(t, err)
	custody, err := kms.NewVaultCustody(transport, kms.VaultConfig{BaseURL: vaultSrv.URL, ManagerKey: "manager"}, logger)
	require.NoError(t, err)

	handler := httpserver.NewHandler(custody, kms.NewTokenValidator(transport, logger), custody.Config().UsersPath, logger)
	if algodSrv != nil {
		algodClient, err := chain.NewAlgodClient(algodSrv.URL, "algod-token")
		require.NoError(t, err)
		handler.WithAssetService(chain.NewService(custody, algodClient, custody.Config().UsersPath, logger))
	}
	srv, err := httpserver.New(&api.HTTPServerConfig{Log: logger}, handler)
	require.NoError(t, err)

	walletSrv := httptest.NewServer(srv.Handler())
	t.Cleanup(walletSrv.Close)
	return vaultSrv, walletSrv.URL, custody
}

func TestWalletClient_Flow(t *testing.T) {
	vaultSrv, addr := startWallet(t)
	client := NewWalletClient(addr+"/", "token")
	ctx := context.Background()

	users, err := client.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	created, err := client.CreateUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", created.UserID)

	fetched, err := client.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, created, fetched)

	users, err = client.ListUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []api.UserInfo{*created}, users)

	payload := []byte("transfer 10")
	sig, err := client.SignAsUser(ctx, "alice", payload)
	require.NoError(t, err)
	assert.True(t, cryptoutils.VerifySignature(vaultSrv.LatestPublicKey("transit/users", "alice"), payload, sig))

	manager, err := client.GetManager(ctx)
	require.NoError(t, err)
	managerPub, err := cryptoutils.DecodeAddress(manager.PublicAddress)
	require.NoError(t, err)

	sig, err = client.SignAsManager(ctx, payload)
	require.NoError(t, err)
	assert.True(t, cryptoutils.VerifySignature(managerPub, payload, sig))
}

func TestWalletClient_Errors(t *testing.T) {
	_, addr := startWallet(t)
	ctx := context.Background()

	_, err := NewWalletClient(addr, "token").GetUser(ctx, "nobody")
	assert.True(t, errors.Is(err, interfaces.ErrNotFound))

	var ce *interfaces.CustodyError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, http.StatusNotFound, ce.Status)

	_, err = NewWalletClient(addr, "bad-token").ListUsers(ctx)
	assert.True(t, errors.Is(err, interfaces.ErrForbidden))

	_, err = NewWalletClient(addr, "").GetManager(ctx)
	assert.True(t, errors.Is(err, interfaces.ErrUnauthorized))

	_, err = NewWalletClient(addr, "token").CreateUser(ctx, "")
	require.Error(t, err)
	assert.Equal(t, interfaces.KindInternal, interfaces.KindOf(err))
}

func TestWalletClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := NewWalletClient(addr, "token").ListUsers(context.Background())
	require.Error(t, err)
	assert.Equal(t, interfaces.KindInternal, interfaces.KindOf(err))
}

func TestWalletClient_Assets(t *testing.T) {
	algodSrv := algodtest.New(t, "algod-token")
	_, addr, _ := startWalletWithAlgod(t, algodSrv)
	client := NewWalletClient(addr, "token")
	ctx := context.Background()

	manager, err := client.GetManager(ctx)
	require.NoError(t, err)
	algodSrv.Fund(manager.PublicAddress, 10_000_000)

	created, err := client.CreateAsset(ctx, api.CreateAssetRequest{Total: 500, UnitName: "PTS", AssetName: "Points"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.TransactionID)
	assetID := algodSrv.LastAssetID()

	user, err := client.CreateUser(ctx, "alice")
	require.NoError(t, err)

	_, err = client.TransferAsset(ctx, api.TransferAssetRequest{AssetID: assetID, UserID: "alice", Amount: 50})
	require.NoError(t, err)
	_, err = client.ClawbackAsset(ctx, api.ClawbackAssetRequest{AssetID: assetID, UserID: "alice", Amount: 20})
	require.NoError(t, err)

	assets, err := client.GetUserAssets(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, user.PublicAddress, assets.PublicAddress)
	assert.Equal(t, []api.AssetHolding{{AssetID: assetID, Amount: 30}}, assets.Assets)

	amount, _ := algodSrv.AssetBalance(manager.PublicAddress, assetID)
	assert.EqualValues(t, 470, amount)

	_, err = client.TransferAsset(ctx, api.TransferAssetRequest{AssetID: assetID, UserID: "bob", Amount: 1})
	assert.True(t, errors.Is(err, interfaces.ErrNotFound))

	var ce *interfaces.CustodyError
	_, err = client.TransferAsset(ctx, api.TransferAssetRequest{AssetID: assetID, UserID: "alice"})
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, http.StatusBadRequest, ce.Status)

	// Overspending the asset is rejected by the node.
	_, err = client.TransferAsset(ctx, api.TransferAssetRequest{AssetID: assetID, UserID: "alice", Amount: 1000})
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, http.StatusInternalServerError, ce.Status)
	groups := algodSrv.Groups()
	require.Len(t, groups, 3)
	assert.Equal(t, types.AssetTransferTx, groups[2][0].Txn.Type)
	assert.Equal(t, user.PublicAddress, groups[2][0].Txn.AssetSender.String())
}
