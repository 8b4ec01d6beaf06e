package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/vault-wallet-custody/api"
	"github.com/ruteri/vault-wallet-custody/chain"
)

// AssetService submits on-chain asset transactions on behalf of the manager
// and users. It is implemented by *chain.Service.
type AssetService interface {
	CreateAsset(ctx context.Context, params chain.AssetParams, token string) (string, error)
	TransferAsset(ctx context.Context, req chain.TransferRequest, token string) (string, error)
	ClawbackAsset(ctx context.Context, req chain.ClawbackRequest, token string) (string, error)
	UserAssets(ctx context.Context, userID string, token string) (*chain.AccountAssets, error)
}

// WithAssetService enables the asset routes.
func (h *Handler) WithAssetService(assets AssetService) *Handler {
	h.assets = assets
	return h
}

// HandleCreateAsset creates an asset owned by the manager.
//
// URL format: POST /wallet/transactions/create-asset
func (h *Handler) HandleCreateAsset(w http.ResponseWriter, r *http.Request) {
	var req api.CreateAssetRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	txID, err := h.assets.CreateAsset(r.Context(), chain.AssetParams{
		Total:         req.Total,
		Decimals:      req.Decimals,
		DefaultFrozen: req.DefaultFrozen,
		UnitName:      req.UnitName,
		AssetName:     req.AssetName,
		URL:           req.URL,
		Note:          req.Note,
	}, TokenFromContext(r.Context()))
	if err != nil {
		h.writeError(w, chainError(err))
		return
	}
	h.writeJSON(w, http.StatusCreated, api.TransactionResponse{TransactionID: txID})
}

// HandleTransferAsset sends asset units from the manager to a user.
//
// URL format: POST /wallet/transactions/transfer-asset
func (h *Handler) HandleTransferAsset(w http.ResponseWriter, r *http.Request) {
	var req api.TransferAssetRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	txID, err := h.assets.TransferAsset(r.Context(), chain.TransferRequest{
		AssetID: req.AssetID,
		UserID:  req.UserID,
		Amount:  req.Amount,
		Note:    req.Note,
		Lease:   req.Lease,
	}, TokenFromContext(r.Context()))
	if err != nil {
		h.writeError(w, chainError(err))
		return
	}
	h.writeJSON(w, http.StatusCreated, api.TransactionResponse{TransactionID: txID})
}

// HandleClawbackAsset returns asset units from a user to the manager.
//
// URL format: POST /wallet/transactions/clawback-asset
func (h *Handler) HandleClawbackAsset(w http.ResponseWriter, r *http.Request) {
	var req api.ClawbackAssetRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	txID, err := h.assets.ClawbackAsset(r.Context(), chain.ClawbackRequest{
		AssetID: req.AssetID,
		UserID:  req.UserID,
		Amount:  req.Amount,
		Note:    req.Note,
	}, TokenFromContext(r.Context()))
	if err != nil {
		h.writeError(w, chainError(err))
		return
	}
	h.writeJSON(w, http.StatusCreated, api.TransactionResponse{TransactionID: txID})
}

// HandleGetUserAssets returns a user's balance and asset holdings.
//
// URL format: GET /wallet/users/{user_id}/assets
func (h *Handler) HandleGetUserAssets(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "user_id")
	account, err := h.assets.UserAssets(r.Context(), userID, TokenFromContext(r.Context()))
	if err != nil {
		h.writeError(w, chainError(err))
		return
	}

	holdings := make([]api.AssetHolding, len(account.Assets))
	for i, a := range account.Assets {
		holdings[i] = api.AssetHolding{AssetID: a.AssetID, Amount: a.Amount, IsFrozen: a.IsFrozen}
	}
	h.writeJSON(w, http.StatusOK, api.UserAssets{
		UserID:        userID,
		PublicAddress: account.Address,
		AlgoBalance:   account.AlgoBalance,
		Assets:        holdings,
	})
}

func chainError(err error) error {
	if errors.Is(err, chain.ErrInvalidRequest) {
		return &RequestError{StatusCode: http.StatusBadRequest, Err: err}
	}
	return err
}
