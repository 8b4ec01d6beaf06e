package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/vault-wallet-custody/api"
	"github.com/ruteri/vault-wallet-custody/interfaces"
)

// maxBodySize is the maximum allowed request body size (1MB).
const maxBodySize = 1024 * 1024

type tokenContextKey struct{}

// RequestError provides structured error information for HTTP responses.
// It includes both an HTTP status code and the underlying error.
type RequestError struct {
	// StatusCode is the HTTP status code to return.
	StatusCode int

	// Err is the underlying error.
	Err error
}

// Error returns the error message from the underlying error.
func (e *RequestError) Error() string {
	return e.Err.Error()
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Handler serves the wallet API on top of a KeyCustody gateway.
type Handler struct {
	custody   interfaces.KeyCustody
	validator interfaces.TokenValidator
	usersPath string
	log       *slog.Logger

	assets AssetService
}

// NewHandler creates the wallet handler. usersPath is the transit namespace
// holding user keys.
func NewHandler(custody interfaces.KeyCustody, validator interfaces.TokenValidator, usersPath string, log *slog.Logger) *Handler {
	return &Handler{
		custody:   custody,
		validator: validator,
		usersPath: usersPath,
		log:       log,
	}
}

// TokenFromContext returns the session token stored by RequireToken.
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenContextKey{}).(string)
	return token
}

// RequireToken extracts the bearer token and validates it against the store
// before calling next. Every request is validated again.
func (h *Handler) RequireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			h.writeError(w, &interfaces.CustodyError{
				Kind: interfaces.KindUnauthorized,
				Err:  errors.New("missing bearer token"),
			})
			return
		}

		valid, err := h.validator.Validate(r.Context(), token)
		if err != nil {
			h.writeError(w, err)
			return
		}
		if !valid {
			h.writeError(w, interfaces.ErrUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), tokenContextKey{}, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// HandleListUsers returns every user wallet. Vault answers LIST on a mount
// without keys with a 404, which is rendered here as an empty list.
//
// URL format: GET /wallet/users/
func (h *Handler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	infos, err := h.custody.ListKeys(r.Context(), h.usersPath, TokenFromContext(r.Context()))
	if errors.Is(err, interfaces.ErrNotFound) {
		h.writeJSON(w, http.StatusOK, []api.UserInfo{})
		return
	}
	if err != nil {
		h.writeError(w, err)
		return
	}

	users := make([]api.UserInfo, len(infos))
	for i, info := range infos {
		users[i] = api.UserInfo{UserID: info.KeyName, PublicAddress: info.Address}
	}
	h.writeJSON(w, http.StatusOK, users)
}

// HandleGetUser returns an existing user's wallet. An unknown user is a 404.
//
// URL format: GET /wallet/users/{user_id}
func (h *Handler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	handle, err := h.userHandle(chi.URLParam(r, "user_id"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	pub, err := h.custody.PublicKey(r.Context(), handle, TokenFromContext(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}

	info, err := h.userInfo(handle, pub)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, info)
}

// HandleCreateUser returns the user's wallet, creating the key on first use.
//
// URL format: POST /wallet/user/
// Request body: {"user_id": "..."}
func (h *Handler) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req api.CreateUserRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	handle, err := h.userHandle(req.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	pub, err := h.custody.GetOrCreateKey(r.Context(), handle, TokenFromContext(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}

	info, err := h.userInfo(handle, pub)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, info)
}

// HandleGetManager returns the manager wallet.
//
// URL format: GET /wallet/manager/
func (h *Handler) HandleGetManager(w http.ResponseWriter, r *http.Request) {
	pub, err := h.custody.ManagerKey(r.Context(), TokenFromContext(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}

	address, err := h.custody.Address(pub)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, api.ManagerInfo{PublicAddress: address})
}

// HandleSignAsUser signs a payload with a user's key.
//
// URL format: POST /wallet/users/{user_id}/sign
// Request body: {"payload": "<base64>"}
func (h *Handler) HandleSignAsUser(w http.ResponseWriter, r *http.Request) {
	handle, err := h.userHandle(chi.URLParam(r, "user_id"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req api.SignRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	sig, err := h.custody.Sign(r.Context(), handle, req.Payload, TokenFromContext(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, api.SignResponse{Signature: sig})
}

// HandleSignAsManager signs a payload with the manager key.
//
// URL format: POST /wallet/manager/sign
// Request body: {"payload": "<base64>"}
func (h *Handler) HandleSignAsManager(w http.ResponseWriter, r *http.Request) {
	var req api.SignRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	sig, err := h.custody.SignAsManager(r.Context(), req.Payload, TokenFromContext(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, api.SignResponse{Signature: sig})
}

func (h *Handler) userHandle(userID string) (interfaces.SigningKeyHandle, error) {
	handle, err := interfaces.NewSigningKeyHandle(userID, h.usersPath)
	if err != nil {
		return handle, &RequestError{StatusCode: http.StatusBadRequest, Err: err}
	}
	return handle, nil
}

func (h *Handler) userInfo(handle interfaces.SigningKeyHandle, pub interfaces.PublicKey) (api.UserInfo, error) {
	address, err := h.custody.Address(pub)
	if err != nil {
		return api.UserInfo{}, err
	}
	return api.UserInfo{UserID: handle.KeyName, PublicAddress: address}, nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("Failed to encode response", "err", err)
	}
}

// writeError maps err to a status. Gateway failures are classified by kind,
// request errors carry their own status.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		h.writeJSON(w, reqErr.StatusCode, api.ErrorResponse{Error: reqErr.Error()})
		return
	}

	kind := interfaces.KindOf(err)
	status := interfaces.StatusForKind(kind)
	if status >= http.StatusInternalServerError {
		h.log.Error("Request failed", "kind", kind.String(), "err", err)
	} else {
		h.log.Debug("Request rejected", "kind", kind.String(), "err", err)
	}

	// Upstream details stay in the logs.
	h.writeJSON(w, status, api.ErrorResponse{Error: http.StatusText(status), Kind: kind.String()})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get(api.AuthorizationHeader)
	if !strings.HasPrefix(header, api.BearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, api.BearerPrefix))
	return token, token != ""
}

func decodeBody(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		return &RequestError{StatusCode: http.StatusBadRequest, Err: fmt.Errorf("failed to read request body: %w", err)}
	}
	if len(body) > maxBodySize {
		return &RequestError{StatusCode: http.StatusRequestEntityTooLarge, Err: errors.New("request body too large")}
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &RequestError{StatusCode: http.StatusBadRequest, Err: fmt.Errorf("invalid request body: %w", err)}
	}
	return nil
}
