package kms

import (
	"context"
	"errors"
	"log/slog"

	"github.com/ruteri/vault-wallet-custody/interfaces"
)

const lookupSelfPath = "auth/token/lookup-self"

// VaultTokenValidator checks session tokens with Vault's lookup-self
// endpoint. Every call goes to Vault; results are never cached.
type VaultTokenValidator struct {
	transport SecretTransport
	log       *slog.Logger
}

func NewTokenValidator(transport SecretTransport, log *slog.Logger) *VaultTokenValidator {
	return &VaultTokenValidator{
		transport: transport,
		log:       log,
	}
}

// Validate returns true when Vault accepts the token. A 401 or 403 from Vault
// yields an Unauthorized or Forbidden error with the upstream status; any
// other failure is internal.
func (v *VaultTokenValidator) Validate(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, &interfaces.CustodyError{
			Kind: interfaces.KindUnauthorized,
			Op:   "lookup-self",
			Err:  errors.New("missing token"),
		}
	}

	_, err := v.transport.Get(ctx, token, lookupSelfPath)
	if err == nil {
		return true, nil
	}

	var out interfaces.CustodyError
	var ce *interfaces.CustodyError
	if errors.As(err, &ce) {
		out = *ce
	} else {
		out = interfaces.CustodyError{Err: err}
	}
	out.Op = "lookup-self"

	switch out.Kind {
	case interfaces.KindUnauthorized, interfaces.KindForbidden:
		v.log.Debug("Token rejected by Vault", slog.Int("status", out.Status))
	default:
		out.Kind = interfaces.KindInternal
		v.log.Error("Token lookup failed", slog.Int("status", out.Status), slog.Bool("timeout", out.Timeout), "err", out.Err)
	}

	return false, &out
}
