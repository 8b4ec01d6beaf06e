package kms

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"

	"github.com/hashicorp/vault/api"
	"github.com/mitchellh/mapstructure"
	"github.com/ruteri/vault-wallet-custody/cryptoutils"
	"github.com/ruteri/vault-wallet-custody/interfaces"
	"github.com/ruteri/vault-wallet-custody/metrics"
	"golang.org/x/sync/errgroup"
)

// SecretTransport is the subset of *vault.Transport the gateway needs.
type SecretTransport interface {
	Get(ctx context.Context, token, path string) (*api.Secret, error)
	List(ctx context.Context, token, path string) (*api.Secret, error)
	Post(ctx context.Context, token, path string, body map[string]interface{}) (*api.Secret, error)
}

type keyVersion struct {
	PublicKey string `mapstructure:"public_key"`
}

type readKeyResponse struct {
	Keys map[string]keyVersion `mapstructure:"keys"`
}

type listKeysResponse struct {
	Keys []string `mapstructure:"keys"`
}

type signResponse struct {
	Signature string `mapstructure:"signature"`
}

// VaultCustody implements interfaces.KeyCustody on top of the Vault transit
// engine. It keeps no state between calls and never retries.
type VaultCustody struct {
	transport SecretTransport
	cfg       VaultConfig
	manager   interfaces.SigningKeyHandle
	log       *slog.Logger
}

// NewVaultCustody creates the gateway. cfg is completed with defaults and
// validated.
func NewVaultCustody(transport SecretTransport, cfg VaultConfig, log *slog.Logger) (*VaultCustody, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	manager, err := cfg.ManagerHandle()
	if err != nil {
		return nil, err
	}

	return &VaultCustody{
		transport: transport,
		cfg:       cfg,
		manager:   manager,
		log:       log,
	}, nil
}

// Config returns the effective configuration.
func (c *VaultCustody) Config() VaultConfig {
	return c.cfg
}

// GetOrCreateKey reads the key and, if Vault reports it absent, creates it
// and reads it again. Only a 404 on the first read triggers creation. Racing
// creators converge because transit key creation is idempotent.
func (c *VaultCustody) GetOrCreateKey(ctx context.Context, handle interfaces.SigningKeyHandle, token string) (interfaces.PublicKey, error) {
	pub, err := c.PublicKey(ctx, handle, token)
	if err == nil {
		return pub, nil
	}
	if !errors.Is(err, interfaces.ErrNotFound) {
		return nil, err
	}

	c.log.Info("Creating signing key", slog.String("key", handle.KeyName), slog.String("path", handle.BasePath))

	_, err = c.transport.Post(ctx, token, handle.KeyPath(), map[string]interface{}{
		"type": c.cfg.KeyType,
	})
	if err != nil {
		return nil, c.fail("create-key", handle.KeyPath(), err)
	}
	metrics.RecordKeyCreated()

	return c.PublicKey(ctx, handle, token)
}

// PublicKey returns the public key of the highest key version.
func (c *VaultCustody) PublicKey(ctx context.Context, handle interfaces.SigningKeyHandle, token string) (interfaces.PublicKey, error) {
	path := handle.KeyPath()

	secret, err := c.transport.Get(ctx, token, path)
	if err != nil {
		return nil, c.fail("read-key", path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, c.fail("read-key", path, interfaces.NewProtocolError("read-key", path, "empty key response"))
	}

	var resp readKeyResponse
	if err := mapstructure.Decode(secret.Data, &resp); err != nil {
		return nil, c.fail("read-key", path, interfaces.NewProtocolError("read-key", path, "unexpected key response: %v", err))
	}

	latest, err := latestVersion(resp.Keys)
	if err != nil {
		return nil, c.fail("read-key", path, interfaces.NewProtocolError("read-key", path, "%v", err))
	}

	pub, err := interfaces.NewPublicKeyFromBase64(latest.PublicKey)
	if err != nil {
		return nil, c.fail("read-key", path, interfaces.NewProtocolError("read-key", path, "%v", err))
	}

	return pub, nil
}

// ListKeys lists the key names under basePath and fetches each key's latest
// public key. The result keeps the listing order. A 404 from Vault is
// NotFound like everywhere else outside the create fallback; any failure
// fails the whole call.
func (c *VaultCustody) ListKeys(ctx context.Context, basePath string, token string) ([]interfaces.KeyInfo, error) {
	basePath, err := interfaces.NormalizeBasePath(basePath)
	if err != nil {
		return nil, &interfaces.CustodyError{Kind: interfaces.KindInternal, Op: "list-keys", Err: err}
	}
	path := basePath + "/keys"

	secret, err := c.transport.List(ctx, token, path)
	if err != nil {
		return nil, c.fail("list-keys", path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, c.fail("list-keys", path, interfaces.NewProtocolError("list-keys", path, "list response has no data"))
	}

	var resp listKeysResponse
	if err := mapstructure.Decode(secret.Data, &resp); err != nil {
		return nil, c.fail("list-keys", path, interfaces.NewProtocolError("list-keys", path, "unexpected list response: %v", err))
	}

	handles := make([]interfaces.SigningKeyHandle, len(resp.Keys))
	for i, name := range resp.Keys {
		handles[i], err = interfaces.NewSigningKeyHandle(name, basePath)
		if err != nil {
			return nil, c.fail("list-keys", path, interfaces.NewProtocolError("list-keys", path, "%v", err))
		}
	}

	infos := make([]interfaces.KeyInfo, len(handles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.ListConcurrency)
	for i, handle := range handles {
		g.Go(func() error {
			pub, err := c.PublicKey(gctx, handle, token)
			if err != nil {
				return err
			}
			address, err := c.Address(pub)
			if err != nil {
				return err
			}
			infos[i] = interfaces.KeyInfo{KeyName: handle.KeyName, PublicKey: pub, Address: address}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return infos, nil
}

// Sign asks Vault to sign payload with the referenced key and returns the
// decoded signature. An envelope that does not parse is a protocol error.
func (c *VaultCustody) Sign(ctx context.Context, handle interfaces.SigningKeyHandle, payload []byte, token string) ([]byte, error) {
	path := handle.SignPath()

	secret, err := c.transport.Post(ctx, token, path, map[string]interface{}{
		"input": base64.StdEncoding.EncodeToString(payload),
	})
	if err != nil {
		return nil, c.fail("sign", path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, c.fail("sign", path, interfaces.NewProtocolError("sign", path, "empty sign response"))
	}

	var resp signResponse
	if err := mapstructure.Decode(secret.Data, &resp); err != nil {
		return nil, c.fail("sign", path, interfaces.NewProtocolError("sign", path, "unexpected sign response: %v", err))
	}

	envelope, err := ParseSignatureEnvelope(resp.Signature)
	if err != nil {
		return nil, c.fail("sign", path, &interfaces.CustodyError{Kind: interfaces.KindProtocol, Err: err})
	}

	return envelope.Signature, nil
}

// SignAsManager signs with the configured manager key.
func (c *VaultCustody) SignAsManager(ctx context.Context, payload []byte, token string) ([]byte, error) {
	return c.Sign(ctx, c.manager, payload, token)
}

// ManagerKey returns the manager's public key, creating the key on first use.
func (c *VaultCustody) ManagerKey(ctx context.Context, token string) (interfaces.PublicKey, error) {
	return c.GetOrCreateKey(ctx, c.manager, token)
}

// Address derives the account address of pub.
func (c *VaultCustody) Address(pub interfaces.PublicKey) (string, error) {
	address, err := cryptoutils.EncodeAddress(pub)
	if err != nil {
		return "", &interfaces.CustodyError{Kind: interfaces.KindProtocol, Op: "address", Err: err}
	}
	return address, nil
}

// fail tags err with the gateway operation and logs it. The returned error is
// always a fresh *interfaces.CustodyError.
func (c *VaultCustody) fail(op, path string, err error) error {
	var out interfaces.CustodyError
	var ce *interfaces.CustodyError
	if errors.As(err, &ce) {
		out = *ce
	} else {
		out = interfaces.CustodyError{Kind: interfaces.KindInternal, Err: err}
	}
	out.Op = op
	if out.Path == "" {
		out.Path = path
	}

	switch out.Kind {
	case interfaces.KindInternal, interfaces.KindProtocol:
		c.log.Error("Vault operation failed",
			slog.String("op", op),
			slog.String("path", out.Path),
			slog.Int("status", out.Status),
			slog.Bool("timeout", out.Timeout),
			"err", out.Err)
	default:
		c.log.Debug("Vault operation rejected",
			slog.String("op", op),
			slog.String("path", out.Path),
			slog.String("kind", out.Kind.String()))
	}

	return &out
}

// latestVersion selects the entry with the highest numeric version.
func latestVersion(versions map[string]keyVersion) (keyVersion, error) {
	best := -1
	var latest keyVersion
	for name, v := range versions {
		n, err := parseKeyVersion(name)
		if err != nil {
			return keyVersion{}, err
		}
		if n > best {
			best = n
			latest = v
		}
	}
	if best < 0 {
		return keyVersion{}, errors.New("key has no versions")
	}
	return latest, nil
}
