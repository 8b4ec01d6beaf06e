package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/vault/api"
	"github.com/ruteri/vault-wallet-custody/interfaces"
	"github.com/ruteri/vault-wallet-custody/metrics"
)

// MethodList is Vault's LIST verb.
const MethodList = "LIST"

// TransportConfig configures the connection to the Vault server.
type TransportConfig struct {
	// Address is the Vault base URL, e.g. https://vault.example.com:8200.
	Address string

	// Timeout bounds every request. Zero leaves only the caller's deadline.
	Timeout time.Duration

	// TLS configures server verification and client certificate
	// authentication. Ignored when HTTPClient is set.
	TLS *api.TLSConfig

	// HTTPClient overrides the pooled default client.
	HTTPClient *http.Client
}

// Transport is a thin Vault HTTP client. It attaches the caller's token to
// every request and turns non-2xx responses into *interfaces.CustodyError
// values carrying the upstream status. It holds no per-call state.
type Transport struct {
	client  *api.Client
	address string
	log     *slog.Logger
}

// NewTransport creates a Transport with retries disabled; retry policy belongs
// to callers.
func NewTransport(cfg TransportConfig, log *slog.Logger) (*Transport, error) {
	if cfg.Address == "" {
		return nil, errors.New("empty Vault address")
	}

	config := api.DefaultConfig()
	if config.Error != nil {
		return nil, fmt.Errorf("failed to read Vault environment: %w", config.Error)
	}
	config.Address = strings.TrimSuffix(cfg.Address, "/")
	config.MaxRetries = 0
	config.Timeout = cfg.Timeout
	if cfg.HTTPClient != nil {
		config.HttpClient = cfg.HTTPClient
	} else if cfg.TLS != nil {
		if err := config.ConfigureTLS(cfg.TLS); err != nil {
			return nil, fmt.Errorf("failed to configure Vault TLS: %w", err)
		}
	}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}

	// Tokens are always supplied per request, never taken from VAULT_TOKEN.
	client.ClearToken()

	return &Transport{
		client:  client,
		address: config.Address,
		log:     log,
	}, nil
}

// Get issues GET {address}/v1/{path}.
func (t *Transport) Get(ctx context.Context, token, path string) (*api.Secret, error) {
	return t.do(ctx, http.MethodGet, token, path, nil)
}

// List issues LIST {address}/v1/{path}.
func (t *Transport) List(ctx context.Context, token, path string) (*api.Secret, error) {
	return t.do(ctx, MethodList, token, path, nil)
}

// Post issues POST {address}/v1/{path} with a JSON body. body may be nil.
func (t *Transport) Post(ctx context.Context, token, path string, body map[string]interface{}) (*api.Secret, error) {
	return t.do(ctx, http.MethodPost, token, path, body)
}

// Available checks that Vault is initialized and unsealed.
func (t *Transport) Available(ctx context.Context) bool {
	healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	health, err := t.client.Sys().HealthWithContext(healthCtx)
	if err != nil {
		t.log.Debug("Vault health check failed", "err", err)
		return false
	}

	if !health.Initialized || health.Sealed {
		t.log.Debug("Vault is not available",
			slog.Bool("initialized", health.Initialized),
			slog.Bool("sealed", health.Sealed))
		return false
	}

	return true
}

// Address returns the Vault base URL.
func (t *Transport) Address() string {
	return t.address
}

func (t *Transport) do(ctx context.Context, method, token, path string, body map[string]interface{}) (*api.Secret, error) {
	start := time.Now()
	path = strings.Trim(path, "/")

	r := t.client.NewRequest(method, "/v1/"+path)
	r.ClientToken = token
	if body != nil {
		if err := r.SetJSONBody(body); err != nil {
			return nil, &interfaces.CustodyError{Kind: interfaces.KindInternal, Op: method, Path: path, Err: err}
		}
	}

	resp, err := t.client.RawRequestWithContext(ctx, r)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		cerr := classify(method, path, err)
		metrics.RecordVaultRequest(method, cerr.Kind.String(), time.Since(start))
		t.log.Debug("Vault request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", cerr.Status),
			"err", err)
		return nil, cerr
	}

	metrics.RecordVaultRequest(method, "ok", time.Since(start))

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	secret, err := api.ParseSecret(resp.Body)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, interfaces.NewProtocolError(method, path, "could not parse Vault response: %v", err)
	}

	return secret, nil
}

// classify maps a failed request to its custody error kind by status code
// only. Upstream error bodies are not inspected.
func classify(method, path string, err error) *interfaces.CustodyError {
	cerr := &interfaces.CustodyError{Kind: interfaces.KindInternal, Op: method, Path: path, Err: err}

	var respErr *api.ResponseError
	if errors.As(err, &respErr) {
		cerr.Status = respErr.StatusCode
		switch respErr.StatusCode {
		case http.StatusUnauthorized:
			cerr.Kind = interfaces.KindUnauthorized
		case http.StatusForbidden:
			cerr.Kind = interfaces.KindForbidden
		case http.StatusNotFound:
			cerr.Kind = interfaces.KindNotFound
		}
		return cerr
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		cerr.Timeout = true
	}
	return cerr
}
