package flags

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	vaultapi "github.com/hashicorp/vault/api"
	"github.com/ruteri/vault-wallet-custody/api"
	"github.com/ruteri/vault-wallet-custody/common"
	"github.com/ruteri/vault-wallet-custody/kms"
	"github.com/urfave/cli/v2"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String("log-service")

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger, listenAddr string) *api.HTTPServerConfig {
	metricsAddr := cCtx.String(MetricsAddrFlag.Name)
	enablePprof := cCtx.Bool(PprofFlag.Name)
	drainDuration := time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second

	return &api.HTTPServerConfig{
		ListenAddr:               listenAddr,
		MetricsAddr:              metricsAddr,
		Log:                      logger,
		EnablePprof:              enablePprof,
		DrainDuration:            drainDuration,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
	}
}

// ConfigureVault reads the Vault flags into a gateway configuration.
func ConfigureVault(cCtx *cli.Context) kms.VaultConfig {
	return kms.VaultConfig{
		BaseURL:         cCtx.String(VaultBaseURLFlag.Name),
		UsersPath:       cCtx.String(VaultUsersPathFlag.Name),
		ManagersPath:    cCtx.String(VaultManagersPathFlag.Name),
		ManagerKey:      cCtx.String(VaultManagerKeyFlag.Name),
		KeyType:         cCtx.String(VaultKeyTypeFlag.Name),
		Timeout:         cCtx.Duration(VaultTimeoutFlag.Name),
		ListConcurrency: cCtx.Int(VaultListConcurrencyFlag.Name),
	}
}

// ConfigureVaultTLS returns the Vault TLS settings, or nil if none is set.
func ConfigureVaultTLS(cCtx *cli.Context) *vaultapi.TLSConfig {
	tlsCfg := &vaultapi.TLSConfig{
		CACert:     cCtx.String(VaultCACertFlag.Name),
		ClientCert: cCtx.String(VaultClientCertFlag.Name),
		ClientKey:  cCtx.String(VaultClientKeyFlag.Name),
	}
	if tlsCfg.CACert == "" && tlsCfg.ClientCert == "" && tlsCfg.ClientKey == "" {
		return nil
	}
	return tlsCfg
}

var ListenAddrFlag = &cli.StringFlag{
	Name:  "listen-addr",
	Value: "127.0.0.1:8080",
	Usage: "address to listen on for API",
}

var VaultBaseURLFlag = &cli.StringFlag{
	Name:     "vault-addr",
	EnvVars:  []string{"VAULT_BASE_URL"},
	Required: true,
	Usage:    "Vault address, e.g. https://vault.internal:8200",
}
var VaultUsersPathFlag = &cli.StringFlag{
	Name:    "vault-users-path",
	EnvVars: []string{"VAULT_TRANSIT_USERS_PATH"},
	Value:   kms.DefaultUsersPath,
	Usage:   "transit mount holding one key per wallet user",
}
var VaultManagersPathFlag = &cli.StringFlag{
	Name:    "vault-managers-path",
	EnvVars: []string{"VAULT_TRANSIT_MANAGERS_PATH"},
	Value:   kms.DefaultManagersPath,
	Usage:   "transit mount holding the manager key",
}
var VaultManagerKeyFlag = &cli.StringFlag{
	Name:     "vault-manager-key",
	EnvVars:  []string{"VAULT_MANAGER_KEY"},
	Required: true,
	Usage:    "name of the manager key",
}
var VaultKeyTypeFlag = &cli.StringFlag{
	Name:  "vault-key-type",
	Value: kms.DefaultKeyType,
	Usage: "transit key type used when creating keys",
}
var VaultTimeoutFlag = &cli.DurationFlag{
	Name:  "vault-timeout",
	Value: kms.DefaultTimeout,
	Usage: "timeout of each Vault request",
}
var VaultListConcurrencyFlag = &cli.IntFlag{
	Name:  "vault-list-concurrency",
	Value: kms.DefaultListConcurrency,
	Usage: "maximum concurrent key reads when listing users",
}

var VaultCACertFlag = &cli.StringFlag{
	Name:    "vault-ca-cert",
	EnvVars: []string{"VAULT_CACERT"},
	Usage:   "PEM file with the CA certificate used to verify Vault",
}
var VaultClientCertFlag = &cli.StringFlag{
	Name:    "vault-client-cert",
	EnvVars: []string{"VAULT_CLIENT_CERT"},
	Usage:   "PEM client certificate for TLS authentication to Vault",
}
var VaultClientKeyFlag = &cli.StringFlag{
	Name:    "vault-client-key",
	EnvVars: []string{"VAULT_CLIENT_KEY"},
	Usage:   "PEM private key of the client certificate",
}

var AlgodAddrFlag = &cli.StringFlag{
	Name:    "algod-addr",
	EnvVars: []string{"ALGOD_ADDR"},
	Usage:   "algod REST address; enables the asset transaction routes",
}
var AlgodTokenFlag = &cli.StringFlag{
	Name:    "algod-token",
	EnvVars: []string{"ALGOD_TOKEN"},
	Usage:   "algod API token",
}

var LogJsonFlag = &cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
}
var LogDebugFlag = &cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}

var LogServiceFlagFn = func(service string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "log-service",
		Value: service,
		Usage: "add 'service' tag to logs",
	}
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:  "metrics-addr",
	Value: "127.0.0.1:8090",
	Usage: "address to listen on for Prometheus metrics",
}

var CommonFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
}

var AlgodFlags = []cli.Flag{
	AlgodAddrFlag,
	AlgodTokenFlag,
}

var VaultFlags = []cli.Flag{
	VaultBaseURLFlag,
	VaultUsersPathFlag,
	VaultManagersPathFlag,
	VaultManagerKeyFlag,
	VaultKeyTypeFlag,
	VaultTimeoutFlag,
	VaultListConcurrencyFlag,
	VaultCACertFlag,
	VaultClientCertFlag,
	VaultClientKeyFlag,
}
