package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ruteri/vault-wallet-custody/chain"
	"github.com/ruteri/vault-wallet-custody/cmd/flags"
	"github.com/ruteri/vault-wallet-custody/httpserver"
	"github.com/ruteri/vault-wallet-custody/kms"
	"github.com/ruteri/vault-wallet-custody/vault"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "walletd",
		Usage: "Serve the wallet custody API backed by Vault transit",
		Flags: append(append([]cli.Flag{
			flags.ListenAddrFlag,
			flags.LogServiceFlagFn("walletd"),
		}, flags.CommonFlags...), append(flags.VaultFlags, flags.AlgodFlags...)...),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)
			vaultCfg := flags.ConfigureVault(cCtx).WithDefaults()
			if err := vaultCfg.Validate(); err != nil {
				logger.Error("Invalid Vault configuration", "err", err)
				return err
			}

			logger.Info("Connecting to Vault",
				"address", vaultCfg.BaseURL,
				"usersPath", vaultCfg.UsersPath,
				"managersPath", vaultCfg.ManagersPath)

			transport, err := vault.NewTransport(vault.TransportConfig{
				Address: vaultCfg.BaseURL,
				Timeout: vaultCfg.Timeout,
				TLS:     flags.ConfigureVaultTLS(cCtx),
			}, logger)
			if err != nil {
				logger.Error("Failed to create Vault transport", "err", err)
				return err
			}

			if !transport.Available(cCtx.Context) {
				// Not fatal, /readyz reports it until Vault comes up.
				logger.Warn("Vault is not available yet", "address", transport.Address())
			}

			custody, err := kms.NewVaultCustody(transport, vaultCfg, logger)
			if err != nil {
				logger.Error("Failed to create custody gateway", "err", err)
				return err
			}
			validator := kms.NewTokenValidator(transport, logger)

			cfg := flags.ConfigureServer(cCtx, logger, cCtx.String(flags.ListenAddrFlag.Name))
			cfg.ReadinessCheck = transport.Available

			handler := httpserver.NewHandler(custody, validator, vaultCfg.UsersPath, logger)

			if algodAddr := cCtx.String(flags.AlgodAddrFlag.Name); algodAddr != "" {
				algodClient, err := chain.NewAlgodClient(algodAddr, cCtx.String(flags.AlgodTokenFlag.Name))
				if err != nil {
					logger.Error("Failed to create algod client", "err", err)
					return err
				}
				handler.WithAssetService(chain.NewService(custody, algodClient, vaultCfg.UsersPath, logger))
				logger.Info("Asset transactions enabled", "algod", algodAddr)
			}
			server, err := httpserver.New(cfg, handler)
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}

			logger.Info("Starting server")
			server.RunInBackground()

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			logger.Info("Server is running, press Ctrl+C to stop")
			<-exit
			logger.Info("Shutdown signal received")

			server.Shutdown()
			logger.Info("Server shutdown complete")

			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
