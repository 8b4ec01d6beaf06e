package main

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/ruteri/vault-wallet-custody/api"
	"github.com/ruteri/vault-wallet-custody/api/clients"
	"github.com/ruteri/vault-wallet-custody/cryptoutils"
	"github.com/urfave/cli/v2"
)

var flagWalletServer *cli.StringFlag = &cli.StringFlag{
	Name:    "wallet-server-addr",
	EnvVars: []string{"WALLET_SERVER_ADDR"},
	Value:   "http://127.0.0.1:8080",
	Usage:   "Wallet server address to request",
}
var flagVaultToken *cli.StringFlag = &cli.StringFlag{
	Name:    "vault-token",
	EnvVars: []string{"VAULT_TOKEN"},
	Usage:   "Vault token to authenticate with",
}
var flagUserID *cli.StringFlag = &cli.StringFlag{
	Name:  "user-id",
	Usage: "Wallet user id",
}
var flagManager *cli.BoolFlag = &cli.BoolFlag{
	Name:  "manager",
	Usage: "Use the manager key instead of a user key",
}
var flagPayload *cli.StringFlag = &cli.StringFlag{
	Name:     "payload",
	Required: true,
	Usage:    "Base64 encoded payload",
}
var flagAddress *cli.StringFlag = &cli.StringFlag{
	Name:     "address",
	Required: true,
	Usage:    "Account address of the signer",
}
var flagSignature *cli.StringFlag = &cli.StringFlag{
	Name:     "signature",
	Required: true,
	Usage:    "Base64 encoded signature",
}

var flagAssetID *cli.Uint64Flag = &cli.Uint64Flag{
	Name:     "asset-id",
	Required: true,
	Usage:    "Asset id",
}
var flagAmount *cli.Uint64Flag = &cli.Uint64Flag{
	Name:     "amount",
	Required: true,
	Usage:    "Asset units",
}
var flagNote *cli.StringFlag = &cli.StringFlag{
	Name:  "note",
	Usage: "Transaction note",
}
var flagTotal *cli.Uint64Flag = &cli.Uint64Flag{
	Name:     "total",
	Required: true,
	Usage:    "Total asset units",
}
var flagDecimals *cli.UintFlag = &cli.UintFlag{
	Name:  "decimals",
	Usage: "Asset decimals",
}
var flagUnitName *cli.StringFlag = &cli.StringFlag{
	Name:  "unit-name",
	Usage: "Asset unit name, at most 8 bytes",
}
var flagAssetName *cli.StringFlag = &cli.StringFlag{
	Name:  "asset-name",
	Usage: "Asset name, at most 32 bytes",
}
var flagURL *cli.StringFlag = &cli.StringFlag{
	Name:  "url",
	Usage: "Asset URL",
}

func requireUserID(cCtx *cli.Context) (string, error) {
	userID := cCtx.String(flagUserID.Name)
	if userID == "" {
		return "", errors.New("--user-id is required")
	}
	return userID, nil
}

func walletClient(cCtx *cli.Context) *clients.WalletClient {
	return clients.NewWalletClient(cCtx.String(flagWalletServer.Name), cCtx.String(flagVaultToken.Name))
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	app := &cli.App{
		Name:  "walletctl",
		Usage: "Wallet custody API client",
		Flags: []cli.Flag{
			flagWalletServer,
			flagVaultToken,
		},
		Commands: []*cli.Command{
			&cli.Command{
				Name:  "list-users",
				Usage: "List user wallets",
				Action: func(cCtx *cli.Context) error {
					users, err := walletClient(cCtx).ListUsers(cCtx.Context)
					if err != nil {
						return err
					}
					return printJSON(users)
				},
			},
			&cli.Command{
				Name:  "get-user",
				Usage: "Show an existing user wallet",
				Flags: []cli.Flag{flagUserID},
				Action: func(cCtx *cli.Context) error {
					userID, err := requireUserID(cCtx)
					if err != nil {
						return err
					}
					info, err := walletClient(cCtx).GetUser(cCtx.Context, userID)
					if err != nil {
						return err
					}
					return printJSON(info)
				},
			},
			&cli.Command{
				Name:  "create-user",
				Usage: "Create a user wallet, generating a user id if none is given",
				Flags: []cli.Flag{flagUserID},
				Action: func(cCtx *cli.Context) error {
					userID := cCtx.String(flagUserID.Name)
					if userID == "" {
						userID = uuid.NewString()
					}
					info, err := walletClient(cCtx).CreateUser(cCtx.Context, userID)
					if err != nil {
						return err
					}
					return printJSON(info)
				},
			},
			&cli.Command{
				Name:  "manager",
				Usage: "Show the manager wallet",
				Action: func(cCtx *cli.Context) error {
					info, err := walletClient(cCtx).GetManager(cCtx.Context)
					if err != nil {
						return err
					}
					return printJSON(info)
				},
			},
			&cli.Command{
				Name:  "sign",
				Usage: "Sign a payload with a user or the manager key",
				Flags: []cli.Flag{flagUserID, flagManager, flagPayload},
				Action: func(cCtx *cli.Context) error {
					payload, err := base64.StdEncoding.DecodeString(cCtx.String(flagPayload.Name))
					if err != nil {
						return fmt.Errorf("invalid payload: %w", err)
					}

					userID := cCtx.String(flagUserID.Name)
					asManager := cCtx.Bool(flagManager.Name)
					if (userID == "") == !asManager {
						return errors.New("exactly one of --user-id and --manager is required")
					}

					client := walletClient(cCtx)
					var sig []byte
					if asManager {
						sig, err = client.SignAsManager(cCtx.Context, payload)
					} else {
						sig, err = client.SignAsUser(cCtx.Context, userID, payload)
					}
					if err != nil {
						return err
					}

					fmt.Println(base64.StdEncoding.EncodeToString(sig))
					return nil
				},
			},
			&cli.Command{
				Name:  "create-asset",
				Usage: "Create an asset owned by the manager",
				Flags: []cli.Flag{flagTotal, flagDecimals, flagUnitName, flagAssetName, flagURL, flagNote},
				Action: func(cCtx *cli.Context) error {
					resp, err := walletClient(cCtx).CreateAsset(cCtx.Context, api.CreateAssetRequest{
						Total:     cCtx.Uint64(flagTotal.Name),
						Decimals:  uint32(cCtx.Uint(flagDecimals.Name)),
						UnitName:  cCtx.String(flagUnitName.Name),
						AssetName: cCtx.String(flagAssetName.Name),
						URL:       cCtx.String(flagURL.Name),
						Note:      []byte(cCtx.String(flagNote.Name)),
					})
					if err != nil {
						return err
					}
					return printJSON(resp)
				},
			},
			&cli.Command{
				Name:  "transfer-asset",
				Usage: "Send asset units from the manager to a user",
				Flags: []cli.Flag{flagAssetID, flagUserID, flagAmount, flagNote},
				Action: func(cCtx *cli.Context) error {
					userID, err := requireUserID(cCtx)
					if err != nil {
						return err
					}
					resp, err := walletClient(cCtx).TransferAsset(cCtx.Context, api.TransferAssetRequest{
						AssetID: cCtx.Uint64(flagAssetID.Name),
						UserID:  userID,
						Amount:  cCtx.Uint64(flagAmount.Name),
						Note:    []byte(cCtx.String(flagNote.Name)),
					})
					if err != nil {
						return err
					}
					return printJSON(resp)
				},
			},
			&cli.Command{
				Name:  "clawback-asset",
				Usage: "Return asset units from a user to the manager",
				Flags: []cli.Flag{flagAssetID, flagUserID, flagAmount, flagNote},
				Action: func(cCtx *cli.Context) error {
					userID, err := requireUserID(cCtx)
					if err != nil {
						return err
					}
					resp, err := walletClient(cCtx).ClawbackAsset(cCtx.Context, api.ClawbackAssetRequest{
						AssetID: cCtx.Uint64(flagAssetID.Name),
						UserID:  userID,
						Amount:  cCtx.Uint64(flagAmount.Name),
						Note:    []byte(cCtx.String(flagNote.Name)),
					})
					if err != nil {
						return err
					}
					return printJSON(resp)
				},
			},
			&cli.Command{
				Name:  "assets",
				Usage: "Show a user's balance and asset holdings",
				Flags: []cli.Flag{flagUserID},
				Action: func(cCtx *cli.Context) error {
					userID, err := requireUserID(cCtx)
					if err != nil {
						return err
					}
					assets, err := walletClient(cCtx).GetUserAssets(cCtx.Context, userID)
					if err != nil {
						return err
					}
					return printJSON(assets)
				},
			},
			&cli.Command{
				Name:  "verify",
				Usage: "Verify a signature against an account address offline",
				Flags: []cli.Flag{flagAddress, flagPayload, flagSignature},
				Action: func(cCtx *cli.Context) error {
					pub, err := cryptoutils.DecodeAddress(cCtx.String(flagAddress.Name))
					if err != nil {
						return err
					}
					payload, err := base64.StdEncoding.DecodeString(cCtx.String(flagPayload.Name))
					if err != nil {
						return fmt.Errorf("invalid payload: %w", err)
					}
					sig, err := base64.StdEncoding.DecodeString(cCtx.String(flagSignature.Name))
					if err != nil {
						return fmt.Errorf("invalid signature: %w", err)
					}

					if !cryptoutils.VerifySignature(pub, payload, sig) {
						return errors.New("signature does not verify")
					}
					fmt.Println("OK")
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
