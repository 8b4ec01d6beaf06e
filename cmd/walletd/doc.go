// Package main (cmd/walletd) implements the wallet custody server.
//
// walletd serves the wallet HTTP API in front of Vault's transit engine.
// Private keys never leave Vault: the server derives account addresses from
// the public keys Vault reports and forwards signing requests with the
// caller's own Vault token, validated on every request.
//
// Vault settings may be given as flags or through the environment
// (VAULT_BASE_URL, VAULT_TRANSIT_USERS_PATH, VAULT_TRANSIT_MANAGERS_PATH,
// VAULT_MANAGER_KEY). Setting --algod-addr (ALGOD_ADDR) enables the asset
// transaction routes.
//
// The server implements graceful shutdown on receiving termination signals
// (SIGINT/SIGTERM) and supports health checks, metrics collection and
// optional profiling endpoints. /readyz reports unavailable while Vault is
// unreachable or sealed.
//
// Example usage:
//
//	walletd --listen-addr=0.0.0.0:8080 \
//	    --vault-addr=https://vault.internal:8200 \
//	    --vault-manager-key=treasury
package main
