// Package kms is the key custody gateway of the wallet backend.
//
// Private keys live in HashiCorp Vault's transit engine and never leave it.
// The gateway looks keys up, creates them lazily, derives account addresses
// from their public keys and asks Vault for signatures. It implements
// interfaces.KeyCustody and interfaces.TokenValidator:
//
//	// KeyCustody obtains public keys, addresses and signatures for keys held
//	// in a remote secret store.
//	type KeyCustody interface {
//	    GetOrCreateKey(ctx, handle, token) (PublicKey, error)
//	    PublicKey(ctx, handle, token) (PublicKey, error)
//	    ListKeys(ctx, basePath, token) ([]KeyInfo, error)
//	    Sign(ctx, handle, payload, token) ([]byte, error)
//	    SignAsManager(ctx, payload, token) ([]byte, error)
//	    ManagerKey(ctx, token) (PublicKey, error)
//	    Address(pub) (string, error)
//	}
//
// # VaultCustody
//
// VaultCustody talks to Vault through a SecretTransport (normally
// *vault.Transport). Paths used, relative to {base_url}/v1:
//
//	GET  {base_path}/keys/{name}   latest public key, highest numeric version wins
//	POST {base_path}/keys/{name}   create, only after a 404 on the read above
//	LIST {base_path}/keys          key names, order preserved by ListKeys
//	POST {base_path}/sign/{name}   {"input": base64} -> "vault:v1:<base64>"
//
// Signature envelopes must have exactly three colon-separated fields; anything
// else is a protocol error, distinct from Vault's HTTP errors.
//
// # VaultTokenValidator
//
// Checks a session token with GET auth/token/lookup-self on every call.
//
// # Concurrency
//
// Both types are stateless and safe for concurrent use. Concurrent first-use
// creation of the same key is resolved by Vault: creation is idempotent, so
// racing callers read the same key. Nothing is retried.
package kms
