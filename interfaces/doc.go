// Package interfaces defines the core types and contracts of the wallet key
// custody gateway, separating them from their Vault-backed implementations.
//
// # Custody Interfaces
//
// KeyCustody: Looks up, lazily creates and lists transit keys, derives
// account addresses and obtains signatures. Private keys never leave the
// secret store.
//
// TokenValidator: Checks a caller's session token against the secret store
// before any custody call is trusted.
//
// # Types
//
//   - SigningKeyHandle: key name plus mount namespace identifying a remote key
//   - PublicKey: the 32-byte public half of the latest key version
//   - KeyInfo: key name, public key and derived address
//
// # Errors
//
// Every custody failure is a *CustodyError carrying its ErrorKind, the
// upstream HTTP status and the operation that failed. Callers match kinds
// with errors.Is against the Err* sentinels or with KindOf:
//
//	if errors.Is(err, interfaces.ErrForbidden) {
//	    ...
//	}
package interfaces
