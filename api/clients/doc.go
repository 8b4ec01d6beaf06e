/*
Package clients provides an HTTP client for the wallet API.

WalletClient implements api.WalletProvider and api.AssetProvider. It sends the configured secret
store token as a bearer token on every request and turns error responses
back into *interfaces.CustodyError values, so callers can match failures
with errors.Is(err, interfaces.ErrNotFound) and friends.

MockWalletProvider is a testify mock of both interfaces.
*/
package clients
