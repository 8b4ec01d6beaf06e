// Package vault is the transport adapter between the custody gateway and a
// HashiCorp Vault server.
//
// Transport wraps a single *api.Client owned by the caller's gateway. It
// issues GET, POST and LIST requests against {address}/v1/..., attaches the
// caller's session token as X-Vault-Token on each request, propagates the
// caller's context, and never retries. Failures are returned as
// *interfaces.CustodyError classified by status code:
//
//	401       -> KindUnauthorized
//	403       -> KindForbidden
//	404       -> KindNotFound
//	otherwise -> KindInternal (Timeout set for deadline failures)
//
// Package vaulttest provides an in-memory transit engine served over
// httptest for exercising the adapter and the gateway end to end.
package vault
