/*
Package httpserver serves the wallet API over HTTP.

The Server wires a chi router with per-request access logging, readiness
and draining endpoints, an optional pprof mount and a separate Prometheus
metrics listener. The Handler translates wallet routes into calls on an
interfaces.KeyCustody after RequireToken has validated the caller's bearer
token against the secret store. Asset routes are registered only when an
AssetService is attached with WithAssetService.

Gateway failures are rendered as api.ErrorResponse with the status given by
interfaces.StatusForKind. Request decoding failures carry their own status
through RequestError.
*/
package httpserver
