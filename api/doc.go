/*
Package api holds the wire types and server configuration of the wallet HTTP
API.

The API fronts the custody gateway for wallet consumers. Every route except
the health endpoints requires the caller's secret store session token in the
Authorization header as "Bearer <token>". The token is validated against the
store before any key operation and is never cached.

# Endpoints

  - GET  /wallet/users/ - List user wallets
  - GET  /wallet/users/{user_id} - Get a user wallet
  - POST /wallet/user/ - Create a user wallet on first use (201)
  - GET  /wallet/manager/ - Get the manager wallet
  - POST /wallet/users/{user_id}/sign - Sign a payload with a user key
  - POST /wallet/manager/sign - Sign a payload with the manager key
  - GET  /livez, /readyz, /drain, /undrain - Health and draining

When the server is connected to an algod node it also serves the asset
routes of AssetProvider:

  - POST /wallet/transactions/create-asset - Create an asset owned by the manager (201)
  - POST /wallet/transactions/transfer-asset - Send units to a user, opting in if needed (201)
  - POST /wallet/transactions/clawback-asset - Return units from a user to the manager (201)
  - GET  /wallet/users/{user_id}/assets - Balance and asset holdings of a user

# Errors

Failures are returned as ErrorResponse with a status derived from the
failure kind: 401 unauthorized, 403 forbidden, 404 not found, 502 for an
unexpected store response and 500 otherwise. Invalid asset requests are 400.

The clients subpackage implements WalletProvider over HTTP.
*/
package api
