// Package chain submits Algorand asset transactions signed by the custody
// gateway.
//
// Transactions are built with the Algorand SDK, encoded with msgpack and
// signed as "TX" || msgpack(txn) by the key of their sender: the manager key
// for asset creation, transfers and clawbacks, the user's key for opt-ins.
// Keys stay in the secret store.
//
// A transfer to a user who has not opted in to the asset is sent as one
// atomic group:
//
//	[payment manager -> user]   only if the user lacks the minimum balance
//	[opt-in user -> user]       fee 0, covered by the manager
//	[transfer manager -> user]
//
// Algod failures are returned as *interfaces.CustodyError of kind Internal
// with Op "algod <operation>". Validation failures wrap ErrInvalidRequest.
package chain
