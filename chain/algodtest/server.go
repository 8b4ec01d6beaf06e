// Package algodtest runs a minimal in-memory algod behind an httptest
// server. It verifies signatures and group ids of submitted transactions
// and applies payments, asset creation, opt-ins, transfers and clawbacks
// to its ledger.
package algodtest

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/encoding/msgpack"
	"github.com/algorand/go-algorand-sdk/v2/types"
)

const (
	MinFee      = 1000
	MinBalance  = 100_000
	LastRound   = 1000
	GenesisID   = "testnet-v1.0"
	TokenHeader = "X-Algo-API-Token"
)

// GenesisHash is the fixed genesis hash reported by every server.
var GenesisHash = bytes.Repeat([]byte{0x42}, 32)

type holding struct {
	amount uint64
	frozen bool
}

type account struct {
	amount   uint64
	holdings map[uint64]*holding
}

func (a *account) minBalance() uint64 {
	return MinBalance * uint64(1+len(a.holdings))
}

type asset struct {
	params types.AssetParams
}

type ledger struct {
	accounts  map[string]*account
	assets    map[uint64]*asset
	nextAsset uint64
}

func (l *ledger) clone() *ledger {
	c := &ledger{
		accounts:  make(map[string]*account, len(l.accounts)),
		assets:    make(map[uint64]*asset, len(l.assets)),
		nextAsset: l.nextAsset,
	}
	for addr, acct := range l.accounts {
		holdings := make(map[uint64]*holding, len(acct.holdings))
		for id, h := range acct.holdings {
			hc := *h
			holdings[id] = &hc
		}
		c.accounts[addr] = &account{amount: acct.amount, holdings: holdings}
	}
	for id, a := range l.assets {
		ac := *a
		c.assets[id] = &ac
	}
	return c
}

func (l *ledger) account(addr string) *account {
	acct, ok := l.accounts[addr]
	if !ok {
		acct = &account{holdings: make(map[uint64]*holding)}
		l.accounts[addr] = acct
	}
	return acct
}

// Server is a fake algod. All methods are safe for concurrent use.
type Server struct {
	*httptest.Server

	token string

	mu        sync.Mutex
	ledger    *ledger
	groups    [][]types.SignedTxn
	submitErr string
}

// New starts a fake algod requiring token and stops it when the test ends.
func New(t testing.TB, token string) *Server {
	s := &Server{
		token: token,
		ledger: &ledger{
			accounts:  make(map[string]*account),
			assets:    make(map[uint64]*asset),
			nextAsset: 1000,
		},
	}
	s.Server = httptest.NewServer(s)
	t.Cleanup(s.Close)
	return s
}

// Fund credits microAlgos to addr.
func (s *Server) Fund(addr string, amount uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger.account(addr).amount += amount
}

// Balance returns the microAlgos held by addr.
func (s *Server) Balance(addr string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.account(addr).amount
}

// AssetBalance returns the units of assetID held by addr and whether addr
// has opted in.
func (s *Server) AssetBalance(addr string, assetID uint64) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.ledger.account(addr).holdings[assetID]
	if !ok {
		return 0, false
	}
	return h.amount, true
}

// CreateAsset registers an asset held by creator, bypassing transactions.
func (s *Server) CreateAsset(creator string, params types.AssetParams) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createAsset(s.ledger, creator, params)
}

// LastAssetID returns the id of the most recently created asset, 0 if none.
func (s *Server) LastAssetID() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.ledger.assets) == 0 {
		return 0
	}
	return s.ledger.nextAsset - 1
}

// Groups returns every accepted submission in order.
func (s *Server) Groups() [][]types.SignedTxn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]types.SignedTxn(nil), s.groups...)
}

// RejectSubmissions makes every transaction submission fail with message.
// An empty message restores normal behaviour.
func (s *Server) RejectSubmissions(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitErr = message
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get(TokenHeader) != s.token {
		writeError(w, http.StatusUnauthorized, "invalid API token")
		return
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/v2/transactions/params":
		writeJSON(w, http.StatusOK, map[string]any{
			"consensus-version": "future",
			"fee":               0,
			"genesis-hash":      base64.StdEncoding.EncodeToString(GenesisHash),
			"genesis-id":        GenesisID,
			"last-round":        LastRound,
			"min-fee":           MinFee,
		})
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/v2/accounts/"):
		s.handleAccount(w, strings.TrimPrefix(r.URL.Path, "/v2/accounts/"))
	case r.Method == http.MethodPost && r.URL.Path == "/v2/transactions":
		s.handleSubmit(w, r)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *Server) handleAccount(w http.ResponseWriter, addr string) {
	if _, err := types.DecodeAddress(addr); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	acct := s.ledger.account(addr)
	assets := make([]map[string]any, 0, len(acct.holdings))
	for id, h := range acct.holdings {
		assets = append(assets, map[string]any{"asset-id": id, "amount": h.amount, "is-frozen": h.frozen})
	}
	body := map[string]any{
		"address":     addr,
		"amount":      acct.amount,
		"min-balance": acct.minBalance(),
		"assets":      assets,
		"round":       LastRound,
		"status":      "Offline",
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	group, err := decodeGroup(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitErr != "" {
		writeError(w, http.StatusBadRequest, s.submitErr)
		return
	}

	next := s.ledger.clone()
	for i, stxn := range group {
		if err := apply(next, stxn.Txn); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("transaction %d rejected: %v", i, err))
			return
		}
	}
	s.ledger = next
	s.groups = append(s.groups, group)

	writeJSON(w, http.StatusOK, map[string]string{"txId": crypto.GetTxID(group[0].Txn)})
}

// decodeGroup decodes concatenated signed transactions and checks their
// signatures, group id and pooled fees.
func decodeGroup(raw []byte) ([]types.SignedTxn, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(raw))
	var group []types.SignedTxn
	for {
		var stxn types.SignedTxn
		err := dec.Decode(&stxn)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("could not decode transaction: %w", err)
		}
		group = append(group, stxn)
	}
	if len(group) == 0 {
		return nil, errors.New("empty submission")
	}

	var fees uint64
	for i, stxn := range group {
		msg := append([]byte("TX"), msgpack.Encode(stxn.Txn)...)
		if !ed25519.Verify(stxn.Txn.Sender[:], msg, stxn.Sig[:]) {
			return nil, fmt.Errorf("transaction %d: invalid signature", i)
		}
		if !bytes.Equal(stxn.Txn.GenesisHash[:], GenesisHash) {
			return nil, fmt.Errorf("transaction %d: wrong genesis hash", i)
		}
		fees += uint64(stxn.Txn.Fee)
	}
	if fees < MinFee*uint64(len(group)) {
		return nil, fmt.Errorf("group pays %d in fees, needs %d", fees, MinFee*len(group))
	}

	if len(group) > 1 {
		txns := make([]types.Transaction, len(group))
		for i, stxn := range group {
			txns[i] = stxn.Txn
			txns[i].Group = types.Digest{}
		}
		gid, err := crypto.ComputeGroupID(txns)
		if err != nil {
			return nil, err
		}
		for i, stxn := range group {
			if stxn.Txn.Group != gid {
				return nil, fmt.Errorf("transaction %d: incomplete group", i)
			}
		}
	}
	return group, nil
}

func apply(l *ledger, txn types.Transaction) error {
	sender := l.account(txn.Sender.String())
	if sender.amount < uint64(txn.Fee) {
		return errors.New("overspend")
	}
	sender.amount -= uint64(txn.Fee)

	switch txn.Type {
	case types.PaymentTx:
		amount := uint64(txn.Amount)
		if sender.amount < amount {
			return errors.New("overspend")
		}
		sender.amount -= amount
		l.account(txn.Receiver.String()).amount += amount
	case types.AssetConfigTx:
		if txn.ConfigAsset != 0 {
			return errors.New("asset reconfiguration unsupported")
		}
		createAsset(l, txn.Sender.String(), txn.AssetParams)
	case types.AssetTransferTx:
		if err := transferAsset(l, txn); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported transaction type %q", txn.Type)
	}

	for addr, acct := range l.accounts {
		if acct.amount != 0 && acct.amount < acct.minBalance() {
			return fmt.Errorf("account %s below min balance", addr)
		}
	}
	return nil
}

func createAsset(l *ledger, creator string, params types.AssetParams) uint64 {
	id := l.nextAsset
	l.nextAsset++
	l.assets[id] = &asset{params: params}
	l.account(creator).holdings[id] = &holding{amount: params.Total}
	return id
}

func transferAsset(l *ledger, txn types.Transaction) error {
	id := uint64(txn.XferAsset)
	a, ok := l.assets[id]
	if !ok {
		return fmt.Errorf("asset %d does not exist", id)
	}

	receiver := l.account(txn.AssetReceiver.String())

	// Opt-in: zero amount sent to self.
	if txn.AssetSender.IsZero() && txn.AssetReceiver == txn.Sender && txn.AssetAmount == 0 {
		if _, ok := receiver.holdings[id]; !ok {
			receiver.holdings[id] = &holding{frozen: a.params.DefaultFrozen}
		}
		return nil
	}

	from := txn.Sender
	if !txn.AssetSender.IsZero() {
		if txn.Sender != a.params.Clawback {
			return errors.New("sender is not the clawback account")
		}
		from = txn.AssetSender
	}

	src, ok := l.account(from.String()).holdings[id]
	if !ok {
		return fmt.Errorf("%s has not opted in to asset %d", from, id)
	}
	dst, ok := receiver.holdings[id]
	if !ok {
		return fmt.Errorf("%s has not opted in to asset %d", txn.AssetReceiver, id)
	}
	if src.amount < txn.AssetAmount {
		return fmt.Errorf("underflow on asset %d", id)
	}
	src.amount -= txn.AssetAmount
	dst.amount += txn.AssetAmount
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
