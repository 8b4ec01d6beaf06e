package chain

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"log/slog"

	"github.com/algorand/go-algorand-sdk/v2/client/v2/common/models"
	"github.com/algorand/go-algorand-sdk/v2/crypto"
	"github.com/algorand/go-algorand-sdk/v2/encoding/msgpack"
	"github.com/algorand/go-algorand-sdk/v2/transaction"
	"github.com/algorand/go-algorand-sdk/v2/types"
	"github.com/ruteri/vault-wallet-custody/interfaces"
	"github.com/ruteri/vault-wallet-custody/metrics"
)

// Minimum balances in microAlgos required by the protocol.
const (
	BaseMinBalance  = 100_000
	AssetMinBalance = 100_000
)

// ErrInvalidRequest is wrapped by every request validation failure.
var ErrInvalidRequest = errors.New("invalid request")

// AssetParams describes a new asset. The manager account becomes its
// creator and holds every asset role, so it can later claw units back.
type AssetParams struct {
	Total         uint64
	Decimals      uint32
	DefaultFrozen bool
	UnitName      string
	AssetName     string
	URL           string
	Note          []byte
}

// TransferRequest moves Amount units of AssetID from the manager to a user.
type TransferRequest struct {
	AssetID uint64
	UserID  string
	Amount  uint64
	Note    []byte

	// Lease, if set, must be 32 bytes.
	Lease []byte
}

// ClawbackRequest moves Amount units of AssetID from a user back to the manager.
type ClawbackRequest struct {
	AssetID uint64
	UserID  string
	Amount  uint64
	Note    []byte
}

// AssetHolding is one asset held by an account.
type AssetHolding struct {
	AssetID  uint64
	Amount   uint64
	IsFrozen bool
}

// AccountAssets is the on-chain state of a user account.
type AccountAssets struct {
	Address     string
	AlgoBalance uint64
	Assets      []AssetHolding
}

// Service builds Algorand transactions, has them signed by the custody
// gateway and submits them to algod. Private keys never leave the store:
// only the "TX"-prefixed transaction bytes are sent for signing.
type Service struct {
	custody   interfaces.KeyCustody
	algod     Algod
	usersPath string
	log       *slog.Logger
}

func NewService(custody interfaces.KeyCustody, algod Algod, usersPath string, log *slog.Logger) *Service {
	return &Service{
		custody:   custody,
		algod:     algod,
		usersPath: usersPath,
		log:       log,
	}
}

type signFunc func(ctx context.Context, msg []byte) ([]byte, error)

// CreateAsset creates an asset owned by the manager and returns the
// transaction id.
func (s *Service) CreateAsset(ctx context.Context, params AssetParams, token string) (string, error) {
	if params.Total == 0 {
		return "", fmt.Errorf("%w: total must be positive", ErrInvalidRequest)
	}

	manager, err := s.managerAddress(ctx, token)
	if err != nil {
		return "", err
	}

	sp, err := s.suggestedParams(ctx)
	if err != nil {
		return "", err
	}

	txn, err := transaction.MakeAssetCreateTxn(manager, params.Note, sp, params.Total, params.Decimals,
		params.DefaultFrozen, manager, manager, manager, manager,
		params.UnitName, params.AssetName, params.URL, "")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	return s.submit(ctx, "create-asset", []types.Transaction{txn}, func(types.Address) signFunc {
		return s.managerSigner(token)
	})
}

// TransferAsset sends units from the manager to a user. If the user's
// account has not opted in to the asset, the transfer is grouped after an
// opt-in signed with the user's key, preceded by a payment covering the
// user's minimum balance when needed. The manager pays all fees.
func (s *Service) TransferAsset(ctx context.Context, req TransferRequest, token string) (string, error) {
	if req.AssetID == 0 || req.Amount == 0 {
		return "", fmt.Errorf("%w: asset id and amount must be positive", ErrInvalidRequest)
	}
	if len(req.Lease) != 0 && len(req.Lease) != 32 {
		return "", fmt.Errorf("%w: lease must be 32 bytes", ErrInvalidRequest)
	}

	manager, err := s.managerAddress(ctx, token)
	if err != nil {
		return "", err
	}
	user, userAddr, err := s.userAccount(ctx, req.UserID, token)
	if err != nil {
		return "", err
	}

	account, err := s.accountInformation(ctx, userAddr)
	if err != nil {
		return "", err
	}

	sp, err := s.suggestedParams(ctx)
	if err != nil {
		return "", err
	}

	xfer, err := transaction.MakeAssetTransferTxn(manager, userAddr, req.Amount, req.Note, sp, "", req.AssetID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	copy(xfer.Lease[:], req.Lease)

	var txns []types.Transaction
	if !holdsAsset(account, req.AssetID) {
		if funding := fundingNeeded(account); funding > 0 {
			pay, err := transaction.MakePaymentTxn(manager, userAddr, funding, nil, "", sp)
			if err != nil {
				return "", err
			}
			txns = append(txns, pay)
		}

		optIn, err := transaction.MakeAssetAcceptanceTxn(userAddr, nil, sp, req.AssetID)
		if err != nil {
			return "", err
		}
		optIn.Fee = 0
		txns = append(txns, optIn)

		// The first manager transaction covers the opt-in fee.
		if txns[0].Type == types.PaymentTx {
			txns[0].Fee += types.MicroAlgos(sp.MinFee)
		} else {
			xfer.Fee += types.MicroAlgos(sp.MinFee)
		}

		s.log.Info("Opting user in to asset",
			slog.String("user", req.UserID),
			slog.Uint64("asset", req.AssetID),
			slog.Bool("funded", len(txns) > 1))
	}
	txns = append(txns, xfer)

	return s.submit(ctx, "transfer-asset", txns, func(sender types.Address) signFunc {
		if sender.String() == userAddr {
			return s.userSigner(user, token)
		}
		return s.managerSigner(token)
	})
}

// ClawbackAsset revokes units from a user back to the manager.
func (s *Service) ClawbackAsset(ctx context.Context, req ClawbackRequest, token string) (string, error) {
	if req.AssetID == 0 || req.Amount == 0 {
		return "", fmt.Errorf("%w: asset id and amount must be positive", ErrInvalidRequest)
	}

	manager, err := s.managerAddress(ctx, token)
	if err != nil {
		return "", err
	}
	_, userAddr, err := s.userAccount(ctx, req.UserID, token)
	if err != nil {
		return "", err
	}

	sp, err := s.suggestedParams(ctx)
	if err != nil {
		return "", err
	}

	txn, err := transaction.MakeAssetRevocationTxn(manager, userAddr, req.Amount, manager, req.Note, sp, req.AssetID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	return s.submit(ctx, "clawback-asset", []types.Transaction{txn}, func(types.Address) signFunc {
		return s.managerSigner(token)
	})
}

// UserAssets returns the balance and asset holdings of a user's account.
func (s *Service) UserAssets(ctx context.Context, userID string, token string) (*AccountAssets, error) {
	_, address, err := s.userAccount(ctx, userID, token)
	if err != nil {
		return nil, err
	}

	account, err := s.accountInformation(ctx, address)
	if err != nil {
		return nil, err
	}

	assets := make([]AssetHolding, len(account.Assets))
	for i, holding := range account.Assets {
		assets[i] = AssetHolding{AssetID: holding.AssetId, Amount: holding.Amount, IsFrozen: holding.IsFrozen}
	}
	return &AccountAssets{Address: address, AlgoBalance: account.Amount, Assets: assets}, nil
}

// submit groups txns if there is more than one, signs each with the key of
// its sender and sends them. It returns the id of the last transaction.
func (s *Service) submit(ctx context.Context, op string, txns []types.Transaction, signerFor func(types.Address) signFunc) (string, error) {
	if len(txns) > 1 {
		for i := range txns {
			txns[i].Group = types.Digest{}
		}
		gid, err := crypto.ComputeGroupID(txns)
		if err != nil {
			return "", fmt.Errorf("failed to compute group ID: %w", err)
		}
		for i := range txns {
			txns[i].Group = gid
		}
	}

	var raw []byte
	for _, txn := range txns {
		signed, err := signTransaction(ctx, txn, signerFor(txn.Sender))
		if err != nil {
			return "", err
		}
		raw = append(raw, signed...)
	}

	if _, err := s.algod.SendRawTransaction(ctx, raw); err != nil {
		metrics.RecordTransaction(op, "error")
		s.log.Error("Transaction rejected", slog.String("op", op), slog.Any("err", err))
		return "", algodError(op, err)
	}
	metrics.RecordTransaction(op, "ok")

	txID := crypto.GetTxID(txns[len(txns)-1])
	s.log.Info("Transaction submitted", slog.String("op", op), slog.String("txid", txID), slog.Int("groupSize", len(txns)))
	return txID, nil
}

func (s *Service) managerSigner(token string) signFunc {
	return func(ctx context.Context, msg []byte) ([]byte, error) {
		return s.custody.SignAsManager(ctx, msg, token)
	}
}

func (s *Service) userSigner(handle interfaces.SigningKeyHandle, token string) signFunc {
	return func(ctx context.Context, msg []byte) ([]byte, error) {
		return s.custody.Sign(ctx, handle, msg, token)
	}
}

func (s *Service) managerAddress(ctx context.Context, token string) (string, error) {
	pub, err := s.custody.ManagerKey(ctx, token)
	if err != nil {
		return "", err
	}
	return s.custody.Address(pub)
}

// userAccount resolves an existing user. Unknown users are not created.
func (s *Service) userAccount(ctx context.Context, userID string, token string) (interfaces.SigningKeyHandle, string, error) {
	handle, err := interfaces.NewSigningKeyHandle(userID, s.usersPath)
	if err != nil {
		return handle, "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	pub, err := s.custody.PublicKey(ctx, handle, token)
	if err != nil {
		return handle, "", err
	}

	address, err := s.custody.Address(pub)
	return handle, address, err
}

func (s *Service) suggestedParams(ctx context.Context) (types.SuggestedParams, error) {
	sp, err := s.algod.SuggestedParams(ctx)
	if err != nil {
		return sp, algodError("suggested-params", err)
	}
	sp.FlatFee = true
	sp.Fee = types.MicroAlgos(sp.MinFee)
	return sp, nil
}

func (s *Service) accountInformation(ctx context.Context, address string) (models.Account, error) {
	account, err := s.algod.AccountInformation(ctx, address)
	if err != nil {
		return account, algodError("account-information", err)
	}
	return account, nil
}

// signTransaction signs the "TX"-prefixed msgpack encoding of txn and
// returns the encoded SignedTxn.
func signTransaction(ctx context.Context, txn types.Transaction, sign signFunc) ([]byte, error) {
	sig, err := sign(ctx, encodeTxnToBytes(txn))
	if err != nil {
		return nil, err
	}
	if len(sig) != ed25519.SignatureSize {
		return nil, interfaces.NewProtocolError("sign", "", "unexpected signature length %d", len(sig))
	}

	var sigArr types.Signature
	copy(sigArr[:], sig)
	return msgpack.Encode(types.SignedTxn{Txn: txn, Sig: sigArr}), nil
}

func encodeTxnToBytes(txn types.Transaction) []byte {
	return append([]byte("TX"), msgpack.Encode(txn)...)
}

func holdsAsset(account models.Account, assetID uint64) bool {
	for _, holding := range account.Assets {
		if holding.AssetId == assetID {
			return true
		}
	}
	return false
}

// fundingNeeded returns the microAlgos the account lacks to hold one more asset.
func fundingNeeded(account models.Account) uint64 {
	minBalance := account.MinBalance
	if minBalance < BaseMinBalance {
		minBalance = BaseMinBalance
	}
	required := minBalance + AssetMinBalance
	if account.Amount >= required {
		return 0
	}
	return required - account.Amount
}

func algodError(op string, err error) error {
	return &interfaces.CustodyError{Kind: interfaces.KindInternal, Op: "algod " + op, Err: err}
}
