package transfers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/R3E-Network/vybe_engagement/internal/app/auth"
	core "github.com/R3E-Network/vybe_engagement/internal/app/core/service"
	"github.com/R3E-Network/vybe_engagement/internal/app/domain/wallet"
	"github.com/R3E-Network/vybe_engagement/internal/app/metrics"
	"github.com/R3E-Network/vybe_engagement/internal/app/storage"
	apperrors "github.com/R3E-Network/vybe_engagement/internal/errors"
	"github.com/R3E-Network/vybe_engagement/pkg/logger"
	"github.com/shopspring/decimal"
)

// MaxIdempotencyKeyLength bounds caller-supplied keys.
const MaxIdempotencyKeyLength = 128

// Request describes one value movement.
type Request struct {
	From           string
	To             string
	Amount         decimal.Decimal
	Kind           wallet.TransferKind
	PostID         string
	IdempotencyKey string
}

// TipTotal aggregates the tips a post has received.
type TipTotal struct {
	PostID string          `json:"post_id"`
	Total  decimal.Decimal `json:"total"`
	Count  int64           `json:"count"`
}

// Service moves value between wallets. Debit, credit and the transfer record
// are written in one store transaction.
type Service struct {
	store   storage.LedgerStore
	parties auth.Directory
	log     *logger.Logger
}

// New constructs a transfer engine. parties may be nil, in which case any
// non-empty id is accepted as a party.
func New(store storage.LedgerStore, parties auth.Directory, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("transfers")
	}
	return &Service{store: store, parties: parties, log: log}
}

// Descriptor advertises the service.
func (s *Service) Descriptor() core.Descriptor {
	return core.Descriptor{
		Name:         "transfers",
		Domain:       "wallet",
		Layer:        core.LayerLedger,
		Capabilities: []string{"transfer", "idempotency-key", "history", "post-tips"},
	}
}

// Transfer validates req and applies it atomically. A request carrying an
// idempotency key already used by the same payer returns the original record.
func (s *Service) Transfer(ctx context.Context, req Request) (wallet.Transfer, error) {
	candidate, err := s.validate(ctx, req)
	if err != nil {
		metrics.RecordTransfer(string(req.Kind), "rejected", 0)
		return wallet.Transfer{}, err
	}

	// Once the transaction starts it runs to completion.
	ctx = context.WithoutCancel(ctx)

	var (
		result   wallet.Transfer
		replayed bool
	)
	err = s.store.WithinTx(ctx, func(tx storage.LedgerTx) error {
		if candidate.IdempotencyKey != "" {
			existing, err := tx.GetTransferByKey(ctx, candidate.FromOwner, candidate.IdempotencyKey)
			switch {
			case err == nil:
				if !existing.SameRequest(candidate) {
					return apperrors.ErrIdempotencyConflict
				}
				result, replayed = existing, true
				return nil
			case !errors.Is(err, storage.ErrNotFound):
				return err
			}
		}

		if _, err := tx.GetOrCreateWallet(ctx, candidate.FromOwner); err != nil {
			return err
		}
		if _, err := tx.GetOrCreateWallet(ctx, candidate.ToOwner); err != nil {
			return err
		}
		for _, leg := range legs(candidate) {
			if _, err := tx.AdjustBalance(ctx, leg.owner, leg.delta); err != nil {
				return err
			}
		}

		rec, err := tx.CreateTransfer(ctx, candidate)
		if err != nil {
			return err
		}
		result = rec
		return nil
	})

	if errors.Is(err, storage.ErrDuplicateKey) && candidate.IdempotencyKey != "" {
		result, err = s.resolveRace(ctx, candidate)
		replayed = err == nil
	}
	if err != nil {
		return wallet.Transfer{}, s.fail(candidate, err)
	}

	entry := s.log.WithField("transfer_id", result.ID).
		WithField("from", result.FromOwner).
		WithField("to", result.ToOwner).
		WithField("amount", result.Amount.String()).
		WithField("kind", result.Kind)
	if replayed {
		metrics.RecordTransfer(string(result.Kind), "replayed", 0)
		entry.Info("transfer replayed from idempotency key")
		return result, nil
	}
	amount, _ := result.Amount.Float64()
	metrics.RecordTransfer(string(result.Kind), "success", amount)
	entry.Info("transfer applied")
	return result, nil
}

func (s *Service) validate(ctx context.Context, req Request) (wallet.Transfer, error) {
	from := strings.TrimSpace(req.From)
	to := strings.TrimSpace(req.To)
	if from == "" || to == "" {
		return wallet.Transfer{}, apperrors.ErrInvalidParty
	}
	if s.parties != nil {
		for _, id := range []string{from, to} {
			known, err := s.parties.ActorExists(ctx, id)
			if err != nil {
				return wallet.Transfer{}, fmt.Errorf("resolve party %s: %w", id, err)
			}
			if !known {
				return wallet.Transfer{}, apperrors.ErrInvalidParty.WithDetails("party", id)
			}
		}
	}
	if from == to {
		return wallet.Transfer{}, apperrors.ErrSelfTransfer
	}
	if !wallet.ValidAmount(req.Amount) {
		return wallet.Transfer{}, apperrors.ErrInvalidAmount
	}

	kind := req.Kind
	if kind == "" {
		kind = wallet.KindTip
	}
	if !kind.Valid() {
		return wallet.Transfer{}, apperrors.InvalidInput("kind", "must be tip, gift or refund")
	}
	key := strings.TrimSpace(req.IdempotencyKey)
	if len(key) > MaxIdempotencyKeyLength {
		return wallet.Transfer{}, apperrors.InvalidInput("idempotency_key", "too long")
	}

	return wallet.Transfer{
		FromOwner:      from,
		ToOwner:        to,
		Amount:         req.Amount,
		Kind:           kind,
		PostID:         strings.TrimSpace(req.PostID),
		IdempotencyKey: key,
	}, nil
}

// resolveRace handles a concurrent request with the same key that committed
// first: this attempt has rolled back and returns the winner instead.
func (s *Service) resolveRace(ctx context.Context, candidate wallet.Transfer) (wallet.Transfer, error) {
	winner, err := s.store.GetTransferByKey(ctx, candidate.FromOwner, candidate.IdempotencyKey)
	if err != nil {
		return wallet.Transfer{}, err
	}
	if !winner.SameRequest(candidate) {
		return wallet.Transfer{}, apperrors.ErrIdempotencyConflict
	}
	return winner, nil
}

func (s *Service) fail(candidate wallet.Transfer, err error) error {
	err = core.TranslateStoreError(err)
	entry := s.log.WithField("from", candidate.FromOwner).
		WithField("to", candidate.ToOwner).
		WithField("amount", candidate.Amount.String())

	switch {
	case errors.Is(err, apperrors.ErrInsufficientFunds):
		metrics.RecordTransfer(string(candidate.Kind), "insufficient_funds", 0)
		entry.Warn("transfer rejected: insufficient funds")
	case errors.Is(err, apperrors.ErrIdempotencyConflict):
		metrics.RecordTransfer(string(candidate.Kind), "conflict", 0)
		entry.WithField("idempotency_key", candidate.IdempotencyKey).Warn("idempotency key reused with different parameters")
	default:
		metrics.RecordTransfer(string(candidate.Kind), "error", 0)
		entry.WithError(err).Error("transfer failed")
	}
	return fmt.Errorf("transfer %s -> %s: %w", candidate.FromOwner, candidate.ToOwner, err)
}

type leg struct {
	owner string
	delta decimal.Decimal
}

// legs orders the debit and credit by owner id so two opposite transfers lock
// rows in the same order.
func legs(tr wallet.Transfer) []leg {
	debit := leg{owner: tr.FromOwner, delta: tr.Amount.Neg()}
	credit := leg{owner: tr.ToOwner, delta: tr.Amount}
	if credit.owner < debit.owner {
		return []leg{credit, debit}
	}
	return []leg{debit, credit}
}

// History lists transfers sent or received by owner, newest first.
func (s *Service) History(ctx context.Context, ownerID string, limit int) ([]wallet.Transfer, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, apperrors.ErrInvalidParty
	}
	result, err := s.store.ListTransfers(ctx, ownerID, core.ClampLimit(limit))
	if err != nil {
		return nil, core.TranslateStoreError(fmt.Errorf("list transfers %s: %w", ownerID, err))
	}
	return result, nil
}

// PostTipTotal sums the tips that reference postID.
func (s *Service) PostTipTotal(ctx context.Context, postID string) (TipTotal, error) {
	postID = strings.TrimSpace(postID)
	if postID == "" {
		return TipTotal{}, apperrors.InvalidInput("post_id", "required")
	}
	total, count, err := s.store.SumPostTransfers(ctx, postID, wallet.KindTip)
	if err != nil {
		return TipTotal{}, core.TranslateStoreError(fmt.Errorf("sum tips %s: %w", postID, err))
	}
	return TipTotal{PostID: postID, Total: total, Count: count}, nil
}
