package wallets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	core "github.com/R3E-Network/vybe_engagement/internal/app/core/service"
	"github.com/R3E-Network/vybe_engagement/internal/app/domain/wallet"
	"github.com/R3E-Network/vybe_engagement/internal/app/storage"
	apperrors "github.com/R3E-Network/vybe_engagement/internal/errors"
	"github.com/R3E-Network/vybe_engagement/pkg/logger"
	"github.com/shopspring/decimal"
)

// Service owns per-actor balances.
type Service struct {
	store storage.WalletStore
	log   *logger.Logger
}

// New constructs a wallet service.
func New(store storage.WalletStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("wallets")
	}
	return &Service{store: store, log: log}
}

// Descriptor advertises the service.
func (s *Service) Descriptor() core.Descriptor {
	return core.Descriptor{
		Name:         "wallets",
		Domain:       "wallet",
		Layer:        core.LayerLedger,
		Capabilities: []string{"get-or-create", "adjust", "balance", "deposit", "supply"},
	}
}

// GetOrCreate returns the owner's wallet, creating an empty one on first use.
func (s *Service) GetOrCreate(ctx context.Context, ownerID string) (wallet.Wallet, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return wallet.Wallet{}, apperrors.ErrInvalidParty
	}
	w, err := s.store.GetOrCreateWallet(ctx, ownerID)
	if err != nil {
		return wallet.Wallet{}, core.TranslateStoreError(fmt.Errorf("get or create wallet %s: %w", ownerID, err))
	}
	return w, nil
}

// Adjust applies delta to the owner's balance in one store operation. The
// wallet is created first when missing.
func (s *Service) Adjust(ctx context.Context, ownerID string, delta decimal.Decimal) (wallet.Wallet, error) {
	if !delta.IsZero() && !wallet.ValidAmount(delta.Abs()) {
		return wallet.Wallet{}, apperrors.ErrInvalidAmount
	}
	w, err := s.GetOrCreate(ctx, ownerID)
	if err != nil {
		return wallet.Wallet{}, err
	}
	if delta.IsZero() {
		return w, nil
	}

	w, err = s.store.AdjustBalance(ctx, w.OwnerID, delta)
	if err != nil {
		if errors.Is(err, storage.ErrInsufficientFunds) {
			s.log.WithField("owner_id", ownerID).
				WithField("delta", delta.String()).
				Warn("adjust rejected: insufficient funds")
		}
		return wallet.Wallet{}, core.TranslateStoreError(fmt.Errorf("adjust wallet %s: %w", ownerID, err))
	}
	return w, nil
}

// GetBalance returns the owner's current balance; owners without a wallet
// read as zero.
func (s *Service) GetBalance(ctx context.Context, ownerID string) (decimal.Decimal, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return decimal.Zero, apperrors.ErrInvalidParty
	}
	w, err := s.store.GetWallet(ctx, ownerID)
	if errors.Is(err, storage.ErrNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, core.TranslateStoreError(fmt.Errorf("get wallet %s: %w", ownerID, err))
	}
	return w.Balance, nil
}

// Deposit credits amount to the owner. It is the operator top-up path and the
// only way value enters the system.
func (s *Service) Deposit(ctx context.Context, ownerID string, amount decimal.Decimal) (wallet.Wallet, error) {
	if !wallet.ValidAmount(amount) {
		return wallet.Wallet{}, apperrors.ErrInvalidAmount
	}
	w, err := s.Adjust(ctx, ownerID, amount)
	if err != nil {
		return wallet.Wallet{}, err
	}
	s.log.WithField("owner_id", w.OwnerID).
		WithField("amount", amount.String()).
		WithField("balance", w.Balance.String()).
		Info("wallet deposit applied")
	return w, nil
}

// TotalSupply sums every wallet balance.
func (s *Service) TotalSupply(ctx context.Context) (decimal.Decimal, error) {
	total, err := s.store.SumBalances(ctx)
	if err != nil {
		return decimal.Zero, core.TranslateStoreError(fmt.Errorf("sum balances: %w", err))
	}
	return total, nil
}
