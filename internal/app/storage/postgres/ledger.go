package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/R3E-Network/vybe_engagement/internal/app/domain/wallet"
	"github.com/R3E-Network/vybe_engagement/internal/app/storage"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// ledger runs wallet and transfer statements against either the pool or an
// open transaction.
type ledger struct {
	q sqlx.ExtContext
}

var _ storage.LedgerTx = ledger{}

const walletColumns = `owner_id, balance, version, created_at, updated_at`

const transferColumns = `id, from_owner, to_owner, amount, kind,
	COALESCE(post_id, '') AS post_id,
	COALESCE(idempotency_key, '') AS idempotency_key,
	created_at`

func (l ledger) GetOrCreateWallet(ctx context.Context, ownerID string) (wallet.Wallet, error) {
	now := time.Now().UTC()
	_, err := l.q.ExecContext(ctx, `
		INSERT INTO wallets (owner_id, balance, version, created_at, updated_at)
		VALUES ($1, 0, 0, $2, $2)
		ON CONFLICT (owner_id) DO NOTHING
	`, ownerID, now)
	if err != nil {
		return wallet.Wallet{}, mapError(err)
	}
	return l.GetWallet(ctx, ownerID)
}

func (l ledger) GetWallet(ctx context.Context, ownerID string) (wallet.Wallet, error) {
	var w wallet.Wallet
	err := sqlx.GetContext(ctx, l.q, &w, `
		SELECT `+walletColumns+`
		FROM wallets
		WHERE owner_id = $1
	`, ownerID)
	if err != nil {
		return wallet.Wallet{}, mapError(err)
	}
	return w, nil
}

func (l ledger) AdjustBalance(ctx context.Context, ownerID string, delta decimal.Decimal) (wallet.Wallet, error) {
	var w wallet.Wallet
	err := sqlx.GetContext(ctx, l.q, &w, `
		UPDATE wallets
		SET balance = balance + $2, version = version + 1, updated_at = $3
		WHERE owner_id = $1 AND balance + $2 >= 0
		RETURNING `+walletColumns, ownerID, delta, time.Now().UTC())
	if err == nil {
		return w, nil
	}
	err = mapError(err)
	if !errors.Is(err, storage.ErrNotFound) {
		return wallet.Wallet{}, err
	}

	var exists bool
	if err := sqlx.GetContext(ctx, l.q, &exists, `SELECT EXISTS (SELECT 1 FROM wallets WHERE owner_id = $1)`, ownerID); err != nil {
		return wallet.Wallet{}, mapError(err)
	}
	if exists {
		return wallet.Wallet{}, fmt.Errorf("wallet %s: %w", ownerID, storage.ErrInsufficientFunds)
	}
	return wallet.Wallet{}, fmt.Errorf("wallet %s: %w", ownerID, storage.ErrNotFound)
}

func (l ledger) SumBalances(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := sqlx.GetContext(ctx, l.q, &total, `SELECT COALESCE(SUM(balance), 0) FROM wallets`); err != nil {
		return decimal.Zero, mapError(err)
	}
	return total, nil
}

func (l ledger) CreateTransfer(ctx context.Context, tr wallet.Transfer) (wallet.Transfer, error) {
	if tr.ID == "" {
		tr.ID = uuid.NewString()
	}
	tr.CreatedAt = time.Now().UTC()

	_, err := l.q.ExecContext(ctx, `
		INSERT INTO transfers (id, from_owner, to_owner, amount, kind, post_id, idempotency_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, tr.ID, tr.FromOwner, tr.ToOwner, tr.Amount, string(tr.Kind), nullString(tr.PostID), nullString(tr.IdempotencyKey), tr.CreatedAt)
	if err != nil {
		return wallet.Transfer{}, mapError(err)
	}
	return tr, nil
}

func (l ledger) GetTransferByKey(ctx context.Context, fromOwner, key string) (wallet.Transfer, error) {
	var tr wallet.Transfer
	err := sqlx.GetContext(ctx, l.q, &tr, `
		SELECT `+transferColumns+`
		FROM transfers
		WHERE from_owner = $1 AND idempotency_key = $2
	`, fromOwner, key)
	if err != nil {
		return wallet.Transfer{}, mapError(err)
	}
	return tr, nil
}

func (l ledger) ListTransfers(ctx context.Context, ownerID string, limit int) ([]wallet.Transfer, error) {
	var result []wallet.Transfer
	err := sqlx.SelectContext(ctx, l.q, &result, `
		SELECT `+transferColumns+`
		FROM transfers
		WHERE from_owner = $1 OR to_owner = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, ownerID, limitArg(limit))
	if err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

func (l ledger) SumPostTransfers(ctx context.Context, postID string, kind wallet.TransferKind) (decimal.Decimal, int64, error) {
	var row struct {
		Total decimal.Decimal `db:"total"`
		Count int64           `db:"count"`
	}
	err := sqlx.GetContext(ctx, l.q, &row, `
		SELECT COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count
		FROM transfers
		WHERE post_id = $1 AND kind = $2
	`, postID, string(kind))
	if err != nil {
		return decimal.Zero, 0, mapError(err)
	}
	return row.Total, row.Count, nil
}

// Pool-level entry points, guarded by the circuit breaker.

func (s *Store) pool() ledger {
	return ledger{q: s.db}
}

func (s *Store) GetOrCreateWallet(ctx context.Context, ownerID string) (wallet.Wallet, error) {
	return guarded(s, func() (wallet.Wallet, error) { return s.pool().GetOrCreateWallet(ctx, ownerID) })
}

func (s *Store) GetWallet(ctx context.Context, ownerID string) (wallet.Wallet, error) {
	return guarded(s, func() (wallet.Wallet, error) { return s.pool().GetWallet(ctx, ownerID) })
}

func (s *Store) AdjustBalance(ctx context.Context, ownerID string, delta decimal.Decimal) (wallet.Wallet, error) {
	return guarded(s, func() (wallet.Wallet, error) { return s.pool().AdjustBalance(ctx, ownerID, delta) })
}

func (s *Store) SumBalances(ctx context.Context) (decimal.Decimal, error) {
	return guarded(s, func() (decimal.Decimal, error) { return s.pool().SumBalances(ctx) })
}

func (s *Store) CreateTransfer(ctx context.Context, tr wallet.Transfer) (wallet.Transfer, error) {
	return guarded(s, func() (wallet.Transfer, error) { return s.pool().CreateTransfer(ctx, tr) })
}

func (s *Store) GetTransferByKey(ctx context.Context, fromOwner, key string) (wallet.Transfer, error) {
	return guarded(s, func() (wallet.Transfer, error) { return s.pool().GetTransferByKey(ctx, fromOwner, key) })
}

func (s *Store) ListTransfers(ctx context.Context, ownerID string, limit int) ([]wallet.Transfer, error) {
	return guarded(s, func() ([]wallet.Transfer, error) { return s.pool().ListTransfers(ctx, ownerID, limit) })
}

func (s *Store) SumPostTransfers(ctx context.Context, postID string, kind wallet.TransferKind) (decimal.Decimal, int64, error) {
	var count int64
	total, err := guarded(s, func() (decimal.Decimal, error) {
		total, n, err := s.pool().SumPostTransfers(ctx, postID, kind)
		count = n
		return total, err
	})
	return total, count, err
}
