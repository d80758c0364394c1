package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/R3E-Network/vybe_engagement/internal/app/storage"
	"github.com/R3E-Network/vybe_engagement/internal/resilience"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db      *sqlx.DB
	breaker *resilience.Breaker
}

var _ storage.LedgerStore = (*Store)(nil)
var _ storage.EdgeStore = (*Store)(nil)
var _ storage.CommentStore = (*Store)(nil)
var _ storage.ProfileStore = (*Store)(nil)

// New creates a Store using the provided database handle. A nil breaker gets
// the default configuration.
func New(db *sqlx.DB, breaker *resilience.Breaker) *Store {
	if breaker == nil {
		breaker = resilience.NewBreaker(resilience.DefaultBreakerConfig())
	}
	return &Store{db: db, breaker: breaker}
}

// Breaker exposes the circuit guarding the database.
func (s *Store) Breaker() *resilience.Breaker {
	return s.breaker
}

// WithinTx runs fn in a single database transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(tx storage.LedgerTx) error) error {
	return s.guard(func() error {
		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return mapError(err)
		}
		if err := fn(ledger{q: tx}); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return mapError(err)
		}
		return nil
	})
}

func (s *Store) guard(fn func() error) error {
	err := s.breaker.Execute(fn, func(err error) bool {
		return errors.Is(err, storage.ErrUnavailable)
	})
	if errors.Is(err, resilience.ErrOpen) {
		return fmt.Errorf("%w: %w", storage.ErrUnavailable, err)
	}
	return err
}

func guarded[T any](s *Store, fn func() (T, error)) (T, error) {
	var out T
	err := s.guard(func() error {
		var err error
		out, err = fn()
		return err
	})
	return out, err
}

// mapError translates driver errors into storage sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %w", storage.ErrNotFound, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == "23505":
			return fmt.Errorf("%w: %s", storage.ErrDuplicateKey, pqErr.Constraint)
		case pqErr.Code == "23514" && pqErr.Constraint == "wallets_balance_check":
			return fmt.Errorf("%w: %w", storage.ErrInsufficientFunds, err)
		case pqErr.Code == "22003":
			return fmt.Errorf("%w: %w", storage.ErrOutOfRange, err)
		case pqErr.Code == "40001", pqErr.Code == "40P01":
			return fmt.Errorf("%w: %w", storage.ErrUnavailable, err)
		}
		switch pqErr.Code.Class() {
		case "08", "53", "57":
			return fmt.Errorf("%w: %w", storage.ErrUnavailable, err)
		}
		return err
	}

	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", storage.ErrUnavailable, err)
	}
	return err
}

// limitArg turns a non-positive limit into NULL, which Postgres reads as
// LIMIT ALL.
func limitArg(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}

// cursorArg turns a non-positive cursor into NULL, meaning "from the newest".
func cursorArg(seq int64) any {
	if seq <= 0 {
		return nil
	}
	return seq
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
