package storage

import (
	"context"
	"errors"

	"github.com/R3E-Network/vybe_engagement/internal/app/domain/comment"
	"github.com/R3E-Network/vybe_engagement/internal/app/domain/graph"
	"github.com/R3E-Network/vybe_engagement/internal/app/domain/profile"
	"github.com/R3E-Network/vybe_engagement/internal/app/domain/wallet"
	"github.com/shopspring/decimal"
)

// Store-level failures. Implementations return (or wrap) these so services
// can translate them without knowing the backend.
var (
	ErrNotFound          = errors.New("storage: not found")
	ErrDuplicateKey      = errors.New("storage: duplicate key")
	ErrInsufficientFunds = errors.New("storage: insufficient funds")
	ErrUnavailable       = errors.New("storage: unavailable")
	ErrOutOfRange        = errors.New("storage: value out of range")
)

// WalletStore persists wallet balances. AdjustBalance must apply the delta
// atomically, refuse any result below zero with ErrInsufficientFunds and any
// result at or above wallet.MaxAmount with ErrOutOfRange.
type WalletStore interface {
	GetOrCreateWallet(ctx context.Context, ownerID string) (wallet.Wallet, error)
	GetWallet(ctx context.Context, ownerID string) (wallet.Wallet, error)
	AdjustBalance(ctx context.Context, ownerID string, delta decimal.Decimal) (wallet.Wallet, error)
	SumBalances(ctx context.Context) (decimal.Decimal, error)
}

// TransferStore persists immutable transfer records.
type TransferStore interface {
	// CreateTransfer returns ErrDuplicateKey when (FromOwner, IdempotencyKey)
	// already exists.
	CreateTransfer(ctx context.Context, tr wallet.Transfer) (wallet.Transfer, error)
	GetTransferByKey(ctx context.Context, fromOwner, key string) (wallet.Transfer, error)
	// ListTransfers returns transfers sent or received by ownerID, newest first.
	ListTransfers(ctx context.Context, ownerID string, limit int) ([]wallet.Transfer, error)
	SumPostTransfers(ctx context.Context, postID string, kind wallet.TransferKind) (decimal.Decimal, int64, error)
}

// LedgerTx is the view of wallets and transfers available inside a
// transaction.
type LedgerTx interface {
	WalletStore
	TransferStore
}

// LedgerStore runs fn inside a single transaction. Every write made through
// the LedgerTx is committed when fn returns nil and discarded otherwise.
type LedgerStore interface {
	LedgerTx
	WithinTx(ctx context.Context, fn func(tx LedgerTx) error) error
}

// EdgeStore persists follow and like edges. Insert and delete report whether
// the edge set changed so callers never infer state from a second read.
type EdgeStore interface {
	InsertEdge(ctx context.Context, edge graph.Edge) (bool, error)
	DeleteEdge(ctx context.Context, subjectID, objectID string, rel graph.Relation) (bool, error)
	EdgeExists(ctx context.Context, subjectID, objectID string, rel graph.Relation) (bool, error)
	CountBySubject(ctx context.Context, subjectID string, rel graph.Relation) (int64, error)
	CountByObject(ctx context.Context, objectID string, rel graph.Relation) (int64, error)
	ListObjects(ctx context.Context, subjectID string, rel graph.Relation, limit int) ([]graph.Edge, error)
	ListSubjects(ctx context.Context, objectID string, rel graph.Relation, limit int) ([]graph.Edge, error)
	CountByObjects(ctx context.Context, objectIDs []string, rel graph.Relation) (map[string]int64, error)
	ExistingObjects(ctx context.Context, subjectID string, objectIDs []string, rel graph.Relation) (map[string]bool, error)
}

// CommentStore persists the append-only comment log.
type CommentStore interface {
	// AppendComment assigns ID, Seq and CreatedAt.
	AppendComment(ctx context.Context, c comment.Comment) (comment.Comment, error)
	// ListComments returns comments with Seq below beforeSeq (all of them
	// when beforeSeq <= 0), Seq descending, each carrying its author's
	// username when one is known. A non-positive limit means no limit.
	ListComments(ctx context.Context, postID string, beforeSeq int64, limit int) ([]comment.Comment, error)
	CountComments(ctx context.Context, postID string) (int64, error)
}

// ProfileStore persists the local mirror of known actors.
type ProfileStore interface {
	UpsertProfile(ctx context.Context, p profile.Profile) (profile.Profile, error)
	GetProfile(ctx context.Context, id string) (profile.Profile, error)
	ProfileExists(ctx context.Context, id string) (bool, error)
}
