package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/R3E-Network/vybe_engagement/internal/app/domain/comment"
	"github.com/R3E-Network/vybe_engagement/internal/app/domain/graph"
	"github.com/R3E-Network/vybe_engagement/internal/app/domain/profile"
	"github.com/R3E-Network/vybe_engagement/internal/app/domain/wallet"
	"github.com/R3E-Network/vybe_engagement/internal/app/storage"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local development.
type Store struct {
	mu       sync.RWMutex
	ledger   *ledger
	edges    map[edgeKey]graph.Edge
	comments map[string][]comment.Comment
	seq      int64
	profiles map[string]profile.Profile
}

var _ storage.LedgerStore = (*Store)(nil)
var _ storage.EdgeStore = (*Store)(nil)
var _ storage.CommentStore = (*Store)(nil)
var _ storage.ProfileStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		ledger:   newLedger(),
		edges:    make(map[edgeKey]graph.Edge),
		comments: make(map[string][]comment.Comment),
		profiles: make(map[string]profile.Profile),
	}
}

// LedgerStore implementation -------------------------------------------------

func (s *Store) GetOrCreateWallet(ctx context.Context, ownerID string) (wallet.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.GetOrCreateWallet(ctx, ownerID)
}

func (s *Store) GetWallet(ctx context.Context, ownerID string) (wallet.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.GetWallet(ctx, ownerID)
}

func (s *Store) AdjustBalance(ctx context.Context, ownerID string, delta decimal.Decimal) (wallet.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.AdjustBalance(ctx, ownerID, delta)
}

func (s *Store) SumBalances(ctx context.Context) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.SumBalances(ctx)
}

func (s *Store) CreateTransfer(ctx context.Context, tr wallet.Transfer) (wallet.Transfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.CreateTransfer(ctx, tr)
}

func (s *Store) GetTransferByKey(ctx context.Context, fromOwner, key string) (wallet.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.GetTransferByKey(ctx, fromOwner, key)
}

func (s *Store) ListTransfers(ctx context.Context, ownerID string, limit int) ([]wallet.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.ListTransfers(ctx, ownerID, limit)
}

func (s *Store) SumPostTransfers(ctx context.Context, postID string, kind wallet.TransferKind) (decimal.Decimal, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ledger.SumPostTransfers(ctx, postID, kind)
}

// WithinTx runs fn against a private copy of the ledger and publishes the copy
// only when fn succeeds. Writers are serialised for the duration of fn.
func (s *Store) WithinTx(_ context.Context, fn func(tx storage.LedgerTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	draft := s.ledger.clone()
	if err := fn(draft); err != nil {
		return err
	}
	s.ledger = draft
	return nil
}

// EdgeStore implementation ---------------------------------------------------

type edgeKey struct {
	subject  string
	object   string
	relation graph.Relation
}

func (s *Store) InsertEdge(_ context.Context, edge graph.Edge) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := edgeKey{edge.SubjectID, edge.ObjectID, edge.Relation}
	if _, ok := s.edges[key]; ok {
		return false, nil
	}
	if edge.CreatedAt.IsZero() {
		edge.CreatedAt = time.Now().UTC()
	}
	s.edges[key] = edge
	return true, nil
}

func (s *Store) DeleteEdge(_ context.Context, subjectID, objectID string, rel graph.Relation) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := edgeKey{subjectID, objectID, rel}
	if _, ok := s.edges[key]; !ok {
		return false, nil
	}
	delete(s.edges, key)
	return true, nil
}

func (s *Store) EdgeExists(_ context.Context, subjectID, objectID string, rel graph.Relation) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.edges[edgeKey{subjectID, objectID, rel}]
	return ok, nil
}

func (s *Store) CountBySubject(_ context.Context, subjectID string, rel graph.Relation) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for key := range s.edges {
		if key.subject == subjectID && key.relation == rel {
			n++
		}
	}
	return n, nil
}

func (s *Store) CountByObject(_ context.Context, objectID string, rel graph.Relation) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for key := range s.edges {
		if key.object == objectID && key.relation == rel {
			n++
		}
	}
	return n, nil
}

func (s *Store) ListObjects(_ context.Context, subjectID string, rel graph.Relation, limit int) ([]graph.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []graph.Edge
	for key, edge := range s.edges {
		if key.subject == subjectID && key.relation == rel {
			result = append(result, edge)
		}
	}
	sortEdges(result, func(e graph.Edge) string { return e.ObjectID })
	return applyLimit(result, limit), nil
}

func (s *Store) ListSubjects(_ context.Context, objectID string, rel graph.Relation, limit int) ([]graph.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []graph.Edge
	for key, edge := range s.edges {
		if key.object == objectID && key.relation == rel {
			result = append(result, edge)
		}
	}
	sortEdges(result, func(e graph.Edge) string { return e.SubjectID })
	return applyLimit(result, limit), nil
}

func (s *Store) CountByObjects(_ context.Context, objectIDs []string, rel graph.Relation) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int64, len(objectIDs))
	wanted := make(map[string]struct{}, len(objectIDs))
	for _, id := range objectIDs {
		wanted[id] = struct{}{}
	}
	for key := range s.edges {
		if key.relation != rel {
			continue
		}
		if _, ok := wanted[key.object]; ok {
			counts[key.object]++
		}
	}
	return counts, nil
}

func (s *Store) ExistingObjects(_ context.Context, subjectID string, objectIDs []string, rel graph.Relation) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]bool)
	for _, id := range objectIDs {
		if _, ok := s.edges[edgeKey{subjectID, id, rel}]; ok {
			result[id] = true
		}
	}
	return result, nil
}

// CommentStore implementation ------------------------------------------------

func (s *Store) AppendComment(_ context.Context, c comment.Comment) (comment.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	c.ID = uuid.NewString()
	c.Seq = s.seq
	c.CreatedAt = time.Now().UTC()
	s.comments[c.PostID] = append(s.comments[c.PostID], c)
	return c, nil
}

// ListComments walks the post's comments from the tail; they are stored in
// append order, which is ascending Seq.
func (s *Store) ListComments(_ context.Context, postID string, beforeSeq int64, limit int) ([]comment.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.comments[postID]
	var result []comment.Comment
	for i := len(stored) - 1; i >= 0; i-- {
		c := stored[i]
		if beforeSeq > 0 && c.Seq >= beforeSeq {
			continue
		}
		c.AuthorUsername = s.profiles[c.AuthorID].Username
		result = append(result, c)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

func (s *Store) CountComments(_ context.Context, postID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.comments[postID])), nil
}

// ProfileStore implementation ------------------------------------------------

func (s *Store) UpsertProfile(_ context.Context, p profile.Profile) (profile.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.profiles[p.ID]; ok {
		if p.Username != "" {
			existing.Username = p.Username
			s.profiles[p.ID] = existing
		}
		return existing, nil
	}
	p.CreatedAt = time.Now().UTC()
	s.profiles[p.ID] = p
	return p, nil
}

func (s *Store) GetProfile(_ context.Context, id string) (profile.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[id]
	if !ok {
		return profile.Profile{}, fmt.Errorf("profile %s: %w", id, storage.ErrNotFound)
	}
	return p, nil
}

func (s *Store) ProfileExists(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.profiles[id]
	return ok, nil
}

// ledger ---------------------------------------------------------------------

// ledger holds wallets and transfers. It does no locking of its own; Store
// guards it and WithinTx hands a clone to the transaction body.
type ledger struct {
	wallets   map[string]wallet.Wallet
	transfers []wallet.Transfer
	byKey     map[string]int
}

var _ storage.LedgerTx = (*ledger)(nil)

func newLedger() *ledger {
	return &ledger{
		wallets: make(map[string]wallet.Wallet),
		byKey:   make(map[string]int),
	}
}

func (l *ledger) clone() *ledger {
	out := &ledger{
		wallets:   make(map[string]wallet.Wallet, len(l.wallets)),
		transfers: make([]wallet.Transfer, len(l.transfers)),
		byKey:     make(map[string]int, len(l.byKey)),
	}
	for k, v := range l.wallets {
		out.wallets[k] = v
	}
	copy(out.transfers, l.transfers)
	for k, v := range l.byKey {
		out.byKey[k] = v
	}
	return out
}

func transferKey(fromOwner, key string) string {
	return fromOwner + "\x00" + key
}

func (l *ledger) GetOrCreateWallet(_ context.Context, ownerID string) (wallet.Wallet, error) {
	if w, ok := l.wallets[ownerID]; ok {
		return w, nil
	}
	now := time.Now().UTC()
	w := wallet.Wallet{OwnerID: ownerID, Balance: decimal.Zero, CreatedAt: now, UpdatedAt: now}
	l.wallets[ownerID] = w
	return w, nil
}

func (l *ledger) GetWallet(_ context.Context, ownerID string) (wallet.Wallet, error) {
	w, ok := l.wallets[ownerID]
	if !ok {
		return wallet.Wallet{}, fmt.Errorf("wallet %s: %w", ownerID, storage.ErrNotFound)
	}
	return w, nil
}

func (l *ledger) AdjustBalance(_ context.Context, ownerID string, delta decimal.Decimal) (wallet.Wallet, error) {
	w, ok := l.wallets[ownerID]
	if !ok {
		return wallet.Wallet{}, fmt.Errorf("wallet %s: %w", ownerID, storage.ErrNotFound)
	}
	next := w.Balance.Add(delta)
	if next.IsNegative() {
		return wallet.Wallet{}, fmt.Errorf("wallet %s: %w", ownerID, storage.ErrInsufficientFunds)
	}
	if next.GreaterThanOrEqual(wallet.MaxAmount) {
		return wallet.Wallet{}, fmt.Errorf("wallet %s: %w", ownerID, storage.ErrOutOfRange)
	}
	w.Balance = next
	w.Version++
	w.UpdatedAt = time.Now().UTC()
	l.wallets[ownerID] = w
	return w, nil
}

func (l *ledger) SumBalances(_ context.Context) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, w := range l.wallets {
		total = total.Add(w.Balance)
	}
	return total, nil
}

func (l *ledger) CreateTransfer(_ context.Context, tr wallet.Transfer) (wallet.Transfer, error) {
	if tr.IdempotencyKey != "" {
		if _, exists := l.byKey[transferKey(tr.FromOwner, tr.IdempotencyKey)]; exists {
			return wallet.Transfer{}, fmt.Errorf("transfer key %s: %w", tr.IdempotencyKey, storage.ErrDuplicateKey)
		}
	}
	if tr.ID == "" {
		tr.ID = uuid.NewString()
	}
	tr.CreatedAt = time.Now().UTC()
	l.transfers = append(l.transfers, tr)
	if tr.IdempotencyKey != "" {
		l.byKey[transferKey(tr.FromOwner, tr.IdempotencyKey)] = len(l.transfers) - 1
	}
	return tr, nil
}

func (l *ledger) GetTransferByKey(_ context.Context, fromOwner, key string) (wallet.Transfer, error) {
	idx, ok := l.byKey[transferKey(fromOwner, key)]
	if !ok {
		return wallet.Transfer{}, fmt.Errorf("transfer key %s: %w", key, storage.ErrNotFound)
	}
	return l.transfers[idx], nil
}

func (l *ledger) ListTransfers(_ context.Context, ownerID string, limit int) ([]wallet.Transfer, error) {
	var result []wallet.Transfer
	for i := len(l.transfers) - 1; i >= 0; i-- {
		tr := l.transfers[i]
		if tr.FromOwner == ownerID || tr.ToOwner == ownerID {
			result = append(result, tr)
			if limit > 0 && len(result) == limit {
				break
			}
		}
	}
	return result, nil
}

func (l *ledger) SumPostTransfers(_ context.Context, postID string, kind wallet.TransferKind) (decimal.Decimal, int64, error) {
	total := decimal.Zero
	var n int64
	for _, tr := range l.transfers {
		if tr.PostID == postID && tr.Kind == kind {
			total = total.Add(tr.Amount)
			n++
		}
	}
	return total, n, nil
}

// helpers --------------------------------------------------------------------

func sortEdges(edges []graph.Edge, id func(graph.Edge) string) {
	sort.Slice(edges, func(i, j int) bool {
		if !edges[i].CreatedAt.Equal(edges[j].CreatedAt) {
			return edges[i].CreatedAt.After(edges[j].CreatedAt)
		}
		return strings.Compare(id(edges[i]), id(edges[j])) < 0
	})
}

func applyLimit[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
