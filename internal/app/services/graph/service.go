package graph

import (
	"context"
	"fmt"
	"strings"

	core "github.com/R3E-Network/vybe_engagement/internal/app/core/service"
	"github.com/R3E-Network/vybe_engagement/internal/app/domain/counter"
	domain "github.com/R3E-Network/vybe_engagement/internal/app/domain/graph"
	"github.com/R3E-Network/vybe_engagement/internal/app/metrics"
	"github.com/R3E-Network/vybe_engagement/internal/app/storage"
	apperrors "github.com/R3E-Network/vybe_engagement/internal/errors"
	"github.com/R3E-Network/vybe_engagement/pkg/logger"
)

// MaxBatch bounds the number of objects in one LikeState call.
const MaxBatch = 100

// Invalidator drops cached counters after the edge set changes.
type Invalidator interface {
	Invalidate(ctx context.Context, keys ...counter.Key) error
}

// Service owns follow and like edges. Toggles are set-membership changes, so
// repeating one is a no-op rather than an error.
type Service struct {
	store    storage.EdgeStore
	counters Invalidator
	log      *logger.Logger
}

// New constructs a graph service. counters may be nil.
func New(store storage.EdgeStore, counters Invalidator, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("graph")
	}
	return &Service{store: store, counters: counters, log: log}
}

// Descriptor advertises the service.
func (s *Service) Descriptor() core.Descriptor {
	return core.Descriptor{
		Name:         "graph",
		Domain:       "graph",
		Layer:        core.LayerSocial,
		Capabilities: []string{"follow", "like", "toggle", "counts", "like-state"},
	}
}

// ToggleOn creates the edge if absent. It reports whether the edge set
// changed.
func (s *Service) ToggleOn(ctx context.Context, subjectID, objectID string, rel domain.Relation) (bool, error) {
	subjectID, objectID, err := normalize(subjectID, objectID, rel)
	if err != nil {
		return false, err
	}
	if rel == domain.Follow && subjectID == objectID {
		return false, apperrors.ErrSelfReference
	}

	created, err := s.store.InsertEdge(ctx, domain.Edge{SubjectID: subjectID, ObjectID: objectID, Relation: rel})
	if err != nil {
		return false, core.TranslateStoreError(fmt.Errorf("insert %s edge: %w", rel, err))
	}
	metrics.RecordToggle(string(rel), "on", created)
	if created {
		s.invalidate(ctx, subjectID, objectID, rel)
		s.log.WithField("subject_id", subjectID).
			WithField("object_id", objectID).
			WithField("relation", rel).
			Debug("edge created")
	}
	return created, nil
}

// ToggleOff deletes the edge if present. It reports whether the edge set
// changed.
func (s *Service) ToggleOff(ctx context.Context, subjectID, objectID string, rel domain.Relation) (bool, error) {
	subjectID, objectID, err := normalize(subjectID, objectID, rel)
	if err != nil {
		return false, err
	}

	deleted, err := s.store.DeleteEdge(ctx, subjectID, objectID, rel)
	if err != nil {
		return false, core.TranslateStoreError(fmt.Errorf("delete %s edge: %w", rel, err))
	}
	metrics.RecordToggle(string(rel), "off", deleted)
	if deleted {
		s.invalidate(ctx, subjectID, objectID, rel)
		s.log.WithField("subject_id", subjectID).
			WithField("object_id", objectID).
			WithField("relation", rel).
			Debug("edge deleted")
	}
	return deleted, nil
}

// Exists reports whether the edge is present.
func (s *Service) Exists(ctx context.Context, subjectID, objectID string, rel domain.Relation) (bool, error) {
	subjectID, objectID, err := normalize(subjectID, objectID, rel)
	if err != nil {
		return false, err
	}
	ok, err := s.store.EdgeExists(ctx, subjectID, objectID, rel)
	if err != nil {
		return false, core.TranslateStoreError(fmt.Errorf("check %s edge: %w", rel, err))
	}
	return ok, nil
}

// CountBySubject counts edges leaving subjectID.
func (s *Service) CountBySubject(ctx context.Context, subjectID string, rel domain.Relation) (int64, error) {
	subjectID = strings.TrimSpace(subjectID)
	if err := checkQuery(subjectID, rel); err != nil {
		return 0, err
	}
	n, err := s.store.CountBySubject(ctx, subjectID, rel)
	if err != nil {
		return 0, core.TranslateStoreError(fmt.Errorf("count %s by subject: %w", rel, err))
	}
	return n, nil
}

// CountByObject counts edges arriving at objectID.
func (s *Service) CountByObject(ctx context.Context, objectID string, rel domain.Relation) (int64, error) {
	objectID = strings.TrimSpace(objectID)
	if err := checkQuery(objectID, rel); err != nil {
		return 0, err
	}
	n, err := s.store.CountByObject(ctx, objectID, rel)
	if err != nil {
		return 0, core.TranslateStoreError(fmt.Errorf("count %s by object: %w", rel, err))
	}
	return n, nil
}

func (s *Service) Follow(ctx context.Context, followerID, targetID string) (bool, error) {
	return s.ToggleOn(ctx, followerID, targetID, domain.Follow)
}

func (s *Service) Unfollow(ctx context.Context, followerID, targetID string) (bool, error) {
	return s.ToggleOff(ctx, followerID, targetID, domain.Follow)
}

func (s *Service) IsFollowing(ctx context.Context, followerID, targetID string) (bool, error) {
	return s.Exists(ctx, followerID, targetID, domain.Follow)
}

func (s *Service) Like(ctx context.Context, actorID, postID string) (bool, error) {
	return s.ToggleOn(ctx, actorID, postID, domain.Like)
}

func (s *Service) Unlike(ctx context.Context, actorID, postID string) (bool, error) {
	return s.ToggleOff(ctx, actorID, postID, domain.Like)
}

// FollowCounts counts followers and followees of actorID straight from the
// edge set.
func (s *Service) FollowCounts(ctx context.Context, actorID string) (counter.ProfileCounts, error) {
	followers, err := s.CountByObject(ctx, actorID, domain.Follow)
	if err != nil {
		return counter.ProfileCounts{}, err
	}
	following, err := s.CountBySubject(ctx, actorID, domain.Follow)
	if err != nil {
		return counter.ProfileCounts{}, err
	}
	return counter.ProfileCounts{ActorID: strings.TrimSpace(actorID), Followers: followers, Following: following}, nil
}

// Following lists the actors subjectID follows, most recent first.
func (s *Service) Following(ctx context.Context, subjectID string, limit int) ([]domain.Edge, error) {
	subjectID = strings.TrimSpace(subjectID)
	if err := checkQuery(subjectID, domain.Follow); err != nil {
		return nil, err
	}
	edges, err := s.store.ListObjects(ctx, subjectID, domain.Follow, core.ClampLimit(limit))
	if err != nil {
		return nil, core.TranslateStoreError(fmt.Errorf("list following: %w", err))
	}
	return edges, nil
}

// Followers lists the actors following objectID, most recent first.
func (s *Service) Followers(ctx context.Context, objectID string, limit int) ([]domain.Edge, error) {
	objectID = strings.TrimSpace(objectID)
	if err := checkQuery(objectID, domain.Follow); err != nil {
		return nil, err
	}
	edges, err := s.store.ListSubjects(ctx, objectID, domain.Follow, core.ClampLimit(limit))
	if err != nil {
		return nil, core.TranslateStoreError(fmt.Errorf("list followers: %w", err))
	}
	return edges, nil
}

// LikeState reports, for each post, whether subjectID liked it and how many
// likes it has. Every requested post appears in both maps.
func (s *Service) LikeState(ctx context.Context, subjectID string, postIDs []string) (domain.LikeState, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return domain.LikeState{}, apperrors.ErrNotAuthenticated
	}
	ids := dedupe(postIDs)
	if len(ids) > MaxBatch {
		return domain.LikeState{}, apperrors.InvalidInput("post_ids", fmt.Sprintf("at most %d posts per request", MaxBatch))
	}

	state := domain.LikeState{Liked: make(map[string]bool, len(ids)), Counts: make(map[string]int64, len(ids))}
	if len(ids) == 0 {
		return state, nil
	}

	liked, err := s.store.ExistingObjects(ctx, subjectID, ids, domain.Like)
	if err != nil {
		return domain.LikeState{}, core.TranslateStoreError(fmt.Errorf("load liked posts: %w", err))
	}
	counts, err := s.store.CountByObjects(ctx, ids, domain.Like)
	if err != nil {
		return domain.LikeState{}, core.TranslateStoreError(fmt.Errorf("count likes: %w", err))
	}
	for _, id := range ids {
		state.Liked[id] = liked[id]
		state.Counts[id] = counts[id]
	}
	return state, nil
}

func (s *Service) invalidate(ctx context.Context, subjectID, objectID string, rel domain.Relation) {
	if s.counters == nil {
		return
	}
	var keys []counter.Key
	switch rel {
	case domain.Follow:
		keys = []counter.Key{
			{Kind: counter.Following, EntityID: subjectID},
			{Kind: counter.Followers, EntityID: objectID},
		}
	case domain.Like:
		keys = []counter.Key{{Kind: counter.Likes, EntityID: objectID}}
	}
	if err := s.counters.Invalidate(ctx, keys...); err != nil {
		s.log.WithError(err).WithField("relation", rel).Warn("counter invalidation failed; reconciliation will repair")
	}
}

func normalize(subjectID, objectID string, rel domain.Relation) (string, string, error) {
	if !rel.Valid() {
		return "", "", apperrors.ErrInvalidRelation
	}
	subjectID = strings.TrimSpace(subjectID)
	objectID = strings.TrimSpace(objectID)
	if subjectID == "" {
		return "", "", apperrors.ErrNotAuthenticated
	}
	if objectID == "" {
		return "", "", apperrors.InvalidInput("object_id", "required")
	}
	return subjectID, objectID, nil
}

func checkQuery(id string, rel domain.Relation) error {
	if !rel.Valid() {
		return apperrors.ErrInvalidRelation
	}
	if id == "" {
		return apperrors.InvalidInput("id", "required")
	}
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
