package counters

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/R3E-Network/vybe_engagement/internal/app/cache"
	core "github.com/R3E-Network/vybe_engagement/internal/app/core/service"
	"github.com/R3E-Network/vybe_engagement/internal/app/domain/counter"
	"github.com/R3E-Network/vybe_engagement/internal/app/domain/graph"
	"github.com/R3E-Network/vybe_engagement/internal/app/metrics"
	"github.com/R3E-Network/vybe_engagement/internal/app/storage"
	apperrors "github.com/R3E-Network/vybe_engagement/internal/errors"
	"github.com/R3E-Network/vybe_engagement/pkg/logger"
)

// DefaultTTL bounds how long a cached count may be served.
const DefaultTTL = 5 * time.Minute

// Service derives engagement counts from the edge set and the comment log and
// caches them read-through. The cache never holds the only copy of a count.
type Service struct {
	edges    storage.EdgeStore
	comments storage.CommentStore
	cache    cache.CounterCache
	ttl      time.Duration
	log      *logger.Logger
}

// New constructs a counter aggregator. A nil cache disables caching.
func New(edges storage.EdgeStore, comments storage.CommentStore, c cache.CounterCache, ttl time.Duration, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("counters")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{edges: edges, comments: comments, cache: c, ttl: ttl, log: log}
}

// Descriptor advertises the service.
func (s *Service) Descriptor() core.Descriptor {
	return core.Descriptor{
		Name:         "counters",
		Domain:       "counter",
		Layer:        core.LayerRead,
		Capabilities: []string{"profile-counts", "post-counts", "reconcile"},
	}
}

// Count returns the value for key, from cache when present.
func (s *Service) Count(ctx context.Context, key counter.Key) (int64, error) {
	key.EntityID = strings.TrimSpace(key.EntityID)
	if !key.Kind.Valid() {
		return 0, apperrors.InvalidInput("kind", "unknown counter")
	}
	if key.EntityID == "" {
		return 0, apperrors.InvalidInput("id", "required")
	}

	if s.cache != nil {
		value, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.log.WithError(err).WithField("key", key.String()).Warn("counter cache read failed")
		}
		metrics.RecordCacheLookup(ok && err == nil)
		if ok && err == nil {
			return value, nil
		}
	}

	value, err := s.compute(ctx, key)
	if err != nil {
		return 0, core.TranslateStoreError(fmt.Errorf("count %s: %w", key, err))
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
			s.log.WithError(err).WithField("key", key.String()).Warn("counter cache write failed")
		}
	}
	return value, nil
}

// ProfileCounts returns follower and following counts for actorID.
func (s *Service) ProfileCounts(ctx context.Context, actorID string) (counter.ProfileCounts, error) {
	actorID = strings.TrimSpace(actorID)
	followers, err := s.Count(ctx, counter.Key{Kind: counter.Followers, EntityID: actorID})
	if err != nil {
		return counter.ProfileCounts{}, err
	}
	following, err := s.Count(ctx, counter.Key{Kind: counter.Following, EntityID: actorID})
	if err != nil {
		return counter.ProfileCounts{}, err
	}
	return counter.ProfileCounts{ActorID: actorID, Followers: followers, Following: following}, nil
}

// PostCounts returns like and comment counts for postID.
func (s *Service) PostCounts(ctx context.Context, postID string) (counter.PostCounts, error) {
	postID = strings.TrimSpace(postID)
	likes, err := s.Count(ctx, counter.Key{Kind: counter.Likes, EntityID: postID})
	if err != nil {
		return counter.PostCounts{}, err
	}
	comments, err := s.Count(ctx, counter.Key{Kind: counter.Comments, EntityID: postID})
	if err != nil {
		return counter.PostCounts{}, err
	}
	return counter.PostCounts{PostID: postID, Likes: likes, Comments: comments}, nil
}

// Invalidate drops cached values so the next read recomputes them.
func (s *Service) Invalidate(ctx context.Context, keys ...counter.Key) error {
	if s.cache == nil || len(keys) == 0 {
		return nil
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		return fmt.Errorf("invalidate counters: %w", err)
	}
	return nil
}

// Reconcile recomputes every cached count and overwrites the ones that
// drifted. Index entries whose value has expired are dropped.
func (s *Service) Reconcile(ctx context.Context) (counter.ReconcileReport, error) {
	var report counter.ReconcileReport
	if s.cache == nil {
		return report, nil
	}

	keys, err := s.cache.Keys(ctx)
	if err != nil {
		return report, fmt.Errorf("list cached counters: %w", err)
	}

	perKind := make(map[string]int)
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		cached, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			return report, fmt.Errorf("read cached %s: %w", key, err)
		}
		if !ok {
			if err := s.cache.Delete(ctx, key); err != nil {
				return report, fmt.Errorf("drop expired %s: %w", key, err)
			}
			continue
		}

		actual, err := s.compute(ctx, key)
		if err != nil {
			return report, core.TranslateStoreError(fmt.Errorf("recompute %s: %w", key, err))
		}
		report.Checked++
		if cached == actual {
			continue
		}
		if err := s.cache.Set(ctx, key, actual, s.ttl); err != nil {
			return report, fmt.Errorf("correct %s: %w", key, err)
		}
		report.Corrected++
		report.Drift = append(report.Drift, key)
		perKind[string(key.Kind)]++
		s.log.WithField("key", key.String()).
			WithField("cached", cached).
			WithField("actual", actual).
			Info("counter drift corrected")
	}

	metrics.RecordReconcile(perKind)
	return report, nil
}

func (s *Service) compute(ctx context.Context, key counter.Key) (int64, error) {
	switch key.Kind {
	case counter.Followers:
		return s.edges.CountByObject(ctx, key.EntityID, graph.Follow)
	case counter.Following:
		return s.edges.CountBySubject(ctx, key.EntityID, graph.Follow)
	case counter.Likes:
		return s.edges.CountByObject(ctx, key.EntityID, graph.Like)
	case counter.Comments:
		return s.comments.CountComments(ctx, key.EntityID)
	default:
		return 0, apperrors.InvalidInput("kind", "unknown counter")
	}
}
