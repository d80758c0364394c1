package counters

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/R3E-Network/vybe_engagement/internal/app/cache"
	"github.com/R3E-Network/vybe_engagement/internal/app/domain/comment"
	"github.com/R3E-Network/vybe_engagement/internal/app/domain/counter"
	"github.com/R3E-Network/vybe_engagement/internal/app/domain/graph"
	"github.com/R3E-Network/vybe_engagement/internal/app/storage/memory"
	apperrors "github.com/R3E-Network/vybe_engagement/internal/errors"
	"github.com/R3E-Network/vybe_engagement/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	for _, e := range []graph.Edge{
		{SubjectID: "a", ObjectID: "star", Relation: graph.Follow},
		{SubjectID: "b", ObjectID: "star", Relation: graph.Follow},
		{SubjectID: "star", ObjectID: "a", Relation: graph.Follow},
		{SubjectID: "a", ObjectID: "post-1", Relation: graph.Like},
	} {
		_, err := store.InsertEdge(ctx, e)
		require.NoError(t, err)
	}
	_, err := store.AppendComment(ctx, comment.Comment{PostID: "post-1", AuthorID: "a", Body: "hi"})
	require.NoError(t, err)
	return store
}

func TestCountsDeriveFromSource(t *testing.T) {
	store := seed(t)
	svc := New(store, store, cache.NewMemory(), time.Minute, logger.Discard())
	ctx := context.Background()

	profile, err := svc.ProfileCounts(ctx, "star")
	require.NoError(t, err)
	assert.Equal(t, counter.ProfileCounts{ActorID: "star", Followers: 2, Following: 1}, profile)

	post, err := svc.PostCounts(ctx, "post-1")
	require.NoError(t, err)
	assert.Equal(t, counter.PostCounts{PostID: "post-1", Likes: 1, Comments: 1}, post)

	post, err = svc.PostCounts(ctx, "unknown")
	require.NoError(t, err)
	assert.Zero(t, post.Likes)
	assert.Zero(t, post.Comments)
}

func TestCountReadsThroughCache(t *testing.T) {
	store := seed(t)
	c := cache.NewMemory()
	svc := New(store, store, c, time.Minute, logger.Discard())
	ctx := context.Background()
	key := counter.Key{Kind: counter.Likes, EntityID: "post-1"}

	n, err := svc.Count(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	cached, ok, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1), cached)

	// a mutation followed by invalidation is visible on the next read
	_, err = store.InsertEdge(ctx, graph.Edge{SubjectID: "b", ObjectID: "post-1", Relation: graph.Like})
	require.NoError(t, err)
	require.NoError(t, svc.Invalidate(ctx, key))

	n, err = svc.Count(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestCountValidation(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil, 0, logger.Discard())

	_, err := svc.Count(context.Background(), counter.Key{Kind: "views", EntityID: "p"})
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.GetServiceError(err).Code)

	_, err = svc.ProfileCounts(context.Background(), " ")
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.GetServiceError(err).Code)
}

type brokenCache struct{ cache.CounterCache }

func (brokenCache) Get(context.Context, counter.Key) (int64, bool, error) {
	return 0, false, errors.New("connection refused")
}

func (brokenCache) Set(context.Context, counter.Key, int64, time.Duration) error {
	return errors.New("connection refused")
}

func TestCacheFailureFallsBackToSource(t *testing.T) {
	store := seed(t)
	svc := New(store, store, brokenCache{cache.NewMemory()}, time.Minute, logger.Discard())

	n, err := svc.Count(context.Background(), counter.Key{Kind: counter.Followers, EntityID: "star"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestReconcileCorrectsDrift(t *testing.T) {
	store := seed(t)
	c := cache.NewMemory()
	svc := New(store, store, c, time.Minute, logger.Discard())
	ctx := context.Background()

	likes := counter.Key{Kind: counter.Likes, EntityID: "post-1"}
	followers := counter.Key{Kind: counter.Followers, EntityID: "star"}
	require.NoError(t, c.Set(ctx, likes, 40, time.Minute))
	require.NoError(t, c.Set(ctx, followers, 2, time.Minute))

	report, err := svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Checked)
	assert.Equal(t, 1, report.Corrected)
	assert.Equal(t, []counter.Key{likes}, report.Drift)

	n, ok, err := c.Get(ctx, likes)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1), n)

	report, err = svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Checked)
	assert.Zero(t, report.Corrected)
}

func TestReconcileDropsExpiredEntries(t *testing.T) {
	store := seed(t)
	c := cache.NewMemory()
	svc := New(store, store, c, time.Minute, logger.Discard())
	ctx := context.Background()

	key := counter.Key{Kind: counter.Comments, EntityID: "post-1"}
	require.NoError(t, c.Set(ctx, key, 9, time.Nanosecond))
	time.Sleep(time.Millisecond)

	report, err := svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Checked)

	keys, err := c.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestReconcilerLifecycle(t *testing.T) {
	store := seed(t)
	svc := New(store, store, cache.NewMemory(), time.Minute, logger.Discard())

	_, err := NewReconciler(svc, "not a schedule", logger.Discard())
	assert.Error(t, err)

	r, err := NewReconciler(svc, "", logger.Discard())
	require.NoError(t, err)
	assert.Equal(t, "counter-reconciler", r.Name())

	ctx := context.Background()
	require.NoError(t, r.Start(ctx))
	require.NoError(t, r.Start(ctx))

	_, err = svc.Count(ctx, counter.Key{Kind: counter.Following, EntityID: "a"})
	require.NoError(t, err)
	report, err := r.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Checked)

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, r.Stop(stopCtx))
	require.NoError(t, r.Stop(stopCtx))
}
