package comments

import (
	"context"
	"fmt"
	"strings"
	"testing"

	core "github.com/R3E-Network/vybe_engagement/internal/app/core/service"
	"github.com/R3E-Network/vybe_engagement/internal/app/domain/counter"
	"github.com/R3E-Network/vybe_engagement/internal/app/domain/profile"
	"github.com/R3E-Network/vybe_engagement/internal/app/storage/memory"
	apperrors "github.com/R3E-Network/vybe_engagement/internal/errors"
	"github.com/R3E-Network/vybe_engagement/pkg/logger"
	"github.com/R3E-Network/vybe_engagement/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendTrimsBody(t *testing.T) {
	inv := &testutil.RecordingInvalidator{}
	svc := New(memory.New(), inv, logger.Discard())

	c, err := svc.Append(context.Background(), "alice", "post-1", "  hello  ")
	require.NoError(t, err)
	assert.Equal(t, "hello", c.Body)
	assert.Equal(t, "alice", c.AuthorID)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, []counter.Key{{Kind: counter.Comments, EntityID: "post-1"}}, inv.Keys())
}

func TestAppendValidation(t *testing.T) {
	svc := New(memory.New(), nil, logger.Discard())

	tests := []struct {
		name   string
		author string
		post   string
		body   string
		want   error
	}{
		{"anonymous", "", "post-1", "hi", apperrors.ErrNotAuthenticated},
		{"empty", "alice", "post-1", "", apperrors.ErrEmptyComment},
		{"whitespace only", "alice", "post-1", " \n\t ", apperrors.ErrEmptyComment},
		{"too long", "alice", "post-1", strings.Repeat("a", 501), apperrors.ErrCommentTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Append(context.Background(), tt.author, tt.post, tt.body)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := svc.Append(context.Background(), "alice", "", "hi")
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.GetServiceError(err).Code)

	n, err := svc.Count(context.Background(), "post-1")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestAppendCountsCharactersNotBytes(t *testing.T) {
	svc := New(memory.New(), nil, logger.Discard())

	body := strings.Repeat("é", 500)
	c, err := svc.Append(context.Background(), "alice", "post-1", body)
	require.NoError(t, err)
	assert.Equal(t, body, c.Body)

	// limit applies after trimming
	_, err = svc.Append(context.Background(), "alice", "post-1", "  "+strings.Repeat("a", 500)+"  ")
	assert.NoError(t, err)
}

func TestListNewestFirst(t *testing.T) {
	svc := New(memory.New(), nil, logger.Discard())
	ctx := context.Background()

	for _, body := range []string{"first", "second", "third"} {
		_, err := svc.Append(ctx, "alice", "post-1", body)
		require.NoError(t, err)
	}
	_, err := svc.Append(ctx, "bob", "post-2", "elsewhere")
	require.NoError(t, err)

	page, err := svc.List(ctx, "post-1", 0, 0)
	require.NoError(t, err)
	require.Len(t, page.Comments, 3)
	assert.Equal(t, "third", page.Comments[0].Body)
	assert.Equal(t, "first", page.Comments[2].Body)
	assert.Zero(t, page.NextBefore)

	again, err := svc.List(ctx, "post-1", 0, 2)
	require.NoError(t, err)
	require.Len(t, again.Comments, 2)
	assert.Equal(t, page.Comments[0].ID, again.Comments[0].ID)
	assert.Equal(t, page.Comments[1].ID, again.Comments[1].ID)
	assert.Equal(t, again.Comments[1].Seq, again.NextBefore)

	rest, err := svc.List(ctx, "post-1", again.NextBefore, 2)
	require.NoError(t, err)
	require.Len(t, rest.Comments, 1)
	assert.Equal(t, "first", rest.Comments[0].Body)
	assert.Zero(t, rest.NextBefore)

	n, err := svc.Count(ctx, "post-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestListPagesReachOldestComment(t *testing.T) {
	svc := New(memory.New(), nil, logger.Discard())
	ctx := context.Background()

	total := core.MaxLimit + 5
	for i := 0; i < total; i++ {
		_, err := svc.Append(ctx, "alice", "post-1", fmt.Sprintf("c%d", i))
		require.NoError(t, err)
	}

	var seen []string
	var cursor int64
	for {
		page, err := svc.List(ctx, "post-1", cursor, core.MaxLimit)
		require.NoError(t, err)
		for _, c := range page.Comments {
			seen = append(seen, c.Body)
		}
		if page.NextBefore == 0 {
			break
		}
		cursor = page.NextBefore
	}
	require.Len(t, seen, total)
	assert.Equal(t, fmt.Sprintf("c%d", total-1), seen[0])
	assert.Equal(t, "c0", seen[total-1])

	_, err := svc.List(ctx, "post-1", -1, 0)
	assert.Equal(t, apperrors.CodeInvalidInput, apperrors.GetServiceError(err).Code)
}

func TestListIncludesAuthorUsername(t *testing.T) {
	store := memory.New()
	svc := New(store, nil, logger.Discard())
	ctx := context.Background()

	_, err := store.UpsertProfile(ctx, profile.Profile{ID: "alice", Username: "alice_w"})
	require.NoError(t, err)
	_, err = svc.Append(ctx, "alice", "post-1", "hello")
	require.NoError(t, err)
	_, err = svc.Append(ctx, "bob", "post-1", "hi")
	require.NoError(t, err)

	page, err := svc.List(ctx, "post-1", 0, 0)
	require.NoError(t, err)
	require.Len(t, page.Comments, 2)
	assert.Equal(t, "", page.Comments[0].AuthorUsername)
	assert.Equal(t, "alice_w", page.Comments[1].AuthorUsername)
}
