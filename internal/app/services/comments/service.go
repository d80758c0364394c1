package comments

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	core "github.com/R3E-Network/vybe_engagement/internal/app/core/service"
	"github.com/R3E-Network/vybe_engagement/internal/app/domain/comment"
	"github.com/R3E-Network/vybe_engagement/internal/app/domain/counter"
	"github.com/R3E-Network/vybe_engagement/internal/app/metrics"
	"github.com/R3E-Network/vybe_engagement/internal/app/storage"
	apperrors "github.com/R3E-Network/vybe_engagement/internal/errors"
	"github.com/R3E-Network/vybe_engagement/pkg/logger"
)

// Invalidator drops cached counters after a comment is appended.
type Invalidator interface {
	Invalidate(ctx context.Context, keys ...counter.Key) error
}

// Service manages the per-post comment log.
type Service struct {
	store    storage.CommentStore
	counters Invalidator
	log      *logger.Logger
}

// New constructs a comment service. counters may be nil.
func New(store storage.CommentStore, counters Invalidator, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("comments")
	}
	return &Service{store: store, counters: counters, log: log}
}

// Descriptor advertises the service.
func (s *Service) Descriptor() core.Descriptor {
	return core.Descriptor{
		Name:         "comments",
		Domain:       "comment",
		Layer:        core.LayerSocial,
		Capabilities: []string{"append", "list", "count"},
	}
}

// Append trims body and stores it as a new comment by authorID on postID.
func (s *Service) Append(ctx context.Context, authorID, postID, body string) (comment.Comment, error) {
	authorID = strings.TrimSpace(authorID)
	postID = strings.TrimSpace(postID)
	if authorID == "" {
		return s.reject("unauthenticated", apperrors.ErrNotAuthenticated)
	}
	if postID == "" {
		return s.reject("invalid", apperrors.InvalidInput("post_id", "required"))
	}

	body = strings.TrimSpace(body)
	if body == "" {
		return s.reject("empty", apperrors.ErrEmptyComment)
	}
	if utf8.RuneCountInString(body) > comment.MaxBodyLength {
		return s.reject("too_long", apperrors.ErrCommentTooLong)
	}

	created, err := s.store.AppendComment(ctx, comment.Comment{PostID: postID, AuthorID: authorID, Body: body})
	if err != nil {
		metrics.RecordComment("error")
		return comment.Comment{}, core.TranslateStoreError(fmt.Errorf("append comment on %s: %w", postID, err))
	}
	metrics.RecordComment("success")

	if s.counters != nil {
		if err := s.counters.Invalidate(ctx, counter.Key{Kind: counter.Comments, EntityID: postID}); err != nil {
			s.log.WithError(err).WithField("post_id", postID).Warn("counter invalidation failed; reconciliation will repair")
		}
	}
	s.log.WithField("comment_id", created.ID).
		WithField("post_id", postID).
		WithField("author_id", authorID).
		Debug("comment appended")
	return created, nil
}

// List returns one page of comments on postID, newest first, starting just
// below the beforeSeq cursor (from the newest when beforeSeq is zero). Every
// comment is reachable by following NextBefore.
func (s *Service) List(ctx context.Context, postID string, beforeSeq int64, limit int) (comment.Page, error) {
	postID = strings.TrimSpace(postID)
	if postID == "" {
		return comment.Page{}, apperrors.InvalidInput("post_id", "required")
	}
	if beforeSeq < 0 {
		return comment.Page{}, apperrors.InvalidInput("before", "must be a non-negative sequence number")
	}
	limit = core.ClampLimit(limit)

	// one extra row tells whether another page exists
	result, err := s.store.ListComments(ctx, postID, beforeSeq, limit+1)
	if err != nil {
		return comment.Page{}, core.TranslateStoreError(fmt.Errorf("list comments on %s: %w", postID, err))
	}
	page := comment.Page{Comments: result}
	if len(result) > limit {
		page.Comments = result[:limit]
		page.NextBefore = page.Comments[limit-1].Seq
	}
	if page.Comments == nil {
		page.Comments = []comment.Comment{}
	}
	return page, nil
}

// Count returns the number of comments on postID.
func (s *Service) Count(ctx context.Context, postID string) (int64, error) {
	postID = strings.TrimSpace(postID)
	if postID == "" {
		return 0, apperrors.InvalidInput("post_id", "required")
	}
	n, err := s.store.CountComments(ctx, postID)
	if err != nil {
		return 0, core.TranslateStoreError(fmt.Errorf("count comments on %s: %w", postID, err))
	}
	return n, nil
}

func (s *Service) reject(result string, err error) (comment.Comment, error) {
	metrics.RecordComment(result)
	return comment.Comment{}, err
}
