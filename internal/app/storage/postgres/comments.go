package postgres

import (
	"context"
	"time"

	"github.com/R3E-Network/vybe_engagement/internal/app/domain/comment"
	"github.com/R3E-Network/vybe_engagement/internal/app/domain/profile"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// --- CommentStore ------------------------------------------------------------

// AppendComment lets the database stamp seq and created_at.
func (s *Store) AppendComment(ctx context.Context, c comment.Comment) (comment.Comment, error) {
	c.ID = uuid.NewString()

	return guarded(s, func() (comment.Comment, error) {
		err := s.db.QueryRowxContext(ctx, `
			INSERT INTO comments (id, post_id, author_id, body)
			VALUES ($1, $2, $3, $4)
			RETURNING seq, created_at
		`, c.ID, c.PostID, c.AuthorID, c.Body).Scan(&c.Seq, &c.CreatedAt)
		if err != nil {
			return comment.Comment{}, mapError(err)
		}
		return c, nil
	})
}

func (s *Store) ListComments(ctx context.Context, postID string, beforeSeq int64, limit int) ([]comment.Comment, error) {
	return guarded(s, func() ([]comment.Comment, error) {
		var result []comment.Comment
		err := sqlx.SelectContext(ctx, s.db, &result, `
			SELECT c.id, c.seq, c.post_id, c.author_id, c.body, c.created_at,
			       COALESCE(p.username, '') AS author_username
			FROM comments c
			LEFT JOIN profiles p ON p.id = c.author_id
			WHERE c.post_id = $1
			  AND ($2::BIGINT IS NULL OR c.seq < $2)
			ORDER BY c.seq DESC
			LIMIT $3
		`, postID, cursorArg(beforeSeq), limitArg(limit))
		if err != nil {
			return nil, mapError(err)
		}
		return result, nil
	})
}

func (s *Store) CountComments(ctx context.Context, postID string) (int64, error) {
	return guarded(s, func() (int64, error) {
		var n int64
		err := sqlx.GetContext(ctx, s.db, &n, `SELECT COUNT(*) FROM comments WHERE post_id = $1`, postID)
		return n, mapError(err)
	})
}

// --- ProfileStore ------------------------------------------------------------

func (s *Store) UpsertProfile(ctx context.Context, p profile.Profile) (profile.Profile, error) {
	return guarded(s, func() (profile.Profile, error) {
		var out profile.Profile
		err := sqlx.GetContext(ctx, s.db, &out, `
			INSERT INTO profiles (id, username, created_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE
			SET username = COALESCE(EXCLUDED.username, profiles.username)
			RETURNING id, COALESCE(username, '') AS username, created_at
		`, p.ID, nullString(p.Username), time.Now().UTC())
		if err != nil {
			return profile.Profile{}, mapError(err)
		}
		return out, nil
	})
}

func (s *Store) GetProfile(ctx context.Context, id string) (profile.Profile, error) {
	return guarded(s, func() (profile.Profile, error) {
		var p profile.Profile
		err := sqlx.GetContext(ctx, s.db, &p, `
			SELECT id, COALESCE(username, '') AS username, created_at
			FROM profiles
			WHERE id = $1
		`, id)
		if err != nil {
			return profile.Profile{}, mapError(err)
		}
		return p, nil
	})
}

func (s *Store) ProfileExists(ctx context.Context, id string) (bool, error) {
	return guarded(s, func() (bool, error) {
		var exists bool
		err := sqlx.GetContext(ctx, s.db, &exists, `SELECT EXISTS (SELECT 1 FROM profiles WHERE id = $1)`, id)
		return exists, mapError(err)
	})
}
