package postgres

import (
	"context"
	"time"

	"github.com/R3E-Network/vybe_engagement/internal/app/domain/graph"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// --- EdgeStore ---------------------------------------------------------------

func (s *Store) InsertEdge(ctx context.Context, edge graph.Edge) (bool, error) {
	if edge.CreatedAt.IsZero() {
		edge.CreatedAt = time.Now().UTC()
	}
	return guarded(s, func() (bool, error) {
		result, err := s.db.ExecContext(ctx, `
			INSERT INTO edges (subject_id, object_id, relation, created_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (subject_id, object_id, relation) DO NOTHING
		`, edge.SubjectID, edge.ObjectID, string(edge.Relation), edge.CreatedAt)
		if err != nil {
			return false, mapError(err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return false, mapError(err)
		}
		return rows == 1, nil
	})
}

func (s *Store) DeleteEdge(ctx context.Context, subjectID, objectID string, rel graph.Relation) (bool, error) {
	return guarded(s, func() (bool, error) {
		result, err := s.db.ExecContext(ctx, `
			DELETE FROM edges
			WHERE subject_id = $1 AND object_id = $2 AND relation = $3
		`, subjectID, objectID, string(rel))
		if err != nil {
			return false, mapError(err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return false, mapError(err)
		}
		return rows == 1, nil
	})
}

func (s *Store) EdgeExists(ctx context.Context, subjectID, objectID string, rel graph.Relation) (bool, error) {
	return guarded(s, func() (bool, error) {
		var exists bool
		err := sqlx.GetContext(ctx, s.db, &exists, `
			SELECT EXISTS (
				SELECT 1 FROM edges
				WHERE subject_id = $1 AND object_id = $2 AND relation = $3
			)
		`, subjectID, objectID, string(rel))
		return exists, mapError(err)
	})
}

func (s *Store) CountBySubject(ctx context.Context, subjectID string, rel graph.Relation) (int64, error) {
	return guarded(s, func() (int64, error) {
		var n int64
		err := sqlx.GetContext(ctx, s.db, &n, `
			SELECT COUNT(*) FROM edges WHERE subject_id = $1 AND relation = $2
		`, subjectID, string(rel))
		return n, mapError(err)
	})
}

func (s *Store) CountByObject(ctx context.Context, objectID string, rel graph.Relation) (int64, error) {
	return guarded(s, func() (int64, error) {
		var n int64
		err := sqlx.GetContext(ctx, s.db, &n, `
			SELECT COUNT(*) FROM edges WHERE object_id = $1 AND relation = $2
		`, objectID, string(rel))
		return n, mapError(err)
	})
}

func (s *Store) ListObjects(ctx context.Context, subjectID string, rel graph.Relation, limit int) ([]graph.Edge, error) {
	return guarded(s, func() ([]graph.Edge, error) {
		var result []graph.Edge
		err := sqlx.SelectContext(ctx, s.db, &result, `
			SELECT subject_id, object_id, relation, created_at
			FROM edges
			WHERE subject_id = $1 AND relation = $2
			ORDER BY created_at DESC, object_id
			LIMIT $3
		`, subjectID, string(rel), limitArg(limit))
		if err != nil {
			return nil, mapError(err)
		}
		return result, nil
	})
}

func (s *Store) ListSubjects(ctx context.Context, objectID string, rel graph.Relation, limit int) ([]graph.Edge, error) {
	return guarded(s, func() ([]graph.Edge, error) {
		var result []graph.Edge
		err := sqlx.SelectContext(ctx, s.db, &result, `
			SELECT subject_id, object_id, relation, created_at
			FROM edges
			WHERE object_id = $1 AND relation = $2
			ORDER BY created_at DESC, subject_id
			LIMIT $3
		`, objectID, string(rel), limitArg(limit))
		if err != nil {
			return nil, mapError(err)
		}
		return result, nil
	})
}

func (s *Store) CountByObjects(ctx context.Context, objectIDs []string, rel graph.Relation) (map[string]int64, error) {
	counts := make(map[string]int64, len(objectIDs))
	if len(objectIDs) == 0 {
		return counts, nil
	}
	return guarded(s, func() (map[string]int64, error) {
		rows, err := s.db.QueryxContext(ctx, `
			SELECT object_id, COUNT(*)
			FROM edges
			WHERE relation = $1 AND object_id = ANY($2)
			GROUP BY object_id
		`, string(rel), pq.Array(objectIDs))
		if err != nil {
			return nil, mapError(err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				id string
				n  int64
			)
			if err := rows.Scan(&id, &n); err != nil {
				return nil, mapError(err)
			}
			counts[id] = n
		}
		return counts, mapError(rows.Err())
	})
}

func (s *Store) ExistingObjects(ctx context.Context, subjectID string, objectIDs []string, rel graph.Relation) (map[string]bool, error) {
	result := make(map[string]bool)
	if len(objectIDs) == 0 {
		return result, nil
	}
	return guarded(s, func() (map[string]bool, error) {
		var ids []string
		err := sqlx.SelectContext(ctx, s.db, &ids, `
			SELECT object_id
			FROM edges
			WHERE subject_id = $1 AND relation = $2 AND object_id = ANY($3)
		`, subjectID, string(rel), pq.Array(objectIDs))
		if err != nil {
			return nil, mapError(err)
		}
		for _, id := range ids {
			result[id] = true
		}
		return result, nil
	})
}
