package graph

import "time"

// Relation names the kind of directed edge between a subject and an object.
type Relation string

const (
	// Follow edges point from an actor to the actor being followed.
	Follow Relation = "follow"
	// Like edges point from an actor to a post.
	Like Relation = "like"
)

// Valid reports whether r is a known relation.
func (r Relation) Valid() bool {
	return r == Follow || r == Like
}

// Edge records that Subject holds Relation towards Object. At most one edge
// exists per (Subject, Object, Relation).
type Edge struct {
	SubjectID string    `json:"subject_id" db:"subject_id"`
	ObjectID  string    `json:"object_id" db:"object_id"`
	Relation  Relation  `json:"relation" db:"relation"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// LikeState is the per-post view a feed needs: whether the viewer liked each
// post and how many likes each post has.
type LikeState struct {
	Liked  map[string]bool  `json:"liked"`
	Counts map[string]int64 `json:"counts"`
}
