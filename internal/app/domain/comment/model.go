package comment

import "time"

// MaxBodyLength is the maximum comment length in characters after trimming.
const MaxBodyLength = 500

// Comment is an append-only entry in a post's comment stream. Seq is assigned
// by the store and strictly increases with every append, so it alone defines
// the stream order.
type Comment struct {
	ID             string    `json:"id" db:"id"`
	Seq            int64     `json:"seq" db:"seq"`
	PostID         string    `json:"post_id" db:"post_id"`
	AuthorID       string    `json:"author_id" db:"author_id"`
	AuthorUsername string    `json:"author_username,omitempty" db:"author_username"`
	Body           string    `json:"body" db:"body"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// Page is one newest-first slice of a post's comments. NextBefore is the
// cursor for the following page; zero means the stream is exhausted.
type Page struct {
	Comments   []Comment `json:"comments"`
	NextBefore int64     `json:"next_before,omitempty"`
}
