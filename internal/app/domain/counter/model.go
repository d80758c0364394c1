package counter

import (
	"fmt"
	"strings"
)

// Kind identifies which derived count a Key refers to.
type Kind string

const (
	Followers Kind = "followers"
	Following Kind = "following"
	Likes     Kind = "likes"
	Comments  Kind = "comments"
)

// Key addresses one cached count.
type Key struct {
	Kind     Kind
	EntityID string
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s", k.Kind, k.EntityID)
}

// ProfileCounts are the follow counts shown on a profile.
type ProfileCounts struct {
	ActorID   string `json:"actor_id"`
	Followers int64  `json:"followers"`
	Following int64  `json:"following"`
}

// PostCounts are the engagement counts shown on a post.
type PostCounts struct {
	PostID   string `json:"post_id"`
	Likes    int64  `json:"likes"`
	Comments int64  `json:"comments"`
}

// ReconcileReport summarises one reconciliation pass.
type ReconcileReport struct {
	Checked   int   `json:"checked"`
	Corrected int   `json:"corrected"`
	Drift     []Key `json:"-"`
}

// ParseKey is the inverse of Key.String.
func ParseKey(s string) (Key, bool) {
	kind, id, ok := strings.Cut(s, ":")
	if !ok || id == "" {
		return Key{}, false
	}
	k := Key{Kind: Kind(kind), EntityID: id}
	return k, k.Kind.Valid()
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	switch k {
	case Followers, Following, Likes, Comments:
		return true
	}
	return false
}
