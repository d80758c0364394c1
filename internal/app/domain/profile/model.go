package profile

import "time"

// Profile is the local record of an actor created by the auth provider.
type Profile struct {
	ID        string    `json:"id" db:"id"`
	Username  string    `json:"username,omitempty" db:"username"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
