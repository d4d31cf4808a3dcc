package domain

import "time"

type Kind string

const (
	KindFollowed Kind = "followed"
	KindLiked    Kind = "liked"
)

// Notification : une entrée d'inbox. La livraison (push, email) est hors
// périmètre, on ne fait que matérialiser l'inbox.
type Notification struct {
	Kind      Kind      `json:"kind"`
	ActorID   string    `json:"actor_id"`
	ObjectID  string    `json:"object_id,omitempty"` // post concerné, le cas échéant
	CreatedAt time.Time `json:"created_at"`
}
