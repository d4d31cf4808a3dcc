package domain

import "time"

// Like : unique par (UserID, PostID), insert-if-absent côté store.
// Liker deux fois ne compte qu'une fois et ne notifie qu'une fois.
type Like struct {
	UserID    string
	PostID    string
	CreatedAt time.Time
}
