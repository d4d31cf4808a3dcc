package domain

import (
	"errors"
	"time"
)

var (
	ErrEmptyID    = errors.New("ids cannot be empty")
	ErrSelfFollow = errors.New("cannot follow yourself")
)

// FollowEdge : relation dirigée "FromUser suit ToUser".
// Unicité garantie par le store sur le couple (FromUser, ToUser).
type FollowEdge struct {
	FromUser  string
	ToUser    string
	CreatedAt time.Time
}

type RelationStatus struct {
	IsFollowing  bool // actor -> target
	IsFollowedBy bool // target -> actor
}
