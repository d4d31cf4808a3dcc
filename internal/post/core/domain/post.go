package domain

import (
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("post not found")
	ErrNotAuthor    = errors.New("only the author can do that")
	ErrInvalidToken = errors.New("invalid page token")
)

type Post struct {
	ID        string
	AuthorID  string
	Content   string
	CreatedAt time.Time
}
