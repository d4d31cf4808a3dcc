package ports

import (
	"context"
	"time"

	"github.com/jupiterclapton/fanline/internal/post/core/domain"
)

// --- DRIVEN (Ce dont le service a besoin) ---

type PostRepository interface {
	Save(ctx context.Context, post *domain.Post) error
	FindByID(ctx context.Context, postID string) (*domain.Post, error)
	Delete(ctx context.Context, postID string) error

	// Utilisé pour l'hydratation du Feed (Batch)
	GetPosts(ctx context.Context, postIDs []string) ([]*domain.Post, error)

	// Pagination keyset : le repo parle "Date", pas "Token string"
	ListByAuthor(ctx context.Context, authorID string, limit int, cursorTime time.Time) ([]*domain.Post, error)
}

type EventPublisher interface {
	PublishPostCreated(ctx context.Context, post *domain.Post) error
	PublishPostDeleted(ctx context.Context, postID string) error
}
