package ports

import (
	"context"

	"github.com/jupiterclapton/fanline/internal/post/core/domain"
)

// --- DRIVING (Ce que le service expose) ---

type PostService interface {
	CreatePost(ctx context.Context, authorID, content string) (*domain.Post, error)
	GetPost(ctx context.Context, postID string) (*domain.Post, error)
	DeletePost(ctx context.Context, postID, authorID string) error

	// GetPosts hydrate le feed : un batch d'IDs, une seule requête SQL.
	GetPosts(ctx context.Context, postIDs []string) ([]*domain.Post, error)

	// ListPostsByAuthor : pagination keyset, token opaque basé sur created_at.
	ListPostsByAuthor(ctx context.Context, authorID string, limit int, pageToken string) ([]*domain.Post, string, error)
}
