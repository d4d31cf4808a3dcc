package ports

import "context"

// --- DRIVING ---

type LikeService interface {
	// Like est idempotent : re-liker un post déjà liké est un no-op silencieux.
	Like(ctx context.Context, userID, postID string) error
	Unlike(ctx context.Context, userID, postID string) error
	Count(ctx context.Context, postID string) (int64, error)
}

// --- DRIVEN ---

type LikeRepository interface {
	// Insert retourne true si le like vient d'être créé (false = doublon ignoré).
	Insert(ctx context.Context, userID, postID string) (bool, error)
	Delete(ctx context.Context, userID, postID string) error
	CountByPost(ctx context.Context, postID string) (int64, error)
}

type LikeEventPublisher interface {
	PublishPostLiked(ctx context.Context, userID, postID string) error
}
