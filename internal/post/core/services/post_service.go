package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jupiterclapton/fanline/internal/post/core/domain"
	"github.com/jupiterclapton/fanline/internal/post/core/ports"
)

type service struct {
	repo      ports.PostRepository
	publisher ports.EventPublisher
}

func NewPostService(repo ports.PostRepository, pub ports.EventPublisher) ports.PostService {
	return &service{repo: repo, publisher: pub}
}

func (s *service) CreatePost(ctx context.Context, authorID, content string) (*domain.Post, error) {
	post := &domain.Post{
		ID:        uuid.New().String(),
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}

	// 1. Sauvegarde DB (Source of Truth). Le fan-out ne part JAMAIS avant
	// que le post soit durable : pas de référence orpheline possible.
	if err := s.repo.Save(ctx, post); err != nil {
		return nil, err
	}

	// 2. Publication de l'event (déclencheur du fan-out).
	// La donnée est sauvée : on ne fait pas échouer la requête utilisateur
	// si la publication rate, on logge et l'event pourra être rejoué.
	if err := s.publisher.PublishPostCreated(ctx, post); err != nil {
		slog.Error("Failed to publish post.created", "post_id", post.ID, "error", err)
	}

	return post, nil
}

func (s *service) GetPost(ctx context.Context, postID string) (*domain.Post, error) {
	return s.repo.FindByID(ctx, postID)
}

func (s *service) DeletePost(ctx context.Context, postID, authorID string) error {
	post, err := s.repo.FindByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.AuthorID != authorID {
		return domain.ErrNotAuthor
	}

	if err := s.repo.Delete(ctx, postID); err != nil {
		return err
	}

	// Nettoyage des timelines : best effort, les entrées expirent de toute façon.
	_ = s.publisher.PublishPostDeleted(ctx, postID)
	return nil
}

func (s *service) GetPosts(ctx context.Context, postIDs []string) ([]*domain.Post, error) {
	if len(postIDs) == 0 {
		return []*domain.Post{}, nil
	}
	return s.repo.GetPosts(ctx, postIDs)
}

func (s *service) ListPostsByAuthor(ctx context.Context, authorID string, limit int, pageToken string) ([]*domain.Post, string, error) {
	var cursorTime time.Time
	var err error

	// Le token est la date du dernier post vu, en RFC3339Nano.
	if pageToken != "" {
		cursorTime, err = time.Parse(time.RFC3339Nano, pageToken)
		if err != nil {
			return nil, "", domain.ErrInvalidToken
		}
	}

	posts, err := s.repo.ListByAuthor(ctx, authorID, limit, cursorTime)
	if err != nil {
		return nil, "", err
	}

	nextToken := ""
	if len(posts) == limit {
		// La prochaine requête fera "WHERE created_at < dernier post vu".
		nextToken = posts[len(posts)-1].CreatedAt.Format(time.RFC3339Nano)
	}

	return posts, nextToken, nil
}
