package services

import (
	"context"
	"log/slog"

	"github.com/jupiterclapton/fanline/internal/interaction/core/ports"
)

type likeService struct {
	repo      ports.LikeRepository
	publisher ports.LikeEventPublisher // optionnel (nil = pas d'events)
}

func NewLikeService(repo ports.LikeRepository, publisher ports.LikeEventPublisher) ports.LikeService {
	return &likeService{repo: repo, publisher: publisher}
}

func (s *likeService) Like(ctx context.Context, userID, postID string) error {
	created, err := s.repo.Insert(ctx, userID, postID)
	if err != nil {
		return err
	}

	// On ne notifie qu'à la PREMIÈRE insertion : un rejeu ou un double-clic
	// ne doit pas spammer l'inbox de l'auteur.
	if created && s.publisher != nil {
		if err := s.publisher.PublishPostLiked(ctx, userID, postID); err != nil {
			slog.Warn("Failed to publish post.liked", "post_id", postID, "error", err)
		}
	}
	return nil
}

func (s *likeService) Unlike(ctx context.Context, userID, postID string) error {
	return s.repo.Delete(ctx, userID, postID)
}

func (s *likeService) Count(ctx context.Context, postID string) (int64, error) {
	return s.repo.CountByPost(ctx, postID)
}
