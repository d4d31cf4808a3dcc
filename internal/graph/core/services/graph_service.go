package services

import (
	"context"
	"log/slog"

	"github.com/jupiterclapton/fanline/internal/graph/core/domain"
	"github.com/jupiterclapton/fanline/internal/graph/core/ports"
)

// StreamBatchSize : taille des paquets remontés par le store
const StreamBatchSize = 1000

type graphService struct {
	repo      ports.GraphRepository
	publisher ports.FollowEventPublisher // optionnel (nil = pas d'events)
}

func NewGraphService(repo ports.GraphRepository, publisher ports.FollowEventPublisher) ports.GraphService {
	return &graphService{repo: repo, publisher: publisher}
}

func (s *graphService) FollowUser(ctx context.Context, actorID, targetID string) error {
	if actorID == "" || targetID == "" {
		return domain.ErrEmptyID
	}
	if actorID == targetID {
		return domain.ErrSelfFollow
	}
	if err := s.repo.CreateRelation(ctx, actorID, targetID); err != nil {
		return err
	}

	// Best effort : la relation est créée, l'event ne doit pas faire échouer le follow.
	if s.publisher != nil {
		if err := s.publisher.PublishUserFollowed(ctx, actorID, targetID); err != nil {
			slog.Warn("Failed to publish user.followed", "actor_id", actorID, "error", err)
		}
	}
	return nil
}

func (s *graphService) UnfollowUser(ctx context.Context, actorID, targetID string) error {
	if actorID == "" || targetID == "" {
		return domain.ErrEmptyID
	}
	// Suppression idempotente : zéro edge supprimé n'est pas une erreur.
	return s.repo.DeleteRelation(ctx, actorID, targetID)
}

func (s *graphService) CheckRelation(ctx context.Context, actorID, targetID string) (*domain.RelationStatus, error) {
	return s.repo.GetRelationStatus(ctx, actorID, targetID)
}

// Followers collecte le stream du store en une seule requête round-trip.
// Surtout pas de lookup secondaire par follower (piège du N+1).
func (s *graphService) Followers(ctx context.Context, userID string) ([]string, error) {
	followers := make([]string, 0)
	err := s.repo.StreamFollowerIDs(ctx, userID, StreamBatchSize, func(batch []string) error {
		followers = append(followers, batch...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return followers, nil
}

func (s *graphService) Following(ctx context.Context, userID string, orderedByFollowTime bool) ([]string, error) {
	ids, err := s.repo.ListFollowingIDs(ctx, userID, orderedByFollowTime)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

func (s *graphService) CountFollowers(ctx context.Context, userID string) (int64, error) {
	return s.repo.CountFollowers(ctx, userID)
}
