package ports

import (
	"context"

	"github.com/jupiterclapton/fanline/internal/graph/core/domain"
)

// --- DRIVING (Ce que le service expose) ---

type GraphService interface {
	FollowUser(ctx context.Context, actorID, targetID string) error
	UnfollowUser(ctx context.Context, actorID, targetID string) error
	CheckRelation(ctx context.Context, actorID, targetID string) (*domain.RelationStatus, error)

	// Followers retourne l'ensemble des abonnés en UNE requête côté store.
	// L'ordre n'est pas garanti : c'est un set, pas un classement.
	// Un utilisateur inconnu ou sans abonné donne une slice vide, jamais d'erreur.
	Followers(ctx context.Context, userID string) ([]string, error)

	// Following : les comptes suivis par userID. L'ordre chronologique
	// (date de follow) doit être demandé explicitement.
	Following(ctx context.Context, userID string, orderedByFollowTime bool) ([]string, error)

	// CountFollowers sert au Fan-out pour décider push vs pull.
	CountFollowers(ctx context.Context, userID string) (int64, error)
}
