package ports

import (
	"context"

	"github.com/jupiterclapton/fanline/internal/graph/core/domain"
)

// --- DRIVEN (Ce dont le service a besoin) ---

// GraphRepository est le port Driven (Database Neo4j)
type GraphRepository interface {
	// EnsureSchema crée les contraintes et index (Idempotent)
	EnsureSchema(ctx context.Context) error

	CreateRelation(ctx context.Context, actorID, targetID string) error
	DeleteRelation(ctx context.Context, actorID, targetID string) error
	GetRelationStatus(ctx context.Context, actorID, targetID string) (*domain.RelationStatus, error)

	// StreamFollowerIDs utilise le curseur natif du store : une seule requête,
	// résultats livrés par paquets de batchSize via yield.
	StreamFollowerIDs(ctx context.Context, userID string, batchSize int, yield func([]string) error) error

	// ListFollowingIDs : une seule requête, tri par date de follow optionnel.
	ListFollowingIDs(ctx context.Context, userID string, orderedByFollowTime bool) ([]string, error)

	CountFollowers(ctx context.Context, userID string) (int64, error)
}

// FollowEventPublisher notifie le reste du système (best effort).
type FollowEventPublisher interface {
	PublishUserFollowed(ctx context.Context, actorID, targetID string) error
}
