package ports

import (
	"context"

	"github.com/jupiterclapton/fanline/internal/feed/core/domain"
)

// --- DRIVING (Ce que le service expose) ---

type FeedService interface {
	// Distribute est appelé quand un event "post.created" arrive, strictement
	// APRÈS que le post soit durable dans le Post Store. Soit le fan-out
	// complet réussit, soit l'erreur est retentable en bloc : jamais de
	// résultat partiel "tel follower l'a eu, tel autre non".
	Distribute(ctx context.Context, item *domain.FeedItem) error

	// Timeline est appelé par la couche API pour l'affichage.
	// Retourne les entrées triées par deliveredAt décroissant et le curseur
	// de la page suivante (vide en fin de liste).
	Timeline(ctx context.Context, req domain.TimelineRequest) ([]*domain.TimelineEntry, string, error)
}
