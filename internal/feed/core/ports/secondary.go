package ports

import (
	"context"
	"time"

	"github.com/jupiterclapton/fanline/internal/feed/core/domain"
)

// --- DRIVEN (Ce dont le service a besoin) ---

type TimelineRepository interface {
	// AddEntries insère l'item dans les timelines de PLUSIEURS destinataires
	// en UN aller-retour (pipeline). Insert-if-absent sur (recipient, post) :
	// rejouer le même batch est inoffensif. Retourne le nombre réellement
	// inséré après dédup, pour l'observabilité.
	AddEntries(ctx context.Context, recipientIDs []string, item *domain.FeedItem, deliveredAt time.Time) (int64, error)

	// Timeline lit les entrées brutes, deliveredAt décroissant, à partir du curseur.
	Timeline(ctx context.Context, userID string, limit int64, cursor domain.Cursor) ([]*domain.TimelineEntry, error)

	// --- Chemin pull (comptes à gros fan-out) ---

	// MarkAuthorHot déclare un auteur au-dessus du seuil de fan-out.
	MarkAuthorHot(ctx context.Context, authorID string) error

	// FilterHotAuthors retourne le sous-ensemble "hot" de candidateIDs, en un aller-retour.
	FilterHotAuthors(ctx context.Context, candidateIDs []string) ([]string, error)

	// AddAuthorPost enregistre le post dans le set par-auteur consommé à la lecture.
	AddAuthorPost(ctx context.Context, item *domain.FeedItem, deliveredAt time.Time) error

	// AuthorPosts lit les posts d'un auteur hot (même tri/curseur que Timeline).
	AuthorPosts(ctx context.Context, authorID string, limit int64, cursor domain.Cursor) ([]*domain.TimelineEntry, error)
}

type GraphReader interface {
	// Followers récupère les IDs des abonnés : un seul round-trip côté store,
	// slice vide (pas d'erreur) pour un utilisateur sans abonné.
	Followers(ctx context.Context, userID string) ([]string, error)

	// Following sert au chemin pull (quels auteurs hot est-ce que je suis ?)
	Following(ctx context.Context, userID string) ([]string, error)

	// CountFollowers décide du chemin push vs pull sans charger la liste.
	CountFollowers(ctx context.Context, userID string) (int64, error)
}
