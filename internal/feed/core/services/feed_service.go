package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/jupiterclapton/fanline/internal/feed/core/domain"
	"github.com/jupiterclapton/fanline/internal/feed/core/ports"
	"github.com/jupiterclapton/fanline/internal/platform/retry"
)

const (
	DefaultBatchSize = 1000 // Taille des paquets pour Redis
	DefaultPageSize  = 20
	MaxPageSize      = 100
)

type FeedService struct {
	repo      ports.TimelineRepository
	graph     ports.GraphReader
	batchSize int
	threshold int64 // abonnés max avant bascule pull (0 = toujours push)
	retry     retry.Policy
}

type Option func(*FeedService)

func WithBatchSize(n int) Option {
	return func(s *FeedService) { s.batchSize = n }
}

// WithFanoutThreshold active le chemin pull au-delà de n abonnés.
func WithFanoutThreshold(n int64) Option {
	return func(s *FeedService) { s.threshold = n }
}

func WithRetryPolicy(p retry.Policy) Option {
	return func(s *FeedService) { s.retry = p }
}

func NewFeedService(repo ports.TimelineRepository, graph ports.GraphReader, opts ...Option) *FeedService {
	s := &FeedService{
		repo:      repo,
		graph:     graph,
		batchSize: DefaultBatchSize,
		retry:     retry.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Distribute matérialise le post dans la timeline de chaque destinataire.
//
// Le set de destinataires est un SNAPSHOT : les abonnés au moment où le graph
// répond, plus l'auteur. Un unfollow qui croise le fan-out peut recevoir (ou
// pas) ce post-là : fenêtre d'eventual consistency acceptée. Les abonnés
// arrivés après ne sont pas backfillés (fan-out-on-write).
//
// L'opération entière est rejouable : l'écriture est un insert-if-absent par
// (recipient, post), donc un crash-retry ne duplique rien.
func (s *FeedService) Distribute(ctx context.Context, item *domain.FeedItem) error {
	slog.Info("📢 Fan-out starting", "post_id", item.PostID, "author_id", item.AuthorID)

	// Un seul événement logique -> un seul deliveredAt partagé, qui départage
	// les publications simultanées de façon cohérente pour tous les destinataires.
	deliveredAt := time.Now().UTC()

	// Comptage d'abord : pour un compte énorme on ne charge même pas la liste.
	if s.threshold > 0 {
		count, err := retry.Do(ctx, s.retry, func() (int64, error) {
			return s.graph.CountFollowers(ctx, item.AuthorID)
		})
		if err != nil {
			return fmt.Errorf("count followers for %s: %w", item.AuthorID, err)
		}
		if count > s.threshold {
			return s.distributePull(ctx, item, deliveredAt, count)
		}
	}

	followers, err := retry.Do(ctx, s.retry, func() ([]string, error) {
		f, err := s.graph.Followers(ctx, item.AuthorID)
		if err != nil && errors.Is(err, domain.ErrAuthorNotFound) {
			// Précondition violée en amont : on ne retente pas.
			return nil, retry.Permanent(err)
		}
		return f, err
	})
	if err != nil {
		return fmt.Errorf("get followers for %s: %w", item.AuthorID, err)
	}

	// L'auteur voit ses propres posts dans sa timeline.
	recipients := append(followers, item.AuthorID)

	// Écriture par paquets pour ne pas saturer Redis ou la RAM.
	// Chaque paquet part en UN pipeline, jamais en boucle d'inserts unitaires.
	var inserted int64
	for i := 0; i < len(recipients); i += s.batchSize {
		end := i + s.batchSize
		if end > len(recipients) {
			end = len(recipients)
		}
		batch := recipients[i:end]

		n, err := retry.Do(ctx, s.retry, func() (int64, error) {
			return s.repo.AddEntries(ctx, batch, item, deliveredAt)
		})
		if err != nil {
			// Pas de rollback des paquets déjà passés : l'appelant rejoue
			// Distribute en entier, l'idempotence absorbe le rejeu.
			return fmt.Errorf("fan-out bulk write (batch %d): %w", i/s.batchSize, err)
		}
		inserted += n
	}

	if inserted < int64(len(recipients)) {
		// Moins inséré que de destinataires = doublons ignorés.
		// C'est l'idempotence qui travaille (rejeu après crash), pas une erreur.
		slog.Info("Fan-out replayed over existing entries",
			"post_id", item.PostID, "recipients", len(recipients), "inserted", inserted)
	}

	slog.Info("✅ Fan-out complete", "post_id", item.PostID, "recipients", len(recipients), "inserted", inserted)
	return nil
}

// distributePull : chemin des comptes à gros fan-out. On n'écrit PAS dans
// les timelines des abonnés (write storm) ; le post est rangé dans le set
// par-auteur et les lecteurs le récupèrent au moment de la lecture.
func (s *FeedService) distributePull(ctx context.Context, item *domain.FeedItem, deliveredAt time.Time, count int64) error {
	slog.Info("Follower count above threshold, deferring to read-time pull",
		"post_id", item.PostID, "author_id", item.AuthorID, "followers", count, "threshold", s.threshold)

	if err := retry.DoVoid(ctx, s.retry, func() error {
		return s.repo.MarkAuthorHot(ctx, item.AuthorID)
	}); err != nil {
		return fmt.Errorf("mark author hot: %w", err)
	}

	if err := retry.DoVoid(ctx, s.retry, func() error {
		return s.repo.AddAuthorPost(ctx, item, deliveredAt)
	}); err != nil {
		return fmt.Errorf("record hot post: %w", err)
	}

	// L'auteur garde son entrée matérialisée, pull ou pas.
	if _, err := retry.Do(ctx, s.retry, func() (int64, error) {
		return s.repo.AddEntries(ctx, []string{item.AuthorID}, item, deliveredAt)
	}); err != nil {
		return fmt.Errorf("self entry write: %w", err)
	}
	return nil
}

// Timeline lit le feed matérialisé et y fusionne, à la volée, les posts des
// auteurs hot que l'utilisateur suit (la moitié pull de l'hybride).
func (s *FeedService) Timeline(ctx context.Context, req domain.TimelineRequest) ([]*domain.TimelineEntry, string, error) {
	cursor, err := domain.DecodeCursor(req.Cursor)
	if err != nil {
		return nil, "", err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	entries, err := s.repo.Timeline(ctx, req.UserID, limit, cursor)
	if err != nil {
		return nil, "", fmt.Errorf("timeline read: %w", err)
	}

	following, err := s.graph.Following(ctx, req.UserID)
	if err != nil {
		return nil, "", fmt.Errorf("following read: %w", err)
	}

	if len(following) > 0 {
		hot, err := s.repo.FilterHotAuthors(ctx, following)
		if err != nil {
			return nil, "", fmt.Errorf("hot authors read: %w", err)
		}
		for _, authorID := range hot {
			posts, err := s.repo.AuthorPosts(ctx, authorID, limit, cursor)
			if err != nil {
				return nil, "", fmt.Errorf("hot author posts read: %w", err)
			}
			entries = append(entries, posts...)
		}
		entries = mergeEntries(entries, limit)
	}

	nextCursor := ""
	if int64(len(entries)) == limit && len(entries) > 0 {
		last := entries[len(entries)-1]
		nextCursor = domain.Cursor{DeliveredAt: last.DeliveredAt, PostID: last.PostID}.Encode()
	}
	return entries, nextCursor, nil
}

// mergeEntries déduplique par post (l'entrée matérialisée gagne), trie par
// deliveredAt décroissant avec postID décroissant en départage (même ordre
// que le store, sinon le curseur dérape), et coupe à limit.
func mergeEntries(entries []*domain.TimelineEntry, limit int64) []*domain.TimelineEntry {
	seen := make(map[string]bool, len(entries))
	out := make([]*domain.TimelineEntry, 0, len(entries))
	for _, e := range entries {
		if seen[e.PostID] {
			continue
		}
		seen[e.PostID] = true
		out = append(out, e)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].DeliveredAt.Equal(out[j].DeliveredAt) {
			return out[i].DeliveredAt.After(out[j].DeliveredAt)
		}
		return out[i].PostID > out[j].PostID
	})

	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out
}
