package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jupiterclapton/fanline/internal/feed/core/domain"
	"github.com/redis/go-redis/v9"
)

const (
	hotAuthorsKey = "feed:hot_authors"

	// Marge de lecture pour absorber les égalités de score au passage du
	// curseur (plusieurs posts livrés au même microseconde).
	tieScan = 64
)

type RedisFeedRepo struct {
	client *redis.Client
	ttl    time.Duration // Ex: 30 jours (on ne garde pas l'infini en RAM)
}

func NewRedisFeedRepo(client *redis.Client) *RedisFeedRepo {
	return &RedisFeedRepo{
		client: client,
		ttl:    24 * 30 * time.Hour,
	}
}

func timelineKey(userID string) string { return fmt.Sprintf("feed:timeline:%s", userID) }
func authorKey(authorID string) string { return fmt.Sprintf("feed:hot_posts:%s", authorID) }
func member(item *domain.FeedItem) string {
	// postID en tête : l'ordre inverse-lexicographique des membres à score
	// égal colle alors au départage par postID décroissant du curseur.
	return fmt.Sprintf("%s:%s", item.PostID, item.AuthorID)
}

// AddEntries implémente le Fan-out massif : un pipeline, un ZADD NX par
// destinataire. NX = insert-if-absent sur (recipient, post) : rejouer le
// même batch ne crée rien et le compteur retourné le montre.
func (r *RedisFeedRepo) AddEntries(ctx context.Context, recipientIDs []string, item *domain.FeedItem, deliveredAt time.Time) (int64, error) {
	pipe := r.client.Pipeline()

	m := member(item)
	score := float64(deliveredAt.UnixMicro())

	adds := make([]*redis.IntCmd, 0, len(recipientIDs))
	for _, uid := range recipientIDs {
		key := timelineKey(uid)
		adds = append(adds, pipe.ZAddNX(ctx, key, redis.Z{Score: score, Member: m}))
		// Refresh TTL
		pipe.Expire(ctx, key, r.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}

	var inserted int64
	for _, cmd := range adds {
		inserted += cmd.Val()
	}
	return inserted, nil
}

func (r *RedisFeedRepo) Timeline(ctx context.Context, userID string, limit int64, cursor domain.Cursor) ([]*domain.TimelineEntry, error) {
	return r.readEntries(ctx, timelineKey(userID), userID, limit, cursor)
}

func (r *RedisFeedRepo) MarkAuthorHot(ctx context.Context, authorID string) error {
	return r.client.SAdd(ctx, hotAuthorsKey, authorID).Err()
}

// FilterHotAuthors : un seul SMISMEMBER pour tous les candidats.
func (r *RedisFeedRepo) FilterHotAuthors(ctx context.Context, candidateIDs []string) ([]string, error) {
	if len(candidateIDs) == 0 {
		return []string{}, nil
	}

	members := make([]any, len(candidateIDs))
	for i, id := range candidateIDs {
		members[i] = id
	}

	flags, err := r.client.SMIsMember(ctx, hotAuthorsKey, members...).Result()
	if err != nil {
		return nil, err
	}

	hot := make([]string, 0)
	for i, ok := range flags {
		if ok {
			hot = append(hot, candidateIDs[i])
		}
	}
	return hot, nil
}

func (r *RedisFeedRepo) AddAuthorPost(ctx context.Context, item *domain.FeedItem, deliveredAt time.Time) error {
	key := authorKey(item.AuthorID)
	pipe := r.client.Pipeline()
	pipe.ZAddNX(ctx, key, redis.Z{
		Score:  float64(deliveredAt.UnixMicro()),
		Member: member(item),
	})
	pipe.Expire(ctx, key, r.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisFeedRepo) AuthorPosts(ctx context.Context, authorID string, limit int64, cursor domain.Cursor) ([]*domain.TimelineEntry, error) {
	return r.readEntries(ctx, authorKey(authorID), authorID, limit, cursor)
}

// readEntries : lecture inversée par score avec curseur (deliveredAt, postID).
// Jamais d'offset : sous inserts concurrents l'offset saute ou duplique des
// lignes, le curseur par position non.
func (r *RedisFeedRepo) readEntries(ctx context.Context, key, recipientID string, limit int64, cursor domain.Cursor) ([]*domain.TimelineEntry, error) {
	rangeBy := &redis.ZRangeBy{Min: "-inf", Max: "+inf", Count: limit}
	if !cursor.IsZero() {
		// Max inclusif pour rattraper les égalités de score restantes ;
		// le filtre ci-dessous écarte ce qui a déjà été servi.
		rangeBy.Max = strconv.FormatInt(cursor.DeliveredAt.UnixMicro(), 10)
		rangeBy.Count = limit + tieScan
	}

	results, err := r.client.ZRevRangeByScoreWithScores(ctx, key, rangeBy).Result()
	if err != nil {
		return nil, err
	}

	cursorMicros := cursor.DeliveredAt.UnixMicro()
	entries := make([]*domain.TimelineEntry, 0, limit)

	for _, z := range results {
		raw, ok := z.Member.(string)
		if !ok {
			continue
		}

		// On s'attend à "POST_ID:AUTHOR_ID"
		parts := strings.SplitN(raw, ":", 2)
		if len(parts) != 2 {
			// Format inconnu (donnée corrompue ?)
			continue
		}
		postID, authorID := parts[0], parts[1]

		if !cursor.IsZero() && int64(z.Score) == cursorMicros && postID >= cursor.PostID {
			// Déjà servi par la page précédente.
			continue
		}

		entries = append(entries, &domain.TimelineEntry{
			RecipientID: recipientID,
			PostID:      postID,
			AuthorID:    authorID,
			DeliveredAt: time.UnixMicro(int64(z.Score)).UTC(),
		})
		if int64(len(entries)) >= limit {
			break
		}
	}

	return entries, nil
}
