package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jupiterclapton/fanline/internal/notification/core/domain"
	"github.com/redis/go-redis/v9"
)

// maxInboxLen : inbox cappée, les plus vieilles notifications tombent.
const maxInboxLen = 200

type RedisInboxRepo struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisInboxRepo(client *redis.Client) *RedisInboxRepo {
	return &RedisInboxRepo{
		client: client,
		ttl:    24 * 30 * time.Hour,
	}
}

func inboxKey(userID string) string { return fmt.Sprintf("inbox:%s", userID) }

func (r *RedisInboxRepo) Push(ctx context.Context, recipientID string, n *domain.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}

	key := inboxKey(recipientID)
	pipe := r.client.Pipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, maxInboxLen-1)
	pipe.Expire(ctx, key, r.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (r *RedisInboxRepo) List(ctx context.Context, recipientID string, limit int64) ([]*domain.Notification, error) {
	if limit <= 0 || limit > maxInboxLen {
		limit = maxInboxLen
	}

	raws, err := r.client.LRange(ctx, inboxKey(recipientID), 0, limit-1).Result()
	if err != nil {
		return nil, err
	}

	notifications := make([]*domain.Notification, 0, len(raws))
	for _, raw := range raws {
		var n domain.Notification
		if err := json.Unmarshal([]byte(raw), &n); err != nil {
			// Donnée corrompue : on saute, l'inbox reste lisible.
			continue
		}
		notifications = append(notifications, &n)
	}
	return notifications, nil
}
