package ports

import (
	"context"

	"github.com/jupiterclapton/fanline/internal/notification/core/domain"
)

// --- DRIVING ---

type InboxService interface {
	Notify(ctx context.Context, recipientID string, n *domain.Notification) error
	List(ctx context.Context, recipientID string, limit int64) ([]*domain.Notification, error)
}

// --- DRIVEN ---

type InboxRepository interface {
	Push(ctx context.Context, recipientID string, n *domain.Notification) error
	List(ctx context.Context, recipientID string, limit int64) ([]*domain.Notification, error)
}
