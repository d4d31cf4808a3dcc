package services

import (
	"context"
	"time"

	"github.com/jupiterclapton/fanline/internal/notification/core/domain"
	"github.com/jupiterclapton/fanline/internal/notification/core/ports"
)

type inboxService struct {
	repo ports.InboxRepository
}

func NewInboxService(repo ports.InboxRepository) ports.InboxService {
	return &inboxService{repo: repo}
}

func (s *inboxService) Notify(ctx context.Context, recipientID string, n *domain.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	return s.repo.Push(ctx, recipientID, n)
}

func (s *inboxService) List(ctx context.Context, recipientID string, limit int64) ([]*domain.Notification, error) {
	return s.repo.List(ctx, recipientID, limit)
}
