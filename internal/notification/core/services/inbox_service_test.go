package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jupiterclapton/fanline/internal/notification/core/domain"
)

type fakeInboxRepo struct {
	pushed map[string][]*domain.Notification
}

func (r *fakeInboxRepo) Push(_ context.Context, recipientID string, n *domain.Notification) error {
	r.pushed[recipientID] = append([]*domain.Notification{n}, r.pushed[recipientID]...)
	return nil
}

func (r *fakeInboxRepo) List(_ context.Context, recipientID string, limit int64) ([]*domain.Notification, error) {
	out := r.pushed[recipientID]
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func TestNotifyStampsCreatedAt(t *testing.T) {
	repo := &fakeInboxRepo{pushed: map[string][]*domain.Notification{}}
	svc := NewInboxService(repo)

	err := svc.Notify(context.Background(), "alice", &domain.Notification{
		Kind:    domain.KindFollowed,
		ActorID: "bob",
	})
	require.NoError(t, err)

	got, err := svc.List(context.Background(), "alice", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got[0].CreatedAt.IsZero(), "CreatedAt doit être posé à la réception")
	assert.Equal(t, domain.KindFollowed, got[0].Kind)
}

func TestListNewestFirst(t *testing.T) {
	repo := &fakeInboxRepo{pushed: map[string][]*domain.Notification{}}
	svc := NewInboxService(repo)

	require.NoError(t, svc.Notify(context.Background(), "alice", &domain.Notification{Kind: domain.KindFollowed, ActorID: "bob"}))
	require.NoError(t, svc.Notify(context.Background(), "alice", &domain.Notification{Kind: domain.KindLiked, ActorID: "carol", ObjectID: "p1"}))

	got, err := svc.List(context.Background(), "alice", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, domain.KindLiked, got[0].Kind)
}
