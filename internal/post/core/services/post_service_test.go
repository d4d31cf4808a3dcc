package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jupiterclapton/fanline/internal/post/core/domain"
)

type fakePostRepo struct {
	posts map[string]*domain.Post
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{posts: make(map[string]*domain.Post)}
}

func (r *fakePostRepo) Save(_ context.Context, post *domain.Post) error {
	r.posts[post.ID] = post
	return nil
}

func (r *fakePostRepo) FindByID(_ context.Context, postID string) (*domain.Post, error) {
	p, ok := r.posts[postID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (r *fakePostRepo) Delete(_ context.Context, postID string) error {
	delete(r.posts, postID)
	return nil
}

func (r *fakePostRepo) GetPosts(_ context.Context, postIDs []string) ([]*domain.Post, error) {
	out := make([]*domain.Post, 0, len(postIDs))
	for _, id := range postIDs {
		if p, ok := r.posts[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePostRepo) ListByAuthor(_ context.Context, authorID string, limit int, cursorTime time.Time) ([]*domain.Post, error) {
	out := make([]*domain.Post, 0)
	for _, p := range r.posts {
		if p.AuthorID != authorID {
			continue
		}
		if !cursorTime.IsZero() && !p.CreatedAt.Before(cursorTime) {
			continue
		}
		out = append(out, p)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakePostPublisher struct {
	created   []string
	deleted   []string
	createErr error
}

func (p *fakePostPublisher) PublishPostCreated(_ context.Context, post *domain.Post) error {
	if p.createErr != nil {
		return p.createErr
	}
	p.created = append(p.created, post.ID)
	return nil
}

func (p *fakePostPublisher) PublishPostDeleted(_ context.Context, postID string) error {
	p.deleted = append(p.deleted, postID)
	return nil
}

func TestCreatePostPersistsThenPublishes(t *testing.T) {
	repo := newFakePostRepo()
	pub := &fakePostPublisher{}
	svc := NewPostService(repo, pub)

	post, err := svc.CreatePost(context.Background(), "alice", "bonjour")
	require.NoError(t, err)
	require.NotEmpty(t, post.ID)
	assert.Equal(t, "alice", post.AuthorID)
	assert.Contains(t, repo.posts, post.ID)
	assert.Equal(t, []string{post.ID}, pub.created, "le fan-out part après la persistance")
}

func TestCreatePostSurvivesPublishFailure(t *testing.T) {
	repo := newFakePostRepo()
	pub := &fakePostPublisher{createErr: errors.New("nats down")}
	svc := NewPostService(repo, pub)

	// Le post est durable : on ne fait pas échouer la requête utilisateur.
	post, err := svc.CreatePost(context.Background(), "alice", "bonjour")
	require.NoError(t, err)
	assert.Contains(t, repo.posts, post.ID)
}

func TestDeletePostChecksAuthor(t *testing.T) {
	repo := newFakePostRepo()
	pub := &fakePostPublisher{}
	svc := NewPostService(repo, pub)

	post, err := svc.CreatePost(context.Background(), "alice", "bonjour")
	require.NoError(t, err)

	err = svc.DeletePost(context.Background(), post.ID, "mallory")
	require.ErrorIs(t, err, domain.ErrNotAuthor)
	assert.Contains(t, repo.posts, post.ID)

	require.NoError(t, svc.DeletePost(context.Background(), post.ID, "alice"))
	assert.NotContains(t, repo.posts, post.ID)
	assert.Equal(t, []string{post.ID}, pub.deleted)
}

func TestListPostsRejectsBadToken(t *testing.T) {
	svc := NewPostService(newFakePostRepo(), &fakePostPublisher{})

	_, _, err := svc.ListPostsByAuthor(context.Background(), "alice", 10, "pas-une-date")
	require.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestListPostsPageToken(t *testing.T) {
	repo := newFakePostRepo()
	svc := NewPostService(repo, &fakePostPublisher{})

	for range [3]struct{}{} {
		_, err := svc.CreatePost(context.Background(), "alice", "x")
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}

	posts, next, err := svc.ListPostsByAuthor(context.Background(), "alice", 3, "")
	require.NoError(t, err)
	assert.Len(t, posts, 3)
	assert.NotEmpty(t, next, "page pleine : il peut y avoir une suite")

	posts, next, err = svc.ListPostsByAuthor(context.Background(), "alice", 10, "")
	require.NoError(t, err)
	assert.Len(t, posts, 3)
	assert.Empty(t, next, "page incomplète : fin de liste")
}
