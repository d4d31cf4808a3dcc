package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jupiterclapton/fanline/internal/feed/core/domain"
	"github.com/jupiterclapton/fanline/internal/platform/retry"
)

// --- Fakes ---

// fakeGraph compte ses round-trips : c'est comme ça qu'on vérifie la
// propriété "pas de N+1", pas au chrono.
type fakeGraph struct {
	mu            sync.Mutex
	followers     map[string][]string
	following     map[string][]string
	followerCalls int
	countCalls    int
	followersErr  error
	transientLeft int // erreurs transitoires à simuler avant de répondre
}

func (g *fakeGraph) Followers(_ context.Context, userID string) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.followerCalls++
	if g.transientLeft > 0 {
		g.transientLeft--
		return nil, errors.New("connection reset")
	}
	if g.followersErr != nil {
		return nil, g.followersErr
	}
	return append([]string{}, g.followers[userID]...), nil
}

func (g *fakeGraph) Following(_ context.Context, userID string) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string{}, g.following[userID]...), nil
}

func (g *fakeGraph) CountFollowers(_ context.Context, userID string) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.countCalls++
	return int64(len(g.followers[userID])), nil
}

// fakeTimelineRepo : Timeline Store en mémoire avec la même sémantique
// insert-if-absent sur (recipient, post) que l'adapter Redis.
type fakeTimelineRepo struct {
	mu            sync.Mutex
	entries       map[string]map[string]*domain.TimelineEntry // recipient -> postID -> entry
	hotAuthors    map[string]bool
	authorPosts   map[string]map[string]*domain.TimelineEntry
	addCalls      int
	transientLeft int
}

func newFakeTimelineRepo() *fakeTimelineRepo {
	return &fakeTimelineRepo{
		entries:     make(map[string]map[string]*domain.TimelineEntry),
		hotAuthors:  make(map[string]bool),
		authorPosts: make(map[string]map[string]*domain.TimelineEntry),
	}
}

func (r *fakeTimelineRepo) AddEntries(_ context.Context, recipientIDs []string, item *domain.FeedItem, deliveredAt time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addCalls++
	if r.transientLeft > 0 {
		r.transientLeft--
		return 0, errors.New("i/o timeout")
	}

	var inserted int64
	for _, uid := range recipientIDs {
		if r.entries[uid] == nil {
			r.entries[uid] = make(map[string]*domain.TimelineEntry)
		}
		if _, exists := r.entries[uid][item.PostID]; exists {
			continue
		}
		r.entries[uid][item.PostID] = &domain.TimelineEntry{
			RecipientID: uid,
			PostID:      item.PostID,
			AuthorID:    item.AuthorID,
			DeliveredAt: deliveredAt,
		}
		inserted++
	}
	return inserted, nil
}

func (r *fakeTimelineRepo) Timeline(_ context.Context, userID string, limit int64, cursor domain.Cursor) ([]*domain.TimelineEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return pageOf(r.entries[userID], limit, cursor), nil
}

func (r *fakeTimelineRepo) MarkAuthorHot(_ context.Context, authorID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hotAuthors[authorID] = true
	return nil
}

func (r *fakeTimelineRepo) FilterHotAuthors(_ context.Context, candidateIDs []string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	hot := make([]string, 0)
	for _, id := range candidateIDs {
		if r.hotAuthors[id] {
			hot = append(hot, id)
		}
	}
	return hot, nil
}

func (r *fakeTimelineRepo) AddAuthorPost(_ context.Context, item *domain.FeedItem, deliveredAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.authorPosts[item.AuthorID] == nil {
		r.authorPosts[item.AuthorID] = make(map[string]*domain.TimelineEntry)
	}
	if _, exists := r.authorPosts[item.AuthorID][item.PostID]; !exists {
		r.authorPosts[item.AuthorID][item.PostID] = &domain.TimelineEntry{
			RecipientID: item.AuthorID,
			PostID:      item.PostID,
			AuthorID:    item.AuthorID,
			DeliveredAt: deliveredAt,
		}
	}
	return nil
}

func (r *fakeTimelineRepo) AuthorPosts(_ context.Context, authorID string, limit int64, cursor domain.Cursor) ([]*domain.TimelineEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return pageOf(r.authorPosts[authorID], limit, cursor), nil
}

// pageOf reproduit la pagination du store : deliveredAt décroissant,
// postID décroissant en départage, borné au curseur.
func pageOf(all map[string]*domain.TimelineEntry, limit int64, cursor domain.Cursor) []*domain.TimelineEntry {
	out := make([]*domain.TimelineEntry, 0)
	for _, e := range all {
		if !cursor.IsZero() {
			if e.DeliveredAt.After(cursor.DeliveredAt) {
				continue
			}
			if e.DeliveredAt.Equal(cursor.DeliveredAt) && e.PostID >= cursor.PostID {
				continue
			}
		}
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

func (r *fakeTimelineRepo) entryCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, m := range r.entries {
		total += len(m)
	}
	return total
}

func fastRetry() Option {
	return WithRetryPolicy(retry.Policy{MaxTries: 5, InitialInterval: time.Millisecond})
}

func item(postID, authorID string) *domain.FeedItem {
	return &domain.FeedItem{PostID: postID, AuthorID: authorID, CreatedAt: time.Now().UTC()}
}

// --- Fan-out (chemin push) ---

func TestDistributeFanoutToFollowersAndSelf(t *testing.T) {
	ctx := context.Background()
	graph := &fakeGraph{followers: map[string][]string{"alice": {"bob", "carol"}}}
	repo := newFakeTimelineRepo()
	svc := NewFeedService(repo, graph, fastRetry())

	require.NoError(t, svc.Distribute(ctx, item("p1", "alice")))

	// 3 entrées exactement : (alice,p1), (bob,p1), (carol,p1)
	assert.Equal(t, 3, repo.entryCount())
	for _, uid := range []string{"alice", "bob", "carol"} {
		assert.Contains(t, repo.entries[uid], "p1", "entrée manquante pour %s", uid)
	}

	// Un seul événement logique : tous partagent le même deliveredAt
	ref := repo.entries["alice"]["p1"].DeliveredAt
	assert.True(t, repo.entries["bob"]["p1"].DeliveredAt.Equal(ref))
	assert.True(t, repo.entries["carol"]["p1"].DeliveredAt.Equal(ref))

	// Une écriture batch, pas une boucle par destinataire
	assert.Equal(t, 1, repo.addCalls)
}

func TestDistributeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	graph := &fakeGraph{followers: map[string][]string{"alice": {"bob", "carol"}}}
	repo := newFakeTimelineRepo()
	svc := NewFeedService(repo, graph, fastRetry())

	// Crash-retry simulé : le même fan-out part deux fois
	require.NoError(t, svc.Distribute(ctx, item("p1", "alice")))
	require.NoError(t, svc.Distribute(ctx, item("p1", "alice")))

	assert.Equal(t, 3, repo.entryCount(), "le rejeu ne doit rien dupliquer")
}

func TestFollowersSingleRoundTrip(t *testing.T) {
	ctx := context.Background()
	many := make([]string, 5000)
	for i := range many {
		many[i] = fmt.Sprintf("user-%04d", i)
	}

	graph := &fakeGraph{followers: map[string][]string{"celeb": many}}
	repo := newFakeTimelineRepo()
	svc := NewFeedService(repo, graph, fastRetry(), WithBatchSize(500))

	require.NoError(t, svc.Distribute(ctx, item("p1", "celeb")))

	// La taille du set d'abonnés ne change PAS le nombre d'allers-retours graph
	assert.Equal(t, 1, graph.followerCalls)
	// ... mais l'écriture est bien découpée en paquets
	assert.Equal(t, 11, repo.addCalls, "5001 destinataires / paquets de 500")
	assert.Equal(t, 5001, repo.entryCount())
}

func TestSnapshotNotUndoneByUnfollow(t *testing.T) {
	ctx := context.Background()
	graph := &fakeGraph{followers: map[string][]string{"alice": {"bob"}}, following: map[string][]string{}}
	repo := newFakeTimelineRepo()
	svc := NewFeedService(repo, graph, fastRetry())

	require.NoError(t, svc.Distribute(ctx, item("p1", "alice")))

	// bob se désabonne APRÈS le fan-out : son entrée existante reste.
	graph.followers["alice"] = nil

	entries, _, err := svc.Timeline(ctx, domain.TimelineRequest{UserID: "bob", Limit: 10})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "p1", entries[0].PostID)

	// ... et le prochain post ne lui parvient plus.
	require.NoError(t, svc.Distribute(ctx, item("p2", "alice")))
	assert.NotContains(t, repo.entries["bob"], "p2")
}

func TestLateFollowerNotBackfilled(t *testing.T) {
	ctx := context.Background()
	graph := &fakeGraph{followers: map[string][]string{"alice": {"bob", "carol"}}}
	repo := newFakeTimelineRepo()
	svc := NewFeedService(repo, graph, fastRetry())

	require.NoError(t, svc.Distribute(ctx, item("p1", "alice")))
	assert.Equal(t, 3, repo.entryCount())

	// dave suit alice APRÈS p1
	graph.followers["alice"] = []string{"bob", "carol", "dave"}

	require.NoError(t, svc.Distribute(ctx, item("p2", "alice")))
	assert.Equal(t, 7, repo.entryCount(), "p2 ajoute exactement 4 entrées")
	assert.NotContains(t, repo.entries["dave"], "p1", "pas de backfill pour un abonné tardif")
	assert.Contains(t, repo.entries["dave"], "p2")
}

// --- Erreurs & retry ---

func TestTransientWriteFailureIsRetried(t *testing.T) {
	ctx := context.Background()
	graph := &fakeGraph{followers: map[string][]string{"alice": {"bob"}}}
	repo := newFakeTimelineRepo()
	repo.transientLeft = 2
	svc := NewFeedService(repo, graph, fastRetry())

	require.NoError(t, svc.Distribute(ctx, item("p1", "alice")))
	assert.Equal(t, 2, repo.entryCount())
	assert.Equal(t, 3, repo.addCalls, "2 échecs transitoires + 1 succès")
}

func TestTransientReadFailureIsRetried(t *testing.T) {
	ctx := context.Background()
	graph := &fakeGraph{followers: map[string][]string{"alice": {"bob"}}, transientLeft: 1}
	repo := newFakeTimelineRepo()
	svc := NewFeedService(repo, graph, fastRetry())

	require.NoError(t, svc.Distribute(ctx, item("p1", "alice")))
	assert.Equal(t, 2, graph.followerCalls)
	assert.Equal(t, 2, repo.entryCount())
}

func TestAuthorNotFoundIsNotRetried(t *testing.T) {
	ctx := context.Background()
	graph := &fakeGraph{followersErr: domain.ErrAuthorNotFound}
	repo := newFakeTimelineRepo()
	svc := NewFeedService(repo, graph, fastRetry())

	err := svc.Distribute(ctx, item("p1", "ghost"))
	require.ErrorIs(t, err, domain.ErrAuthorNotFound)
	assert.Equal(t, 1, graph.followerCalls, "précondition violée : un seul essai")
	assert.Equal(t, 0, repo.entryCount())
}

func TestBoundedAttemptsThenFailure(t *testing.T) {
	ctx := context.Background()
	graph := &fakeGraph{followers: map[string][]string{"alice": {"bob"}}}
	repo := newFakeTimelineRepo()
	repo.transientLeft = 100
	svc := NewFeedService(repo, graph, fastRetry())

	err := svc.Distribute(ctx, item("p1", "alice"))
	require.Error(t, err, "l'échec remonte en bloc, retentable par l'appelant")
	assert.Equal(t, 5, repo.addCalls)
}

// --- Timeline (lecture) ---

func TestTimelineOrdering(t *testing.T) {
	ctx := context.Background()
	graph := &fakeGraph{followers: map[string][]string{"alice": {"bob"}}, following: map[string][]string{"bob": {"alice"}}}
	repo := newFakeTimelineRepo()
	svc := NewFeedService(repo, graph, fastRetry())

	require.NoError(t, svc.Distribute(ctx, item("p1", "alice")))
	time.Sleep(2 * time.Millisecond) // deliveredAt distincts
	require.NoError(t, svc.Distribute(ctx, item("p2", "alice")))

	entries, _, err := svc.Timeline(ctx, domain.TimelineRequest{UserID: "bob", Limit: 10})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "p2", entries[0].PostID, "le plus récent d'abord")
	assert.Equal(t, "p1", entries[1].PostID)
}

func TestTimelineCursorPaginationWalksEverything(t *testing.T) {
	ctx := context.Background()
	graph := &fakeGraph{followers: map[string][]string{"alice": {"bob"}}, following: map[string][]string{"bob": {"alice"}}}
	repo := newFakeTimelineRepo()
	svc := NewFeedService(repo, graph, fastRetry())

	posts := []string{"p1", "p2", "p3", "p4", "p5"}
	for _, p := range posts {
		require.NoError(t, svc.Distribute(ctx, item(p, "alice")))
		time.Sleep(2 * time.Millisecond)
	}

	seen := make([]string, 0, len(posts))
	cursor := ""
	for {
		entries, next, err := svc.Timeline(ctx, domain.TimelineRequest{UserID: "bob", Limit: 2, Cursor: cursor})
		require.NoError(t, err)
		for _, e := range entries {
			seen = append(seen, e.PostID)
		}
		if next == "" {
			break
		}
		cursor = next
	}

	// Toutes les pages, sans trou ni doublon, du plus récent au plus ancien
	assert.Equal(t, []string{"p5", "p4", "p3", "p2", "p1"}, seen)
}

func TestTimelineRejectsBadCursor(t *testing.T) {
	ctx := context.Background()
	svc := NewFeedService(newFakeTimelineRepo(), &fakeGraph{}, fastRetry())

	_, _, err := svc.Timeline(ctx, domain.TimelineRequest{UserID: "bob", Limit: 10, Cursor: "n'importe quoi"})
	require.ErrorIs(t, err, domain.ErrInvalidCursor)
}

// --- Chemin pull (comptes à gros fan-out) ---

func TestHotAuthorDefersToPull(t *testing.T) {
	ctx := context.Background()
	graph := &fakeGraph{
		followers: map[string][]string{"celeb": {"bob", "carol", "dave"}},
		following: map[string][]string{"bob": {"celeb"}},
	}
	repo := newFakeTimelineRepo()
	svc := NewFeedService(repo, graph, fastRetry(), WithFanoutThreshold(2))

	require.NoError(t, svc.Distribute(ctx, item("p1", "celeb")))

	// Pas de write storm : seule l'entrée de l'auteur est matérialisée
	assert.Equal(t, 1, repo.entryCount())
	assert.Contains(t, repo.entries["celeb"], "p1")
	assert.True(t, repo.hotAuthors["celeb"])
	assert.Equal(t, 0, graph.followerCalls, "au-dessus du seuil on ne charge même pas la liste")

	// ... mais bob, qui suit celeb, voit quand même le post à la lecture
	entries, _, err := svc.Timeline(ctx, domain.TimelineRequest{UserID: "bob", Limit: 10})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "p1", entries[0].PostID)
}

func TestPullMergeDeduplicates(t *testing.T) {
	ctx := context.Background()
	graph := &fakeGraph{
		followers: map[string][]string{"celeb": {"bob"}, "alice": {"bob"}},
		following: map[string][]string{"bob": {"celeb", "alice"}},
	}
	repo := newFakeTimelineRepo()
	svc := NewFeedService(repo, graph, fastRetry())

	// alice en push classique
	require.NoError(t, svc.Distribute(ctx, item("p1", "alice")))
	time.Sleep(2 * time.Millisecond)

	// p2 de celeb part en push (bob a son entrée matérialisée)...
	require.NoError(t, svc.Distribute(ctx, item("p2", "celeb")))

	// ... puis celeb passe hot et p2 apparaît AUSSI dans son set pull.
	require.NoError(t, repo.MarkAuthorHot(ctx, "celeb"))
	require.NoError(t, repo.AddAuthorPost(ctx, item("p2", "celeb"), time.Now().UTC()))

	entries, _, err := svc.Timeline(ctx, domain.TimelineRequest{UserID: "bob", Limit: 10})
	require.NoError(t, err)
	require.Len(t, entries, 2, "p2 ne doit apparaître qu'une fois malgré les deux sources")
	assert.Equal(t, "p2", entries[0].PostID)
	assert.Equal(t, "p1", entries[1].PostID)
}

func TestThresholdDisabledNeverCounts(t *testing.T) {
	ctx := context.Background()
	graph := &fakeGraph{followers: map[string][]string{"alice": {"bob"}}}
	repo := newFakeTimelineRepo()
	svc := NewFeedService(repo, graph, fastRetry()) // pas de seuil

	require.NoError(t, svc.Distribute(ctx, item("p1", "alice")))
	assert.Equal(t, 0, graph.countCalls)
}
