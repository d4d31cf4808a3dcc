package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	feeddomain "github.com/jupiterclapton/fanline/internal/feed/core/domain"
	graphdomain "github.com/jupiterclapton/fanline/internal/graph/core/domain"
	postdomain "github.com/jupiterclapton/fanline/internal/post/core/domain"
)

// --- Graph ---

func (s *Server) handleFollow(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TargetID string `json:"target_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	err := s.graph.FollowUser(r.Context(), chi.URLParam(r, "userID"), body.TargetID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUnfollow(w http.ResponseWriter, r *http.Request) {
	err := s.graph.UnfollowUser(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "targetID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFollowers(w http.ResponseWriter, r *http.Request) {
	ids, err := s.graph.Followers(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_ids": ids})
}

func (s *Server) handleFollowing(w http.ResponseWriter, r *http.Request) {
	// L'ordre chronologique est opt-in (?ordered=true), jamais implicite.
	ordered := r.URL.Query().Get("ordered") == "true"
	ids, err := s.graph.Following(r.Context(), chi.URLParam(r, "userID"), ordered)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_ids": ids})
}

func (s *Server) handleRelation(w http.ResponseWriter, r *http.Request) {
	status, err := s.graph.CheckRelation(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "targetID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"is_following":   status.IsFollowing,
		"is_followed_by": status.IsFollowedBy,
	})
}

// --- Posts ---

type postDTO struct {
	ID        string `json:"id"`
	AuthorID  string `json:"author_id"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

func toPostDTO(p *postdomain.Post) postDTO {
	return postDTO{
		ID:        p.ID,
		AuthorID:  p.AuthorID,
		Content:   p.Content,
		CreatedAt: p.CreatedAt.Format(timeFormat),
	}
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AuthorID string `json:"author_id"`
		Content  string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	post, err := s.posts.CreatePost(r.Context(), body.AuthorID, body.Content)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPostDTO(post))
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	post, err := s.posts.GetPost(r.Context(), chi.URLParam(r, "postID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPostDTO(post))
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	err := s.posts.DeletePost(r.Context(), chi.URLParam(r, "postID"), r.URL.Query().Get("author_id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	posts, nextToken, err := s.posts.ListPostsByAuthor(r.Context(), chi.URLParam(r, "userID"), limit, r.URL.Query().Get("page_token"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]postDTO, 0, len(posts))
	for _, p := range posts {
		dtos = append(dtos, toPostDTO(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"posts": dtos, "next_page_token": nextToken})
}

// --- Feed ---

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	req := feeddomain.TimelineRequest{
		UserID: chi.URLParam(r, "userID"),
		Limit:  int64(queryInt(r, "limit", 0)),
		Cursor: r.URL.Query().Get("cursor"),
	}

	entries, nextCursor, err := s.feed.Timeline(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	// Hydratation : le feed ne stocke que des références, on récupère les
	// posts en UN batch.
	postIDs := make([]string, 0, len(entries))
	for _, e := range entries {
		postIDs = append(postIDs, e.PostID)
	}
	posts, err := s.posts.GetPosts(r.Context(), postIDs)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	byID := make(map[string]*postdomain.Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}

	type timelineItemDTO struct {
		PostID      string   `json:"post_id"`
		AuthorID    string   `json:"author_id"`
		DeliveredAt string   `json:"delivered_at"`
		Post        *postDTO `json:"post,omitempty"`
	}

	items := make([]timelineItemDTO, 0, len(entries))
	for _, e := range entries {
		item := timelineItemDTO{
			PostID:      e.PostID,
			AuthorID:    e.AuthorID,
			DeliveredAt: e.DeliveredAt.Format(timeFormat),
		}
		// Post supprimé entre temps : on garde la référence sans contenu.
		if p, ok := byID[e.PostID]; ok {
			dto := toPostDTO(p)
			item.Post = &dto
		}
		items = append(items, item)
	}

	writeJSON(w, http.StatusOK, map[string]any{"items": items, "next_cursor": nextCursor})
}

// --- Likes ---

func (s *Server) handleLike(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	if err := s.likes.Like(r.Context(), body.UserID, chi.URLParam(r, "postID")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUnlike(w http.ResponseWriter, r *http.Request) {
	if err := s.likes.Unlike(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "postID")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLikeCount(w http.ResponseWriter, r *http.Request) {
	count, err := s.likes.Count(r.Context(), chi.URLParam(r, "postID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": count})
}

// --- Inbox ---

func (s *Server) handleInbox(w http.ResponseWriter, r *http.Request) {
	notifications, err := s.inbox.List(r.Context(), chi.URLParam(r, "userID"), int64(queryInt(r, "limit", 50)))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": notifications})
}

// --- Helpers ---

const timeFormat = time.RFC3339Nano

func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, postdomain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, postdomain.ErrNotAuthor):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, graphdomain.ErrEmptyID),
		errors.Is(err, graphdomain.ErrSelfFollow),
		errors.Is(err, postdomain.ErrInvalidToken),
		errors.Is(err, feeddomain.ErrInvalidCursor):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("Internal error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
