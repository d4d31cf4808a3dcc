// Package http est la surface d'entrée fine du monolithe : du JSON, du
// routage, et les appels aux services. Pas d'auth ni de validation métier
// ici, c'est porté par la gateway en amont.
package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	feedports "github.com/jupiterclapton/fanline/internal/feed/core/ports"
	graphports "github.com/jupiterclapton/fanline/internal/graph/core/ports"
	interactionports "github.com/jupiterclapton/fanline/internal/interaction/core/ports"
	notificationports "github.com/jupiterclapton/fanline/internal/notification/core/ports"
	postports "github.com/jupiterclapton/fanline/internal/post/core/ports"
)

type Server struct {
	graph graphports.GraphService
	posts postports.PostService
	feed  feedports.FeedService
	likes interactionports.LikeService
	inbox notificationports.InboxService
}

func NewServer(
	graph graphports.GraphService,
	posts postports.PostService,
	feed feedports.FeedService,
	likes interactionports.LikeService,
	inbox notificationports.InboxService,
) *Server {
	return &Server{graph: graph, posts: posts, feed: feed, likes: likes, inbox: inbox}
}

func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	r.Route("/v1", func(r chi.Router) {
		// Graph
		r.Post("/users/{userID}/follow", s.handleFollow)
		r.Delete("/users/{userID}/follow/{targetID}", s.handleUnfollow)
		r.Get("/users/{userID}/followers", s.handleFollowers)
		r.Get("/users/{userID}/following", s.handleFollowing)
		r.Get("/users/{userID}/relations/{targetID}", s.handleRelation)

		// Posts
		r.Post("/posts", s.handleCreatePost)
		r.Get("/posts/{postID}", s.handleGetPost)
		r.Delete("/posts/{postID}", s.handleDeletePost)
		r.Get("/users/{userID}/posts", s.handleListPosts)

		// Feed
		r.Get("/users/{userID}/timeline", s.handleTimeline)

		// Likes
		r.Post("/posts/{postID}/likes", s.handleLike)
		r.Delete("/posts/{postID}/likes/{userID}", s.handleUnlike)
		r.Get("/posts/{postID}/likes/count", s.handleLikeCount)

		// Inbox
		r.Get("/users/{userID}/inbox", s.handleInbox)
	})

	return r
}
