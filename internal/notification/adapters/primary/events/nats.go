package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/jupiterclapton/fanline/internal/notification/core/domain"
	"github.com/jupiterclapton/fanline/internal/notification/core/ports"
	postdomain "github.com/jupiterclapton/fanline/internal/post/core/domain"
	postports "github.com/jupiterclapton/fanline/internal/post/core/ports"
)

const handleTimeout = 10 * time.Second

type EventHandler struct {
	inbox ports.InboxService
	posts postports.PostService // résolution post -> auteur pour les likes
}

func NewEventHandler(inbox ports.InboxService, posts postports.PostService) *EventHandler {
	return &EventHandler{inbox: inbox, posts: posts}
}

type userFollowedEvent struct {
	ActorID   string    `json:"actor_id"`
	TargetID  string    `json:"target_id"`
	CreatedAt time.Time `json:"created_at"`
}

type postLikedEvent struct {
	UserID    string    `json:"user_id"`
	PostID    string    `json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *EventHandler) HandleUserFollowed(msg *nats.Msg) {
	ctx, span := h.startSpan(msg, "process_user_followed")
	defer span.End()

	var event userFollowedEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		span.RecordError(err)
		slog.Error("❌ Invalid user.followed event", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()

	err := h.inbox.Notify(ctx, event.TargetID, &domain.Notification{
		Kind:      domain.KindFollowed,
		ActorID:   event.ActorID,
		CreatedAt: event.CreatedAt,
	})
	if err != nil {
		slog.Error("Failed to push follow notification", "target_id", event.TargetID, "error", err)
	}
}

func (h *EventHandler) HandlePostLiked(msg *nats.Msg) {
	ctx, span := h.startSpan(msg, "process_post_liked")
	defer span.End()

	var event postLikedEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		span.RecordError(err)
		slog.Error("❌ Invalid post.liked event", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()

	post, err := h.posts.GetPost(ctx, event.PostID)
	if err != nil {
		if errors.Is(err, postdomain.ErrNotFound) {
			// Post supprimé entre temps : rien à notifier.
			return
		}
		slog.Error("Failed to resolve liked post", "post_id", event.PostID, "error", err)
		return
	}

	// L'auteur ne se notifie pas lui-même.
	if post.AuthorID == event.UserID {
		return
	}

	err = h.inbox.Notify(ctx, post.AuthorID, &domain.Notification{
		Kind:      domain.KindLiked,
		ActorID:   event.UserID,
		ObjectID:  event.PostID,
		CreatedAt: event.CreatedAt,
	})
	if err != nil {
		slog.Error("Failed to push like notification", "author_id", post.AuthorID, "error", err)
	}
}

func (h *EventHandler) startSpan(msg *nats.Msg, name string) (context.Context, trace.Span) {
	ctx := context.Background()
	ctx = otel.GetTextMapPropagator().Extract(ctx, propagation.HeaderCarrier(msg.Header))
	tracer := otel.Tracer("fanline/notification")
	return tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindConsumer))
}
