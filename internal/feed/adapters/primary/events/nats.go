package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jupiterclapton/fanline/internal/feed/core/domain"
	"github.com/jupiterclapton/fanline/internal/feed/core/ports"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// FanoutTimeout borne chaque fan-out : aucun appel store ne bloque indéfiniment,
// au-delà c'est à l'appelant (le rejeu de l'event) de décider.
const FanoutTimeout = 30 * time.Second

type EventHandler struct {
	service ports.FeedService
}

func NewEventHandler(service ports.FeedService) *EventHandler {
	return &EventHandler{service: service}
}

// Structure de l'event (Contract implicite avec le Post Store)
type postCreatedEvent struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
}

// HandlePostCreated est le point d'entrée du fan-out : invoqué une fois par
// post persisté, strictement après durabilité côté Post Store.
func (h *EventHandler) HandlePostCreated(msg *nats.Msg) {
	// Extraction du contexte de trace depuis les headers NATS
	ctx := context.Background()
	ctx = otel.GetTextMapPropagator().Extract(ctx, propagation.HeaderCarrier(msg.Header))

	tracer := otel.Tracer("fanline/feed")
	ctx, span := tracer.Start(ctx, "process_post_created", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	var event postCreatedEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		span.RecordError(err)
		slog.Error("❌ Invalid event format", "error", err)
		return
	}

	slog.Info("📨 Feed received post.created", "post_id", event.ID, "author_id", event.AuthorID)

	item := &domain.FeedItem{
		PostID:    event.ID,
		AuthorID:  event.AuthorID,
		CreatedAt: event.CreatedAt,
	}

	// Fan-out en background, avec propagation du contexte de trace.
	go func() {
		childCtx, cancel := context.WithTimeout(ctx, FanoutTimeout)
		defer cancel()

		if err := h.service.Distribute(childCtx, item); err != nil {
			// Tout ou rien : on logge l'échec en bloc, jamais une liste
			// partielle de destinataires servis. Rejouer est sans danger.
			slog.Error("❌ Fan-out failed", "post_id", event.ID, "error", err)
		}
	}()
}
