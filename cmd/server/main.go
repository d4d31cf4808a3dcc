package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	// Drivers
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/redis/go-redis/v9"

	// Instrumentation
	"github.com/exaring/otelpgx"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"

	// Interne
	"github.com/jupiterclapton/fanline/config"
	api "github.com/jupiterclapton/fanline/internal/api/http"
	feedevents "github.com/jupiterclapton/fanline/internal/feed/adapters/primary/events"
	feedclients "github.com/jupiterclapton/fanline/internal/feed/adapters/secondary/clients"
	feedrepo "github.com/jupiterclapton/fanline/internal/feed/adapters/secondary/repository"
	feedservices "github.com/jupiterclapton/fanline/internal/feed/core/services"
	graphbroker "github.com/jupiterclapton/fanline/internal/graph/adapters/secondary/eventbroker"
	graphrepo "github.com/jupiterclapton/fanline/internal/graph/adapters/secondary/repository"
	graphservices "github.com/jupiterclapton/fanline/internal/graph/core/services"
	likebroker "github.com/jupiterclapton/fanline/internal/interaction/adapters/secondary/eventbroker"
	likerepo "github.com/jupiterclapton/fanline/internal/interaction/adapters/secondary/repository"
	likeservices "github.com/jupiterclapton/fanline/internal/interaction/core/services"
	notifevents "github.com/jupiterclapton/fanline/internal/notification/adapters/primary/events"
	notifrepo "github.com/jupiterclapton/fanline/internal/notification/adapters/secondary/repository"
	notifservices "github.com/jupiterclapton/fanline/internal/notification/core/services"
	"github.com/jupiterclapton/fanline/internal/platform/retry"
	postbroker "github.com/jupiterclapton/fanline/internal/post/adapters/secondary/eventbroker"
	postrepo "github.com/jupiterclapton/fanline/internal/post/adapters/secondary/repository"
	postservices "github.com/jupiterclapton/fanline/internal/post/core/services"
)

func main() {
	// 1. Config & Logger
	cfg := config.Load()
	initLogger(cfg)
	slog.Info("🚀 Starting fanline", "env", cfg.Env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Télémétrie (Tracing)
	tp, err := initTracer(ctx, cfg)
	if err != nil {
		slog.Error("Failed to init tracer", "error", err)
	} else {
		defer func() { _ = tp.Shutdown(context.Background()) }()
	}

	// 3. Infrastructure: Neo4j (Graph Store)
	driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURI, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPass, ""))
	if err != nil {
		slog.Error("Failed to create neo4j driver", "error", err)
		os.Exit(1)
	}
	defer driver.Close(context.Background())

	connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
	defer connectCancel()
	if err := driver.VerifyConnectivity(connectCtx); err != nil {
		slog.Error("Failed to connect to Neo4j", "error", err)
		os.Exit(1)
	}
	slog.Info("✅ Connected to Neo4j")

	// 4. Infrastructure: Redis (Timeline Store + Inbox)
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisotel.InstrumentTracing(rdb); err != nil {
		panic(err)
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Error("Unable to connect to Redis", "error", err)
		os.Exit(1)
	}
	slog.Info("✅ Connected to Redis")

	// 5. Infrastructure: Postgres (Post Store + Likes)
	dbConfig, err := pgxpool.ParseConfig(cfg.DBUrl)
	if err != nil {
		slog.Error("Unable to parse DB config", "error", err)
		os.Exit(1)
	}
	dbConfig.ConnConfig.Tracer = otelpgx.NewTracer()

	dbPool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		slog.Error("Unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()
	slog.Info("✅ Connected to Postgres")

	// 6. Infrastructure: Event Broker (NATS)
	nc, err := nats.Connect(cfg.NatsUrl)
	if err != nil {
		slog.Error("Unable to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer nc.Close()
	slog.Info("✅ Connected to NATS")

	// 7. Wiring: Graph
	gRepo := graphrepo.NewNeo4jRepo(driver)
	if err := gRepo.EnsureSchema(context.Background()); err != nil {
		slog.Warn("Schema init failed (might be fine if already exists)", "error", err)
	}
	graphService := graphservices.NewGraphService(gRepo, graphbroker.NewNatsPublisher(nc))

	// 8. Wiring: Post
	postService := postservices.NewPostService(postrepo.NewPostgresRepo(dbPool), postbroker.NewNatsPublisher(nc))

	// 9. Wiring: Feed (Fan-out Engine)
	feedService := feedservices.NewFeedService(
		feedrepo.NewRedisFeedRepo(rdb),
		feedclients.NewGraphReader(graphService),
		feedservices.WithBatchSize(cfg.FanoutBatchSize),
		feedservices.WithFanoutThreshold(cfg.FanoutThreshold),
		feedservices.WithRetryPolicy(retry.Policy{MaxTries: cfg.FanoutMaxTries, InitialInterval: 100 * time.Millisecond}),
	)

	// 10. Wiring: Interaction + Notification
	likeService := likeservices.NewLikeService(likerepo.NewPostgresRepo(dbPool), likebroker.NewNatsPublisher(nc))
	inboxService := notifservices.NewInboxService(notifrepo.NewRedisInboxRepo(rdb))

	// 11. Consumers NATS (Driving Adapters - Async)
	feedHandler := feedevents.NewEventHandler(feedService)
	if _, err := nc.Subscribe("post.created", feedHandler.HandlePostCreated); err != nil {
		slog.Error("Failed to subscribe to post.created", "error", err)
		os.Exit(1)
	}

	notifHandler := notifevents.NewEventHandler(inboxService, postService)
	if _, err := nc.Subscribe("user.followed", notifHandler.HandleUserFollowed); err != nil {
		slog.Error("Failed to subscribe to user.followed", "error", err)
		os.Exit(1)
	}
	if _, err := nc.Subscribe("post.liked", notifHandler.HandlePostLiked); err != nil {
		slog.Error("Failed to subscribe to post.liked", "error", err)
		os.Exit(1)
	}
	slog.Info("👂 Listening for events (NATS)")

	// 12. Serveur HTTP (Driving Adapter - Sync)
	apiServer := api.NewServer(graphService, postService, feedService, likeService, inboxService)
	httpServer := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      apiServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		slog.Info("📡 HTTP listening", "port", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("🛑 Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown error", "error", err)
	}
	slog.Info("👋 Server exited")
}

// --- Helpers ---

func initLogger(cfg config.Config) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.Env == "local" {
		opts.Level = slog.LevelDebug
	}
	var handler slog.Handler
	if cfg.Env == "local" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func initTracer(ctx context.Context, cfg config.Config) (*sdktrace.TracerProvider, error) {
	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OtelEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	res, _ := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String("fanline"),
			semconv.DeploymentEnvironmentKey.String(cfg.Env),
		),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	return tp, nil
}
