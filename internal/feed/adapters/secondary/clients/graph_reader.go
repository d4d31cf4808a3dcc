package clients

import (
	"context"

	graphports "github.com/jupiterclapton/fanline/internal/graph/core/ports"
)

// GraphReader adapte le service graph (in-process) au port du feed.
// Le feed fan-out travaille sur le SET d'abonnés : jamais de tri demandé.
type GraphReader struct {
	graph graphports.GraphService
}

func NewGraphReader(graph graphports.GraphService) *GraphReader {
	return &GraphReader{graph: graph}
}

func (c *GraphReader) Followers(ctx context.Context, userID string) ([]string, error) {
	return c.graph.Followers(ctx, userID)
}

func (c *GraphReader) Following(ctx context.Context, userID string) ([]string, error) {
	return c.graph.Following(ctx, userID, false)
}

func (c *GraphReader) CountFollowers(ctx context.Context, userID string) (int64, error) {
	return c.graph.CountFollowers(ctx, userID)
}
