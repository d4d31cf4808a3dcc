package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jupiterclapton/fanline/internal/interaction/core/ports"
)

type PostgresRepo struct {
	db *pgxpool.Pool
}

func NewPostgresRepo(db *pgxpool.Pool) ports.LikeRepository {
	return &PostgresRepo{db: db}
}

// Insert : l'idempotence est portée par la contrainte unique (user_id, post_id).
// ON CONFLICT DO NOTHING + RowsAffected dit si le like vient d'être créé,
// sans passer par un catch d'erreur de doublon.
func (r *PostgresRepo) Insert(ctx context.Context, userID, postID string) (bool, error) {
	query := `
		INSERT INTO likes (user_id, post_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, post_id) DO NOTHING
	`
	tag, err := r.db.Exec(ctx, query, userID, postID, time.Now().UTC())
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresRepo) Delete(ctx context.Context, userID, postID string) error {
	_, err := r.db.Exec(ctx, "DELETE FROM likes WHERE user_id = $1 AND post_id = $2", userID, postID)
	return err
}

func (r *PostgresRepo) CountByPost(ctx context.Context, postID string) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, "SELECT count(*) FROM likes WHERE post_id = $1", postID).Scan(&count)
	return count, err
}
