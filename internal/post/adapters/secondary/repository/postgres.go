package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jupiterclapton/fanline/internal/post/core/domain"
	"github.com/jupiterclapton/fanline/internal/post/core/ports"
)

type PostgresRepo struct {
	db *pgxpool.Pool
}

func NewPostgresRepo(db *pgxpool.Pool) ports.PostRepository {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Save(ctx context.Context, post *domain.Post) error {
	query := `
		INSERT INTO posts (id, author_id, content, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.db.Exec(ctx, query, post.ID, post.AuthorID, post.Content, post.CreatedAt)
	return err
}

func (r *PostgresRepo) FindByID(ctx context.Context, postID string) (*domain.Post, error) {
	query := `SELECT id, author_id, content, created_at FROM posts WHERE id = $1`

	var p domain.Post
	err := r.db.QueryRow(ctx, query, postID).Scan(&p.ID, &p.AuthorID, &p.Content, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// GetPosts : BATCH FETCH (Hydratation Feed)
// WHERE id = ANY($1) pour récupérer plusieurs posts en une seule requête SQL
func (r *PostgresRepo) GetPosts(ctx context.Context, postIDs []string) ([]*domain.Post, error) {
	query := `
		SELECT id, author_id, content, created_at
		FROM posts
		WHERE id = ANY($1)
	`
	rows, err := r.db.Query(ctx, query, postIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRows(rows)
}

// ListByAuthor : pagination keyset, jamais d'OFFSET géant.
// cursorTime est la date du dernier post vu (zéro = première page).
func (r *PostgresRepo) ListByAuthor(ctx context.Context, authorID string, limit int, cursorTime time.Time) ([]*domain.Post, error) {
	if cursorTime.IsZero() {
		query := `
			SELECT id, author_id, content, created_at
			FROM posts
			WHERE author_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		`
		rows, err := r.db.Query(ctx, query, authorID, limit)
		if err != nil {
			return nil, err
		}
		defer rows.Close()
		return collectRows(rows)
	}

	query := `
		SELECT id, author_id, content, created_at
		FROM posts
		WHERE author_id = $1 AND created_at < $2
		ORDER BY created_at DESC
		LIMIT $3
	`
	rows, err := r.db.Query(ctx, query, authorID, cursorTime, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRows(rows)
}

func (r *PostgresRepo) Delete(ctx context.Context, postID string) error {
	_, err := r.db.Exec(ctx, "DELETE FROM posts WHERE id = $1", postID)
	return err
}

func collectRows(rows pgx.Rows) ([]*domain.Post, error) {
	var posts []*domain.Post
	for rows.Next() {
		var p domain.Post
		if err := rows.Scan(&p.ID, &p.AuthorID, &p.Content, &p.CreatedAt); err != nil {
			return nil, err
		}
		posts = append(posts, &p)
	}
	return posts, rows.Err()
}
