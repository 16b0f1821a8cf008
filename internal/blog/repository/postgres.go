package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/blog/domain"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/platform/storeerr"
)

const postColumns = `p.id, p.company_id, p.author_id, p.title, p.content, COALESCE(p.excerpt, ''),
	p.is_published, p.is_pinned, p.created_at, p.updated_at, u.name`

// PostgresRepository stores posts in the blog_posts table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a post repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(row scanner) (*domain.Post, error) {
	var p domain.Post
	if err := row.Scan(&p.ID, &p.TenantID, &p.AuthorID, &p.Title, &p.Content, &p.Excerpt,
		&p.IsPublished, &p.IsPinned, &p.CreatedAt, &p.UpdatedAt, &p.AuthorName); err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns the tenant's posts, newest first.
func (r *PostgresRepository) List(ctx context.Context, tenantID int64) ([]domain.Post, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+postColumns+`
		FROM blog_posts p JOIN users u ON u.id = p.author_id
		WHERE p.company_id = $1
		ORDER BY p.created_at DESC, p.id DESC`, tenantID)
	if err != nil {
		return nil, storeerr.FromSQL("list posts", err)
	}
	defer rows.Close()

	out := []domain.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, storeerr.FromSQL("list posts", err)
		}
		out = append(out, *p)
	}
	return out, storeerr.FromSQL("list posts", rows.Err())
}

// Create inserts the post. The author must belong to the tenant; otherwise storeerr.ErrConstraint.
func (r *PostgresRepository) Create(ctx context.Context, tenantID int64, n domain.NewPost) (*domain.Post, error) {
	p, err := scanPost(r.db.QueryRowContext(ctx, `
		WITH p AS (
			INSERT INTO blog_posts (company_id, author_id, title, content, excerpt, is_pinned)
			SELECT $1, author.id, $3, $4, $5, $6
			FROM users author WHERE author.id = $2 AND author.company_id = $1
			RETURNING *
		)
		SELECT `+postColumns+` FROM p JOIN users u ON u.id = p.author_id`,
		tenantID, n.AuthorID, n.Title, n.Content, n.Excerpt, n.IsPinned))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("create post: %w: author %d is not a member of tenant %d", storeerr.ErrConstraint, n.AuthorID, tenantID)
	}
	if err != nil {
		return nil, storeerr.FromSQL("create post", err)
	}
	return p, nil
}

// Delete removes the post within the tenant.
func (r *PostgresRepository) Delete(ctx context.Context, tenantID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM blog_posts WHERE id = $1 AND company_id = $2`, id, tenantID)
	if err != nil {
		return storeerr.FromSQL("delete post", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeerr.FromSQL("delete post", err)
	}
	if n == 0 {
		return fmt.Errorf("delete post: %w", storeerr.ErrNotFound)
	}
	return nil
}
