package repository

import (
	"context"
	"fmt"

	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/blog/domain"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/platform/postgrest"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/platform/storeerr"
)

const restSelect = "*,users!blog_posts_author_id_fkey(name)"

// RESTRepository reads and writes posts through a hosted PostgREST endpoint.
type RESTRepository struct {
	client *postgrest.Client
}

// NewRESTRepository returns a post repository backed by client.
func NewRESTRepository(client *postgrest.Client) *RESTRepository {
	return &RESTRepository{client: client}
}

type restPost struct {
	domain.Post
	Users *struct {
		Name string `json:"name"`
	} `json:"users"`
}

func (r restPost) toDomain() domain.Post {
	p := r.Post
	if r.Users != nil {
		p.AuthorName = r.Users.Name
	}
	return p
}

// List returns the tenant's posts, newest first.
func (r *RESTRepository) List(ctx context.Context, tenantID int64) ([]domain.Post, error) {
	var rows []restPost
	err := r.client.From("blog_posts").Select(restSelect).Eq("company_id", tenantID).Order("created_at", false).Execute(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	out := make([]domain.Post, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// Create inserts the post and returns it with the author name embedded.
func (r *RESTRepository) Create(ctx context.Context, tenantID int64, n domain.NewPost) (*domain.Post, error) {
	body := map[string]any{
		"company_id": tenantID,
		"author_id":  n.AuthorID,
		"title":      n.Title,
		"content":    n.Content,
		"excerpt":    n.Excerpt,
		"is_pinned":  n.IsPinned,
	}
	var rows []restPost
	if err := r.client.From("blog_posts").Select(restSelect).Insert(ctx, body, &rows); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("create post: %w", storeerr.ErrNotFound)
	}
	p := rows[0].toDomain()
	return &p, nil
}

// Delete removes the post within the tenant.
func (r *RESTRepository) Delete(ctx context.Context, tenantID, id int64) error {
	var rows []struct {
		ID int64 `json:"id"`
	}
	if err := r.client.From("blog_posts").Select("id").Eq("id", id).Eq("company_id", tenantID).Delete(ctx, &rows); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("delete post: %w", storeerr.ErrNotFound)
	}
	return nil
}
