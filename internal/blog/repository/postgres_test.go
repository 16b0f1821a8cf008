package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/blog/domain"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/platform/storeerr"
)

var postCols = []string{"id", "company_id", "author_id", "title", "content", "excerpt", "is_published",
	"is_pinned", "created_at", "updated_at", "name"}

func newMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewPostgresRepository(db), mock
}

func TestPostgres_List(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("FROM blog_posts p JOIN users u ON u.id = p.author_id WHERE p.company_id = $1 ORDER BY p.created_at DESC")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(postCols).
			AddRow(2, 1, 1, "Novo", "Conteúdo", "Conteúdo", true, false, now, now, "João").
			AddRow(1, 1, 1, "Antigo", "Texto", "", true, true, now.Add(-time.Hour), now, "João"))

	posts, err := repo.List(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "João", posts[0].AuthorName)
	assert.True(t, posts[1].IsPinned)
}

func TestPostgres_Create(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO blog_posts (company_id, author_id, title, content, excerpt, is_pinned)")).
		WithArgs(int64(1), int64(1), "Novo", "Conteúdo", "Conteúdo", false).
		WillReturnRows(sqlmock.NewRows(postCols).AddRow(3, 1, 1, "Novo", "Conteúdo", "Conteúdo", true, false, now, now, "João"))

	p, err := repo.Create(context.Background(), 1, domain.NewPost{AuthorID: 1, Title: "Novo", Content: "Conteúdo", Excerpt: "Conteúdo"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), p.ID)
	assert.Equal(t, "João", p.AuthorName)
}

func TestPostgres_Create_AuthorOutsideTenant(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery("INSERT INTO blog_posts").WillReturnError(sql.ErrNoRows)
	_, err := repo.Create(context.Background(), 1, domain.NewPost{AuthorID: 9, Title: "x", Content: "y"})
	assert.ErrorIs(t, err, storeerr.ErrConstraint)
}

func TestPostgres_Delete(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM blog_posts WHERE id = $1 AND company_id = $2")).
		WithArgs(int64(3), int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM blog_posts").WithArgs(int64(3), int64(1)).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), 1, 3))
	assert.ErrorIs(t, repo.Delete(context.Background(), 1, 3), storeerr.ErrNotFound)
}
