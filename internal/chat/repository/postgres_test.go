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

	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/chat/domain"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/platform/storeerr"
)

var messageCols = []string{"id", "company_id", "sender_id", "receiver_id", "message", "message_type",
	"is_read", "created_at", "sender_name", "receiver_name"}

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
	mock.ExpectQuery(regexp.QuoteMeta("WHERE m.company_id = $1 ORDER BY m.created_at ASC")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(messageCols).
			AddRow(1, 1, 1, 2, "oi", "text", true, now, "João", "Maria").
			AddRow(2, 1, 2, 1, "olá", "text", false, now.Add(time.Second), "Maria", "João"))

	msgs, err := repo.List(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "Maria", msgs[0].ReceiverName)
	assert.Equal(t, domain.TypeText, msgs[1].Type)
}

func TestPostgres_Create(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.id = $2 AND s.company_id = $1 AND rc.id = $3 AND rc.company_id = $1")).
		WithArgs(int64(1), int64(1), int64(2), "oi", "text").
		WillReturnRows(sqlmock.NewRows(messageCols).AddRow(3, 1, 1, 2, "oi", "text", false, now, "João", "Maria"))
	mock.ExpectQuery("INSERT INTO chat_messages").WillReturnError(sql.ErrNoRows)

	m, err := repo.Create(context.Background(), 1, domain.NewMessage{SenderID: 1, ReceiverID: 2, Text: "oi", Type: domain.TypeText})
	require.NoError(t, err)
	assert.Equal(t, "Maria", m.ReceiverName)

	_, err = repo.Create(context.Background(), 1, domain.NewMessage{SenderID: 1, ReceiverID: 99, Text: "oi", Type: domain.TypeText})
	assert.ErrorIs(t, err, storeerr.ErrConstraint)
}

func TestPostgres_MarkRead(t *testing.T) {
	repo, mock := newMock(t)
	q := regexp.QuoteMeta("UPDATE chat_messages SET is_read = TRUE WHERE id = $1 AND company_id = $2 AND receiver_id = $3")
	mock.ExpectExec(q).WithArgs(int64(7), int64(1), int64(2)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs(int64(7), int64(1), int64(2)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs(int64(7), int64(1), int64(3)).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.MarkRead(context.Background(), 1, 2, 7))
	require.NoError(t, repo.MarkRead(context.Background(), 1, 2, 7))
	assert.ErrorIs(t, repo.MarkRead(context.Background(), 1, 3, 7), storeerr.ErrNotFound)
}

func TestPostgres_MarkReadFrom(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE company_id = $1 AND receiver_id = $2 AND sender_id = $3 AND NOT is_read RETURNING id")).
		WithArgs(int64(1), int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2).AddRow(5))

	ids, err := repo.MarkReadFrom(context.Background(), 1, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 5}, ids)
}
