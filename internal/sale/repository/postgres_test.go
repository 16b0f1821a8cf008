package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/platform/storeerr"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/sale/domain"
)

var saleCols = []string{"id", "company_id", "user_id", "product_name", "product_category", "value",
	"commission_rate", "commission_value", "customer_name", "customer_email", "customer_phone", "notes",
	"status", "sale_date", "created_at", "name"}

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

func TestPostgres_List_OwnerScope(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("FROM sales s JOIN users u ON u.id = s.user_id WHERE s.company_id = $1 ORDER BY s.sale_date DESC")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(saleCols).
			AddRow(2, 1, 3, "Plano B", "", "200.00", "0", "0", "", "", "", "", "confirmed", now, now, "Pedro").
			AddRow(1, 1, 2, "Plano A", "", "100.00", "5", "5.00", "", "", "", "", "confirmed", now.Add(-time.Hour), now, "Maria"))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE s.company_id = $1 AND s.user_id = $2 ORDER BY")).
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows(saleCols).
			AddRow(1, 1, 2, "Plano A", "", "100.00", "5", "5.00", "", "", "", "", "confirmed", now, now, "Maria"))

	all, err := repo.List(context.Background(), 1, AnyOwner)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Pedro", all[0].SellerName)
	assert.True(t, all[0].Value.Equal(decimal.NewFromInt(200)))

	own, err := repo.List(context.Background(), 1, 2)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, int64(2), own[0].UserID)
}

func TestPostgres_Create(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now()
	n := domain.NewSale{UserID: 2, ProductName: "Plano A", Value: decimal.NewFromInt(1000), CommissionRate: decimal.NewFromInt(10), Status: domain.StatusConfirmed}

	mock.ExpectQuery(regexp.QuoteMeta("FROM users owner WHERE owner.id = $2 AND owner.company_id = $1")).
		WithArgs(int64(1), int64(2), "Plano A", nil, n.Value, n.CommissionRate, n.Commission(), nil, nil, nil, nil, "confirmed", nil).
		WillReturnRows(sqlmock.NewRows(saleCols).
			AddRow(10, 1, 2, "Plano A", "", "1000", "10", "100", "", "", "", "", "confirmed", now, now, "Maria"))

	s, err := repo.Create(context.Background(), 1, n)
	require.NoError(t, err)
	assert.Equal(t, int64(10), s.ID)
	assert.Equal(t, "Maria", s.SellerName)
	assert.Equal(t, "100", s.CommissionValue.String())
}

func TestPostgres_Create_OwnerOutsideTenant(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery("INSERT INTO sales").WillReturnError(sql.ErrNoRows)

	_, err := repo.Create(context.Background(), 1, domain.NewSale{UserID: 77, ProductName: "x", Value: decimal.NewFromInt(1), Status: domain.StatusConfirmed})
	assert.ErrorIs(t, err, storeerr.ErrConstraint)
}

func TestPostgres_Delete(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sales WHERE id = $1 AND company_id = $2 AND user_id = $3")).
		WithArgs(int64(5), int64(1), int64(2)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sales WHERE id = $1 AND company_id = $2")).
		WithArgs(int64(5), int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))

	assert.ErrorIs(t, repo.Delete(context.Background(), 1, 2, 5), storeerr.ErrNotFound)
	assert.NoError(t, repo.Delete(context.Background(), 1, AnyOwner, 5))
}
