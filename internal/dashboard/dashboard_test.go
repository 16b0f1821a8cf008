package dashboard

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	identitydomain "github.com/joaop0375/saas-de-vendas-multi-tenant/internal/identity/domain"
	saledomain "github.com/joaop0375/saas-de-vendas-multi-tenant/internal/sale/domain"
)

var (
	gestor = &identitydomain.Identity{ID: 1, TenantID: 1, Name: "João", Role: identitydomain.RoleManager}
	roster = []identitydomain.Member{
		*gestor,
		{ID: 2, TenantID: 1, Name: "Maria", Role: identitydomain.RoleSalesperson},
		{ID: 3, TenantID: 1, Name: "Pedro", Role: identitydomain.RoleSalesperson},
	}
	now = time.Date(2026, 3, 15, 18, 0, 0, 0, time.UTC)
)

func sale(user, value int64, at time.Time) saledomain.Sale {
	return saledomain.Sale{UserID: user, Value: decimal.NewFromInt(value), SaleDate: at}
}

func TestCompute_Manager(t *testing.T) {
	sales := []saledomain.Sale{
		sale(2, 1000, now.Add(-2*time.Hour)),
		sale(3, 500, now.AddDate(0, 0, -3)),
		sale(2, 300, now.AddDate(0, -1, 0)),
		sale(3, 200, now.AddDate(0, -3, 0)),
	}
	m := Compute(sales, roster, gestor, now)

	assert.Equal(t, 4, m.Count)
	assert.True(t, decimal.NewFromInt(2000).Equal(m.Total))
	assert.True(t, decimal.NewFromInt(500).Equal(m.Average))
	assert.Equal(t, 2, m.ThisMonth)
	assert.Equal(t, 1, m.LastMonth)
	assert.True(t, decimal.NewFromInt(100).Equal(m.GrowthPercent), "got %s", m.GrowthPercent)
	assert.Equal(t, 2, m.Salespeople)

	require.Len(t, m.LastSevenDays, 7)
	assert.Equal(t, time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC), m.LastSevenDays[0].Day)
	assert.True(t, decimal.NewFromInt(1000).Equal(m.LastSevenDays[6].Total))
	assert.True(t, decimal.NewFromInt(500).Equal(m.LastSevenDays[3].Total))

	require.Len(t, m.TopSellers, 2)
	assert.Equal(t, "Maria", m.TopSellers[0].Name)
	assert.Equal(t, 2, m.TopSellers[0].Count)
	assert.True(t, decimal.NewFromInt(1300).Equal(m.TopSellers[0].Total))
}

func TestCompute_SalespersonSeesOwnOnly(t *testing.T) {
	maria := &roster[1]
	sales := []saledomain.Sale{sale(2, 1000, now), sale(3, 500, now)}

	m := Compute(sales, roster, maria, now)
	assert.Equal(t, 1, m.Count)
	assert.True(t, decimal.NewFromInt(1000).Equal(m.Total))
	assert.Nil(t, m.TopSellers)
}

func TestCompute_Empty(t *testing.T) {
	m := Compute(nil, nil, gestor, now)
	assert.Zero(t, m.Count)
	assert.True(t, m.Average.IsZero())
	assert.True(t, m.GrowthPercent.IsZero())
	assert.Len(t, m.LastSevenDays, 7)
	assert.Empty(t, m.TopSellers)
}
