// Package dashboard computes the summary figures shown after login from the loaded mirrors.
package dashboard

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	identitydomain "github.com/joaop0375/saas-de-vendas-multi-tenant/internal/identity/domain"
	saledomain "github.com/joaop0375/saas-de-vendas-multi-tenant/internal/sale/domain"
)

// TopSellerLimit caps Metrics.TopSellers.
const TopSellerLimit = 3

var hundred = decimal.NewFromInt(100)

// DayTotal is the value sold on one calendar day.
type DayTotal struct {
	Day   time.Time
	Total decimal.Decimal
}

// SellerTotal is one salesperson's accumulated sales.
type SellerTotal struct {
	UserID int64
	Name   string
	Count  int
	Total  decimal.Decimal
}

// Metrics summarizes the sales visible to a member.
type Metrics struct {
	Total     decimal.Decimal
	Count     int
	Average   decimal.Decimal
	ThisMonth int
	LastMonth int
	// GrowthPercent compares ThisMonth to LastMonth; zero when LastMonth is zero.
	GrowthPercent decimal.Decimal
	LastSevenDays []DayTotal
	Salespeople   int
	// TopSellers is filled for managers only, highest total first.
	TopSellers []SellerTotal
}

// Compute derives Metrics from sales and the roster. A salesperson's figures only count their own
// sales even if sales holds more. Calendar boundaries are taken in now's location.
func Compute(sales []saledomain.Sale, members []identitydomain.Member, actor *identitydomain.Identity, now time.Time) Metrics {
	manager := actor.IsManager()
	visible := make([]saledomain.Sale, 0, len(sales))
	for _, s := range sales {
		if manager || (actor != nil && s.UserID == actor.ID) {
			visible = append(visible, s)
		}
	}

	m := Metrics{Total: decimal.Zero, Average: decimal.Zero, GrowthPercent: decimal.Zero, Count: len(visible)}
	loc := now.Location()
	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
	lastMonth := thisMonth.AddDate(0, -1, 0)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	firstDay := today.AddDate(0, 0, -6)

	m.LastSevenDays = make([]DayTotal, 7)
	for i := range m.LastSevenDays {
		m.LastSevenDays[i] = DayTotal{Day: firstDay.AddDate(0, 0, i), Total: decimal.Zero}
	}

	for _, s := range visible {
		m.Total = m.Total.Add(s.Value)
		d := s.SaleDate.In(loc)
		switch {
		case !d.Before(thisMonth) && d.Before(thisMonth.AddDate(0, 1, 0)):
			m.ThisMonth++
		case !d.Before(lastMonth) && d.Before(thisMonth):
			m.LastMonth++
		}
		day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc)
		if !day.Before(firstDay) && !day.After(today) {
			i := int(day.Sub(firstDay).Hours()+12) / 24
			m.LastSevenDays[i].Total = m.LastSevenDays[i].Total.Add(s.Value)
		}
	}
	if m.Count > 0 {
		m.Average = m.Total.Div(decimal.NewFromInt(int64(m.Count))).Round(2)
	}
	if m.LastMonth > 0 {
		m.GrowthPercent = decimal.NewFromInt(int64(m.ThisMonth - m.LastMonth)).
			Mul(hundred).Div(decimal.NewFromInt(int64(m.LastMonth))).Round(1)
	}

	for _, mem := range members {
		if mem.Role == identitydomain.RoleSalesperson {
			m.Salespeople++
		}
	}
	if manager {
		m.TopSellers = topSellers(visible, members)
	}
	return m
}

func topSellers(sales []saledomain.Sale, members []identitydomain.Member) []SellerTotal {
	byID := map[int64]*SellerTotal{}
	for _, mem := range members {
		if mem.Role == identitydomain.RoleSalesperson {
			byID[mem.ID] = &SellerTotal{UserID: mem.ID, Name: mem.Name, Total: decimal.Zero}
		}
	}
	for _, s := range sales {
		st, ok := byID[s.UserID]
		if !ok {
			continue
		}
		st.Count++
		st.Total = st.Total.Add(s.Value)
	}
	out := make([]SellerTotal, 0, len(byID))
	for _, st := range byID {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Total.Cmp(out[j].Total); c != 0 {
			return c > 0
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > TopSellerLimit {
		out = out[:TopSellerLimit]
	}
	return out
}
