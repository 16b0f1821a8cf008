package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalid wraps every sale validation failure.
var ErrInvalid = errors.New("invalid sale")

// Status is the lifecycle state of a sale.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

var hundred = decimal.NewFromInt(100)

// Sale is a recorded transaction owned by a salesperson. SellerName is the owner's display name.
type Sale struct {
	ID              int64           `json:"id"`
	TenantID        int64           `json:"company_id"`
	UserID          int64           `json:"user_id"`
	ProductName     string          `json:"product_name"`
	ProductCategory string          `json:"product_category,omitempty"`
	Value           decimal.Decimal `json:"value"`
	CommissionRate  decimal.Decimal `json:"commission_rate"`
	CommissionValue decimal.Decimal `json:"commission_value"`
	CustomerName    string          `json:"customer_name,omitempty"`
	CustomerEmail   string          `json:"customer_email,omitempty"`
	CustomerPhone   string          `json:"customer_phone,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	Status          Status          `json:"status"`
	SaleDate        time.Time       `json:"sale_date"`
	CreatedAt       time.Time       `json:"created_at"`
	SellerName      string          `json:"seller_name"`
}

// NewSale is the input for recording a sale.
type NewSale struct {
	// UserID is the owner; the gateway sets it to the acting member.
	UserID          int64
	ProductName     string
	ProductCategory string
	Value           decimal.Decimal
	// CommissionRate is a percentage (0-100).
	CommissionRate decimal.Decimal
	CustomerName   string
	CustomerEmail  string
	CustomerPhone  string
	Notes          string
	Status         Status
	// SaleDate defaults to the time of insert.
	SaleDate time.Time
}

// Validate normalizes and checks the sale. Status defaults to confirmed.
func (n *NewSale) Validate() error {
	n.ProductName = strings.TrimSpace(n.ProductName)
	if n.ProductName == "" {
		return fmt.Errorf("%w: product name is required", ErrInvalid)
	}
	if !n.Value.IsPositive() {
		return fmt.Errorf("%w: value must be positive", ErrInvalid)
	}
	if n.CommissionRate.IsNegative() || n.CommissionRate.GreaterThan(hundred) {
		return fmt.Errorf("%w: commission rate must be between 0 and 100", ErrInvalid)
	}
	if n.UserID == 0 {
		return fmt.Errorf("%w: owner is required", ErrInvalid)
	}
	switch n.Status {
	case "":
		n.Status = StatusConfirmed
	case StatusPending, StatusConfirmed, StatusCancelled:
	default:
		return fmt.Errorf("%w: unknown status %q", ErrInvalid, n.Status)
	}
	return nil
}

// Commission returns Value * CommissionRate / 100 rounded to cents.
func (n *NewSale) Commission() decimal.Decimal {
	return n.Value.Mul(n.CommissionRate).Div(hundred).Round(2)
}
