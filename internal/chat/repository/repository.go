package repository

import (
	"context"

	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/chat/domain"
)

// Repository defines persistence for direct messages. Every method is scoped to a tenant.
type Repository interface {
	// List returns every message of the tenant in chronological order with sender and receiver names.
	List(ctx context.Context, tenantID int64) ([]domain.Message, error)
	Create(ctx context.Context, tenantID int64, n domain.NewMessage) (*domain.Message, error)
	// MarkRead sets is_read on message id if receiverID is its receiver.
	// Returns storeerr.ErrNotFound when no such message exists for that receiver.
	MarkRead(ctx context.Context, tenantID, receiverID, id int64) error
	// MarkReadFrom sets is_read on every unread message from senderID to receiverID and returns their ids.
	MarkReadFrom(ctx context.Context, tenantID, receiverID, senderID int64) ([]int64, error)
}
