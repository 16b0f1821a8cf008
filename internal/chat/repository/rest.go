package repository

import (
	"context"
	"fmt"

	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/chat/domain"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/platform/postgrest"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/platform/storeerr"
)

const restSelect = "*,sender:users!chat_messages_sender_id_fkey(name),receiver:users!chat_messages_receiver_id_fkey(name)"

// RESTRepository reads and writes messages through a hosted PostgREST endpoint.
type RESTRepository struct {
	client *postgrest.Client
}

// NewRESTRepository returns a message repository backed by client.
func NewRESTRepository(client *postgrest.Client) *RESTRepository {
	return &RESTRepository{client: client}
}

type nameRef struct {
	Name string `json:"name"`
}

type restMessage struct {
	domain.Message
	Sender   *nameRef `json:"sender"`
	Receiver *nameRef `json:"receiver"`
}

func (r restMessage) toDomain() domain.Message {
	m := r.Message
	if r.Sender != nil {
		m.SenderName = r.Sender.Name
	}
	if r.Receiver != nil {
		m.ReceiverName = r.Receiver.Name
	}
	return m
}

type idRow struct {
	ID int64 `json:"id"`
}

// List returns the tenant's messages, oldest first.
func (r *RESTRepository) List(ctx context.Context, tenantID int64) ([]domain.Message, error) {
	var rows []restMessage
	err := r.client.From("chat_messages").Select(restSelect).Eq("company_id", tenantID).Order("created_at", true).Execute(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	out := make([]domain.Message, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// Create inserts the message and returns it with both names embedded.
func (r *RESTRepository) Create(ctx context.Context, tenantID int64, n domain.NewMessage) (*domain.Message, error) {
	body := map[string]any{
		"company_id":   tenantID,
		"sender_id":    n.SenderID,
		"receiver_id":  n.ReceiverID,
		"message":      n.Text,
		"message_type": string(n.Type),
	}
	var rows []restMessage
	if err := r.client.From("chat_messages").Select(restSelect).Insert(ctx, body, &rows); err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("create message: %w", storeerr.ErrNotFound)
	}
	m := rows[0].toDomain()
	return &m, nil
}

// MarkRead flags the message as read for its receiver.
func (r *RESTRepository) MarkRead(ctx context.Context, tenantID, receiverID, id int64) error {
	var rows []idRow
	err := r.client.From("chat_messages").Select("id").
		Eq("id", id).Eq("company_id", tenantID).Eq("receiver_id", receiverID).
		Update(ctx, map[string]any{"is_read": true}, &rows)
	if err != nil {
		return fmt.Errorf("mark message read: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("mark message read: %w", storeerr.ErrNotFound)
	}
	return nil
}

// MarkReadFrom flags every unread message from sender to receiver as read.
func (r *RESTRepository) MarkReadFrom(ctx context.Context, tenantID, receiverID, senderID int64) ([]int64, error) {
	var rows []idRow
	err := r.client.From("chat_messages").Select("id").
		Eq("company_id", tenantID).Eq("receiver_id", receiverID).Eq("sender_id", senderID).Eq("is_read", false).
		Update(ctx, map[string]any{"is_read": true}, &rows)
	if err != nil {
		return nil, fmt.Errorf("mark conversation read: %w", err)
	}
	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	return ids, nil
}
