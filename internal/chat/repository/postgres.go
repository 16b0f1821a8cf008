package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/chat/domain"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/platform/storeerr"
)

const messageColumns = `m.id, m.company_id, m.sender_id, m.receiver_id, m.message, m.message_type,
	m.is_read, m.created_at, su.name, ru.name`

const joinNames = `JOIN users su ON su.id = m.sender_id JOIN users ru ON ru.id = m.receiver_id`

// PostgresRepository stores messages in the chat_messages table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a message repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(row scanner) (*domain.Message, error) {
	var (
		m   domain.Message
		typ string
	)
	if err := row.Scan(&m.ID, &m.TenantID, &m.SenderID, &m.ReceiverID, &m.Text, &typ,
		&m.IsRead, &m.CreatedAt, &m.SenderName, &m.ReceiverName); err != nil {
		return nil, err
	}
	m.Type = domain.Type(typ)
	return &m, nil
}

// List returns the tenant's messages, oldest first.
func (r *PostgresRepository) List(ctx context.Context, tenantID int64) ([]domain.Message, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+messageColumns+`
		FROM chat_messages m `+joinNames+`
		WHERE m.company_id = $1
		ORDER BY m.created_at ASC, m.id ASC`, tenantID)
	if err != nil {
		return nil, storeerr.FromSQL("list messages", err)
	}
	defer rows.Close()

	out := []domain.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, storeerr.FromSQL("list messages", err)
		}
		out = append(out, *m)
	}
	return out, storeerr.FromSQL("list messages", rows.Err())
}

// Create inserts the message. Sender and receiver must both belong to the tenant.
func (r *PostgresRepository) Create(ctx context.Context, tenantID int64, n domain.NewMessage) (*domain.Message, error) {
	m, err := scanMessage(r.db.QueryRowContext(ctx, `
		WITH m AS (
			INSERT INTO chat_messages (company_id, sender_id, receiver_id, message, message_type)
			SELECT $1, s.id, rc.id, $4, $5
			FROM users s, users rc
			WHERE s.id = $2 AND s.company_id = $1 AND rc.id = $3 AND rc.company_id = $1
			RETURNING *
		)
		SELECT `+messageColumns+` FROM m `+joinNames,
		tenantID, n.SenderID, n.ReceiverID, n.Text, string(n.Type)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("create message: %w: sender and receiver must be members of tenant %d", storeerr.ErrConstraint, tenantID)
	}
	if err != nil {
		return nil, storeerr.FromSQL("create message", err)
	}
	return m, nil
}

// MarkRead flags the message as read for its receiver.
func (r *PostgresRepository) MarkRead(ctx context.Context, tenantID, receiverID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE chat_messages SET is_read = TRUE WHERE id = $1 AND company_id = $2 AND receiver_id = $3`,
		id, tenantID, receiverID)
	if err != nil {
		return storeerr.FromSQL("mark message read", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeerr.FromSQL("mark message read", err)
	}
	if n == 0 {
		return fmt.Errorf("mark message read: %w", storeerr.ErrNotFound)
	}
	return nil
}

// MarkReadFrom flags every unread message from sender to receiver as read.
func (r *PostgresRepository) MarkReadFrom(ctx context.Context, tenantID, receiverID, senderID int64) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx,
		`UPDATE chat_messages SET is_read = TRUE
		WHERE company_id = $1 AND receiver_id = $2 AND sender_id = $3 AND NOT is_read
		RETURNING id`, tenantID, receiverID, senderID)
	if err != nil {
		return nil, storeerr.FromSQL("mark conversation read", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, storeerr.FromSQL("mark conversation read", err)
		}
		ids = append(ids, id)
	}
	return ids, storeerr.FromSQL("mark conversation read", rows.Err())
}
