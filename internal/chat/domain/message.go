package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalid wraps every message validation failure.
var ErrInvalid = errors.New("invalid message")

// Type is the kind of payload a message carries.
type Type string

const (
	TypeText  Type = "text"
	TypeImage Type = "image"
	TypeFile  Type = "file"
)

// Message is a direct message between two members of a tenant.
type Message struct {
	ID           int64     `json:"id"`
	TenantID     int64     `json:"company_id"`
	SenderID     int64     `json:"sender_id"`
	ReceiverID   int64     `json:"receiver_id"`
	Text         string    `json:"message"`
	Type         Type      `json:"message_type"`
	IsRead       bool      `json:"is_read"`
	CreatedAt    time.Time `json:"created_at"`
	SenderName   string    `json:"sender_name"`
	ReceiverName string    `json:"receiver_name"`
}

// Involves reports whether member is the sender or the receiver.
func (m *Message) Involves(member int64) bool {
	return m.SenderID == member || m.ReceiverID == member
}

// NewMessage is the input for sending a message.
type NewMessage struct {
	// SenderID is set by the gateway to the acting member.
	SenderID   int64
	ReceiverID int64
	Text       string
	Type       Type
}

// Validate normalizes and checks the message. Type defaults to text.
func (n *NewMessage) Validate() error {
	n.Text = strings.TrimSpace(n.Text)
	if n.Text == "" {
		return fmt.Errorf("%w: message is empty", ErrInvalid)
	}
	if n.SenderID == 0 || n.ReceiverID == 0 {
		return fmt.Errorf("%w: sender and receiver are required", ErrInvalid)
	}
	if n.SenderID == n.ReceiverID {
		return fmt.Errorf("%w: cannot message yourself", ErrInvalid)
	}
	switch n.Type {
	case "":
		n.Type = TypeText
	case TypeText, TypeImage, TypeFile:
	default:
		return fmt.Errorf("%w: unknown message type %q", ErrInvalid, n.Type)
	}
	return nil
}
