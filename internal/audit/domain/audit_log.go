package domain

import (
	"encoding/json"
	"time"
)

// Actions recorded by the gateway.
const (
	ActionCreate   = "create"
	ActionUpdate   = "update"
	ActionDelete   = "delete"
	ActionMarkRead = "mark_read"
)

// AuditLog is one recorded mutation of a tenant's data.
type AuditLog struct {
	ID        string          `json:"id"`
	TenantID  int64           `json:"company_id"`
	UserID    int64           `json:"user_id,omitempty"`
	Action    string          `json:"action"`
	Table     string          `json:"table_name"`
	RecordID  int64           `json:"record_id,omitempty"`
	NewValues json.RawMessage `json:"new_values,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
