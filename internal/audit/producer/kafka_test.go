package producer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/audit/domain"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
	dl     bool
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	_, w.dl = ctx.Deadline()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestNewKafkaProducer_DisabledWithoutBrokers(t *testing.T) {
	assert.Nil(t, NewKafkaProducer(nil, "salesteam-audit"))
	assert.Nil(t, NewKafkaProducer([]string{"k1:9092"}, ""))

	var p *KafkaProducer
	assert.NoError(t, p.Emit(context.Background(), &domain.AuditLog{ID: "x"}))
	assert.NoError(t, p.Close())
}

func TestNewKafkaProducer_Configured(t *testing.T) {
	p := NewKafkaProducer([]string{"k1:9092", "k2:9092"}, "salesteam-audit")
	require.NotNil(t, p)
	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, "salesteam-audit", w.Topic)
	assert.NoError(t, p.Close())
}

func TestKafkaProducer_Emit(t *testing.T) {
	w := &recordingWriter{}
	p := &KafkaProducer{writer: w, topic: "salesteam-audit"}
	entry := &domain.AuditLog{
		ID: "6f1c6c1e-0000-4000-8000-000000000001", TenantID: 1, UserID: 2,
		Action: domain.ActionCreate, Table: "sales", RecordID: 10,
		NewValues: json.RawMessage(`{"product_name":"Plano Pro"}`),
		CreatedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	require.NoError(t, p.Emit(context.Background(), entry))
	require.Len(t, w.msgs, 1)
	assert.True(t, w.dl, "emit should bound the write with a deadline")
	msg := w.msgs[0]
	assert.Equal(t, entry.ID, string(msg.Key))

	var got domain.AuditLog
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, "sales", got.Table)
	assert.JSONEq(t, `{"product_name":"Plano Pro"}`, string(got.NewValues))
	assert.Equal(t, []kafka.Header{
		{Key: "company_id", Value: []byte("1")},
		{Key: "action", Value: []byte("create")},
	}, msg.Headers)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaProducer_EmitError(t *testing.T) {
	p := &KafkaProducer{writer: &recordingWriter{err: errors.New("broker down")}}
	assert.Error(t, p.Emit(context.Background(), &domain.AuditLog{ID: "x"}))
}
