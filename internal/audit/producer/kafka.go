// Package producer publishes audit logs to Kafka.
package producer

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/audit/domain"
)

// writeTimeout bounds a single publish so a slow broker does not hold up callers.
const writeTimeout = 5 * time.Second

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaProducer writes audit logs as JSON to one topic, keyed by entry id.
type KafkaProducer struct {
	writer messageWriter
	topic  string
}

// NewKafkaProducer creates a producer for topic. It returns nil when brokers or topic are empty,
// and a nil producer is a valid no-op. Call Close when shutting down.
func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	return &KafkaProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 50 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
		topic: topic,
	}
}

// Emit serializes the entry and writes it to the topic.
func (p *KafkaProducer) Emit(ctx context.Context, a *domain.AuditLog) error {
	if p == nil || p.writer == nil || a == nil {
		return nil
	}
	payload, err := json.Marshal(a)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return p.writer.WriteMessages(writeCtx, kafka.Message{
		Key:   []byte(a.ID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "company_id", Value: []byte(strconv.FormatInt(a.TenantID, 10))},
			{Key: "action", Value: []byte(a.Action)},
		},
	})
}

// Close closes the Kafka writer. Safe to call on a nil producer.
func (p *KafkaProducer) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
