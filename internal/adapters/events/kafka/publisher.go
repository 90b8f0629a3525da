package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"

	portssvc "github.com/docledger/docledger/internal/core/ports/services"
	"github.com/docledger/docledger/internal/dto"
)

// TopicTransactionApproved receives one message per approved transaction.
const TopicTransactionApproved = "transaction_approved"

// Publisher emits approval notifications to Kafka. Publishing is best-effort;
// the caller logs and swallows failures because the approval is already
// committed.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher creates a Kafka publisher over the given brokers.
func NewPublisher(brokers []string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    TopicTransactionApproved,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

var _ portssvc.ApprovedTrxPublisher = (*Publisher)(nil)

// PublishApproved sends one approval message keyed by transaction id.
func (p *Publisher) PublishApproved(ctx context.Context, evt dto.TransactionApprovedEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to encode approval event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(evt.TrxID, 10)),
		Value: payload,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish approval event: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
