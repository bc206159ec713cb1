package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hyfoxus/bank-rest/internal/domain"
	"github.com/segmentio/kafka-go"
)

// Event types
const (
	TypeTransferCommitted = "transfer.committed"
	TypeCardBlocked       = "card.blocked"
)

// Event is the JSON payload written to the topic
type Event struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`

	TransferID string `json:"transfer_id,omitempty"`
	FromCardID string `json:"from_card_id,omitempty"`
	ToCardID   string `json:"to_card_id,omitempty"`
	Amount     string `json:"amount,omitempty"`

	CardID    string `json:"card_id,omitempty"`
	MaskedPAN string `json:"masked_pan,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Operation string `json:"operation,omitempty"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher implements domain.EventPublisher on a Kafka topic.
// Messages are keyed by card ID so events of one card stay ordered.
type KafkaPublisher struct {
	writer messageWriter
	now    func() time.Time
}

// NewKafkaPublisher creates a publisher writing to topic on brokers
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}
	return &KafkaPublisher{writer: w, now: time.Now}
}

// PublishTransfer announces a committed transfer
func (p *KafkaPublisher) PublishTransfer(ctx context.Context, transfer *domain.Transfer) error {
	return p.publish(ctx, transfer.FromCardID.String(), Event{
		Type:       TypeTransferCommitted,
		OccurredAt: transfer.CreatedAt,
		TransferID: transfer.ID.String(),
		FromCardID: transfer.FromCardID.String(),
		ToCardID:   transfer.ToCardID.String(),
		Amount:     transfer.Amount.StringFixed(domain.BalanceScale),
	})
}

// PublishCardBlocked announces that a request blocked a card
func (p *KafkaPublisher) PublishCardBlocked(ctx context.Context, card *domain.Card, request *domain.Request) error {
	return p.publish(ctx, card.ID.String(), Event{
		Type:       TypeCardBlocked,
		OccurredAt: p.now().UTC(),
		CardID:     card.ID.String(),
		MaskedPAN:  card.MaskedNumber(),
		RequestID:  request.ID.String(),
		Operation:  request.Operation,
	})
}

func (p *KafkaPublisher) publish(ctx context.Context, key string, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.Type, err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("failed to write %s event: %w", event.Type, err)
	}
	return nil
}

// Close flushes pending messages and closes the writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops every event
type NopPublisher struct{}

func (NopPublisher) PublishTransfer(context.Context, *domain.Transfer) error { return nil }

func (NopPublisher) PublishCardBlocked(context.Context, *domain.Card, *domain.Request) error {
	return nil
}
