package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const EventTypePaymentConfirmed = "payment.confirmed"

type paymentConfirmedEvent struct {
	EventID       string    `json:"event_id"`
	EventType     string    `json:"event_type"`
	OccurredAt    time.Time `json:"occurred_at"`
	TransactionID string    `json:"transaction_id"`
	Reference     string    `json:"reference"`
	UserID        string    `json:"user_id,omitempty"`
	Amount        string    `json:"amount"`
	Currency      string    `json:"currency"`
	PaymentMethod string    `json:"payment_method"`
	CustomerName  string    `json:"customer_name,omitempty"`
	CustomerEmail string    `json:"customer_email,omitempty"`
	PaidAt        time.Time `json:"paid_at"`
}

// KafkaNotifier publishes payment.confirmed events keyed by reference, so
// all events for a resource land on the same partition.
type KafkaNotifier struct {
	writer *kafka.Writer
}

func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.Hash{},
		},
	}
}

func (n *KafkaNotifier) NotifyPaymentConfirmed(ctx context.Context, confirmation PaymentConfirmation) error {
	msg, err := buildConfirmationMessage(confirmation, time.Now().UTC())
	if err != nil {
		return err
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", EventTypePaymentConfirmed, err)
	}
	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}

func buildConfirmationMessage(confirmation PaymentConfirmation, now time.Time) (kafka.Message, error) {
	payload, err := json.Marshal(paymentConfirmedEvent{
		EventID:       uuid.NewString(),
		EventType:     EventTypePaymentConfirmed,
		OccurredAt:    now,
		TransactionID: confirmation.TransactionID,
		Reference:     confirmation.Reference,
		UserID:        confirmation.UserID,
		Amount:        confirmation.Amount.String(),
		Currency:      confirmation.Currency,
		PaymentMethod: confirmation.PaymentMethod,
		CustomerName:  confirmation.CustomerName,
		CustomerEmail: confirmation.CustomerEmail,
		PaidAt:        confirmation.PaidAt,
	})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal %s event: %w", EventTypePaymentConfirmed, err)
	}

	return kafka.Message{
		Key:   []byte(confirmation.Reference),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventTypePaymentConfirmed)},
		},
	}, nil
}
