package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/scripfolio/scripfolio/internal/models"
)

// Producer publishes portfolio events to Kafka
type Producer struct {
	writer *kafka.Writer
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	return &Producer{writer: writer}
}

// PublishTransactionRecorded emits an event after a transaction is
// committed through the HTTP entry path
func (p *Producer) PublishTransactionRecorded(ctx context.Context, tx *models.Transaction) error {
	event := models.TransactionEvent{
		EventType: "TRANSACTION_RECORDED",
		Source:    "scripfolio-api",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data: models.TransactionData{
			AccountID:      tx.AccountID,
			Scrip:          tx.Scrip,
			Category:       string(tx.Category),
			Side:           string(tx.Side),
			Date:           tx.Date.Format("2006-01-02"),
			Quantity:       tx.Quantity.String(),
			Price:          tx.Price.String(),
			Exchange:       string(tx.Exchange),
			InstrumentKind: string(tx.InstrumentKind),
			OldScrip:       tx.OldScrip,
			StoredAmount:   tx.StoredAmount.String(),
		},
	}
	if tx.ExpiryDate != nil {
		event.Data.ExpiryDate = tx.ExpiryDate.Format("2006-01-02")
	}
	if !tx.StrikePrice.IsZero() {
		event.Data.StrikePrice = tx.StrikePrice.String()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction event: %w", err)
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(fmt.Sprintf("%d", tx.AccountID)),
		Value: payload,
	})
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
