package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/scripfolio/scripfolio/internal/models"
)

// TransactionsRepository defines the interface for transaction database operations
type TransactionsRepository interface {
	CreateTransaction(ctx context.Context, tx *models.Transaction) error
}

// TransactionsConsumer ingests broker-feed transaction events from
// Kafka into the transaction log
type TransactionsConsumer struct {
	reader *kafka.Reader
	repo   TransactionsRepository
}

// NewTransactionsConsumer creates a new Kafka consumer for transaction events
func NewTransactionsConsumer(brokers []string, topic, groupID string, repo TransactionsRepository) *TransactionsConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID + "-transactions",
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.LastOffset,
		CommitInterval: time.Second,
	})

	return &TransactionsConsumer{
		reader: reader,
		repo:   repo,
	}
}

// Start begins consuming messages from Kafka
func (c *TransactionsConsumer) Start(ctx context.Context) error {
	log.Printf("Starting Kafka transactions consumer for topic: %s", c.reader.Config().Topic)

	for {
		select {
		case <-ctx.Done():
			log.Println("Transactions consumer shutting down...")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil // Context cancelled, normal shutdown
				}
				log.Printf("Error reading transactions message: %v", err)
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				log.Printf("Error processing transactions message: %v", err)
				// Continue processing other messages
			}
		}
	}
}

// processMessage handles a single Kafka message
func (c *TransactionsConsumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var event models.TransactionEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal transaction event: %w", err)
	}

	if event.EventType != "TRANSACTION_RECORDED" {
		log.Printf("Ignoring event type: %s", event.EventType)
		return nil
	}

	tx, err := convertTransactionData(event.Data)
	if err != nil {
		return fmt.Errorf("invalid transaction event for %s: %w", event.Data.Scrip, err)
	}

	if err := c.repo.CreateTransaction(ctx, tx); err != nil {
		return fmt.Errorf("failed to record transaction: %w", err)
	}

	log.Printf("Recorded %s %s %s @ %s for account %d",
		tx.Side, tx.Quantity, tx.Scrip, tx.Price, tx.AccountID)
	return nil
}

// convertTransactionData converts wire data into a Transaction,
// rejecting malformed records at the entry boundary so the engine only
// ever replays well-formed ones.
func convertTransactionData(data models.TransactionData) (*models.Transaction, error) {
	side := models.Side(data.Side)
	if !side.Valid() {
		return nil, fmt.Errorf("unknown side %q", data.Side)
	}
	category := models.Category(data.Category)
	if !category.Valid() {
		return nil, fmt.Errorf("unknown category %q", data.Category)
	}
	exchange := models.Exchange(data.Exchange)
	if !exchange.Valid() {
		return nil, fmt.Errorf("unknown exchange %q", data.Exchange)
	}
	if data.Scrip == "" {
		return nil, fmt.Errorf("missing scrip")
	}

	date, err := time.Parse("2006-01-02", data.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid date %s: %w", data.Date, err)
	}

	quantity, err := decimal.NewFromString(data.Quantity)
	if err != nil {
		return nil, fmt.Errorf("invalid quantity %s: %w", data.Quantity, err)
	}
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("non-positive quantity %s", data.Quantity)
	}

	price, err := decimal.NewFromString(data.Price)
	if err != nil {
		return nil, fmt.Errorf("invalid price %s: %w", data.Price, err)
	}
	if price.IsNegative() {
		return nil, fmt.Errorf("negative price %s", data.Price)
	}

	tx := &models.Transaction{
		AccountID:      data.AccountID,
		Scrip:          data.Scrip,
		Category:       category,
		Side:           side,
		Date:           date,
		Quantity:       quantity,
		Price:          price,
		Exchange:       exchange,
		InstrumentKind: models.InstrumentKind(data.InstrumentKind),
		OldScrip:       data.OldScrip,
	}

	if data.ExpiryDate != "" {
		expiry, err := time.Parse("2006-01-02", data.ExpiryDate)
		if err != nil {
			return nil, fmt.Errorf("invalid expiry date %s: %w", data.ExpiryDate, err)
		}
		tx.ExpiryDate = &expiry
	}
	if data.StrikePrice != "" {
		if tx.StrikePrice, err = decimal.NewFromString(data.StrikePrice); err != nil {
			return nil, fmt.Errorf("invalid strike price %s: %w", data.StrikePrice, err)
		}
	}

	if data.StoredAmount != "" {
		if tx.StoredAmount, err = decimal.NewFromString(data.StoredAmount); err != nil {
			return nil, fmt.Errorf("invalid stored amount %s: %w", data.StoredAmount, err)
		}
	} else {
		tx.StoredAmount = price.Mul(quantity)
	}

	return tx, nil
}

// Close closes the Kafka consumer
func (c *TransactionsConsumer) Close() error {
	return c.reader.Close()
}
