package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/scripfolio/scripfolio/internal/config"
)

// ReportTTL bounds how stale a cached report may get even if an
// invalidation is missed.
const ReportTTL = 5 * time.Minute

// Client wraps the Redis client with report-cache operations. Only
// full computed reports are cached, never intermediate ledger state,
// so a cache hit and a fresh replay always agree.
type Client struct {
	rdb *redis.Client
}

// New creates a new Redis client
func New(cfg config.RedisConfig) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks if Redis is reachable
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func portfolioKey(accountID int) string {
	return fmt.Sprintf("report:%d:portfolio", accountID)
}

func pnlKey(accountID int, category string) string {
	return fmt.Sprintf("report:%d:pnl:%s", accountID, category)
}

// SetPortfolio caches an account's computed portfolio report
func (c *Client) SetPortfolio(ctx context.Context, accountID int, report interface{}) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal portfolio report: %w", err)
	}
	return c.rdb.Set(ctx, portfolioKey(accountID), data, ReportTTL).Err()
}

// GetPortfolio retrieves a cached portfolio report into dest
func (c *Client) GetPortfolio(ctx context.Context, accountID int, dest interface{}) error {
	data, err := c.rdb.Get(ctx, portfolioKey(accountID)).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// SetPnL caches an account's computed P&L report for one category
func (c *Client) SetPnL(ctx context.Context, accountID int, category string, report interface{}) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal pnl report: %w", err)
	}
	return c.rdb.Set(ctx, pnlKey(accountID, category), data, ReportTTL).Err()
}

// GetPnL retrieves a cached P&L report into dest
func (c *Client) GetPnL(ctx context.Context, accountID int, category string, dest interface{}) error {
	data, err := c.rdb.Get(ctx, pnlKey(accountID, category)).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// InvalidateAccount drops every cached report for one account. Called
// after any transaction write for it.
func (c *Client) InvalidateAccount(ctx context.Context, accountID int) error {
	pattern := fmt.Sprintf("report:%d:*", accountID)
	keys, err := c.rdb.Keys(ctx, pattern).Result()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

// InvalidateAll drops every cached report. Called after fee-schedule
// updates, which affect all accounts.
func (c *Client) InvalidateAll(ctx context.Context) error {
	keys, err := c.rdb.Keys(ctx, "report:*").Result()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}
