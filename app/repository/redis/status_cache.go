package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vibast-solutions/ms-go-fedapay-payments/app/entity"
)

const (
	hashFieldStatus    = "status"
	hashFieldRawStatus = "raw_status"
	hashFieldAmount    = "amount"
	hashFieldMode      = "mode"
	hashFieldReference = "reference"
)

// StatusCache keeps processor lookups for transactions that reached a
// terminal status. Those never change, so repeated queries skip the processor.
type StatusCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStatusCache(client *redis.Client, ttl time.Duration) *StatusCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &StatusCache{client: client, ttl: ttl}
}

func statusKey(transactionID string) string {
	return fmt.Sprintf("fedapay:transaction:%s", transactionID)
}

// Get returns nil without error on a cache miss.
func (c *StatusCache) Get(ctx context.Context, transactionID string) (*entity.TransactionStatus, error) {
	values, err := c.client.HGetAll(ctx, statusKey(transactionID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cached status: %w", err)
	}
	if len(values) == 0 || values[hashFieldStatus] == "" {
		return nil, nil
	}

	amount, err := strconv.ParseInt(values[hashFieldAmount], 10, 64)
	if err != nil {
		return nil, nil
	}

	return &entity.TransactionStatus{
		TransactionID: transactionID,
		Status:        entity.CallbackStatus(values[hashFieldStatus]),
		RawStatus:     values[hashFieldRawStatus],
		Amount:        amount,
		Mode:          values[hashFieldMode],
		Reference:     values[hashFieldReference],
	}, nil
}

// Set stores terminal statuses only; anything else is ignored.
func (c *StatusCache) Set(ctx context.Context, status *entity.TransactionStatus) error {
	if status == nil || !status.Status.Terminal() {
		return nil
	}
	key := statusKey(status.TransactionID)

	pipe := c.client.Pipeline()
	pipe.HSet(ctx, key,
		hashFieldStatus, string(status.Status),
		hashFieldRawStatus, status.RawStatus,
		hashFieldAmount, strconv.FormatInt(status.Amount, 10),
		hashFieldMode, status.Mode,
		hashFieldReference, status.Reference,
	)
	pipe.Expire(ctx, key, c.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache status: %w", err)
	}
	return nil
}
