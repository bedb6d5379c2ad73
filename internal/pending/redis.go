package pending

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "checkout:"

// RedisStore keeps checkout contexts as JSON strings with a TTL.  Consume
// uses GETDEL so two concurrent returns for the same booking cannot both
// obtain the context.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func (s *RedisStore) Save(ctx context.Context, c Checkout) error {
	if c.BookingID == "" {
		return errors.New("pending: empty booking id")
	}
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("pending: marshal: %w", err)
	}
	if err := s.rdb.Set(ctx, keyPrefix+c.BookingID, b, s.ttl).Err(); err != nil {
		return fmt.Errorf("pending: save %s: %w", c.BookingID, err)
	}
	return nil
}

func (s *RedisStore) Consume(ctx context.Context, bookingID string) (Checkout, error) {
	raw, err := s.rdb.GetDel(ctx, keyPrefix+bookingID).Bytes()
	if errors.Is(err, redis.Nil) {
		return Checkout{}, ErrNotFound
	}
	if err != nil {
		return Checkout{}, fmt.Errorf("pending: consume %s: %w", bookingID, err)
	}
	var c Checkout
	if err := json.Unmarshal(raw, &c); err != nil {
		return Checkout{}, fmt.Errorf("pending: decode %s: %w", bookingID, err)
	}
	return c, nil
}
