package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"farmstand/internal/domain"

	"github.com/redis/go-redis/v9"
)

// DefaultCartKeyPrefix matches the browser storage key used by the web client
const DefaultCartKeyPrefix = "farmstand_cart"

const maxCartTxRetries = 1000

// ErrCartContention is returned when a cart update keeps losing to concurrent writers
var ErrCartContention = errors.New("cart update aborted after repeated conflicts")

// RedisCartBackend stores each cart as a JSON array of lines under <prefix>:<cartID>
type RedisCartBackend struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCartBackend creates a Redis backend. A zero ttl keeps carts forever;
// otherwise every save refreshes the expiry.
func NewRedisCartBackend(client *redis.Client, prefix string, ttl time.Duration) *RedisCartBackend {
	if prefix == "" {
		prefix = DefaultCartKeyPrefix
	}
	return &RedisCartBackend{client: client, prefix: prefix, ttl: ttl}
}

func (b *RedisCartBackend) ForCart(cartID string) CartRepository {
	return &redisCartRepository{backend: b, key: b.key(cartID)}
}

// PurgeProduct rewrites every cart key that references productID
func (b *RedisCartBackend) PurgeProduct(ctx context.Context, productID string) error {
	iter := b.client.Scan(ctx, 0, b.prefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		err := b.update(ctx, key, func(lines domain.CartLines) domain.CartLines {
			return lines.Remove(productID)
		})
		if err != nil {
			return fmt.Errorf("failed to purge product from %s: %w", key, err)
		}
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cart keys: %w", err)
	}
	return nil
}

// update runs an optimistic WATCH/MULTI/EXEC cycle on key, retrying when
// another client modified the key between the read and the write
func (b *RedisCartBackend) update(ctx context.Context, key string, fn func(domain.CartLines) domain.CartLines) error {
	txf := func(tx *redis.Tx) error {
		lines, err := b.decode(tx.Get(ctx, key))
		if err != nil {
			return err
		}

		next := fn(slices.Clone(lines))
		if slices.Equal(lines, next) {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			return b.write(ctx, pipe, key, next)
		})
		return err
	}

	for i := 0; i < maxCartTxRetries; i++ {
		err := b.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return ErrCartContention
}

func (b *RedisCartBackend) key(cartID string) string {
	return b.prefix + ":" + cartID
}

func (b *RedisCartBackend) decode(cmd *redis.StringCmd) (domain.CartLines, error) {
	data, err := cmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.CartLines{}, nil
	}
	if err != nil {
		return nil, err
	}

	var lines domain.CartLines
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, fmt.Errorf("failed to decode cart: %w", err)
	}
	return lines.Normalize(), nil
}

func (b *RedisCartBackend) write(ctx context.Context, cmd redis.Cmdable, key string, lines domain.CartLines) error {
	if len(lines) == 0 {
		return cmd.Del(ctx, key).Err()
	}

	data, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}
	return cmd.Set(ctx, key, data, b.ttl).Err()
}

type redisCartRepository struct {
	backend *RedisCartBackend
	key     string
}

func (r *redisCartRepository) Load(ctx context.Context) (domain.CartLines, error) {
	lines, err := r.backend.decode(r.backend.client.Get(ctx, r.key))
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return lines, nil
}

func (r *redisCartRepository) Save(ctx context.Context, lines domain.CartLines) error {
	if err := r.backend.write(ctx, r.backend.client, r.key, lines); err != nil {
		return fmt.Errorf("failed to save cart: %w", err)
	}
	return nil
}

func (r *redisCartRepository) Update(ctx context.Context, fn func(domain.CartLines) domain.CartLines) error {
	if err := r.backend.update(ctx, r.key, fn); err != nil {
		return fmt.Errorf("failed to update cart: %w", err)
	}
	return nil
}
