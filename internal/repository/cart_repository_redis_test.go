package repository

import (
	"context"
	"testing"
	"time"

	"farmstand/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func newRedisBackend(t *testing.T, ttl time.Duration) (*RedisCartBackend, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisCartBackend(client, "", ttl), mr
}

func TestRedisCartBackend_RoundTrip(t *testing.T) {
	ctx := context.Background()
	backend, mr := newRedisBackend(t, 0)
	repo := backend.ForCart("abc")

	lines, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, lines)

	want := domain.CartLines{{ProductID: "2", Quantity: 3}, {ProductID: "1", Quantity: 1}}
	require.NoError(t, repo.Save(ctx, want))

	stored, err := mr.Get(DefaultCartKeyPrefix + ":abc")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"productId":"2","quantity":3},{"productId":"1","quantity":1}]`, stored)

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, repo.Save(ctx, domain.CartLines{}))
	assert.False(t, mr.Exists(DefaultCartKeyPrefix+":abc"), "empty carts should not keep a key")
}

func TestRedisCartBackend_TTL(t *testing.T) {
	ctx := context.Background()
	backend, mr := newRedisBackend(t, time.Hour)

	require.NoError(t, backend.ForCart("ttl").Save(ctx, domain.CartLines{{ProductID: "1", Quantity: 1}}))
	assert.Equal(t, time.Hour, mr.TTL(DefaultCartKeyPrefix+":ttl"))

	mr.FastForward(2 * time.Hour)
	lines, err := backend.ForCart("ttl").Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestRedisCartBackend_NormalizesForeignData(t *testing.T) {
	ctx := context.Background()
	backend, mr := newRedisBackend(t, 0)

	require.NoError(t, mr.Set(DefaultCartKeyPrefix+":legacy",
		`[{"productId":"1","quantity":2},{"productId":"3","quantity":0},{"productId":"1","quantity":1}]`))

	lines, err := backend.ForCart("legacy").Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.CartLines{{ProductID: "1", Quantity: 3}}, lines)
}

func TestRedisCartBackend_CorruptData(t *testing.T) {
	backend, mr := newRedisBackend(t, 0)
	require.NoError(t, mr.Set(DefaultCartKeyPrefix+":bad", "not json"))

	_, err := backend.ForCart("bad").Load(context.Background())
	assert.Error(t, err)
}

func TestRedisCartBackend_PurgeProduct(t *testing.T) {
	ctx := context.Background()
	backend, mr := newRedisBackend(t, 0)

	require.NoError(t, backend.ForCart("a").Save(ctx, domain.CartLines{{ProductID: "1", Quantity: 1}, {ProductID: "2", Quantity: 2}}))
	require.NoError(t, backend.ForCart("b").Save(ctx, domain.CartLines{{ProductID: "2", Quantity: 4}}))
	require.NoError(t, backend.ForCart("c").Save(ctx, domain.CartLines{{ProductID: "5", Quantity: 1}}))
	require.NoError(t, mr.Set("unrelated:key", "keep"))

	require.NoError(t, backend.PurgeProduct(ctx, "2"))

	a, err := backend.ForCart("a").Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.CartLines{{ProductID: "1", Quantity: 1}}, a)

	assert.False(t, mr.Exists(DefaultCartKeyPrefix+":b"))

	c, err := backend.ForCart("c").Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.CartLines{{ProductID: "5", Quantity: 1}}, c)

	assert.True(t, mr.Exists("unrelated:key"))
}

func TestRedisCartBackend_UpdateAcrossClients(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	// two backends with their own connection pools, as two API replicas would have
	var backends []*RedisCartBackend
	for i := 0; i < 2; i++ {
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		backends = append(backends, NewRedisCartBackend(client, "", time.Hour))
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, backend := range backends {
		repo := backend.ForCart("shared")
		for i := 0; i < 50; i++ {
			g.Go(func() error {
				return repo.Update(gctx, func(lines domain.CartLines) domain.CartLines {
					return lines.Add("p1", 1)
				})
			})
		}
	}
	require.NoError(t, g.Wait())

	lines, err := backends[0].ForCart("shared").Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 100, lines.Quantity("p1"), "no increment may be lost")
	assert.True(t, mr.TTL(DefaultCartKeyPrefix+":shared") > 0, "updates keep the expiry")
}

func TestRedisCartBackend_UpdateWithoutChangeSkipsWrite(t *testing.T) {
	ctx := context.Background()
	backend, mr := newRedisBackend(t, 0)
	repo := backend.ForCart("abc")

	require.NoError(t, repo.Update(ctx, func(lines domain.CartLines) domain.CartLines {
		return lines.Remove("missing")
	}))
	assert.False(t, mr.Exists(DefaultCartKeyPrefix+":abc"), "a no-op update must not create a key")
}
