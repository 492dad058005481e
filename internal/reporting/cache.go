package reporting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	generationKey = "reporting:generation"
	// BumpChannel carries the generation published after every Bump.
	BumpChannel = "reporting.bump"
)

// Cache keeps rendered reports in Redis. Keys embed a generation number and
// bumping it orphans every stored report, which then lapses by TTL.
//
// A nil *Cache is valid and computes every report.
type Cache struct {
	client *redis.Client
	ttl    time.Duration

	// generation mirrors generationKey while Follow runs; zero means unknown.
	generation atomic.Int64
	following  atomic.Bool
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) enabled() bool {
	return c != nil && c.client != nil
}

// Generation returns the current generation, seeding it on first use.
func (c *Cache) Generation(ctx context.Context) (int64, error) {
	if !c.enabled() {
		return 0, nil
	}
	if c.following.Load() {
		if gen := c.generation.Load(); gen > 0 {
			return gen, nil
		}
	}
	return c.fetchGeneration(ctx)
}

func (c *Cache) fetchGeneration(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, generationKey, 1, 0).Err(); err != nil {
			return 0, fmt.Errorf("reporting cache: seed generation: %w", err)
		}
		gen, err = c.client.Get(ctx, generationKey).Int64()
	}
	if err != nil {
		return 0, fmt.Errorf("reporting cache: read generation: %w", err)
	}
	if gen <= 0 {
		return 0, fmt.Errorf("reporting cache: invalid generation %d", gen)
	}
	return gen, nil
}

// raise moves the local mirror forward; generations never go back.
func (c *Cache) raise(gen int64) {
	for {
		cur := c.generation.Load()
		if gen <= cur || c.generation.CompareAndSwap(cur, gen) {
			return
		}
	}
}

// Key names the stored report for q evaluated on asOf's day.
func (c *Cache) Key(ctx context.Context, report string, q Query, asOf time.Time) (string, error) {
	key := strings.Join([]string{"reporting", report, q.Key(), asOf.Format(DateLayout)}, ":")
	if !c.enabled() {
		return key, nil
	}
	gen, err := c.Generation(ctx)
	if err != nil {
		return "", err
	}
	return key + ":" + strconv.FormatInt(gen, 10), nil
}

// Load returns the JSON payload stored under key, computing and storing it on
// a miss. hit reports whether the payload came from Redis.
func (c *Cache) Load(ctx context.Context, key string, compute func(context.Context) (any, error)) (payload json.RawMessage, hit bool, err error) {
	if c.enabled() {
		payload, err = c.client.Get(ctx, key).Bytes()
		if err == nil {
			return payload, true, nil
		}
		if !errors.Is(err, redis.Nil) {
			return nil, false, fmt.Errorf("reporting cache: get: %w", err)
		}
	}
	value, err := compute(ctx)
	if err != nil {
		return nil, false, err
	}
	payload, err = json.Marshal(value)
	if err != nil {
		return nil, false, fmt.Errorf("reporting cache: encode: %w", err)
	}
	if c.enabled() {
		if err := c.client.Set(ctx, key, []byte(payload), c.ttl).Err(); err != nil {
			return nil, false, fmt.Errorf("reporting cache: set: %w", err)
		}
	}
	return payload, false, nil
}

// Bump advances the generation and publishes it to every follower.
func (c *Cache) Bump(ctx context.Context) (int64, error) {
	if !c.enabled() {
		return 0, nil
	}
	gen, err := c.client.Incr(ctx, generationKey).Result()
	if err != nil {
		return 0, fmt.Errorf("reporting cache: bump: %w", err)
	}
	c.raise(gen)
	if err := c.client.Publish(ctx, BumpChannel, strconv.FormatInt(gen, 10)).Err(); err != nil {
		return gen, fmt.Errorf("reporting cache: publish: %w", err)
	}
	return gen, nil
}

// Follow subscribes to published bumps until ctx is done. While it runs,
// Generation answers from memory instead of Redis. onBump, when set, is called
// with every generation received.
func (c *Cache) Follow(ctx context.Context, onBump func(gen int64)) error {
	if !c.enabled() {
		return nil
	}
	pubsub := c.client.Subscribe(ctx, BumpChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("reporting cache: subscribe: %w", err)
	}
	// Seed after subscribing so no bump falls between the two.
	gen, err := c.fetchGeneration(ctx)
	if err != nil {
		_ = pubsub.Close()
		return err
	}
	c.raise(gen)
	c.following.Store(true)

	go func() {
		defer c.following.Store(false)
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				gen, err := strconv.ParseInt(msg.Payload, 10, 64)
				if err != nil || gen <= 0 {
					if gen, err = c.fetchGeneration(ctx); err != nil {
						// Unknown until the next bump; lookups go to Redis.
						c.generation.Store(0)
						continue
					}
				}
				c.raise(gen)
				if onBump != nil {
					onBump(gen)
				}
			}
		}
	}()
	return nil
}
