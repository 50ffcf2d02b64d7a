package reconcile

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/brizzai/tigoplanes/internal/config"
	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"github.com/zeebo/blake3"
)

// Deduper suppresses the same link delivered to different screens, e.g. the
// launch URL and the URL event of one tap.
type Deduper interface {
	// FirstSeen records fingerprint and reports whether it was new.
	FirstSeen(ctx context.Context, fingerprint string) (bool, error)
	// Forget drops fingerprint so a later delivery is processed again.
	Forget(ctx context.Context, fingerprint string) error
	Close() error
}

// Fingerprint identifies a raw link without keeping its credentials around.
func Fingerprint(raw string) string {
	sum := blake3.Sum256([]byte(strings.TrimSpace(raw)))
	return hex.EncodeToString(sum[:])
}

// NewDeduper builds the deduper selected by cfg.Driver.
func NewDeduper(cfg *config.DedupeConfig) (Deduper, error) {
	ttl := config.MustDuration(cfg.TTL)
	if ttl == 0 {
		ttl = 10 * time.Minute
	}
	switch cfg.Driver {
	case "", "memory":
		return NewMemoryDeduper(ttl), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("dedupe: redis ping failed: %w", err)
		}
		return NewRedisDeduper(client, cfg.Prefix, ttl), nil
	default:
		return nil, fmt.Errorf("unsupported dedupe driver: %s", cfg.Driver)
	}
}

// MemoryDeduper keeps fingerprints in process memory.
type MemoryDeduper struct {
	c   *gocache.Cache
	ttl time.Duration
}

func NewMemoryDeduper(ttl time.Duration) *MemoryDeduper {
	return &MemoryDeduper{c: gocache.New(ttl, time.Minute), ttl: ttl}
}

func (m *MemoryDeduper) FirstSeen(_ context.Context, fingerprint string) (bool, error) {
	// Add fails when the key is already present and unexpired.
	return m.c.Add(fingerprint, struct{}{}, m.ttl) == nil, nil
}

func (m *MemoryDeduper) Forget(_ context.Context, fingerprint string) error {
	m.c.Delete(fingerprint)
	return nil
}

func (m *MemoryDeduper) Close() error {
	m.c.Flush()
	return nil
}

// RedisDeduper shares fingerprints between processes.
type RedisDeduper struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisDeduper(client *redis.Client, prefix string, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisDeduper) key(fingerprint string) string {
	if r.prefix == "" {
		return fingerprint
	}
	return r.prefix + ":" + fingerprint
}

func (r *RedisDeduper) FirstSeen(ctx context.Context, fingerprint string) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.key(fingerprint), 1, r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedupe: redis setnx: %w", err)
	}
	return ok, nil
}

func (r *RedisDeduper) Forget(ctx context.Context, fingerprint string) error {
	if err := r.client.Del(ctx, r.key(fingerprint)).Err(); err != nil {
		return fmt.Errorf("dedupe: redis del: %w", err)
	}
	return nil
}

func (r *RedisDeduper) Close() error {
	return r.client.Close()
}
