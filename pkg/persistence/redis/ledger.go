// Package redis provides a Redis-backed dedup ledger. It is meant for
// deployments that keep workflows in PostgreSQL but want claim checks off the
// primary database; claims expire via TTL instead of explicit eviction.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const keyPrefix = "routinely:claims:"

// DedupLedger implements persistence.DedupLedger on top of SET NX, which is
// atomic on the Redis side for concurrent claimers.
type DedupLedger struct {
	client *redis.Client
	logger *slog.Logger
	ttl    time.Duration
}

// NewDedupLedger connects to the given redis:// URL. Claims are created with
// the given TTL; zero means claims never expire.
func NewDedupLedger(ctx context.Context, logger *slog.Logger, redisURL string, ttl time.Duration) (*DedupLedger, error) {
	options, err := parseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(options)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = client.Ping(pingCtx).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.InfoContext(ctx, "Connected to Redis", "addr", options.Addr, "db", options.DB)

	return &DedupLedger{client: client, logger: logger, ttl: ttl}, nil
}

func parseURL(redisURL string) (*redis.Options, error) {
	parsed, err := url.Parse(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	options := &redis.Options{Addr: parsed.Host}
	if options.Addr == "" {
		options.Addr = "localhost:6379"
	}

	if password, ok := parsed.User.Password(); ok {
		options.Password = password
	}

	if dbPath := strings.TrimPrefix(parsed.Path, "/"); dbPath != "" {
		db, err := strconv.Atoi(dbPath)
		if err != nil {
			return nil, fmt.Errorf("invalid redis db %q: %w", dbPath, err)
		}

		options.DB = db
	}

	return options, nil
}

// TryClaim claims the key with SET NX. Exactly one concurrent claimer gets
// true; the rest observe the existing value.
func (l *DedupLedger) TryClaim(ctx context.Context, key string) (bool, error) {
	claimed, err := l.client.SetNX(ctx, keyPrefix+key, time.Now().UTC().Format(time.RFC3339), l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim event key %s: %w", key, err)
	}

	return claimed, nil
}

// Evict removes claims recorded before the given time. TTL already bounds the
// set's growth; this exists for operators forcing an earlier horizon.
func (l *DedupLedger) Evict(ctx context.Context, olderThan time.Time) error {
	var cursor uint64

	for {
		keys, next, err := l.client.Scan(ctx, cursor, keyPrefix+"*", 256).Result()
		if err != nil {
			return fmt.Errorf("failed to scan claims: %w", err)
		}

		for _, key := range keys {
			value, err := l.client.Get(ctx, key).Result()
			if err != nil {
				continue
			}

			processedAt, err := time.Parse(time.RFC3339, value)
			if err != nil || !processedAt.Before(olderThan) {
				continue
			}

			if err := l.client.Del(ctx, key).Err(); err != nil {
				return fmt.Errorf("failed to evict claim %s: %w", key, err)
			}
		}

		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Close releases the client connection.
func (l *DedupLedger) Close() error {
	return l.client.Close()
}
