package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/routinely/routinely/pkg/persistence"
	"github.com/routinely/routinely/pkg/persistence/file"
	"github.com/routinely/routinely/pkg/persistence/postgresql"
	"github.com/routinely/routinely/pkg/persistence/redis"
)

// NewPersistence selects the storage backend from the database URL scheme.
// postgres:// and postgresql:// use PostgreSQL; anything else is treated as a
// directory for the file backend.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	default:
		return file.NewPersistence(strings.TrimPrefix(databaseURL, "file://")), nil
	}
}

// WithDedupLedger returns the store with its dedup ledger replaced. Used to
// run a shared Redis ledger in front of the file backend, whose own ledger is
// local to one host.
func WithDedupLedger(store persistence.Persistence, ledger persistence.DedupLedger) persistence.Persistence {
	return &ledgerOverride{Persistence: store, ledger: ledger}
}

// NewRedisDedupLedger builds the Redis claim ledger with the given TTL.
func NewRedisDedupLedger(ctx context.Context, logger *slog.Logger, redisURL string, ttl time.Duration) (persistence.DedupLedger, error) {
	ledger, err := redis.NewDedupLedger(ctx, logger, redisURL, ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to connect the redis dedup ledger: %w", err)
	}

	return ledger, nil
}

type ledgerOverride struct {
	persistence.Persistence

	ledger persistence.DedupLedger
}

func (l *ledgerOverride) DedupLedger() persistence.DedupLedger {
	return l.ledger
}
