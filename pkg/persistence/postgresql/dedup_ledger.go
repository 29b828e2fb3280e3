package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DedupLedger claims (event, workflow) pairs with INSERT .. ON CONFLICT DO
// NOTHING. The insert either creates the row or touches nothing, so exactly
// one concurrent claimer observes an affected row, even across processes.
type DedupLedger struct {
	db *sql.DB
}

func NewDedupLedger(db *sql.DB) *DedupLedger {
	return &DedupLedger{db: db}
}

func (l *DedupLedger) TryClaim(ctx context.Context, key string) (bool, error) {
	result, err := l.db.ExecContext(ctx, `
		INSERT INTO dedup_claims (event_key, processed_at)
		VALUES ($1, NOW())
		ON CONFLICT (event_key) DO NOTHING`, key)
	if err != nil {
		return false, fmt.Errorf("failed to claim event key %s: %w", key, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read claim result for %s: %w", key, err)
	}

	return affected == 1, nil
}

func (l *DedupLedger) Evict(ctx context.Context, olderThan time.Time) error {
	_, err := l.db.ExecContext(ctx,
		`DELETE FROM dedup_claims WHERE processed_at < $1`, olderThan)
	if err != nil {
		return fmt.Errorf("failed to evict stale claims: %w", err)
	}

	return nil
}
