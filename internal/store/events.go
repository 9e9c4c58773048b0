package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/stash/internal/model"
)

// RecordEvent appends an event to the audit trail.
func RecordEvent(ctx context.Context, q sqlx.ExtContext, e model.Event) error {
	_, err := exec(ctx, q,
		`INSERT INTO events (id, stash_id, kind, actor_id, beneficiary_id, item_id, quantity, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.StashID, e.Kind, e.ActorID, e.BeneficiaryID, e.ItemID, e.Quantity, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("recording event: %w", err)
	}
	return nil
}

// ListEvents returns the most recent events of a stash, newest first.
func ListEvents(ctx context.Context, q sqlx.ExtContext, stashID int64, limit int) ([]model.Event, error) {
	if limit <= 0 {
		limit = 100
	}

	events, err := selectAll[model.Event](ctx, q,
		`SELECT id, stash_id, kind, actor_id, beneficiary_id, item_id, quantity, created_at
		 FROM events WHERE stash_id = ? ORDER BY created_at DESC, id LIMIT ?`,
		stashID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	return events, nil
}
