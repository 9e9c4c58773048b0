// Package events distributes stash events to the audit trail, the log and
// live websocket subscribers.
package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/erazemk/stash/internal/model"
	"github.com/erazemk/stash/internal/store"
)

// Sink receives events after the change they describe has been committed.
type Sink interface {
	Emit(ctx context.Context, e model.Event) error
}

// ItemAcquired builds the event for a user receiving quantity units of an item.
func ItemAcquired(stashID, actorID, beneficiaryID, itemID int64, quantity int, at time.Time) model.Event {
	return model.Event{
		ID:            uuid.NewString(),
		StashID:       stashID,
		Kind:          model.EventItemAcquired,
		ActorID:       actorID,
		BeneficiaryID: beneficiaryID,
		ItemID:        itemID,
		Quantity:      quantity,
		CreatedAt:     at.Unix(),
	}
}

// StoreSink writes events to the audit table.
type StoreSink struct {
	DB *sqlx.DB
}

func (s StoreSink) Emit(ctx context.Context, e model.Event) error {
	return store.RecordEvent(ctx, s.DB, e)
}

// LogSink writes events as structured log lines.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Emit(ctx context.Context, e model.Event) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "event",
		"id", e.ID,
		"kind", e.Kind,
		"stash", e.StashID,
		"actor", e.ActorID,
		"beneficiary", e.BeneficiaryID,
		"item", e.ItemID,
		"quantity", e.Quantity,
	)
	return nil
}

// Multi emits to every sink in order. A failing sink does not stop the others.
type Multi []Sink

func (m Multi) Emit(ctx context.Context, e model.Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Emit(ctx, e); err != nil {
			errs = append(errs, fmt.Errorf("emitting %s: %w", e.Kind, err))
		}
	}
	return errors.Join(errs...)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Emit(context.Context, model.Event) error { return nil }
