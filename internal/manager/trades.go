package manager

import (
	"context"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/stash/internal/events"
	"github.com/erazemk/stash/internal/hashcode"
	"github.com/erazemk/stash/internal/ledger"
	"github.com/erazemk/stash/internal/model"
	"github.com/erazemk/stash/internal/store"
)

func (m *Manager) trade(ctx context.Context, id int64) (*model.Trade, error) {
	t, err := store.GetTrade(ctx, m.db, id)
	if err != nil {
		return nil, err
	}
	if t == nil || t.StashID != m.stash.ID {
		return nil, model.ErrNotFound
	}
	return t, nil
}

func (m *Manager) tradeCodeExists(q sqlx.ExtContext, excludeID int64) hashcode.ExistsFunc {
	return func(ctx context.Context, code string) (bool, error) {
		return store.TradeHashCodeExists(ctx, q, m.stash.ID, code, excludeID)
	}
}

// CreateTrade creates a trade. A hashcode is allocated unless the input
// names a free one.
func (m *Manager) CreateTrade(ctx context.Context, in model.TradeInput) (*model.Trade, error) {
	if err := model.Validate(in); err != nil {
		return nil, err
	}

	var t *model.Trade
	err := store.WithTx(ctx, m.db, func(tx *sqlx.Tx) error {
		if err := store.LockStash(ctx, tx, m.stash.ID); err != nil {
			return err
		}
		code, err := claimCode(ctx, in.HashCode, m.tradeCodeExists(tx, 0))
		if err != nil {
			return err
		}
		in.HashCode = code

		t, err = store.CreateTrade(ctx, tx, m.stash.ID, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// UpdateTrade replaces a trade's fields. An empty hashcode keeps the
// current one.
func (m *Manager) UpdateTrade(ctx context.Context, id int64, in model.TradeInput) (*model.Trade, error) {
	if err := model.Validate(in); err != nil {
		return nil, err
	}
	t, err := m.trade(ctx, id)
	if err != nil {
		return nil, err
	}

	err = store.WithTx(ctx, m.db, func(tx *sqlx.Tx) error {
		if err := store.LockStash(ctx, tx, m.stash.ID); err != nil {
			return err
		}
		if in.HashCode == "" || in.HashCode == t.HashCode {
			in.HashCode = t.HashCode
		} else if _, err := claimCode(ctx, in.HashCode, m.tradeCodeExists(tx, id)); err != nil {
			return err
		}
		return store.UpdateTrade(ctx, tx, id, in)
	})
	if err != nil {
		return nil, err
	}
	return store.GetTrade(ctx, m.db, id)
}

// DeleteTrade deletes a trade and its lines.
func (m *Manager) DeleteTrade(ctx context.Context, id int64) error {
	if _, err := m.trade(ctx, id); err != nil {
		return err
	}
	return store.DeleteTrade(ctx, m.db, id)
}

// GetTrade returns a trade of the stash.
func (m *Manager) GetTrade(ctx context.Context, id int64) (*model.Trade, error) {
	return m.trade(ctx, id)
}

// ListTrades returns every trade of the stash.
func (m *Manager) ListTrades(ctx context.Context) ([]model.Trade, error) {
	return store.ListTrades(ctx, m.db, m.stash.ID)
}

// FindTradeByPrefix resolves a hashcode prefix to a single trade.
func (m *Manager) FindTradeByPrefix(ctx context.Context, prefix string) (*model.Trade, error) {
	return store.FindTradeByHashPrefix(ctx, m.db, m.stash.ID, prefix)
}

// AddTradeItem adds a line to a trade. The item must belong to the stash.
func (m *Manager) AddTradeItem(ctx context.Context, tradeID int64, in model.TradeItemInput) (*model.TradeItem, error) {
	if err := model.Validate(in); err != nil {
		return nil, err
	}
	if _, err := m.trade(ctx, tradeID); err != nil {
		return nil, err
	}
	if err := m.stashItem(ctx, in.ItemID); err != nil {
		return nil, err
	}
	return store.AddTradeItem(ctx, m.db, tradeID, in)
}

// DeleteTradeItem removes a line from a trade of the stash.
func (m *Manager) DeleteTradeItem(ctx context.Context, id int64) error {
	ti, err := store.GetTradeItem(ctx, m.db, id)
	if err != nil {
		return err
	}
	if ti == nil {
		return model.ErrNotFound
	}
	if _, err := m.trade(ctx, ti.TradeID); err != nil {
		return err
	}
	return store.DeleteTradeItem(ctx, m.db, id)
}

// GetTradeItems returns the lines of a trade.
func (m *Manager) GetTradeItems(ctx context.Context, tradeID int64) ([]model.TradeItem, error) {
	if _, err := m.trade(ctx, tradeID); err != nil {
		return nil, err
	}
	return store.ListTradeItems(ctx, m.db, tradeID)
}

// CanTrade reports whether the user currently holds what the trade asks
// for. Nothing is written.
func (m *Manager) CanTrade(ctx context.Context, userID, tradeID int64) (ledger.Decision, error) {
	items, err := m.GetTradeItems(ctx, tradeID)
	if err != nil {
		return ledger.Decision{}, err
	}
	holdings, err := store.UserHoldings(ctx, m.db, items, userID)
	if err != nil {
		return ledger.Decision{}, err
	}
	return ledger.CanTrade(items, holdings), nil
}

// CompleteTrade performs a trade for the user. The hashcode must match the
// trade's; a denial is a normal result.
func (m *Manager) CompleteTrade(ctx context.Context, userID, tradeID int64, code string) (*store.TradeResult, error) {
	t, err := m.trade(ctx, tradeID)
	if err != nil {
		return nil, err
	}
	if !sameCode(t.HashCode, code) {
		return nil, model.ErrHashCodeMismatch
	}

	res, err := store.ExecuteTrade(ctx, m.db, tradeID, userID)
	if err != nil {
		return nil, err
	}
	if !res.Allowed {
		return res, nil
	}

	slog.Info("trade completed", "stash", m.stash.ID, "trade", tradeID, "user", userID,
		"gained", len(res.Gained), "lost", len(res.Lost))

	now := m.now()
	evs := make([]model.Event, 0, len(res.Gained))
	for _, g := range res.Gained {
		evs = append(evs, events.ItemAcquired(m.stash.ID, userID, userID, g.ItemID, g.Delta, now))
	}
	m.emit(ctx, evs...)
	return res, nil
}
