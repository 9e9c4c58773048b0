// Package manager is the per-request facade over one stash. A Manager is
// bound to a single stash and checks that every record it touches belongs
// to it.
package manager

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/stash/internal/cache"
	"github.com/erazemk/stash/internal/events"
	"github.com/erazemk/stash/internal/model"
	"github.com/erazemk/stash/internal/store"
)

// Resolver builds Managers. Its fields are shared by every Manager it builds.
type Resolver struct {
	DB     *sqlx.DB
	Events events.Sink
	Cache  cache.Stashes
	// Now returns the current time; time.Now when nil.
	Now func() time.Time
}

func (r *Resolver) manager(s model.Stash) *Manager {
	m := &Manager{db: r.DB, sink: r.Events, cache: r.Cache, now: r.Now, stash: s}
	if m.sink == nil {
		m.sink = events.Discard{}
	}
	if m.cache == nil {
		m.cache = cache.Nop{}
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// ForCourse returns the manager of a course's stash, or model.ErrNotFound
// when the course has none.
func (r *Resolver) ForCourse(ctx context.Context, courseID int64) (*Manager, error) {
	c := r.Cache
	if c == nil {
		c = cache.Nop{}
	}
	if s, ok := c.Get(ctx, courseID); ok {
		return r.manager(*s), nil
	}

	s, err := store.GetStashByCourse(ctx, r.DB, courseID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, model.ErrNotFound
	}
	c.Set(ctx, *s)
	return r.manager(*s), nil
}

// ForStash returns the manager of a stash.
func (r *Resolver) ForStash(ctx context.Context, stashID int64) (*Manager, error) {
	s, err := store.GetStash(ctx, r.DB, stashID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, model.ErrNotFound
	}
	return r.manager(*s), nil
}

// ForItem returns the manager of the stash owning an item, with the item.
func (r *Resolver) ForItem(ctx context.Context, itemID int64) (*Manager, *model.Item, error) {
	item, err := store.GetItem(ctx, r.DB, itemID)
	if err != nil {
		return nil, nil, err
	}
	if item == nil {
		return nil, nil, model.ErrNotFound
	}
	m, err := r.ForStash(ctx, item.StashID)
	if err != nil {
		return nil, nil, err
	}
	return m, item, nil
}

// ForDrop returns the manager of the stash owning a drop, with the drop.
func (r *Resolver) ForDrop(ctx context.Context, dropID int64) (*Manager, *model.Drop, error) {
	d, err := store.GetDrop(ctx, r.DB, dropID)
	if err != nil {
		return nil, nil, err
	}
	if d == nil {
		return nil, nil, model.ErrNotFound
	}
	m, err := r.ForStash(ctx, d.StashID)
	if err != nil {
		return nil, nil, err
	}
	return m, d, nil
}

// ForTrade returns the manager of the stash owning a trade, with the trade.
func (r *Resolver) ForTrade(ctx context.Context, tradeID int64) (*Manager, *model.Trade, error) {
	t, err := store.GetTrade(ctx, r.DB, tradeID)
	if err != nil {
		return nil, nil, err
	}
	if t == nil {
		return nil, nil, model.ErrNotFound
	}
	m, err := r.ForStash(ctx, t.StashID)
	if err != nil {
		return nil, nil, err
	}
	return m, t, nil
}

// CreateStash creates the stash of a course and returns its manager. It
// fails with model.ErrStashExists when the course already has one.
func (r *Resolver) CreateStash(ctx context.Context, in model.StashInput) (*Manager, error) {
	if err := model.Validate(in); err != nil {
		return nil, err
	}

	s, err := store.CreateStash(ctx, r.DB, in.CourseID, in.Name)
	if err != nil {
		return nil, err
	}
	return r.manager(*s), nil
}
