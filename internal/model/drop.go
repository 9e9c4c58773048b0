package model

import "time"

// Drop is a place where a user can pick up one unit of an item.
type Drop struct {
	ID             int64  `json:"id" db:"id"`
	ItemID         int64  `json:"item_id" db:"item_id"`
	Name           string `json:"name" db:"name"`
	MaxPickup      *int   `json:"max_pickup" db:"max_pickup"`
	PickupInterval int64  `json:"pickup_interval" db:"pickup_interval"`
	HashCode       string `json:"hashcode" db:"hashcode"`

	// Joined from the owning item.
	StashID int64 `json:"stash_id" db:"stash_id"`
}

// Interval returns the pickup cooldown.
func (d *Drop) Interval() time.Duration {
	return time.Duration(d.PickupInterval) * time.Second
}

// DropInput holds the writable fields of a drop. An empty HashCode asks for
// a freshly allocated one.
type DropInput struct {
	ItemID         int64  `json:"item_id" validate:"gt=0"`
	Name           string `json:"name" validate:"required,max=255"`
	MaxPickup      *int   `json:"max_pickup" validate:"omitempty,min=1"`
	PickupInterval int64  `json:"pickup_interval" validate:"min=0"`
	HashCode       string `json:"hashcode" validate:"omitempty,hashcode"`
}

// DropPickup is a user's pickup history for one drop.
type DropPickup struct {
	ID          int64  `json:"id" db:"id"`
	DropID      int64  `json:"drop_id" db:"drop_id"`
	UserID      int64  `json:"user_id" db:"user_id"`
	PickupCount int    `json:"pickup_count" db:"pickup_count"`
	LastPickup  *int64 `json:"last_pickup" db:"last_pickup"`
}
