package model

// Event kinds.
const (
	EventItemAcquired = "item_acquired"
)

// Event is an audit record of something that happened in a stash.
type Event struct {
	ID            string `json:"id" db:"id"`
	StashID       int64  `json:"stash_id" db:"stash_id"`
	Kind          string `json:"kind" db:"kind"`
	ActorID       int64  `json:"actor_id" db:"actor_id"`
	BeneficiaryID int64  `json:"beneficiary_id" db:"beneficiary_id"`
	ItemID        int64  `json:"item_id" db:"item_id"`
	Quantity      int    `json:"quantity" db:"quantity"`
	CreatedAt     int64  `json:"created_at" db:"created_at"`
}
