package model

// Trade is an exchange offer: surrender the loss side, receive the gain side.
type Trade struct {
	ID        int64  `json:"id" db:"id"`
	StashID   int64  `json:"stash_id" db:"stash_id"`
	Name      string `json:"name" db:"name"`
	LossTitle string `json:"loss_title" db:"loss_title"`
	GainTitle string `json:"gain_title" db:"gain_title"`
	HashCode  string `json:"hashcode" db:"hashcode"`
}

// TradeInput holds the writable fields of a trade.
type TradeInput struct {
	Name      string `json:"name" validate:"required,max=255"`
	LossTitle string `json:"loss_title" validate:"max=255"`
	GainTitle string `json:"gain_title" validate:"max=255"`
	HashCode  string `json:"hashcode" validate:"omitempty,hashcode"`
}

// Trade sides.
const (
	TradeGain = true
	TradeLoss = false
)

// TradeItem is one line of a trade. A nil Quantity on the loss side means
// "everything the user holds" (at least one unit); on the gain side it
// grants a single unit.
type TradeItem struct {
	ID       int64 `json:"id" db:"id"`
	TradeID  int64 `json:"trade_id" db:"trade_id"`
	ItemID   int64 `json:"item_id" db:"item_id"`
	Quantity *int  `json:"quantity" db:"quantity"`
	GainLoss bool  `json:"gain_loss" db:"gain_loss"`

	// Joined fields (not always populated).
	ItemName string `json:"item_name,omitempty" db:"item_name"`
}

// TradeItemInput holds the writable fields of a trade item.
type TradeItemInput struct {
	ItemID   int64 `json:"item_id" validate:"gt=0"`
	Quantity *int  `json:"quantity" validate:"omitempty,min=1"`
	GainLoss bool  `json:"gain_loss"`
}
