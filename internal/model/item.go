package model

// Item represents a collectible item type.
type Item struct {
	ID           int64  `json:"id" db:"id"`
	StashID      int64  `json:"stash_id" db:"stash_id"`
	Name         string `json:"name" db:"name"`
	MaxNumber    *int   `json:"max_number" db:"max_number"`
	Detail       string `json:"detail,omitempty" db:"detail"`
	DetailFormat string `json:"detail_format" db:"detail_format"`
	ImageMime    string `json:"image_mime,omitempty" db:"image_mime"`
}

// Unlimited reports whether the item has no maximum number.
func (i *Item) Unlimited() bool {
	return i.MaxNumber == nil
}

// Detail formats.
const (
	DetailFormatHTML     = "html"
	DetailFormatMarkdown = "markdown"
	DetailFormatPlain    = "plain"
)

// ItemInput holds the writable fields of an item.
type ItemInput struct {
	Name         string `json:"name" validate:"required,max=255"`
	MaxNumber    *int   `json:"max_number" validate:"omitempty,min=1"`
	Detail       string `json:"detail"`
	DetailFormat string `json:"detail_format" validate:"omitempty,oneof=html markdown plain"`
}

// UserItem is a user's holding of one item. A nil Quantity means the user
// never acquired the item, zero means it was acquired and then spent.
type UserItem struct {
	ID       int64 `json:"id" db:"id"`
	ItemID   int64 `json:"item_id" db:"item_id"`
	UserID   int64 `json:"user_id" db:"user_id"`
	Quantity *int  `json:"quantity" db:"quantity"`

	// Joined fields (not always populated).
	ItemName string `json:"item_name,omitempty" db:"item_name"`
}

// Held returns the quantity held, treating never-acquired as zero.
func (u *UserItem) Held() int {
	if u == nil || u.Quantity == nil {
		return 0
	}
	return *u.Quantity
}

// ItemChange describes how one of a user's holdings changed.
type ItemChange struct {
	ItemID   int64    `json:"item_id"`
	ItemName string   `json:"item_name"`
	Delta    int      `json:"delta"`
	UserItem UserItem `json:"user_item"`
}
