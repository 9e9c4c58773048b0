// Package backup exports a stash to a portable YAML document and restores
// it into another course.
package backup

// Version is the document format written by Export.
const Version = 1

// Document is a complete stash. Ids are those of the exporting database and
// only serve to link records inside the document.
type Document struct {
	Version   int        `yaml:"version"`
	Stash     Stash      `yaml:"stash"`
	Items     []Item     `yaml:"items"`
	Trades    []Trade    `yaml:"trades"`
	UserItems []UserItem `yaml:"user_items,omitempty"`
	Pickups   []Pickup   `yaml:"pickups,omitempty"`
}

type Stash struct {
	Name     string `yaml:"name"`
	CourseID int64  `yaml:"course_id"`
}

type Item struct {
	ID           int64  `yaml:"id"`
	Name         string `yaml:"name"`
	MaxNumber    *int   `yaml:"max_number,omitempty"`
	Detail       string `yaml:"detail,omitempty"`
	DetailFormat string `yaml:"detail_format,omitempty"`
	// Image is base64 encoded.
	Image     string `yaml:"image,omitempty"`
	ImageMime string `yaml:"image_mime,omitempty"`
	Drops     []Drop `yaml:"drops,omitempty"`
}

type Drop struct {
	ID             int64  `yaml:"id"`
	Name           string `yaml:"name"`
	MaxPickup      *int   `yaml:"max_pickup,omitempty"`
	PickupInterval int64  `yaml:"pickup_interval"`
	HashCode       string `yaml:"hashcode"`
}

type Trade struct {
	ID        int64       `yaml:"id"`
	Name      string      `yaml:"name"`
	LossTitle string      `yaml:"loss_title,omitempty"`
	GainTitle string      `yaml:"gain_title,omitempty"`
	HashCode  string      `yaml:"hashcode"`
	Items     []TradeItem `yaml:"items,omitempty"`
}

type TradeItem struct {
	ItemID   int64 `yaml:"item_id"`
	Quantity *int  `yaml:"quantity,omitempty"`
	Gain     bool  `yaml:"gain"`
}

type UserItem struct {
	ItemID   int64 `yaml:"item_id"`
	UserID   int64 `yaml:"user_id"`
	Quantity *int  `yaml:"quantity,omitempty"`
}

type Pickup struct {
	DropID     int64  `yaml:"drop_id"`
	UserID     int64  `yaml:"user_id"`
	Count      int    `yaml:"count"`
	LastPickup *int64 `yaml:"last_pickup,omitempty"`
}
