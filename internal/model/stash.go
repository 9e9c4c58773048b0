package model

// Stash is the per-course container of all items and trades.
type Stash struct {
	ID       int64  `json:"id" db:"id"`
	CourseID int64  `json:"course_id" db:"course_id"`
	Name     string `json:"name" db:"name"`
}

// StashInput holds the writable fields of a stash.
type StashInput struct {
	CourseID int64  `json:"course_id" validate:"gt=0"`
	Name     string `json:"name" validate:"required,max=255"`
}
