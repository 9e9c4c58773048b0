package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/stash/internal/db"
	"github.com/erazemk/stash/internal/model"
)

// CreateStash creates the stash of a course. A course has at most one stash;
// a second one fails with model.ErrStashExists.
func CreateStash(ctx context.Context, q sqlx.ExtContext, courseID int64, name string) (*model.Stash, error) {
	id, err := insertID(ctx, q,
		`INSERT INTO stashes (course_id, name) VALUES (?, ?)`,
		courseID, name,
	)
	if db.IsUniqueViolation(err) {
		return nil, model.ErrStashExists
	}
	if err != nil {
		return nil, fmt.Errorf("creating stash: %w", err)
	}
	return &model.Stash{ID: id, CourseID: courseID, Name: name}, nil
}

// GetStash returns a stash by ID.
func GetStash(ctx context.Context, q sqlx.ExtContext, id int64) (*model.Stash, error) {
	s, err := getOne[model.Stash](ctx, q,
		`SELECT id, course_id, name FROM stashes WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("getting stash: %w", err)
	}
	return s, nil
}

// GetStashByCourse returns the stash of a course.
func GetStashByCourse(ctx context.Context, q sqlx.ExtContext, courseID int64) (*model.Stash, error) {
	s, err := getOne[model.Stash](ctx, q,
		`SELECT id, course_id, name FROM stashes WHERE course_id = ?`, courseID)
	if err != nil {
		return nil, fmt.Errorf("getting stash by course: %w", err)
	}
	return s, nil
}

// LockStash serialises writers that check and then claim something unique
// within the stash, such as a hashcode. On PostgreSQL it locks the stash row;
// SQLite transactions already hold the database write lock. It fails with
// model.ErrNotFound when the stash does not exist.
func LockStash(ctx context.Context, tx *sqlx.Tx, stashID int64) error {
	var id int64
	err := tx.GetContext(ctx, &id, tx.Rebind(`SELECT id FROM stashes WHERE id = ?`+forUpdate(tx)), stashID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("locking stash: %w", err)
	}
	return nil
}

// UpdateStash renames a stash.
func UpdateStash(ctx context.Context, q sqlx.ExtContext, id int64, name string) error {
	if _, err := exec(ctx, q, `UPDATE stashes SET name = ? WHERE id = ?`, name, id); err != nil {
		return fmt.Errorf("updating stash: %w", err)
	}
	return nil
}
