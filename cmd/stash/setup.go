package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/jmoiron/sqlx"

	"github.com/erazemk/stash/internal/auth"
	"github.com/erazemk/stash/internal/config"
	"github.com/erazemk/stash/internal/db"
	"github.com/erazemk/stash/internal/model"
	"github.com/erazemk/stash/internal/store"
)

// openDatabase opens the configured database and makes sure the schema
// exists.
func openDatabase(cfg *config.Config) (*sqlx.DB, error) {
	database, err := db.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(database); err != nil {
		database.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	return database, nil
}

// initAdmin creates the admin account when the database has no users yet.
// It returns the generated password, or "" when nothing was created.
func initAdmin(ctx context.Context, database *sqlx.DB, username string) (string, error) {
	users, err := store.ListUsers(ctx, database)
	if err != nil {
		return "", err
	}
	if len(users) > 0 {
		return "", nil
	}

	password, err := generatePassword(16)
	if err != nil {
		return "", fmt.Errorf("generating password: %w", err)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return "", err
	}
	if _, err := store.CreateUser(ctx, database, username, hash, model.RoleAdmin); err != nil {
		return "", fmt.Errorf("creating admin user: %w", err)
	}
	return password, nil
}

// printInitResult prints the generated admin account to stdout.
func printInitResult(username, password string) {
	fmt.Println("Admin account created:")
	fmt.Printf("  Username: %s\n", username)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password, it cannot be recovered.")
	fmt.Println("The admin can change it after logging in.")
	fmt.Println()
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
