package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// GetJWTSecret returns the persisted JWT signing secret, generating and
// storing one on first use. Concurrent first calls all read back the row
// that won the insert.
func GetJWTSecret(ctx context.Context, q sqlx.ExtContext) (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating jwt secret: %w", err)
	}

	_, err := exec(ctx, q,
		`INSERT INTO settings (key, value) VALUES ('jwt_secret', ?) ON CONFLICT (key) DO NOTHING`,
		hex.EncodeToString(buf),
	)
	if err != nil {
		return "", fmt.Errorf("storing jwt_secret: %w", err)
	}

	var secret string
	err = sqlx.GetContext(ctx, q, &secret, `SELECT value FROM settings WHERE key = 'jwt_secret'`)
	if err != nil {
		return "", fmt.Errorf("querying jwt_secret: %w", err)
	}

	return secret, nil
}

// SetJWTSecret overwrites the signing secret, invalidating every issued token.
func SetJWTSecret(ctx context.Context, q sqlx.ExtContext, secret string) error {
	_, err := exec(ctx, q,
		`INSERT INTO settings (key, value) VALUES ('jwt_secret', ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		secret,
	)
	if err != nil {
		return fmt.Errorf("storing jwt_secret: %w", err)
	}
	return nil
}
