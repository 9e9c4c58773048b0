package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// RevokeToken adds a token's JTI to the revocation list.
func RevokeToken(ctx context.Context, q sqlx.ExtContext, jti string, expiresAt time.Time) error {
	_, err := exec(ctx, q,
		`INSERT INTO revoked_tokens (jti, expires_at) VALUES (?, ?) ON CONFLICT (jti) DO NOTHING`,
		jti, expiresAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}

	// Revocations outlive their tokens only until expiry.
	_, _ = exec(ctx, q, `DELETE FROM revoked_tokens WHERE expires_at < ?`, time.Now().Unix())

	return nil
}

// IsTokenRevoked checks if a token's JTI has been revoked.
func IsTokenRevoked(ctx context.Context, q sqlx.ExtContext, jti string) (bool, error) {
	revoked, err := exists(ctx, q, `SELECT COUNT(*) FROM revoked_tokens WHERE jti = ?`, jti)
	if err != nil {
		return false, fmt.Errorf("checking token revocation: %w", err)
	}
	return revoked, nil
}
