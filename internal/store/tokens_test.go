package store

import (
	"context"
	"testing"
	"time"

	"github.com/erazemk/stash/internal/auth"
	"github.com/erazemk/stash/internal/db"
	"github.com/erazemk/stash/internal/model"
)

const testSecret = "tokens-test-secret"

func issue(t *testing.T, userID int64, role string) *auth.Claims {
	t.Helper()
	token, err := auth.GenerateToken(testSecret, userID, "user", role)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	claims, err := auth.ValidateToken(testSecret, token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	return claims
}

// Logging out revokes only the session that logged out; the student's other
// sessions stay valid.
func TestRevokeLoggedOutSession(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	phone := issue(t, 7, model.RoleStudent)
	laptop := issue(t, 7, model.RoleStudent)

	if revoked, err := IsTokenRevoked(ctx, database, phone.ID); err != nil || revoked {
		t.Fatalf("fresh token revoked=%v err=%v", revoked, err)
	}

	if err := RevokeToken(ctx, database, phone.ID, phone.Expires()); err != nil {
		t.Fatalf("RevokeToken: %v", err)
	}

	tests := []struct {
		name string
		jti  string
		want bool
	}{
		{"logged out session", phone.ID, true},
		{"other session", laptop.ID, false},
		{"unknown id", "not-a-jti", false},
	}
	for _, tt := range tests {
		got, err := IsTokenRevoked(ctx, database, tt.jti)
		if err != nil {
			t.Fatalf("%s: IsTokenRevoked: %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("%s: revoked = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestRevokeTokenTwice(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	claims := issue(t, 3, model.RoleTeacher)

	for i := range 2 {
		if err := RevokeToken(ctx, database, claims.ID, claims.Expires()); err != nil {
			t.Fatalf("RevokeToken #%d: %v", i+1, err)
		}
	}
	if revoked, _ := IsTokenRevoked(ctx, database, claims.ID); !revoked {
		t.Error("expected token to stay revoked")
	}
}

func TestRevokeTokenPurgesExpired(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	if err := RevokeToken(ctx, database, "expired-jti", time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("RevokeToken: %v", err)
	}
	current := issue(t, 1, model.RoleAdmin)
	if err := RevokeToken(ctx, database, current.ID, current.Expires()); err != nil {
		t.Fatalf("RevokeToken: %v", err)
	}

	var n int
	if err := database.Get(&n, `SELECT COUNT(*) FROM revoked_tokens`); err != nil {
		t.Fatalf("counting revocations: %v", err)
	}
	if n != 1 {
		t.Errorf("expected only the live revocation to remain, got %d rows", n)
	}
	if revoked, _ := IsTokenRevoked(ctx, database, "expired-jti"); revoked {
		t.Error("expired revocation was kept")
	}
}
