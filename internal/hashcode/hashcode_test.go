package hashcode

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestGenerateFormat(t *testing.T) {
	for range 1000 {
		code, err := Generate()
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if len(code) != Length {
			t.Fatalf("expected %d characters, got %q", Length, code)
		}
		if !Alphanumeric(code) {
			t.Fatalf("expected alphanumeric code, got %q", code)
		}
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"abc123", true},
		{"ABCxyz", true},
		{strings.Repeat("a1", 20), true},
		{"", false},
		{"abc12", false},
		{"abc1234", false},
		{"abc 12", false},
		{"abc_12", false},
		{"abcdé1", false},
		{strings.Repeat("a", 39), false},
	}

	for _, tt := range tests {
		if got := Valid(tt.code); got != tt.want {
			t.Errorf("Valid(%q) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestAllocateNoDuplicates(t *testing.T) {
	ctx := context.Background()
	seen := make(map[string]bool)
	exists := func(_ context.Context, code string) (bool, error) {
		return seen[code], nil
	}

	for range 10000 {
		code, err := Allocate(ctx, exists)
		if err != nil {
			t.Fatalf("Allocate: %v", err)
		}
		if seen[code] {
			t.Fatalf("duplicate hashcode %q", code)
		}
		if len(code) != Length || !Alphanumeric(code) {
			t.Fatalf("malformed hashcode %q", code)
		}
		seen[code] = true
	}
}

func TestAllocateRetriesOnCollision(t *testing.T) {
	ctx := context.Background()
	codes := []string{"aaaaaa", "aaaaaa", "bbbbbb"}
	i := 0
	gen := func() (string, error) {
		c := codes[i]
		i++
		return c, nil
	}
	exists := func(_ context.Context, code string) (bool, error) {
		return code == "aaaaaa", nil
	}

	code, err := allocate(ctx, exists, gen, MaxAttempts)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	if code != "bbbbbb" {
		t.Errorf("expected bbbbbb, got %q", code)
	}
	if i != 3 {
		t.Errorf("expected 3 candidates, got %d", i)
	}
}

func TestAllocateExhausted(t *testing.T) {
	calls := 0
	exists := func(_ context.Context, _ string) (bool, error) {
		calls++
		return true, nil
	}

	_, err := Allocate(context.Background(), exists)
	if !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
	if calls != MaxAttempts {
		t.Errorf("expected %d attempts, got %d", MaxAttempts, calls)
	}
}

func TestAllocatePropagatesLookupError(t *testing.T) {
	boom := errors.New("boom")
	exists := func(_ context.Context, _ string) (bool, error) {
		return false, boom
	}

	_, err := Allocate(context.Background(), exists)
	if !errors.Is(err, boom) {
		t.Fatalf("expected lookup error, got %v", err)
	}
}
