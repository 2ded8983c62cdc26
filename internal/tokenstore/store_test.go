package tokenstore

import (
	"context"
	"path/filepath"
	"testing"
)

// stores returns one of each implementation, both empty.
func stores(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := NewSQLite(filepath.Join(t.TempDir(), "tokens.db"))
	if err != nil {
		t.Fatalf("Failed to open sqlite store: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	return map[string]Store{
		"sqlite": sqlite,
		"memory": NewMemory(),
	}
}

func TestPairRoundTrip(t *testing.T) {
	ctx := context.Background()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			access, refresh, err := store.Tokens(ctx)
			if err != nil {
				t.Fatalf("Tokens failed: %v", err)
			}
			if access != "" || refresh != "" {
				t.Fatalf("Expected empty store, got %q / %q", access, refresh)
			}

			if err := store.SetTokens(ctx, "acc-1", "ref-1"); err != nil {
				t.Fatalf("SetTokens failed: %v", err)
			}

			access, refresh, err = store.Tokens(ctx)
			if err != nil {
				t.Fatalf("Tokens failed: %v", err)
			}
			if access != "acc-1" || refresh != "ref-1" {
				t.Errorf("Expected acc-1/ref-1, got %q / %q", access, refresh)
			}
		})
	}
}

func TestSetAccessTokenRetainsRefresh(t *testing.T) {
	ctx := context.Background()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.SetTokens(ctx, "acc-1", "ref-1"); err != nil {
				t.Fatalf("SetTokens failed: %v", err)
			}
			if err := store.SetAccessToken(ctx, "acc-2"); err != nil {
				t.Fatalf("SetAccessToken failed: %v", err)
			}

			access, refresh, err := store.Tokens(ctx)
			if err != nil {
				t.Fatalf("Tokens failed: %v", err)
			}
			if access != "acc-2" {
				t.Errorf("Expected rotated access token, got %q", access)
			}
			if refresh != "ref-1" {
				t.Errorf("Expected retained refresh token, got %q", refresh)
			}
		})
	}
}

func TestClearRemovesBoth(t *testing.T) {
	ctx := context.Background()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.SetTokens(ctx, "acc-1", "ref-1"); err != nil {
				t.Fatalf("SetTokens failed: %v", err)
			}
			if err := store.Clear(ctx); err != nil {
				t.Fatalf("Clear failed: %v", err)
			}

			access, refresh, err := store.Tokens(ctx)
			if err != nil {
				t.Fatalf("Tokens failed: %v", err)
			}
			if access != "" || refresh != "" {
				t.Errorf("Expected cleared store, got %q / %q", access, refresh)
			}
		})
	}
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tokens.db")

	store, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	if err := store.SetTokens(ctx, "acc-1", "ref-1"); err != nil {
		t.Fatalf("SetTokens failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewSQLite(path)
	if err != nil {
		t.Fatalf("Failed to reopen store: %v", err)
	}
	defer reopened.Close()

	access, refresh, err := reopened.Tokens(ctx)
	if err != nil {
		t.Fatalf("Tokens failed: %v", err)
	}
	if access != "acc-1" || refresh != "ref-1" {
		t.Errorf("Expected persisted tokens, got %q / %q", access, refresh)
	}
}
