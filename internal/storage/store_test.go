package storage

import (
	"context"
	"testing"

	"aetherscribe/internal/database"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db, err := database.New(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Initialize(); err != nil {
		t.Fatalf("failed to initialize database: %v", err)
	}
	return NewStore(db)
}

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "k", payload{Name: "a", Count: 3}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	var got payload
	found, err := store.Get(ctx, "k", &got)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !found {
		t.Fatal("expected the key to exist")
	}
	if got.Name != "a" || got.Count != 3 {
		t.Errorf("got %+v, want {a 3}", got)
	}
}

func TestStoreMissingKey(t *testing.T) {
	store := newTestStore(t)

	var got payload
	found, err := store.Get(context.Background(), "absent", &got)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if found {
		t.Error("expected a missing key to report not found")
	}
}

func TestStoreOverwrite(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "k", payload{Name: "old"}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Set(ctx, "k", payload{Name: "new"}); err != nil {
		t.Fatalf("second Set failed: %v", err)
	}

	var got payload
	if _, err := store.Get(ctx, "k", &got); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Name != "new" {
		t.Errorf("got %q after overwrite, want new", got.Name)
	}
}

func TestStoreDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "k", payload{Name: "a"}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	var got payload
	found, err := store.Get(ctx, "k", &got)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if found {
		t.Error("expected the key to be gone after delete")
	}

	// Deleting a missing key is not an error.
	if err := store.Delete(ctx, "k"); err != nil {
		t.Errorf("deleting a missing key failed: %v", err)
	}
}
