package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hammamikhairi/ottoboard/internal/domain"
	"github.com/hammamikhairi/ottoboard/internal/logger"
)

func TestMemoryStoreCRUD(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	store := NewMemoryStore(log)
	ctx := context.Background()

	settings := &domain.Settings{
		UserID: "ana",
		Mode:   domain.ModeDwell,
		Dwell:  1200 * time.Millisecond,
	}

	// Save.
	if err := store.Save(ctx, settings); err != nil {
		t.Fatalf("save: %v", err)
	}

	// Mutating the caller's copy must not leak into the store.
	settings.Dwell = time.Second

	// Load.
	loaded, err := store.Load(ctx, "ana")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Mode != domain.ModeDwell || loaded.Dwell != 1200*time.Millisecond {
		t.Fatalf("unexpected settings %+v", loaded)
	}
	if loaded.UpdatedAt.IsZero() {
		t.Fatal("expected UpdatedAt to be stamped")
	}

	// Load nonexistent.
	_, err = store.Load(ctx, "nobody")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// Delete.
	if err := store.Delete(ctx, "ana"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Load(ctx, "ana"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	// Delete nonexistent.
	if err := store.Delete(ctx, "nobody"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreUsersSorted(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)
	store := NewMemoryStore(log)
	ctx := context.Background()

	for _, id := range []string{"zoe", "ana", "mo"} {
		if err := store.Save(ctx, &domain.Settings{UserID: id}); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	users, err := store.Users(ctx)
	if err != nil {
		t.Fatalf("users: %v", err)
	}
	if len(users) != 3 || users[0] != "ana" || users[2] != "zoe" {
		t.Fatalf("expected sorted users, got %v", users)
	}
}
