package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/hammamikhairi/ottoboard/internal/domain"
	"github.com/hammamikhairi/ottoboard/internal/logger"
)

func openTestDB(t *testing.T, path string) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(context.Background(), path, logger.New(logger.LevelOff, nil))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	return store
}

func TestSQLiteStoreCRUD(t *testing.T) {
	ctx := context.Background()
	store := openTestDB(t, filepath.Join(t.TempDir(), "otto.db"))
	defer store.Close()

	if _, err := store.Load(ctx, "ana"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("load before save: err = %v, want ErrNotFound", err)
	}

	in := &domain.Settings{UserID: "ana", Mode: domain.ModeDwell, Dwell: 1200 * time.Millisecond, Voice: "en-GB-Neural2-A"}
	if err := store.Save(ctx, in); err != nil {
		t.Fatalf("save: %v", err)
	}
	in.Dwell = 2 * time.Second
	in.Mode = domain.ModeClick
	if err := store.Save(ctx, in); err != nil {
		t.Fatalf("second save: %v", err)
	}

	got, err := store.Load(ctx, "ana")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Mode != domain.ModeClick || got.Dwell != 2*time.Second || got.Voice != "en-GB-Neural2-A" {
		t.Fatalf("unexpected settings %+v", got)
	}
	if got.UpdatedAt.IsZero() {
		t.Fatal("UpdatedAt not set")
	}

	users, err := store.Users(ctx)
	if err != nil || len(users) != 1 || users[0] != "ana" {
		t.Fatalf("users = %v, %v", users, err)
	}

	if err := store.Delete(ctx, "ana"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(ctx, "ana"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second delete: err = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "otto.db")

	store := openTestDB(t, path)
	if err := store.Save(ctx, &domain.Settings{UserID: "ben", Mode: domain.ModeDwell, Dwell: 800 * time.Millisecond}); err != nil {
		t.Fatalf("save: %v", err)
	}
	store.Close()

	store = openTestDB(t, path)
	defer store.Close()
	got, err := store.Load(ctx, "ben")
	if err != nil {
		t.Fatalf("load after reopen: %v", err)
	}
	if got.Mode != domain.ModeDwell || got.Dwell != 800*time.Millisecond {
		t.Fatalf("unexpected settings %+v", got)
	}
}
