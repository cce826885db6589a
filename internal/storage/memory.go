// Package storage provides settings persistence implementations.
package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hammamikhairi/ottoboard/internal/domain"
	"github.com/hammamikhairi/ottoboard/internal/logger"
)

// Compile-time interface check.
var _ domain.SettingsStore = (*MemoryStore)(nil)

// MemoryStore is an in-memory settings store. Safe for concurrent access.
// Stored values are copies, so callers can keep mutating what they saved.
type MemoryStore struct {
	mu       sync.RWMutex
	settings map[string]domain.Settings
	log      *logger.Logger
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory settings store.
func NewMemoryStore(log *logger.Logger) *MemoryStore {
	return &MemoryStore{
		settings: make(map[string]domain.Settings),
		log:      log,
		now:      time.Now,
	}
}

// Save persists settings, overwriting any previous entry for the user.
func (s *MemoryStore) Save(ctx context.Context, settings *domain.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *settings
	cp.UpdatedAt = s.now()
	s.log.Debug("saving settings for %s (mode=%s, dwell=%s)", cp.UserID, cp.Mode, cp.Dwell)
	s.settings[cp.UserID] = cp
	return nil
}

// Load retrieves a user's settings.
func (s *MemoryStore) Load(ctx context.Context, userID string) (*domain.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.settings[userID]
	if !ok {
		s.log.Debug("settings not found: %s", userID)
		return nil, domain.ErrNotFound
	}
	return &st, nil
}

// Delete removes a user's settings.
func (s *MemoryStore) Delete(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.settings[userID]; !ok {
		return domain.ErrNotFound
	}
	delete(s.settings, userID)
	s.log.Debug("deleted settings for %s", userID)
	return nil
}

// Users returns the ids of every user with stored settings, sorted.
func (s *MemoryStore) Users(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.settings))
	for id := range s.settings {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}
