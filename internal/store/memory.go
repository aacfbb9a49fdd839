package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	apperrors "anchor/internal/errors"
	"anchor/internal/models"
)

// MemoryStore is an in-memory DataStore, used in tests and for
// throwaway debug sessions.
type MemoryStore struct {
	mu       sync.RWMutex
	config   *models.Config
	session  *models.SessionData
	state    *models.ProtocolState
	history  map[string]models.DayRecord
	journals []models.JournalEntry
	nextID   int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{history: make(map[string]models.DayRecord)}
}

func (s *MemoryStore) Config(ctx context.Context) (models.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.config == nil {
		return models.Config{}, apperrors.ErrDataNotFound
	}
	return *s.config, nil
}

func (s *MemoryStore) SaveConfig(ctx context.Context, cfg models.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = &cfg
	return nil
}

func (s *MemoryStore) Session(ctx context.Context) (models.SessionData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.session == nil {
		return models.SessionData{}, apperrors.ErrDataNotFound
	}
	return *s.session, nil
}

func (s *MemoryStore) SaveSession(ctx context.Context, session models.SessionData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = &session
	return nil
}

func (s *MemoryStore) State(ctx context.Context) (models.ProtocolState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return models.ProtocolState{}, apperrors.ErrDataNotFound
	}
	return *s.state, nil
}

func (s *MemoryStore) SaveState(ctx context.Context, state models.ProtocolState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = &state
	return nil
}

func (s *MemoryStore) Day(ctx context.Context, dateKey string) (models.DayRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.history[dateKey]
	if !ok {
		return models.DayRecord{}, apperrors.ErrDataNotFound
	}
	return record, nil
}

func (s *MemoryStore) SaveDay(ctx context.Context, dateKey string, record models.DayRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[dateKey] = record
	return nil
}

func (s *MemoryStore) History(ctx context.Context, from, to string) (map[string]models.DayRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]models.DayRecord)
	for key, record := range s.history {
		if key >= from && key <= to {
			out[key] = record
		}
	}
	return out, nil
}

func (s *MemoryStore) AppendJournal(ctx context.Context, entry *models.JournalEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.ID == "" {
		s.nextID++
		entry.ID = fmt.Sprintf("mem-%04d", s.nextID)
	}
	s.journals = append(s.journals, *entry)
	return nil
}

func (s *MemoryStore) Journals(ctx context.Context, filter JournalFilter) ([]models.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.JournalEntry
	for _, e := range s.journals {
		if !filter.StartDate.IsZero() && e.Timestamp.Before(filter.StartDate) {
			continue
		}
		if !filter.EndDate.IsZero() && e.Timestamp.After(filter.EndDate) {
			continue
		}
		if filter.Emotion != "" && e.Emotion != filter.Emotion {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
