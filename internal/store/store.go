// Package store provides data persistence implementations.
package store

import (
	"context"
	"time"

	"anchor/internal/models"
)

// JournalFilter narrows journal queries.
type JournalFilter struct {
	StartDate time.Time
	EndDate   time.Time
	Emotion   models.Emotion
	Limit     int
}

// DataStore is the persistence contract for the discipline guard. All
// writes are whole-document replacements; readers get the data that was
// last saved, never a partial merge.
type DataStore interface {
	// Config returns the discipline configuration, or ErrDataNotFound
	// when none has been saved yet.
	Config(ctx context.Context) (models.Config, error)
	SaveConfig(ctx context.Context, cfg models.Config) error

	// Session returns the current day's running session data.
	Session(ctx context.Context) (models.SessionData, error)
	SaveSession(ctx context.Context, session models.SessionData) error

	// State returns the persisted protocol state.
	State(ctx context.Context) (models.ProtocolState, error)
	SaveState(ctx context.Context, state models.ProtocolState) error

	// Day returns one archived day record by YYYY-MM-DD key.
	Day(ctx context.Context, dateKey string) (models.DayRecord, error)
	SaveDay(ctx context.Context, dateKey string, record models.DayRecord) error

	// History returns day records keyed by date within [from, to]
	// inclusive, both YYYY-MM-DD keys.
	History(ctx context.Context, from, to string) (map[string]models.DayRecord, error)

	// AppendJournal stores one journal entry, assigning an ID when the
	// entry carries none.
	AppendJournal(ctx context.Context, entry *models.JournalEntry) error
	Journals(ctx context.Context, filter JournalFilter) ([]models.JournalEntry, error)

	Close() error
}
