package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"math/rand"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"

	apperrors "anchor/internal/errors"
	"anchor/internal/models"
)

// Document keys. These are stable storage identifiers; renaming one
// orphans existing data.
const (
	keyConfig  = "disciplineConfig"
	keySession = "sessionData"
	keyState   = "protocolState"
)

// SQLiteStore implements DataStore using SQLite. Config, session, and
// protocol state are single JSON documents in a key/value table; the
// day history and journals get their own tables so they can be queried
// by range.
type SQLiteStore struct {
	db      *sql.DB
	entropy *ulid.MonotonicEntropy
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, &apperrors.StorageError{Op: "open", Err: err}
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{
		db:      db,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, &apperrors.StorageError{Op: "init schema", Err: err}
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Single-document state: config, session, protocol state
	CREATE TABLE IF NOT EXISTS documents (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- One record per archived calendar day
	CREATE TABLE IF NOT EXISTS pnl_history (
		date_key TEXT PRIMARY KEY,
		record TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Journal entries, append-only
	CREATE TABLE IF NOT EXISTS journals (
		id TEXT PRIMARY KEY,
		timestamp DATETIME NOT NULL,
		within_setup TEXT NOT NULL,
		rule_violation TEXT,
		emotion TEXT NOT NULL,
		should_continue TEXT NOT NULL,
		continue_reason TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_journals_timestamp ON journals(timestamp);
	CREATE INDEX IF NOT EXISTS idx_journals_emotion ON journals(emotion);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) getDocument(ctx context.Context, key string, out interface{}) error {
	var value string
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM documents WHERE key = ?
	`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return apperrors.ErrDataNotFound
	}
	if err != nil {
		return &apperrors.StorageError{Op: "get", Key: key, Err: err}
	}
	if err := json.Unmarshal([]byte(value), out); err != nil {
		return &apperrors.StorageError{Op: "decode", Key: key, Err: err}
	}
	return nil
}

func (s *SQLiteStore) putDocument(ctx context.Context, key string, doc interface{}) error {
	value, err := json.Marshal(doc)
	if err != nil {
		return &apperrors.StorageError{Op: "encode", Key: key, Err: err}
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO documents (key, value, updated_at)
		VALUES (?, ?, ?)
	`, key, string(value), time.Now())
	if err != nil {
		return &apperrors.StorageError{Op: "put", Key: key, Err: err}
	}
	return nil
}

// Config returns the discipline configuration.
func (s *SQLiteStore) Config(ctx context.Context) (models.Config, error) {
	var cfg models.Config
	err := s.getDocument(ctx, keyConfig, &cfg)
	return cfg, err
}

// SaveConfig replaces the discipline configuration.
func (s *SQLiteStore) SaveConfig(ctx context.Context, cfg models.Config) error {
	return s.putDocument(ctx, keyConfig, cfg)
}

// Session returns the current day's session data.
func (s *SQLiteStore) Session(ctx context.Context) (models.SessionData, error) {
	var session models.SessionData
	err := s.getDocument(ctx, keySession, &session)
	return session, err
}

// SaveSession replaces the current day's session data.
func (s *SQLiteStore) SaveSession(ctx context.Context, session models.SessionData) error {
	return s.putDocument(ctx, keySession, session)
}

// State returns the persisted protocol state.
func (s *SQLiteStore) State(ctx context.Context) (models.ProtocolState, error) {
	var state models.ProtocolState
	err := s.getDocument(ctx, keyState, &state)
	return state, err
}

// SaveState replaces the persisted protocol state.
func (s *SQLiteStore) SaveState(ctx context.Context, state models.ProtocolState) error {
	return s.putDocument(ctx, keyState, state)
}

// Day returns one archived day record.
func (s *SQLiteStore) Day(ctx context.Context, dateKey string) (models.DayRecord, error) {
	var record models.DayRecord
	var value string
	err := s.db.QueryRowContext(ctx, `
		SELECT record FROM pnl_history WHERE date_key = ?
	`, dateKey).Scan(&value)
	if err == sql.ErrNoRows {
		return record, apperrors.ErrDataNotFound
	}
	if err != nil {
		return record, &apperrors.StorageError{Op: "get day", Key: dateKey, Err: err}
	}
	if err := json.Unmarshal([]byte(value), &record); err != nil {
		return record, &apperrors.StorageError{Op: "decode day", Key: dateKey, Err: err}
	}
	return record, nil
}

// SaveDay upserts one day record.
func (s *SQLiteStore) SaveDay(ctx context.Context, dateKey string, record models.DayRecord) error {
	value, err := json.Marshal(record)
	if err != nil {
		return &apperrors.StorageError{Op: "encode day", Key: dateKey, Err: err}
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO pnl_history (date_key, record, updated_at)
		VALUES (?, ?, ?)
	`, dateKey, string(value), time.Now())
	if err != nil {
		return &apperrors.StorageError{Op: "save day", Key: dateKey, Err: err}
	}
	return nil
}

// History returns day records within [from, to] inclusive. Lexicographic
// comparison on YYYY-MM-DD keys is chronological.
func (s *SQLiteStore) History(ctx context.Context, from, to string) (map[string]models.DayRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date_key, record FROM pnl_history
		WHERE date_key >= ? AND date_key <= ?
		ORDER BY date_key ASC
	`, from, to)
	if err != nil {
		return nil, &apperrors.StorageError{Op: "query history", Err: err}
	}
	defer rows.Close()

	history := make(map[string]models.DayRecord)
	for rows.Next() {
		var dateKey, value string
		if err := rows.Scan(&dateKey, &value); err != nil {
			return nil, &apperrors.StorageError{Op: "scan history", Err: err}
		}
		var record models.DayRecord
		if err := json.Unmarshal([]byte(value), &record); err != nil {
			return nil, &apperrors.StorageError{Op: "decode history", Key: dateKey, Err: err}
		}
		history[dateKey] = record
	}

	return history, rows.Err()
}

// AppendJournal stores one journal entry, minting a ULID when the entry
// has no ID.
func (s *SQLiteStore) AppendJournal(ctx context.Context, entry *models.JournalEntry) error {
	if entry.ID == "" {
		entry.ID = ulid.MustNew(ulid.Timestamp(entry.Timestamp), s.entropy).String()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO journals (id, timestamp, within_setup, rule_violation, emotion, should_continue, continue_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.Timestamp, string(entry.WithinSetup), entry.RuleViolation,
		string(entry.Emotion), string(entry.ShouldContinue), entry.ContinueReason)
	if err != nil {
		return &apperrors.StorageError{Op: "append journal", Key: entry.ID, Err: err}
	}
	return nil
}

// Journals retrieves journal entries matching the filter, newest first.
func (s *SQLiteStore) Journals(ctx context.Context, filter JournalFilter) ([]models.JournalEntry, error) {
	query := `SELECT id, timestamp, within_setup, rule_violation, emotion, should_continue, continue_reason FROM journals WHERE 1=1`
	args := []interface{}{}

	if !filter.StartDate.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, filter.StartDate)
	}
	if !filter.EndDate.IsZero() {
		query += " AND timestamp <= ?"
		args = append(args, filter.EndDate)
	}
	if filter.Emotion != "" {
		query += " AND emotion = ?"
		args = append(args, string(filter.Emotion))
	}

	query += " ORDER BY timestamp DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &apperrors.StorageError{Op: "query journals", Err: err}
	}
	defer rows.Close()

	var entries []models.JournalEntry
	for rows.Next() {
		var e models.JournalEntry
		var withinSetup, emotion, shouldContinue string
		if err := rows.Scan(&e.ID, &e.Timestamp, &withinSetup, &e.RuleViolation, &emotion, &shouldContinue, &e.ContinueReason); err != nil {
			return nil, &apperrors.StorageError{Op: "scan journal", Err: err}
		}
		e.WithinSetup = models.Answer(withinSetup)
		e.Emotion = models.Emotion(emotion)
		e.ShouldContinue = models.Answer(shouldContinue)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
