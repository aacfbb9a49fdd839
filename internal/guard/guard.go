// Package guard coordinates the discipline core: it owns the message
// handling that connects trade detection, session accounting, trigger
// evaluation, and the protocol state machine.
package guard

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"anchor/internal/bus"
	"anchor/internal/config"
	apperrors "anchor/internal/errors"
	"anchor/internal/logging"
	"anchor/internal/models"
	"anchor/internal/protocol"
	"anchor/internal/session"
	"anchor/internal/store"
)

// Guard implements bus.Handler. One instance owns all core state; the
// router serializes message handling, so Guard methods assume they run
// one at a time.
type Guard struct {
	store    store.DataStore
	sessions *session.Aggregator
	machine  *protocol.Machine
	log      zerolog.Logger
	loc      *time.Location
	now      func() time.Time
}

// New creates a guard around the given collaborators.
func New(st store.DataStore, sessions *session.Aggregator, machine *protocol.Machine, loc *time.Location, log zerolog.Logger) *Guard {
	if loc == nil {
		loc = time.Local
	}
	return &Guard{
		store:    st,
		sessions: sessions,
		machine:  machine,
		log:      logging.WithComponent(log, "guard"),
		loc:      loc,
		now:      time.Now,
	}
}

// SetClock overrides the time source, for tests.
func (g *Guard) SetClock(now func() time.Time) {
	g.now = now
}

// Init seeds storage on first run: default discipline configuration, an
// empty session dated today, and an active protocol state. Existing
// documents are left alone.
func (g *Guard) Init(ctx context.Context) error {
	if _, err := g.store.Config(ctx); err != nil {
		if !apperrors.Is(err, apperrors.ErrDataNotFound) {
			return err
		}
		if err := g.store.SaveConfig(ctx, config.DefaultDiscipline()); err != nil {
			return err
		}
		g.log.Info().Msg("Seeded default discipline configuration")
	}

	if _, err := g.store.Session(ctx); err != nil {
		if !apperrors.Is(err, apperrors.ErrDataNotFound) {
			return err
		}
		today := models.DateKey(g.now().In(g.loc))
		if err := g.store.SaveSession(ctx, models.SessionData{LastResetDate: today}); err != nil {
			return err
		}
	}

	if _, err := g.store.State(ctx); err != nil {
		if !apperrors.Is(err, apperrors.ErrDataNotFound) {
			return err
		}
		if err := g.store.SaveState(ctx, models.ProtocolState{Current: models.StateActive}); err != nil {
			return err
		}
	}

	return nil
}

// TradeDetected records the trade and evaluates the trigger rules.
// Trades that land during a cooldown or lock still count toward the
// session; they just cannot fire a second intervention.
func (g *Guard) TradeDetected(ctx context.Context, m bus.TradeDetected) error {
	sess, err := g.sessions.ApplyTrade(ctx, m.PnL, m.RealizedTotal)
	if err != nil {
		return err
	}

	state, err := g.machine.Current(ctx)
	if err != nil {
		return err
	}
	if state.Current != models.StateActive {
		return nil
	}

	cfg, err := g.Config(ctx)
	if err != nil {
		return err
	}

	if trigger, ok := protocol.Evaluate(cfg, sess, g.now().In(g.loc)); ok {
		_, err = g.machine.Fire(ctx, trigger, cfg.CooldownMinutes)
		return err
	}
	return nil
}

// PnLUpdate syncs the session to the broker's realized total.
func (g *Guard) PnLUpdate(ctx context.Context, m bus.PnLUpdate) error {
	_, err := g.sessions.ApplySnapshot(ctx, m.RealizedTotal)
	return err
}

// CooldownExpired completes a cooldown. A stale expiry, racing a manual
// reset or arriving twice, is swallowed.
func (g *Guard) CooldownExpired(ctx context.Context) error {
	_, err := g.machine.Expire(ctx)
	if apperrors.Is(err, apperrors.ErrNotCoolingDown) {
		return nil
	}
	return err
}

// JournalComplete stores a finished journal entry and attaches it to
// today's day record.
func (g *Guard) JournalComplete(ctx context.Context, m bus.JournalComplete) error {
	entry := m.Entry
	if entry.Timestamp.IsZero() {
		entry.Timestamp = g.now().In(g.loc)
	}
	if err := g.store.AppendJournal(ctx, &entry); err != nil {
		return err
	}

	dateKey := models.DateKey(entry.Timestamp)
	record, err := g.store.Day(ctx, dateKey)
	if err != nil && !apperrors.Is(err, apperrors.ErrDataNotFound) {
		return err
	}
	record.Journals = append(record.Journals, entry)
	if err := g.store.SaveDay(ctx, dateKey, record); err != nil {
		return err
	}

	g.log.Info().Str("id", entry.ID).Str("emotion", string(entry.Emotion)).Msg("Journal entry saved")
	return nil
}

// State returns the current protocol state after a rollover check.
func (g *Guard) State(ctx context.Context) (models.ProtocolState, error) {
	if err := g.sessions.Rollover(ctx); err != nil {
		return models.ProtocolState{}, err
	}
	return g.machine.Current(ctx)
}

// Config returns the discipline configuration, defaulting when storage
// has none yet.
func (g *Guard) Config(ctx context.Context) (models.Config, error) {
	cfg, err := g.store.Config(ctx)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrDataNotFound) {
			return config.DefaultDiscipline(), nil
		}
		return cfg, err
	}
	return cfg, nil
}

// UpdateConfig validates and persists a configuration wholesale.
func (g *Guard) UpdateConfig(ctx context.Context, cfg models.Config) error {
	if err := config.ValidateDiscipline(cfg); err != nil {
		return err
	}
	if err := g.store.SaveConfig(ctx, cfg); err != nil {
		return err
	}
	g.log.Info().Str("mode", string(cfg.Mode)).Msg("Configuration updated")
	return nil
}

// ApplyModePreset replaces the configuration with a named preset and
// returns the result.
func (g *Guard) ApplyModePreset(ctx context.Context, mode models.Mode) (models.Config, error) {
	cfg, err := config.ApplyPreset(mode)
	if err != nil {
		return cfg, err
	}
	if err := g.store.SaveConfig(ctx, cfg); err != nil {
		return cfg, err
	}
	g.log.Info().Str("mode", string(mode)).Msg("Preset applied")
	return cfg, nil
}

// ResetDay zeroes the session and forces the protocol back to active.
// This is also the only way out of a locked day.
func (g *Guard) ResetDay(ctx context.Context) error {
	if _, err := g.sessions.ResetDay(ctx); err != nil {
		return err
	}
	_, err := g.machine.Reset(ctx)
	return err
}

// SimTrade pushes a synthetic trade through the normal trade path.
func (g *Guard) SimTrade(ctx context.Context, pnl float64) error {
	return g.TradeDetected(ctx, bus.TradeDetected{PnL: pnl, Timestamp: g.now().In(g.loc)})
}
