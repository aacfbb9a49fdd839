// Package session owns the running trading-day state: daily P&L,
// consecutive losses, the trade list, and the day-rollover rules.
package session

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	apperrors "anchor/internal/errors"
	"anchor/internal/logging"
	"anchor/internal/models"
	"anchor/internal/store"
)

// Aggregator applies trades and snapshots to the current session and
// keeps today's day record mirrored in the history. All mutation of
// session data goes through it.
type Aggregator struct {
	store store.DataStore
	log   zerolog.Logger
	loc   *time.Location
	now   func() time.Time
}

// NewAggregator creates a session aggregator using the given timezone
// for day boundaries.
func NewAggregator(st store.DataStore, loc *time.Location, log zerolog.Logger) *Aggregator {
	if loc == nil {
		loc = time.Local
	}
	return &Aggregator{
		store: st,
		log:   logging.WithComponent(log, "session"),
		loc:   loc,
		now:   time.Now,
	}
}

// SetClock overrides the time source, for tests.
func (a *Aggregator) SetClock(now func() time.Time) {
	a.now = now
}

// Session returns the current session after applying any pending day
// rollover. Every read path goes through here, so a stale session can
// never be observed.
func (a *Aggregator) Session(ctx context.Context) (models.SessionData, error) {
	return a.rollIfNeeded(ctx)
}

// ApplyTrade records one inferred trade. When realizedTotal is present
// the daily P&L snaps to the broker's figure; otherwise the delta is
// accumulated. A winning trade resets the loss streak.
func (a *Aggregator) ApplyTrade(ctx context.Context, pnl float64, realizedTotal *float64) (models.SessionData, error) {
	session, err := a.rollIfNeeded(ctx)
	if err != nil {
		return session, err
	}

	now := a.now().In(a.loc)
	session.Trades = append(session.Trades, models.Trade{Timestamp: now, PnL: pnl})

	if realizedTotal != nil {
		session.DailyPnL = *realizedTotal
	} else {
		session.DailyPnL += pnl
	}

	if pnl < 0 {
		session.ConsecutiveLosses++
	} else {
		session.ConsecutiveLosses = 0
	}

	if err := a.store.SaveSession(ctx, session); err != nil {
		return session, err
	}
	if err := a.mirrorToday(ctx, session); err != nil {
		return session, err
	}

	logging.LogTrade(a.log, pnl, session.DailyPnL)
	return session, nil
}

// ApplySnapshot syncs the daily P&L to the broker's realized total
// without counting a trade.
func (a *Aggregator) ApplySnapshot(ctx context.Context, realizedTotal float64) (models.SessionData, error) {
	session, err := a.rollIfNeeded(ctx)
	if err != nil {
		return session, err
	}
	if session.DailyPnL == realizedTotal {
		return session, nil
	}
	session.DailyPnL = realizedTotal
	if err := a.store.SaveSession(ctx, session); err != nil {
		return session, err
	}
	return session, a.mirrorToday(ctx, session)
}

// ResetDay zeroes the current session. Today's archived aggregates are
// zeroed too; journals and trigger history for the day are kept.
func (a *Aggregator) ResetDay(ctx context.Context) (models.SessionData, error) {
	now := a.now().In(a.loc)
	session := models.SessionData{LastResetDate: models.DateKey(now)}
	if err := a.store.SaveSession(ctx, session); err != nil {
		return session, err
	}
	if err := a.mirrorToday(ctx, session); err != nil {
		return session, err
	}
	a.log.Info().Str("date", session.LastResetDate).Msg("Session reset")
	return session, nil
}

// Rollover forces a rollover check. Called by the scheduled job shortly
// after midnight so archiving does not wait for the next page event.
func (a *Aggregator) Rollover(ctx context.Context) error {
	_, err := a.rollIfNeeded(ctx)
	return err
}

// rollIfNeeded archives yesterday's session and starts a fresh one when
// the stored date key is not today. An empty day (no P&L, no trades)
// is not archived. The reset itself is unconditional, so a session with
// a stale date can never leak into the new day.
func (a *Aggregator) rollIfNeeded(ctx context.Context) (models.SessionData, error) {
	session, err := a.store.Session(ctx)
	if err != nil {
		if !apperrors.Is(err, apperrors.ErrDataNotFound) {
			return session, err
		}
		session = models.SessionData{}
	}

	now := a.now().In(a.loc)
	today := models.DateKey(now)
	if session.LastResetDate == today {
		return session, nil
	}

	if session.DailyPnL != 0 || len(session.Trades) > 0 {
		// The session being archived belongs to the previous day
		// regardless of how its stored date reads.
		archiveKey := models.DateKey(now.AddDate(0, 0, -1))
		if err := a.archive(ctx, archiveKey, session); err != nil {
			return session, err
		}
		logging.LogRollover(a.log, archiveKey, session.DailyPnL, len(session.Trades))
	}

	session = models.SessionData{LastResetDate: today}
	if err := a.store.SaveSession(ctx, session); err != nil {
		return session, err
	}
	return session, nil
}

// archive upserts a day record, preserving journals and trigger history
// already stored under the key.
func (a *Aggregator) archive(ctx context.Context, dateKey string, session models.SessionData) error {
	record, err := a.store.Day(ctx, dateKey)
	if err != nil && !apperrors.Is(err, apperrors.ErrDataNotFound) {
		return err
	}
	record.PnL = session.DailyPnL
	record.Trades = session.Trades
	return a.store.SaveDay(ctx, dateKey, record)
}

// mirrorToday keeps today's history record in step with the live
// session so the calendar shows the current day without waiting for
// rollover.
func (a *Aggregator) mirrorToday(ctx context.Context, session models.SessionData) error {
	return a.archive(ctx, session.LastResetDate, session)
}
