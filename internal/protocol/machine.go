package protocol

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"anchor/internal/bus"
	apperrors "anchor/internal/errors"
	"anchor/internal/logging"
	"anchor/internal/models"
	"anchor/internal/store"
)

// Machine is the persisted intervention state machine. Transitions are
// written to storage before they are announced, so a crash between the
// two re-announces on resume instead of losing the state.
type Machine struct {
	store store.DataStore
	hub   *bus.Hub
	log   zerolog.Logger
	loc   *time.Location
	now   func() time.Time
}

// NewMachine creates a protocol state machine.
func NewMachine(st store.DataStore, hub *bus.Hub, loc *time.Location, log zerolog.Logger) *Machine {
	if loc == nil {
		loc = time.Local
	}
	return &Machine{
		store: st,
		hub:   hub,
		log:   logging.WithComponent(log, "protocol"),
		loc:   loc,
		now:   time.Now,
	}
}

// SetClock overrides the time source, for tests.
func (m *Machine) SetClock(now func() time.Time) {
	m.now = now
}

// Current returns the persisted protocol state. A cooldown whose end
// instant has already passed is reported as expired via Remaining; the
// state itself only changes through Expire.
func (m *Machine) Current(ctx context.Context) (models.ProtocolState, error) {
	state, err := m.store.State(ctx)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrDataNotFound) {
			return models.ProtocolState{Current: models.StateActive}, nil
		}
		return state, err
	}
	if state.Current == "" {
		state.Current = models.StateActive
	}
	return state, nil
}

// Fire transitions into cooldown (or locked) for the given trigger and
// announces it. The trigger reason is appended to today's day record.
// Firing while already in cooldown or locked is a no-op: the first
// intervention of the day's episode wins.
func (m *Machine) Fire(ctx context.Context, t Trigger, cooldownMinutes int) (models.ProtocolState, error) {
	state, err := m.Current(ctx)
	if err != nil {
		return state, err
	}
	if state.Current != models.StateActive {
		return state, nil
	}

	now := m.now().In(m.loc)
	from := state.Current
	if t.Lock {
		state = models.ProtocolState{
			Current:       models.StateLocked,
			TriggerReason: t.Reason,
		}
	} else {
		state = models.ProtocolState{
			Current:       models.StateCooldown,
			CooldownEnd:   now.Add(time.Duration(cooldownMinutes) * time.Minute),
			TriggerReason: t.Reason,
		}
	}

	if err := m.store.SaveState(ctx, state); err != nil {
		return state, err
	}
	if err := m.recordTrigger(ctx, now, t.Reason); err != nil {
		return state, err
	}

	logging.LogTrigger(m.log, t.Reason, t.Lock)
	logging.LogTransition(m.log, string(from), string(state.Current), t.Reason)
	m.hub.Publish(bus.TriggerCooldown{
		Reason:      t.Reason,
		CooldownEnd: state.CooldownEnd,
		Locked:      t.Lock,
	})
	return state, nil
}

// Expire completes a cooldown. Locked sessions do not expire; the only
// way out of locked is a day reset. Expiry before the persisted end
// instant is refused, so a fast client clock cannot shorten a cooldown.
func (m *Machine) Expire(ctx context.Context) (models.ProtocolState, error) {
	state, err := m.Current(ctx)
	if err != nil {
		return state, err
	}
	if state.Current != models.StateCooldown {
		return state, apperrors.ErrNotCoolingDown
	}

	now := m.now().In(m.loc)
	if now.Before(state.CooldownEnd) {
		return state, apperrors.ErrNotCoolingDown
	}

	from := state.Current
	state = models.ProtocolState{Current: models.StateActive}
	if err := m.store.SaveState(ctx, state); err != nil {
		return state, err
	}

	logging.LogTransition(m.log, string(from), string(state.Current), "cooldown complete")
	m.hub.Publish(bus.CooldownComplete{})
	return state, nil
}

// Reset forces the state back to active, clearing any cooldown or day
// lock. Used by the day reset path.
func (m *Machine) Reset(ctx context.Context) (models.ProtocolState, error) {
	state, err := m.Current(ctx)
	if err != nil {
		return state, err
	}

	from := state.Current
	state = models.ProtocolState{Current: models.StateActive}
	if err := m.store.SaveState(ctx, state); err != nil {
		return state, err
	}

	if from != models.StateActive {
		logging.LogTransition(m.log, string(from), string(state.Current), "manual reset")
		m.hub.Publish(bus.CooldownComplete{})
	}
	return state, nil
}

// recordTrigger appends the trigger reason to today's day record.
func (m *Machine) recordTrigger(ctx context.Context, now time.Time, reason string) error {
	dateKey := models.DateKey(now)
	record, err := m.store.Day(ctx, dateKey)
	if err != nil && !apperrors.Is(err, apperrors.ErrDataNotFound) {
		return err
	}
	record.Triggers = append(record.Triggers, reason)
	return m.store.SaveDay(ctx, dateKey, record)
}
