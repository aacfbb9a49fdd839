package guard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"anchor/internal/bus"
	apperrors "anchor/internal/errors"
	"anchor/internal/models"
	"anchor/internal/protocol"
	"anchor/internal/session"
	"anchor/internal/store"
)

type guardFixture struct {
	guard   *Guard
	store   *store.MemoryStore
	hub     *bus.Hub
	machine *protocol.Machine
	clock   time.Time
}

func newFixture(t *testing.T) *guardFixture {
	t.Helper()
	f := &guardFixture{
		store: store.NewMemoryStore(),
		hub:   bus.NewHub(),
		clock: time.Date(2026, 8, 14, 10, 0, 0, 0, time.UTC),
	}
	now := func() time.Time { return f.clock }

	sessions := session.NewAggregator(f.store, time.UTC, zerolog.Nop())
	sessions.SetClock(now)
	f.machine = protocol.NewMachine(f.store, f.hub, time.UTC, zerolog.Nop())
	f.machine.SetClock(now)
	f.guard = New(f.store, sessions, f.machine, time.UTC, zerolog.Nop())
	f.guard.SetClock(now)

	if err := f.guard.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	return f
}

func TestInitSeedsDefaults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cfg, err := f.store.Config(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Mode != models.ModeStructured {
		t.Errorf("seeded mode = %q, want structured", cfg.Mode)
	}

	sess, err := f.store.Session(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if sess.LastResetDate != "2026-08-14" {
		t.Errorf("seeded LastResetDate = %q", sess.LastResetDate)
	}

	state, err := f.store.State(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if state.Current != models.StateActive {
		t.Errorf("seeded state = %q, want active", state.Current)
	}

	// Re-running Init must not clobber a changed configuration.
	cfg.Mode = models.ModeScalper
	if err := f.store.SaveConfig(ctx, cfg); err != nil {
		t.Fatal(err)
	}
	if err := f.guard.Init(ctx); err != nil {
		t.Fatal(err)
	}
	cfg, _ = f.store.Config(ctx)
	if cfg.Mode != models.ModeScalper {
		t.Error("Init overwrote an existing configuration")
	}
}

func TestLossStreakFiresCooldown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.guard.TradeDetected(ctx, bus.TradeDetected{PnL: -50, Timestamp: f.clock}); err != nil {
		t.Fatal(err)
	}
	state, err := f.guard.State(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if state.Current != models.StateActive {
		t.Fatalf("one loss already fired: %q", state.Current)
	}

	if err := f.guard.TradeDetected(ctx, bus.TradeDetected{PnL: -75, Timestamp: f.clock}); err != nil {
		t.Fatal(err)
	}
	state, err = f.guard.State(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if state.Current != models.StateCooldown {
		t.Fatalf("state = %q, want cooldown", state.Current)
	}
	if state.TriggerReason != "2 consecutive losses" {
		t.Errorf("reason = %q", state.TriggerReason)
	}
	wantEnd := f.clock.Add(15 * time.Minute)
	if !state.CooldownEnd.Equal(wantEnd) {
		t.Errorf("CooldownEnd = %v, want %v", state.CooldownEnd, wantEnd)
	}
}

func TestTradesDuringCooldownStillCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := f.guard.TradeDetected(ctx, bus.TradeDetected{PnL: -50, Timestamp: f.clock}); err != nil {
			t.Fatal(err)
		}
	}

	// A third loss lands during the cooldown: counted, no second fire.
	if err := f.guard.TradeDetected(ctx, bus.TradeDetected{PnL: -25, Timestamp: f.clock}); err != nil {
		t.Fatal(err)
	}
	sess, err := f.store.Session(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if sess.ConsecutiveLosses != 3 || len(sess.Trades) != 3 {
		t.Errorf("session = %+v", sess)
	}
	state, _ := f.guard.State(ctx)
	if state.TriggerReason != "2 consecutive losses" {
		t.Errorf("reason changed mid-cooldown: %q", state.TriggerReason)
	}
}

func TestDailyLossLockViaUpdateConfig(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cfg, _ := f.guard.Config(ctx)
	cfg.Mode = models.ModeCustom
	cfg.CustomTriggers.MaxDailyLoss = 200
	cfg.CustomTriggers.MaxLossBehavior = models.MaxLossLockDay
	cfg.EnabledTriggers = []models.TriggerKind{models.TriggerMaxDailyLoss}
	if err := f.guard.UpdateConfig(ctx, cfg); err != nil {
		t.Fatal(err)
	}

	if err := f.guard.SimTrade(ctx, -250); err != nil {
		t.Fatal(err)
	}
	state, err := f.guard.State(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if state.Current != models.StateLocked {
		t.Fatalf("state = %q, want locked", state.Current)
	}

	// The lock survives a cooldown-expired report; only a day reset clears it.
	if err := f.guard.CooldownExpired(ctx); err != nil {
		t.Fatal(err)
	}
	state, _ = f.guard.State(ctx)
	if state.Current != models.StateLocked {
		t.Error("expiry report cleared a day lock")
	}

	if err := f.guard.ResetDay(ctx); err != nil {
		t.Fatal(err)
	}
	state, _ = f.guard.State(ctx)
	if state.Current != models.StateActive {
		t.Errorf("state after reset = %q, want active", state.Current)
	}
	sess, _ := f.store.Session(ctx)
	if sess.DailyPnL != 0 || len(sess.Trades) != 0 {
		t.Errorf("session not zeroed by reset: %+v", sess)
	}
}

func TestTradeBurstViaSimTrade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cfg, _ := f.guard.Config(ctx)
	cfg.Mode = models.ModeCustom
	cfg.CustomTriggers.TradeBurst = models.BurstRule{Count: 3, Minutes: 10}
	cfg.EnabledTriggers = []models.TriggerKind{models.TriggerTradeBurst}
	if err := f.guard.UpdateConfig(ctx, cfg); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		f.clock = f.clock.Add(time.Minute)
		if err := f.guard.SimTrade(ctx, 10); err != nil {
			t.Fatal(err)
		}
	}
	state, err := f.guard.State(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if state.Current != models.StateCooldown {
		t.Fatalf("state = %q, want cooldown", state.Current)
	}
	if state.TriggerReason != "3 trades in 10 minutes" {
		t.Errorf("reason = %q", state.TriggerReason)
	}
}

func TestUpdateConfigRejectsInvalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cfg, _ := f.guard.Config(ctx)
	cfg.CooldownMinutes = 0
	err := f.guard.UpdateConfig(ctx, cfg)
	var verr *apperrors.ValidationError
	if !apperrors.As(err, &verr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}

	// The stored configuration is untouched.
	stored, _ := f.store.Config(ctx)
	if stored.CooldownMinutes != 15 {
		t.Errorf("invalid update was persisted: %+v", stored)
	}
}

func TestApplyModePreset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cfg, err := f.guard.ApplyModePreset(ctx, models.ModeScalper)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.CooldownMinutes != 5 {
		t.Errorf("scalper cooldown = %d, want 5", cfg.CooldownMinutes)
	}
	stored, _ := f.store.Config(ctx)
	if stored.Mode != models.ModeScalper {
		t.Errorf("stored mode = %q", stored.Mode)
	}

	if _, err := f.guard.ApplyModePreset(ctx, models.Mode("yolo")); !apperrors.Is(err, apperrors.ErrUnknownPreset) {
		t.Errorf("unknown preset err = %v, want ErrUnknownPreset", err)
	}
}

func TestJournalCompleteAttachesToDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.guard.JournalComplete(ctx, bus.JournalComplete{Entry: models.JournalEntry{
		WithinSetup:    models.AnswerNo,
		RuleViolation:  "chased the open",
		Emotion:        models.EmotionFrustration,
		ShouldContinue: models.AnswerYes,
		ContinueReason: "plan intact",
	}})
	if err != nil {
		t.Fatal(err)
	}

	entries, err := f.store.Journals(ctx, store.JournalFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d journal entries, want 1", len(entries))
	}
	if entries[0].ID == "" {
		t.Error("journal entry not assigned an ID")
	}
	if entries[0].Timestamp.IsZero() {
		t.Error("journal entry timestamp not defaulted")
	}

	record, err := f.store.Day(ctx, "2026-08-14")
	if err != nil {
		t.Fatal(err)
	}
	if len(record.Journals) != 1 {
		t.Errorf("day record journals = %d, want 1", len(record.Journals))
	}
}

// The trade path is an unlocked read-modify-write over the stored
// session; it relies on the router delivering one message at a time.
// Trades arriving from many goroutines at once must all land.
func TestConcurrentTradesAllRecorded(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	router := bus.NewRouter(f.guard, zerolog.Nop())

	const trades = 64
	var wg sync.WaitGroup
	for i := 0; i < trades; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := router.Dispatch(ctx, bus.TradeDetected{PnL: 10, Timestamp: f.clock}); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	sess, err := f.store.Session(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(sess.Trades) != trades {
		t.Errorf("recorded %d trades, want %d", len(sess.Trades), trades)
	}
	if sess.DailyPnL != float64(trades*10) {
		t.Errorf("DailyPnL = %v, want %v", sess.DailyPnL, trades*10)
	}
}

func TestStateRunsRollover(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.guard.SimTrade(ctx, -40); err != nil {
		t.Fatal(err)
	}

	f.clock = f.clock.AddDate(0, 0, 1)
	if _, err := f.guard.State(ctx); err != nil {
		t.Fatal(err)
	}

	sess, _ := f.store.Session(ctx)
	if sess.LastResetDate != "2026-08-15" || len(sess.Trades) != 0 {
		t.Errorf("State did not roll the session over: %+v", sess)
	}
	if _, err := f.store.Day(ctx, "2026-08-14"); err != nil {
		t.Errorf("yesterday not archived: %v", err)
	}
}
