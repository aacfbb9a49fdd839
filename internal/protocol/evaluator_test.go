package protocol

import (
	"testing"
	"time"

	"anchor/internal/models"
)

func allTriggersConfig() models.Config {
	return models.Config{
		Mode: models.ModeCustom,
		CustomTriggers: models.TriggerRules{
			ConsecutiveLosses: 2,
			MaxDailyLoss:      300,
			TradeBurst:        models.BurstRule{Count: 3, Minutes: 10},
			MaxLossBehavior:   models.MaxLossJournal,
		},
		CooldownMinutes: 15,
		EnabledTriggers: models.KnownTriggers,
	}
}

func TestEvaluateNoTrigger(t *testing.T) {
	now := time.Date(2026, 8, 14, 10, 0, 0, 0, time.UTC)
	session := models.SessionData{DailyPnL: -100, ConsecutiveLosses: 1}

	if trig, ok := Evaluate(allTriggersConfig(), session, now); ok {
		t.Errorf("Evaluate fired %+v on a quiet session", trig)
	}
}

func TestEvaluateConsecutiveLosses(t *testing.T) {
	now := time.Date(2026, 8, 14, 10, 0, 0, 0, time.UTC)
	session := models.SessionData{ConsecutiveLosses: 2}

	trig, ok := Evaluate(allTriggersConfig(), session, now)
	if !ok {
		t.Fatal("Evaluate did not fire")
	}
	if trig.Kind != models.TriggerConsecutiveLosses {
		t.Errorf("Kind = %q, want consecutiveLosses", trig.Kind)
	}
	if trig.Reason != "2 consecutive losses" {
		t.Errorf("Reason = %q", trig.Reason)
	}
	if trig.Lock {
		t.Error("loss streak must not lock the day")
	}
}

func TestEvaluateDailyLossJournal(t *testing.T) {
	now := time.Date(2026, 8, 14, 10, 0, 0, 0, time.UTC)

	trig, ok := Evaluate(allTriggersConfig(), models.SessionData{DailyPnL: -300}, now)
	if !ok {
		t.Fatal("Evaluate did not fire at the exact limit")
	}
	if trig.Kind != models.TriggerMaxDailyLoss {
		t.Errorf("Kind = %q, want maxDailyLoss", trig.Kind)
	}
	if trig.Lock {
		t.Error("journal behavior must not lock")
	}

	// The reason carries the actual loss, not the configured limit.
	trig, ok = Evaluate(allTriggersConfig(), models.SessionData{DailyPnL: -320.5}, now)
	if !ok {
		t.Fatal("Evaluate did not fire past the limit")
	}
	if trig.Reason != "Daily loss limit: $320.50" {
		t.Errorf("Reason = %q, want actual loss", trig.Reason)
	}
}

func TestEvaluateDailyLossLockDay(t *testing.T) {
	now := time.Date(2026, 8, 14, 10, 0, 0, 0, time.UTC)
	cfg := allTriggersConfig()
	cfg.CustomTriggers.MaxLossBehavior = models.MaxLossLockDay
	session := models.SessionData{DailyPnL: -350}

	trig, ok := Evaluate(cfg, session, now)
	if !ok {
		t.Fatal("Evaluate did not fire")
	}
	if !trig.Lock {
		t.Error("lockDay behavior must lock")
	}
	if trig.Reason != "Daily loss limit reached - "+LockReasonMarker {
		t.Errorf("Reason = %q", trig.Reason)
	}
}

func TestEvaluateTradeBurstWindow(t *testing.T) {
	now := time.Date(2026, 8, 14, 10, 0, 0, 0, time.UTC)
	session := models.SessionData{
		DailyPnL: 50,
		Trades: []models.Trade{
			{Timestamp: now.Add(-30 * time.Minute), PnL: 10}, // aged out
			{Timestamp: now.Add(-8 * time.Minute), PnL: 10},
			{Timestamp: now.Add(-5 * time.Minute), PnL: 20},
			{Timestamp: now.Add(-1 * time.Minute), PnL: 20},
		},
	}

	trig, ok := Evaluate(allTriggersConfig(), session, now)
	if !ok {
		t.Fatal("Evaluate did not fire")
	}
	if trig.Kind != models.TriggerTradeBurst {
		t.Errorf("Kind = %q, want tradeBurst", trig.Kind)
	}
	// Reason reports the in-window count, not the threshold.
	if trig.Reason != "3 trades in 10 minutes" {
		t.Errorf("Reason = %q", trig.Reason)
	}

	// With the oldest in-window trade aged out, the burst no longer fires.
	later := now.Add(3 * time.Minute)
	if _, ok := Evaluate(allTriggersConfig(), session, later); ok {
		t.Error("burst fired after trades aged out of the window")
	}
}

func TestEvaluatePrecedence(t *testing.T) {
	now := time.Date(2026, 8, 14, 10, 0, 0, 0, time.UTC)
	// Session state satisfies all three rules at once.
	session := models.SessionData{
		DailyPnL:          -500,
		ConsecutiveLosses: 3,
		Trades: []models.Trade{
			{Timestamp: now.Add(-3 * time.Minute), PnL: -100},
			{Timestamp: now.Add(-2 * time.Minute), PnL: -200},
			{Timestamp: now.Add(-1 * time.Minute), PnL: -200},
		},
	}

	trig, ok := Evaluate(allTriggersConfig(), session, now)
	if !ok {
		t.Fatal("Evaluate did not fire")
	}
	if trig.Kind != models.TriggerConsecutiveLosses {
		t.Errorf("Kind = %q, want consecutiveLosses first", trig.Kind)
	}

	// Disabling the streak rule exposes the loss limit next.
	cfg := allTriggersConfig()
	cfg.EnabledTriggers = []models.TriggerKind{models.TriggerMaxDailyLoss, models.TriggerTradeBurst}
	trig, ok = Evaluate(cfg, session, now)
	if !ok {
		t.Fatal("Evaluate did not fire")
	}
	if trig.Kind != models.TriggerMaxDailyLoss {
		t.Errorf("Kind = %q, want maxDailyLoss second", trig.Kind)
	}

	cfg.EnabledTriggers = []models.TriggerKind{models.TriggerTradeBurst}
	trig, ok = Evaluate(cfg, session, now)
	if !ok {
		t.Fatal("Evaluate did not fire")
	}
	if trig.Kind != models.TriggerTradeBurst {
		t.Errorf("Kind = %q, want tradeBurst last", trig.Kind)
	}
}

func TestEvaluateDisabledTriggers(t *testing.T) {
	now := time.Date(2026, 8, 14, 10, 0, 0, 0, time.UTC)
	cfg := allTriggersConfig()
	cfg.EnabledTriggers = nil
	session := models.SessionData{
		DailyPnL:          -500,
		ConsecutiveLosses: 5,
	}

	if trig, ok := Evaluate(cfg, session, now); ok {
		t.Errorf("disabled rules fired: %+v", trig)
	}
}

func TestEvaluateZeroThresholdsNeverFire(t *testing.T) {
	now := time.Date(2026, 8, 14, 10, 0, 0, 0, time.UTC)
	cfg := allTriggersConfig()
	cfg.CustomTriggers = models.TriggerRules{}
	session := models.SessionData{
		DailyPnL:          -1000,
		ConsecutiveLosses: 10,
		Trades:            []models.Trade{{Timestamp: now, PnL: -1}},
	}

	if trig, ok := Evaluate(cfg, session, now); ok {
		t.Errorf("zero-valued thresholds fired: %+v", trig)
	}
}
