// Package protocol implements the intervention core: trigger rule
// evaluation and the active/cooldown/locked state machine.
package protocol

import (
	"fmt"
	"math"
	"time"

	"anchor/internal/models"
)

// LockReasonMarker is the substring in a trigger reason that marks a
// day lock. Presentation surfaces key off it in addition to the Locked
// flag, so it is part of the wire contract.
const LockReasonMarker = "session ended"

// Trigger is one fired intervention rule.
type Trigger struct {
	Kind   models.TriggerKind
	Reason string
	Lock   bool
}

// Evaluate checks the enabled trigger rules against the session in
// fixed precedence: loss streak, then daily loss limit, then trade
// burst. The first rule that fires wins; ok is false when none does.
func Evaluate(cfg models.Config, session models.SessionData, now time.Time) (Trigger, bool) {
	rules := cfg.CustomTriggers

	if cfg.TriggerEnabled(models.TriggerConsecutiveLosses) &&
		rules.ConsecutiveLosses > 0 &&
		session.ConsecutiveLosses >= rules.ConsecutiveLosses {
		return Trigger{
			Kind:   models.TriggerConsecutiveLosses,
			Reason: fmt.Sprintf("%d consecutive losses", session.ConsecutiveLosses),
		}, true
	}

	if cfg.TriggerEnabled(models.TriggerMaxDailyLoss) &&
		rules.MaxDailyLoss > 0 &&
		session.DailyPnL <= -rules.MaxDailyLoss {
		if rules.MaxLossBehavior == models.MaxLossLockDay {
			return Trigger{
				Kind:   models.TriggerMaxDailyLoss,
				Reason: "Daily loss limit reached - " + LockReasonMarker,
				Lock:   true,
			}, true
		}
		// The reason reports the actual loss, not the configured limit.
		return Trigger{
			Kind:   models.TriggerMaxDailyLoss,
			Reason: fmt.Sprintf("Daily loss limit: $%.2f", math.Abs(session.DailyPnL)),
		}, true
	}

	if cfg.TriggerEnabled(models.TriggerTradeBurst) &&
		rules.TradeBurst.Count > 0 && rules.TradeBurst.Minutes > 0 {
		window := time.Duration(rules.TradeBurst.Minutes) * time.Minute
		cutoff := now.Add(-window)
		recent := 0
		for _, t := range session.Trades {
			if t.Timestamp.After(cutoff) {
				recent++
			}
		}
		if recent >= rules.TradeBurst.Count {
			return Trigger{
				Kind:   models.TriggerTradeBurst,
				Reason: fmt.Sprintf("%d trades in %d minutes", recent, rules.TradeBurst.Minutes),
			}, true
		}
	}

	return Trigger{}, false
}
