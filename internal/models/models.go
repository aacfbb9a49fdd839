// Package models provides domain models for the discipline guard.
package models

import (
	"time"
)

// Mode identifies a discipline configuration preset.
type Mode string

const (
	ModeScalper    Mode = "scalper"
	ModeStructured Mode = "structured"
	ModeReset      Mode = "reset"
	ModeCustom     Mode = "custom"
)

// TriggerKind identifies one of the three trigger rule families.
type TriggerKind string

const (
	TriggerConsecutiveLosses TriggerKind = "consecutiveLosses"
	TriggerMaxDailyLoss      TriggerKind = "maxDailyLoss"
	TriggerTradeBurst        TriggerKind = "tradeBurst"
)

// KnownTriggers lists every valid trigger kind.
var KnownTriggers = []TriggerKind{TriggerConsecutiveLosses, TriggerMaxDailyLoss, TriggerTradeBurst}

// MaxLossBehavior selects what happens when the daily loss limit is hit.
type MaxLossBehavior string

const (
	// MaxLossJournal opens an ordinary cooldown with a journal prompt.
	MaxLossJournal MaxLossBehavior = "journal"
	// MaxLossLockDay ends the session for the rest of the day.
	MaxLossLockDay MaxLossBehavior = "lockDay"
)

// BurstRule is the trade-frequency trigger: Count or more trades within
// a rolling window of Minutes.
type BurstRule struct {
	Count   int `json:"count"`
	Minutes int `json:"minutes"`
}

// TriggerRules holds the numeric thresholds for all trigger families.
type TriggerRules struct {
	ConsecutiveLosses int             `json:"consecutiveLosses"`
	MaxDailyLoss      float64         `json:"maxDailyLoss"`
	TradeBurst        BurstRule       `json:"tradeBurst"`
	MaxLossBehavior   MaxLossBehavior `json:"maxLossBehavior"`
}

// Config is the discipline configuration document. It is replaced
// wholesale on save; there is no partial merge.
type Config struct {
	Mode            Mode          `json:"mode"`
	CustomTriggers  TriggerRules  `json:"customTriggers"`
	CooldownMinutes int           `json:"cooldownMinutes"`
	EnabledTriggers []TriggerKind `json:"enabledTriggers"`
}

// TriggerEnabled reports whether the given trigger kind is enabled.
func (c Config) TriggerEnabled(k TriggerKind) bool {
	for _, t := range c.EnabledTriggers {
		if t == k {
			return true
		}
	}
	return false
}

// Trade is a single inferred trade: the signed realized-total delta at
// the moment the broker's figure moved.
type Trade struct {
	Timestamp time.Time `json:"timestamp"`
	PnL       float64   `json:"pnl"`
}

// SessionData is the running state for the current trading day. Owned by
// the session aggregator; all mutation goes through it.
type SessionData struct {
	// DailyPnL mirrors the broker's realized total when one is available.
	// Accumulating deltas is only the fallback.
	DailyPnL          float64 `json:"dailyPnL"`
	ConsecutiveLosses int     `json:"consecutiveLosses"`
	Trades            []Trade `json:"trades"`
	// LastResetDate is the YYYY-MM-DD date key of the current day.
	LastResetDate string `json:"lastResetDate"`
}

// StateName names a protocol state.
type StateName string

const (
	StateActive   StateName = "active"
	StateCooldown StateName = "cooldown"
	StateLocked   StateName = "locked"
)

// ProtocolState is the persisted intervention state. CooldownEnd and
// TriggerReason are zero-valued when Current is StateActive.
type ProtocolState struct {
	Current       StateName `json:"current"`
	CooldownEnd   time.Time `json:"cooldownEnd,omitempty"`
	TriggerReason string    `json:"triggerReason,omitempty"`
}

// Remaining returns the cooldown time left at now, floored at zero.
// Re-deriving from the persisted end instant keeps resumed countdowns
// idempotent across reloads.
func (s ProtocolState) Remaining(now time.Time) time.Duration {
	if s.Current != StateCooldown {
		return 0
	}
	if r := s.CooldownEnd.Sub(now); r > 0 {
		return r
	}
	return 0
}

// Answer is a yes/no journal field, stored as the literal strings the
// journal form produces.
type Answer string

const (
	AnswerYes Answer = "yes"
	AnswerNo  Answer = "no"
)

// Emotion values the journal form offers. Free-form values are accepted
// on read; these are the known set.
type Emotion string

const (
	EmotionNeutral     Emotion = "neutral"
	EmotionFrustration Emotion = "frustration"
	EmotionAnger       Emotion = "anger"
	EmotionFOMO        Emotion = "fomo"
	EmotionUrgency     Emotion = "urgency"
	EmotionCalm        Emotion = "calm"
)

// JournalEntry is the trader's self-report captured as the terminal
// action of a non-locked intervention. Immutable once stored.
type JournalEntry struct {
	ID             string    `json:"id,omitempty" csv:"id"`
	WithinSetup    Answer    `json:"withinSetup" csv:"within_setup"`
	RuleViolation  string    `json:"ruleViolation,omitempty" csv:"rule_violation"`
	Emotion        Emotion   `json:"emotion" csv:"emotion"`
	ShouldContinue Answer    `json:"shouldContinue" csv:"should_continue"`
	ContinueReason string    `json:"continueReason,omitempty" csv:"continue_reason"`
	Timestamp      time.Time `json:"timestamp" csv:"timestamp"`
}

// DayRecord is one calendar day's archived aggregates in the P&L history.
// The "today" record is continuously overwritten until rollover; prior
// days are never touched again.
type DayRecord struct {
	PnL      float64        `json:"pnl"`
	Trades   []Trade        `json:"trades"`
	Journals []JournalEntry `json:"journals"`
	Triggers []string       `json:"triggers"`
}

// DateKey formats t as the YYYY-MM-DD history key.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}
