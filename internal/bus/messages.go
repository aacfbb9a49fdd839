// Package bus provides the typed message router and the notification
// hub that connect the detection pipeline, the protocol core, and the
// presentation layer.
package bus

import (
	"time"

	"anchor/internal/models"
)

// Message is the closed union of inbound messages consumed by the
// core. The router dispatches exhaustively over these variants.
type Message interface {
	isMessage()
}

// TradeDetected carries one inferred trade. RealizedTotal is nil when
// the detector could not supply the broker's total and the delta must
// be accumulated instead.
type TradeDetected struct {
	PnL           float64
	RealizedTotal *float64
	Timestamp     time.Time
}

// PnLUpdate is a snapshot-only reading of the broker's realized total.
// It keeps the displayed total in sync without counting a trade.
type PnLUpdate struct {
	RealizedTotal float64
	Timestamp     time.Time
}

// CooldownExpired signals the end of a cooldown countdown.
type CooldownExpired struct{}

// JournalComplete carries a finished journal form submission.
type JournalComplete struct {
	Entry models.JournalEntry
}

// GetState requests the current protocol state.
type GetState struct{}

// GetConfig requests the current discipline configuration.
type GetConfig struct{}

// UpdateConfig replaces the discipline configuration wholesale.
type UpdateConfig struct {
	Config models.Config
}

// ApplyModePreset replaces the configuration with a named preset.
type ApplyModePreset struct {
	Mode models.Mode
}

// ResetDay zeroes the current session. The only way out of Locked.
type ResetDay struct{}

// SimTrade injects a synthetic trade through the normal pipeline, for
// testing the trigger path without a live page.
type SimTrade struct {
	PnL float64
}

func (TradeDetected) isMessage()   {}
func (PnLUpdate) isMessage()       {}
func (CooldownExpired) isMessage() {}
func (JournalComplete) isMessage() {}
func (GetState) isMessage()        {}
func (GetConfig) isMessage()       {}
func (UpdateConfig) isMessage()    {}
func (ApplyModePreset) isMessage() {}
func (ResetDay) isMessage()        {}
func (SimTrade) isMessage()        {}

// Notification is the closed union of outbound notifications produced
// by the core for the presentation layer.
type Notification interface {
	isNotification()
}

// TriggerCooldown tells the presentation layer to show an intervention
// overlay.
type TriggerCooldown struct {
	Reason      string
	CooldownEnd time.Time
	Locked      bool
}

// CooldownComplete tells the presentation layer to remove the overlay.
type CooldownComplete struct{}

func (TriggerCooldown) isNotification()  {}
func (CooldownComplete) isNotification() {}
