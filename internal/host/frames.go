package host

import (
	"encoding/json"
	"time"

	"anchor/internal/models"
	"anchor/internal/scrape"
)

// Frame types exchanged with the page companion. The companion pushes
// page snapshots and user actions in; the host pushes overlay commands
// out.
const (
	// Inbound
	FrameHello           = "hello"
	FrameSnapshot        = "snapshot"
	FrameCooldownExpired = "cooldown_expired"
	FrameJournal         = "journal"

	// Outbound
	FrameState            = "state"
	FrameTriggerCooldown  = "trigger_cooldown"
	FrameCooldownComplete = "cooldown_complete"
	FrameError            = "error"
)

// Frame is the websocket envelope. Payload decoding depends on Type.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// HelloPayload identifies a connecting companion.
type HelloPayload struct {
	Page    string `json:"page,omitempty"`
	Version string `json:"version,omitempty"`
}

// JournalPayload carries a submitted journal form.
type JournalPayload struct {
	Entry models.JournalEntry `json:"entry"`
}

// StatePayload is the hello reply: current protocol state plus the
// discipline configuration, enough for the companion to rebuild its
// overlay after a reload.
type StatePayload struct {
	State       models.ProtocolState `json:"state"`
	Config      models.Config        `json:"config"`
	RemainingMS int64                `json:"remainingMs"`
}

// TriggerCooldownPayload commands the companion to raise the overlay.
type TriggerCooldownPayload struct {
	Reason      string    `json:"reason"`
	CooldownEnd time.Time `json:"cooldownEnd,omitempty"`
	Locked      bool      `json:"locked"`
	Quote       string    `json:"quote"`
}

// ErrorPayload reports a rejected inbound frame.
type ErrorPayload struct {
	Message string `json:"message"`
}

func newFrame(frameType string, payload interface{}) (Frame, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Type: frameType, Payload: raw}, nil
}

func decodeJSON(raw json.RawMessage, out interface{}) error {
	return json.Unmarshal(raw, out)
}

// decodeSnapshot decodes a snapshot payload, defaulting Taken to now
// when the companion omits it.
func decodeSnapshot(raw json.RawMessage, now time.Time) (*scrape.Snapshot, error) {
	var snap scrape.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, err
	}
	if snap.Taken.IsZero() {
		snap.Taken = now
	}
	return &snap, nil
}
