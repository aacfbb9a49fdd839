// Package detect converts successive realized-total readings into
// discrete trade events.
package detect

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"anchor/internal/bus"
	"anchor/internal/scrape"
)

// DefaultNoiseFloor is the minimum absolute realized-total change that
// counts as a trade. Smaller drift is display jitter, not a fill.
const DefaultNoiseFloor = 0.5

// Detector holds the seeding/baseline state for trade inference. Both
// the debounced mutation path and the poll backstop funnel through
// Scan, so duplicate identical readings are naturally idempotent.
type Detector struct {
	locator    *scrape.Locator
	noiseFloor float64
	log        zerolog.Logger
	now        func() time.Time

	mu           sync.Mutex
	lastRealized float64
	hasSeeded    bool
}

// New creates a detector. A zero noiseFloor selects DefaultNoiseFloor.
func New(locator *scrape.Locator, noiseFloor float64, log zerolog.Logger) *Detector {
	if noiseFloor <= 0 {
		noiseFloor = DefaultNoiseFloor
	}
	return &Detector{
		locator:    locator,
		noiseFloor: noiseFloor,
		log:        log,
		now:        time.Now,
	}
}

// Scan runs one detection pass over a page snapshot and returns the
// messages to feed the core. When the locator finds nothing the pass
// is a no-op: no events, baseline untouched. Absence is never zero.
func (d *Detector) Scan(snap *scrape.Snapshot) []bus.Message {
	realized, ok := d.locator.Find(snap)
	if !ok {
		return nil
	}

	now := d.now()
	msgs := []bus.Message{bus.PnLUpdate{RealizedTotal: realized, Timestamp: now}}

	d.mu.Lock()
	defer d.mu.Unlock()

	// The first successful reading is the baseline, not a trade:
	// it reflects whatever P&L already existed before we attached.
	if !d.hasSeeded {
		d.hasSeeded = true
		d.lastRealized = realized
		d.log.Debug().Float64("realized", realized).Msg("Seeded realized baseline")
		return msgs
	}

	if realized != d.lastRealized {
		delta := realized - d.lastRealized
		if abs(delta) >= d.noiseFloor {
			total := realized
			msgs = append(msgs, bus.TradeDetected{
				PnL:           delta,
				RealizedTotal: &total,
				Timestamp:     now,
			})
			d.log.Debug().
				Float64("delta", delta).
				Float64("from", d.lastRealized).
				Float64("to", realized).
				Msg("Realized total moved")
		}
		// Sub-threshold drift still becomes the new baseline; only
		// the event emission is gated by the floor.
		d.lastRealized = realized
	}

	return msgs
}

// Seeded reports whether a baseline reading has been taken.
func (d *Detector) Seeded() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hasSeeded
}

// SetClock overrides the time source, for tests.
func (d *Detector) SetClock(now func() time.Time) {
	d.now = now
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
