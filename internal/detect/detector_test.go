package detect

import (
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"anchor/internal/bus"
	"anchor/internal/scrape"
)

func snapshotWithRealized(text string) *scrape.Snapshot {
	return &scrape.Snapshot{Nodes: []scrape.Node{
		{Text: "Realized P&L " + text, Parent: -1},
		{Text: "Realized P&L", Parent: 0},
		{Text: text, Parent: 0},
	}}
}

func newTestDetector() *Detector {
	d := New(scrape.NewLocator(), 0, zerolog.Nop())
	base := time.Date(2026, 8, 14, 10, 0, 0, 0, time.UTC)
	d.SetClock(func() time.Time { return base })
	return d
}

func tradeEvents(msgs []bus.Message) []bus.TradeDetected {
	var out []bus.TradeDetected
	for _, m := range msgs {
		if t, ok := m.(bus.TradeDetected); ok {
			out = append(out, t)
		}
	}
	return out
}

func TestDetectorSeedsWithoutEvent(t *testing.T) {
	d := newTestDetector()

	msgs := d.Scan(snapshotWithRealized("$150.00"))
	if len(tradeEvents(msgs)) != 0 {
		t.Fatal("first reading produced a trade event")
	}
	if !d.Seeded() {
		t.Fatal("detector not seeded after first reading")
	}

	// The update message still flows so the session tracks the total.
	var sawUpdate bool
	for _, m := range msgs {
		if u, ok := m.(bus.PnLUpdate); ok {
			sawUpdate = true
			if u.RealizedTotal != 150 {
				t.Errorf("PnLUpdate total = %v, want 150", u.RealizedTotal)
			}
		}
	}
	if !sawUpdate {
		t.Error("no PnLUpdate on seeding scan")
	}
}

func TestDetectorEmitsDelta(t *testing.T) {
	d := newTestDetector()
	d.Scan(snapshotWithRealized("$150.00"))

	msgs := d.Scan(snapshotWithRealized("$100.00"))
	trades := tradeEvents(msgs)
	if len(trades) != 1 {
		t.Fatalf("got %d trade events, want 1", len(trades))
	}
	if trades[0].PnL != -50 {
		t.Errorf("trade PnL = %v, want -50", trades[0].PnL)
	}
	if trades[0].RealizedTotal == nil || *trades[0].RealizedTotal != 100 {
		t.Errorf("trade RealizedTotal = %v, want 100", trades[0].RealizedTotal)
	}
}

func TestDetectorDuplicateReadingIsIdempotent(t *testing.T) {
	d := newTestDetector()
	d.Scan(snapshotWithRealized("$150.00"))
	d.Scan(snapshotWithRealized("$200.00"))

	// The poll backstop rescans the same snapshot; nothing new fires.
	for i := 0; i < 3; i++ {
		if trades := tradeEvents(d.Scan(snapshotWithRealized("$200.00"))); len(trades) != 0 {
			t.Fatalf("duplicate scan %d produced %d trade events", i, len(trades))
		}
	}
}

func TestDetectorNoiseFloor(t *testing.T) {
	d := newTestDetector()
	d.Scan(snapshotWithRealized("$100.00"))

	// Below the floor: no event, but the baseline moves.
	if trades := tradeEvents(d.Scan(snapshotWithRealized("$100.30"))); len(trades) != 0 {
		t.Fatal("sub-floor drift produced a trade event")
	}

	// The next reading deltas against the drifted baseline.
	trades := tradeEvents(d.Scan(snapshotWithRealized("$101.30")))
	if len(trades) != 1 {
		t.Fatalf("got %d trade events, want 1", len(trades))
	}
	if math.Abs(trades[0].PnL-1) > 1e-9 {
		t.Errorf("trade PnL = %v, want 1 (delta from drifted baseline)", trades[0].PnL)
	}
}

func TestDetectorMissingValueIsNoOp(t *testing.T) {
	d := newTestDetector()
	d.Scan(snapshotWithRealized("$100.00"))

	// A snapshot without the label must not emit anything or disturb
	// the baseline. Absence is never zero.
	empty := &scrape.Snapshot{Nodes: []scrape.Node{{Text: "loading", Parent: -1}}}
	if msgs := d.Scan(empty); len(msgs) != 0 {
		t.Fatalf("valueless snapshot produced %d messages", len(msgs))
	}

	if trades := tradeEvents(d.Scan(snapshotWithRealized("$100.00"))); len(trades) != 0 {
		t.Fatal("baseline was disturbed by a valueless snapshot")
	}
}

func TestDebouncerCoalesces(t *testing.T) {
	fired := make(chan struct{}, 8)
	d := NewDebouncer(20*time.Millisecond, func() { fired <- struct{}{} })
	defer d.Stop()

	for i := 0; i < 5; i++ {
		d.Trigger()
	}

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("debounced call never fired")
	}

	select {
	case <-fired:
		t.Fatal("burst of triggers fired more than once")
	case <-time.After(60 * time.Millisecond):
	}
}

func TestDebouncerStop(t *testing.T) {
	fired := make(chan struct{}, 1)
	d := NewDebouncer(20*time.Millisecond, func() { fired <- struct{}{} })

	d.Trigger()
	d.Stop()
	if d.Pending() {
		t.Error("Pending after Stop")
	}

	select {
	case <-fired:
		t.Fatal("stopped debouncer fired")
	case <-time.After(60 * time.Millisecond):
	}
}
