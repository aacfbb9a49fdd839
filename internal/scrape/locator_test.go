package scrape

import "testing"

// buildSnapshot wires a flat node list; parent indexes refer to earlier
// entries the way a document-order serialization would.
func buildSnapshot(nodes []Node) *Snapshot {
	return &Snapshot{Nodes: nodes}
}

func TestLocatorFindsRowValue(t *testing.T) {
	// row
	//   label "Realized P&L"
	//   value "$1,234.50"
	snap := buildSnapshot([]Node{
		{Text: "Realized P&L $1,234.50", Parent: -1},
		{Text: "Realized P&L", Parent: 0},
		{Text: "$1,234.50", Parent: 0},
	})

	loc := NewLocator()
	got, ok := loc.Find(snap)
	if !ok {
		t.Fatal("Find returned no value")
	}
	if got != 1234.5 {
		t.Errorf("Find = %v, want 1234.5", got)
	}
}

func TestLocatorPicksLastValueInRow(t *testing.T) {
	// Label-then-value layouts put the figure after the label; with
	// several parseable cells the last one wins.
	snap := buildSnapshot([]Node{
		{Text: "Unrealized $50.00 Realized P&L ($200.00)", Parent: -1},
		{Text: "$50.00", Parent: 0},
		{Text: "Realized P&L", Parent: 0},
		{Text: "($200.00)", Parent: 0},
	})

	loc := NewLocator()
	got, ok := loc.Find(snap)
	if !ok {
		t.Fatal("Find returned no value")
	}
	if got != -200 {
		t.Errorf("Find = %v, want -200", got)
	}
}

func TestLocatorClimbsToRowContainer(t *testing.T) {
	// The label sits in a wrapper; the value lives in a sibling branch.
	// The locator must climb until the container holds both.
	snap := buildSnapshot([]Node{
		{Text: "Realized P&L $88.25", Parent: -1}, // row
		{Text: "Realized P&L", Parent: 0},         // label wrapper
		{Text: "Realized P&L", Parent: 1},         // label
		{Text: "$88.25", Parent: 0},               // value wrapper
		{Text: "$88.25", Parent: 3},               // value
	})

	loc := NewLocator()
	got, ok := loc.Find(snap)
	if !ok {
		t.Fatal("Find returned no value")
	}
	if got != 88.25 {
		t.Errorf("Find = %v, want 88.25", got)
	}
}

func TestLocatorSkipsLabelTexts(t *testing.T) {
	// A row where every cell repeats the label text has no value.
	snap := buildSnapshot([]Node{
		{Text: "Realized P&L Realized P&L 1", Parent: -1},
		{Text: "Realized P&L", Parent: 0},
		{Text: "Realized P&L", Parent: 0},
	})

	loc := NewLocator()
	if _, ok := loc.Find(snap); ok {
		t.Error("Find found a value in a label-only row")
	}
}

func TestLocatorNoLabel(t *testing.T) {
	snap := buildSnapshot([]Node{
		{Text: "Unrealized P&L $10.00", Parent: -1},
		{Text: "Unrealized P&L", Parent: 0},
		{Text: "$10.00", Parent: 0},
	})

	loc := NewLocator()
	if _, ok := loc.Find(snap); ok {
		t.Error("Find matched without the target label present")
	}
}

func TestLocatorEmptySnapshot(t *testing.T) {
	loc := NewLocator()
	if _, ok := loc.Find(nil); ok {
		t.Error("Find on nil snapshot returned a value")
	}
	if _, ok := loc.Find(&Snapshot{}); ok {
		t.Error("Find on empty snapshot returned a value")
	}
}

func TestLocatorLabelPriority(t *testing.T) {
	// Two labels configured; the first that yields a value wins even
	// when the second appears earlier in the document.
	snap := buildSnapshot([]Node{
		{Text: "Day P&L $5.00", Parent: -1},
		{Text: "Day P&L", Parent: 0},
		{Text: "$5.00", Parent: 0},
		{Text: "Realized P&L $7.00", Parent: -1},
		{Text: "Realized P&L", Parent: 3},
		{Text: "$7.00", Parent: 3},
	})

	loc := NewLocator("Realized P&L", "Day P&L")
	got, ok := loc.Find(snap)
	if !ok {
		t.Fatal("Find returned no value")
	}
	if got != 7 {
		t.Errorf("Find = %v, want 7 (first label by priority)", got)
	}
}
