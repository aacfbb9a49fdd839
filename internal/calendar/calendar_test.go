package calendar

import (
	"context"
	"testing"
	"time"

	"anchor/internal/models"
	"anchor/internal/store"
)

func TestCollectMonth(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()

	st.SaveDay(ctx, "2026-08-03", models.DayRecord{PnL: 250, Trades: []models.Trade{{PnL: 250}}})
	st.SaveDay(ctx, "2026-08-04", models.DayRecord{PnL: -100, Trades: []models.Trade{{PnL: -40}, {PnL: -60}}})
	st.SaveDay(ctx, "2026-08-05", models.DayRecord{PnL: 400, Trades: []models.Trade{{PnL: 400}}})
	// A flat day: archived but neither win nor loss.
	st.SaveDay(ctx, "2026-08-06", models.DayRecord{PnL: 0, Trades: []models.Trade{{PnL: 50}, {PnL: -50}}})
	// Another month: excluded.
	st.SaveDay(ctx, "2026-07-31", models.DayRecord{PnL: 999})

	month, err := Collect(ctx, st, 2026, time.August, time.UTC)
	if err != nil {
		t.Fatal(err)
	}

	if len(month.Days) != 31 {
		t.Fatalf("Days = %d, want 31", len(month.Days))
	}
	if month.Days[0].DateKey != "2026-08-01" || month.Days[30].DateKey != "2026-08-31" {
		t.Errorf("day range %s..%s", month.Days[0].DateKey, month.Days[30].DateKey)
	}

	var withData int
	for _, d := range month.Days {
		if d.HasData {
			withData++
		}
	}
	if withData != 4 {
		t.Errorf("days with data = %d, want 4", withData)
	}

	day3 := month.Days[2]
	if !day3.HasData || day3.Record.PnL != 250 || day3.TradeCnt != 1 {
		t.Errorf("Aug 3 = %+v", day3)
	}
}

func TestMonthStats(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()

	st.SaveDay(ctx, "2026-08-03", models.DayRecord{PnL: 250})
	st.SaveDay(ctx, "2026-08-04", models.DayRecord{PnL: -100})
	st.SaveDay(ctx, "2026-08-05", models.DayRecord{PnL: 400})
	st.SaveDay(ctx, "2026-08-06", models.DayRecord{PnL: -300})
	st.SaveDay(ctx, "2026-08-07", models.DayRecord{PnL: 0})

	month, err := Collect(ctx, st, 2026, time.August, time.UTC)
	if err != nil {
		t.Fatal(err)
	}

	s := month.Stats
	if s.PnL != 250 {
		t.Errorf("PnL = %v, want 250", s.PnL)
	}
	if s.Wins != 2 || s.Losses != 2 {
		t.Errorf("Wins/Losses = %d/%d, want 2/2 (flat day excluded)", s.Wins, s.Losses)
	}
	if s.WinRate != 50 {
		t.Errorf("WinRate = %v, want 50", s.WinRate)
	}
	if s.AvgWin != 325 {
		t.Errorf("AvgWin = %v, want 325", s.AvgWin)
	}
	if s.AvgLoss != -200 {
		t.Errorf("AvgLoss = %v, want -200", s.AvgLoss)
	}
	if s.BestDay != 400 || s.WorstDay != -300 {
		t.Errorf("Best/Worst = %v/%v, want 400/-300", s.BestDay, s.WorstDay)
	}
}

func TestCollectEmptyMonth(t *testing.T) {
	month, err := Collect(context.Background(), store.NewMemoryStore(), 2026, time.February, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if len(month.Days) != 28 {
		t.Errorf("February days = %d, want 28", len(month.Days))
	}
	if month.Stats != (MonthStats{}) {
		t.Errorf("empty month stats = %+v", month.Stats)
	}
	for _, d := range month.Days {
		if d.HasData {
			t.Fatalf("empty month reports data on %s", d.DateKey)
		}
	}
}
