// Package calendar aggregates the day history into month views.
package calendar

import (
	"context"
	"sort"
	"time"

	apperrors "anchor/internal/errors"
	"anchor/internal/models"
	"anchor/internal/store"
)

// Day is one calendar day with its archived aggregates.
type Day struct {
	Date     time.Time
	DateKey  string
	Record   models.DayRecord
	HasData  bool
	TradeCnt int
}

// MonthStats summarizes one month. Win/loss counting is per day, not
// per trade; flat days count toward neither.
type MonthStats struct {
	PnL      float64
	Wins     int
	Losses   int
	WinRate  float64
	AvgWin   float64
	AvgLoss  float64
	BestDay  float64
	WorstDay float64
}

// Month is one rendered month: its days in order plus the summary.
type Month struct {
	Year  int
	Month time.Month
	Days  []Day
	Stats MonthStats
}

// Collect builds the month view for the given year and month. The live
// session is already mirrored into the history, so today needs no
// special casing.
func Collect(ctx context.Context, st store.DataStore, year int, month time.Month, loc *time.Location) (Month, error) {
	if loc == nil {
		loc = time.Local
	}

	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	last := first.AddDate(0, 1, -1)

	history, err := st.History(ctx, models.DateKey(first), models.DateKey(last))
	if err != nil {
		return Month{}, apperrors.Wrap(err, "loading month history")
	}

	m := Month{Year: year, Month: month}
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		key := models.DateKey(d)
		record, ok := history[key]
		m.Days = append(m.Days, Day{
			Date:     d,
			DateKey:  key,
			Record:   record,
			HasData:  ok,
			TradeCnt: len(record.Trades),
		})
	}

	m.Stats = stats(history)
	return m, nil
}

func stats(history map[string]models.DayRecord) MonthStats {
	var s MonthStats
	var totalWin, totalLoss float64

	keys := make([]string, 0, len(history))
	for k := range history {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		pnl := history[k].PnL
		s.PnL += pnl
		switch {
		case pnl > 0:
			s.Wins++
			totalWin += pnl
			if pnl > s.BestDay {
				s.BestDay = pnl
			}
		case pnl < 0:
			s.Losses++
			totalLoss += pnl
			if pnl < s.WorstDay {
				s.WorstDay = pnl
			}
		}
	}

	if total := s.Wins + s.Losses; total > 0 {
		s.WinRate = float64(s.Wins) / float64(total) * 100
	}
	if s.Wins > 0 {
		s.AvgWin = totalWin / float64(s.Wins)
	}
	if s.Losses > 0 {
		s.AvgLoss = totalLoss / float64(s.Losses)
	}
	return s
}
