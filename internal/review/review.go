// Package review builds the weekly coaching assessment from the day
// history and journal entries.
package review

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	apperrors "anchor/internal/errors"
	"anchor/internal/models"
	"anchor/internal/store"
)

// WeekData is one week's raw aggregates. Weeks run Sunday through
// Saturday; offset 0 is the current week, -1 the previous.
type WeekData struct {
	Start           time.Time
	End             time.Time
	ActiveDays      int
	TotalPnL        float64
	Wins            int
	Losses          int
	TotalTrades     int
	Journals        []models.JournalEntry
	Triggers        int
	Emotions        map[models.Emotion]int
	SetupViolations int
}

// WinRate returns the per-day win rate in percent, zero when the week
// had no winning or losing days.
func (w WeekData) WinRate() float64 {
	total := w.Wins + w.Losses
	if total == 0 {
		return 0
	}
	return float64(w.Wins) / float64(total) * 100
}

// Insight is one flagged observation.
type Insight struct {
	Title       string
	Description string
}

// Tone classifies the overall assessment voice.
type Tone string

const (
	TonePositive   Tone = "positive"
	ToneNeutral    Tone = "neutral"
	ToneCorrective Tone = "corrective"
)

// Assessment is the generated weekly review.
type Assessment struct {
	Performance     string
	Discipline      string
	DominantEmotion models.Emotion
	Tone            Tone
	Summary         string
	Insights        []Insight
	Recommendations []string
	Closing         string
}

// WeekRange returns the Sunday..Saturday bounds of the week at the
// given offset from now.
func WeekRange(now time.Time, offset int) (time.Time, time.Time) {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	start = start.AddDate(0, 0, -int(now.Weekday())+offset*7)
	end := start.AddDate(0, 0, 7).Add(-time.Nanosecond)
	return start, end
}

// Collect gathers one week's history and journals.
func Collect(ctx context.Context, st store.DataStore, now time.Time, offset int) (WeekData, error) {
	start, end := WeekRange(now, offset)
	week := WeekData{
		Start:    start,
		End:      end,
		Emotions: make(map[models.Emotion]int),
	}

	history, err := st.History(ctx, models.DateKey(start), models.DateKey(end))
	if err != nil {
		return week, apperrors.Wrap(err, "loading week history")
	}
	for _, record := range history {
		week.ActiveDays++
		week.TotalPnL += record.PnL
		week.TotalTrades += len(record.Trades)
		if record.PnL > 0 {
			week.Wins++
		}
		if record.PnL < 0 {
			week.Losses++
		}
	}

	journals, err := st.Journals(ctx, store.JournalFilter{StartDate: start, EndDate: end})
	if err != nil {
		return week, apperrors.Wrap(err, "loading week journals")
	}
	week.Journals = journals
	// Every journal entry is the tail of one intervention, so the
	// journal count doubles as the trigger count.
	week.Triggers = len(journals)
	for _, j := range journals {
		week.Emotions[j.Emotion]++
		if j.WithinSetup == models.AnswerNo {
			week.SetupViolations++
		}
	}

	return week, nil
}

// Assess generates the coaching assessment for a collected week.
func Assess(week WeekData) Assessment {
	a := Assessment{Tone: ToneNeutral}

	switch {
	case week.TotalPnL > 0:
		a.Performance = "profitable"
		a.Tone = TonePositive
	case week.TotalPnL < 0:
		a.Performance = "unprofitable"
		if week.ActiveDays > 0 && -week.TotalPnL/float64(week.ActiveDays) > 200 {
			a.Tone = ToneCorrective
		}
	default:
		a.Performance = "breakeven"
	}

	adherence := 100.0
	if len(week.Journals) > 0 {
		adherence = float64(len(week.Journals)-week.SetupViolations) / float64(len(week.Journals)) * 100
	}
	switch {
	case adherence >= 80:
		a.Discipline = "strong"
	case adherence >= 60:
		a.Discipline = "adequate"
	default:
		a.Discipline = "needs attention"
		a.Tone = ToneCorrective
	}

	a.DominantEmotion = dominantEmotion(week.Emotions)
	a.Summary = performanceSummary(a, week)
	a.Insights = insights(a, week)
	a.Recommendations = recommendations(a, week)
	a.Closing = closingStatement(a.Tone, week.Start)
	return a
}

func dominantEmotion(emotions map[models.Emotion]int) models.Emotion {
	dominant := models.EmotionNeutral
	best := 0
	keys := make([]string, 0, len(emotions))
	for e := range emotions {
		keys = append(keys, string(e))
	}
	sort.Strings(keys)
	for _, k := range keys {
		e := models.Emotion(k)
		if emotions[e] > best {
			dominant = e
			best = emotions[e]
		}
	}
	return dominant
}

func performanceSummary(a Assessment, week WeekData) string {
	switch {
	case a.Performance == "profitable" && a.Discipline == "strong":
		return fmt.Sprintf("You executed with discipline this week and the market compensated accordingly. Net positive %+.2f demonstrates that process adherence generates results.", week.TotalPnL)
	case a.Performance == "profitable":
		return fmt.Sprintf("Week ended net positive %+.2f, but setup violations indicate you were compensated by market conditions, not process quality. Profit without discipline is temporary.", week.TotalPnL)
	case a.Performance == "unprofitable" && a.Discipline == "strong":
		return fmt.Sprintf("Net loss of %.2f despite maintaining setup discipline. This is variance, not failure. Edge plays out over hundreds of trades, not days. Maintain standards.", -week.TotalPnL)
	case a.Performance == "unprofitable":
		return fmt.Sprintf("Week closed at %+.2f with multiple setup violations. This is not market difficulty, it is process breakdown. No edge can overcome poor execution. Reset immediately.", week.TotalPnL)
	default:
		return "Week ended approximately breakeven. Neither profit nor loss provides useful feedback without examining process quality. Review your journals for patterns."
	}
}

func insights(a Assessment, week WeekData) []Insight {
	var out []Insight

	if week.Triggers > 5 {
		out = append(out, Insight{
			Title:       "High Protocol Frequency",
			Description: fmt.Sprintf("%d cooldown protocols triggered this week. Pattern suggests overtrading tendencies or insufficient risk parameters.", week.Triggers),
		})
	}

	if float64(week.SetupViolations) > float64(len(week.Journals))*0.4 && week.SetupViolations > 0 {
		out = append(out, Insight{
			Title:       "Setup Discipline Concern",
			Description: fmt.Sprintf("%d trades outside defined setups. Rules exist for capital preservation. Enforce them.", week.SetupViolations),
		})
	}

	if a.DominantEmotion != models.EmotionNeutral &&
		float64(week.Emotions[a.DominantEmotion]) > float64(len(week.Journals))*0.5 {
		out = append(out, Insight{
			Title:       "Emotional Pattern Detected",
			Description: fmt.Sprintf("%s was the dominant state. Recurring emotional patterns indicate process breakdown points.", capitalize(string(a.DominantEmotion))),
		})
	}

	if winRate := week.WinRate(); winRate < 40 && week.Wins+week.Losses >= 5 {
		out = append(out, Insight{
			Title:       "Win Rate Below Threshold",
			Description: fmt.Sprintf("%.0f%% win rate requires immediate strategy review. Edge may be compromised or execution is off.", winRate),
		})
	}

	return out
}

func recommendations(a Assessment, week WeekData) []string {
	var recs []string

	if a.Performance == "unprofitable" {
		recs = append(recs, "Reduce position size by 50% until process is re-stabilized. Capital preservation over profit-seeking.")
	}
	if a.Discipline == "needs attention" {
		recs = append(recs, "Implement pre-trade checklist. No execution without explicit setup confirmation. Process before discretion.")
	}
	if week.Triggers > 5 {
		recs = append(recs, "Tighten entry criteria or switch to longer timeframe. High trigger frequency indicates misalignment between strategy and execution.")
	}
	if week.Triggers == 0 && week.TotalTrades < 5 {
		recs = append(recs, "Insufficient sample size for meaningful assessment. Increase trade frequency within risk parameters.")
	}
	switch a.DominantEmotion {
	case models.EmotionFrustration, models.EmotionAnger:
		recs = append(recs, "Session breaks mandatory after losses. Emotional trading is capital destruction. Protect the account, protect your psychology.")
	case models.EmotionFOMO, models.EmotionUrgency:
		recs = append(recs, "Wait for A+ setups only. The market creates opportunity daily. Missing trades is not the risk; forcing trades is.")
	}

	if len(recs) == 0 {
		recs = append(recs, "Maintain current process discipline. Consistency compounds over time. Protect what works.")
	}
	if len(recs) > 3 {
		recs = recs[:3]
	}
	return recs
}

var closingStatements = map[Tone][]string{
	TonePositive: {
		"Trading is a profession, not a performance. Continue operating within defined parameters. Compound discipline, not capital.",
		"Consistency beats intensity. Maintain your process and let probabilities compound in your favor.",
		"Professional traders are not emotional about wins. They respect the process that generated them. Continue.",
	},
	ToneNeutral: {
		"Markets reward patience and discipline over time. Protect your process more than your profit.",
		"Every week is data. Extract the signal, discard the noise, refine the approach.",
		"Professional development is measured in quarters, not days. Stay committed to the work.",
	},
	ToneCorrective: {
		"Process breakdown is addressable. Capital destruction is not. Recommit to your standards before next session.",
		"Discipline is not negotiable. If you cannot follow your rules, reduce size until you can.",
		"The market is indifferent to your account. Your discipline is the only factor under your control. Exercise it.",
	},
}

// closingStatement picks a closing line for the tone. Keyed off the
// week start so the same week always reads the same.
func closingStatement(tone Tone, weekStart time.Time) string {
	options, ok := closingStatements[tone]
	if !ok {
		options = closingStatements[ToneNeutral]
	}
	_, week := weekStart.ISOWeek()
	return options[week%len(options)]
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
