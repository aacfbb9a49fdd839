package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"anchor/internal/calendar"
	"anchor/pkg/utils"
)

func newCalendarCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendar [YYYY-MM]",
		Short: "Show the monthly P&L calendar",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireStore(); err != nil {
				return err
			}
			output := NewOutput(cmd)
			ctx := context.Background()

			// Pull the session through the guard first so today's
			// mirror and any pending rollover are applied.
			if _, err := app.Guard.State(ctx); err != nil {
				return err
			}

			now := time.Now().In(app.Location)
			year, month := now.Year(), now.Month()
			if len(args) == 1 {
				t, err := time.ParseInLocation("2006-01", args[0], app.Location)
				if err != nil {
					return fmt.Errorf("invalid month %q, want YYYY-MM", args[0])
				}
				year, month = t.Year(), t.Month()
			}

			m, err := calendar.Collect(ctx, app.Store, year, month, app.Location)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(m)
			}

			renderMonth(output, m, now)
			return nil
		},
	}
	return cmd
}

func renderMonth(output *Output, m calendar.Month, now time.Time) {
	output.Bold("%s %d", m.Month, m.Year)
	output.Println()

	table := NewTable(output, "DATE", "P&L", "TRADES", "JOURNALS", "TRIGGERS")
	for _, d := range m.Days {
		if !d.HasData {
			continue
		}
		marker := ""
		if d.DateKey == now.Format("2006-01-02") {
			marker = " *"
		}
		table.AddRow(
			d.Date.Format("Mon Jan 02")+marker,
			output.FormatPnL(d.Record.PnL),
			fmt.Sprintf("%d", len(d.Record.Trades)),
			fmt.Sprintf("%d", len(d.Record.Journals)),
			fmt.Sprintf("%d", len(d.Record.Triggers)),
		)
	}
	table.Render()
	output.Println()

	s := m.Stats
	output.Bold("Month Summary")
	output.Printf("  Net P&L:    %s\n", output.FormatPnL(s.PnL))
	output.Printf("  Win rate:   %.0f%% (%d wins / %d losses by day)\n", s.WinRate, s.Wins, s.Losses)
	output.Printf("  Avg win:    %s\n", utils.FormatUSD(s.AvgWin))
	output.Printf("  Avg loss:   %s\n", utils.FormatUSD(s.AvgLoss))
	output.Printf("  Best day:   %s\n", utils.FormatUSD(s.BestDay))
	output.Printf("  Worst day:  %s\n", utils.FormatUSD(s.WorstDay))
}
