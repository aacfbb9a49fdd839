package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"anchor/internal/review"
)

func newReviewCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Generate the weekly coaching assessment",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireStore(); err != nil {
				return err
			}
			output := NewOutput(cmd)
			ctx := context.Background()

			if _, err := app.Guard.State(ctx); err != nil {
				return err
			}

			offset, _ := cmd.Flags().GetInt("week")
			now := time.Now().In(app.Location)

			week, err := review.Collect(ctx, app.Store, now, offset)
			if err != nil {
				return err
			}
			assessment := review.Assess(week)

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"week":       week,
					"assessment": assessment,
				})
			}

			renderReview(output, week, assessment, offset)
			return nil
		},
	}
	cmd.Flags().Int("week", 0, "week offset (0 = this week, -1 = last week)")
	return cmd
}

func renderReview(output *Output, week review.WeekData, a review.Assessment, offset int) {
	label := "This Week"
	switch {
	case offset == -1:
		label = "Last Week"
	case offset < -1:
		label = output.BoldText(week.Start.Format("Jan 02")) + " week"
	}

	output.Bold("Weekly Assessment - %s", label)
	output.Dim("%s - %s", week.Start.Format("Jan 02, 2006"), week.End.Format("Jan 02, 2006"))
	output.Println()

	if week.ActiveDays == 0 {
		output.Dim("No trading activity this week. Trade actively and return for your assessment.")
		return
	}

	output.Printf("  Net P&L:             %s\n", output.FormatPnL(week.TotalPnL))
	output.Printf("  Win rate:            %.0f%%\n", week.WinRate())
	output.Printf("  Total trades:        %d\n", week.TotalTrades)
	output.Printf("  Protocols triggered: %d\n", week.Triggers)
	output.Println()

	output.Bold("Performance Assessment")
	output.Printf("  %s\n", a.Summary)
	output.Println()

	if len(a.Insights) > 0 {
		output.Bold("Key Observations")
		for _, insight := range a.Insights {
			output.Printf("  %s\n", output.BoldText(insight.Title))
			output.Printf("    %s\n", insight.Description)
		}
		output.Println()
	}

	output.Bold("Directives for Next Week")
	for i, rec := range a.Recommendations {
		output.Printf("  %d. %s\n", i+1, rec)
	}
	output.Println()

	output.Dim("\"%s\"", a.Closing)
}
