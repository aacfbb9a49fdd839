package cli

import (
	"context"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"

	"anchor/internal/models"
	"anchor/internal/store"
)

func newJournalCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Browse and export intervention journal entries",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List journal entries, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireStore(); err != nil {
				return err
			}
			output := NewOutput(cmd)
			filter, err := journalFilterFromFlags(cmd, app)
			if err != nil {
				return err
			}

			entries, err := app.Store.Journals(context.Background(), filter)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(entries)
			}
			if len(entries) == 0 {
				output.Dim("No journal entries.")
				return nil
			}

			table := NewTable(output, "WHEN", "SETUP", "EMOTION", "CONTINUE", "NOTE")
			for _, e := range entries {
				note := e.RuleViolation
				if note == "" {
					note = e.ContinueReason
				}
				if len(note) > 48 {
					note = note[:45] + "..."
				}
				table.AddRow(
					humanize.Time(e.Timestamp),
					string(e.WithinSetup),
					string(e.Emotion),
					string(e.ShouldContinue),
					note,
				)
			}
			table.Render()
			return nil
		},
	}
	listCmd.Flags().Int("limit", 20, "maximum entries to show")
	listCmd.Flags().String("emotion", "", "filter by emotion")
	listCmd.Flags().Int("days", 0, "only entries from the last N days")
	cmd.AddCommand(listCmd)

	exportCmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Export journal entries as CSV",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireStore(); err != nil {
				return err
			}
			output := NewOutput(cmd)
			filter, err := journalFilterFromFlags(cmd, app)
			if err != nil {
				return err
			}
			filter.Limit = 0

			entries, err := app.Store.Journals(context.Background(), filter)
			if err != nil {
				return err
			}

			if len(args) == 0 {
				return gocsv.Marshal(&entries, cmd.OutOrStdout())
			}

			f, err := os.Create(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			if err := gocsv.Marshal(&entries, f); err != nil {
				return err
			}
			output.Success("Exported %d entries to %s", len(entries), args[0])
			return nil
		},
	}
	exportCmd.Flags().String("emotion", "", "filter by emotion")
	exportCmd.Flags().Int("days", 0, "only entries from the last N days")
	cmd.AddCommand(exportCmd)

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize journal entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireStore(); err != nil {
				return err
			}
			output := NewOutput(cmd)
			filter, err := journalFilterFromFlags(cmd, app)
			if err != nil {
				return err
			}
			filter.Limit = 0

			entries, err := app.Store.Journals(context.Background(), filter)
			if err != nil {
				return err
			}

			total := len(entries)
			violations := 0
			continued := 0
			emotions := make(map[models.Emotion]int)
			for _, e := range entries {
				if e.WithinSetup == models.AnswerNo {
					violations++
				}
				if e.ShouldContinue == models.AnswerYes {
					continued++
				}
				emotions[e.Emotion]++
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"total":            total,
					"setup_violations": violations,
					"continued":        continued,
					"emotions":         emotions,
				})
			}

			output.Bold("Journal Stats")
			output.Printf("  Entries:          %d\n", total)
			output.Printf("  Setup violations: %d\n", violations)
			output.Printf("  Chose to resume:  %d\n", continued)
			if len(emotions) > 0 {
				output.Println()
				output.Bold("Emotions")
				for _, e := range []models.Emotion{
					models.EmotionNeutral, models.EmotionFrustration, models.EmotionAnger,
					models.EmotionFOMO, models.EmotionUrgency, models.EmotionCalm,
				} {
					if n := emotions[e]; n > 0 {
						output.Printf("  %-12s %d\n", e, n)
					}
				}
			}
			return nil
		},
	}
	statsCmd.Flags().Int("days", 0, "only entries from the last N days")
	cmd.AddCommand(statsCmd)

	return cmd
}

func journalFilterFromFlags(cmd *cobra.Command, app *App) (store.JournalFilter, error) {
	filter := store.JournalFilter{}
	if f := cmd.Flags().Lookup("limit"); f != nil {
		limit, _ := cmd.Flags().GetInt("limit")
		filter.Limit = limit
	}
	if f := cmd.Flags().Lookup("emotion"); f != nil {
		emotion, _ := cmd.Flags().GetString("emotion")
		filter.Emotion = models.Emotion(emotion)
	}
	if f := cmd.Flags().Lookup("days"); f != nil {
		days, _ := cmd.Flags().GetInt("days")
		if days > 0 {
			filter.StartDate = time.Now().In(app.Location).AddDate(0, 0, -days)
		}
	}
	return filter, nil
}
