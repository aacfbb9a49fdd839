package cli

import (
	"context"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"anchor/internal/models"
	"anchor/pkg/utils"
)

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current session and protocol state",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireStore(); err != nil {
				return err
			}
			output := NewOutput(cmd)
			ctx := context.Background()

			state, err := app.Guard.State(ctx)
			if err != nil {
				return err
			}
			sess, err := app.Sessions.Session(ctx)
			if err != nil {
				return err
			}
			cfg, err := app.Guard.Config(ctx)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"state":   state,
					"session": sess,
					"config":  cfg,
				})
			}

			output.Bold("Protocol")
			output.Printf("  State:    %s\n", output.StateTag(string(state.Current)))
			if state.TriggerReason != "" {
				output.Printf("  Reason:   %s\n", state.TriggerReason)
			}
			if state.Current == models.StateCooldown {
				output.Printf("  Ends:     %s (%s)\n",
					state.CooldownEnd.In(app.Location).Format("15:04:05"),
					humanize.Time(state.CooldownEnd))
			}
			output.Println()

			output.Bold("Session (%s)", sess.LastResetDate)
			output.Printf("  Daily P&L:           %s\n", output.FormatPnL(sess.DailyPnL))
			output.Printf("  Trades:              %d\n", len(sess.Trades))
			output.Printf("  Consecutive losses:  %d\n", sess.ConsecutiveLosses)
			if n := len(sess.Trades); n > 0 {
				last := sess.Trades[n-1]
				output.Printf("  Last trade:          %s (%s)\n",
					output.FormatPnL(last.PnL), humanize.Time(last.Timestamp))
			}
			output.Println()

			output.Bold("Discipline (%s mode)", cfg.Mode)
			rules := cfg.CustomTriggers
			if cfg.TriggerEnabled(models.TriggerConsecutiveLosses) {
				output.Printf("  Loss streak limit:   %d\n", rules.ConsecutiveLosses)
			}
			if cfg.TriggerEnabled(models.TriggerMaxDailyLoss) {
				output.Printf("  Daily loss limit:    %s (%s)\n",
					utils.FormatUSDPlain(-rules.MaxDailyLoss), rules.MaxLossBehavior)
			}
			if cfg.TriggerEnabled(models.TriggerTradeBurst) {
				output.Printf("  Trade burst:         %d in %d min\n",
					rules.TradeBurst.Count, rules.TradeBurst.Minutes)
			}
			output.Printf("  Cooldown:            %d min\n", cfg.CooldownMinutes)
			return nil
		},
	}
}
