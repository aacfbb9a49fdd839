package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"anchor/internal/bus"
	"anchor/internal/scrape"
)

func newResetDayCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-day",
		Short: "Zero the session and clear any cooldown or day lock",
		Long: `Starts the trading day over: daily P&L, trade list, and loss streak
go back to zero and the protocol returns to active. This is the only
way out of a locked day.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireStore(); err != nil {
				return err
			}
			output := NewOutput(cmd)
			if _, err := app.Router.Dispatch(context.Background(), bus.ResetDay{}); err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"reset": true})
			}
			output.Success("Session reset. Protocol is active.")
			return nil
		},
	}
}

func newDebugCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:    "debug",
		Short:  "Debug helpers",
		Hidden: true,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "sim-trade <pnl>",
		Short: "Inject a synthetic trade through the normal pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireStore(); err != nil {
				return err
			}
			output := NewOutput(cmd)
			pnl, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid pnl %q", args[0])
			}
			if _, err := app.Router.Dispatch(context.Background(), bus.SimTrade{PnL: pnl}); err != nil {
				return err
			}
			state, err := app.Guard.State(context.Background())
			if err != nil {
				return err
			}
			output.Printf("Trade applied. State: %s", output.StateTag(string(state.Current)))
			output.Println()
			if state.TriggerReason != "" {
				output.Printf("Reason: %s\n", state.TriggerReason)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "parse <text>",
		Short: "Run the money parser against a text fragment",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			value, ok := scrape.ParseMoney(args[0])
			if !ok {
				output.Warning("No parseable value in %q", args[0])
				return
			}
			output.Printf("%.2f\n", value)
		},
	})

	return cmd
}
