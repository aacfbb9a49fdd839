package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"anchor/internal/bus"
	"anchor/internal/config"
	"anchor/internal/models"
	"anchor/pkg/utils"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Discipline configuration management",
		Long:  "View and change the discipline rules: mode presets, trigger thresholds, cooldown length.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the current discipline configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireStore(); err != nil {
				return err
			}
			output := NewOutput(cmd)
			cfg, err := app.Guard.Config(context.Background())
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(cfg)
			}
			showDiscipline(output, cfg)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "preset <scalper|structured|reset>",
		Short: "Apply a built-in discipline preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireStore(); err != nil {
				return err
			}
			output := NewOutput(cmd)
			result, err := app.Router.Dispatch(context.Background(), bus.ApplyModePreset{Mode: models.Mode(args[0])})
			if err != nil {
				return err
			}
			cfg := result.(models.Config)
			if output.IsJSON() {
				return output.JSON(cfg)
			}
			output.Success("Applied %s preset", cfg.Mode)
			showDiscipline(output, cfg)
			return nil
		},
	})

	setCmd := &cobra.Command{
		Use:   "set",
		Short: "Change individual discipline settings",
		Long: `Changes trigger thresholds or the cooldown length. Any change
switches the mode to custom. The updated configuration is validated
before it is saved; an invalid change leaves the stored one untouched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireStore(); err != nil {
				return err
			}
			output := NewOutput(cmd)
			ctx := context.Background()

			cfg, err := app.Guard.Config(ctx)
			if err != nil {
				return err
			}

			changed := false
			flags := cmd.Flags()
			if flags.Changed("cooldown") {
				cfg.CooldownMinutes, _ = flags.GetInt("cooldown")
				changed = true
			}
			if flags.Changed("losses") {
				cfg.CustomTriggers.ConsecutiveLosses, _ = flags.GetInt("losses")
				changed = true
			}
			if flags.Changed("max-loss") {
				cfg.CustomTriggers.MaxDailyLoss, _ = flags.GetFloat64("max-loss")
				changed = true
			}
			if flags.Changed("max-loss-behavior") {
				behavior, _ := flags.GetString("max-loss-behavior")
				cfg.CustomTriggers.MaxLossBehavior = models.MaxLossBehavior(behavior)
				changed = true
			}
			if flags.Changed("burst-count") {
				cfg.CustomTriggers.TradeBurst.Count, _ = flags.GetInt("burst-count")
				changed = true
			}
			if flags.Changed("burst-minutes") {
				cfg.CustomTriggers.TradeBurst.Minutes, _ = flags.GetInt("burst-minutes")
				changed = true
			}
			if flags.Changed("triggers") {
				names, _ := flags.GetStringSlice("triggers")
				kinds := make([]models.TriggerKind, 0, len(names))
				for _, n := range names {
					kinds = append(kinds, models.TriggerKind(n))
				}
				cfg.EnabledTriggers = kinds
				changed = true
			}

			if !changed {
				return cmd.Help()
			}
			cfg.Mode = models.ModeCustom

			if _, err := app.Router.Dispatch(ctx, bus.UpdateConfig{Config: cfg}); err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(cfg)
			}
			output.Success("Configuration updated")
			showDiscipline(output, cfg)
			return nil
		},
	}
	setCmd.Flags().Int("cooldown", 0, "cooldown length in minutes")
	setCmd.Flags().Int("losses", 0, "consecutive-loss threshold")
	setCmd.Flags().Float64("max-loss", 0, "daily loss limit in dollars")
	setCmd.Flags().String("max-loss-behavior", "", "journal or lockDay")
	setCmd.Flags().Int("burst-count", 0, "trade-burst count threshold")
	setCmd.Flags().Int("burst-minutes", 0, "trade-burst window in minutes")
	setCmd.Flags().StringSlice("triggers", nil, "enabled triggers (consecutiveLosses,maxDailyLoss,tradeBurst)")
	cmd.AddCommand(setCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Host configuration invalid: %v", err)
				return err
			}
			if app.Store != nil {
				cfg, err := app.Guard.Config(context.Background())
				if err != nil {
					return err
				}
				if err := config.ValidateDiscipline(cfg); err != nil {
					output.Error("Discipline configuration invalid: %v", err)
					return err
				}
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showDiscipline(output *Output, cfg models.Config) {
	rules := cfg.CustomTriggers
	enabled := make([]string, 0, len(cfg.EnabledTriggers))
	for _, t := range cfg.EnabledTriggers {
		enabled = append(enabled, string(t))
	}

	output.Bold("Discipline Configuration")
	output.Printf("  Mode:               %s\n", cfg.Mode)
	output.Printf("  Cooldown:           %d min\n", cfg.CooldownMinutes)
	output.Printf("  Enabled triggers:   %s\n", strings.Join(enabled, ", "))
	output.Println()
	output.Bold("Thresholds")
	output.Printf("  Consecutive losses: %d\n", rules.ConsecutiveLosses)
	output.Printf("  Daily loss limit:   %s (%s)\n", utils.FormatUSDPlain(rules.MaxDailyLoss), rules.MaxLossBehavior)
	output.Printf("  Trade burst:        %d trades in %d min\n", rules.TradeBurst.Count, rules.TradeBurst.Minutes)
}
