package cli

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"anchor/internal/bus"
	"anchor/internal/config"
	"anchor/internal/guard"
	"anchor/internal/logging"
	"anchor/internal/protocol"
	"anchor/internal/session"
	"anchor/internal/store"
)

// Version information
const (
	Version   = "0.3.0"
	BuildDate = "2026-08-14"
)

// App holds the application dependencies. Every command shares one
// store, one hub, and one guard; the run command additionally starts
// the websocket host on top of them.
type App struct {
	Config   *config.App
	Logger   zerolog.Logger
	Store    store.DataStore
	Hub      *bus.Hub
	Guard    *guard.Guard
	Router   *bus.Router
	Sessions *session.Aggregator
	Location *time.Location
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.App, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	loc, err := cfg.Location()
	if err != nil {
		logger.Warn().Err(err).Str("timezone", cfg.Timezone.Name).Msg("Unknown timezone, using local time")
		loc = time.Local
	}
	app.Location = loc

	dataStore, err := store.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, some features may be unavailable")
	} else {
		app.Store = dataStore
		logger.Debug().Str("path", cfg.Storage.Path).Msg("SQLite store initialized")
	}

	if app.Store != nil {
		app.Hub = bus.NewHub()
		app.Sessions = session.NewAggregator(app.Store, loc, logger)
		machine := protocol.NewMachine(app.Store, app.Hub, loc, logger)
		app.Guard = guard.New(app.Store, app.Sessions, machine, loc, logger)
		app.Router = bus.NewRouter(app.Guard, logger)
	}

	rootCmd := &cobra.Command{
		Use:   "anchor",
		Short: "Anchor - trading discipline guard",
		Long: `Anchor watches your brokerage page's realized P&L, infers trades
from the changes, and enforces cooldowns when your discipline rules
fire: loss streaks, daily loss limits, trade bursts.

Run 'anchor run' to start the host the page companion connects to.
Use 'anchor status' for the current session and protocol state.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/anchor)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newRunCmd(app))
	rootCmd.AddCommand(newStatusCmd(app))
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newJournalCmd(app))
	rootCmd.AddCommand(newCalendarCmd(app))
	rootCmd.AddCommand(newReviewCmd(app))
	rootCmd.AddCommand(newResetDayCmd(app))
	rootCmd.AddCommand(newDebugCmd(app))

	return rootCmd
}

// requireStore fails fast for commands that need persistence.
func (a *App) requireStore() error {
	if a.Store == nil {
		return errStoreUnavailable
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("Anchor v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}
