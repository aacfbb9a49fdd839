package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"anchor/internal/detect"
	apperrors "anchor/internal/errors"
	"anchor/internal/host"
	"anchor/internal/scrape"
)

var errStoreUnavailable = apperrors.ErrStorageUnavailable

func newRunCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the discipline guard host",
		Long: `Starts the local websocket endpoint the page companion connects to,
seeds storage on first run, and keeps the session, triggers, and
cooldowns running until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireStore(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := app.Guard.Init(ctx); err != nil {
				return apperrors.Wrap(err, "initializing storage")
			}

			locator := scrape.NewLocator(app.Config.Scrape.Labels...)
			detector := detect.New(locator, app.Config.Scrape.NoiseFloor, app.Logger)
			server := host.NewServer(app.Config, app.Router, app.Hub, detector, app.Sessions, app.Logger)

			app.Logger.Info().Str("version", Version).Msg("Anchor host starting")
			return server.Run(ctx)
		},
	}
}
