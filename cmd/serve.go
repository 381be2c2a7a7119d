package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"adcheck/internal/bootstrap"
	"adcheck/internal/bootstrap/logging"
	"adcheck/internal/errs"
)

// serveCmd runs the HTTP API until interrupted. The fx stop hooks drain
// the check pipeline and shut the listener down gracefully.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the ad check HTTP API server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := logging.WithAttrs(
			cmd.Context(),
			slog.String("command", cmd.CommandPath()),
			slog.String("config_file", cfgFile),
		)

		fxApp := fx.New(
			bootstrap.ServeModule,
			fx.Provide(func() context.Context { return ctx }),
			fx.Provide(
				fx.Annotate(
					func() string { return cfgFile },
					fx.ResultTags(`name:"configFile"`),
				),
			),
		)

		startCtx, cancelStart := context.WithTimeout(ctx, 15*time.Second)
		defer cancelStart()
		if err := fxApp.Start(startCtx); err != nil {
			logging.Error(ctx, "bootstrap application failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "start fx application")
		}

		waitCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
		<-waitCtx.Done()
		logging.Info(ctx, "shutdown signal received")

		stopCtx, cancelStop := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancelStop()
		if err := fxApp.Stop(stopCtx); err != nil {
			logging.Error(ctx, "fx application stop failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "stop fx application")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
