package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"meetingbridge/internal/app"
)

// shutdownTimeout bounds a graceful shutdown
const shutdownTimeout = 30 * time.Second

func NewServeCmd(deps *Dependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket server",
		Long:  "Run the HTTP API and the WebSocket status feed. SIGHUP reloads the content type configuration; SIGINT and SIGTERM shut down gracefully.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := deps.loadConfig()
			if err != nil {
				return err
			}
			application, err := app.NewApplication(cfg)
			if err != nil {
				return fmt.Errorf("failed to create application: %w", err)
			}
			return serve(cmd.Context(), application, deps.signals())
		},
	}
}

func (d *Dependencies) signals() <-chan os.Signal {
	if d.Signals != nil {
		return d.Signals
	}
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	return ch
}

// serve runs application until a shutdown signal arrives or ctx is cancelled
func serve(ctx context.Context, application *app.Application, signals <-chan os.Signal) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := application.Start(ctx); err != nil {
		application.Close()
		return fmt.Errorf("application error: %w", err)
	}

	for {
		select {
		case sig := <-signals:
			if sig == syscall.SIGHUP {
				if err := application.ReloadTypes(); err != nil {
					log.Printf("ERROR: %v", err)
				}
				continue
			}
			log.Printf("Received signal %v, shutting down gracefully", sig)
		case <-ctx.Done():
			log.Printf("Context cancelled, shutting down")
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := application.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		return nil
	}
}
