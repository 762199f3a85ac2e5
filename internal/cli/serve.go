package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/akshayaggarwal99/podbox/internal/api"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose podbox operations over HTTP/WebSocket for remote callers",
	Run: func(cmd *cobra.Command, args []string) {
		runServer()
	},
}

func runServer() {
	log.Info().Str("port", servePort).Msg("starting podbox server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
		cancel()
	}()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	h := api.NewHandler(socket)
	h.RegisterRoutes(e)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- e.Start(":" + servePort)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server forced to shutdown")
		}
	case err := <-serverErr:
		if err != nil {
			log.Fatal().Err(err).Msg("server startup failed")
		}
	}
}

func init() {
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "8080", "HTTP server port")
	RootCmd.AddCommand(serveCmd)
}
