// Package cli implements the podbox command-line tool: a cobra command
// tree that calls the podbox library directly, the way a caller
// embedding podbox in their own Go program would, with no server tier
// in between.
package cli

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	jsonLog bool
	socket  string
)

var RootCmd = &cobra.Command{
	Use:   "podbox",
	Short: "Create, run commands in, and tear down sandbox containers",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		zerolog.TimeFieldFormat = time.RFC3339Nano
		if !jsonLog {
			log.Logger = log.Output(zerolog.ConsoleWriter{
				Out:        os.Stderr,
				TimeFormat: "15:04:05",
			})
		}
		if verbose {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		} else {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		}
	},
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	RootCmd.PersistentFlags().BoolVar(&jsonLog, "json-log", false, "emit structured JSON logs instead of console output")
	RootCmd.PersistentFlags().StringVar(&socket, "socket", "", "engine socket path (overrides PODBOX_SOCKET and auto-detection)")
}
