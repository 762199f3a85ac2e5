package cli

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/akshayaggarwal99/podbox"
)

var destroyCmd = &cobra.Command{
	Use:   "destroy [name]",
	Short: "Force-remove a managed container, persisted or not",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := podbox.Destroy(context.Background(), socket, args[0]); err != nil {
			return err
		}
		log.Info().Str("name", args[0]).Msg("destroyed")
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop [name]",
	Short: "Stop a managed container without removing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := podbox.Stop(context.Background(), socket, args[0], 5); err != nil {
			return err
		}
		log.Info().Str("name", args[0]).Msg("stopped")
		return nil
	},
}

var pruneProject string

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove every managed container that is not running",
	RunE: func(cmd *cobra.Command, args []string) error {
		removed, err := podbox.Prune(context.Background(), socket, pruneProject)
		if err != nil {
			return err
		}
		for _, name := range removed {
			fmt.Println(name)
		}
		log.Info().Int("count", len(removed)).Msg("pruned")
		return nil
	},
}

func init() {
	pruneCmd.Flags().StringVar(&pruneProject, "project", "", "only prune containers in this project")
	RootCmd.AddCommand(destroyCmd, stopCmd, pruneCmd)
}
