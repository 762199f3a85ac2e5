package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/akshayaggarwal99/podbox"
)

var infoJSON bool

var infoCmd = &cobra.Command{
	Use:   "info [name]",
	Short: "Show a managed container's state and resource usage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		c, err := podbox.Resume(ctx, socket, args[0])
		if err != nil {
			return err
		}
		info, err := c.Info(ctx)
		if err != nil {
			return err
		}
		if infoJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		}
		fmt.Printf("ID:      %s\n", info.ID)
		fmt.Printf("Name:    %s\n", info.Name)
		fmt.Printf("Image:   %s\n", info.Image)
		fmt.Printf("State:   %s\n", info.State)
		fmt.Printf("CPU:     %.1f%%\n", info.CPUPercent)
		fmt.Printf("Memory:  %s / %s (%.1f%%)\n", podbox.FormatBytes(info.MemUsage), podbox.FormatBytes(info.MemLimit), info.MemPercent)
		fmt.Printf("Project: %s\n", info.Project)
		fmt.Printf("Persist: %t\n", info.Persist)
		return nil
	},
}

func init() {
	infoCmd.Flags().BoolVar(&infoJSON, "json", false, "print as JSON")
	RootCmd.AddCommand(infoCmd)
}
