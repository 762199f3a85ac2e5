package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/morikuni/aec"
	"github.com/spf13/cobra"

	"github.com/akshayaggarwal99/podbox"
)

var filesCmd = &cobra.Command{
	Use:   "fs",
	Short: "Inspect and transfer files inside a sandbox",
}

// splitRemote parses the "name:path" addressing convention shared by all
// fs subcommands.
func splitRemote(arg string) (name, path string, err error) {
	idx := strings.IndexByte(arg, ':')
	if idx < 0 {
		return "", "", fmt.Errorf("expected name:path, got %q", arg)
	}
	return arg[:idx], arg[idx+1:], nil
}

var lsCmd = &cobra.Command{
	Use:   "ls [name:path]",
	Short: "List files at a remote path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, path, err := splitRemote(args[0])
		if err != nil {
			return err
		}
		ctx := context.Background()
		c, err := podbox.Resume(ctx, socket, name)
		if err != nil {
			return err
		}
		entries, err := c.ListFiles(ctx, path)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "MODE\tSIZE\tUPDATED\tNAME")
		for _, e := range entries {
			fmt.Fprintf(w, "%o\t%d\t%s\t%s\n", e.Mode, e.Size, e.LastModified.Format("2006-01-02 15:04:05"), e.Name)
		}
		return w.Flush()
	},
}

var putCmd = &cobra.Command{
	Use:   "put [local-file] [name:path]",
	Short: "Upload a local file into a sandbox",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, path, err := splitRemote(args[1])
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		ctx := context.Background()
		c, err := podbox.Resume(ctx, socket, name)
		if err != nil {
			return err
		}
		builder := aec.EmptyBuilder.Column(0)
		fmt.Fprintf(os.Stderr, "%suploading %d bytes to %s...", builder.ANSI, len(data), path)
		if err := c.WriteFile(ctx, path, data, 0644); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "%sdone\n", aec.EmptyBuilder.Column(0).ANSI)
		return nil
	},
}

var getCmd = &cobra.Command{
	Use:   "get [name:path] [local-file]",
	Short: "Download a remote file from a sandbox",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, path, err := splitRemote(args[0])
		if err != nil {
			return err
		}
		ctx := context.Background()
		c, err := podbox.Resume(ctx, socket, name)
		if err != nil {
			return err
		}
		data, err := c.ReadFile(ctx, path)
		if err != nil {
			return err
		}
		return os.WriteFile(args[1], data, 0644)
	},
}

var pushCmd = &cobra.Command{
	Use:   "push [local-path] [name:path]",
	Short: "Copy a local file or directory into a sandbox, recursively",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, path, err := splitRemote(args[1])
		if err != nil {
			return err
		}
		ctx := context.Background()
		c, err := podbox.Resume(ctx, socket, name)
		if err != nil {
			return err
		}
		return c.Push(ctx, args[0], path)
	},
}

var pullCmd = &cobra.Command{
	Use:   "pull [name:path] [local-path]",
	Short: "Copy a remote file or directory from a sandbox to the host, recursively",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, path, err := splitRemote(args[0])
		if err != nil {
			return err
		}
		ctx := context.Background()
		c, err := podbox.Resume(ctx, socket, name)
		if err != nil {
			return err
		}
		return c.Pull(ctx, path, args[1])
	},
}

func init() {
	filesCmd.AddCommand(lsCmd, putCmd, getCmd, pushCmd, pullCmd)
	RootCmd.AddCommand(filesCmd)
}
