package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/moby/term"
	"github.com/spf13/cobra"

	"github.com/akshayaggarwal99/podbox"
)

var shellTimeout time.Duration

var shellCmd = &cobra.Command{
	Use:   "shell [name]",
	Short: "Attach an interactive bash session inside a sandbox",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		c, err := podbox.Resume(ctx, socket, args[0])
		if err != nil {
			return err
		}
		sess, err := c.Session(ctx)
		if err != nil {
			return err
		}
		defer sess.Close()

		sess.OnOutput(func(line string) {
			fmt.Fprintln(os.Stdout, line)
		})

		var restore func()
		if isatty.IsTerminal(os.Stdin.Fd()) {
			state, err := term.SetRawTerminal(os.Stdin.Fd())
			if err == nil {
				restore = func() { _ = term.RestoreTerminal(os.Stdin.Fd(), state) }
				defer restore()
			}
		}

		fmt.Fprintln(os.Stderr, "attached. type a command and press enter; ctrl-d to detach.")

		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			result, err := sess.SendAndWait(ctx, line, shellTimeout)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				continue
			}
			if result.TimedOut {
				fmt.Fprintln(os.Stderr, "(timed out)")
			}
		}
		if err := scanner.Err(); err != nil && err != io.EOF {
			return err
		}
		return nil
	},
}

func init() {
	shellCmd.Flags().DurationVar(&shellTimeout, "timeout", 30*time.Second, "per-command timeout")
	RootCmd.AddCommand(shellCmd)
}
