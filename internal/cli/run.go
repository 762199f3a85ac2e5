package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/akshayaggarwal99/podbox"
)

var (
	runImage   string
	runMem     string
	runCPU     float64
	runLang    string
	runTimeout int
	runPersist bool
	runProject string
	runDetach  bool
)

var runCmd = &cobra.Command{
	Use:   "run [command]",
	Short: "Create a sandbox, run one command in it, and tear it down",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		c, err := podbox.Create(ctx,
			podbox.WithSocket(socket),
			podbox.WithName(""),
			func(o *podbox.CreateOptions) { o.Image = runImage },
			podbox.WithMemLimit(runMem),
			podbox.WithCPUCores(runCPU),
			podbox.WithPersist(runPersist),
			podbox.WithProject(runProject),
		)
		if err != nil {
			return fmt.Errorf("create sandbox: %w", err)
		}
		log.Info().Str("name", c.Name()).Str("id", c.ID()).Msg("sandbox ready")

		shutdown := func() {
			if err := c.Shutdown(context.Background(), podbox.ShutdownOptions{Persist: runPersist}); err != nil {
				log.Error().Err(err).Msg("shutdown failed")
			}
		}
		defer shutdown()

		var result podbox.ExecResult
		if runDetach {
			proc, err := c.RunDetached(ctx, args[0], 0, podbox.WithLang(runLang))
			if err != nil {
				return fmt.Errorf("run detached: %w", err)
			}
			waitCtx := ctx
			var cancel context.CancelFunc
			if runTimeout > 0 {
				waitCtx, cancel = context.WithTimeout(ctx, time.Duration(runTimeout)*time.Second)
				defer cancel()
			}
			result, err = proc.Wait(waitCtx)
			if err != nil && waitCtx.Err() == nil {
				return fmt.Errorf("run detached: %w", err)
			}
		} else {
			result, err = c.Run(ctx, args[0], podbox.WithLang(runLang), podbox.WithTimeout(runTimeout))
			if err != nil {
				return fmt.Errorf("run: %w", err)
			}
		}

		fmt.Fprint(os.Stdout, result.StdoutText())
		fmt.Fprint(os.Stderr, result.StderrText())
		if !result.Ok() {
			// os.Exit skips deferred calls, so tear down first.
			shutdown()
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runImage, "image", "docker.io/library/alpine:latest", "image to run")
	runCmd.Flags().StringVar(&runMem, "mem", "256m", "memory limit")
	runCmd.Flags().Float64Var(&runCPU, "cpu", 1.0, "cpu cores")
	runCmd.Flags().StringVar(&runLang, "lang", "", "interpreter: \"\" for sh -c, or \"python\"")
	runCmd.Flags().IntVar(&runTimeout, "timeout", 30, "command timeout in seconds, 0 for none")
	runCmd.Flags().BoolVar(&runPersist, "persist", false, "stop the container but keep it for a later resume instead of removing it")
	runCmd.Flags().StringVar(&runProject, "project", "", "project label for grouping/pruning")
	runCmd.Flags().BoolVar(&runDetach, "detach", false, "start the command in the background and wait for it via Process.Wait")
	RootCmd.AddCommand(runCmd)
}
