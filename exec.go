package podbox

import (
	"context"
	"time"

	"github.com/akshayaggarwal99/podbox/internal/engine"
)

// execAttach creates an exec instance for argv and attaches to it,
// returning the live hijacked connection the caller demuxes frames from.
func (c *Container) execAttach(ctx context.Context, argv, env []string, workdir string, attachStdin bool) (*engine.Response, string, error) {
	execID, err := c.client.ExecCreate(ctx, c.id, engine.ExecCreateSpec{
		Cmd:          argv,
		Env:          env,
		AttachStdin:  attachStdin,
		AttachStdout: true,
		AttachStderr: true,
		WorkingDir:   workdir,
	})
	if err != nil {
		return nil, "", translate(err)
	}
	resp, err := c.client.ExecStart(ctx, execID)
	if err != nil {
		return nil, "", translate(err)
	}
	return resp, execID, nil
}

// execAttachBuffered is like execAttach but additionally reports whether
// the attached response is chunked-transfer-encoded, the case a one-shot
// buffered Run needs to demux differently from a raw hijacked connection.
func (c *Container) execAttachBuffered(ctx context.Context, argv, env []string, workdir string) (*engine.Response, string, bool, error) {
	execID, err := c.client.ExecCreate(ctx, c.id, engine.ExecCreateSpec{
		Cmd:          argv,
		Env:          env,
		AttachStdout: true,
		AttachStderr: true,
		WorkingDir:   workdir,
	})
	if err != nil {
		return nil, "", false, translate(err)
	}
	resp, chunked, err := c.client.ExecStartStream(ctx, execID)
	if err != nil {
		return nil, "", false, translate(err)
	}
	return resp, execID, chunked, nil
}

func (c *Container) execExitCode(ctx context.Context, execID string) (int, error) {
	result, err := c.client.ExecInspect(ctx, execID)
	if err != nil {
		return -1, translate(err)
	}
	if result.ExitCode == nil {
		return -1, nil
	}
	return *result.ExitCode, nil
}

// Run executes command to completion and returns its buffered output.
// On timeout it returns ExecResult{TimedOut: true, ExitCode: -1} rather
// than an error; the exec is not inspected for an exit code once the
// attach has timed out; the engine may still be running it.
func (c *Container) Run(ctx context.Context, command string, opts ...RunOption) (ExecResult, error) {
	o := defaultRunOptions()
	for _, opt := range opts {
		opt(&o)
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if o.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(o.Timeout)*time.Second)
		defer cancel()
	}

	start := time.Now()
	argv := buildArgv(command, o.Lang)
	resp, execID, chunked, err := c.execAttachBuffered(runCtx, argv, o.Env, o.WorkDir)
	if err != nil {
		return ExecResult{}, err
	}
	defer resp.Close()

	var demuxResult engine.DemuxResult
	if chunked {
		demuxResult, err = engine.DemuxBufferedChunked(resp.Body, o.MaxOutput)
	} else {
		demuxResult, err = engine.DemuxBuffered(resp.Body, o.MaxOutput)
	}
	if err != nil {
		if runCtx.Err() != nil {
			result := ExecResult{
				TimedOut:   true,
				ExitCode:   -1,
				Stdout:     demuxResult.Stdout,
				Stderr:     demuxResult.Stderr,
				Truncated:  demuxResult.Truncated,
				DurationMs: time.Since(start).Milliseconds(),
			}
			c.log.writeRunSummary(command, result)
			return result, nil
		}
		return ExecResult{}, translate(err)
	}

	exitCode, err := c.execExitCode(ctx, execID)
	if err != nil {
		return ExecResult{}, err
	}

	result := ExecResult{
		Stdout:     demuxResult.Stdout,
		Stderr:     demuxResult.Stderr,
		ExitCode:   exitCode,
		Truncated:  demuxResult.Truncated,
		DurationMs: time.Since(start).Milliseconds(),
	}
	c.log.writeRunSummary(command, result)
	return result, nil
}
