package podbox

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/akshayaggarwal99/podbox/internal/engine"
	"github.com/akshayaggarwal99/podbox/internal/ringbuffer"
)

// Process is a detached exec: output accumulates in a capped ring buffer
// and is also dispatched to any registered callbacks, while the caller's
// goroutine is free to do other work.
type Process struct {
	c      *Container
	execID string
	resp   *engine.Response
	ctx    context.Context
	cancel context.CancelFunc

	buf  *ringbuffer.Buffer
	cb   callbackRegistry
	wg   sync.WaitGroup

	running  atomic.Bool
	exitCode atomic.Int64 // -1 until known
	closed   atomic.Bool
	start    time.Time
}

// RunDetached starts command in the background. The returned Process is
// usable immediately; its reader goroutine is already running by the
// time this call returns, matching pocket_dock's create_task semantics.
func (c *Container) RunDetached(ctx context.Context, command string, bufSize int, opts ...RunOption) (*Process, error) {
	o := defaultRunOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if bufSize <= 0 {
		bufSize = 1 << 20
	}

	argv := buildArgv(command, o.Lang)
	procCtx, cancel := context.WithCancel(ctx)

	resp, execID, err := c.execAttach(procCtx, argv, o.Env, o.WorkDir, false)
	if err != nil {
		cancel()
		return nil, err
	}

	p := &Process{
		c:      c,
		execID: execID,
		resp:   resp,
		ctx:    procCtx,
		cancel: cancel,
		buf:    ringbuffer.New(bufSize),
		start:  time.Now(),
	}
	p.exitCode.Store(-1)
	p.running.Store(true)
	c.registerProcess(p)

	p.wg.Add(1)
	go p.readLoop()

	return p, nil
}

func (p *Process) readLoop() {
	defer p.wg.Done()
	defer p.resp.Close()

	frames, errCh := engine.DemuxStream(p.resp.Body)
	for frame := range frames {
		switch frame.Stream {
		case engine.StreamStdout:
			p.buf.WriteStdout(frame.Data)
			p.c.log.writeOutput(frame.Data)
			stdout, _, _ := p.cb.snapshot()
			dispatchStdout(stdout, frame.Data)
		case engine.StreamStderr:
			p.buf.WriteStderr(frame.Data)
			p.c.log.writeOutput(frame.Data)
			_, stderr, _ := p.cb.snapshot()
			dispatchStderr(stderr, frame.Data)
		}
	}
	<-errCh

	code, err := p.c.execExitCode(context.Background(), p.execID)
	if err != nil {
		code = -1
	}
	p.exitCode.Store(int64(code))
	p.running.Store(false)

	_, _, exitFns := p.cb.snapshot()
	dispatchExit(exitFns, code)
	p.c.log.writeDetachFooter(code, time.Since(p.start))
	p.c.unregisterProcess(p)
}

func (p *Process) OnStdout(f StdoutFunc) { p.cb.onStdout(f) }
func (p *Process) OnStderr(f StderrFunc) { p.cb.onStderr(f) }
func (p *Process) OnExit(f ExitFunc)     { p.cb.onExit(f) }

// IsRunning reports whether the exec has not yet produced an exit code.
func (p *Process) IsRunning() bool { return p.running.Load() }

// BufferSize returns the current combined byte count buffered across
// stdout and stderr.
func (p *Process) BufferSize() int { return p.buf.Size() }

// BufferOverflow reports whether the ring buffer has ever evicted data
// for either stream.
func (p *Process) BufferOverflow() bool { return p.buf.Overflow() }

// Peek returns the currently buffered output without clearing it.
func (p *Process) Peek() (stdout, stderr []byte) {
	so, se := p.buf.Peek()
	return so.Data, se.Data
}

// Read returns the currently buffered output and clears it.
func (p *Process) Read() (stdout, stderr []byte) {
	so, se := p.buf.Read()
	return so.Data, se.Data
}

// Wait blocks until the process exits or ctx is canceled, returning an
// ExecResult built from the current buffer snapshot. On a canceled ctx
// the process keeps running in the background; the returned result still
// reflects whatever was buffered at that point, with TimedOut set.
func (p *Process) Wait(ctx context.Context) (ExecResult, error) {
	done := make(chan struct{})
	go func() { p.wg.Wait(); close(done) }()
	select {
	case <-done:
		stdout, stderr := p.Peek()
		return ExecResult{
			Stdout:     stdout,
			Stderr:     stderr,
			ExitCode:   int(p.exitCode.Load()),
			Truncated:  p.BufferOverflow(),
			DurationMs: time.Since(p.start).Milliseconds(),
		}, nil
	case <-ctx.Done():
		stdout, stderr := p.Peek()
		return ExecResult{
			Stdout:     stdout,
			Stderr:     stderr,
			ExitCode:   -1,
			TimedOut:   true,
			Truncated:  p.BufferOverflow(),
			DurationMs: time.Since(p.start).Milliseconds(),
		}, ctx.Err()
	}
}

// Kill sends signal to the process inside the container by inspecting
// the exec's pid and running an in-container `kill -<signal> <pid>`,
// rather than closing the attach socket (which would only sever this
// library's view of the process, not the process itself).
func (p *Process) Kill(ctx context.Context, signal string) error {
	if signal == "" {
		signal = "TERM"
	}
	result, err := p.c.client.ExecInspect(ctx, p.execID)
	if err != nil {
		return translate(err)
	}
	if result.Pid == 0 {
		return nil
	}
	killCmd := fmt.Sprintf("kill -%s %d", signal, result.Pid)
	_, err = p.c.Run(ctx, killCmd)
	return err
}

func (p *Process) closeInternal() {
	if p.closed.Swap(true) {
		return
	}
	p.cancel()
	_ = p.resp.Close()
}
