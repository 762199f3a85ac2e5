package podbox

import (
	"context"
	"sync"
	"time"

	"github.com/akshayaggarwal99/podbox/internal/engine"
)

// ExecStream is a streaming exec: each call to Next yields one Chunk of
// output as it arrives. Once Next returns ok=false the stream is
// exhausted and Result becomes available; calling Result before
// exhaustion is a programming error.
type ExecStream struct {
	c       *Container
	execID  string
	resp    *engine.Response
	frames  <-chan engine.Frame
	errCh   <-chan error
	ctx     context.Context
	start   time.Time

	mu        sync.Mutex
	exhausted bool
	result    ExecResult
	closed    bool
	stdout    []byte
	stderr    []byte
}

// RunStream starts command and returns a streaming handle over its
// output.
func (c *Container) RunStream(ctx context.Context, command string, opts ...RunOption) (*ExecStream, error) {
	o := defaultRunOptions()
	for _, opt := range opts {
		opt(&o)
	}

	argv := buildArgv(command, o.Lang)
	resp, execID, err := c.execAttach(ctx, argv, o.Env, o.WorkDir, false)
	if err != nil {
		return nil, err
	}

	frames, errCh := engine.DemuxStream(resp.Body)
	s := &ExecStream{c: c, execID: execID, resp: resp, frames: frames, errCh: errCh, ctx: ctx, start: time.Now()}
	c.registerStream(s)
	return s, nil
}

// Next blocks until the next chunk arrives, the stream ends, or ctx is
// canceled. ok is false once the stream is exhausted; check err
// separately to distinguish a clean end from a communication failure.
func (s *ExecStream) Next(ctx context.Context) (Chunk, bool, error) {
	select {
	case frame, ok := <-s.frames:
		if !ok {
			return Chunk{}, false, s.finalize()
		}
		stream := "stdout"
		s.mu.Lock()
		if frame.Stream == engine.StreamStderr {
			stream = "stderr"
			s.stderr = append(s.stderr, frame.Data...)
		} else {
			s.stdout = append(s.stdout, frame.Data...)
		}
		s.mu.Unlock()
		return Chunk{Stream: stream, Data: frame.Data}, true, nil
	case <-ctx.Done():
		return Chunk{}, false, ctx.Err()
	}
}

func (s *ExecStream) finalize() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.exhausted {
		return nil
	}
	var streamErr error
	select {
	case streamErr = <-s.errCh:
	default:
	}

	exitCode, err := s.c.execExitCode(s.ctx, s.execID)
	if err != nil {
		exitCode = -1
	}
	s.result = ExecResult{
		Stdout:     s.stdout,
		Stderr:     s.stderr,
		ExitCode:   exitCode,
		DurationMs: time.Since(s.start).Milliseconds(),
	}
	s.exhausted = true
	s.c.unregisterStream(s)
	if streamErr != nil {
		return translate(streamErr)
	}
	return nil
}

// Result returns the exec's exit code once the stream has been fully
// drained. It panics if called before Next has returned ok=false, since
// that is a programming error rather than a recoverable condition.
func (s *ExecStream) Result() ExecResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.exhausted {
		panic("podbox: ExecStream.Result called before stream was exhausted")
	}
	return s.result
}

// Close releases the underlying connection early, before the stream has
// been drained. Safe to call multiple times.
func (s *ExecStream) Close() error {
	s.closeInternal()
	return nil
}

func (s *ExecStream) closeInternal() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	_ = s.resp.Close()
	s.c.unregisterStream(s)
}
