package podbox

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/akshayaggarwal99/podbox/internal/engine"
)

// sentinelRE matches the echoed completion marker a Session appends to
// every command: PBX_<16 hex chars>_<exit code>__. The id must match the
// command currently in flight; a stale id (from a command whose output
// arrived late, after a timeout already gave up on it) is not treated as
// completion.
var sentinelRE = regexp.MustCompile(`^PBX_([0-9a-f]{16})_(-?\d+)__$`)

type pendingCommand struct {
	id     string
	result chan ExecResult
	start  time.Time
	stderr strings.Builder
}

// Session is a single persistent shell (bash) inside a container, used
// to run a sequence of commands that share process state (cwd, env,
// background jobs) across calls — unlike Run, which execs fresh every
// time.
type Session struct {
	c      *Container
	execID string
	resp   *engine.Response

	mu      sync.Mutex
	pending *pendingCommand
	stdoutBuf strings.Builder
	stderrBuf strings.Builder
	closed  atomic.Bool

	onOutput []func(line string)

	wg sync.WaitGroup
}

// Session starts a persistent bash shell inside the container.
func (c *Container) Session(ctx context.Context) (*Session, error) {
	resp, execID, err := c.execAttach(ctx, []string{"bash"}, nil, "", true)
	if err != nil {
		return nil, err
	}
	s := &Session{c: c, execID: execID, resp: resp}
	c.registerSession(s)
	s.wg.Add(1)
	go s.readLoop()
	return s, nil
}

func (s *Session) readLoop() {
	defer s.wg.Done()
	frames, errCh := engine.DemuxStream(s.resp.Body)
	lineBuf := &strings.Builder{}
	for frame := range frames {
		switch frame.Stream {
		case engine.StreamStdout:
			for _, b := range frame.Data {
				if b == '\n' {
					s.handleLine(lineBuf.String())
					lineBuf.Reset()
					continue
				}
				lineBuf.WriteByte(b)
			}
		case engine.StreamStderr:
			s.handleStderr(frame.Data)
		}
	}
	<-errCh
	s.finish(true)
}

// handleStderr delivers stderr bytes to the session's general stderr
// buffer and, if a command is currently outstanding, to its accumulator —
// unlike stdout, stderr carries no sentinel and is never line-buffered.
func (s *Session) handleStderr(data []byte) {
	s.mu.Lock()
	s.stderrBuf.Write(data)
	pending := s.pending
	s.mu.Unlock()
	if pending != nil {
		pending.stderr.Write(data)
	}
	s.c.log.writeRecv(string(data))
}

func (s *Session) handleLine(line string) {
	if m := sentinelRE.FindStringSubmatch(line); m != nil {
		s.mu.Lock()
		pending := s.pending
		s.mu.Unlock()
		if pending != nil && pending.id == m[1] {
			exitCode, _ := strconv.Atoi(m[2])
			accumulated := s.drainStdout()
			pending.result <- ExecResult{
				Stdout:     []byte(accumulated),
				Stderr:     []byte(pending.stderr.String()),
				ExitCode:   exitCode,
				DurationMs: time.Since(pending.start).Milliseconds(),
			}
			s.mu.Lock()
			s.pending = nil
			s.mu.Unlock()
			return // sentinel line is consumed, never emitted to callers.
		}
	}
	s.mu.Lock()
	s.stdoutBuf.WriteString(line)
	s.stdoutBuf.WriteByte('\n')
	s.mu.Unlock()
	s.c.log.writeRecv(line)
	for _, f := range s.onOutput {
		safeCall(func() { f(line) })
	}
}

func (s *Session) drainStdout() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.stdoutBuf.String()
	s.stdoutBuf.Reset()
	return out
}

// finish forces a result onto any outstanding SendAndWait call when the
// reader loop exits (EOF) while a command is still pending; exit code
// -1 matches the timeout convention since completion could not be
// confirmed.
func (s *Session) finish(eof bool) {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()
	if pending != nil {
		pending.result <- ExecResult{
			ExitCode:   -1,
			TimedOut:   !eof,
			Stderr:     []byte(pending.stderr.String()),
			DurationMs: time.Since(pending.start).Milliseconds(),
		}
	}
}

// OnOutput registers a callback for every non-sentinel stdout line.
func (s *Session) OnOutput(f func(line string)) {
	s.onOutput = append(s.onOutput, f)
}

// Send writes command followed by a newline without waiting for it to
// complete.
func (s *Session) Send(command string) error {
	if s.closed.Load() {
		return &SessionClosedError{}
	}
	s.c.log.writeSend(command)
	return s.write(command + "\n")
}

func (s *Session) write(data string) error {
	if _, err := s.resp.Write([]byte(data)); err != nil {
		return translate(err)
	}
	return nil
}

// SendAndWait appends the sentinel-echo trick to command, sends it, and
// blocks until the sentinel line comes back (or ctx is canceled / the
// timeout elapses), recovering the command's exit code from it. Only one
// SendAndWait may be outstanding on a Session at a time; a concurrent
// second call returns ErrSendInProgress immediately rather than queuing,
// since queuing would hide a caller bug.
func (s *Session) SendAndWait(ctx context.Context, command string, timeout time.Duration) (ExecResult, error) {
	if s.closed.Load() {
		return ExecResult{}, &SessionClosedError{}
	}

	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	resultCh := make(chan ExecResult, 1)

	s.mu.Lock()
	if s.pending != nil {
		s.mu.Unlock()
		return ExecResult{}, ErrSendInProgress
	}
	pending := &pendingCommand{id: id, result: resultCh, start: time.Now()}
	s.pending = pending
	s.mu.Unlock()

	full := fmt.Sprintf("%s\necho %s_%s_${?}__\n", command, sentinelPrefix, id)
	s.c.log.writeSend(command)
	if err := s.write(full); err != nil {
		s.mu.Lock()
		s.pending = nil
		s.mu.Unlock()
		return ExecResult{}, err
	}

	waitCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	select {
	case result := <-resultCh:
		return result, nil
	case <-waitCtx.Done():
		s.mu.Lock()
		if s.pending != nil && s.pending.id == id {
			s.pending = nil
		}
		s.mu.Unlock()
		return ExecResult{
			TimedOut:   true,
			ExitCode:   -1,
			Stderr:     []byte(pending.stderr.String()),
			DurationMs: time.Since(pending.start).Milliseconds(),
		}, nil
	}
}

const sentinelPrefix = "PBX"

// Close ends the session: the background bash process is killed by
// closing its attach connection.
func (s *Session) Close() error {
	s.closeInternal()
	return nil
}

func (s *Session) closeInternal() {
	if s.closed.Swap(true) {
		return
	}
	s.finish(false)
	_ = s.resp.Close()
	s.c.unregisterSession(s)
}
