package integration

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akshayaggarwal99/podbox"
)

func TestSessionStderr(t *testing.T) {
	ctx := context.Background()
	c := newTestContainer(t)
	defer c.Shutdown(context.Background(), podbox.ShutdownOptions{Force: true})

	sess, err := c.Session(ctx)
	require.NoError(t, err)
	defer sess.Close()

	result, err := sess.SendAndWait(ctx, "echo session-stdout; echo session-stderr 1>&2", 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Contains(t, result.StdoutText(), "session-stdout")
	assert.Contains(t, result.StderrText(), "session-stderr")
}

// TestRunStream exercises the testable invariant that the concatenation
// of yielded chunks equals the finalized ExecResult's stdout/stderr.
func TestRunStream(t *testing.T) {
	ctx := context.Background()
	c := newTestContainer(t)
	defer c.Shutdown(context.Background(), podbox.ShutdownOptions{Force: true})

	stream, err := c.RunStream(ctx, "printf 'stream-out\\n'; printf 'stream-err\\n' 1>&2")
	require.NoError(t, err)

	var stdout, stderr []byte
	for {
		chunk, ok, err := stream.Next(ctx)
		if !ok {
			require.NoError(t, err)
			break
		}
		if chunk.Stream == "stderr" {
			stderr = append(stderr, chunk.Data...)
		} else {
			stdout = append(stdout, chunk.Data...)
		}
	}

	result := stream.Result()
	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, string(stdout), result.StdoutText())
	assert.Equal(t, string(stderr), result.StderrText())
	assert.Contains(t, result.StdoutText(), "stream-out")
	assert.Contains(t, result.StderrText(), "stream-err")
}

func TestRunDetachedWait(t *testing.T) {
	ctx := context.Background()
	c := newTestContainer(t)
	defer c.Shutdown(context.Background(), podbox.ShutdownOptions{Force: true})

	proc, err := c.RunDetached(ctx, "echo detached-output", 0)
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	result, err := proc.Wait(waitCtx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Contains(t, result.StdoutText(), "detached-output")
	assert.False(t, proc.IsRunning())
}

// TestStreamCommandWebSocket drives the HTTP/WebSocket surface
// (internal/api) end to end, relaying an ExecStream's chunks as JSON
// frames to a remote caller.
func TestStreamCommandWebSocket(t *testing.T) {
	ctx := context.Background()
	c := newTestContainer(t)
	defer c.Shutdown(context.Background(), podbox.ShutdownOptions{Force: true})

	u, err := url.Parse(baseURL)
	require.NoError(t, err)
	u.Scheme = "ws"
	u.Path = fmt.Sprintf("%s/containers/%s/stream", u.Path, c.Name())
	u.RawQuery = "command=" + url.QueryEscape("echo ws-stream-output")

	ws, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	require.NoError(t, err)
	defer ws.Close()

	found := false
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		var event struct {
			Event    string `json:"event"`
			Data     string `json:"data"`
			ExitCode int    `json:"exit_code"`
		}
		if err := ws.ReadJSON(&event); err != nil {
			break
		}
		if event.Event == "stdout" && strings.Contains(event.Data, "ws-stream-output") {
			found = true
		}
		if event.Event == "exit" {
			break
		}
	}
	assert.True(t, found, "expected ws-stream-output in a stdout event")
}
