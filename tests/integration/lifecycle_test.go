package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akshayaggarwal99/podbox"
)

func newTestContainer(t *testing.T, opts ...podbox.CreateOption) *podbox.Container {
	t.Helper()
	base := []podbox.CreateOption{
		podbox.WithSocket(socket),
		func(o *podbox.CreateOptions) { o.Image = "docker.io/library/alpine:latest" },
		podbox.WithMemLimit("128m"),
		podbox.WithCPUCores(0.5),
	}
	c, err := podbox.Create(context.Background(), append(base, opts...)...)
	require.NoError(t, err)
	return c
}

func TestContainerLifecycle(t *testing.T) {
	ctx := context.Background()
	c := newTestContainer(t, podbox.WithProject("podbox-it-lifecycle"))
	defer c.Shutdown(context.Background(), podbox.ShutdownOptions{Force: true})

	result, err := c.Run(ctx, "echo lifecycle-test-success")
	require.NoError(t, err)
	assert.True(t, result.Ok())
	assert.Contains(t, result.StdoutText(), "lifecycle-test-success")
	assert.GreaterOrEqual(t, result.DurationMs, int64(0))

	items, err := podbox.List(ctx, socket, "podbox-it-lifecycle")
	require.NoError(t, err)
	found := false
	for _, item := range items {
		if item.ID == c.ID() {
			found = true
		}
	}
	assert.True(t, found, "container should appear in List")

	info, err := c.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, "running", info.State)
	assert.True(t, info.NetworkEnabled)

	require.NoError(t, c.Shutdown(ctx, podbox.ShutdownOptions{Persist: true}))
	require.NoError(t, c.Shutdown(ctx, podbox.ShutdownOptions{Persist: true}), "second Shutdown must be a no-op")

	resumed, err := podbox.Resume(ctx, socket, c.Name())
	require.NoError(t, err)
	result, err = resumed.Run(ctx, "echo resumed")
	require.NoError(t, err)
	assert.Contains(t, result.StdoutText(), "resumed")

	require.NoError(t, podbox.Destroy(ctx, socket, resumed.Name()))
}

// TestRunDurationTracking exercises the DurationMs field a buffered Run
// must stamp on every ExecResult.
func TestRunDurationTracking(t *testing.T) {
	ctx := context.Background()
	c := newTestContainer(t)
	defer c.Shutdown(context.Background(), podbox.ShutdownOptions{Force: true})

	result, err := c.Run(ctx, "sleep 1")
	require.NoError(t, err)
	assert.True(t, result.Ok())
	assert.GreaterOrEqual(t, result.DurationMs, int64(900))
}

func TestPruneRemovesStoppedNotRunning(t *testing.T) {
	ctx := context.Background()
	c := newTestContainer(t, podbox.WithProject("podbox-it-prune"))
	name := c.Name()
	require.NoError(t, c.Shutdown(ctx, podbox.ShutdownOptions{Persist: true}))

	running := newTestContainer(t, podbox.WithProject("podbox-it-prune"))
	defer running.Shutdown(context.Background(), podbox.ShutdownOptions{Force: true})

	removed, err := podbox.Prune(ctx, socket, "podbox-it-prune")
	require.NoError(t, err)
	assert.Contains(t, removed, name)
	assert.NotContains(t, removed, running.Name())

	_, err = podbox.Resume(ctx, socket, name)
	assert.Error(t, err, "pruned container must no longer be resumable")

	_, err = podbox.Resume(ctx, socket, running.Name())
	assert.NoError(t, err, "still-running container must survive prune")
}
