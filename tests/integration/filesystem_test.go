package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akshayaggarwal99/podbox"
)

func TestFilesystem(t *testing.T) {
	ctx := context.Background()
	c := newTestContainer(t)
	defer c.Shutdown(context.Background(), podbox.ShutdownOptions{Force: true})

	// WriteFile must create the destination directory before pushing.
	require.NoError(t, c.WriteFile(ctx, "/workspace/nested/hello.txt", []byte("hello from podbox"), 0644))

	data, err := c.ReadFile(ctx, "/workspace/nested/hello.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello from podbox", string(data))

	entries, err := c.ListFiles(ctx, "/workspace/nested")
	require.NoError(t, err)
	found := false
	for _, e := range entries {
		if e.Name == "hello.txt" {
			found = true
		}
	}
	assert.True(t, found, "hello.txt should be listed")
}

// TestPushPullDirectoryRoundTrip exercises the push(host, container) /
// pull(container, host) round trip law: a directory tree pushed to the
// container and pulled back must have the same file content, with
// ownership normalized to root along the way.
func TestPushPullDirectoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestContainer(t)
	defer c.Shutdown(context.Background(), podbox.ShutdownOptions{Force: true})

	hostSrc := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(hostSrc, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(hostSrc, "a.txt"), []byte("file a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(hostSrc, "sub", "b.txt"), []byte("file b"), 0644))

	require.NoError(t, c.Push(ctx, hostSrc, "/workspace/tree"))

	result, err := c.Run(ctx, "cat /workspace/tree/a.txt /workspace/tree/sub/b.txt")
	require.NoError(t, err)
	assert.Equal(t, "file afile b", result.StdoutText())

	hostDest := filepath.Join(t.TempDir(), "pulled")
	require.NoError(t, c.Pull(ctx, "/workspace/tree", hostDest))

	pulledA, err := os.ReadFile(filepath.Join(hostDest, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "file a", string(pulledA))

	pulledB, err := os.ReadFile(filepath.Join(hostDest, "sub", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, "file b", string(pulledB))
}

// TestPullSingleFile exercises Pull's single-file case: a one-entry
// archive is written directly to hostDest rather than extracted as a
// directory.
func TestPullSingleFile(t *testing.T) {
	ctx := context.Background()
	c := newTestContainer(t)
	defer c.Shutdown(context.Background(), podbox.ShutdownOptions{Force: true})

	require.NoError(t, c.WriteFile(ctx, "/workspace/single.txt", []byte("single file contents"), 0644))

	hostDest := filepath.Join(t.TempDir(), "single.txt")
	require.NoError(t, c.Pull(ctx, "/workspace/single.txt", hostDest))

	data, err := os.ReadFile(hostDest)
	require.NoError(t, err)
	assert.Equal(t, "single file contents", string(data))
}
