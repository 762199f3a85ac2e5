package ringbuffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufferSplitsCapacityEvenly(t *testing.T) {
	b := New(10)
	b.WriteStdout([]byte("1234567890"))
	b.WriteStderr([]byte("abcdefghij"))

	stdout, stderr := b.Peek()
	assert.Len(t, stdout.Data, 5)
	assert.Len(t, stderr.Data, 5)
}

func TestBufferEvictsOldestBytesAndSetsOverflow(t *testing.T) {
	b := New(10) // 5 bytes per stream
	b.WriteStdout([]byte("abc"))
	b.WriteStdout([]byte("defgh")) // now 8 bytes written, only last 5 kept

	stdout, _ := b.Peek()
	assert.Equal(t, "defgh", string(stdout.Data))
	assert.True(t, stdout.Overflow)
}

func TestBufferReadClearsButKeepsOverflowSticky(t *testing.T) {
	b := New(4) // 2 bytes per stream
	b.WriteStdout([]byte("abc"))

	stdout, _ := b.Read()
	assert.True(t, stdout.Overflow)
	assert.Equal(t, 0, b.Size())

	stdout2, _ := b.Peek()
	assert.True(t, stdout2.Overflow, "overflow must stay sticky across reads")
}

func TestBufferSizeAndOverflowAcrossStreams(t *testing.T) {
	b := New(100)
	assert.Equal(t, 0, b.Size())
	assert.False(t, b.Overflow())

	b.WriteStdout([]byte("hello"))
	b.WriteStderr([]byte("world"))
	assert.Equal(t, 10, b.Size())
	assert.False(t, b.Overflow())
}
