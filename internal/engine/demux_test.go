package engine

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frame(stream byte, data []byte) []byte {
	var hdr [8]byte
	hdr[0] = stream
	binary.BigEndian.PutUint32(hdr[4:8], uint32(len(data)))
	return append(hdr[:], data...)
}

func TestDemuxBufferedSplitsStreams(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(frame(StreamStdout, []byte("hello ")))
	buf.Write(frame(StreamStderr, []byte("warn")))
	buf.Write(frame(StreamStdout, []byte("world")))

	result, err := DemuxBuffered(&buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(result.Stdout))
	assert.Equal(t, "warn", string(result.Stderr))
	assert.False(t, result.Truncated)
}

func TestDemuxBufferedDiscardsUnknownStreamType(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(frame(9, []byte("garbage")))
	buf.Write(frame(StreamStdout, []byte("ok")))

	result, err := DemuxBuffered(&buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(result.Stdout))
	assert.Empty(t, result.Stderr)
}

func TestDemuxBufferedTruncatesAtBudgetBoundary(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(frame(StreamStdout, []byte("0123456789")))
	buf.Write(frame(StreamStdout, []byte("more")))

	result, err := DemuxBuffered(&buf, 5)
	require.NoError(t, err)
	assert.Equal(t, "01234", string(result.Stdout))
	assert.True(t, result.Truncated)
}

func TestDemuxStreamDeliversFramesInOrder(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(frame(StreamStdout, []byte("a")))
	buf.Write(frame(StreamStderr, []byte("b")))

	frames, errCh := DemuxStream(&buf)
	var got []Frame
	for f := range frames {
		got = append(got, f)
	}
	require.NoError(t, <-errCh)
	require.Len(t, got, 2)
	assert.Equal(t, StreamStdout, got[0].Stream)
	assert.Equal(t, "a", string(got[0].Data))
	assert.Equal(t, StreamStderr, got[1].Stream)
	assert.Equal(t, "b", string(got[1].Data))
}

func TestChunkedFrameReaderReadsFrameThenEnds(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(frame(StreamStdout, []byte("chunked-payload")))

	r := NewChunkedFrameReader(&buf)
	f, ok, err := r.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "chunked-payload", string(f.Data))

	_, ok, err = r.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}
