package engine

import (
	"bufio"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkedReaderDecodesMultipleChunks(t *testing.T) {
	raw := "5\r\nhello\r\n6\r\n world\r\n0\r\n\r\n"
	r := NewChunkedReader(bufio.NewReader(strings.NewReader(raw)))
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))
}

func TestChunkedReaderHandlesSingleByteReads(t *testing.T) {
	raw := "3\r\nabc\r\n0\r\n\r\n"
	r := NewChunkedReader(bufio.NewReader(strings.NewReader(raw)))
	var out []byte
	buf := make([]byte, 1)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			out = append(out, buf[0])
		}
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	assert.Equal(t, "abc", string(out))
}

func TestReadStatusLine(t *testing.T) {
	br := bufio.NewReader(strings.NewReader("HTTP/1.1 204 No Content\r\n"))
	code, err := readStatusLine(br)
	require.NoError(t, err)
	assert.Equal(t, 204, code)
}

func TestReadHeadersLowercasesNames(t *testing.T) {
	br := bufio.NewReader(strings.NewReader("Content-Type: application/json\r\nX-Foo: Bar\r\n\r\n"))
	headers, err := readHeaders(br)
	require.NoError(t, err)
	assert.Equal(t, "application/json", headers["content-type"])
	assert.Equal(t, "Bar", headers["x-foo"])
}
