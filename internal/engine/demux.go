package engine

import (
	"encoding/binary"
	"io"
)

// Stream type byte from the engine's multiplex frame header.
const (
	StreamStdin  byte = 0
	StreamStdout byte = 1
	StreamStderr byte = 2
)

const frameHeaderSize = 8

// Frame is one demultiplexed chunk of output, tagged with its origin
// stream.
type Frame struct {
	Stream byte
	Data   []byte
}

// ReadFrameHeader parses one 8-byte multiplex header: byte 0 is the
// stream type, bytes 1-3 are zero padding, bytes 4-7 are a big-endian
// payload length.
func ReadFrameHeader(r io.Reader) (stream byte, length uint32, err error) {
	var hdr [frameHeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return 0, 0, err
	}
	return hdr[0], binary.BigEndian.Uint32(hdr[4:8]), nil
}

// DemuxResult is the accumulated output of a buffered demux pass.
type DemuxResult struct {
	Stdout    []byte
	Stderr    []byte
	Truncated bool
}

// DemuxBuffered reads multiplex frames from r until EOF, splitting
// stdout/stderr into separate buffers. If maxOutput is > 0 the combined
// byte budget is capped: once exhausted, any further payload (including
// the remainder of a frame that only partially fits) is dropped and
// Truncated is set. Unknown stream types are discarded entirely — they
// still count toward nothing, since discarded bytes were never engine
// stdout/stderr in the first place.
func DemuxBuffered(r io.Reader, maxOutput int) (DemuxResult, error) {
	var result DemuxResult
	remaining := maxOutput
	unlimited := maxOutput <= 0

	for {
		stream, length, err := ReadFrameHeader(r)
		if err == io.EOF {
			return result, nil
		}
		if err != nil {
			return result, &CommunicationError{Detail: "reading frame header", Err: err}
		}

		payload := make([]byte, length)
		if _, err := io.ReadFull(r, payload); err != nil {
			return result, &CommunicationError{Detail: "reading frame payload", Err: err}
		}

		if stream != StreamStdout && stream != StreamStderr {
			continue
		}

		if !unlimited {
			if remaining <= 0 {
				result.Truncated = true
				continue
			}
			if len(payload) > remaining {
				payload = payload[:remaining]
				result.Truncated = true
			}
			remaining -= len(payload)
		}

		switch stream {
		case StreamStdout:
			result.Stdout = append(result.Stdout, payload...)
		case StreamStderr:
			result.Stderr = append(result.Stderr, payload...)
		}
	}
}

// DemuxBufferedChunked is DemuxBuffered for a response whose body is
// chunked-transfer-encoded and may be cut short mid-frame on abrupt close;
// it reads frame-at-a-time through a ChunkedFrameReader instead of the
// plain io.ReadFull header/payload pair DemuxBuffered uses, so a truncated
// final chunk ends the pass cleanly rather than surfacing as an error.
func DemuxBufferedChunked(r io.Reader, maxOutput int) (DemuxResult, error) {
	var result DemuxResult
	remaining := maxOutput
	unlimited := maxOutput <= 0

	cr := NewChunkedFrameReader(r)
	for {
		frame, ok, err := cr.Next()
		if err != nil {
			return result, err
		}
		if !ok {
			return result, nil
		}
		if frame.Stream != StreamStdout && frame.Stream != StreamStderr {
			continue
		}

		payload := frame.Data
		if !unlimited {
			if remaining <= 0 {
				result.Truncated = true
				continue
			}
			if len(payload) > remaining {
				payload = payload[:remaining]
				result.Truncated = true
			}
			remaining -= len(payload)
		}

		switch frame.Stream {
		case StreamStdout:
			result.Stdout = append(result.Stdout, payload...)
		case StreamStderr:
			result.Stderr = append(result.Stderr, payload...)
		}
	}
}

// DemuxStream lazily decodes multiplex frames from r, delivering each one
// on the returned channel as it arrives (the Go analogue of the source's
// async generator). The channel is closed and errCh receives at most one
// error when r is exhausted or fails. Callers must drain frameCh until it
// closes to avoid leaking the reader goroutine.
func DemuxStream(r io.Reader) (<-chan Frame, <-chan error) {
	frameCh := make(chan Frame)
	errCh := make(chan error, 1)

	go func() {
		defer close(frameCh)
		for {
			stream, length, err := ReadFrameHeader(r)
			if err == io.EOF {
				errCh <- nil
				return
			}
			if err != nil {
				errCh <- &CommunicationError{Detail: "reading frame header", Err: err}
				return
			}
			payload := make([]byte, length)
			if _, err := io.ReadFull(r, payload); err != nil {
				errCh <- &CommunicationError{Detail: "reading frame payload", Err: err}
				return
			}
			if stream != StreamStdout && stream != StreamStderr {
				continue
			}
			frameCh <- Frame{Stream: stream, Data: payload}
		}
	}()

	return frameCh, errCh
}

// ChunkedFrameReader reassembles multiplex frames that may be split
// across HTTP chunk boundaries. It is kept as its own type rather than
// folded into DemuxBuffered/DemuxStream: a naive "read N bytes" call
// against a ChunkedReader already handles reassembly transparently
// because io.ReadFull spans chunk boundaries on its own, but the engine
// occasionally emits a final short chunk mid-frame on abrupt connection
// close, which this type treats as a clean end-of-stream instead of an
// error the way the plain demux would.
type ChunkedFrameReader struct {
	r io.Reader
}

func NewChunkedFrameReader(r io.Reader) *ChunkedFrameReader {
	return &ChunkedFrameReader{r: r}
}

func (c *ChunkedFrameReader) Next() (Frame, bool, error) {
	var hdr [frameHeaderSize]byte
	n, err := io.ReadFull(c.r, hdr[:])
	if err == io.EOF || (err == io.ErrUnexpectedEOF && n == 0) {
		return Frame{}, false, nil
	}
	if err != nil {
		return Frame{}, false, &CommunicationError{Detail: "reading frame header", Err: err}
	}

	length := binary.BigEndian.Uint32(hdr[4:8])
	payload := make([]byte, length)
	if _, err := io.ReadFull(c.r, payload); err != nil {
		if err == io.ErrUnexpectedEOF {
			return Frame{}, false, nil
		}
		return Frame{}, false, &CommunicationError{Detail: "reading frame payload", Err: err}
	}

	return Frame{Stream: hdr[0], Data: payload}, true, nil
}
