// Package transport owns the TCP connection to the Node.js debugger
// and the Content-Length framing on top of it.
package transport

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/hankei6km/nodedbg-go/internal/bridgeerr"
)

// FrameReader decodes the length-prefixed header+body frames used on
// the debugger's TCP stream (spec §4.1). It is not safe for
// concurrent use; a Transport owns exactly one FrameReader.
type FrameReader struct {
	in *bufio.Reader
}

func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{in: bufio.NewReader(r)}
}

// ReadFrame returns the next frame's body. A zero-length
// Content-Length is the protocol's keep-alive heartbeat: ReadFrame
// reports it as a nil, nil body rather than an error, so callers loop
// back to reading the next frame.
func (r *FrameReader) ReadFrame() ([]byte, error) {
	contentLength := -1
	firstLine := true
	for {
		line, err := r.in.ReadString('\n')
		if err != nil {
			if err == io.EOF && firstLine && line == "" {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("reading header line: %w", err)
		}
		firstLine = false
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			return nil, bridgeerr.BadHeader("malformed header line %q", line)
		}
		name, value := line[:colon], strings.TrimSpace(line[colon+1:])
		if name == "Content-Length" {
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return nil, bridgeerr.BadHeader("invalid Content-Length %q", value)
			}
			contentLength = n
		}
		// unknown headers are ignored, per spec §4.1.
	}
	if contentLength < 0 {
		return nil, bridgeerr.BadHeader("missing Content-Length header")
	}
	if contentLength == 0 {
		// keep-alive heartbeat: no body, stay in ReadingHeaders.
		return nil, nil
	}
	body := make([]byte, contentLength)
	if _, err := io.ReadFull(r.in, body); err != nil {
		return nil, fmt.Errorf("reading frame body: %w", err)
	}
	return body, nil
}

// FrameWriter encodes a JSON body into a Content-Length-framed
// message. It is not safe for concurrent use; Transport serializes
// writes through a single goroutine (spec §4.3's note on atomic
// writes).
type FrameWriter struct {
	out io.Writer
}

func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{out: w}
}

func (w *FrameWriter) WriteFrame(body []byte) error {
	if _, err := fmt.Fprintf(w.out, "Content-Length:%d\r\n\r\n", len(body)); err != nil {
		return err
	}
	_, err := w.out.Write(body)
	return err
}
