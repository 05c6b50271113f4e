package transport

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hankei6km/nodedbg-go/internal/bridgeerr"
)

func TestFrameRoundTrip(t *testing.T) {
	payloads := [][]byte{
		[]byte(`{"seq":1,"type":"request","command":"scripts"}`),
		[]byte(`{}`),
		[]byte(`{"nested":{"a":[1,2,3]},"s":"hello world"}`),
	}
	for _, p := range payloads {
		var buf bytes.Buffer
		if err := NewFrameWriter(&buf).WriteFrame(p); err != nil {
			t.Fatalf("WriteFrame: %v", err)
		}
		got, err := NewFrameReader(&buf).ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame: %v", err)
		}
		if diff := cmp.Diff(string(p), string(got)); diff != "" {
			t.Errorf("round trip mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestFrameSplitReads(t *testing.T) {
	payload := []byte(`{"command":"frame"}`)
	var buf bytes.Buffer
	if err := NewFrameWriter(&buf).WriteFrame(payload); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	whole := buf.Bytes()

	for boundary := 1; boundary < len(whole); boundary++ {
		r := io.MultiReader(
			&slowReader{data: whole[:boundary]},
			&slowReader{data: whole[boundary:]},
		)
		got, err := NewFrameReader(r).ReadFrame()
		if err != nil {
			t.Fatalf("boundary %d: ReadFrame: %v", boundary, err)
		}
		if diff := cmp.Diff(string(payload), string(got)); diff != "" {
			t.Errorf("boundary %d mismatch (-want +got):\n%s", boundary, diff)
		}
	}
}

// slowReader returns its bytes one chunk at a time, forcing the
// header scanner and the body reader to observe partial reads.
type slowReader struct {
	data []byte
	off  int
}

func (s *slowReader) Read(p []byte) (int, error) {
	if s.off >= len(s.data) {
		return 0, io.EOF
	}
	n := copy(p, s.data[s.off:s.off+1])
	s.off += n
	return n, nil
}

func TestKeepAliveHeartbeat(t *testing.T) {
	r := NewFrameReader(bytes.NewBufferString("Content-Length:0\r\n\r\n"))
	body, err := r.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if body != nil {
		t.Errorf("got body %q, want nil for keep-alive", body)
	}
}

func TestBadHeader(t *testing.T) {
	r := NewFrameReader(bytes.NewBufferString("Content-Length\r\n\r\n"))
	_, err := r.ReadFrame()
	var be *bridgeerr.BridgeError
	if !errors.As(err, &be) || be.Kind != bridgeerr.Protocol {
		t.Fatalf("got %v, want a ProtocolError", err)
	}
}

func TestNonIntegerContentLength(t *testing.T) {
	r := NewFrameReader(bytes.NewBufferString("Content-Length: nope\r\n\r\n"))
	_, err := r.ReadFrame()
	var be *bridgeerr.BridgeError
	if !errors.As(err, &be) || be.Kind != bridgeerr.Protocol {
		t.Fatalf("got %v, want a ProtocolError", err)
	}
}

func TestCleanEOF(t *testing.T) {
	r := NewFrameReader(bytes.NewBufferString(""))
	_, err := r.ReadFrame()
	if err != io.EOF {
		t.Fatalf("got %v, want io.EOF", err)
	}
}

func TestUnknownHeaderIgnored(t *testing.T) {
	body := []byte(`{"ok":true}`)
	r := NewFrameReader(bytes.NewBufferString(
		"X-Custom: whatever\r\nContent-Length:11\r\n\r\n" + string(body)))
	got, err := r.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if diff := cmp.Diff(string(body), string(got)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}
