package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/yijinliu/algo-lib/go/src/logging"

	"github.com/hankei6km/nodedbg-go/internal/bridgeerr"
	"github.com/hankei6km/nodedbg-go/internal/protocol"
)

// DefaultAddr is the Node.js debugger's default listen address (spec
// §4.2).
const DefaultAddr = "localhost:5858"

// eventQueueSize and writeQueueSize bound the MPSC queues between the
// I/O goroutine and its caller, per spec §5's "bounded MPSC queue".
const (
	eventQueueSize = 64
	writeQueueSize = 64
)

type writeRequest struct {
	body []byte
	done chan error
}

// Transport owns one TCP connection to the debuggee and the single
// reader/single writer goroutines driving it (spec §4.2). It is the
// structural replacement for the teacher's websocket-backed Conn
// (go/conn.go): same pendingCmdMap/readLoop/handleResp/handleEvent
// shape, re-pointed at a raw net.Conn with Content-Length framing
// instead of a *websocket.Conn.
type Transport struct {
	conn net.Conn

	nextSeq uint32 // atomic

	pendingMu sync.Mutex
	pending   map[uint32]chan *protocol.Response

	writeCh   chan writeRequest
	events    chan *protocol.Event
	closed    chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// Dial connects to addr and starts the reader and writer goroutines.
func Dial(addr string) (*Transport, error) {
	logging.Vlogf(2, "Connecting to %s ...", addr)
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Transport, err)
	}
	return NewFromConn(conn), nil
}

// NewFromConn wraps an already-established connection, starting the
// same reader/writer goroutines Dial does. Exported so callers that
// supply their own net.Conn (tests, or a non-TCP transport such as a
// unix socket) can build a Transport without going through Dial.
func NewFromConn(conn net.Conn) *Transport {
	t := &Transport{
		conn:    conn,
		pending: make(map[uint32]chan *protocol.Response),
		writeCh: make(chan writeRequest, writeQueueSize),
		events:  make(chan *protocol.Event, eventQueueSize),
		closed:  make(chan struct{}),
	}
	go t.writeLoop()
	go t.readLoop()
	return t
}

// Events returns the channel events are pushed to. The channel is
// never closed; Done reports when the transport has closed.
func (t *Transport) Events() <-chan *protocol.Event { return t.events }

// Done is closed once the transport has torn down (mid-session EOF,
// or an explicit Close).
func (t *Transport) Done() <-chan struct{} { return t.closed }

// Err returns the error that caused the transport to close, if any.
func (t *Transport) Err() error { return t.closeErr }

// Call assigns the next sequence number, sends cmd, and blocks for
// the matching response or until ctx is done (spec §4.8.2's request
// timeout is implemented by the caller wrapping ctx with a deadline).
func (t *Transport) Call(ctx context.Context, cmd protocol.Command) (*protocol.Response, error) {
	seq := atomic.AddUint32(&t.nextSeq, 1)
	req := &protocol.Request{
		Seq:       seq,
		Type:      "request",
		Command:   cmd.Name(),
		Arguments: cmd.Params(),
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request %s: %w", cmd.Name(), err)
	}

	respCh := make(chan *protocol.Response, 1)
	t.pendingMu.Lock()
	t.pending[seq] = respCh
	t.pendingMu.Unlock()
	defer func() {
		t.pendingMu.Lock()
		delete(t.pending, seq)
		t.pendingMu.Unlock()
	}()

	done := make(chan error, 1)
	select {
	case t.writeCh <- writeRequest{body: body, done: done}:
	case <-t.closed:
		return nil, bridgeerr.Wrap(bridgeerr.Transport, errors.New("transport closed"))
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case err := <-done:
		if err != nil {
			return nil, bridgeerr.Wrap(bridgeerr.Transport, err)
		}
	case <-t.closed:
		return nil, bridgeerr.Wrap(bridgeerr.Transport, errors.New("transport closed"))
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case resp := <-respCh:
		return resp, nil
	case <-t.closed:
		return nil, bridgeerr.Wrap(bridgeerr.Transport, errors.New("transport closed"))
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// writeLoop is the single writer goroutine. Serializing every write
// through it is the structural replacement for the reference source's
// send_req, which needed an ad hoc time.sleep(0.05) to dodge a torn
// write in asynchat's producer queue (spec §4.3) — a single writer
// removes the race instead of sleeping around it.
func (t *Transport) writeLoop() {
	w := NewFrameWriter(t.conn)
	for {
		select {
		case wr := <-t.writeCh:
			logging.Vlogf(3, "SendRequest %s", string(wr.body))
			wr.done <- w.WriteFrame(wr.body)
		case <-t.closed:
			return
		}
	}
}

// readLoop is the single reader goroutine. It decodes frames and
// routes each to either the pending-request table (a Response with a
// matching seq) or the events channel (everything else, including
// responses with no matching seq — spec §4.3's "routed as events").
func (t *Transport) readLoop() {
	r := NewFrameReader(t.conn)
	for {
		body, err := r.ReadFrame()
		if err != nil {
			t.teardown(err)
			return
		}
		if body == nil {
			continue // keep-alive heartbeat
		}
		logging.Vlogf(3, "handleResp %s", string(body))
		resp, evt, err := protocol.DecodeInbound(body)
		if err != nil {
			t.teardown(bridgeerr.Wrap(bridgeerr.Protocol, err))
			return
		}
		if evt != nil {
			select {
			case t.events <- evt:
			case <-t.closed:
				return
			}
			continue
		}
		if resp != nil {
			t.pendingMu.Lock()
			ch, ok := t.pending[uint32(resp.RequestSeq)]
			t.pendingMu.Unlock()
			if ok {
				ch <- resp
			} else {
				logging.Vlogf(0, "Unknown request_seq %d: command=%s, routing as event", resp.RequestSeq, resp.Command)
				orphan := &protocol.Event{Type: "event", Event: resp.Command, Body: resp.Body}
				select {
				case t.events <- orphan:
				case <-t.closed:
					return
				}
			}
		}
	}
}

func (t *Transport) teardown(err error) {
	t.closeOnce.Do(func() {
		if err != nil && !errors.Is(err, io.EOF) {
			logging.Vlog(-1, err)
		}
		t.closeErr = err
		close(t.closed)
		t.conn.Close()
	})
}

// Close tears the connection down from the caller's side (the
// editor's "dettach"/"quit" path).
func (t *Transport) Close() error {
	t.teardown(nil)
	return nil
}
