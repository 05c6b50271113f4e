// Package bridgeerr holds the small error taxonomy the bridge reports
// to its editor collaborator: transport failures, wire-protocol
// desync, failed debugger commands, bad user input, and internal
// failures such as a request timeout.
package bridgeerr

import "fmt"

// Kind classifies a BridgeError for callers that want to react
// differently to, say, a lost connection versus a bad user command.
type Kind int

const (
	// Transport covers failed connects, mid-session EOF, and socket
	// I/O failures. Recovery: reset state, stay usable for attach.
	Transport Kind = iota
	// Protocol covers a malformed header or body: the stream is
	// desynchronized and the connection must be torn down.
	Protocol
	// CommandFailure covers response.success == false. Recovery:
	// render response.message, don't mutate local state.
	CommandFailure
	// User covers bad editor-command arguments.
	User
	// Internal covers internal failures; RequestTimeout is its only
	// constructor. Panics during response handling are not recovered
	// and are not reported under this kind.
	Internal
)

func (k Kind) String() string {
	switch k {
	case Transport:
		return "TransportError"
	case Protocol:
		return "ProtocolError"
	case CommandFailure:
		return "CommandFailure"
	case User:
		return "UserError"
	case Internal:
		return "InternalError"
	default:
		return "UnknownError"
	}
}

// BridgeError wraps an underlying cause with the taxonomy kind so
// callers can errors.As/errors.Is against it while still inspecting
// the original error.
type BridgeError struct {
	Kind Kind
	Err  error
}

func New(kind Kind, format string, args ...interface{}) *BridgeError {
	return &BridgeError{Kind: kind, Err: fmt.Errorf(format, args...)}
}

func Wrap(kind Kind, err error) *BridgeError {
	if err == nil {
		return nil
	}
	return &BridgeError{Kind: kind, Err: err}
}

func (e *BridgeError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *BridgeError) Unwrap() error { return e.Err }

// BadHeader reports a malformed frame header (spec §4.1).
func BadHeader(format string, args ...interface{}) *BridgeError {
	return New(Protocol, format, args...)
}

// RequestTimeout reports a request that never got a matching
// response within the configured deadline (spec §4.8.2).
func RequestTimeout(command string) *BridgeError {
	return New(Internal, "request timed out: %s", command)
}
