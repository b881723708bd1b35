package envelope

import "fmt"

// ErrorKind classifies a failed call
type ErrorKind string

const (
	// KindInvalidArgument means the arguments failed schema validation.
	// Local, never retried, never triggers fallback.
	KindInvalidArgument ErrorKind = "invalid_argument"
	// KindAuthError means the OAuth token exchange failed
	KindAuthError ErrorKind = "auth_error"
	// KindTransportUnavailable means the network transport itself failed
	// (timeout, connection refused, DNS)
	KindTransportUnavailable ErrorKind = "transport_unavailable"
	// KindRemoteRejected means the remote endpoint returned an
	// application-level error
	KindRemoteRejected ErrorKind = "remote_rejected"
	// KindTimeout means the per-call deadline elapsed
	KindTimeout ErrorKind = "timeout"
	// KindNotConnected means the protocol session is not ready for calls
	KindNotConnected ErrorKind = "not_connected"
	// KindSessionLost means the server subprocess died with calls in flight
	KindSessionLost ErrorKind = "session_lost"
)

// Retriable reports whether a failure of this kind is eligible to trigger
// fallback to the alternate transport
func (k ErrorKind) Retriable() bool {
	switch k {
	case KindTransportUnavailable, KindRemoteRejected, KindTimeout, KindNotConnected, KindSessionLost:
		return true
	}
	return false
}

// Transport identifies which transport served a call
type Transport string

const (
	TransportDirect Transport = "direct"
	TransportMCP    Transport = "mcp"
)

// Envelope is the uniform result wrapper returned to all callers of the
// gateway, regardless of which transport served the request. Immutable once
// constructed.
type Envelope struct {
	Success   bool                   `json:"success"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	ErrorKind ErrorKind              `json:"error_kind,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Transport Transport              `json:"transport_used,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// OK wraps a successful payload
func OK(payload map[string]interface{}) Envelope {
	return Envelope{Success: true, Payload: payload}
}

// Fail wraps a typed failure
func Fail(kind ErrorKind, message string) Envelope {
	return Envelope{Success: false, ErrorKind: kind, Error: message}
}

// Failf wraps a typed failure with a formatted message
func Failf(kind ErrorKind, format string, args ...interface{}) Envelope {
	return Fail(kind, fmt.Sprintf(format, args...))
}

// Tagged returns a copy of the envelope stamped with the serving transport
func (e Envelope) Tagged(t Transport) Envelope {
	e.Transport = t
	return e
}

// WithRequestID returns a copy of the envelope carrying the request id
func (e Envelope) WithRequestID(id string) Envelope {
	e.RequestID = id
	return e
}
