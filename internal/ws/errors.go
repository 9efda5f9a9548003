package ws

import "errors"

var (
	// ErrSessionClosed is returned by Send and Receive once the session has
	// been closed locally or by the registry.
	ErrSessionClosed = errors.New("session closed")

	// ErrSendBufferFull is returned by Send when the session's outbound queue
	// is full because the client is not reading fast enough.
	ErrSendBufferFull = errors.New("send buffer full")

	// ErrPeerClosed is returned by Receive when the client closed the connection.
	ErrPeerClosed = errors.New("peer closed connection")

	// ErrTooManyConnections is returned by Registry.Add when the configured
	// session limit has been reached.
	ErrTooManyConnections = errors.New("too many connections")

	// ErrRegistryClosed is returned by Registry.Add once CloseAll has run.
	ErrRegistryClosed = errors.New("registry closed")
)

// failureReason labels a send error for metrics.
func failureReason(err error) string {
	if errors.Is(err, ErrSendBufferFull) {
		return "buffer_full"
	}
	return "closed"
}
