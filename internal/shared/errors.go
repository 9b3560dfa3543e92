package shared

import "errors"

var (
	// ErrConnectionLost is returned when the underlying transport drops.
	// The client reacts by scheduling a reconnect; the server releases
	// all session resources immediately.
	ErrConnectionLost = errors.New("connection lost")

	// ErrSessionClosed is returned by operations on a session that has
	// already reached its terminal state.
	ErrSessionClosed = errors.New("session closed")
)
