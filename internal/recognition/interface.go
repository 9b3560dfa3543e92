// Package recognition wraps the external streaming speech-recognition
// engine: open a handle per language, push PCM bytes, receive interim and
// final transcripts on asynchronous callbacks.
package recognition

import (
	"context"
	"errors"
)

var (
	// ErrEngineUnavailable means the engine cannot be reached or is not
	// configured. Fatal to the session that hit it.
	ErrEngineUnavailable = errors.New("recognition engine unavailable")

	// ErrStreamClosed is returned by Push after Close. It signals an
	// ordering bug in the caller, not a transient condition.
	ErrStreamClosed = errors.New("recognition stream closed")
)

// Callbacks receive engine events. They are invoked from the engine's read
// goroutine; receivers must hand results off to their own context rather
// than doing slow work inline.
type Callbacks struct {
	// OnRecognizing delivers a revisable in-progress transcript.
	OnRecognizing func(text string)

	// OnRecognized delivers a segment-terminal transcript. Confidence is
	// nil when the engine did not report one.
	OnRecognized func(text string, confidence *float64)

	// OnError delivers a stream failure. The session is unusable after.
	OnError func(err error)
}

// Engine opens recognition sessions.
type Engine interface {
	Open(ctx context.Context, language string, cb Callbacks) (Session, error)
}

// Session is one open recognition handle. Push submits PCM16LE bytes at the
// pipeline sample rate. Close is idempotent: the first call releases the
// handle, later calls are no-ops returning nil.
type Session interface {
	Push(pcm []byte) error
	Close() error
}
