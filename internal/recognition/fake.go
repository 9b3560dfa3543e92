package recognition

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
)

// FakeEngine is an in-process engine for tests and offline runs. It emits a
// recognizing event for every pushed buffer that carries speech energy, and
// a single recognized event when the session closes after hearing speech.
type FakeEngine struct {
	// FailOpen makes Open return ErrEngineUnavailable.
	FailOpen bool

	// Transcript is the final text emitted on close. Defaults to a fixed
	// phrase when empty.
	Transcript string

	// Confidence attached to the final event. Nil omits it.
	Confidence *float64

	mu       sync.Mutex
	sessions []*FakeSession
}

func (e *FakeEngine) Open(ctx context.Context, language string, cb Callbacks) (Session, error) {
	if e.FailOpen {
		return nil, ErrEngineUnavailable
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text := e.Transcript
	if text == "" {
		text = "hello world"
	}
	s := &FakeSession{
		Language:   language,
		cb:         cb,
		transcript: text,
		confidence: e.Confidence,
	}

	e.mu.Lock()
	e.sessions = append(e.sessions, s)
	e.mu.Unlock()
	return s, nil
}

// Sessions returns every session opened so far, including closed ones.
func (e *FakeEngine) Sessions() []*FakeSession {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*FakeSession, len(e.sessions))
	copy(out, e.sessions)
	return out
}

// OpenCount reports how many sessions were opened.
func (e *FakeEngine) OpenCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}

type FakeSession struct {
	Language string

	cb         Callbacks
	transcript string
	confidence *float64

	mu         sync.Mutex
	closed     bool
	pushed     int
	heardVoice bool

	closeCount atomic.Int32
}

func (s *FakeSession) Push(pcm []byte) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStreamClosed
	}
	s.pushed += len(pcm)
	voiced := hasVoice(pcm)
	if voiced {
		s.heardVoice = true
	}
	cb := s.cb
	text := s.transcript
	s.mu.Unlock()

	if voiced && cb.OnRecognizing != nil {
		cb.OnRecognizing(partialOf(text))
	}
	return nil
}

func (s *FakeSession) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	heard := s.heardVoice
	cb := s.cb
	text := s.transcript
	conf := s.confidence
	s.mu.Unlock()

	s.closeCount.Add(1)
	if heard && cb.OnRecognized != nil {
		cb.OnRecognized(text, conf)
	}
	return nil
}

// CloseCount reports how many times Close performed a real close. It stays
// at one no matter how often Close is called.
func (s *FakeSession) CloseCount() int { return int(s.closeCount.Load()) }

// PushedBytes reports the total audio volume received.
func (s *FakeSession) PushedBytes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pushed
}

func partialOf(text string) string {
	if len(text) <= 3 {
		return text
	}
	return text[:len(text)/2]
}

// hasVoice applies the same RMS test the buffering stage uses, over raw
// PCM16LE bytes.
func hasVoice(pcm []byte) bool {
	if len(pcm) < 2 {
		return false
	}
	var sum float64
	n := len(pcm) / 2
	for i := 0; i+1 < len(pcm); i += 2 {
		v := int16(uint16(pcm[i]) | uint16(pcm[i+1])<<8)
		f := float64(v) / 32768.0
		sum += f * f
	}
	return math.Sqrt(sum/float64(n)) > 0.01
}
