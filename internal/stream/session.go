// Package stream implements the server side of the speech gateway: one
// session per websocket connection, driven as a single-goroutine actor so
// inbound messages, engine callbacks, and lifecycle events never race on
// session state.
package stream

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/eleven-am/speech-gateway/internal/agent"
	"github.com/eleven-am/speech-gateway/internal/codec"
	"github.com/eleven-am/speech-gateway/internal/metrics"
	"github.com/eleven-am/speech-gateway/internal/protocol"
	"github.com/eleven-am/speech-gateway/internal/recognition"
	"github.com/eleven-am/speech-gateway/internal/shared"
)

// State is the session lifecycle position. Transitions are guarded: messages
// arriving in the wrong state are either dropped (audio) or answered with a
// non-fatal error frame.
type State string

const (
	StateIdle       State = "idle"
	StateConfigured State = "configured"
	StateActive     State = "active"
	StateStopping   State = "stopping"
	StateClosed     State = "closed"
)

type eventKind int

const (
	eventRecognizing eventKind = iota
	eventRecognized
	eventFailure
)

// engineEvent carries a recognition callback into the actor goroutine.
type engineEvent struct {
	kind       eventKind
	text       string
	confidence *float64
	err        error
}

// Session is the per-connection actor. All fields below mu-free lines are
// owned by the run goroutine exclusively.
type Session struct {
	ID string

	engine   recognition.Engine
	notifier agent.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger

	inbound  chan *protocol.Message
	events   chan engineEvent
	outbound chan *protocol.Message
	done     chan struct{}

	closeOnce sync.Once
	wg        sync.WaitGroup

	// sendMu serializes sends against the close of outbound: Reject may run
	// from the read pump after the actor has shut down.
	sendMu     sync.Mutex
	sendClosed bool

	// actor-owned state
	state      State
	language   string
	source     string
	engineSess recognition.Session
	openedAt   time.Time
	finals     int
}

type SessionConfig struct {
	Engine   recognition.Engine
	Notifier agent.Notifier
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

func NewSession(cfg SessionConfig) *Session {
	id := shared.NewID("sess")
	if cfg.Notifier == nil {
		cfg.Notifier = agent.Discard{}
	}
	s := &Session{
		ID:       id,
		engine:   cfg.Engine,
		notifier: cfg.Notifier,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger.With("component", "stream_session", "session_id", id),
		inbound:  make(chan *protocol.Message, 64),
		events:   make(chan engineEvent, 64),
		outbound: make(chan *protocol.Message, 64),
		done:     make(chan struct{}),
		state:    StateIdle,
		openedAt: time.Now(),
	}
	if s.metrics != nil {
		s.metrics.RecordSessionOpened()
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// Handle queues one validated wire message for the actor. Messages arriving
// after close are dropped.
func (s *Session) Handle(msg *protocol.Message) {
	select {
	case s.inbound <- msg:
	case <-s.done:
	}
}

// Outbound is the stream of frames to write to the client.
func (s *Session) Outbound() <-chan *protocol.Message { return s.outbound }

// Done is closed when the actor has fully shut down.
func (s *Session) Done() <-chan struct{} { return s.done }

// Close tears the session down: the engine handle is released exactly once
// and the actor goroutine exits. Safe to call from any goroutine, any number
// of times.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
	s.wg.Wait()
}

func (s *Session) run() {
	defer s.wg.Done()
	defer s.shutdown()

	for {
		select {
		case <-s.done:
			return
		case msg := <-s.inbound:
			s.dispatch(msg)
		case evt := <-s.events:
			s.handleEngineEvent(evt)
		}
	}
}

// shutdown runs on the actor goroutine as it exits. The engine handle
// release is guaranteed here even when the transport died mid-stream.
func (s *Session) shutdown() {
	if s.engineSess != nil {
		_ = s.engineSess.Close()
		s.drainEvents()
		s.engineSess = nil
	}
	s.state = StateClosed
	if s.metrics != nil {
		s.metrics.RecordSessionClosed(time.Since(s.openedAt).Seconds())
	}

	s.sendMu.Lock()
	s.sendClosed = true
	close(s.outbound)
	s.sendMu.Unlock()

	s.logger.Info("session closed", "finals", s.finals)
}

func (s *Session) dispatch(msg *protocol.Message) {
	switch msg.Type {
	case protocol.TypeConfig:
		s.handleConfig(msg)
	case protocol.TypeStart:
		s.handleStart()
	case protocol.TypeAudio:
		s.handleAudio(msg)
	case protocol.TypeStop:
		s.handleStop()
	case protocol.TypePing:
		s.send(protocol.Pong(msg.Timestamp))
	case protocol.TypePong:
		// keepalive bookkeeping happens in the connection handler
	default:
		s.protocolError("unexpected message type %q", string(msg.Type))
	}
}

func (s *Session) handleConfig(msg *protocol.Message) {
	switch s.state {
	case StateIdle, StateConfigured:
		s.language = msg.Language
		s.source = msg.Source
		s.state = StateConfigured
		s.send(protocol.ConfigSuccess())
		s.logger.Info("session configured", "language", s.language, "source", s.source)
	default:
		s.protocolError("config not allowed in state %s", string(s.state))
	}
}

func (s *Session) handleStart() {
	switch s.state {
	case StateConfigured:
		sess, err := s.engine.Open(context.Background(), s.language, recognition.Callbacks{
			OnRecognizing: func(text string) {
				s.postEvent(engineEvent{kind: eventRecognizing, text: text})
			},
			OnRecognized: func(text string, confidence *float64) {
				s.postEvent(engineEvent{kind: eventRecognized, text: text, confidence: confidence})
			},
			OnError: func(err error) {
				s.postEvent(engineEvent{kind: eventFailure, err: err})
			},
		})
		if err != nil {
			s.logger.Error("engine open failed", "error", err)
			if s.metrics != nil {
				s.metrics.EngineFailures.Inc()
			}
			s.send(protocol.ErrorFrame("recognition engine unavailable", true))
			go s.Close()
			return
		}
		s.engineSess = sess
		s.state = StateActive
		s.send(protocol.StartSuccess())
		s.logger.Info("recognition started", "language", s.language)
	case StateActive:
		// idempotent: one engine handle, re-ack
		s.send(protocol.StartSuccess())
	default:
		s.protocolError("start not allowed in state %s", string(s.state))
	}
}

func (s *Session) handleAudio(msg *protocol.Message) {
	if s.state != StateActive {
		// dropped silently per the state machine
		s.logger.Debug("audio dropped", "state", string(s.state))
		return
	}

	var pcm []byte
	var err error
	if msg.IsCompressed() {
		pcm, err = codec.DecodeTransport(msg.Data)
	} else {
		pcm, err = codec.DecodeRaw(msg.Data)
	}
	if err != nil {
		// corrupt buffer: drop it, session continues
		s.logger.Warn("audio payload rejected", "error", err)
		if cerr, ok := err.(*codec.Error); ok && s.metrics != nil {
			s.metrics.RecordCodecError(string(cerr.Kind))
		}
		s.send(protocol.ErrorFrame("audio payload rejected: "+err.Error(), false))
		return
	}

	if err := s.engineSess.Push(pcm); err != nil {
		s.logger.Error("engine push failed", "error", err)
		if s.metrics != nil {
			s.metrics.EngineFailures.Inc()
		}
		s.send(protocol.ErrorFrame("recognition push failed", true))
		go s.Close()
		return
	}
	if s.metrics != nil {
		s.metrics.AudioBytes.Add(float64(len(pcm)))
	}
}

func (s *Session) handleStop() {
	switch s.state {
	case StateActive:
		s.state = StateStopping
		// closing the handle flushes the engine's final transcript
		_ = s.engineSess.Close()
		s.drainEvents()
		s.engineSess = nil
		s.state = StateConfigured
		s.send(protocol.StopSuccess())
		s.logger.Info("recognition stopped")
	default:
		s.protocolError("stop not allowed in state %s", string(s.state))
	}
}

// drainEvents delivers engine events that were emitted up to and including
// the handle close, so recognized frames precede the stop acknowledgement.
func (s *Session) drainEvents() {
	for {
		select {
		case evt := <-s.events:
			s.handleEngineEvent(evt)
		default:
			return
		}
	}
}

func (s *Session) handleEngineEvent(evt engineEvent) {
	switch evt.kind {
	case eventRecognizing:
		if s.metrics != nil {
			s.metrics.RecognizingEvents.Inc()
		}
		s.send(protocol.Recognizing(evt.text))
	case eventRecognized:
		if s.metrics != nil {
			s.metrics.RecognizedEvents.Inc()
		}
		s.finals++
		s.send(protocol.Recognized(evt.text, evt.confidence))
		s.forward(evt)
	case eventFailure:
		s.logger.Error("engine stream failed", "error", evt.err)
		if s.metrics != nil {
			s.metrics.EngineFailures.Inc()
		}
		s.send(protocol.ErrorFrame("recognition engine failed", true))
		go s.Close()
	}
}

// forward hands the final transcript to the agent without blocking the
// actor on a slow consumer.
func (s *Session) forward(evt engineEvent) {
	t := agent.Transcript{
		SessionID:  s.ID,
		Text:       evt.text,
		Language:   s.language,
		Confidence: evt.confidence,
		Timestamp:  time.Now().UnixMilli(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.notifier.Notify(ctx, t); err != nil {
			s.logger.Warn("transcript handoff failed", "error", err)
		}
	}()
}

// postEvent is called from engine callback goroutines; it re-joins the
// event into the actor's serialized context.
func (s *Session) postEvent(evt engineEvent) {
	select {
	case s.events <- evt:
	case <-s.done:
	}
}

func (s *Session) send(msg *protocol.Message) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if s.sendClosed {
		return
	}
	select {
	case s.outbound <- msg:
	default:
		if s.metrics != nil {
			s.metrics.OutboundDropped.Inc()
		}
		s.logger.Warn("outbound buffer full, dropping frame", "type", string(msg.Type))
	}
}

// Reject reports a boundary validation failure to the client without
// touching session state. Safe to call from the read pump.
func (s *Session) Reject(reason string) {
	s.logger.Warn("protocol violation", "reason", reason)
	if s.metrics != nil {
		s.metrics.ProtocolErrors.Inc()
	}
	s.send(protocol.ErrorFrame(reason, false))
}

func (s *Session) protocolError(format string, args ...any) {
	s.Reject(fmt.Sprintf(format, args...))
}
