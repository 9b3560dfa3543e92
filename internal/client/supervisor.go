package client

import (
	"sync"
	"time"

	"github.com/eleven-am/speech-gateway/internal/shared"
)

// ConnectionHealth is a snapshot of the keepalive state.
type ConnectionHealth struct {
	LastPingSent     time.Time
	LastPongReceived time.Time
	MissedPongs      int
	Reconnects       int
}

// Supervisor tracks keepalive health and paces reconnection attempts. A
// connection is unhealthy when a ping has gone unanswered for twice the ping
// interval. Backoff delays double per consecutive failure and reset to the
// initial delay after one successful reconnect.
type Supervisor struct {
	pingInterval time.Duration
	backoff      shared.BackoffConfig
	now          func() time.Time

	mu     sync.Mutex
	health ConnectionHealth
	delay  time.Duration
	epoch  time.Time
}

func NewSupervisor(pingInterval time.Duration, backoff shared.BackoffConfig) *Supervisor {
	if pingInterval <= 0 {
		pingInterval = 2 * time.Second
	}
	return &Supervisor{
		pingInterval: pingInterval,
		backoff:      backoff.Normalize(),
		now:          time.Now,
	}
}

func (s *Supervisor) PingInterval() time.Duration { return s.pingInterval }

// Timeout is the window a pong must arrive in after a ping.
func (s *Supervisor) Timeout() time.Duration { return 2 * s.pingInterval }

func (s *Supervisor) RecordPing() {
	s.mu.Lock()
	s.health.LastPingSent = s.now()
	s.mu.Unlock()
}

func (s *Supervisor) RecordPong() {
	s.mu.Lock()
	s.health.LastPongReceived = s.now()
	s.health.MissedPongs = 0
	s.mu.Unlock()
}

// Begin marks the start of a connection's keepalive window. Until the first
// pong arrives, the window is measured from here.
func (s *Supervisor) Begin() {
	s.mu.Lock()
	s.epoch = s.now()
	s.health.LastPingSent = time.Time{}
	s.health.LastPongReceived = time.Time{}
	s.mu.Unlock()
}

// Unhealthy reports whether pings have gone unanswered past the timeout.
// Counts a missed pong each time it trips.
func (s *Supervisor) Unhealthy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.health.LastPingSent.IsZero() {
		return false
	}
	ref := s.health.LastPongReceived
	if ref.IsZero() || ref.Before(s.epoch) {
		ref = s.epoch
	}
	if s.now().Sub(ref) < s.Timeout() {
		return false
	}
	s.health.MissedPongs++
	return true
}

// NextDelay returns the wait before the next reconnection attempt, doubling
// on each call up to the configured cap.
func (s *Supervisor) NextDelay() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.delay <= 0 {
		s.delay = s.backoff.Initial
	} else {
		s.delay = s.backoff.Next(s.delay)
	}
	return s.delay
}

// MaxAttempts is the reconnection attempt budget before giving up.
func (s *Supervisor) MaxAttempts() int { return s.backoff.MaxAttempts }

// RecordReconnect marks a successful reconnect: the backoff resets so the
// next outage starts from the initial delay again.
func (s *Supervisor) RecordReconnect() {
	s.mu.Lock()
	s.delay = 0
	s.health.Reconnects++
	s.health.MissedPongs = 0
	s.mu.Unlock()
}

func (s *Supervisor) Health() ConnectionHealth {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.health
}
