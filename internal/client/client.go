// Package client implements the capture side of the pipeline: it reads
// audio frames from a source, buffers and compresses them, streams them to
// the gateway over a websocket, and keeps the connection alive through
// keepalive pings and supervised reconnects.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/eleven-am/speech-gateway/internal/audio"
	"github.com/eleven-am/speech-gateway/internal/codec"
	"github.com/eleven-am/speech-gateway/internal/metrics"
	"github.com/eleven-am/speech-gateway/internal/protocol"
	"github.com/eleven-am/speech-gateway/internal/shared"
)

type Config struct {
	URL      string
	Language string
	Source   string

	Buffering    audio.AccumulatorConfig
	PingInterval time.Duration
	Backoff      shared.BackoffConfig
	DialTimeout  time.Duration

	// Metrics is optional; when set the capture pipeline is instrumented.
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Events are the application-facing callbacks. All of them are invoked from
// the client's read goroutine.
type Events struct {
	OnRecognizing func(text string)
	OnRecognized  func(text string, confidence *float64)
	OnReconnect   func(attempt int)
	OnError       func(err error)
}

// Client drives one streaming session end to end. Run owns the audio loop;
// a read pump and a keepalive loop run per connection and are replaced on
// reconnect.
type Client struct {
	cfg     Config
	events  Events
	sup     *Supervisor
	acc     *audio.Accumulator
	dialer  *websocket.Dialer
	metrics *metrics.Metrics
	logger  *slog.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool

	reconnectMu sync.Mutex
	reconnectOn bool

	stopAck chan struct{}
	done    chan struct{}
	once    sync.Once
}

func New(cfg Config, events Events) *Client {
	if cfg.Language == "" {
		cfg.Language = "en-US"
	}
	if cfg.Source == "" {
		cfg.Source = "microphone"
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		cfg:     cfg,
		events:  events,
		sup:     NewSupervisor(cfg.PingInterval, cfg.Backoff),
		acc:     audio.NewAccumulator(cfg.Buffering),
		dialer:  &websocket.Dialer{HandshakeTimeout: cfg.DialTimeout},
		metrics: cfg.Metrics,
		logger:  cfg.Logger.With("component", "stream_client"),
		stopAck: make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// Health exposes the keepalive snapshot, mainly for diagnostics.
func (c *Client) Health() ConnectionHealth { return c.sup.Health() }

// Run connects, replays config and start, then streams the source until it
// is exhausted or ctx is cancelled. Frames read while the connection is down
// are dropped; each reconnect starts a fresh recognition segment.
func (c *Client) Run(ctx context.Context, source audio.Source) error {
	conn, err := c.dialAndHandshake(ctx)
	if err != nil {
		return err
	}
	c.adopt(conn)
	defer c.shutdown()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return shared.ErrConnectionLost
		default:
		}

		frame, err := source.Read(ctx)
		if errors.Is(err, io.EOF) {
			return c.finish(ctx)
		}
		if err != nil {
			return err
		}
		if c.metrics != nil {
			c.metrics.FramesCaptured.Inc()
		}

		if !c.isConnected() {
			// outage: this audio is dropped, not retried
			c.acc.Drop()
			continue
		}
		if buf := c.acc.Push(frame); buf != nil {
			if err := c.sendBuffer(buf); err != nil {
				c.logger.Warn("send failed, dropping buffer", "error", err)
			}
		}
	}
}

// finish flushes the partial buffer, sends stop, and waits for the ack so
// the final transcript has arrived before Run returns.
func (c *Client) finish(ctx context.Context) error {
	if buf := c.acc.Flush(); buf != nil && c.isConnected() {
		if err := c.sendBuffer(buf); err != nil {
			c.logger.Warn("final buffer send failed", "error", err)
		}
	}
	if !c.isConnected() {
		return shared.ErrConnectionLost
	}
	if err := c.write(protocol.Stop()); err != nil {
		return err
	}

	select {
	case <-c.stopAck:
		return nil
	case <-time.After(10 * time.Second):
		return fmt.Errorf("timed out waiting for stop acknowledgement")
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return shared.ErrConnectionLost
	}
}

func (c *Client) dialAndHandshake(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial gateway: %w", err)
	}

	// config then start, replayed on every (re)connect
	for _, msg := range []*protocol.Message{
		protocol.Config(c.cfg.Language, c.cfg.Source),
		protocol.Start(),
	} {
		data, err := msg.Encode()
		if err != nil {
			conn.Close()
			return nil, err
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			conn.Close()
			return nil, fmt.Errorf("handshake write: %w", err)
		}
	}
	return conn, nil
}

// adopt installs a fresh connection and starts its pumps.
func (c *Client) adopt(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	c.sup.Begin()
	go c.readPump(conn)
	go c.keepalive(conn)
}

func (c *Client) isConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Client) write(msg *protocol.Message) error {
	data, err := msg.Encode()
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected || c.conn == nil {
		return shared.ErrConnectionLost
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) sendBuffer(buf *audio.Buffer) error {
	compressed, err := codec.Encode(buf.PCM)
	if err != nil {
		return err
	}
	if c.metrics != nil {
		c.metrics.RecordFlush(
			string(buf.Reason),
			buf.Duration.Seconds(),
			codec.Ratio(len(buf.PCM), len(compressed)),
			len(buf.PCM))
	}
	c.logger.Debug("buffer sent",
		"reason", string(buf.Reason),
		"duration_ms", buf.Duration.Milliseconds(),
		"pcm_bytes", len(buf.PCM))
	return c.write(protocol.Audio(codec.EncodeRaw(compressed), audio.SampleRate, true))
}

func (c *Client) readPump(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.connectionLost(conn, err)
			return
		}

		msg, err := protocol.Decode(data)
		if err != nil {
			c.logger.Warn("undecodable frame from server", "error", err)
			continue
		}

		switch msg.Type {
		case protocol.TypeRecognizing:
			if c.events.OnRecognizing != nil {
				c.events.OnRecognizing(msg.Text)
			}
		case protocol.TypeRecognized:
			if c.events.OnRecognized != nil {
				c.events.OnRecognized(msg.Text, msg.Confidence)
			}
		case protocol.TypePong:
			c.sup.RecordPong()
		case protocol.TypePing:
			if err := c.write(protocol.Pong(msg.Timestamp)); err != nil {
				c.logger.Warn("pong reply failed", "error", err)
			}
		case protocol.TypeStopSuccess:
			select {
			case c.stopAck <- struct{}{}:
			default:
			}
		case protocol.TypeConfigSuccess, protocol.TypeStartSuccess:
			// handshake acks
		case protocol.TypeError:
			c.logger.Warn("server error", "message", msg.Message, "fatal", msg.Fatal)
			if c.events.OnError != nil {
				c.events.OnError(errors.New(msg.Message))
			}
			if msg.Fatal {
				c.connectionLost(conn, errors.New(msg.Message))
				return
			}
		}
	}
}

func (c *Client) keepalive(conn *websocket.Conn) {
	ticker := time.NewTicker(c.sup.PingInterval())
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if !c.owns(conn) {
				return
			}
			if c.sup.Unhealthy() {
				c.logger.Warn("pong timeout, declaring connection unhealthy")
				c.connectionLost(conn, shared.ErrConnectionLost)
				return
			}
			c.sup.RecordPing()
			if c.metrics != nil {
				c.metrics.PingsSent.Inc()
			}
			if err := c.write(protocol.Ping()); err != nil {
				c.connectionLost(conn, err)
				return
			}
		}
	}
}

func (c *Client) owns(conn *websocket.Conn) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn == conn
}

// connectionLost tears down conn and starts the reconnect loop, once per
// outage: stale pumps of an already-replaced connection do nothing.
func (c *Client) connectionLost(conn *websocket.Conn, cause error) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.connected = false
	c.mu.Unlock()

	conn.Close()

	select {
	case <-c.done:
		return
	default:
	}

	c.reconnectMu.Lock()
	if c.reconnectOn {
		c.reconnectMu.Unlock()
		return
	}
	c.reconnectOn = true
	c.reconnectMu.Unlock()

	c.logger.Warn("connection lost", "error", cause)
	go c.reconnectLoop()
}

func (c *Client) reconnectLoop() {
	defer func() {
		c.reconnectMu.Lock()
		c.reconnectOn = false
		c.reconnectMu.Unlock()
	}()

	for attempt := 1; attempt <= c.sup.MaxAttempts(); attempt++ {
		delay := c.sup.NextDelay()
		select {
		case <-c.done:
			return
		case <-time.After(delay):
		}

		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.DialTimeout)
		conn, err := c.dialAndHandshake(ctx)
		cancel()
		if err != nil {
			c.logger.Warn("reconnect attempt failed",
				"attempt", attempt,
				"max_attempts", c.sup.MaxAttempts(),
				"delay_ms", delay.Milliseconds(),
				"error", err)
			continue
		}

		c.sup.RecordReconnect()
		if c.metrics != nil {
			c.metrics.Reconnects.Inc()
		}
		c.adopt(conn)
		c.logger.Info("reconnected", "attempt", attempt)
		if c.events.OnReconnect != nil {
			c.events.OnReconnect(attempt)
		}
		return
	}

	c.logger.Error("reconnect budget exhausted")
	if c.events.OnError != nil {
		c.events.OnError(shared.ErrConnectionLost)
	}
	c.shutdown()
}

func (c *Client) shutdown() {
	c.once.Do(func() {
		close(c.done)
		c.mu.Lock()
		if c.conn != nil {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = c.conn.WriteMessage(websocket.CloseMessage, msg)
			_ = c.conn.Close()
			c.conn = nil
			c.connected = false
		}
		c.mu.Unlock()
	})
}
