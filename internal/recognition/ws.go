package recognition

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// engineEvent is the JSON frame the engine emits on its event stream.
type engineEvent struct {
	Type       string   `json:"type"`
	Text       string   `json:"text,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
	Message    string   `json:"message,omitempty"`
}

const (
	eventRecognizing = "recognizing"
	eventRecognized  = "recognized"
	eventError       = "error"
)

// drainWindow bounds how long Close waits for the engine's final events
// after the close frame is sent.
const drainWindow = 3 * time.Second

// WSEngine talks to the streaming engine over a websocket per session:
// binary frames carry PCM16LE audio upstream, JSON frames carry transcript
// events back.
type WSEngine struct {
	cfg    Config
	dialer *websocket.Dialer
	logger *slog.Logger
}

func NewWSEngine(cfg Config, logger *slog.Logger) (*WSEngine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.normalize()
	return &WSEngine{
		cfg: cfg,
		dialer: &websocket.Dialer{
			HandshakeTimeout: cfg.DialTimeout,
		},
		logger: logger.With("component", "recognition"),
	}, nil
}

func (e *WSEngine) Open(ctx context.Context, language string, cb Callbacks) (Session, error) {
	u, err := url.Parse(e.cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: bad endpoint: %v", ErrEngineUnavailable, err)
	}
	q := u.Query()
	q.Set("language", language)
	q.Set("sample_rate", "16000")
	q.Set("encoding", "pcm_s16le")
	u.RawQuery = q.Encode()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+e.cfg.Key)

	conn, resp, err := e.dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			e.logger.Error("engine dial rejected", "status", resp.StatusCode, "error", err)
			return nil, fmt.Errorf("%w: dial status %d", ErrEngineUnavailable, resp.StatusCode)
		}
		e.logger.Error("engine dial failed", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}

	s := &wsSession{
		conn:     conn,
		cb:       cb,
		done:     make(chan struct{}),
		loopDone: make(chan struct{}),
		logger:   e.logger.With("language", language),
	}
	go s.readLoop()

	e.logger.Info("engine session opened", "language", language)
	return s, nil
}

// Ping dials the engine endpoint over plain HTTP to answer readiness probes
// without opening a recognition session.
func (e *WSEngine) Ping(ctx context.Context) error {
	u, err := url.Parse(e.cfg.Endpoint)
	if err != nil {
		return fmt.Errorf("%w: bad endpoint: %v", ErrEngineUnavailable, err)
	}
	switch u.Scheme {
	case "wss":
		u.Scheme = "https"
	case "ws":
		u.Scheme = "http"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+e.cfg.Key)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: probe status %d", ErrEngineUnavailable, resp.StatusCode)
	}
	return nil
}

type wsSession struct {
	conn   *websocket.Conn
	cb     Callbacks
	logger *slog.Logger

	mu       sync.Mutex
	closed   bool
	done     chan struct{}
	loopDone chan struct{}

	closeOnce sync.Once
}

func (s *wsSession) Push(pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStreamClosed
	}
	if err := s.conn.WriteMessage(websocket.BinaryMessage, pcm); err != nil {
		return fmt.Errorf("push audio: %w", err)
	}
	return nil
}

// Close announces the end of the stream and then lets the read loop drain:
// engines often emit the final transcript only after seeing the close frame,
// so the connection is not torn down until the peer closes its side or the
// drain window elapses.
func (s *wsSession) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.done)

		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = s.conn.WriteMessage(websocket.CloseMessage, msg)

		_ = s.conn.SetReadDeadline(time.Now().Add(drainWindow))
		select {
		case <-s.loopDone:
		case <-time.After(drainWindow):
		}

		_ = s.conn.Close()
		s.logger.Debug("engine session closed")
	})
	return nil
}

func (s *wsSession) readLoop() {
	defer close(s.loopDone)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			select {
			case <-s.done:
				// expected: we closed the connection
			default:
				s.logger.Error("engine read failed", "error", err)
				if s.cb.OnError != nil {
					s.cb.OnError(fmt.Errorf("%w: %v", ErrEngineUnavailable, err))
				}
			}
			return
		}

		var evt engineEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			s.logger.Warn("engine sent malformed event", "error", err)
			continue
		}

		switch evt.Type {
		case eventRecognizing:
			if s.cb.OnRecognizing != nil {
				s.cb.OnRecognizing(evt.Text)
			}
		case eventRecognized:
			if s.cb.OnRecognized != nil {
				s.cb.OnRecognized(evt.Text, evt.Confidence)
			}
		case eventError:
			if s.cb.OnError != nil {
				s.cb.OnError(fmt.Errorf("engine error: %s", evt.Message))
			}
		default:
			s.logger.Debug("ignoring engine event", "type", evt.Type)
		}
	}
}
