// Package agent hands final transcripts off to the downstream agent: a
// fire-and-forget HTTP POST plus a redis publish so other interested
// services can follow the conversation.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// Transcript is the handoff payload for one final recognition segment.
type Transcript struct {
	SessionID  string   `json:"session_id"`
	Text       string   `json:"text"`
	Language   string   `json:"language"`
	Confidence *float64 `json:"confidence,omitempty"`
	Timestamp  int64    `json:"timestamp"`
}

// Notifier delivers final transcripts to whoever consumes them. Delivery is
// best-effort: the recognition pipeline never blocks on a slow consumer.
type Notifier interface {
	Notify(ctx context.Context, t Transcript) error
}

// Forwarder POSTs transcripts to the configured agent endpoint. Nothing
// synchronous comes back; a non-2xx response is only logged.
type Forwarder struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

func NewForwarder(endpoint string, logger *slog.Logger) *Forwarder {
	return &Forwarder{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 5 * time.Second},
		logger:   logger.With("component", "agent_forwarder"),
	}
}

func (f *Forwarder) Notify(ctx context.Context, t Transcript) error {
	if f.endpoint == "" {
		return nil
	}

	body, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal transcript: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Warn("agent handoff failed", "session_id", t.SessionID, "error", err)
		return fmt.Errorf("post transcript: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.logger.Warn("agent rejected transcript",
			"session_id", t.SessionID,
			"status", resp.StatusCode)
		return fmt.Errorf("agent returned status %d", resp.StatusCode)
	}

	f.logger.Debug("transcript forwarded", "session_id", t.SessionID, "chars", len(t.Text))
	return nil
}

// Multi fans a transcript out to all notifiers concurrently, keeping the
// first error. A slow consumer never delays the others.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, t Transcript) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, n := range m {
		n := n
		g.Go(func() error {
			return n.Notify(ctx, t)
		})
	}
	return g.Wait()
}

// Discard drops transcripts. Used when no agent endpoint is configured.
type Discard struct{}

func (Discard) Notify(context.Context, Transcript) error { return nil }
