package agent

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

var testLogger = slog.New(slog.NewTextHandler(new(strings.Builder), nil))

func TestForwarder_Notify(t *testing.T) {
	var received Transcript
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &received); err != nil {
			t.Errorf("unmarshal body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	conf := 0.88
	f := NewForwarder(srv.URL, testLogger)
	err := f.Notify(context.Background(), Transcript{
		SessionID:  "sess_1",
		Text:       "hello there",
		Language:   "en-US",
		Confidence: &conf,
	})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if received.Text != "hello there" {
		t.Errorf("text = %q", received.Text)
	}
	if received.Confidence == nil || *received.Confidence != 0.88 {
		t.Errorf("confidence = %v", received.Confidence)
	}
}

func TestForwarder_RejectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := NewForwarder(srv.URL, testLogger)
	if err := f.Notify(context.Background(), Transcript{SessionID: "s", Text: "x"}); err == nil {
		t.Error("expected error for non-2xx status")
	}
}

func TestForwarder_EmptyEndpointIsNoop(t *testing.T) {
	f := NewForwarder("", testLogger)
	if err := f.Notify(context.Background(), Transcript{Text: "x"}); err != nil {
		t.Errorf("Notify with empty endpoint: %v", err)
	}
}

type stubNotifier struct {
	calls atomic.Int32
	err   error
}

func (s *stubNotifier) Notify(context.Context, Transcript) error {
	s.calls.Add(1)
	return s.err
}

func TestMulti_FansOutAndKeepsError(t *testing.T) {
	failing := &stubNotifier{err: errors.New("down")}
	ok := &stubNotifier{}
	m := Multi{failing, ok}

	err := m.Notify(context.Background(), Transcript{Text: "x"})
	if err == nil || err.Error() != "down" {
		t.Errorf("expected the failing notifier's error, got %v", err)
	}
	if failing.calls.Load() != 1 || ok.calls.Load() != 1 {
		t.Errorf("all notifiers should be called: %d, %d", failing.calls.Load(), ok.calls.Load())
	}
}

func TestDiscard(t *testing.T) {
	if err := (Discard{}).Notify(context.Background(), Transcript{}); err != nil {
		t.Errorf("Discard.Notify: %v", err)
	}
}
