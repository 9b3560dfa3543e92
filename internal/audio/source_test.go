package audio

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"
)

func TestToneSource_SpeechAndSilenceCycle(t *testing.T) {
	src := &ToneSource{
		Freq:      440,
		Amplitude: 0.5,
		Speech:    200 * time.Millisecond,
		Silence:   200 * time.Millisecond,
		Total:     time.Second,
	}
	defer src.Close()

	ctx := context.Background()
	var loud, quiet int
	var total time.Duration
	for {
		f, err := src.Read(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		total += f.Duration()
		if f.Energy > 0.1 {
			loud++
		} else {
			quiet++
		}
	}

	if total < time.Second {
		t.Errorf("emitted %v, want at least 1s", total)
	}
	if loud == 0 || quiet == 0 {
		t.Errorf("expected a mix of speech and silence frames, got %d loud / %d quiet", loud, quiet)
	}
}

func TestToneSource_ContinuousTone(t *testing.T) {
	src := &ToneSource{Freq: 440, Amplitude: 0.8, Total: 200 * time.Millisecond}
	ctx := context.Background()
	for {
		f, err := src.Read(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if f.Energy < 0.1 {
			t.Errorf("continuous tone produced a quiet frame: energy=%v", f.Energy)
		}
	}
}

func TestToneSource_CancelledContext(t *testing.T) {
	src := &ToneSource{Freq: 440, Amplitude: 0.5, Total: time.Second}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.Read(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
