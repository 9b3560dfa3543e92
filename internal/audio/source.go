package audio

import (
	"context"
	"io"
	"math"
	"time"
)

// Source produces capture frames. Read blocks until a full frame is
// available and returns io.EOF when the source is exhausted.
type Source interface {
	Read(ctx context.Context) (Frame, error)
	Close() error
}

// ToneSource generates synthetic frames: a sine tone at the given frequency
// and amplitude, interleaved with silent stretches. It paces emission to
// real time unless Paced is false, which makes it suitable for tests.
type ToneSource struct {
	Freq      float64
	Amplitude float64 // 0..1
	Speech    time.Duration
	Silence   time.Duration
	Total     time.Duration
	Paced     bool

	emitted time.Duration
	phase   float64
}

func (t *ToneSource) Read(ctx context.Context) (Frame, error) {
	if t.Total > 0 && t.emitted >= t.Total {
		return Frame{}, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	samples := make([]int16, FrameSamples)
	cycle := t.Speech + t.Silence
	inSpeech := cycle == 0 || t.emitted%cycle < t.Speech
	if inSpeech {
		step := 2 * math.Pi * t.Freq / SampleRate
		for i := range samples {
			samples[i] = int16(t.Amplitude * 32767 * math.Sin(t.phase))
			t.phase += step
		}
	}

	frame := NewFrame(samples, time.Now())
	t.emitted += frame.Duration()

	if t.Paced {
		select {
		case <-ctx.Done():
			return Frame{}, ctx.Err()
		case <-time.After(frame.Duration()):
		}
	}
	return frame, nil
}

func (t *ToneSource) Close() error { return nil }
