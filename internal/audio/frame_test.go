package audio

import (
	"math"
	"testing"
	"time"
)

func TestRMSEnergy(t *testing.T) {
	tests := []struct {
		name    string
		samples []int16
		want    float64
		within  float64
	}{
		{name: "empty", samples: nil, want: 0},
		{name: "all zero", samples: make([]int16, 1024), want: 0},
		{name: "full scale DC", samples: []int16{32767, 32767, 32767}, want: 1.0, within: 0.001},
		{name: "half scale DC", samples: []int16{16384, -16384, 16384, -16384}, want: 0.5, within: 0.001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RMSEnergy(tt.samples)
			if math.IsNaN(got) {
				t.Fatal("energy must never be NaN")
			}
			if tt.within == 0 {
				if got != tt.want {
					t.Errorf("RMSEnergy() = %v, want exactly %v", got, tt.want)
				}
			} else if math.Abs(got-tt.want) > tt.within {
				t.Errorf("RMSEnergy() = %v, want %v ± %v", got, tt.want, tt.within)
			}
		})
	}
}

func TestRMSEnergy_SineAmplitude(t *testing.T) {
	// A full-scale sine has RMS amplitude/sqrt(2).
	samples := make([]int16, SampleRate)
	for i := range samples {
		samples[i] = int16(32767 * math.Sin(2*math.Pi*440*float64(i)/SampleRate))
	}
	got := RMSEnergy(samples)
	want := 1 / math.Sqrt2
	if math.Abs(got-want) > 0.01 {
		t.Errorf("RMSEnergy(sine) = %v, want ~%v", got, want)
	}
}

func TestNewFrame(t *testing.T) {
	now := time.Now()
	f := NewFrame([]int16{16384, -16384}, now)
	if f.Energy != 0.5 {
		t.Errorf("Energy = %v, want 0.5", f.Energy)
	}
	if !f.CapturedAt.Equal(now) {
		t.Errorf("CapturedAt = %v, want %v", f.CapturedAt, now)
	}
}

func TestFrame_Duration(t *testing.T) {
	f := NewFrame(make([]int16, SampleRate), time.Now())
	if f.Duration() != time.Second {
		t.Errorf("Duration() = %v, want 1s", f.Duration())
	}
	f = NewFrame(make([]int16, FrameSamples), time.Now())
	want := time.Duration(FrameSamples) * time.Second / SampleRate
	if f.Duration() != want {
		t.Errorf("Duration() = %v, want %v", f.Duration(), want)
	}
}
