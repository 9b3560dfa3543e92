// Package audio provides PCM16 frame capture, format conversion, and the
// adaptive accumulation stage that groups frames into buffers before
// compression and transport.
package audio

import (
	"math"
	"time"
)

const (
	// SampleRate is the pipeline-wide capture rate in Hz.
	SampleRate = 16000

	// FrameSamples is the number of samples per capture frame (64ms at 16kHz).
	FrameSamples = 1024
)

// Frame is one fixed-size window of mono PCM16 samples. Frames are immutable
// once produced; Energy is computed at capture time.
type Frame struct {
	Samples    []int16
	CapturedAt time.Time
	Energy     float64
}

// NewFrame wraps samples into a Frame, computing its normalized RMS energy.
func NewFrame(samples []int16, capturedAt time.Time) Frame {
	return Frame{
		Samples:    samples,
		CapturedAt: capturedAt,
		Energy:     RMSEnergy(samples),
	}
}

// Duration returns the play time of the frame at the capture rate.
func (f Frame) Duration() time.Duration {
	return time.Duration(len(f.Samples)) * time.Second / SampleRate
}

// RMSEnergy computes the root-mean-square energy of samples normalized to
// [0,1]. Silent (all-zero or empty) input yields exactly 0.
func RMSEnergy(samples []int16) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		f := float64(s) / 32768.0
		sum += f * f
	}
	return math.Sqrt(sum / float64(len(samples)))
}
