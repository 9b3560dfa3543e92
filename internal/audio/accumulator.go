package audio

import "time"

// FlushReason records why an accumulated buffer was emitted.
type FlushReason string

const (
	FlushSize    FlushReason = "size"
	FlushSilence FlushReason = "silence"
	FlushForced  FlushReason = "forced"
)

// Buffer is a flushed run of frame data, ready for compression.
type Buffer struct {
	PCM      []byte
	Duration time.Duration
	Frames   int
	Reason   FlushReason
}

// AccumulatorConfig tunes the buffering stage. Zero values are replaced with
// defaults and out-of-range values are clamped by normalize.
type AccumulatorConfig struct {
	// BufferDuration is the target accumulation window before a
	// size-triggered flush. Default 250ms, clamped to 125ms..500ms.
	BufferDuration time.Duration

	// SilenceThreshold is the normalized RMS level below which a frame
	// counts as silence. Default 0.01, clamped to 0.001..0.1.
	SilenceThreshold float64

	// MaxSilence is the longest run of trailing silence tolerated before a
	// flush is forced even under the size target. Default 500ms.
	MaxSilence time.Duration

	// Adaptive shrinks the effective window while sustained speech energy
	// is high, trading compression ratio for latency.
	Adaptive bool
}

func (c AccumulatorConfig) normalize() AccumulatorConfig {
	if c.BufferDuration == 0 {
		c.BufferDuration = 250 * time.Millisecond
	}
	if c.BufferDuration < 125*time.Millisecond {
		c.BufferDuration = 125 * time.Millisecond
	}
	if c.BufferDuration > 500*time.Millisecond {
		c.BufferDuration = 500 * time.Millisecond
	}
	if c.SilenceThreshold == 0 {
		c.SilenceThreshold = 0.01
	}
	if c.SilenceThreshold < 0.001 {
		c.SilenceThreshold = 0.001
	}
	if c.SilenceThreshold > 0.1 {
		c.SilenceThreshold = 0.1
	}
	if c.MaxSilence <= 0 {
		c.MaxSilence = 500 * time.Millisecond
	}
	return c
}

// Accumulator groups incoming frames into buffers, flushing on the size
// target, on sustained trailing silence, or on demand. It is owned by a
// single capture loop and is not safe for concurrent use.
//
// When Adaptive is set the effective target steps down by a quarter of the
// configured window after each size flush whose content was at least 80%
// speech, floored at half the window; any silence flush restores the
// configured target. The curve is a latency heuristic, not a contract.
type Accumulator struct {
	cfg AccumulatorConfig

	pcm          []byte
	duration     time.Duration
	silence      time.Duration
	speechFrames int
	totalFrames  int
	target       time.Duration
}

func NewAccumulator(cfg AccumulatorConfig) *Accumulator {
	cfg = cfg.normalize()
	return &Accumulator{
		cfg:    cfg,
		target: cfg.BufferDuration,
	}
}

// Config returns the normalized configuration in effect.
func (a *Accumulator) Config() AccumulatorConfig { return a.cfg }

// Push appends a frame and returns a flushed buffer when one is due, or nil.
func (a *Accumulator) Push(f Frame) *Buffer {
	a.pcm = append(a.pcm, Int16ToPCMBytes(f.Samples)...)
	a.duration += f.Duration()
	a.totalFrames++

	if f.Energy > a.cfg.SilenceThreshold {
		a.silence = 0
		a.speechFrames++
	} else {
		a.silence += f.Duration()
	}

	if a.duration >= a.target {
		return a.flush(FlushSize)
	}
	if len(a.pcm) > 0 && a.silence >= a.cfg.MaxSilence {
		return a.flush(FlushSilence)
	}
	return nil
}

// Flush drains any partial buffer, returning nil when nothing is pending.
// Called when the session is stopping so no audio is dropped.
func (a *Accumulator) Flush() *Buffer {
	if len(a.pcm) == 0 {
		return nil
	}
	return a.flush(FlushForced)
}

// Drop discards pending audio without emitting a buffer. Used during a
// connection outage, where buffered audio must not be retried.
func (a *Accumulator) Drop() {
	a.pcm = nil
	a.duration = 0
	a.silence = 0
	a.speechFrames = 0
	a.totalFrames = 0
}

func (a *Accumulator) flush(reason FlushReason) *Buffer {
	buf := &Buffer{
		PCM:      a.pcm,
		Duration: a.duration,
		Frames:   a.totalFrames,
		Reason:   reason,
	}

	if a.cfg.Adaptive {
		switch {
		case reason == FlushSize && a.totalFrames > 0 &&
			float64(a.speechFrames)/float64(a.totalFrames) >= 0.8:
			step := a.cfg.BufferDuration / 4
			floor := a.cfg.BufferDuration / 2
			if a.target-step >= floor {
				a.target -= step
			}
		case reason == FlushSilence:
			a.target = a.cfg.BufferDuration
		}
	}

	a.pcm = nil
	a.duration = 0
	a.silence = 0
	a.speechFrames = 0
	a.totalFrames = 0
	return buf
}
