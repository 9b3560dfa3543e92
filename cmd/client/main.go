// Command client streams audio to a running gateway and prints transcription
// results as they arrive. It can replay a WAV file or generate a synthetic
// tone, which is handy for smoke-testing a deployment.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eleven-am/speech-gateway/internal/audio"
	"github.com/eleven-am/speech-gateway/internal/bootstrap"
	"github.com/eleven-am/speech-gateway/internal/client"
)

func main() {
	var (
		url      = flag.String("url", "ws://localhost:8080/speech/stream", "gateway stream endpoint")
		language = flag.String("lang", "en-US", "recognition language")
		wavPath  = flag.String("wav", "", "WAV file to stream (PCM16)")
		tone     = flag.Bool("tone", false, "stream a synthetic tone instead of a file")
		duration = flag.Duration("duration", 5*time.Second, "tone duration")
		verbose  = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	source, err := buildSource(*wavPath, *tone, *duration)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	defer source.Close()

	// buffering, keepalive, and backoff tuning come from the environment,
	// shared with the server's config surface
	env := bootstrap.LoadConfig()
	c := client.New(client.Config{
		URL:          *url,
		Language:     *language,
		Buffering:    env.BufferingConfig(),
		PingInterval: time.Duration(env.PingIntervalMs) * time.Millisecond,
		Backoff:      env.BackoffConfig(),
		Logger:       logger,
	}, client.Events{
		OnRecognizing: func(text string) {
			fmt.Printf("... %s\n", text)
		},
		OnRecognized: func(text string, confidence *float64) {
			if confidence != nil {
				fmt.Printf(">>> %s (%.2f)\n", text, *confidence)
			} else {
				fmt.Printf(">>> %s\n", text)
			}
		},
		OnReconnect: func(attempt int) {
			fmt.Fprintf(os.Stderr, "reconnected (attempt %d)\n", attempt)
		},
		OnError: func(err error) {
			fmt.Fprintln(os.Stderr, "stream error:", err)
		},
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := c.Run(ctx, source); err != nil && ctx.Err() == nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func buildSource(wavPath string, tone bool, duration time.Duration) (audio.Source, error) {
	switch {
	case wavPath != "":
		return audio.NewWAVSource(wavPath)
	case tone:
		return &audio.ToneSource{
			Freq:      440,
			Amplitude: 0.4,
			Speech:    2 * time.Second,
			Silence:   time.Second,
			Total:     duration,
			Paced:     true,
		}, nil
	default:
		return nil, fmt.Errorf("either -wav or -tone is required")
	}
}
