package shared

import (
	"strings"
	"testing"
	"time"
)

func TestBackoffConfig_Normalize(t *testing.T) {
	tests := []struct {
		name  string
		input BackoffConfig
		want  BackoffConfig
	}{
		{
			name:  "empty config gets defaults",
			input: BackoffConfig{},
			want: BackoffConfig{
				Initial:     500 * time.Millisecond,
				MaxAttempts: 10,
				MaxDelay:    30 * time.Second,
			},
		},
		{
			name: "preserves non-zero values",
			input: BackoffConfig{
				Initial:     time.Second,
				MaxAttempts: 3,
				MaxDelay:    8 * time.Second,
			},
			want: BackoffConfig{
				Initial:     time.Second,
				MaxAttempts: 3,
				MaxDelay:    8 * time.Second,
			},
		},
		{
			name: "negative values treated as zero",
			input: BackoffConfig{
				Initial:     -time.Second,
				MaxAttempts: -1,
				MaxDelay:    -time.Second,
			},
			want: BackoffConfig{
				Initial:     500 * time.Millisecond,
				MaxAttempts: 10,
				MaxDelay:    30 * time.Second,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.input.Normalize()
			if got != tt.want {
				t.Errorf("Normalize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestBackoffConfig_Next(t *testing.T) {
	cfg := BackoffConfig{Initial: time.Second, MaxDelay: 5 * time.Second}.Normalize()

	if got := cfg.Next(0); got != time.Second {
		t.Errorf("Next(0) = %v, want %v", got, time.Second)
	}
	if got := cfg.Next(time.Second); got != 2*time.Second {
		t.Errorf("Next(1s) = %v, want 2s", got)
	}
	if got := cfg.Next(4 * time.Second); got != 5*time.Second {
		t.Errorf("Next(4s) = %v, want cap 5s", got)
	}
	if got := cfg.Next(5 * time.Second); got != 5*time.Second {
		t.Errorf("Next(5s) = %v, want cap 5s", got)
	}
}

func TestNewID(t *testing.T) {
	a := NewID("conn")
	b := NewID("conn")
	if a == b {
		t.Error("NewID should not repeat")
	}
	if !strings.HasPrefix(a, "conn_") {
		t.Errorf("id %q missing prefix", a)
	}
	if len(a) != len("conn_")+32 {
		t.Errorf("unexpected id length: %d", len(a))
	}
}
