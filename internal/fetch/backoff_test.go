package fetch

import (
	"math/rand"
	"testing"
	"time"
)

func TestNextBackoffDelayGrowth(t *testing.T) {
	cfg := BackoffConfig{
		InitialDelay: 100 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     5 * time.Second,
	}
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
	}
	for _, tc := range cases {
		if got := NextBackoffDelay(cfg, tc.attempt, nil); got != tc.want {
			t.Fatalf("attempt %d: got %v, want %v", tc.attempt, got, tc.want)
		}
	}
}

func TestNextBackoffDelayCapped(t *testing.T) {
	cfg := BackoffConfig{
		InitialDelay: time.Second,
		Multiplier:   10.0,
		MaxDelay:     3 * time.Second,
	}
	if got := NextBackoffDelay(cfg, 5, nil); got != 3*time.Second {
		t.Fatalf("got %v, want cap of 3s", got)
	}
}

func TestNextBackoffDelayJitterBounds(t *testing.T) {
	cfg := BackoffConfig{
		InitialDelay: 100 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     5 * time.Second,
		Jitter:       true,
	}
	rng := rand.New(rand.NewSource(1))
	base := 200 * time.Millisecond
	for i := 0; i < 100; i++ {
		got := NextBackoffDelay(cfg, 2, rng)
		if got < base/2 || got > base*3/2 {
			t.Fatalf("jittered delay %v outside [%v, %v]", got, base/2, base*3/2)
		}
	}
}

func TestNextBackoffDelayDegenerateConfig(t *testing.T) {
	if got := NextBackoffDelay(BackoffConfig{}, 3, nil); got != 0 {
		t.Fatalf("zero initial delay should yield 0, got %v", got)
	}
	cfg := BackoffConfig{InitialDelay: 100 * time.Millisecond, Multiplier: 0.5}
	if got := NextBackoffDelay(cfg, 2, nil); got != 100*time.Millisecond {
		t.Fatalf("sub-1.0 multiplier should clamp, got %v", got)
	}
}
