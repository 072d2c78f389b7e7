package realtime

import (
	"testing"
	"time"
)

func TestFrameLimiter(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	l := newFrameLimiter(3, 10*time.Second)

	for i := 0; i < 3; i++ {
		if !l.Allow(t0.Add(time.Duration(i) * time.Second)) {
			t.Fatalf("frame %d rejected", i)
		}
	}
	if l.Allow(t0.Add(5 * time.Second)) {
		t.Fatal("4th frame inside the window was allowed")
	}
	// The first frame left the window at t0+10s.
	if !l.Allow(t0.Add(10 * time.Second)) {
		t.Fatal("frame after window rejected")
	}
	if l.Allow(t0.Add(10*time.Second + 500*time.Millisecond)) {
		t.Fatal("frame allowed while the ring still covers the window")
	}
}
