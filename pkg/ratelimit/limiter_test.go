package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestIntervalSpacing(t *testing.T) {
	lim := NewInterval(50 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := lim.Wait(ctx); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}
	// first call is free, the next two wait one interval each
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("expected at least two intervals, got %v", elapsed)
	}
}

func TestPerMinuteBurst(t *testing.T) {
	lim := NewPerMinute(60, 3)

	for i := 0; i < 3; i++ {
		if !lim.Allow() {
			t.Errorf("expected request %d of the burst to be allowed", i+1)
		}
	}
	if lim.Allow() {
		t.Error("expected request to be denied after the burst")
	}

	lim.Reset()
	if !lim.Allow() {
		t.Error("expected Reset to restore the burst")
	}
	if lim.Interval() != time.Second {
		t.Errorf("Interval() = %v, want 1s", lim.Interval())
	}
}

func TestZeroIntervalDoesNotBlock(t *testing.T) {
	lim := NewInterval(0)
	for i := 0; i < 100; i++ {
		if !lim.Allow() {
			t.Fatal("expected unlimited throttle to allow every request")
		}
	}
}

func TestWaitHonoursContext(t *testing.T) {
	lim := NewInterval(time.Hour)
	lim.Allow()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := lim.Wait(ctx); err == nil {
		t.Error("expected Wait to fail on a cancelled context")
	}

	var u Unlimited
	if err := u.Wait(ctx); err == nil {
		t.Error("expected Unlimited.Wait to report the cancelled context")
	}
}
