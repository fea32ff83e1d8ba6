package ratelimiter

import (
	"fmt"
	"testing"
	"time"
)

func TestNewRejectsInvalidArgs(t *testing.T) {
	if New(0, 1, 0) != nil {
		t.Fatal("expected nil limiter for zero rps")
	}
	if New(1, 0, 0) != nil {
		t.Fatal("expected nil limiter for zero burst")
	}
}

func TestNilLimiterAllows(t *testing.T) {
	var l *MapLimiter
	if !l.Allow("client", time.Now()) {
		t.Fatal("nil limiter should allow")
	}
	if l.Len() != 0 {
		t.Fatal("nil limiter should track nothing")
	}
}

func TestAllowEnforcesBurstPerKey(t *testing.T) {
	l := New(1, 2, time.Minute)
	now := time.Unix(1_700_000_000, 0)

	if !l.Allow("a", now) || !l.Allow("a", now) {
		t.Fatal("expected burst of 2 to be allowed")
	}
	if l.Allow("a", now) {
		t.Fatal("expected third call within burst window to be rejected")
	}
	if !l.Allow("b", now) {
		t.Fatal("expected independent bucket for another key")
	}
	if !l.Allow("a", now.Add(time.Second)) {
		t.Fatal("expected token refill after one second")
	}
}

func TestAllowBlankKeyBypasses(t *testing.T) {
	l := New(1, 1, time.Minute)
	now := time.Now()
	for i := 0; i < 5; i++ {
		if !l.Allow("  ", now) {
			t.Fatal("blank key should bypass limiting")
		}
	}
	if l.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", l.Len())
	}
}

func TestAllowEvictsIdleKeys(t *testing.T) {
	l := New(100, 100, time.Minute)
	start := time.Unix(1_700_000_000, 0)
	l.Allow("stale", start)

	later := start.Add(2 * time.Minute)
	for i := 0; i < sweepEvery; i++ {
		l.Allow(fmt.Sprintf("fresh-%d", i%4), later)
	}
	if l.Len() != 4 {
		t.Fatalf("Len() = %d, want 4 after eviction", l.Len())
	}
}
