package httpserver

import "testing"

func TestFailureLimiterDisabledWhenZero(t *testing.T) {
	f := newFailureLimiter(0)
	if f != nil {
		t.Fatal("expected nil limiter for rate 0")
	}
	if f.blocked("1.2.3.4") {
		t.Fatal("nil limiter must never block")
	}
}

func TestFailureLimiterBlocksAfterBurstExhausted(t *testing.T) {
	f := newFailureLimiter(1)
	addr := "10.0.0.1"
	for i := 0; i < f.burst; i++ {
		if f.blocked(addr) {
			t.Fatalf("blocked early on attempt %d", i)
		}
		f.recordFailure(addr)
	}
	if !f.blocked(addr) {
		t.Fatal("expected address to be blocked after exhausting burst")
	}
}

func TestFailureLimiterPerAddressIsolation(t *testing.T) {
	f := newFailureLimiter(1)
	for i := 0; i < f.burst; i++ {
		f.recordFailure("10.0.0.1")
	}
	if !f.blocked("10.0.0.1") {
		t.Fatal("expected 10.0.0.1 to be blocked")
	}
	if f.blocked("10.0.0.2") {
		t.Fatal("10.0.0.2 should be unaffected")
	}
}

func TestFailureLimiterCheckDoesNotConsume(t *testing.T) {
	f := newFailureLimiter(1)
	addr := "10.0.0.1"
	for i := 0; i < 100; i++ {
		if f.blocked(addr) {
			t.Fatalf("blocked() alone should never consume tokens (iteration %d)", i)
		}
	}
}
