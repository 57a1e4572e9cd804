package gemini

import (
	"testing"
	"time"
)

func TestRateLimiterRequestWindow(t *testing.T) {
	now := time.Now()
	rl := NewRateLimiter(3, 100000)
	rl.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if !rl.CanMakeRequest(10) {
			t.Fatalf("request %d should be allowed", i)
		}
		rl.RecordRequest(10)
	}
	if rl.CanMakeRequest(10) {
		t.Fatal("fourth request within the window should be rejected")
	}

	// Advance past the window and everything ages out.
	now = now.Add(61 * time.Second)
	if !rl.CanMakeRequest(10) {
		t.Fatal("request after window expiry should be allowed")
	}
}

func TestRateLimiterTokenBudget(t *testing.T) {
	now := time.Now()
	rl := NewRateLimiter(100, 1000)
	rl.now = func() time.Time { return now }

	rl.RecordRequest(900)
	if !rl.CanMakeRequest(100) {
		t.Fatal("estimate exactly filling the budget should be allowed")
	}
	if rl.CanMakeRequest(101) {
		t.Fatal("estimate exceeding the budget should be rejected")
	}

	now = now.Add(61 * time.Second)
	if !rl.CanMakeRequest(1000) {
		t.Fatal("token usage should age out of the window")
	}
}

func TestRateLimiterPartialAgeOut(t *testing.T) {
	now := time.Now()
	rl := NewRateLimiter(2, 100000)
	rl.now = func() time.Time { return now }

	rl.RecordRequest(10)
	now = now.Add(30 * time.Second)
	rl.RecordRequest(10)
	if rl.CanMakeRequest(10) {
		t.Fatal("two requests in window should exhaust rpm=2")
	}

	// First request falls out, second remains.
	now = now.Add(31 * time.Second)
	if !rl.CanMakeRequest(10) {
		t.Fatal("one slot should be free after the older request ages out")
	}
}
