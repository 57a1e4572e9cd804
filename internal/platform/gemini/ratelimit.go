package gemini

import (
	"sync"
	"time"
)

type tokenRecord struct {
	at     time.Time
	tokens int
}

// RateLimiter enforces a sliding 60s window over request count and token
// spend. One mutex guards both windows so a check and the state it read
// cannot interleave with a concurrent record.
type RateLimiter struct {
	mu                sync.Mutex
	requestsPerMinute int
	tokensPerMinute   int
	requestTimes      []time.Time
	tokenUsage        []tokenRecord
	now               func() time.Time
}

func NewRateLimiter(requestsPerMinute, tokensPerMinute int) *RateLimiter {
	return &RateLimiter{
		requestsPerMinute: requestsPerMinute,
		tokensPerMinute:   tokensPerMinute,
		now:               time.Now,
	}
}

// CanMakeRequest prunes entries older than one minute from both windows,
// then checks the request count and the token budget against the estimate.
func (rl *RateLimiter) CanMakeRequest(estimatedTokens int) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-time.Minute)
	rl.pruneLocked(cutoff)

	if len(rl.requestTimes) >= rl.requestsPerMinute {
		return false
	}
	currentTokens := 0
	for _, rec := range rl.tokenUsage {
		currentTokens += rec.tokens
	}
	return currentTokens+estimatedTokens <= rl.tokensPerMinute
}

// RecordRequest appends to both windows. Callers record only successful
// requests; failed attempts do not consume budget.
func (rl *RateLimiter) RecordRequest(tokensUsed int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	rl.requestTimes = append(rl.requestTimes, now)
	rl.tokenUsage = append(rl.tokenUsage, tokenRecord{at: now, tokens: tokensUsed})
}

func (rl *RateLimiter) pruneLocked(cutoff time.Time) {
	kept := rl.requestTimes[:0]
	for _, ts := range rl.requestTimes {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	rl.requestTimes = kept

	keptTokens := rl.tokenUsage[:0]
	for _, rec := range rl.tokenUsage {
		if rec.at.After(cutoff) {
			keptTokens = append(keptTokens, rec)
		}
	}
	rl.tokenUsage = keptTokens
}
