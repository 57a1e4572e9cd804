package gemini

import (
	"math"
	"sync"
	"time"
)

// Usage is one gateway call, success or failure. Kept in memory only; the
// history resets on process restart.
type Usage struct {
	Timestamp        time.Time `json:"timestamp"`
	Model            string    `json:"model"`
	PromptTokens     int       `json:"prompt_tokens"`
	CompletionTokens int       `json:"completion_tokens"`
	TotalTokens      int       `json:"total_tokens"`
	RequestDuration  float64   `json:"request_duration"`
	Success          bool      `json:"success"`
	ErrorMessage     string    `json:"error_message,omitempty"`
}

type UsageStats struct {
	TotalRequests      int     `json:"total_requests"`
	SuccessfulRequests int     `json:"successful_requests"`
	FailedRequests     int     `json:"failed_requests"`
	TotalTokens        int     `json:"total_tokens"`
	AverageDuration    float64 `json:"average_duration"`
	ErrorRate          float64 `json:"error_rate"`
}

type usageLog struct {
	mu      sync.Mutex
	entries []Usage
	now     func() time.Time
}

func newUsageLog() *usageLog {
	return &usageLog{now: time.Now}
}

func (ul *usageLog) Record(u Usage) {
	ul.mu.Lock()
	defer ul.mu.Unlock()
	ul.entries = append(ul.entries, u)
}

// Stats aggregates entries within the trailing window. ErrorRate is a
// percentage rounded to one decimal; AverageDuration is seconds rounded to
// two.
func (ul *usageLog) Stats(window time.Duration) UsageStats {
	ul.mu.Lock()
	defer ul.mu.Unlock()

	cutoff := ul.now().Add(-window)
	var stats UsageStats
	var totalDuration float64
	for _, u := range ul.entries {
		if !u.Timestamp.After(cutoff) {
			continue
		}
		stats.TotalRequests++
		if u.Success {
			stats.SuccessfulRequests++
		} else {
			stats.FailedRequests++
		}
		stats.TotalTokens += u.TotalTokens
		totalDuration += u.RequestDuration
	}
	if stats.TotalRequests == 0 {
		return stats
	}
	stats.AverageDuration = math.Round(totalDuration/float64(stats.TotalRequests)*100) / 100
	stats.ErrorRate = math.Round(float64(stats.FailedRequests)/float64(stats.TotalRequests)*1000) / 10
	return stats
}
