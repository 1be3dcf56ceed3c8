package main

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RequestRateTracker counts requests per second and logs the rate over a few
// trailing windows every reportInterval.
type RequestRateTracker struct {
	mu             sync.Mutex
	counts         map[int64]int // unix second -> requests
	startTime      time.Time
	total          int
	lastReportTime time.Time
	reportInterval time.Duration
	now            func() time.Time
	log            *logrus.Logger
}

func NewRequestRateTracker(log *logrus.Logger, reportInterval time.Duration) *RequestRateTracker {
	now := time.Now()
	return &RequestRateTracker{
		counts:         make(map[int64]int),
		startTime:      now,
		lastReportTime: now,
		reportInterval: reportInterval,
		now:            time.Now,
		log:            log,
	}
}

// Track adds n requests to the current second.
func (t *RequestRateTracker) Track(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.counts[now.Unix()] += n
	t.total += n

	if now.Sub(t.lastReportTime) >= t.reportInterval {
		t.report(now)
		t.lastReportTime = now
	}
}

// Rate returns the average requests per second over the last seconds.
func (t *RequestRateTracker) Rate(seconds int) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rate(t.now(), seconds)
}

// rate needs t.mu held.
func (t *RequestRateTracker) rate(now time.Time, seconds int) float64 {
	cutoff := now.Unix() - int64(seconds)
	var total int
	for ts, count := range t.counts {
		if ts > cutoff {
			total += count
		}
	}

	// with less than seconds of data, average over what we have
	window := int64(seconds)
	if elapsed := now.Unix() - t.startTime.Unix() + 1; elapsed < window {
		window = elapsed
	}
	return float64(total) / float64(window)
}

// report needs t.mu held. It also forgets counts older than the widest window.
func (t *RequestRateTracker) report(now time.Time) {
	t.log.WithFields(logrus.Fields{
		"1s":    t.rate(now, 1),
		"10s":   t.rate(now, 10),
		"60s":   t.rate(now, 60),
		"total": t.total,
	}).Info("requests per second")

	cutoff := now.Unix() - 60
	for ts := range t.counts {
		if ts <= cutoff {
			delete(t.counts, ts)
		}
	}
}

func (t *RequestRateTracker) Total() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

func (t *RequestRateTracker) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		t.Track(1)
	}
}
