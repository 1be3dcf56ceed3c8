package main

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Entry aggregates every call made under one method and name.
type Entry struct {
	Method   string
	Name     string
	Requests int64
	Failures int64
	Bytes    int64
	Total    time.Duration
	Min      time.Duration
	Max      time.Duration
}

func (e *Entry) Avg() time.Duration {
	if e.Requests == 0 {
		return 0
	}
	return e.Total / time.Duration(e.Requests)
}

func (e *Entry) add(c *Call) {
	if e.Requests == 0 || c.Duration < e.Min {
		e.Min = c.Duration
	}
	if c.Duration > e.Max {
		e.Max = c.Duration
	}
	e.Requests++
	e.Total += c.Duration
	e.Bytes += int64(len(c.Body))
	if c.Failed() {
		e.Failures++
	}
}

type FailureKey struct {
	Method  string
	Name    string
	Message string
}

// Stats collects call measurements from all sessions. It is safe for
// concurrent use.
type Stats struct {
	mut      sync.Mutex
	entries  map[string]*Entry
	failures map[FailureKey]int64

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewStats(reg prometheus.Registerer) *Stats {
	return &Stats{
		entries:  make(map[string]*Entry),
		failures: make(map[FailureKey]int64),
		requests: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "pasteload_requests_total",
				Help: "Total number of requests issued by simulated users.",
			},
			[]string{"method", "name", "result"},
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pasteload_request_duration_seconds",
				Help:    "Duration of requests issued by simulated users.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "name"},
		),
	}
}

func (s *Stats) Record(c *Call) {
	result := "success"
	if c.Failed() {
		result = "failure"
	}
	s.requests.WithLabelValues(c.Method, c.Name, result).Inc()
	s.duration.WithLabelValues(c.Method, c.Name).Observe(c.Duration.Seconds())

	s.mut.Lock()
	defer s.mut.Unlock()
	key := c.Method + " " + c.Name
	e, ok := s.entries[key]
	if !ok {
		e = &Entry{Method: c.Method, Name: c.Name}
		s.entries[key] = e
	}
	e.add(c)
	if c.Failed() {
		s.failures[FailureKey{Method: c.Method, Name: c.Name, Message: c.Err.Error()}]++
	}
}

// Entries returns a copy of the aggregates, sorted by name then method.
func (s *Stats) Entries() []Entry {
	s.mut.Lock()
	defer s.mut.Unlock()
	entries := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Name != entries[j].Name {
			return entries[i].Name < entries[j].Name
		}
		return entries[i].Method < entries[j].Method
	})
	return entries
}

// Failures returns the number of failures per method, name and message.
func (s *Stats) Failures() map[FailureKey]int64 {
	s.mut.Lock()
	defer s.mut.Unlock()
	failures := make(map[FailureKey]int64, len(s.failures))
	for k, v := range s.failures {
		failures[k] = v
	}
	return failures
}

func ms(d time.Duration) string {
	return fmt.Sprintf("%.1f", float64(d)/float64(time.Millisecond))
}

// Report writes the request table and then the failure table.
func (s *Stats) Report(w io.Writer, elapsed time.Duration) {
	entries := s.Entries()
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "Type\tName\t# reqs\t# fails\tAvg\tMin\tMax\tAvg size\treq/s")
	var total Entry
	for i := range entries {
		e := &entries[i]
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%s\t%s\t%s\t%d\t%.2f\n",
			e.Method, e.Name, e.Requests, e.Failures, ms(e.Avg()), ms(e.Min), ms(e.Max), avgSize(e), rate(e.Requests, elapsed))
		total.Requests += e.Requests
		total.Failures += e.Failures
		total.Bytes += e.Bytes
		total.Total += e.Total
	}
	fmt.Fprintf(tw, "\tAggregated\t%d\t%d\t%s\t\t\t%d\t%.2f\n",
		total.Requests, total.Failures, ms(total.Avg()), avgSize(&total), rate(total.Requests, elapsed))
	tw.Flush()

	failures := s.Failures()
	if len(failures) == 0 {
		return
	}
	keys := make([]FailureKey, 0, len(failures))
	for k := range failures {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if failures[keys[i]] != failures[keys[j]] {
			return failures[keys[i]] > failures[keys[j]]
		}
		return keys[i].Message < keys[j].Message
	})
	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "# occurrences\tType\tName\tError")
	for _, k := range keys {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", failures[k], k.Method, k.Name, k.Message)
	}
	tw.Flush()
}

func avgSize(e *Entry) int64 {
	if e.Requests == 0 {
		return 0
	}
	return e.Bytes / e.Requests
}

func rate(n int64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(n) / elapsed.Seconds()
}
