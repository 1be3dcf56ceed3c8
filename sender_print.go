package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"pgregory.net/rand"
)

// make sure it implements Sender
var _ Sender = (*SenderPrint)(nil)

func ft(ts time.Time) string {
	return ts.Format("15:04:05.000")
}

// randID creates a random byte array of length l and returns it as a hex string.
func randID(l int) string {
	id := make([]byte, l)
	for i := 0; i < l; i++ {
		id[i] = byte(rand.Intn(256))
	}
	return fmt.Sprintf("%x", id)
}

type PrintSendable struct {
	TraceID   string
	SpanID    string
	Name      string
	StartTime time.Time
	Fields    map[string]any
	log       Logger
}

func (s *PrintSendable) AddField(key string, val any) {
	s.Fields[key] = val
}

func (s *PrintSendable) Send() {
	endTime := time.Now()
	s.log.Printf("%s - T:%6.6s S:%4.4s start:%v end:%v %s", s.Name, s.TraceID, s.SpanID, ft(s.StartTime), ft(endTime), formatFields(s.Fields))
}

func formatFields(fields map[string]any) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, fields[k])
	}
	return strings.Join(parts, " ")
}

// SenderPrint writes each span to the log instead of exporting it.
type SenderPrint struct {
	tracecount atomic.Int64
	log        Logger
}

func NewSenderPrint(log Logger) *SenderPrint {
	return &SenderPrint{log: log}
}

func (t *SenderPrint) Close() {
	t.log.Warn("sender printed %d spans", t.tracecount.Load())
}

func (t *SenderPrint) CreateTrace(ctx context.Context, name string, count int64) (context.Context, Sendable) {
	t.tracecount.Add(1)
	s := &PrintSendable{
		TraceID:   randID(6),
		SpanID:    randID(4),
		Name:      name,
		StartTime: time.Now(),
		Fields:    make(map[string]any),
		log:       t.log,
	}
	if count != 0 {
		s.Fields["count"] = count
	}
	return ctx, s
}
