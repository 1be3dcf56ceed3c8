package main

import (
	"context"
	"sort"
	"sync"

	cuckoo "github.com/panmari/cuckoofilter"
	collectortrace "go.opentelemetry.io/proto/otlp/collector/trace/v1"
)

// TraceServer counts what the collectors receive: distinct traces and spans,
// and spans per span name.
type TraceServer struct {
	mu         sync.Mutex
	traces     *cuckoo.Filter
	spans      *cuckoo.Filter
	traceCount int
	spanCount  int
	names      map[string]int
	collectortrace.UnimplementedTraceServiceServer
}

func NewTraceServer() *TraceServer {
	return &TraceServer{
		traces: cuckoo.NewFilter(1000000),
		spans:  cuckoo.NewFilter(1000000),
		names:  make(map[string]int),
	}
}

func (t *TraceServer) Export(ctx context.Context, req *collectortrace.ExportTraceServiceRequest) (*collectortrace.ExportTraceServiceResponse, error) {
	t.Process(req)
	return &collectortrace.ExportTraceServiceResponse{}, nil
}

// Process counts every span in req. Spans seen before (by id) are ignored.
func (t *TraceServer) Process(req *collectortrace.ExportTraceServiceRequest) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, resource := range req.GetResourceSpans() {
		for _, scope := range resource.GetScopeSpans() {
			for _, span := range scope.GetSpans() {
				if !t.traces.Lookup(span.GetTraceId()) {
					t.traces.Insert(span.GetTraceId())
					t.traceCount++
				}
				if t.spans.Lookup(span.GetSpanId()) {
					continue
				}
				t.spans.Insert(span.GetSpanId())
				t.spanCount++
				t.names[span.GetName()]++
			}
		}
	}
}

type NameCount struct {
	Name  string
	Count int
}

// Counts returns the distinct trace and span totals and the per-name counts,
// most frequent first.
func (t *TraceServer) Counts() (traces int, spans int, names []NameCount) {
	t.mu.Lock()
	defer t.mu.Unlock()
	names = make([]NameCount, 0, len(t.names))
	for name, n := range t.names {
		names = append(names, NameCount{Name: name, Count: n})
	}
	sort.Slice(names, func(i, j int) bool {
		if names[i].Count != names[j].Count {
			return names[i].Count > names[j].Count
		}
		return names[i].Name < names[j].Name
	})
	return t.traceCount, t.spanCount, names
}
