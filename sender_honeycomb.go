package main

import (
	"context"

	"github.com/honeycombio/beeline-go"
)

// SenderHoneycomb sends spans through the beeline instead of OTLP.
type SenderHoneycomb struct{}

// make sure it implements Sender
var _ Sender = (*SenderHoneycomb)(nil)

func NewSenderHoneycomb(opts *Options) *SenderHoneycomb {
	beeline.Init(beeline.Config{
		WriteKey:    opts.Tracing.APIKey,
		Dataset:     opts.Tracing.Dataset,
		APIHost:     opts.collector.String(),
		ServiceName: opts.Tracing.ServiceName,
		Debug:       opts.Global.LogLevel == "debug",
	})
	return &SenderHoneycomb{}
}

func (t *SenderHoneycomb) Close() {
	beeline.Close()
}

func (t *SenderHoneycomb) CreateTrace(ctx context.Context, name string, count int64) (context.Context, Sendable) {
	// a beeline span is already a Sendable
	ctx, span := beeline.StartSpan(ctx, name)
	if count != 0 {
		span.AddField("count", count)
	}
	return ctx, span
}
