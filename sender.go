package main

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
)

// A Sendable is one span. Fields may be added until Send is called.
type Sendable interface {
	AddField(key string, val any)
	Send()
}

// A Sender wraps each action in a named span. Senders never influence the
// action they wrap: they see the outcome, they do not change it. They must be
// safe for concurrent use by every session.
type Sender interface {
	CreateTrace(ctx context.Context, name string, count int64) (context.Context, Sendable)
	Close()
}

// NewSender builds the sender named by kind; "auto" defers to the profile.
func NewSender(kind string, log Logger, opts *Options, profile Profile) (Sender, error) {
	if kind == "auto" || kind == "" {
		kind = profile.DefaultSender()
	}
	switch kind {
	case "dummy":
		return NewSenderDummy(log), nil
	case "print":
		return NewSenderPrint(log), nil
	case "otel":
		return NewSenderOTel(log, opts)
	case "honeycomb":
		return NewSenderHoneycomb(opts), nil
	default:
		return nil, fmt.Errorf("unknown sender %q", kind)
	}
}

func toAttribute(key string, val any) attribute.KeyValue {
	switch v := val.(type) {
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case uint64:
		return attribute.Int64(key, int64(v))
	case float64:
		return attribute.Float64(key, v)
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	default:
		return attribute.String(key, fmt.Sprint(v))
	}
}
