package main

import (
	"context"
	"crypto/tls"
	"fmt"

	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/encoding/gzip"
)

// make sure it implements Sender
var _ Sender = (*SenderOTel)(nil)

type OTelSendable struct {
	trace.Span
}

func (s OTelSendable) AddField(key string, val any) {
	s.Span.SetAttributes(toAttribute(key, val))
}

func (s OTelSendable) Send() {
	s.Span.End()
}

// SenderOTel exports spans over OTLP. The batch span processor owns
// delivery; export errors go to the otel error handler, never to the caller.
type SenderOTel struct {
	tracer   trace.Tracer
	shutdown func()
}

func NewSenderOTel(log Logger, opts *Options) (*SenderOTel, error) {
	var client otlptrace.Client
	switch opts.Tracing.Protocol {
	case "grpc":
		client = setupOTELGRPCClient(opts)
	case "http":
		client = setupOTELHTTPClient(opts)
	default:
		return nil, fmt.Errorf("unknown protocol: %s", opts.Tracing.Protocol)
	}

	exporter, err := otlptrace.New(context.Background(), client)
	if err != nil {
		return nil, fmt.Errorf("failure configuring otel trace exporter: %w", err)
	}

	var bspOpts []sdktrace.BatchSpanProcessorOption
	if opts.Output.BatchTimeout != 0 {
		bspOpts = append(bspOpts, sdktrace.WithBatchTimeout(opts.Output.BatchTimeout))
	}
	if opts.Output.MaxQueueSize != 0 {
		bspOpts = append(bspOpts, sdktrace.WithMaxQueueSize(opts.Output.MaxQueueSize))
	}
	if opts.Output.MaxExportBatchSize != 0 {
		bspOpts = append(bspOpts, sdktrace.WithMaxExportBatchSize(opts.Output.MaxExportBatchSize))
	}
	if opts.Output.ExportTimeout != 0 {
		bspOpts = append(bspOpts, sdktrace.WithExportTimeout(opts.Output.ExportTimeout))
	}

	bsp := sdktrace.NewBatchSpanProcessor(exporter, bspOpts...)
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(bsp),
		sdktrace.WithResource(resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceNameKey.String(opts.Tracing.ServiceName))),
	)
	log.Info("exporting spans over otlp/%s to %s as %s", opts.Tracing.Protocol, opts.collector.Host, opts.Tracing.ServiceName)

	return &SenderOTel{
		tracer: provider.Tracer(ResourceLibrary, trace.WithInstrumentationVersion(ResourceVersion)),
		shutdown: func() {
			if err := provider.Shutdown(context.Background()); err != nil {
				log.Error("shutting down tracer provider: %v", err)
			}
		},
	}, nil
}

func (t *SenderOTel) Close() {
	t.shutdown()
}

func (t *SenderOTel) CreateTrace(ctx context.Context, name string, count int64) (context.Context, Sendable) {
	ctx, span := t.tracer.Start(ctx, name)
	if count != 0 {
		span.SetAttributes(toAttribute("count", count))
	}
	return ctx, OTelSendable{Span: span}
}

func setupOTELHTTPClient(opts *Options) otlptrace.Client {
	options := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(opts.collector.Host),
		otlptracehttp.WithCompression(otlptracehttp.GzipCompression),
	}
	if opts.Tracing.APIKey != "" {
		options = append(options, otlptracehttp.WithHeaders(map[string]string{
			"x-honeycomb-team": opts.Tracing.APIKey,
		}))
	}
	if opts.collector.Scheme == "http" {
		options = append(options, otlptracehttp.WithInsecure())
	} else {
		options = append(options, otlptracehttp.WithTLSClientConfig(&tls.Config{}))
	}
	return otlptracehttp.NewClient(options...)
}

func setupOTELGRPCClient(opts *Options) otlptrace.Client {
	options := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(opts.collector.Host),
		otlptracegrpc.WithCompressor(gzip.Name),
	}
	if opts.Tracing.APIKey != "" {
		options = append(options, otlptracegrpc.WithHeaders(map[string]string{
			"x-honeycomb-team": opts.Tracing.APIKey,
		}))
	}
	if opts.collector.Scheme == "http" {
		options = append(options, otlptracegrpc.WithInsecure())
	} else {
		options = append(options, otlptracegrpc.WithTLSCredentials(credentials.NewClientTLSFromCert(nil, "")))
	}
	return otlptracegrpc.NewClient(options...)
}
