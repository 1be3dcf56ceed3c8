package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/sirupsen/logrus"
	collectortrace "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	"google.golang.org/grpc"
	_ "google.golang.org/grpc/encoding/gzip"
	"google.golang.org/grpc/keepalive"
)

// Options defines the command line arguments
type Options struct {
	Port     int    `long:"port" description:"Port number to listen on for grpc" default:"4317"`
	HTTPPort int    `long:"httpport" description:"Port number to listen on for OTLP/HTTP (-1 to disable)" default:"-1"`
	LogLevel string `long:"loglevel" description:"level of logging" choice:"debug" choice:"info" choice:"warn" choice:"error" default:"info"`
}

const (
	DefaultMaxSendMsgSize        = 4 * 1024 * 1024  // 4 MB
	DefaultMaxRecvMsgSize        = 15 * 1024 * 1024 // 15 MB
	DefaultMaxConnectionIdle     = 30 * time.Minute
	DefaultMaxConnectionAge      = time.Hour
	DefaultMaxConnectionAgeGrace = 5 * time.Minute
	DefaultKeepAlive             = 2 * time.Minute
	DefaultKeepAliveTimeout      = 20 * time.Second
)

// initGRPCReceiver starts a trace server on localhost and stops it when ctx
// is done.
func initGRPCReceiver(ctx context.Context, port int, ts *TraceServer, log *logrus.Logger) error {
	addr := fmt.Sprintf("localhost:%d", port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	srv := grpc.NewServer(
		grpc.MaxSendMsgSize(DefaultMaxSendMsgSize),
		grpc.MaxRecvMsgSize(DefaultMaxRecvMsgSize),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			MaxConnectionIdle:     DefaultMaxConnectionIdle,
			MaxConnectionAge:      DefaultMaxConnectionAge,
			MaxConnectionAgeGrace: DefaultMaxConnectionAgeGrace,
			Time:                  DefaultKeepAlive,
			Timeout:               DefaultKeepAliveTimeout,
		}),
	)
	collectortrace.RegisterTraceServiceServer(srv, ts)

	go func() {
		log.Infof("gRPC server listening on %s", addr)
		if err := srv.Serve(lis); err != nil {
			log.Errorf("gRPC server error: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		log.Info("Stopping gRPC server...")
		srv.GracefulStop()
	}()

	return nil
}

func main() {
	var opts Options

	parser := flags.NewParser(&opts, flags.Default)
	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		logrus.Fatalf("Error parsing flags: %v", err)
	}

	log := logrus.New()
	level, err := logrus.ParseLevel(opts.LogLevel)
	if err != nil {
		log.Fatalf("bad log level: %v", err)
	}
	log.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ts := NewTraceServer()
	if err := initGRPCReceiver(ctx, opts.Port, ts, log); err != nil {
		log.Fatalf("Failed to start gRPC receiver: %v", err)
	}
	if opts.HTTPPort > 0 {
		initHTTPReceiver(ctx, opts.HTTPPort, ts, log)
	}

	<-ctx.Done()

	traces, spans, names := ts.Counts()
	fmt.Printf("\n%d traces, %d spans received this session\n", traces, spans)
	for _, n := range names {
		fmt.Printf("%8d  %s\n", n.Count, n.Name)
	}
	log.Info("Shutting down gracefully...")
}
