package main

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	collectortrace "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// tracesHandler accepts OTLP/HTTP trace exports, protobuf or JSON, optionally
// gzipped.
func tracesHandler(ts *TraceServer, log *logrus.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		defer r.Body.Close()

		var reader io.Reader = r.Body
		if r.Header.Get("Content-Encoding") == "gzip" {
			gz, err := gzip.NewReader(r.Body)
			if err != nil {
				http.Error(w, "Failed to decompress gzip data: "+err.Error(), http.StatusBadRequest)
				return
			}
			defer gz.Close()
			reader = gz
		}
		body, err := io.ReadAll(reader)
		if err != nil {
			http.Error(w, "Error reading request body", http.StatusBadRequest)
			return
		}

		var traceReq collectortrace.ExportTraceServiceRequest
		if r.Header.Get("Content-Type") == "application/json" {
			err = protojson.Unmarshal(body, &traceReq)
		} else {
			err = proto.Unmarshal(body, &traceReq)
		}
		if err != nil {
			log.WithError(err).Debug("rejected trace export")
			http.Error(w, "Invalid trace data", http.StatusBadRequest)
			return
		}

		ts.Process(&traceReq)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("{}"))
	}
}

func initHTTPReceiver(ctx context.Context, port int, ts *TraceServer, log *logrus.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/traces", tracesHandler(ts, log))

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		log.Infof("HTTP server listening on port %d", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("HTTP server error: %v", err)
		}
	}()

	go func() {
		<-ctx.Done()
		log.Info("Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Errorf("Error during server shutdown: %v", err)
		}
	}()
}
