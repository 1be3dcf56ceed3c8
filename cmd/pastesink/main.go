package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Options defines the command line arguments
type Options struct {
	Port           int           `long:"port" description:"Port number to listen on for HTTP" default:"8080"`
	Redis          string        `long:"redis" description:"address of a redis server to keep pastes in (default: in memory)"`
	ReportInterval time.Duration `long:"reportinterval" description:"how often to log the request rate" default:"5s"`
	LogLevel       string        `long:"loglevel" description:"level of logging" choice:"debug" choice:"info" choice:"warn" choice:"error" default:"info"`
}

// NewRouter wires the paste API and its middleware onto a fresh gin engine.
func NewRouter(api *API, log *logrus.Logger, reg *prometheus.Registry, rates *RequestRateTracker) *gin.Engine {
	router := gin.New()
	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false

	router.Use(gin.Recovery())
	router.Use(RequestLogger(log))
	router.Use(NewMetrics(reg).Middleware())
	if rates != nil {
		router.Use(rates.Middleware())
	}

	api.RegisterRoutes(router)
	router.GET("/metrics", MetricsHandler(reg))
	return router
}

func startCleanupWorker(ctx context.Context, store *MemoryStore, log *logrus.Logger) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := store.DeleteExpired(); n > 0 {
				log.WithField("deleted", n).Info("cleaned up expired pastes")
			}
		}
	}
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
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store Store
	if opts.Redis != "" {
		store, err = NewRedisStore(ctx, opts.Redis)
		if err != nil {
			log.Fatal(err)
		}
		log.WithField("redis", opts.Redis).Info("keeping pastes in redis")
	} else {
		mem := NewMemoryStore()
		go startCleanupWorker(ctx, mem, log)
		store = mem
	}
	defer store.Close()

	reg := prometheus.NewRegistry()
	rates := NewRequestRateTracker(log, opts.ReportInterval)
	router := NewRouter(NewAPI(store, log), log, reg, rates)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: router,
	}
	go func() {
		log.Infof("paste sink listening on port %d", opts.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("HTTP server error: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Error during server shutdown: %v", err)
	}

	fmt.Printf("\n%d requests served this session\n", rates.Total())
}
