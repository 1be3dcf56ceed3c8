package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goware/urlx"
	"github.com/jessevdk/go-flags"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

var ResourceLibrary = "pasteload"
var ResourceVersion = "dev"

type Options struct {
	Target struct {
		Host    string        `long:"host" description:"the base url of the paste API" default:"http://localhost:8080"`
		Timeout time.Duration `long:"timeout" description:"timeout for a single request" default:"30s"`
	} `group:"Target Options"`
	Load struct {
		Users       int           `long:"users" description:"the number of simulated users" default:"1"`
		RampTime    time.Duration `long:"ramptime" description:"duration to spend ramping users up or down" default:"1s"`
		RunTime     time.Duration `long:"runtime" description:"how long to run once all users are started (0 means no limit)" default:"0s" yaml:",omitempty"`
		ActionCount int64         `long:"actioncount" description:"the maximum number of actions across all users (0 means no limit)" default:"0" yaml:",omitempty"`
		WaitMin     time.Duration `long:"waitmin" description:"the shortest pause between two actions of a user" default:"1s"`
		WaitMax     time.Duration `long:"waitmax" description:"the longest pause between two actions of a user" default:"2s"`
	} `group:"Load Options"`
	Scenario struct {
		Profile      string `long:"profile" description:"scenario profile" choice:"basic" choice:"traced" default:"basic"`
		CreateWeight int    `long:"createweight" description:"relative weight of the create_paste action" default:"1"`
		ReadWeight   int    `long:"readweight" description:"relative weight of the read_paste action" default:"5"`
	} `group:"Scenario Options"`
	Tracing struct {
		Sender      string `long:"sender" description:"where action spans go (auto follows the profile)" choice:"auto" choice:"dummy" choice:"print" choice:"otel" choice:"honeycomb" default:"auto"`
		Protocol    string `long:"protocol" description:"for otel only, protocol to use" choice:"grpc" choice:"http" default:"grpc"`
		Collector   string `long:"collector" description:"the url of the span collector (or local, honeycomb); with --sender honeycomb, local means honeycomb" default:"local"`
		Insecure    bool   `long:"insecure" description:"use plaintext when the collector url has no scheme" yaml:",omitempty"`
		ServiceName string `long:"service" description:"service name reported on every span" default:"pastebin-loadgen"`
		Dataset     string `long:"dataset" description:"for honeycomb only, the dataset to send to" env:"HONEYCOMB_DATASET" default:"pasteload"`
		APIKey      string `long:"apikey" description:"the honeycomb API key(*)" env:"HONEYCOMB_API_KEY" yaml:"-"`
	} `group:"Tracing Options"`
	Output struct {
		MaxQueueSize       int           `long:"maxqueuesize" description:"for otel only, maximum number of spans to queue before dropping" default:"0" yaml:",omitempty"`
		MaxExportBatchSize int           `long:"maxexportbatchsize" description:"for otel only, maximum number of spans to export at once" default:"0" yaml:",omitempty"`
		BatchTimeout       time.Duration `long:"batchtimeout" description:"for otel only, maximum time to wait before sending a batch" default:"0s" yaml:",omitempty"`
		ExportTimeout      time.Duration `long:"exporttimeout" description:"for otel only, maximum time to wait for a batch to be sent" default:"0s" yaml:",omitempty"`
	} `group:"Output Options"`
	Global struct {
		LogLevel  string `long:"loglevel" description:"level of logging" choice:"debug" choice:"info" choice:"warn" choice:"error" default:"warn"`
		DebugPort int    `long:"debugport" description:"port to listen on for pprof and /metrics(*)" default:"-1" yaml:"-"`
		Seed      string `long:"seed" description:"string seed for random number generator (defaults to host)" yaml:",omitempty"`
		Config    string `long:"config" description:"name of config file to load(*)" default:"" yaml:"-"`
		WriteCfg  string `long:"writecfg" description:"write effective YAML config to the specified output file and quit(*)" default:"" yaml:"-"`
	} `group:"Global Options"`
	target    *url.URL
	collector *url.URL
}

func newOptions() *Options {
	return &Options{}
}

func (o *Options) CopyStarredFieldsFrom(other *Options) {
	o.Tracing.APIKey = other.Tracing.APIKey
	o.Global.DebugPort = other.Global.DebugPort
	o.Global.Config = other.Global.Config
	o.Global.WriteCfg = other.Global.WriteCfg
}

func (o *Options) LogLevel() logrus.Level {
	switch o.Global.LogLevel {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.WarnLevel
	}
}

func (o *Options) Weights() Weights {
	return Weights{Create: o.Scenario.CreateWeight, Read: o.Scenario.ReadWeight}
}

// Validate checks the options that flags alone cannot.
func (o *Options) Validate() error {
	if o.Load.Users < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidUsers, o.Load.Users)
	}
	if o.Load.WaitMin < 0 || o.Load.WaitMax < o.Load.WaitMin {
		return fmt.Errorf("%w: %s..%s", ErrInvalidWait, o.Load.WaitMin, o.Load.WaitMax)
	}
	if o.Scenario.CreateWeight < 0 || o.Scenario.ReadWeight < 0 || o.Scenario.CreateWeight+o.Scenario.ReadWeight == 0 {
		return ErrInvalidWeights
	}
	if _, err := LookupProfile(o.Scenario.Profile); err != nil {
		return err
	}
	return nil
}

// CollectorHost is the collector to parse. The beeline cannot talk to a
// local OTLP receiver, so the honeycomb sender turns the "local" default into
// "honeycomb".
func (o *Options) CollectorHost() string {
	if o.Tracing.Sender == "honeycomb" && o.Tracing.Collector == "local" {
		return "honeycomb"
	}
	return o.Tracing.Collector
}

// parses the collector information and returns a cleaned-up version to make
// it easier to make sure that things are properly specified
func parseCollector(host string, insecure bool, protocol string) (*url.URL, error) {
	switch host {
	case "honeycomb":
		host = "https://api.honeycomb.io:443"
	case "local":
		host = "http://localhost"
	default:
	}

	// if the scheme is not specified, fall back to the value of the insecure flag
	defaultScheme := "https"
	if insecure {
		defaultScheme = "http"
	}
	u, err := urlx.ParseWithDefaultScheme(host, defaultScheme)
	if err != nil {
		return nil, fmt.Errorf("unable to parse collector %q: %w", host, err)
	}
	if u.Port() == "" {
		port := "4317" // default GRPC port
		if protocol == "http" {
			port = "4318"
		}
		u.Host = fmt.Sprintf("%s:%s", u.Host, port)
	}
	return u, nil
}

// parseTarget parses the base url of the API; plain host:port means http.
func parseTarget(host string) (*url.URL, error) {
	u, err := urlx.ParseWithDefaultScheme(host, "http")
	if err != nil {
		return nil, fmt.Errorf("unable to parse host %q: %w", host, err)
	}
	return u, nil
}

// serveDebug serves pprof and /metrics until the process exits. A failure
// to listen is logged, not fatal.
func serveDebug(log Logger, addr string, handler http.Handler) {
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Error("debug server on %s: %v", addr, err)
	}
}

func ReadConfig(opts *Options, filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	err = dec.Decode(opts)
	if err != nil {
		return err
	}
	log.Printf("read config from %s\n", filename)
	return nil
}

func WriteConfig(opts *Options, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := yaml.NewEncoder(f)
	err = enc.Encode(opts)
	if err != nil {
		return err
	}
	log.Printf("wrote config to %s\n", filename)
	return enc.Close()
}

func main() {
	cmdopts := newOptions()

	parser := flags.NewParser(cmdopts, flags.Default)
	parser.Usage = `[OPTIONS]

	pasteload simulates users of a pastebin-style HTTP API. Each user repeatedly
	picks one of two actions at random and then pauses for a random time
	between --waitmin and --waitmax:

		- create_paste (weight 1): POST /api/v1/paste with random content, a
		  random expires_in label and a random syntax; the id of every 201
		  response is remembered by that user.
		- read_paste (weight 5): GET /api/v1/paste/{id} for one of the ids the
		  same user created; skipped until the user has created something.

	Reads are reported under the single name /api/v1/paste/[id].

	Two profiles exist: "basic" uses expires_in labels 10m, 1h and 1d and does
	not trace; "traced" uses 10m, 20m, 30m and 1h and sends one span per action
	("create_paste" / "read_paste") to an OTLP collector. --sender overrides the
	profile's choice.

	Users are started evenly over --ramptime. The run ends after --runtime,
	after --actioncount actions, or on ctrl-c, whichever comes first; a summary
	of every request is printed on exit.

	Options can be set in a config file, or on the command line; to specify them in the
	config file, specify it on the command line with "--config=FILENAME". The config file
	format is YAML.

	Note: If a config file is used, it MUST be used for all options, except for the ones
	marked in the help text with (*) -- these fields CANNOT be set in the config file.
	`

	// read the command line and envvars into cmdargs
	_, err := parser.Parse()
	if err != nil {
		switch flagsErr := err.(type) {
		case *flags.Error:
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		log.Fatalf("error reading command line: %v", err)
	}

	opts := newOptions()
	if cmdopts.Global.Config != "" {
		if err := ReadConfig(opts, cmdopts.Global.Config); err != nil {
			log.Fatalf("err %v -- unable to read config file %s", err, cmdopts.Global.Config)
		}
		opts.CopyStarredFieldsFrom(cmdopts)
	} else {
		opts = cmdopts // we don't have to read from a file
	}

	if opts.Global.WriteCfg != "" {
		err := WriteConfig(opts, opts.Global.WriteCfg)
		if err != nil {
			log.Fatalf("unable to write config: %s\n", err)
		}
		os.Exit(0)
	}

	log := NewLogger(opts.LogLevel())

	if err := opts.Validate(); err != nil {
		log.Fatal("invalid options: %v", err)
	}
	profile, _ := LookupProfile(opts.Scenario.Profile)

	if opts.Global.Seed == "" {
		opts.Global.Seed = opts.Target.Host
	}

	opts.target, err = parseTarget(opts.Target.Host)
	if err != nil {
		log.Fatal("%v", err)
	}
	opts.collector, err = parseCollector(opts.CollectorHost(), opts.Tracing.Insecure, opts.Tracing.Protocol)
	if err != nil {
		log.Fatal("%v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	stats := NewStats(reg)

	if opts.Global.DebugPort > 0 {
		http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go serveDebug(log, fmt.Sprintf("localhost:%d", opts.Global.DebugPort), http.DefaultServeMux)
	}

	sender, err := NewSender(opts.Tracing.Sender, log, opts, profile)
	if err != nil {
		log.Fatal("unable to set up tracing: %v", err)
	}

	log.Info("host: %s, profile: %s, users: %d", opts.target.String(), profile.Name, opts.Load.Users)

	scenario := &Scenario{
		Client:  NewClient(opts.target, opts.Target.Timeout, opts.Load.Users),
		Stats:   stats,
		Sender:  sender,
		Profile: profile,
		Weights: opts.Weights(),
		WaitMin: opts.Load.WaitMin,
		WaitMax: opts.Load.WaitMax,
		Log:     log,
	}

	// catch ctrl-c and cancel the run so we can shut down gracefully
	sigctx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()
	ctx, cancel := context.WithCancel(sigctx)
	defer cancel()

	start := time.Now()
	group, gctx := errgroup.WithContext(ctx)

	// The counter hands out action numbers and closes its channel when it
	// runs out; the generator ends the run once the last actions are done,
	// or when the run time is over.
	counterChan := make(chan int64)
	group.Go(func() error {
		ActionCounter(gctx, log, opts.Load.ActionCount, counterChan)
		return nil
	})

	var generator Generator = NewUserGenerator(scenario, log, opts)
	group.Go(func() error {
		generator.Generate(gctx, cancel, counterChan)
		return nil
	})

	_ = group.Wait()
	if sigctx.Err() != nil {
		log.Warn("shut down from operating system signal")
	}
	sender.Close()
	stats.Report(os.Stdout, time.Since(start))
}
