package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/beacon/internal/capture"
	"github.com/GriffinCanCode/beacon/internal/config"
	"github.com/GriffinCanCode/beacon/internal/delivery"
	"github.com/GriffinCanCode/beacon/internal/event"
	"github.com/GriffinCanCode/beacon/internal/id"
	"github.com/GriffinCanCode/beacon/internal/logging"
	"github.com/GriffinCanCode/beacon/internal/monitoring"
	"github.com/GriffinCanCode/beacon/internal/server"
	"github.com/GriffinCanCode/beacon/internal/trace"
	"github.com/GriffinCanCode/beacon/internal/transport"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (environment still overrides)")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		logging.NewDefault().Fatal("failed to load configuration", zap.Error(err))
	}

	log, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		log = logging.NewDefault()
	}
	defer log.Sync() //nolint:errcheck

	metrics := monitoring.NewDefault()

	traces := trace.NewManager()
	seedTraceContext(traces, log)

	// optional routing bootstrap from a configuration service
	if cfg.Routing.RemoteURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		remote, err := config.FetchRemote(ctx, cfg.Routing.RemoteURL)
		cancel()
		if err != nil {
			log.Warn("routing bootstrap unavailable, using local routing only", zap.Error(err))
		} else {
			cfg.Routing.Merge(*remote)
		}
	}

	sessionID := id.NewSessionID().String()
	log.Info("starting beacon agent",
		zap.String("session_id", sessionID),
		zap.String("project_id", cfg.Agent.ProjectID),
		zap.String("environment", cfg.Agent.Environment),
	)

	engine := delivery.New(
		event.DeliveryContext{
			ProjectID:   cfg.Agent.ProjectID,
			Environment: cfg.Agent.Environment,
			Service:     cfg.Agent.Service,
			Release:     cfg.Agent.Release,
		},
		sessionID,
		traces,
		metrics,
		log,
		delivery.Options{UserAgent: cfg.Agent.UserAgent},
	)

	tr := transport.New(cfg.Routing.Table(), engine, metrics, log, transport.Options{
		SessionID:     sessionID,
		SampleRate:    cfg.Transport.SampleRate,
		MaxBufferSize: cfg.Transport.MaxBufferSize,
		FlushInterval: cfg.Transport.FlushInterval,
		SourceURL:     cfg.Agent.SourceURL,
		UserAgent:     cfg.Agent.UserAgent,
		Debug:         cfg.Transport.Debug,
	})
	tr.Start()

	// the agent reports its own crashes through the pipeline it ships
	observer := capture.NewRuntime(tr, cfg.Ignore.Errors, log)
	defer func() {
		if v := recover(); v != nil {
			observer.CapturePanic(v, debug.Stack())
			shutdown(tr, log)
			panic(v)
		}
	}()

	if cfg.Server.Enabled {
		srv := server.New(cfg.Server.Addr, tr, prometheus.DefaultGatherer, log)
		go func() {
			if err := srv.Run(); err != nil {
				log.Error("debug server stopped", zap.Error(err))
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGUSR1)

	for sig := range sigChan {
		// SIGUSR1 is the host's "backgrounded" signal: flush without awaiting
		if sig == syscall.SIGUSR1 {
			log.Debug("host hidden, flushing")
			tr.NotifyHidden()
			continue
		}

		log.Info("shutting down", zap.String("signal", sig.String()))
		shutdown(tr, log)
		return
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// seedTraceContext adopts an inbound trace identity from the TRACEPARENT
// environment variable when present, so agent telemetry joins the caller's
// trace. Malformed values fall back to a fresh identity.
func seedTraceContext(traces *trace.Manager, log *logging.Logger) {
	if header := os.Getenv("TRACEPARENT"); header != "" {
		if parsed, ok := trace.Parse(header); ok {
			traces.Init(trace.Seed{
				TraceID:      parsed.TraceID,
				ParentSpanID: parsed.SpanID,
				Sampled:      &parsed.Sampled,
			})
			log.Debug("trace context adopted from environment", zap.String("trace_id", parsed.TraceID))
			return
		}
		log.Debug("ignoring malformed TRACEPARENT environment variable")
	}
	traces.Init(trace.Seed{})
}

func shutdown(tr *transport.Transport, log *logging.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tr.Shutdown(ctx)
	if remaining := tr.Len(); remaining > 0 {
		log.Warn("events undelivered at shutdown", zap.Int("count", remaining))
	}
}
