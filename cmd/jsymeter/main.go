// cmd/jsymeter/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/tamzrod/jsy-meter/internal/api"
	"github.com/tamzrod/jsy-meter/internal/config"
	"github.com/tamzrod/jsy-meter/internal/meter"
	"github.com/tamzrod/jsy-meter/internal/mirror"
	"github.com/tamzrod/jsy-meter/internal/poller"
	"github.com/tamzrod/jsy-meter/internal/poller/rtu"
	"github.com/tamzrod/jsy-meter/internal/sink"
	"github.com/tamzrod/jsy-meter/internal/status"
)

const shutdownTimeout = 5 * time.Second

func main() {
	boot, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}

	if len(os.Args) < 2 {
		boot.Fatal("usage: jsymeter <config.yaml>")
	}

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(os.Args[1])
	if err != nil {
		boot.Fatal("config load failed", zap.Error(err))
	}
	if err := config.Validate(cfg); err != nil {
		boot.Fatal("config validation failed", zap.Error(err))
	}
	config.Normalize(cfg)

	logger, err := newLogger(cfg.Logging)
	if err != nil {
		boot.Fatal("logger init failed", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	logger = logger.With(zap.String("device", cfg.Device.Name))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --------------------
	// Transport
	// --------------------

	s := cfg.Serial
	transport, err := rtu.New(rtu.Config{
		Port:     s.Port,
		BaudRate: s.BaudRate,
		DataBits: s.DataBits,
		Parity:   s.Parity,
		StopBits: s.StopBits,
		Timeout:  time.Duration(s.TimeoutMs) * time.Millisecond,
	}, logger.Named("rtu"))
	if err != nil {
		logger.Fatal("rtu transport failed", zap.Error(err))
	}
	defer transport.Close()

	// --------------------
	// Sinks
	// --------------------

	fields := cfg.Fields()
	sinks := make(meter.Sinks, len(fields))

	var (
		metrics *sink.Metrics
		latest  *sink.Latest
		mq      *sink.MQTT
		server  *api.Server
	)

	var current atomic.Pointer[status.Snapshot]
	current.Store(&status.Snapshot{Health: status.HealthUnknown})

	if o := cfg.Outputs.Prometheus; o != nil {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		metrics, err = sink.NewMetrics(reg, cfg.Device.Name)
		if err != nil {
			logger.Fatal("metrics registration failed", zap.Error(err))
		}
		latest = sink.NewLatest()

		server = api.NewServer(o, cfg.Device.Name, reg, latest,
			func() status.Snapshot { return *current.Load() },
			logger.Named("http"))
		if err := server.Start(); err != nil {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}

	if o := cfg.Outputs.MQTT; o != nil {
		mq, err = sink.DialMQTT(o, logger.Named("mqtt"))
		if err != nil {
			logger.Fatal("mqtt connect failed", zap.Error(err))
		}
		defer mq.Close()

		if err := mq.PublishDiscovery(cfg.Device.Name, fields); err != nil {
			logger.Warn("home assistant discovery failed", zap.Error(err))
		}
	}

	logEnabled := cfg.Outputs.Log != nil && cfg.Outputs.Log.Enabled
	measurementLog := logger.Named("measurement")

	for _, f := range fields {
		if logEnabled {
			sinks.Bind(f, sink.Log(measurementLog, f))
		}
		if metrics != nil {
			sinks.Bind(f, metrics.Sink(f))
			sinks.Bind(f, latest.Sink(f))
		}
		if mq != nil {
			sinks.Bind(f, mq.Sink(f))
		}
	}

	// --------------------
	// Mirror (optional)
	// --------------------

	var (
		dataMirror    mirror.Writer
		statusWriter  mirror.StatusWriter
		statusEnabled bool
	)

	if cfg.Mirror != nil {
		plan, err := mirror.BuildPlan(cfg.Device.Name, cfg.Mirror)
		if err != nil {
			logger.Fatal("mirror plan failed", zap.Error(err))
		}

		clients, closeMirror, err := mirror.BuildEndpointClients(cfg.Mirror)
		if err != nil {
			logger.Fatal("mirror clients failed", zap.Error(err))
		}
		defer closeMirror() //nolint:errcheck

		dataMirror = mirror.New(plan, clients)
		statusWriter, statusEnabled = mirror.NewStatusWriter(plan, clients)
	}

	// --------------------
	// Poller
	// --------------------

	runner, err := poller.Build(cfg, transport, sinks, logger.Named("poller"))
	if err != nil {
		logger.Fatal("poller build failed", zap.Error(err))
	}

	out := make(chan poller.PollResult)
	go runner.Run(ctx, out)

	// --------------------
	// Orchestrator (owns device status + 1Hz seconds ticker)
	// --------------------

	tracker := status.NewTracker()

	publishStatus := func() {
		snap := tracker.Snapshot()
		current.Store(&snap)

		if metrics != nil {
			metrics.SetStatus(snap)
		}
		if mq != nil && snap.Health != status.HealthUnknown {
			mq.SetAvailability(snap.OK())
		}
		if statusEnabled {
			if err := statusWriter.WriteStatus(snap); err != nil {
				logger.Warn("status write failed", zap.Error(err))
			}
		}
	}

	// full block write on start (identity re-assert)
	publishStatus()

	secTicker := time.NewTicker(time.Second)
	defer secTicker.Stop()

	for running := true; running; {
		select {
		case <-ctx.Done():
			running = false

		case res := <-out:
			if dataMirror != nil {
				if err := dataMirror.Write(res); err != nil {
					logger.Warn("mirror write failed", zap.Error(err))
				}
			}

			var direction uint16
			if res.Reading != nil {
				direction = res.Reading.Direction
			}
			if tracker.Observe(res.Err, direction) {
				publishStatus()
			}

		case <-secTicker.C:
			if tracker.Tick() {
				publishStatus()
			}
		}
	}

	logger.Info("shutting down")

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown failed", zap.Error(err))
		}
		cancel()
	}
}
