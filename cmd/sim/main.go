package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ardalan-sia/queue-traffic/pkg/config"
	"github.com/ardalan-sia/queue-traffic/pkg/graph"
	"github.com/ardalan-sia/queue-traffic/pkg/metrics"
	"github.com/ardalan-sia/queue-traffic/pkg/netfile"
	"github.com/ardalan-sia/queue-traffic/pkg/simulation"
)

func main() {
	configPath := flag.String("config", "", "YAML configuration file")
	networkPath := flag.String("network", "", "network description file (overrides config)")
	outPath := flag.String("out", "", "write the network here on exit (overrides config)")
	ticks := flag.Int("ticks", -1, "run this many ticks without pacing and exit; 0 runs until interrupted")
	interval := flag.Duration("interval", 0, "delay between ticks (overrides config)")
	metricsAddr := flag.String("metrics-addr", "", "serve Prometheus metrics on this address (overrides config)")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}
	if *networkPath != "" {
		cfg.Network = *networkPath
	}
	if *outPath != "" {
		cfg.Output = *outPath
	}
	if *ticks >= 0 {
		cfg.Ticks = *ticks
	}
	if *interval > 0 {
		cfg.Interval = *interval
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	level, _ := cfg.Level()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := run(cfg); err != nil {
		slog.Error("simulation failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	net, dims, err := loadNetwork(cfg)
	if err != nil {
		return err
	}
	slog.Info("network loaded",
		"intersections", net.IntersectionCount(),
		"roads", net.RoadCount(),
		"width", dims.Width,
		"height", dims.Height,
	)

	sim := simulation.NewSimulator(net, cfg.Params())
	sim.AddObserver(simulation.NewLogObserver(slog.Default(), cfg.LogEvery))

	if cfg.MetricsAddr != "" {
		sim.AddObserver(metrics.NewExporter())
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server stopped", "error", err)
			}
		}()
		defer srv.Close()
		slog.Info("serving metrics", "addr", cfg.MetricsAddr)
	}

	if cfg.Ticks > 0 {
		if err := sim.StepN(cfg.Ticks); err != nil {
			return err
		}
	} else {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		sim.SetRunning(cfg.Running)
		if err := sim.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		sim.SetRunning(false)
	}

	c := sim.Counters()
	slog.Info("simulation finished",
		"tick", sim.Tick(),
		"vehicles", len(sim.Vehicles()),
		"spawned", c.Spawned,
		"throughput", c.Throughput,
		"wait_time", c.WaitTime,
		"time_in_sim", c.TimeInSim,
	)
	return saveNetwork(cfg, sim.Network(), dims)
}

func loadNetwork(cfg config.Config) (*graph.Network, netfile.Dims, error) {
	if cfg.Network == "" {
		return nil, netfile.Dims{}, errors.New("no network file given (-network or config 'network')")
	}
	f, err := os.Open(cfg.Network)
	if err != nil {
		return nil, netfile.Dims{}, err
	}
	defer f.Close()
	return netfile.Read(f, cfg.QueueCapacity, graph.WithLayout(cfg.Layout))
}

func saveNetwork(cfg config.Config, net *graph.Network, dims netfile.Dims) error {
	if cfg.Output == "" {
		return nil
	}
	f, err := os.Create(cfg.Output)
	if err != nil {
		return err
	}
	if err := netfile.Write(f, net, dims); err != nil {
		f.Close()
		return err
	}
	slog.Info("network written", "path", cfg.Output)
	return f.Close()
}
