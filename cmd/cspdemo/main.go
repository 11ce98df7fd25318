// Command cspdemo exercises the csp package end to end: a rate-limited
// producer, a fan-out worker pool, fan-in of results, bounded-buffer
// backpressure, and a graceful close-drain shutdown, with structured
// logging and a prometheus /metrics endpoint. It does not use csp.Select.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/example/go-csp-channels/csp"
	"github.com/example/go-csp-channels/internal/config"
	"github.com/example/go-csp-channels/internal/rategen"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to load config")
		}
		cfg = loaded
	}

	logger := setupLogger(&cfg.Logging)
	logger.Info().Msg("starting csp demo")

	reg := prometheus.NewRegistry()
	m := csp.NewMetrics(reg)

	if cfg.Metrics.Enabled {
		go serveMetrics(cfg.Metrics.Addr, reg, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runDemo(ctx, cfg, m, logger)
	logger.Info().Msg("csp demo finished")
}

func setupLogger(cfg *config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		return log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func serveMetrics(addr string, reg *prometheus.Registry, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	logger.Info().Str("addr", addr).Msg("serving prometheus metrics")
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server failed")
	}
}

// runDemo wires a rate-limited producer into a worker pool (fan-out),
// merges worker output (fan-in), checks a quit channel with Go's built-in
// select after each collected result, and ends when the results channel
// is closed and drained.
func runDemo(ctx context.Context, cfg *config.Config, m *csp.Metrics, logger zerolog.Logger) {
	producer, err := rategen.Generate(ctx, cfg.Demo.BufferSize, cfg.Demo.ProducerRate, cfg.Demo.ProducerBurst, cfg.Demo.ItemCount, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to start producer")
	}

	results, err := csp.NewChannel[string](cfg.Demo.BufferSize, csp.WithTracer(logger), csp.WithMetrics(m))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create results channel")
	}

	var wg sync.WaitGroup
	for i := 0; i < cfg.Demo.Workers; i++ {
		wg.Add(1)
		go worker(ctx, i, producer, results, &wg, logger)
	}
	go func() {
		wg.Wait()
		results.Close()
	}()

	quit := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(quit)
	}()

	processed := 0
	for {
		m := results.Receive(ctx)
		v, ok := m.Get()
		if !ok {
			break
		}
		processed++
		logger.Info().Str("result", v).Int("count", processed).Msg("collected result")

		select {
		case <-quit:
			logger.Warn().Msg("shutdown requested, draining remaining buffered results")
		default:
		}
	}
	logger.Info().Int("processed", processed).Msg("all results collected")
}

func worker(ctx context.Context, id int, in *csp.Channel[int], out *csp.Channel[string], wg *sync.WaitGroup, logger zerolog.Logger) {
	defer wg.Done()
	for {
		m := in.Receive(ctx)
		v, ok := m.Get()
		if !ok {
			return
		}
		time.Sleep(10 * time.Millisecond)
		if err := out.Send(ctx, fmt.Sprintf("worker-%d processed %d", id, v)); err != nil {
			logger.Debug().Err(err).Int("worker", id).Msg("send to results failed, stopping")
			return
		}
	}
}
