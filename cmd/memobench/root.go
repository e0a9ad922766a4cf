package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"os"
	"os/signal"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/IvanBrykalov/memolru/internal/config"
	"github.com/IvanBrykalov/memolru/internal/logging"
	pmet "github.com/IvanBrykalov/memolru/metrics/prom"
)

// newRootCmd wires flags into viper; every flag can also be set through
// MEMOLRU_* environment variables or the --config file.
func newRootCmd() *cobra.Command {
	v := viper.New()
	var configFile string

	cmd := &cobra.Command{
		Use:   "memobench",
		Short: "Drive a memoizing LRU cache with a Zipf workload",
		Long: `memobench runs workers that each own a private memoizing LRU cache.
Reads go through Get (computing misses with a factory), writes through Put.
Keys follow a Zipf distribution so a small hot set dominates.

Metrics are served on --http at /metrics while the run is in progress.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(v, configFile)
			if err != nil {
				return err
			}
			log, err := logging.New(logging.Config{
				Level:  cfg.Log.Level,
				Format: cfg.Log.Format,
			}, os.Stderr)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return run(ctx, cfg, log)
		},
	}

	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file (toml, yaml or json)")
	f.Int("cap", 100_000, "cache capacity per worker (entries)")
	f.String("policy", "lru", "eviction policy: lru | scored")
	f.Int("workers", 4, "number of workers, each with its own cache")
	f.Duration("duration", 10*time.Second, "benchmark duration")
	f.Int("reads", 80, "read percentage [0..100]")
	f.Int("keys", 1_000_000, "keyspace size")
	f.Float64("zipf_s", 1.1, "Zipf s > 1 (skew)")
	f.Float64("zipf_v", 1.0, "Zipf v >= 1")
	f.Int64("seed", time.Now().UnixNano(), "random seed")
	f.Int("preload", config.PreloadAuto, "preload entries per worker (-1 = cap/2, 0 = none)")
	f.Duration("factory_delay", 0, "simulated cost of computing a value on a miss")
	f.String("http", ":8080", "serve Prometheus metrics at addr; empty = disabled")
	f.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
	f.String("log-level", "info", "log level: trace | debug | info | warn | error")
	f.String("log-format", "console", "log format: console | json")

	for key, flag := range map[string]string{
		"capacity":      "cap",
		"policy":        "policy",
		"workers":       "workers",
		"duration":      "duration",
		"reads":         "reads",
		"keys":          "keys",
		"zipf_s":        "zipf_s",
		"zipf_v":        "zipf_v",
		"seed":          "seed",
		"preload":       "preload",
		"factory_delay": "factory_delay",
		"metrics_addr":  "http",
		"pprof_addr":    "pprof",
		"log.level":     "log-level",
		"log.format":    "log-format",
	} {
		if err := v.BindPFlag(key, f.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", flag, err))
		}
	}
	return cmd
}

// run serves the optional endpoints and executes the workload.
func run(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	// ---- pprof server (on DefaultServeMux) ----
	if cfg.PprofAddr != "" {
		go func() {
			log.Info().Str("addr", cfg.PprofAddr).Msg("pprof: serving")
			if err := http.ListenAndServe(cfg.PprofAddr, nil); err != nil {
				log.Error().Err(err).Msg("pprof server stopped")
			}
		}()
	}

	// ---- Prometheus metrics (dedicated registry) ----
	reg := prometheus.NewRegistry()
	metrics := pmet.New(reg, "memolru", "bench", nil)
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics: serving")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("metrics server stopped")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	log.Info().
		Str("policy", cfg.Policy).
		Int("cap", cfg.Capacity).
		Int("workers", cfg.Workers).
		Int("keys", cfg.Keys).
		Dur("duration", cfg.Duration).
		Int64("seed", cfg.Seed).
		Msg("starting workload")

	rep, err := runWorkload(ctx, cfg, metrics, log)
	if err != nil {
		return err
	}

	log.Info().
		Uint64("ops", rep.Ops).
		Float64("ops_per_sec", rep.OpsPerSec()).
		Uint64("reads", rep.Reads).
		Uint64("writes", rep.Writes).
		Uint64("hits", rep.Hits).
		Uint64("misses", rep.Misses).
		Str("hit_rate", fmt.Sprintf("%.2f%%", rep.HitRate())).
		Int("resident", rep.Resident).
		Dur("elapsed", rep.Elapsed).
		Msg("done")
	return nil
}
