package main

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/IvanBrykalov/memolru/cache"
	"github.com/IvanBrykalov/memolru/internal/config"
	"github.com/IvanBrykalov/memolru/internal/logging"
	"github.com/IvanBrykalov/memolru/policy"
	"github.com/IvanBrykalov/memolru/policy/lru"
	"github.com/IvanBrykalov/memolru/policy/scored"
)

// Report aggregates the counters of all workers.
type Report struct {
	Ops, Reads, Writes, Hits, Misses uint64
	Resident                         int // entries left across all caches
	Elapsed                          time.Duration
}

// OpsPerSec returns the throughput of the run.
func (r Report) OpsPerSec() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Ops) / r.Elapsed.Seconds()
}

// HitRate returns hits as a percentage of reads.
func (r Report) HitRate() float64 {
	if r.Reads == 0 {
		return 0
	}
	return float64(r.Hits) / float64(r.Reads) * 100
}

func (r *Report) add(o Report) {
	r.Ops += o.Ops
	r.Reads += o.Reads
	r.Writes += o.Writes
	r.Hits += o.Hits
	r.Misses += o.Misses
	r.Resident += o.Resident
}

// newPolicy maps the configured name to a policy factory.
func newPolicy(name string) (policy.Policy[string], error) {
	switch name {
	case "lru":
		return lru.New[string](), nil
	case "scored":
		return scored.New[string](nil), nil
	default:
		return nil, fmt.Errorf("unknown policy %q", name)
	}
}

// runWorkload runs cfg.Workers workers until cfg.Duration elapses or ctx is
// cancelled. A cache is not safe for concurrent use, so every worker builds
// and owns its cache; only the metrics sink is shared.
func runWorkload(ctx context.Context, cfg config.Config, metrics cache.Metrics, log zerolog.Logger) (Report, error) {
	pol, err := newPolicy(cfg.Policy)
	if err != nil {
		return Report{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	reports := make([]Report, cfg.Workers)
	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < cfg.Workers; w++ {
		g.Go(func() error {
			wlog := logging.Component(log, "worker").With().Int("worker", w).Logger()
			reports[w] = worker(ctx, cfg, w, pol, metrics, &wlog)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	var total Report
	for _, r := range reports {
		total.add(r)
	}
	total.Elapsed = time.Since(start)
	return total, nil
}

// worker drives one private cache. Reads go through Get, so misses are
// memoized by the factory; writes overwrite with Put.
func worker(ctx context.Context, cfg config.Config, id int, pol policy.Policy[string], metrics cache.Metrics, log *zerolog.Logger) Report {
	delay := cfg.FactoryDelay
	c := cache.New[string, string](cache.Options[string, string]{
		Capacity: cfg.Capacity,
		Policy:   pol,
		Metrics:  metrics,
		Logger:   log,
		Factory: func(k string) (string, error) {
			if delay > 0 {
				time.Sleep(delay)
			}
			return "v:" + k, nil
		},
	})

	// ---- Preload to get a realistic hit-rate ----
	for i := 0; i < cfg.Preload; i++ {
		c.Put("k:"+strconv.Itoa(i), "v"+strconv.Itoa(i))
	}
	log.Debug().Int("preloaded", c.Len()).Msg("worker ready")

	// Each worker gets its own RNG + Zipf (rand.Rand is NOT goroutine-safe).
	r := rand.New(rand.NewSource(cfg.Seed + int64(id)*9973))
	zipf := rand.NewZipf(r, cfg.ZipfS, cfg.ZipfV, uint64(cfg.Keys-1))

	var rep Report
	for {
		select {
		case <-ctx.Done():
			rep.Resident = c.Len()
			return rep
		default:
		}

		rep.Ops++
		k := "k:" + strconv.FormatUint(zipf.Uint64(), 10)
		if int(r.Int31n(100)) < cfg.ReadPct {
			rep.Reads++
			if c.Contains(k) {
				rep.Hits++
			} else {
				rep.Misses++
			}
			if _, err := c.Get(k); err != nil {
				log.Error().Err(err).Str("key", k).Msg("get failed")
			}
		} else {
			rep.Writes++
			c.Put(k, "v"+strconv.Itoa(r.Int()))
		}
	}
}
