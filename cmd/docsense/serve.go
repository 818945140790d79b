package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/docsense/docsense/internal/analytics"
	"github.com/docsense/docsense/internal/cache"
	"github.com/docsense/docsense/internal/engine"
	"github.com/docsense/docsense/internal/extract"
	"github.com/docsense/docsense/internal/indexer"
	"github.com/docsense/docsense/internal/lexer"
	"github.com/docsense/docsense/internal/rank"
	"github.com/docsense/docsense/internal/server"
	"github.com/docsense/docsense/pkg/config"
	"github.com/docsense/docsense/pkg/health"
	"github.com/docsense/docsense/pkg/logger"
	"github.com/docsense/docsense/pkg/metrics"
	"github.com/docsense/docsense/pkg/redisx"
)

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	methodName := fs.String("method", "", "rank method: tfidf or bm25 (overrides config)")
	configPath := fs.String("config", "", "path to a YAML config file")
	fs.Parse(args)
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: docsense serve [-method tfidf|bm25] [-config path] <dir> [address]")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if fs.NArg() > 1 {
		cfg.Server.Address = fs.Arg(1)
	}
	if *methodName != "" {
		cfg.Index.RankMethod = *methodName
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	method, err := rank.ParseMethod(cfg.Index.RankMethod)
	if err != nil {
		return err
	}
	stemmer, err := lexer.StemmerByName(cfg.Index.Stemmer)
	if err != nil {
		return err
	}
	dir, err := filepath.Abs(fs.Arg(0))
	if err != nil {
		return fmt.Errorf("resolve %s: %w", fs.Arg(0), err)
	}

	// The snapshot lives inside the served directory. Its dot prefix keeps
	// the indexer from indexing the index.
	snapshotPath := filepath.Join(dir, cfg.Index.SnapshotName)

	log := logger.WithComponent("serve")
	ix, err := engine.LoadIndex(snapshotPath, stemmer, log)
	if err != nil {
		return err
	}

	m := metrics.New()
	eng := engine.New(ix, method, snapshotPath, m)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var queryCache *cache.QueryCache
	if cfg.Cache.Enabled {
		client, err := redisx.NewClient(cfg.Cache)
		if err != nil {
			log.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer client.Close()
			queryCache = cache.New(client, cfg.Cache.TTL, m)
			log.Info("search cache enabled", "addr", cfg.Cache.Addr, "ttl", cfg.Cache.TTL)
		}
	}

	aggregator := analytics.NewAggregator()
	collector := analytics.NewCollector(aggregator, 4096)
	collector.Start(ctx)

	checker := health.NewChecker()
	checker.Register("index", func(ctx context.Context) health.ComponentHealth {
		stats := eng.Stats()
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d documents", stats.DocumentCount),
		}
	})
	checker.Register("cache", func(ctx context.Context) health.ComponentHealth {
		if !queryCache.Enabled() {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "disabled"}
		}
		if err := queryCache.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	// The indexing batch runs to completion in the background while queries
	// are served; it touches the shared index only through the engine's
	// lock-guarded calls. The snapshot is written, and cached responses
	// dropped, only when the batch actually changed something.
	go func() {
		walker := indexer.New(eng, extract.NewRegistry(), m)
		processed, err := walker.IndexDirectory(dir)
		if err != nil {
			log.Error("indexing batch failed", "dir", dir, "error", err)
		}
		if processed == 0 {
			return
		}
		if err := eng.SaveSnapshot(); err != nil {
			log.Error("saving snapshot failed", "error", err)
		}
		if err := queryCache.Invalidate(context.Background()); err != nil {
			log.Error("invalidating query cache failed", "error", err)
		}
	}()

	handler := server.NewHandler(eng, queryCache, collector, aggregator, cfg.Server.MaxResults, m)
	srv := server.New(cfg.Server, cfg.Metrics.Enabled, handler, checker, m)

	log.Info("serving",
		"dir", dir,
		"address", cfg.Server.Address,
		"method", method,
		"snapshot", snapshotPath,
	)
	runErr := srv.Run(ctx)

	collector.Close()
	finals := aggregator.Stats()
	slog.Info("query analytics",
		"total_searches", finals.TotalSearches,
		"zero_result_count", finals.ZeroResultCount,
		"cache_hits", finals.CacheHits,
		"avg_latency_ms", finals.AvgLatencyMs,
	)
	return runErr
}
