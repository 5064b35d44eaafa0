package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/mohammed-shakir/digipin-courier/internal/cache/redisstore"
	"github.com/mohammed-shakir/digipin-courier/internal/core/config"
	"github.com/mohammed-shakir/digipin-courier/internal/core/observability"
	"github.com/mohammed-shakir/digipin-courier/internal/core/router"
	"github.com/mohammed-shakir/digipin-courier/internal/core/server"
	"github.com/mohammed-shakir/digipin-courier/internal/estimate"
	"github.com/mohammed-shakir/digipin-courier/internal/hitevents"
	"github.com/mohammed-shakir/digipin-courier/internal/hotness"
	"github.com/mohammed-shakir/digipin-courier/internal/hotness/expdecay"
	"github.com/mohammed-shakir/digipin-courier/internal/hotness/metricswrap"
	"github.com/mohammed-shakir/digipin-courier/internal/logger"
	h3mapper "github.com/mohammed-shakir/digipin-courier/internal/mapper/h3"
	"github.com/mohammed-shakir/digipin-courier/internal/metrics"
	"github.com/mohammed-shakir/digipin-courier/internal/quote"
)

var (
	Version   = "dev"
	Revision  = ""
	BuildDate = ""
)

const pruneEvery = time.Minute

func main() {
	os.Exit(run())
}

func run() int {
	addrFlag := flag.String("addr", "", "listen address, overrides ADDR")
	flag.Parse()

	cfg := config.FromEnv()
	if *addrFlag != "" {
		cfg.Addr = strings.TrimSpace(*addrFlag)
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Service:   "digipin-courier",
		Component: "server",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	appLog.Info("starting server",
		"addr", cfg.Addr,
		"version", Version,
		"redis", cfg.RedisAddr != "",
		"hot_level", cfg.HotLevel,
		"hit_events", cfg.HitEvents.Enabled)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	prov := metrics.Init(metrics.Config{Build: metrics.BuildInfo{
		Version:   Version,
		Revision:  Revision,
		BuildDate: BuildDate,
	}})
	observability.Init(prov.Registerer(), cfg.MetricsEnabled)

	tariff, err := estimate.LoadTariff(cfg.TariffFile)
	if err != nil {
		appLog.Error("tariff load failed", "err", err)
		return 1
	}

	store, err := newQuoteStore(ctx, cfg, zl)
	if err != nil {
		appLog.Error("quote store setup failed", "err", err)
		return 1
	}
	defer func() {
		if err := store.Close(); err != nil {
			appLog.Warn("quote store close", "err", err)
		}
	}()

	var sink hitevents.Sink = hitevents.Discard{}
	if cfg.HitEvents.Enabled {
		pub, err := hitevents.NewPublisher(cfg.HitEvents.Brokers, cfg.HitEvents.Topic, cfg.HitEvents.QueueSize, zl)
		if err != nil {
			appLog.Error("hit events setup failed", "err", err)
			return 1
		}
		defer func() {
			if err := pub.Close(); err != nil {
				appLog.Warn("hit events close", "err", err)
			}
		}()
		sink = pub
	}

	tracker := metricswrap.New(expdecay.New(cfg.HotHalfLife), metricswrap.Options{
		Tier:      "pin",
		Threshold: cfg.HotThreshold,
		LogSample: cfg.HotLogSample,
	}, zl)
	go pruneLoop(ctx, tracker)
	hot := hotness.NewRecorder(tracker, cfg.HotLevel)

	consumeHot := cfg.HitEvents.Enabled && cfg.HitEvents.Consume
	if consumeHot {
		cons := hitevents.NewConsumer(hitevents.ConsumerConfig{
			Brokers:             cfg.HitEvents.Brokers,
			Topic:               cfg.HitEvents.Topic,
			GroupID:             cfg.HitEvents.GroupID,
			InitialOffsetOldest: cfg.HitEvents.OffsetOldest,
		}, hot, zl)
		go func() {
			if err := cons.Start(ctx); err != nil {
				appLog.Error("hit events consumer stopped", "err", err)
			}
		}()
	}

	api := router.New(router.Deps{
		Logger:        appLog,
		Estimator:     estimate.New(tariff),
		Quotes:        store,
		H3:            h3mapper.New(),
		H3Res:         cfg.H3Res,
		Hot:           hot,
		HotFromEvents: consumeHot,
		Events:        sink,
	})

	opts := server.Options{
		Addr:         cfg.Addr,
		Ready:        store,
		ReadyTimeout: cfg.CacheOpTimeout * 4,
	}
	if cfg.MetricsEnabled {
		opts.Metrics = prov.Handler()
	}
	if err := server.Run(ctx, opts, appLog, api); err != nil {
		appLog.Error("server exited", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}

func newQuoteStore(ctx context.Context, cfg config.Config, zl zerolog.Logger) (*quote.Store, error) {
	storeLog := zl.With().Str("component", "quote").Logger()
	opts := quote.Options{
		LRUSize:   cfg.QuoteLRUSize,
		TTL:       cfg.QuoteTTL,
		OpTimeout: cfg.CacheOpTimeout,
	}
	if cfg.RedisAddr == "" {
		return quote.New(nil, opts, logger.NewSlog(&storeLog))
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rc, err := redisstore.New(pingCtx, cfg.RedisAddr)
	if err != nil {
		return nil, fmt.Errorf("connect redis %s: %w", cfg.RedisAddr, err)
	}
	return quote.New(rc, opts, logger.NewSlog(&storeLog))
}

// pruneLoop drops cells that have cooled to a negligible score.
func pruneLoop(ctx context.Context, t *metricswrap.WithMetrics) {
	tick := time.NewTicker(pruneEvery)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			t.Prune(0.01)
		}
	}
}
