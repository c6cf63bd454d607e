package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"DayScreener/internal/cache"
	"DayScreener/internal/classifier"
	"DayScreener/internal/collector"
	"DayScreener/internal/config"
	"DayScreener/internal/metrics"
	"DayScreener/internal/news"
	"DayScreener/internal/notifier"
	"DayScreener/internal/pipeline"
	"DayScreener/internal/portfolio"
	"DayScreener/internal/recorder"
)

// App holds all application components and dependencies.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Location *time.Location

	Fetcher    *collector.CachedFetcher
	Cache      cache.Store
	Recorder   recorder.Recorder
	Telegram   *notifier.TelegramNotifier // nil without bot credentials
	Dispatcher *notifier.Dispatcher
	Ledger     *portfolio.Ledger
	Metrics    *metrics.Metrics
	Pipeline   *pipeline.Pipeline

	closers []func() error
}

// New initializes the application from a validated config.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("alert timezone: %w", err)
	}
	a := &App{Config: cfg, Logger: log, Location: loc, Metrics: metrics.New()}

	upstream, err := a.newFetcher()
	if err != nil {
		return nil, err
	}
	a.Cache = a.newCache()
	a.Fetcher = collector.NewCachedFetcher(upstream, a.Cache, cfg.Cache.TTL.Duration, log)
	log.Info("data source ready", zap.String("provider", upstream.Name()), zap.Duration("cache_ttl", cfg.Cache.TTL.Duration))

	a.Recorder = a.newRecorder()
	a.closers = append(a.closers, a.Recorder.Close)

	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		a.Telegram = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.DataSource.Proxy, log)
	}
	sink, err := a.newSink()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Dispatcher, err = notifier.NewDispatcher(ctx, sink, a.Recorder, notifier.DispatcherConfig{
		Enabled:      cfg.Alert.Enabled,
		Hour:         cfg.Alert.Hour,
		Location:     loc,
		MaxRetries:   cfg.Alert.MaxRetries,
		RetryBackoff: time.Second,
	}, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init dispatcher: %w", err)
	}

	a.Ledger, err = portfolio.NewLedger(cfg.Portfolio.StateFile, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init portfolio: %w", err)
	}

	a.Pipeline, err = pipeline.New(pipeline.Deps{
		Collector: collector.NewCollector(a.Fetcher, collector.Options{
			QuotePeriod:   cfg.DataSource.Period,
			HistoryPeriod: cfg.DataSource.HistoryPeriod,
			Interval:      cfg.DataSource.Interval,
		}, log),
		News:       a.newNewsSource(),
		Ledger:     a.Ledger,
		Dispatcher: a.Dispatcher,
		Recorder:   a.Recorder,
		Metrics:    a.Metrics,
	}, pipeline.Options{
		Universe:          cfg.Universe,
		Criteria:          *cfg.Filter,
		TopN:              cfg.Alert.TopN,
		NewsLimit:         cfg.News.Limit,
		ClassifierEnabled: cfg.Classifier.Enabled,
		Classifier: classifier.Options{
			Trees:    cfg.Classifier.Trees,
			MaxDepth: cfg.Classifier.MaxDepth,
			Seed:     cfg.Classifier.Seed,
		},
	}, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init pipeline: %w", err)
	}

	log.Info("application initialization complete",
		zap.Int("universe", len(cfg.Universe)),
		zap.Bool("alerts", cfg.Alert.Enabled),
		zap.String("sink", sink.Name()))
	return a, nil
}

// Close releases the recorder and cache connections.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

func (a *App) newFetcher() (collector.Fetcher, error) {
	ds := a.Config.DataSource
	switch ds.Provider {
	case "yahoo":
		f := collector.NewYahooFetcher(ds.Proxy, ds.Timeout.Duration, a.Logger)
		f.Workers = ds.Workers
		return f, nil
	case "alpaca":
		return collector.NewAlpacaFetcher(ds.AlpacaKey, ds.AlpacaSecret, ds.AlpacaFeed, a.Logger), nil
	case "mock":
		return &collector.MockFetcher{}, nil
	}
	return nil, fmt.Errorf("unknown data provider %q", ds.Provider)
}

// newCache prefers Redis when configured and falls back to memory.
func (a *App) newCache() cache.Store {
	c := a.Config.Cache
	if c.RedisAddr != "" {
		rs, err := cache.NewRedis(cache.RedisConfig{
			Addr:      c.RedisAddr,
			Password:  c.RedisPassword,
			DB:        c.RedisDB,
			KeyPrefix: "dayscreener:",
		})
		if err == nil {
			a.closers = append(a.closers, rs.Close)
			a.Logger.Info("using redis cache", zap.String("addr", c.RedisAddr))
			return rs
		}
		a.Logger.Warn("redis unavailable, using in-memory cache", zap.String("addr", c.RedisAddr), zap.Error(err))
	}
	return cache.NewMemory(c.MaxEntries)
}

func (a *App) newRecorder() recorder.Recorder {
	path := a.Config.Database.SQLitePath
	if path == "" {
		return recorder.NewNoopRecorder()
	}
	sr, err := recorder.NewSQLiteRecorder(path, a.Logger)
	if err != nil {
		a.Logger.Warn("init sqlite recorder failed, using noop", zap.String("path", path), zap.Error(err))
		return recorder.NewNoopRecorder()
	}
	return sr
}

func (a *App) newSink() (notifier.Sink, error) {
	switch a.Config.Alert.Sink {
	case "telegram":
		if a.Telegram == nil {
			a.Logger.Warn("telegram credentials missing, alerts go to the log")
			return notifier.NewLogNotifier(a.Logger), nil
		}
		return a.Telegram, nil
	case "webhook":
		return notifier.NewWebhookNotifier(a.Config.Alert.WebhookURL), nil
	case "log":
		return notifier.NewLogNotifier(a.Logger), nil
	}
	return nil, fmt.Errorf("unknown alert sink %q", a.Config.Alert.Sink)
}

func (a *App) newNewsSource() news.Source {
	ds := a.Config.DataSource
	switch a.Config.News.Provider {
	case "yahoo":
		return news.NewYahooSource(ds.Proxy, ds.Timeout.Duration)
	case "alpaca":
		return news.NewAlpacaSource(ds.AlpacaKey, ds.AlpacaSecret)
	}
	return nil
}
