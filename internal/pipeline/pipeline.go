package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"DayScreener/internal/classifier"
	"DayScreener/internal/collector"
	"DayScreener/internal/metrics"
	"DayScreener/internal/model"
	"DayScreener/internal/news"
	"DayScreener/internal/notifier"
	"DayScreener/internal/portfolio"
	"DayScreener/internal/recorder"
	"DayScreener/internal/screener"
)

// Deps are the components a pipeline drives. News and Dispatcher may be nil.
type Deps struct {
	Collector  *collector.Collector
	News       news.Source
	Ledger     *portfolio.Ledger
	Dispatcher *notifier.Dispatcher
	Recorder   recorder.Recorder
	Metrics    *metrics.Metrics
}

// Options tunes a pipeline.
type Options struct {
	Universe          []model.UniverseEntry
	Criteria          model.FilterCriteria
	TopN              int
	NewsLimit         int
	SentimentWorkers  int
	ClassifierEnabled bool
	Classifier        classifier.Options
}

// Pipeline is the application state shared by the scheduler, the Telegram
// command handler and the HTTP server. Cycles may overlap.
type Pipeline struct {
	deps Deps
	opts Options
	log  *zap.Logger
	now  func() time.Time

	mu          sync.RWMutex
	criteria    model.FilterCriteria
	latest      *model.DashboardView
	subscribers []func(model.DashboardView)
}

// New validates the initial criteria and builds a pipeline.
func New(deps Deps, opts Options, log *zap.Logger) (*Pipeline, error) {
	if deps.Collector == nil || deps.Ledger == nil {
		return nil, errors.New("pipeline: collector and ledger are required")
	}
	if err := opts.Criteria.Validate(); err != nil {
		return nil, err
	}
	if deps.Recorder == nil {
		deps.Recorder = recorder.NewNoopRecorder()
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	if opts.TopN <= 0 {
		opts.TopN = notifier.MaxMovers
	}
	if opts.SentimentWorkers <= 0 {
		opts.SentimentWorkers = 4
	}
	opts.NewsLimit = news.ClampLimit(opts.NewsLimit)
	return &Pipeline{
		deps:     deps,
		opts:     opts,
		log:      log,
		now:      time.Now,
		criteria: opts.Criteria,
	}, nil
}

// Criteria returns the active filter criteria.
func (p *Pipeline) Criteria() model.FilterCriteria {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.criteria
}

// SetCriteria validates c and swaps it in. Invalid criteria leave the
// current ones untouched.
func (p *Pipeline) SetCriteria(c model.FilterCriteria) error {
	if err := c.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	p.criteria = c
	p.mu.Unlock()
	p.log.Info("criteria updated",
		zap.Float64("min_volume", c.MinVolume),
		zap.Float64("min_abs_pct_change", c.MinAbsPctChange),
		zap.Float64("price_min", c.PriceMin),
		zap.Float64("price_max", c.PriceMax),
		zap.String("sector", c.Sector))
	return nil
}

// Latest returns the most recent view, if a cycle has completed.
func (p *Pipeline) Latest() (model.DashboardView, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.latest == nil {
		return model.DashboardView{}, false
	}
	return *p.latest, true
}

// Subscribe registers fn to receive every new view.
func (p *Pipeline) Subscribe(fn func(model.DashboardView)) {
	p.mu.Lock()
	p.subscribers = append(p.subscribers, fn)
	p.mu.Unlock()
}

// Ledger exposes the portfolio ledger.
func (p *Pipeline) Ledger() *portfolio.Ledger { return p.deps.Ledger }

// Dispatcher exposes the alert dispatcher; nil when alerting is not configured.
func (p *Pipeline) Dispatcher() *notifier.Dispatcher { return p.deps.Dispatcher }

// News fetches headlines for symbol, or market-wide news for news.General.
func (p *Pipeline) News(ctx context.Context, symbol string, limit int) ([]model.NewsArticle, error) {
	if p.deps.News == nil {
		return []model.NewsArticle{}, nil
	}
	if symbol == "" {
		symbol = news.General
	}
	return p.deps.News.Fetch(ctx, symbol, limit)
}

// RunCycle fetches quotes, screens them, refreshes the ledger, maybe sends
// the daily alert and stores the resulting view. Upstream failures degrade
// into advisories; only a cancelled context fails the cycle.
func (p *Pipeline) RunCycle(ctx context.Context) (model.DashboardView, error) {
	start := p.now()
	criteria := p.Criteria()
	view := model.DashboardView{
		GeneratedAt: start,
		Criteria:    criteria,
		Overview:    []model.MarketIndex{},
		Quotes:      []model.Quote{},
		Filtered:    []model.Quote{},
		TopMovers:   []model.Quote{},
		Mood:        news.MoodNeutral,
	}
	provider := p.deps.Collector.Fetcher.Name()
	result := "ok"

	overview, err := p.deps.Collector.Overview(ctx)
	if err != nil {
		p.log.Warn("market overview failed", zap.Error(err))
		p.deps.Metrics.FetchErrors.WithLabelValues(provider).Inc()
	} else {
		view.Overview = overview
	}

	quotes, err := p.deps.Collector.Quotes(ctx, p.opts.Universe)
	if err != nil {
		p.log.Error("fetch quotes failed", zap.Error(err))
		p.deps.Metrics.FetchErrors.WithLabelValues(provider).Inc()
		view.Advisory = append(view.Advisory, advisoryFor("market data", err))
		result = "error"
	} else {
		view.Quotes = quotes
	}

	filtered, err := screener.Apply(view.Quotes, criteria)
	if err != nil {
		// criteria were validated on the way in
		return view, err
	}
	p.scoreSentiment(ctx, filtered)
	view.Filtered = filtered
	view.TopMovers = screener.TopMovers(filtered, p.opts.TopN)
	view.Mood = mood(filtered)

	p.refreshLedger(ctx, view.Quotes)
	view.Portfolio = p.deps.Ledger.Entries()
	view.Summary = p.deps.Ledger.Summary()

	if d := p.deps.Dispatcher; d != nil {
		sent, err := d.MaybeSend(ctx, view.TopMovers, start)
		if sent || err != nil {
			p.recordAlert(ctx, "DAILY", start, len(view.TopMovers), err)
		}
		if err != nil {
			view.Advisory = append(view.Advisory, "daily alert could not be delivered")
		}
		view.AlertSent = sent
	}

	if err := ctx.Err(); err != nil {
		p.deps.Metrics.CyclesTotal.WithLabelValues("error").Inc()
		return view, err
	}

	elapsed := p.now().Sub(start)
	m := p.deps.Metrics
	m.CyclesTotal.WithLabelValues(result).Inc()
	m.CycleDuration.Observe(elapsed.Seconds())
	m.QuotesFetched.Set(float64(len(view.Quotes)))
	m.QuotesFiltered.Set(float64(len(view.Filtered)))
	m.PortfolioValue.Set(view.Summary.TotalValue)

	movers := make([]string, len(view.TopMovers))
	for i, q := range view.TopMovers {
		movers[i] = q.Symbol
	}
	if err := p.deps.Recorder.RecordCycle(ctx, &recorder.CycleRecord{
		Time:      start,
		Quoted:    len(view.Quotes),
		Filtered:  len(view.Filtered),
		TopMovers: movers,
		Mood:      view.Mood,
		AlertSent: view.AlertSent,
		Advisory:  strings.Join(view.Advisory, "; "),
		Duration:  elapsed,
	}); err != nil {
		p.log.Error("record cycle failed", zap.Error(err))
	}

	p.publish(view)
	p.log.Info("cycle complete",
		zap.Int("quotes", len(view.Quotes)),
		zap.Int("filtered", len(view.Filtered)),
		zap.Int("movers", len(view.TopMovers)),
		zap.String("mood", view.Mood),
		zap.Duration("elapsed", elapsed))
	return view, nil
}

// invalidator is implemented by fetchers that cache bars.
type invalidator interface {
	Invalidate(ctx context.Context) error
}

// Invalidate drops cached market data so the next cycle refetches. It is a
// no-op for fetchers without a cache.
func (p *Pipeline) Invalidate(ctx context.Context) error {
	if c, ok := p.deps.Collector.Fetcher.(invalidator); ok {
		if err := c.Invalidate(ctx); err != nil {
			return fmt.Errorf("invalidate cache: %w", err)
		}
		p.log.Debug("market data cache invalidated")
	}
	return nil
}

// SendTestAlert delivers a test message and records the attempt.
func (p *Pipeline) SendTestAlert(ctx context.Context) error {
	d := p.deps.Dispatcher
	if d == nil {
		return fmt.Errorf("%w: alerting is not configured", model.ErrNotificationFailure)
	}
	err := d.SendTest(ctx)
	p.recordAlert(ctx, "TEST", p.now(), 0, err)
	return err
}

func (p *Pipeline) publish(view model.DashboardView) {
	p.mu.Lock()
	p.latest = &view
	subs := append([]func(model.DashboardView)(nil), p.subscribers...)
	p.mu.Unlock()
	for _, fn := range subs {
		fn(view)
	}
}

// refreshLedger values positions from this cycle's quotes and fetches the
// rest. Symbols without a price are valued at zero.
func (p *Pipeline) refreshLedger(ctx context.Context, quotes []model.Quote) {
	prices := make(map[string]float64, len(quotes))
	for _, q := range quotes {
		prices[q.Symbol] = q.Price
	}
	var missing []string
	for _, sym := range p.deps.Ledger.Symbols() {
		if _, ok := prices[sym]; !ok {
			missing = append(missing, sym)
		}
	}
	if len(missing) > 0 {
		extra, err := p.deps.Collector.Prices(ctx, missing)
		if err != nil {
			p.log.Warn("portfolio price lookup failed", zap.Strings("symbols", missing), zap.Error(err))
		}
		for sym, v := range extra {
			prices[sym] = v
		}
	}
	p.deps.Ledger.Refresh(func(sym string) (float64, bool) {
		v, ok := prices[sym]
		return v, ok
	})
}

// scoreSentiment sets each quote's sentiment to the mean score of its
// headlines. Fetch failures leave the score at zero.
func (p *Pipeline) scoreSentiment(ctx context.Context, quotes []model.Quote) {
	if p.deps.News == nil || len(quotes) == 0 {
		return
	}
	var wg sync.WaitGroup
	sem := make(chan struct{}, p.opts.SentimentWorkers)
	for i := range quotes {
		wg.Add(1)
		go func(q *model.Quote) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			articles, err := p.deps.News.Fetch(ctx, q.Symbol, p.opts.NewsLimit)
			if err != nil {
				p.log.Debug("fetch news failed", zap.String("symbol", q.Symbol), zap.Error(err))
				return
			}
			if len(articles) == 0 {
				return
			}
			sum := 0.0
			for _, a := range articles {
				sum += a.Sentiment
			}
			q.Sentiment = sum / float64(len(articles))
		}(&quotes[i])
	}
	wg.Wait()
}

func (p *Pipeline) recordAlert(ctx context.Context, kind string, at time.Time, movers int, sendErr error) {
	rec := &recorder.AlertRecord{
		Time:    at,
		Kind:    kind,
		Movers:  movers,
		Success: sendErr == nil,
	}
	if d := p.deps.Dispatcher; d != nil && kind == "DAILY" && sendErr == nil {
		rec.Date = d.State().LastSentDate
	}
	status := "ok"
	if sendErr != nil {
		rec.Error = sendErr.Error()
		status = "error"
	}
	p.deps.Metrics.AlertsTotal.WithLabelValues(strings.ToLower(kind), status).Inc()
	if err := p.deps.Recorder.RecordAlert(ctx, rec); err != nil {
		p.log.Error("record alert failed", zap.String("kind", kind), zap.Error(err))
	}
}

func mood(quotes []model.Quote) string {
	if len(quotes) == 0 {
		return news.MoodNeutral
	}
	sum := 0.0
	for _, q := range quotes {
		sum += q.Sentiment
	}
	return news.Classify(sum / float64(len(quotes)))
}

func advisoryFor(what string, err error) string {
	if errors.Is(err, model.ErrDataUnavailable) {
		return what + " is temporarily unavailable"
	}
	return what + " could not be loaded"
}
