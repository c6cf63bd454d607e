package collector

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"time"

	"go.uber.org/zap"

	"DayScreener/internal/model"
)

// MockFetcher returns deterministic synthetic data for development and testing.
type MockFetcher struct {
	Price float64
	Bars  map[string][]model.Bar // fixed data per symbol, overrides generation
	End   time.Time              // last bar date, defaults to today
	Err   error
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchBars(_ context.Context, symbols []string, period, _ string) (map[string][]model.Bar, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	end := m.End
	if end.IsZero() {
		end = time.Now().UTC().Truncate(24 * time.Hour)
	}
	start, err := periodStart(period, end)
	if err != nil {
		return nil, err
	}
	days := int(end.Sub(start).Hours() / 24)

	out := make(map[string][]model.Bar, len(symbols))
	for _, sym := range symbols {
		if m.Bars != nil {
			if bars, ok := m.Bars[sym]; ok && len(bars) >= 2 {
				out[sym] = normalize(sym, append([]model.Bar(nil), bars...))
			}
			continue
		}
		out[sym] = generateMockBars(sym, m.Price, days, end)
	}
	return out, nil
}

func generateMockBars(symbol string, basePrice float64, count int, end time.Time) []model.Bar {
	if basePrice <= 0 {
		basePrice = 100
	}
	if count < 2 {
		count = 2
	}
	h := fnv.New32a()
	h.Write([]byte(symbol))
	phase := float64(h.Sum32()%360) * math.Pi / 180

	bars := make([]model.Bar, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + 0.03*math.Sin(float64(i)/4+phase) + float64(i-count/2)*0.001)
		bars[i] = model.Bar{
			Symbol: symbol,
			Time:   end.AddDate(0, 0, -(count - 1 - i)),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000 * (1 + 0.5*math.Cos(float64(i)/3+phase)),
		}
	}
	return bars
}

// DefaultIndexes are the market overview entries.
var DefaultIndexes = []model.UniverseEntry{
	{Symbol: "SPX500", Name: "S&P 500"},
	{Symbol: "NASDAQ", Name: "NASDAQ"},
	{Symbol: "DOW", Name: "Dow Jones"},
}

// Options controls the windows requested from the fetcher.
type Options struct {
	QuotePeriod   string // bars used to build quotes, "5d"
	HistoryPeriod string // bars used for indicators, "6mo"
	Interval      string // "1d"
	Indexes       []model.UniverseEntry
}

// Collector turns raw bars into quotes, histories and price lookups.
type Collector struct {
	Fetcher Fetcher
	opts    Options
	log     *zap.Logger
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, opts Options, log *zap.Logger) *Collector {
	if opts.QuotePeriod == "" {
		opts.QuotePeriod = "5d"
	}
	if opts.HistoryPeriod == "" {
		opts.HistoryPeriod = "6mo"
	}
	if opts.Interval == "" {
		opts.Interval = "1d"
	}
	if opts.Indexes == nil {
		opts.Indexes = DefaultIndexes
	}
	return &Collector{Fetcher: fetcher, opts: opts, log: log}
}

// Quotes builds one quote per universe symbol, in universe order. Symbols
// without two distinct-timestamp bars are skipped.
func (c *Collector) Quotes(ctx context.Context, universe []model.UniverseEntry) ([]model.Quote, error) {
	symbols := make([]string, len(universe))
	for i, u := range universe {
		symbols[i] = u.Symbol
	}
	bars, err := c.Fetcher.FetchBars(ctx, symbols, c.opts.QuotePeriod, "1d")
	if err != nil {
		return nil, fmt.Errorf("fetch quotes: %w", err)
	}

	quotes := make([]model.Quote, 0, len(universe))
	for _, u := range universe {
		q, ok := BuildQuote(u, bars[u.Symbol])
		if !ok {
			c.log.Debug("no quote for symbol", zap.String("symbol", u.Symbol))
			continue
		}
		quotes = append(quotes, q)
	}
	return quotes, nil
}

// History fetches the indicator window for one symbol.
func (c *Collector) History(ctx context.Context, symbol string) ([]model.Bar, error) {
	bars, err := c.Fetcher.FetchBars(ctx, []string{symbol}, c.opts.HistoryPeriod, c.opts.Interval)
	if err != nil {
		return nil, fmt.Errorf("fetch history %s: %w", symbol, err)
	}
	series, ok := bars[symbol]
	if !ok {
		return nil, fmt.Errorf("fetch history %s: %w", symbol, model.ErrDataUnavailable)
	}
	return series, nil
}

// Prices returns the latest close per symbol. Missing symbols are absent.
func (c *Collector) Prices(ctx context.Context, symbols []string) (map[string]float64, error) {
	if len(symbols) == 0 {
		return map[string]float64{}, nil
	}
	bars, err := c.Fetcher.FetchBars(ctx, symbols, c.opts.QuotePeriod, "1d")
	if err != nil {
		return nil, fmt.Errorf("fetch prices: %w", err)
	}
	out := make(map[string]float64, len(bars))
	for sym, series := range bars {
		if len(series) > 0 {
			out[sym] = series[len(series)-1].Close
		}
	}
	return out, nil
}

// Overview returns the market index panel.
func (c *Collector) Overview(ctx context.Context) ([]model.MarketIndex, error) {
	quotes, err := c.Quotes(ctx, c.opts.Indexes)
	if err != nil {
		return nil, err
	}
	out := make([]model.MarketIndex, 0, len(quotes))
	for _, q := range quotes {
		out = append(out, model.MarketIndex{
			Name:      q.Name,
			Symbol:    q.Symbol,
			Value:     q.Price,
			PctChange: q.PctChange,
		})
	}
	return out, nil
}

// BuildQuote derives a quote from the two most recent bars with distinct
// timestamps. Prices and change are rounded to two decimals.
func BuildQuote(entry model.UniverseEntry, bars []model.Bar) (model.Quote, bool) {
	n := len(bars)
	if n < 2 {
		return model.Quote{}, false
	}
	last := bars[n-1]
	prevIdx := -1
	for i := n - 2; i >= 0; i-- {
		if !bars[i].Time.Equal(last.Time) {
			prevIdx = i
			break
		}
	}
	if prevIdx < 0 {
		return model.Quote{}, false
	}
	prev := bars[prevIdx].Close
	if prev == 0 {
		return model.Quote{}, false
	}

	name := entry.Name
	if name == "" {
		name = entry.Symbol
	}
	return model.Quote{
		Symbol:        entry.Symbol,
		Name:          name,
		Price:         round2(last.Close),
		PreviousClose: round2(prev),
		PctChange:     round2((last.Close - prev) / prev * 100),
		Volume:        last.Volume,
		Volatility:    round2(math.Abs(last.Close - prev)),
		Sector:        entry.Sector,
		Time:          last.Time,
	}, true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
