package collector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"go.uber.org/zap"

	"DayScreener/internal/model"
)

// AlpacaFetcher implements Fetcher using Alpaca's market data API.
type AlpacaFetcher struct {
	Client *marketdata.Client
	Feed   string // "iex" for free accounts, "sip" otherwise
	Retry  Retry

	log *zap.Logger
	now func() time.Time
}

// NewAlpacaFetcher creates a fetcher authenticated with the given key pair.
func NewAlpacaFetcher(apiKey, apiSecret, feed string, log *zap.Logger) *AlpacaFetcher {
	if feed == "" {
		feed = "iex"
	}
	return &AlpacaFetcher{
		Client: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
		}),
		Feed:  feed,
		Retry: DefaultRetry,
		log:   log,
		now:   time.Now,
	}
}

func (f *AlpacaFetcher) Name() string { return "alpaca" }

// alpacaTimeFrame maps a Yahoo-style interval to an Alpaca time frame.
func alpacaTimeFrame(interval string) (marketdata.TimeFrame, error) {
	switch interval {
	case "1m":
		return marketdata.OneMin, nil
	case "5m":
		return marketdata.NewTimeFrame(5, marketdata.Min), nil
	case "15m":
		return marketdata.NewTimeFrame(15, marketdata.Min), nil
	case "30m":
		return marketdata.NewTimeFrame(30, marketdata.Min), nil
	case "1h", "60m":
		return marketdata.OneHour, nil
	case "1d":
		return marketdata.OneDay, nil
	case "1wk":
		return marketdata.NewTimeFrame(1, marketdata.Week), nil
	}
	return marketdata.TimeFrame{}, fmt.Errorf("unsupported interval %q", interval)
}

// FetchBars requests all symbols in one multi-bars call. Alpaca has no
// per-symbol transport, so an unreachable provider fails the whole call.
func (f *AlpacaFetcher) FetchBars(ctx context.Context, symbols []string, period, interval string) (map[string][]model.Bar, error) {
	tf, err := alpacaTimeFrame(interval)
	if err != nil {
		return nil, err
	}
	end := f.now()
	start, err := periodStart(period, end)
	if err != nil {
		return nil, err
	}

	upper := make([]string, len(symbols))
	for i, s := range symbols {
		upper[i] = strings.ToUpper(s)
	}

	var raw map[string][]marketdata.Bar
	err = f.Retry.do(ctx, func(ctx context.Context) error {
		type result struct {
			bars map[string][]marketdata.Bar
			err  error
		}
		ch := make(chan result, 1)
		go func() {
			bars, err := f.Client.GetMultiBars(upper, marketdata.GetBarsRequest{
				TimeFrame: tf,
				Start:     start,
				End:       end,
				Feed:      marketdata.Feed(f.Feed),
			})
			ch <- result{bars, err}
		}()
		select {
		case <-ctx.Done():
			return fmt.Errorf("alpaca bars: %w: %v", model.ErrDataUnavailable, ctx.Err())
		case r := <-ch:
			if r.err != nil {
				return fmt.Errorf("alpaca bars: %w: %v", model.ErrDataUnavailable, r.err)
			}
			raw = r.bars
			return nil
		}
	})
	if err != nil {
		return nil, err
	}

	out := make(map[string][]model.Bar, len(symbols))
	for i, sym := range symbols {
		src := raw[upper[i]]
		if len(src) < 2 {
			f.log.Debug("not enough bars, symbol skipped",
				zap.String("provider", f.Name()),
				zap.String("symbol", sym),
				zap.Int("bars", len(src)))
			continue
		}
		bars := make([]model.Bar, len(src))
		for j, b := range src {
			bars[j] = model.Bar{
				Time:   b.Timestamp,
				Open:   b.Open,
				High:   b.High,
				Low:    b.Low,
				Close:  b.Close,
				Volume: float64(b.Volume),
			}
		}
		out[sym] = normalize(sym, bars)
	}
	return out, nil
}
