package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"DayScreener/internal/classifier"
	"DayScreener/internal/collector"
	"DayScreener/internal/indicator"
	"DayScreener/internal/model"
	"DayScreener/internal/recorder"
	"DayScreener/internal/strategy"
)

// RangeLookback is the number of bars in the detail panel's high/low range.
const RangeLookback = 30

// Detail builds the detail panel for one symbol. A history fetch failure is
// returned; missing news or too little data for the classifier only add
// advisories.
func (p *Pipeline) Detail(ctx context.Context, symbol string) (model.SymbolDetail, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return model.SymbolDetail{}, fmt.Errorf("%w: symbol is required", model.ErrInvalidCriteria)
	}

	bars, err := p.deps.Collector.History(ctx, symbol)
	if err != nil {
		p.deps.Metrics.FetchErrors.WithLabelValues(p.deps.Collector.Fetcher.Name()).Inc()
		return model.SymbolDetail{}, err
	}

	detail := model.SymbolDetail{Signals: []model.Signal{}, News: []model.NewsArticle{}}
	if q, ok := collector.BuildQuote(p.entry(symbol), bars); ok {
		detail.Quote = &q
	}

	rows := indicator.Derive(bars)
	if len(rows) > 0 {
		latest := rows[len(rows)-1]
		detail.Latest = &latest
		detail.Signals = strategy.Evaluate(symbol, bars, rows)
	} else {
		detail.Advisory = append(detail.Advisory, "not enough history for indicators")
	}

	if high, low, err := indicator.Range(bars, RangeLookback); err == nil {
		detail.High30d, detail.Low30d = high, low
		last := bars[len(bars)-1].Close
		if pos, err := indicator.Position(last, high, low); err == nil {
			detail.Position = pos
		}
	}

	if p.deps.News != nil {
		articles, err := p.deps.News.Fetch(ctx, symbol, p.opts.NewsLimit)
		if err != nil {
			p.log.Warn("fetch news failed", zap.String("symbol", symbol), zap.Error(err))
			detail.Advisory = append(detail.Advisory, advisoryFor("news", err))
		} else {
			detail.News = articles
		}
	}

	if p.opts.ClassifierEnabled && detail.Latest != nil {
		p.classify(ctx, symbol, rows, &detail)
	}
	return detail, nil
}

func (p *Pipeline) classify(ctx context.Context, symbol string, rows []model.IndicatorRow, detail *model.SymbolDetail) {
	labeled := indicator.Labeled(rows)
	m, accuracy, err := classifier.Train(labeled, p.opts.Classifier)
	if err != nil {
		if errors.Is(err, model.ErrInsufficientData) {
			detail.Advisory = append(detail.Advisory, "not enough history to train the classifier")
			return
		}
		p.log.Error("train classifier failed", zap.String("symbol", symbol), zap.Error(err))
		return
	}

	pred := m.Predict(*detail.Latest)
	detail.Prediction = &pred
	detail.UpProb = m.Probability(*detail.Latest)
	detail.Accuracy = accuracy

	p.deps.Metrics.TrainingAccuracy.WithLabelValues(symbol).Set(accuracy)
	if err := p.deps.Recorder.RecordTraining(ctx, &recorder.TrainingRecord{
		Time:       p.now(),
		Symbol:     symbol,
		Rows:       len(labeled),
		Accuracy:   accuracy,
		Prediction: pred,
		UpProb:     detail.UpProb,
	}); err != nil {
		p.log.Error("record training failed", zap.String("symbol", symbol), zap.Error(err))
	}
	p.log.Debug("classifier trained",
		zap.String("symbol", symbol),
		zap.Int("rows", len(labeled)),
		zap.Float64("accuracy", accuracy),
		zap.Int("prediction", pred))
}

func (p *Pipeline) entry(symbol string) model.UniverseEntry {
	for _, u := range p.opts.Universe {
		if strings.EqualFold(u.Symbol, symbol) {
			return u
		}
	}
	return model.UniverseEntry{Symbol: symbol}
}
