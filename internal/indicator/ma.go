package indicator

import (
	"errors"
	"math"

	"DayScreener/internal/model"
)

// SMA computes the simple moving average of the last period prices.
func SMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// SMASeries returns the trailing SMA for every index of prices.
// Indexes before period-1 are NaN.
func SMASeries(prices []float64, period int) []float64 {
	out := nanSeries(len(prices))
	if period <= 0 {
		return out
	}
	sum := 0.0
	for i, p := range prices {
		sum += p
		if i >= period {
			sum -= prices[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMASeries returns the exponential moving average seeded with the SMA of
// the first period values. NaN inputs are skipped until the first defined
// value so the series can be chained (EMA of MACD).
func EMASeries(values []float64, period int) []float64 {
	out := nanSeries(len(values))
	if period <= 0 {
		return out
	}
	start := 0
	for start < len(values) && math.IsNaN(values[start]) {
		start++
	}
	if len(values)-start < period {
		return out
	}

	multiplier := 2.0 / float64(period+1)
	sum := 0.0
	for i := start; i < start+period; i++ {
		sum += values[i]
	}
	seed := start + period - 1
	out[seed] = sum / float64(period)
	for i := seed + 1; i < len(values); i++ {
		out[i] = values[i]*multiplier + out[i-1]*(1-multiplier)
	}
	return out
}

func extractCloses(bars []model.Bar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func defined(v float64) bool { return !math.IsNaN(v) }
