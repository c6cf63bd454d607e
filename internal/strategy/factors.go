package strategy

import "DayScreener/internal/model"

// Thresholds shared by the rule predicates.
const (
	OverboughtRSI     = 70.0
	OversoldRSI       = 30.0
	VolumeSpikeFactor = 1.5
	VolumeWindow      = 20
)

// Overbought reports RSI(14) above 70.
func Overbought(row model.IndicatorRow) bool {
	return row.RSI14 > OverboughtRSI
}

// Oversold reports RSI(14) below 30.
func Oversold(row model.IndicatorRow) bool {
	return row.RSI14 < OversoldRSI
}

// GoldenCross reports SMA20 crossing above SMA50 between prev and cur.
func GoldenCross(prev, cur model.IndicatorRow) bool {
	return prev.SMA20 <= prev.SMA50 && cur.SMA20 > cur.SMA50
}

// DeathCross reports SMA20 crossing below SMA50 between prev and cur.
func DeathCross(prev, cur model.IndicatorRow) bool {
	return prev.SMA20 >= prev.SMA50 && cur.SMA20 < cur.SMA50
}

// VolumeSpike reports the last bar's volume exceeding 1.5x the mean volume
// of up to VolumeWindow preceding bars.
func VolumeSpike(bars []model.Bar) bool {
	n := len(bars)
	if n < 2 {
		return false
	}
	start := n - 1 - VolumeWindow
	if start < 0 {
		start = 0
	}
	sum := 0.0
	for i := start; i < n-1; i++ {
		sum += bars[i].Volume
	}
	mean := sum / float64(n-1-start)
	if mean <= 0 {
		return false
	}
	return bars[n-1].Volume > VolumeSpikeFactor*mean
}

// MACDBullish reports MACD above its signal line.
func MACDBullish(row model.IndicatorRow) bool {
	return row.HasSignal && row.MACD > row.MACDSignal
}

// MACDBearish reports MACD below its signal line.
func MACDBearish(row model.IndicatorRow) bool {
	return row.HasSignal && row.MACD < row.MACDSignal
}
