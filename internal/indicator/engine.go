package indicator

import "DayScreener/internal/model"

// Periods used to derive indicator rows.
const (
	RSIPeriod     = 14
	SMAFastPeriod = 20
	SMASlowPeriod = 50
)

// Derive computes RSI(14), SMA(20), SMA(50) and MACD for an ordered bar
// series. Rows where any required indicator is undefined are dropped, so the
// first row corresponds to input index SMASlowPeriod-1. Each row is labeled
// with the direction of the following bar; the final row has no label.
func Derive(bars []model.Bar) []model.IndicatorRow {
	if len(bars) == 0 {
		return nil
	}
	closes := extractCloses(bars)
	rsi := RSISeries(closes, RSIPeriod)
	smaFast := SMASeries(closes, SMAFastPeriod)
	smaSlow := SMASeries(closes, SMASlowPeriod)
	macd, signal, hist := MACDSeries(closes)

	rows := make([]model.IndicatorRow, 0, len(bars))
	for i, b := range bars {
		if !defined(rsi[i]) || !defined(smaFast[i]) || !defined(smaSlow[i]) || !defined(macd[i]) {
			continue
		}
		row := model.IndicatorRow{
			Bar:   b,
			RSI14: rsi[i],
			SMA20: smaFast[i],
			SMA50: smaSlow[i],
			MACD:  macd[i],
		}
		if defined(signal[i]) {
			row.MACDSignal = signal[i]
			row.MACDHist = hist[i]
			row.HasSignal = true
		}
		if i+1 < len(bars) {
			label := 0
			if bars[i+1].Close > b.Close {
				label = 1
			}
			row.Label = &label
		}
		rows = append(rows, row)
	}
	return rows
}

// Labeled returns the rows that carry a label, preserving order.
func Labeled(rows []model.IndicatorRow) []model.IndicatorRow {
	out := make([]model.IndicatorRow, 0, len(rows))
	for _, r := range rows {
		if r.Label != nil {
			out = append(out, r)
		}
	}
	return out
}
