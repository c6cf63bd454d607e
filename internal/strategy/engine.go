package strategy

import (
	"fmt"

	"DayScreener/internal/model"
)

// Evaluate runs every rule against the latest rows and bars of a symbol and
// returns the signals that fired. Crossovers need at least two rows.
func Evaluate(symbol string, bars []model.Bar, rows []model.IndicatorRow) []model.Signal {
	signals := []model.Signal{}
	if len(rows) > 0 {
		cur := rows[len(rows)-1]
		fire := func(rule model.RuleName, dir model.Direction, reason string) {
			signals = append(signals, model.Signal{
				Symbol:    symbol,
				Rule:      rule,
				Direction: dir,
				Reason:    reason,
				Time:      cur.Time,
			})
		}

		switch {
		case Overbought(cur):
			fire(model.RuleOverbought, model.DirectionSell, fmt.Sprintf("RSI=%.1f above %.0f", cur.RSI14, OverboughtRSI))
		case Oversold(cur):
			fire(model.RuleOversold, model.DirectionBuy, fmt.Sprintf("RSI=%.1f below %.0f", cur.RSI14, OversoldRSI))
		}

		if len(rows) > 1 {
			prev := rows[len(rows)-2]
			switch {
			case GoldenCross(prev, cur):
				fire(model.RuleGoldenCross, model.DirectionBuy, fmt.Sprintf("SMA20 %.2f crossed above SMA50 %.2f", cur.SMA20, cur.SMA50))
			case DeathCross(prev, cur):
				fire(model.RuleDeathCross, model.DirectionSell, fmt.Sprintf("SMA20 %.2f crossed below SMA50 %.2f", cur.SMA20, cur.SMA50))
			}
		}

		switch {
		case MACDBullish(cur):
			fire(model.RuleMACDBullish, model.DirectionBuy, fmt.Sprintf("MACD %.3f above signal %.3f", cur.MACD, cur.MACDSignal))
		case MACDBearish(cur):
			fire(model.RuleMACDBearish, model.DirectionSell, fmt.Sprintf("MACD %.3f below signal %.3f", cur.MACD, cur.MACDSignal))
		}
	}

	if VolumeSpike(bars) {
		last := bars[len(bars)-1]
		signals = append(signals, model.Signal{
			Symbol:    symbol,
			Rule:      model.RuleVolumeSpike,
			Direction: model.DirectionWatch,
			Reason:    fmt.Sprintf("volume %.0f above %.1fx recent average", last.Volume, VolumeSpikeFactor),
			Time:      last.Time,
		})
	}
	return signals
}
