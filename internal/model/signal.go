package model

import "time"

// Direction indicates what a fired rule suggests.
type Direction string

const (
	DirectionBuy   Direction = "BUY"
	DirectionSell  Direction = "SELL"
	DirectionWatch Direction = "WATCH"
)

// RuleName identifies a named rule predicate.
type RuleName string

const (
	RuleOverbought  RuleName = "RSI_OVERBOUGHT"
	RuleOversold    RuleName = "RSI_OVERSOLD"
	RuleGoldenCross RuleName = "GOLDEN_CROSS"
	RuleDeathCross  RuleName = "DEATH_CROSS"
	RuleVolumeSpike RuleName = "VOLUME_SPIKE"
	RuleMACDBullish RuleName = "MACD_BULLISH"
	RuleMACDBearish RuleName = "MACD_BEARISH"
)

// Signal is the output of a rule that fired on the latest data.
type Signal struct {
	Symbol    string    `json:"symbol"`
	Rule      RuleName  `json:"rule"`
	Direction Direction `json:"direction"`
	Reason    string    `json:"reason"`
	Time      time.Time `json:"time"`
}
