package news

import (
	"strings"
	"unicode"

	"DayScreener/internal/model"
)

// Mood labels.
const (
	MoodPositive = "positive"
	MoodNegative = "negative"
	MoodNeutral  = "neutral"
)

// MoodThreshold is the average sentiment beyond which the mood turns.
const MoodThreshold = 0.3

var positiveWords = map[string]struct{}{
	"beat": {}, "beats": {}, "bullish": {}, "gain": {}, "gains": {}, "growth": {},
	"high": {}, "higher": {}, "jump": {}, "jumps": {}, "outperform": {}, "profit": {},
	"rally": {}, "rallies": {}, "record": {}, "rise": {}, "rises": {}, "soar": {},
	"soars": {}, "strong": {}, "surge": {}, "surges": {}, "upgrade": {}, "upgraded": {},
	"win": {}, "wins": {}, "boost": {}, "optimism": {}, "rebound": {},
}

var negativeWords = map[string]struct{}{
	"bearish": {}, "crash": {}, "cut": {}, "cuts": {}, "decline": {}, "declines": {},
	"downgrade": {}, "downgraded": {}, "drop": {}, "drops": {}, "fall": {}, "falls": {},
	"fear": {}, "fears": {}, "loss": {}, "losses": {}, "lawsuit": {}, "low": {},
	"lower": {}, "miss": {}, "misses": {}, "plunge": {}, "plunges": {}, "recession": {},
	"slump": {}, "weak": {}, "warning": {}, "sell-off": {}, "selloff": {}, "tumble": {},
}

// Score rates text in [-1, 1] by counting lexicon hits.
func Score(text string) float64 {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '-'
	})
	pos, neg := 0, 0
	for _, w := range words {
		if _, ok := positiveWords[w]; ok {
			pos++
		}
		if _, ok := negativeWords[w]; ok {
			neg++
		}
	}
	if pos+neg == 0 {
		return 0
	}
	return float64(pos-neg) / float64(pos+neg)
}

// Mood classifies the average sentiment of a set of articles.
func Mood(articles []model.NewsArticle) string {
	if len(articles) == 0 {
		return MoodNeutral
	}
	sum := 0.0
	for _, a := range articles {
		sum += a.Sentiment
	}
	return Classify(sum / float64(len(articles)))
}

// Classify maps an average sentiment to a mood label.
func Classify(avg float64) string {
	switch {
	case avg > MoodThreshold:
		return MoodPositive
	case avg < -MoodThreshold:
		return MoodNegative
	default:
		return MoodNeutral
	}
}
