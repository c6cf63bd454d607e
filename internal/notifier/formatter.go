package notifier

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"DayScreener/internal/model"
)

// MaxMovers caps the lines in a top-movers message.
const MaxMovers = 5

// FormatTopMovers formats the daily alert: a bold header with the date and
// one line per mover, highest change first.
func FormatTopMovers(date string, movers []model.Quote) string {
	sorted := make([]model.Quote, len(movers))
	copy(sorted, movers)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].PctChange > sorted[j].PctChange })
	if len(sorted) > MaxMovers {
		sorted = sorted[:MaxMovers]
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("📈 <b>Top movers | %s</b>\n\n", date))
	for i, q := range sorted {
		b.WriteString(fmt.Sprintf("%d. <b>%s</b> %+.2f%% @ %.2f\n", i+1, html.EscapeString(q.Symbol), q.PctChange, q.Price))
	}
	return b.String()
}

// FormatPortfolio formats the ledger for the /portfolio command.
func FormatPortfolio(entries []model.PortfolioEntry, summary model.PortfolioSummary) string {
	var b strings.Builder
	b.WriteString("💼 <b>Portfolio</b>\n\n")
	if len(entries) == 0 {
		b.WriteString("No positions.\n")
		return b.String()
	}
	for _, e := range entries {
		b.WriteString(fmt.Sprintf("<b>%s</b> %.2f @ %.2f → %.2f | P/L %+.2f (%+.2f%%)\n",
			html.EscapeString(e.Symbol), e.Shares, e.EntryPrice, e.CurrentPrice, e.PL, e.PLPct*100))
	}
	b.WriteString(fmt.Sprintf("\nValue: %.2f\nP/L: %+.2f (%+.2f%%)\n", summary.TotalValue, summary.TotalPL, summary.TotalPLPercent*100))
	return b.String()
}

// FormatNews formats headlines for the /news command.
func FormatNews(symbol string, articles []model.NewsArticle) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📰 <b>News | %s</b>\n\n", html.EscapeString(strings.ToUpper(symbol))))
	if len(articles) == 0 {
		b.WriteString("No recent headlines.\n")
		return b.String()
	}
	for _, a := range articles {
		b.WriteString(fmt.Sprintf("• %s <i>(%s, %s)</i>\n",
			html.EscapeString(a.Headline), html.EscapeString(a.Source), a.PublishedAt.Format("01-02 15:04")))
	}
	return b.String()
}

// FormatDashboard summarizes a cycle for the /refresh command.
func FormatDashboard(v model.DashboardView) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>DayScreener</b> | %s\n\n", v.GeneratedAt.Format("2006-01-02 15:04")))
	for _, idx := range v.Overview {
		b.WriteString(fmt.Sprintf("%s: %.2f (%+.2f%%)\n", html.EscapeString(idx.Name), idx.Value, idx.PctChange))
	}
	b.WriteString(fmt.Sprintf("\nScreened: %d of %d | mood: %s\n", len(v.Filtered), len(v.Quotes), v.Mood))
	for _, a := range v.Advisory {
		b.WriteString(fmt.Sprintf("⚠️ %s\n", html.EscapeString(a)))
	}
	return b.String()
}
