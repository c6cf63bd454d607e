package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"DayScreener/internal/model"
	"DayScreener/internal/news"
	"DayScreener/internal/notifier"
	"DayScreener/internal/pipeline"
)

// CycleTimeout bounds one scheduled pipeline cycle.
const CycleTimeout = 2 * time.Minute

// Scheduler manages all cron tasks and answers chat commands.
type Scheduler struct {
	Cron     *cron.Cron
	Pipeline *pipeline.Pipeline
	Location *time.Location
	Ctx      context.Context
	log      *zap.Logger
}

// NewScheduler creates a new Scheduler. Cron expressions carry a seconds
// field and are evaluated in loc.
func NewScheduler(ctx context.Context, p *pipeline.Pipeline, loc *time.Location, log *zap.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		Pipeline: p,
		Location: loc,
		Ctx:      ctx,
		log:      log,
	}
}

// RegisterAll registers the refresh and alert-check tasks.
func (s *Scheduler) RegisterAll(refreshCron, alertCron string) error {
	if _, err := s.Cron.AddFunc(refreshCron, func() { s.runCycle("refresh") }); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	// The dispatcher decides whether the alert is due; this only makes sure a
	// cycle runs during the alert hour outside of refresh windows.
	if alertCron != "" {
		if _, err := s.Cron.AddFunc(alertCron, func() { s.runCycle("alert check") }); err != nil {
			return fmt.Errorf("register alert task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info("scheduler started", zap.Int("tasks", len(s.Cron.Entries())))
}

// Stop stops the cron scheduler and waits for running tasks.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// RunNow executes a cycle immediately (RUN_ON_START).
func (s *Scheduler) RunNow() {
	s.runCycle("startup")
}

func (s *Scheduler) runCycle(trigger string) (model.DashboardView, bool) {
	ctx, cancel := context.WithTimeout(s.Ctx, CycleTimeout)
	defer cancel()

	s.log.Info("running cycle", zap.String("trigger", trigger))
	view, err := s.Pipeline.RunCycle(ctx)
	if err != nil {
		s.log.Error("cycle failed", zap.String("trigger", trigger), zap.Error(err))
		return view, false
	}
	return view, true
}

// HandleCommand processes a chat command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	// "/news@MyBot AAPL" style commands carry the bot name.
	cmd := strings.ToLower(strings.SplitN(fields[0], "@", 2)[0])
	args := fields[1:]

	switch cmd {
	case "/movers":
		view, ok := s.current()
		if !ok {
			return "⚠️ market data is unavailable right now"
		}
		return notifier.FormatTopMovers(view.GeneratedAt.In(s.Location).Format("2006-01-02"), view.TopMovers)
	case "/dashboard", "/refresh":
		if cmd == "/refresh" {
			if err := s.Pipeline.Invalidate(ctx); err != nil {
				s.log.Warn("cache invalidation failed", zap.Error(err))
			}
		}
		view, ok := s.runCycle("command")
		if !ok {
			return "⚠️ refresh failed, try again later"
		}
		return notifier.FormatDashboard(view)
	case "/portfolio":
		l := s.Pipeline.Ledger()
		return notifier.FormatPortfolio(l.Entries(), l.Summary())
	case "/news":
		symbol := news.General
		if len(args) > 0 {
			symbol = strings.ToUpper(args[0])
		}
		articles, err := s.Pipeline.News(ctx, symbol, news.MinLimit)
		if err != nil {
			s.log.Warn("news command failed", zap.String("symbol", symbol), zap.Error(err))
			return "⚠️ news is unavailable right now"
		}
		return notifier.FormatNews(symbol, articles)
	case "/test":
		if err := s.Pipeline.SendTestAlert(ctx); err != nil {
			s.log.Error("test alert failed", zap.Error(err))
			return fmt.Sprintf("❌ test alert failed: %v", err)
		}
		return ""
	case "/alerts":
		d := s.Pipeline.Dispatcher()
		if d == nil {
			return "alerting is not configured"
		}
		if len(args) > 0 {
			switch strings.ToLower(args[0]) {
			case "on":
				d.SetEnabled(true)
			case "off":
				d.SetEnabled(false)
			}
		}
		state := "off"
		if d.Enabled() {
			state = "on"
		}
		return fmt.Sprintf("🔔 daily alert is <b>%s</b> (last sent: %s)", state, orNever(d.State().LastSentDate))
	default:
		return helpText
	}
}

// current returns the latest view, running a cycle if none exists yet.
func (s *Scheduler) current() (model.DashboardView, bool) {
	if view, ok := s.Pipeline.Latest(); ok {
		return view, true
	}
	return s.runCycle("command")
}

func orNever(date string) string {
	if date == "" {
		return "never"
	}
	return date
}

const helpText = `Available commands:
• /movers - today's top movers
• /dashboard - show the dashboard
• /refresh - refetch market data and show the dashboard
• /portfolio - portfolio P/L
• /news [SYMBOL] - latest headlines
• /alerts [on|off] - daily alert status
• /test - send a test alert`
