package notifier

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"DayScreener/internal/model"
)

// StateStore persists the daily alert guard.
type StateStore interface {
	LoadAlertState(ctx context.Context) (model.AlertState, error)
	SaveAlertState(ctx context.Context, state model.AlertState) error
}

// DispatcherConfig controls when the daily alert fires.
type DispatcherConfig struct {
	Enabled      bool
	Hour         int
	Location     *time.Location
	MaxRetries   int
	RetryBackoff time.Duration
}

// Dispatcher sends the top-movers alert at most once per calendar day.
// All access to the alert state is serialized by mu.
type Dispatcher struct {
	mu      sync.Mutex
	sink    Sink
	store   StateStore
	state   model.AlertState
	enabled bool
	cfg     DispatcherConfig
	log     *zap.Logger
}

// NewDispatcher creates a dispatcher and loads the persisted state. store may be nil.
func NewDispatcher(ctx context.Context, sink Sink, store StateStore, cfg DispatcherConfig, log *zap.Logger) (*Dispatcher, error) {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Second
	}
	d := &Dispatcher{sink: sink, store: store, enabled: cfg.Enabled, cfg: cfg, log: log}
	if store != nil {
		state, err := store.LoadAlertState(ctx)
		if err != nil {
			return nil, fmt.Errorf("load alert state: %w", err)
		}
		d.state = state
	}
	return d, nil
}

// MaybeSend fires the alert when enabled, at the configured hour, not yet
// sent today and movers is non-empty. It reports whether a message was sent.
// A delivery failure leaves the state untouched and wraps
// model.ErrNotificationFailure.
func (d *Dispatcher) MaybeSend(ctx context.Context, movers []model.Quote, now time.Time) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.enabled || len(movers) == 0 {
		return false, nil
	}
	local := now.In(d.cfg.Location)
	if local.Hour() != d.cfg.Hour {
		return false, nil
	}
	date := local.Format("2006-01-02")
	// LastSentDate only moves forward. A stored date later than today, for
	// example after the alert timezone moves west, suppresses sends until
	// the local date passes it.
	if date <= d.state.LastSentDate {
		return false, nil
	}

	text := FormatTopMovers(date, movers)
	if err := sendWithRetry(ctx, d.sink, text, d.cfg.MaxRetries, d.cfg.RetryBackoff, d.log); err != nil {
		return false, fmt.Errorf("send alert via %s: %w: %v", d.sink.Name(), model.ErrNotificationFailure, err)
	}

	d.state = model.AlertState{LastSentDate: date}
	if d.store != nil {
		if err := d.store.SaveAlertState(ctx, d.state); err != nil {
			d.log.Error("persist alert state", zap.String("date", date), zap.Error(err))
		}
	}
	d.log.Info("daily alert sent", zap.String("date", date), zap.Int("movers", len(movers)))
	return true, nil
}

// SendTest delivers a test message without touching the daily guard.
func (d *Dispatcher) SendTest(ctx context.Context) error {
	text := fmt.Sprintf("✅ <b>DayScreener</b> test alert | %s", time.Now().In(d.cfg.Location).Format("2006-01-02 15:04"))
	if err := d.sink.Send(ctx, text); err != nil {
		return fmt.Errorf("send test alert via %s: %w: %v", d.sink.Name(), model.ErrNotificationFailure, err)
	}
	return nil
}

// Send delivers an arbitrary message through the sink.
func (d *Dispatcher) Send(ctx context.Context, text string) error {
	if err := d.sink.Send(ctx, text); err != nil {
		return fmt.Errorf("send via %s: %w: %v", d.sink.Name(), model.ErrNotificationFailure, err)
	}
	return nil
}

// SetEnabled toggles the daily alert.
func (d *Dispatcher) SetEnabled(enabled bool) {
	d.mu.Lock()
	d.enabled = enabled
	d.mu.Unlock()
}

// Enabled reports whether the daily alert is on.
func (d *Dispatcher) Enabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.enabled
}

// State returns a copy of the alert guard.
func (d *Dispatcher) State() model.AlertState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}
