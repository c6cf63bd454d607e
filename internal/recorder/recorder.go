package recorder

import (
	"context"
	"time"

	"DayScreener/internal/model"
)

// CycleRecord summarizes one pipeline cycle.
type CycleRecord struct {
	Time      time.Time
	Quoted    int
	Filtered  int
	TopMovers []string
	Mood      string
	AlertSent bool
	Advisory  string
	Duration  time.Duration
}

// AlertRecord is one delivery attempt through a sink.
type AlertRecord struct {
	Time    time.Time
	Date    string // local alert date, YYYY-MM-DD
	Kind    string // "DAILY" or "TEST"
	Movers  int
	Success bool
	Error   string
}

// TrainingRecord captures a classifier run for a symbol.
type TrainingRecord struct {
	Time       time.Time
	Symbol     string
	Rows       int
	Accuracy   float64
	Prediction int
	UpProb     float64
}

// Recorder persists history and the daily alert guard.
type Recorder interface {
	RecordCycle(ctx context.Context, rec *CycleRecord) error
	RecordAlert(ctx context.Context, rec *AlertRecord) error
	RecordTraining(ctx context.Context, rec *TrainingRecord) error
	LoadAlertState(ctx context.Context) (model.AlertState, error)
	SaveAlertState(ctx context.Context, state model.AlertState) error
	Close() error
}
