package recorder

import (
	"context"
	"sync"

	"DayScreener/internal/model"
)

// NoopRecorder is used when SQLite is not configured. The alert state lives
// in memory only.
type NoopRecorder struct {
	mu    sync.Mutex
	state model.AlertState
}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordCycle(context.Context, *CycleRecord) error       { return nil }
func (n *NoopRecorder) RecordAlert(context.Context, *AlertRecord) error       { return nil }
func (n *NoopRecorder) RecordTraining(context.Context, *TrainingRecord) error { return nil }
func (n *NoopRecorder) Close() error                                          { return nil }

func (n *NoopRecorder) LoadAlertState(context.Context) (model.AlertState, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state, nil
}

func (n *NoopRecorder) SaveAlertState(_ context.Context, state model.AlertState) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.state = state
	return nil
}
