package classifier

import (
	"fmt"
	"math"
	"math/rand/v2"

	"DayScreener/internal/model"
)

// MinRows is the minimum number of labeled rows needed to train.
const MinRows = 20

// HoldoutFraction is the share of the most recent rows used for evaluation.
const HoldoutFraction = 0.2

// Options configures the forest.
type Options struct {
	Trees    int
	MaxDepth int
	MinLeaf  int
	Seed     uint64
}

// DefaultOptions returns the settings used by the detail panel.
func DefaultOptions() Options {
	return Options{Trees: 100, MaxDepth: 8, MinLeaf: 1, Seed: 42}
}

// Model is a trained random forest over the indicator feature vector.
type Model struct {
	trees []*node
}

// Split divides labeled rows chronologically: the last ceil(0.2*n) rows form
// the holdout set. Rows are never shuffled.
func Split(rows []model.IndicatorRow) (train, test []model.IndicatorRow) {
	holdout := int(math.Ceil(HoldoutFraction * float64(len(rows))))
	cut := len(rows) - holdout
	return rows[:cut], rows[cut:]
}

// Train fits a forest on the labeled rows and returns it with its holdout
// accuracy. Unlabeled rows are ignored.
func Train(rows []model.IndicatorRow, opts Options) (*Model, float64, error) {
	labeled := make([]model.IndicatorRow, 0, len(rows))
	for _, r := range rows {
		if r.Label != nil {
			labeled = append(labeled, r)
		}
	}
	if len(labeled) < MinRows {
		return nil, 0, fmt.Errorf("train classifier: %d labeled rows, need %d: %w", len(labeled), MinRows, model.ErrInsufficientData)
	}
	opts = withDefaults(opts)

	train, test := Split(labeled)
	x := make([][]float64, len(train))
	y := make([]int, len(train))
	for i, r := range train {
		x[i] = r.Features()
		y[i] = *r.Label
	}

	mtry := int(math.Sqrt(float64(len(x[0]))))
	if mtry < 1 {
		mtry = 1
	}
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed))
	b := &treeBuilder{x: x, y: y, maxDepth: opts.MaxDepth, minLeaf: opts.MinLeaf, mtry: mtry, rng: rng}

	m := &Model{trees: make([]*node, 0, opts.Trees)}
	for t := 0; t < opts.Trees; t++ {
		sample := make([]int, len(x))
		for i := range sample {
			sample[i] = rng.IntN(len(x))
		}
		m.trees = append(m.trees, b.build(sample, 0))
	}

	correct := 0
	for _, r := range test {
		if m.Predict(r) == *r.Label {
			correct++
		}
	}
	return m, float64(correct) / float64(len(test)), nil
}

// Probability returns the fraction of trees voting that the next close is higher.
func (m *Model) Probability(row model.IndicatorRow) float64 {
	if len(m.trees) == 0 {
		return 0
	}
	x := row.Features()
	votes := 0
	for _, t := range m.trees {
		votes += t.vote(x)
	}
	return float64(votes) / float64(len(m.trees))
}

// Predict returns the majority vote: 1 for up, 0 otherwise.
func (m *Model) Predict(row model.IndicatorRow) int {
	if m.Probability(row) > 0.5 {
		return 1
	}
	return 0
}

func withDefaults(opts Options) Options {
	d := DefaultOptions()
	if opts.Trees <= 0 {
		opts.Trees = d.Trees
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = d.MaxDepth
	}
	if opts.MinLeaf <= 0 {
		opts.MinLeaf = d.MinLeaf
	}
	return opts
}
