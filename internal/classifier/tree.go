package classifier

import (
	"math/rand/v2"
	"sort"
)

// node is a CART decision node. Leaves have left == nil.
type node struct {
	feature   int
	threshold float64
	left      *node
	right     *node
	up        float64 // fraction of label-1 samples reaching the leaf
}

func (n *node) vote(x []float64) int {
	for n.left != nil {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	if n.up > 0.5 {
		return 1
	}
	return 0
}

type treeBuilder struct {
	x        [][]float64
	y        []int
	maxDepth int
	minLeaf  int
	mtry     int
	rng      *rand.Rand
}

func (b *treeBuilder) build(idx []int, depth int) *node {
	ones := 0
	for _, i := range idx {
		ones += b.y[i]
	}
	leaf := &node{up: float64(ones) / float64(len(idx))}
	if depth >= b.maxDepth || ones == 0 || ones == len(idx) || len(idx) < 2*b.minLeaf {
		return leaf
	}

	feature, threshold, ok := b.bestSplit(idx, ones)
	if !ok {
		return leaf
	}
	var left, right []int
	for _, i := range idx {
		if b.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return &node{
		feature:   feature,
		threshold: threshold,
		left:      b.build(left, depth+1),
		right:     b.build(right, depth+1),
		up:        leaf.up,
	}
}

// bestSplit searches mtry randomly chosen features for the threshold with the
// lowest weighted Gini impurity.
func (b *treeBuilder) bestSplit(idx []int, ones int) (int, float64, bool) {
	nFeatures := len(b.x[0])
	candidates := b.rng.Perm(nFeatures)[:b.mtry]

	total := float64(len(idx))
	bestScore := gini(ones, len(idx))
	bestFeature, bestThreshold, found := 0, 0.0, false

	sorted := make([]int, len(idx))
	for _, f := range candidates {
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, c int) bool {
			return b.x[sorted[a]][f] < b.x[sorted[c]][f]
		})

		leftOnes := 0
		for k := 0; k < len(sorted)-1; k++ {
			leftOnes += b.y[sorted[k]]
			cur, next := b.x[sorted[k]][f], b.x[sorted[k+1]][f]
			if cur == next {
				continue
			}
			nLeft := k + 1
			nRight := len(sorted) - nLeft
			if nLeft < b.minLeaf || nRight < b.minLeaf {
				continue
			}
			score := (float64(nLeft)*gini(leftOnes, nLeft) + float64(nRight)*gini(ones-leftOnes, nRight)) / total
			if score < bestScore {
				bestScore = score
				bestFeature = f
				bestThreshold = (cur + next) / 2
				found = true
			}
		}
	}
	return bestFeature, bestThreshold, found
}

func gini(ones, n int) float64 {
	if n == 0 {
		return 0
	}
	p := float64(ones) / float64(n)
	return 1 - p*p - (1-p)*(1-p)
}
