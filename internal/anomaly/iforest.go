// Package anomaly flags statistically unusual facilities by combining
// independent outlier signals. The isolation forest is implemented from
// primitives: randomized axis-aligned splits isolate outliers in fewer
// partitions than inliers, and the average path length over the ensemble
// becomes an anomaly score.
package anomaly

import (
	"math"
	"math/rand/v2"

	"github.com/envtrac/chemrisk-cli/internal/stats"
)

const eulerGamma = 0.5772156649

// ForestOptions configures an IsolationForest.
type ForestOptions struct {
	Trees      int    // number of random trees; more trees, stabler scores
	SampleSize int    // per-tree subsample size, capped at the population
	Seed       uint64 // fixed seed keeps runs reproducible
}

// IsolationForest is an ensemble of random partition trees over a row-major
// feature matrix. Construct with NewIsolationForest, then Fit before Scores.
type IsolationForest struct {
	opts       ForestOptions
	trees      []*isoNode
	sampleSize int // actual subsample used, after capping
}

type isoNode struct {
	feature     int
	split       float64
	left, right *isoNode
	size        int // population at an external node
}

// NewIsolationForest builds an unfitted forest. Zero-value options default to
// 100 trees and 256-row subsamples.
func NewIsolationForest(opts ForestOptions) *IsolationForest {
	if opts.Trees <= 0 {
		opts.Trees = 100
	}
	if opts.SampleSize <= 0 {
		opts.SampleSize = 256
	}
	return &IsolationForest{opts: opts}
}

// Fit grows the ensemble over data. Each tree sees an independent subsample
// drawn without replacement; tree depth is capped at ceil(log2(sample)) since
// deeper paths carry no isolation signal.
func (f *IsolationForest) Fit(data [][]float64) {
	n := len(data)
	if n == 0 {
		f.trees = nil
		return
	}

	f.sampleSize = f.opts.SampleSize
	if f.sampleSize > n {
		f.sampleSize = n
	}
	maxDepth := int(math.Ceil(math.Log2(float64(f.sampleSize))))
	if maxDepth < 1 {
		maxDepth = 1
	}

	rng := rand.New(rand.NewPCG(f.opts.Seed, f.opts.Seed))

	f.trees = make([]*isoNode, f.opts.Trees)
	for t := 0; t < f.opts.Trees; t++ {
		perm := rng.Perm(n)
		sample := make([][]float64, f.sampleSize)
		for i := 0; i < f.sampleSize; i++ {
			sample[i] = data[perm[i]]
		}
		f.trees[t] = growTree(sample, 0, maxDepth, rng)
	}
}

func growTree(data [][]float64, depth, maxDepth int, rng *rand.Rand) *isoNode {
	n := len(data)
	if depth >= maxDepth || n <= 1 {
		return &isoNode{size: n}
	}

	feature := rng.IntN(len(data[0]))
	lo, hi := data[0][feature], data[0][feature]
	for _, row := range data[1:] {
		v := row[feature]
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo == hi {
		// Constant on the chosen feature: nothing left to isolate here.
		return &isoNode{size: n}
	}

	split := lo + rng.Float64()*(hi-lo)

	var left, right [][]float64
	for _, row := range data {
		if row[feature] < split {
			left = append(left, row)
		} else {
			right = append(right, row)
		}
	}

	return &isoNode{
		feature: feature,
		split:   split,
		left:    growTree(left, depth+1, maxDepth, rng),
		right:   growTree(right, depth+1, maxDepth, rng),
	}
}

// pathLength walks x down the tree; external nodes holding several points add
// the expected remaining depth for their population.
func pathLength(x []float64, node *isoNode, depth float64) float64 {
	if node.left == nil {
		return depth + averagePathLength(node.size)
	}
	if x[node.feature] < node.split {
		return pathLength(x, node.left, depth+1)
	}
	return pathLength(x, node.right, depth+1)
}

// averagePathLength is c(n), the expected path length of an unsuccessful
// search in a binary search tree of n points.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	default:
		fn := float64(n)
		return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
	}
}

// Scores returns the anomaly score for every row: 2^(-E[h(x)]/c(sample)).
// Scores approach 1 for easily isolated rows and sit near 0.5 for average
// ones. Fit must have been called with a non-empty matrix.
func (f *IsolationForest) Scores(data [][]float64) []float64 {
	scores := make([]float64, len(data))
	if len(f.trees) == 0 {
		return scores
	}

	norm := averagePathLength(f.sampleSize)
	if norm == 0 {
		norm = 1
	}

	for i, row := range data {
		var total float64
		for _, tree := range f.trees {
			total += pathLength(row, tree, 0)
		}
		mean := total / float64(len(f.trees))
		scores[i] = math.Pow(2, -mean/norm)
	}
	return scores
}

// FlagOutliers marks the rows whose score exceeds the (1-contamination)
// percentile of the score distribution, roughly the top contamination
// fraction. A population that ties everywhere flags nothing.
func FlagOutliers(scores []float64, contamination float64) []bool {
	flags := make([]bool, len(scores))
	if len(scores) == 0 || contamination <= 0 {
		return flags
	}

	threshold := stats.Percentile(scores, (1-contamination)*100)
	for i, s := range scores {
		flags[i] = s > threshold
	}
	return flags
}
