package estimators

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"ConflictVol/internal/domain/models"
	"ConflictVol/internal/domain/service"
)

// ForestParams are the Random Forest hyperparameters. The defaults favor a
// robust benchmark over a tuned model: a moderate tree count keeps repeated
// walk-forward refits affordable.
type ForestParams struct {
	Trees    int
	MaxDepth int
	MinLeaf  int
	Seed     int64
}

func DefaultForestParams(seed int64) ForestParams {
	return ForestParams{Trees: 150, MaxDepth: 10, MinLeaf: 5, Seed: seed}
}

// RandomForest is a bagged ensemble of CART regression trees over the same
// information set as HAR-X. The RNG is reseeded identically at every refit so
// repeated runs reproduce byte-identical forecasts.
type RandomForest struct {
	features []string
	params   ForestParams
}

func NewRandomForest(features []string, params ForestParams) *RandomForest {
	return &RandomForest{features: features, params: params}
}

func (f *RandomForest) Kind() models.EstimatorKind { return models.KindRandomForest }

func (f *RandomForest) Fit(rows []models.ObservationRow) (service.Fitted, error) {
	n := len(rows)
	p := len(f.features)
	if n < 2*f.params.MinLeaf || p == 0 {
		return nil, fmt.Errorf("%w: %d rows, %d features", service.ErrEstimatorFit, n, p)
	}

	X := make([][]float64, n)
	y := make([]float64, n)
	for i, row := range rows {
		vec, err := row.FeatureVector(f.features)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", service.ErrEstimatorFit, err)
		}
		X[i] = vec
		y[i] = row.TargetRV
	}

	rng := rand.New(rand.NewSource(f.params.Seed))
	mtry := p / 3
	if mtry < 1 {
		mtry = 1
	}

	trees := make([]*treeNode, f.params.Trees)
	sampleIdx := make([]int, n)
	for t := 0; t < f.params.Trees; t++ {
		for i := range sampleIdx {
			sampleIdx[i] = rng.Intn(n)
		}
		trees[t] = growTree(X, y, append([]int(nil), sampleIdx...), treeParams{
			maxDepth: f.params.MaxDepth,
			minLeaf:  f.params.MinLeaf,
			mtry:     mtry,
			nFeat:    p,
		}, rng, 0)
	}
	return &fittedForest{features: f.features, trees: trees}, nil
}

type fittedForest struct {
	features []string
	trees    []*treeNode
}

func (f *fittedForest) Predict(row models.ObservationRow) (float64, error) {
	vec, err := row.FeatureVector(f.features)
	if err != nil {
		return 0, err
	}
	sum := 0.0
	for _, t := range f.trees {
		sum += t.predict(vec)
	}
	return sum / float64(len(f.trees)), nil
}

type treeParams struct {
	maxDepth, minLeaf, mtry, nFeat int
}

type treeNode struct {
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
	value     float64
	leaf      bool
}

func (n *treeNode) predict(x []float64) float64 {
	for !n.leaf {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

func growTree(X [][]float64, y []float64, idx []int, p treeParams, rng *rand.Rand, depth int) *treeNode {
	if depth >= p.maxDepth || len(idx) < 2*p.minLeaf {
		return leafNode(y, idx)
	}

	feature, threshold, ok := bestSplit(X, y, idx, p, rng)
	if !ok {
		return leafNode(y, idx)
	}

	var left, right []int
	for _, i := range idx {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < p.minLeaf || len(right) < p.minLeaf {
		return leafNode(y, idx)
	}
	return &treeNode{
		feature:   feature,
		threshold: threshold,
		left:      growTree(X, y, left, p, rng, depth+1),
		right:     growTree(X, y, right, p, rng, depth+1),
	}
}

func leafNode(y []float64, idx []int) *treeNode {
	sum := 0.0
	for _, i := range idx {
		sum += y[i]
	}
	return &treeNode{leaf: true, value: sum / float64(len(idx))}
}

// bestSplit scans a random feature subset for the SSE-minimizing threshold
// using prefix sums over the feature-sorted sample.
func bestSplit(X [][]float64, y []float64, idx []int, p treeParams, rng *rand.Rand) (int, float64, bool) {
	bestSSE := math.Inf(1)
	bestFeature, bestThreshold := -1, 0.0

	features := rng.Perm(p.nFeat)[:p.mtry]
	order := make([]int, len(idx))

	for _, feat := range features {
		copy(order, idx)
		sort.Slice(order, func(a, b int) bool { return X[order[a]][feat] < X[order[b]][feat] })

		totalSum, totalSq := 0.0, 0.0
		for _, i := range order {
			totalSum += y[i]
			totalSq += y[i] * y[i]
		}

		leftSum := 0.0
		n := len(order)
		for k := 0; k < n-1; k++ {
			leftSum += y[order[k]]
			if X[order[k]][feat] == X[order[k+1]][feat] {
				continue // cannot split between equal values
			}
			nl, nr := float64(k+1), float64(n-k-1)
			if k+1 < p.minLeaf || n-k-1 < p.minLeaf {
				continue
			}
			rightSum := totalSum - leftSum
			// SSE = sum(y^2) - sum_left^2/nl - sum_right^2/nr; the constant
			// term drops out of the comparison.
			sse := totalSq - leftSum*leftSum/nl - rightSum*rightSum/nr
			if sse < bestSSE {
				bestSSE = sse
				bestFeature = feat
				bestThreshold = (X[order[k]][feat] + X[order[k+1]][feat]) / 2
			}
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}
