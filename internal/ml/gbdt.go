package ml

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// Node is one node of a regression tree stored in a flat slice.
// Rows with x[Feature] < Threshold go Left, the rest go Right.
type Node struct {
	Leaf      bool    `json:"leaf"`
	Value     float64 `json:"value,omitempty"`
	Feature   int     `json:"feature,omitempty"`
	Threshold float64 `json:"threshold,omitempty"`
	Left      int     `json:"left,omitempty"`
	Right     int     `json:"right,omitempty"`
}

// Tree is a regression tree whose leaves hold margin contributions
type Tree struct {
	Nodes []Node `json:"nodes"`
}

func (t *Tree) predict(x []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Leaf {
			return n.Value
		}
		var v float64
		if n.Feature < len(x) {
			v = x[n.Feature]
		}
		if v < n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Classifier is a binary gradient-boosted tree ensemble trained on logistic loss
type Classifier struct {
	BaseScore   float64   `json:"base_score"` // initial log-odds
	NumFeatures int       `json:"num_features"`
	Trees       []Tree    `json:"trees"`
	Importance  []float64 `json:"importance"` // normalised total split gain per feature
}

// Margin returns the raw log-odds for a row
func (c *Classifier) Margin(x []float64) float64 {
	m := c.BaseScore
	for i := range c.Trees {
		m += c.Trees[i].predict(x)
	}
	return m
}

// PredictProba returns the probability of class 1
func (c *Classifier) PredictProba(x []float64) float64 {
	return sigmoid(c.Margin(x))
}

// validate checks the structural integrity of a decoded classifier
func (c *Classifier) validate() error {
	if c.NumFeatures < 0 {
		return fmt.Errorf("negative feature count")
	}
	if len(c.Importance) != 0 && len(c.Importance) != c.NumFeatures {
		return fmt.Errorf("importance has %d entries for %d features", len(c.Importance), c.NumFeatures)
	}
	for ti, t := range c.Trees {
		if len(t.Nodes) == 0 {
			return fmt.Errorf("tree %d is empty", ti)
		}
		for ni, n := range t.Nodes {
			if n.Leaf {
				if math.IsNaN(n.Value) || math.IsInf(n.Value, 0) {
					return fmt.Errorf("tree %d node %d has non-finite value", ti, ni)
				}
				continue
			}
			if math.IsNaN(n.Threshold) || math.IsInf(n.Threshold, 0) {
				return fmt.Errorf("tree %d node %d has non-finite threshold", ti, ni)
			}
			if n.Feature < 0 || n.Feature >= c.NumFeatures {
				return fmt.Errorf("tree %d node %d splits on unknown feature %d", ti, ni, n.Feature)
			}
			// children are always stored after their parent, which rules out cycles
			if n.Left <= ni || n.Left >= len(t.Nodes) || n.Right <= ni || n.Right >= len(t.Nodes) {
				return fmt.Errorf("tree %d node %d has invalid children", ti, ni)
			}
		}
	}
	return nil
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// fitClassifier boosts NEstimators trees on logistic loss using second-order split gain.
// y must contain both classes.
func fitClassifier(X [][]float64, y []int, numFeatures int, p Hyperparameters) (*Classifier, error) {
	n := len(X)
	if n == 0 || n != len(y) {
		return nil, fmt.Errorf("got %d rows and %d labels", n, len(y))
	}

	positives := 0
	for _, label := range y {
		positives += label
	}
	if positives == 0 || positives == n {
		return nil, fmt.Errorf("training labels contain a single class")
	}

	base := math.Log(float64(positives) / float64(n-positives))
	clf := &Classifier{
		BaseScore:   base,
		NumFeatures: numFeatures,
		Trees:       make([]Tree, 0, p.NEstimators),
	}

	rng := rand.New(rand.NewSource(p.RandomState))
	margins := make([]float64, n)
	for i := range margins {
		margins[i] = base
	}
	grad := make([]float64, n)
	hess := make([]float64, n)
	gains := make([]float64, numFeatures)

	b := &treeBuilder{X: X, grad: grad, hess: hess, params: p, gains: gains}

	for round := 0; round < p.NEstimators; round++ {
		for i := 0; i < n; i++ {
			prob := sigmoid(margins[i])
			grad[i] = prob - float64(y[i])
			hess[i] = math.Max(prob*(1-prob), 1e-16)
		}

		rows := sampleRows(rng, n, p.Subsample)
		b.cols = sampleColumns(rng, numFeatures, p.ColsampleByTree)
		b.nodes = nil
		b.grow(rows, 0)

		tree := Tree{Nodes: b.nodes}
		for i := 0; i < n; i++ {
			margins[i] += tree.predict(X[i])
		}
		clf.Trees = append(clf.Trees, tree)
	}

	clf.Importance = normalise(gains)
	return clf, nil
}

func sampleRows(rng *rand.Rand, n int, fraction float64) []int {
	rows := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if fraction >= 1 || rng.Float64() < fraction {
			rows = append(rows, i)
		}
	}
	if len(rows) == 0 {
		rows = append(rows, rng.Intn(n))
	}
	return rows
}

func sampleColumns(rng *rand.Rand, m int, fraction float64) []int {
	if m == 0 {
		return nil
	}
	k := int(math.Round(fraction * float64(m)))
	if k < 1 {
		k = 1
	}
	if k > m {
		k = m
	}
	cols := rng.Perm(m)[:k]
	sort.Ints(cols)
	return cols
}

func normalise(v []float64) []float64 {
	out := make([]float64, len(v))
	total := 0.0
	for _, x := range v {
		total += x
	}
	if total <= 0 {
		return out
	}
	for i, x := range v {
		out[i] = x / total
	}
	return out
}

type treeBuilder struct {
	X      [][]float64
	grad   []float64
	hess   []float64
	cols   []int
	params Hyperparameters
	gains  []float64
	nodes  []Node
}

type split struct {
	feature   int
	threshold float64
	gain      float64
}

// grow appends the subtree for rows and returns its root index
func (b *treeBuilder) grow(rows []int, depth int) int {
	var G, H float64
	for _, i := range rows {
		G += b.grad[i]
		H += b.hess[i]
	}

	idx := len(b.nodes)
	b.nodes = append(b.nodes, Node{})

	leaf := Node{Leaf: true, Value: -G / (H + b.params.Lambda) * b.params.LearningRate}
	if depth >= b.params.MaxDepth || len(rows) < 2 || H < 2*b.params.MinChildWeight {
		b.nodes[idx] = leaf
		return idx
	}

	best, ok := b.bestSplit(rows, G, H)
	if !ok {
		b.nodes[idx] = leaf
		return idx
	}
	b.gains[best.feature] += best.gain

	var left, right []int
	for _, i := range rows {
		if b.X[i][best.feature] < best.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[idx] = Node{Feature: best.feature, Threshold: best.threshold, Left: l, Right: r}
	return idx
}

func (b *treeBuilder) bestSplit(rows []int, G, H float64) (split, bool) {
	lambda := b.params.Lambda
	parent := G * G / (H + lambda)
	best := split{gain: 1e-12}
	found := false

	sorted := make([]int, len(rows))
	for _, f := range b.cols {
		copy(sorted, rows)
		sort.SliceStable(sorted, func(a, c int) bool {
			return b.X[sorted[a]][f] < b.X[sorted[c]][f]
		})

		var GL, HL float64
		for k := 0; k < len(sorted)-1; k++ {
			i := sorted[k]
			GL += b.grad[i]
			HL += b.hess[i]

			cur, next := b.X[i][f], b.X[sorted[k+1]][f]
			if cur == next {
				continue
			}
			GR, HR := G-GL, H-HL
			if HL < b.params.MinChildWeight || HR < b.params.MinChildWeight {
				continue
			}

			gain := GL*GL/(HL+lambda) + GR*GR/(HR+lambda) - parent
			if gain > best.gain {
				best = split{feature: f, threshold: midpoint(cur, next), gain: gain}
				found = true
			}
		}
	}
	return best, found
}

// midpoint returns a threshold t with cur < t <= next that stays finite for finite inputs
func midpoint(cur, next float64) float64 {
	t := cur/2 + next/2
	if t <= cur || t > next {
		return next
	}
	return t
}
