package ml

import (
	"math"
	"math/rand"
	"sort"
)

// TreeNode is one node of a CART tree in flattened form. Leaf nodes have
// Left == -1 and carry their output in Value: a class distribution for
// classification trees, a single raw score for regression trees.
type TreeNode struct {
	Feature   int       `json:"f"`
	Threshold float64   `json:"t"`
	Left      int       `json:"l"`
	Right     int       `json:"r"`
	Value     []float64 `json:"v,omitempty"`
}

// Tree is a flattened CART tree. Flattening keeps the JSON artifact compact
// and avoids recursive decoding.
type Tree struct {
	Nodes []TreeNode `json:"nodes"`
}

func (t *Tree) leaf(x []float64) []float64 {
	i := 0
	for t.Nodes[i].Left != -1 {
		n := t.Nodes[i]
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return t.Nodes[i].Value
}

// treeParams controls recursive growth.
type treeParams struct {
	maxDepth       int
	minLeafSamples int
	// number of features to consider per split; 0 means all
	featureSample int
	// regression fits a single score per leaf instead of a distribution
	regression bool
	rng        *rand.Rand
}

// growTree builds a CART tree over the index set idx. targets holds class
// labels for classification or residuals for regression; weights are the
// per-sample training weights.
func growTree(X [][]float64, labels []int, residuals []float64, weights []float64, idx []int, p treeParams) *Tree {
	t := &Tree{}
	t.grow(X, labels, residuals, weights, idx, 0, p)
	return t
}

func (t *Tree) grow(X [][]float64, labels []int, residuals []float64, weights []float64, idx []int, depth int, p treeParams) int {
	node := TreeNode{Left: -1, Right: -1}
	self := len(t.Nodes)
	t.Nodes = append(t.Nodes, node)

	if depth >= p.maxDepth || len(idx) < 2*p.minLeafSamples || pure(labels, idx, p.regression) {
		t.Nodes[self].Value = leafValue(labels, residuals, weights, idx, p.regression)
		return self
	}

	feat, thr, ok := bestSplit(X, labels, residuals, weights, idx, p)
	if !ok {
		t.Nodes[self].Value = leafValue(labels, residuals, weights, idx, p.regression)
		return self
	}

	var left, right []int
	for _, i := range idx {
		if X[i][feat] <= thr {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < p.minLeafSamples || len(right) < p.minLeafSamples {
		t.Nodes[self].Value = leafValue(labels, residuals, weights, idx, p.regression)
		return self
	}

	t.Nodes[self].Feature = feat
	t.Nodes[self].Threshold = thr
	t.Nodes[self].Left = t.grow(X, labels, residuals, weights, left, depth+1, p)
	t.Nodes[self].Right = t.grow(X, labels, residuals, weights, right, depth+1, p)
	return self
}

func pure(labels []int, idx []int, regression bool) bool {
	if regression || len(idx) == 0 {
		return false
	}
	first := labels[idx[0]]
	for _, i := range idx[1:] {
		if labels[i] != first {
			return false
		}
	}
	return true
}

func leafValue(labels []int, residuals []float64, weights []float64, idx []int, regression bool) []float64 {
	if regression {
		// Newton step for the softmax objective: sum(residual) / sum(|r|*(1-|r|))
		// falls back to the weighted mean when the hessian collapses.
		var num, den, wsum float64
		for _, i := range idx {
			w := weights[i]
			r := residuals[i]
			num += w * r
			a := math.Abs(r)
			den += w * a * (1 - a)
			wsum += w
		}
		var v float64
		if den > 1e-12 {
			v = num / den
		} else if wsum > 0 {
			v = num / wsum
		}
		return []float64{v}
	}

	dist := make([]float64, NumClasses)
	var total float64
	for _, i := range idx {
		dist[labels[i]] += weights[i]
		total += weights[i]
	}
	if total > 0 {
		for k := range dist {
			dist[k] /= total
		}
	}
	return dist
}

// bestSplit scans candidate features for the split minimizing weighted gini
// impurity (classification) or weighted squared error (regression).
func bestSplit(X [][]float64, labels []int, residuals []float64, weights []float64, idx []int, p treeParams) (int, float64, bool) {
	dim := len(X[0])
	features := make([]int, dim)
	for j := range features {
		features[j] = j
	}
	if p.featureSample > 0 && p.featureSample < dim {
		p.rng.Shuffle(dim, func(a, b int) { features[a], features[b] = features[b], features[a] })
		features = features[:p.featureSample]
	}

	bestScore := math.Inf(1)
	bestFeat, bestThr := -1, 0.0

	vals := make([]float64, 0, len(idx))
	for _, f := range features {
		vals = vals[:0]
		for _, i := range idx {
			vals = append(vals, X[i][f])
		}
		sort.Float64s(vals)

		// candidate thresholds at midpoints of distinct neighbours, capped
		// to keep growth cheap on large nodes
		step := 1
		if len(vals) > 32 {
			step = len(vals) / 32
		}
		for v := step; v < len(vals); v += step {
			if vals[v] == vals[v-1] {
				continue
			}
			thr := (vals[v] + vals[v-1]) / 2
			score := splitScore(X, labels, residuals, weights, idx, f, thr, p.regression)
			if score < bestScore {
				bestScore = score
				bestFeat = f
				bestThr = thr
			}
		}
	}

	return bestFeat, bestThr, bestFeat >= 0
}

func splitScore(X [][]float64, labels []int, residuals []float64, weights []float64, idx []int, feat int, thr float64, regression bool) float64 {
	if regression {
		var lSum, lW, rSum, rW float64
		for _, i := range idx {
			w := weights[i]
			if X[i][feat] <= thr {
				lSum += w * residuals[i]
				lW += w
			} else {
				rSum += w * residuals[i]
				rW += w
			}
		}
		if lW == 0 || rW == 0 {
			return math.Inf(1)
		}
		lMean, rMean := lSum/lW, rSum/rW
		var sse float64
		for _, i := range idx {
			w := weights[i]
			if X[i][feat] <= thr {
				d := residuals[i] - lMean
				sse += w * d * d
			} else {
				d := residuals[i] - rMean
				sse += w * d * d
			}
		}
		return sse
	}

	var lDist, rDist [NumClasses]float64
	var lW, rW float64
	for _, i := range idx {
		w := weights[i]
		if X[i][feat] <= thr {
			lDist[labels[i]] += w
			lW += w
		} else {
			rDist[labels[i]] += w
			rW += w
		}
	}
	if lW == 0 || rW == 0 {
		return math.Inf(1)
	}
	return lW*gini(lDist, lW) + rW*gini(rDist, rW)
}

func gini(dist [NumClasses]float64, total float64) float64 {
	g := 1.0
	for _, c := range dist {
		p := c / total
		g -= p * p
	}
	return g
}

// importances accumulates a crude split-count importance per feature.
func (t *Tree) importances(acc []float64) {
	for _, n := range t.Nodes {
		if n.Left != -1 {
			acc[n.Feature]++
		}
	}
}
