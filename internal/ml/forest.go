package ml

import (
	"math"
	"math/rand"
)

const (
	forestTrees    = 120
	forestMaxDepth = 8
	forestMinLeaf  = 3
)

// Forest is a random forest of classification trees. Each tree votes with
// its leaf class distribution and the forest averages the votes.
type Forest struct {
	Trees    []Tree    `json:"trees"`
	Features []float64 `json:"features"`
}

// TrainForest fits a random forest with bootstrap sampling and sqrt(d)
// feature subsampling. Sample weights bias both the bootstrap draw and the
// split impurity, so upweighted mistakes are seen by more trees.
func TrainForest(d *Dataset, X [][]float64, seed int64) *Forest {
	rng := rand.New(rand.NewSource(seed))
	n := len(X)
	dim := len(X[0])

	weights := make([]float64, n)
	var cum []float64
	var total float64
	for i := 0; i < n; i++ {
		weights[i] = d.Weight(i)
		total += weights[i]
		cum = append(cum, total)
	}

	f := &Forest{Features: make([]float64, dim)}
	featSample := int(math.Sqrt(float64(dim)))
	if featSample < 1 {
		featSample = 1
	}

	for t := 0; t < forestTrees; t++ {
		// weighted bootstrap
		idx := make([]int, n)
		for i := range idx {
			idx[i] = sampleCum(cum, rng.Float64()*total)
		}

		tree := growTree(X, d.Y, nil, weights, idx, treeParams{
			maxDepth:       forestMaxDepth,
			minLeafSamples: forestMinLeaf,
			featureSample:  featSample,
			rng:            rng,
		})
		tree.importances(f.Features)
		f.Trees = append(f.Trees, *tree)
	}

	normalize(f.Features)
	return f
}

func sampleCum(cum []float64, target float64) int {
	lo, hi := 0, len(cum)-1
	for lo < hi {
		mid := (lo + hi) / 2
		if cum[mid] < target {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

func normalize(v []float64) {
	var sum float64
	for _, x := range v {
		sum += x
	}
	if sum == 0 {
		return
	}
	for i := range v {
		v[i] /= sum
	}
}

// PredictProba averages the leaf distributions of every tree.
func (f *Forest) PredictProba(x []float64) []float64 {
	out := make([]float64, NumClasses)
	for i := range f.Trees {
		leaf := f.Trees[i].leaf(x)
		for k := range out {
			out[k] += leaf[k]
		}
	}
	n := float64(len(f.Trees))
	for k := range out {
		out[k] /= n
	}
	return out
}

// Contributions signs the forest's split-count importances by the direction
// of the standardized feature value. Coarser than a model-agnostic
// explainer, but stable and cheap.
func (f *Forest) Contributions(x []float64) []float64 {
	out := make([]float64, len(x))
	for j, xj := range x {
		out[j] = f.Features[j] * xj
	}
	return out
}

var _ Classifier = (*Forest)(nil)
