package ml

import "math/rand"

const (
	boostRounds    = 80
	boostMaxDepth  = 3
	boostMinLeaf   = 5
	boostShrinkage = 0.1
	boostSubsample = 0.8
)

// Boost is a gradient boosted ensemble for the softmax objective: each round
// fits one shallow regression tree per class to the probability residuals.
// Rounds[r][k] is the round-r tree for class k.
type Boost struct {
	Rounds    [][]Tree  `json:"rounds"`
	Shrinkage float64   `json:"shrinkage"`
	Features  []float64 `json:"features"`
}

// TrainBoost fits the boosted ensemble. Sample weights scale both the
// gradient and the subsample draw.
func TrainBoost(d *Dataset, X [][]float64, seed int64) *Boost {
	rng := rand.New(rand.NewSource(seed))
	n := len(X)
	dim := len(X[0])

	weights := make([]float64, n)
	for i := range weights {
		weights[i] = d.Weight(i)
	}

	b := &Boost{Shrinkage: boostShrinkage, Features: make([]float64, dim)}

	// raw additive scores per sample and class
	scores := make([][]float64, n)
	for i := range scores {
		scores[i] = make([]float64, NumClasses)
	}

	residuals := make([]float64, n)
	subSize := int(boostSubsample * float64(n))
	if subSize < 1 {
		subSize = n
	}

	for r := 0; r < boostRounds; r++ {
		// stochastic subsample shared by the round's class trees
		perm := rng.Perm(n)[:subSize]

		round := make([]Tree, NumClasses)
		for k := 0; k < NumClasses; k++ {
			for i := 0; i < n; i++ {
				probs := softmax(scores[i])
				y := 0.0
				if d.Y[i] == k {
					y = 1.0
				}
				residuals[i] = y - probs[k]
			}

			tree := growTree(X, nil, residuals, weights, perm, treeParams{
				maxDepth:       boostMaxDepth,
				minLeafSamples: boostMinLeaf,
				regression:     true,
				rng:            rng,
			})
			tree.importances(b.Features)
			round[k] = *tree

			for i := 0; i < n; i++ {
				scores[i][k] += boostShrinkage * tree.leaf(X[i])[0]
			}
		}
		b.Rounds = append(b.Rounds, round)
	}

	normalize(b.Features)
	return b
}

func (b *Boost) rawScores(x []float64) []float64 {
	scores := make([]float64, NumClasses)
	for _, round := range b.Rounds {
		for k := range round {
			scores[k] += b.Shrinkage * round[k].leaf(x)[0]
		}
	}
	return scores
}

// PredictProba runs the additive ensemble and softmaxes the raw scores.
func (b *Boost) PredictProba(x []float64) []float64 {
	return softmax(b.rawScores(x))
}

// Contributions signs the split-count importances by the standardized value,
// matching the forest's explanation scheme.
func (b *Boost) Contributions(x []float64) []float64 {
	out := make([]float64, len(x))
	for j, xj := range x {
		out[j] = b.Features[j] * xj
	}
	return out
}

var _ Classifier = (*Boost)(nil)
