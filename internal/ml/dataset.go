// Package ml implements the three-way outcome classifiers and the artifact
// store behind the prediction endpoints. Labels follow the fixed convention
// 0 = away win, 1 = draw, 2 = home win, and every probability output is
// ordered the same way.
package ml

import "math"

// NumClasses is the size of the outcome space.
const NumClasses = 3

// Dataset is an assembled training set. Weights default to 1 when nil;
// the mistake-learning loop raises them for matches the previous model got
// wrong.
type Dataset struct {
	X        [][]float64
	Y        []int
	Weights  []float64
	MatchIDs []int64
}

// Len returns the number of samples.
func (d *Dataset) Len() int { return len(d.X) }

// Weight returns the sample weight for index i, defaulting to 1.
func (d *Dataset) Weight(i int) float64 {
	if d.Weights == nil {
		return 1
	}
	return d.Weights[i]
}

// Append adds one sample.
func (d *Dataset) Append(matchID int64, x []float64, y int, w float64) {
	d.MatchIDs = append(d.MatchIDs, matchID)
	d.X = append(d.X, x)
	d.Y = append(d.Y, y)
	if d.Weights == nil && w != 1 {
		d.Weights = make([]float64, len(d.X)-1)
		for i := range d.Weights {
			d.Weights[i] = 1
		}
	}
	if d.Weights != nil {
		d.Weights = append(d.Weights, w)
	}
}

// softmax converts raw scores to a probability distribution in place-safe
// fashion with the usual max-shift for stability.
func softmax(scores []float64) []float64 {
	max := scores[0]
	for _, s := range scores[1:] {
		if s > max {
			max = s
		}
	}
	out := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		out[i] = math.Exp(s - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// clampProb keeps probabilities off the 0/1 boundary for log loss.
func clampProb(p float64) float64 {
	const eps = 1e-15
	if p < eps {
		return eps
	}
	if p > 1-eps {
		return 1 - eps
	}
	return p
}

// argmax returns the index of the largest element.
func argmax(v []float64) int {
	best := 0
	for i := range v {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
