package ml

const (
	logRegIters = 600
	logRegLR    = 0.1
	logRegL2    = 1e-3
)

// LogReg is a multinomial logistic regression over standardized features.
// Weights is one coefficient row per outcome class; Bias one intercept per
// class.
type LogReg struct {
	Weights [][]float64 `json:"weights"`
	Bias    []float64   `json:"bias"`
}

// TrainLogReg fits the model with weighted gradient descent on the multi-class
// log loss plus an L2 penalty. X must already be standardized.
func TrainLogReg(d *Dataset, X [][]float64) *LogReg {
	dim := len(X[0])
	m := &LogReg{
		Weights: make([][]float64, NumClasses),
		Bias:    make([]float64, NumClasses),
	}
	for k := range m.Weights {
		m.Weights[k] = make([]float64, dim)
	}

	var totalWeight float64
	for i := range X {
		totalWeight += d.Weight(i)
	}

	gradW := make([][]float64, NumClasses)
	gradB := make([]float64, NumClasses)
	for k := range gradW {
		gradW[k] = make([]float64, dim)
	}

	for iter := 0; iter < logRegIters; iter++ {
		for k := range gradW {
			for j := range gradW[k] {
				gradW[k][j] = 0
			}
			gradB[k] = 0
		}

		for i, x := range X {
			p := m.scores(x)
			probs := softmax(p)
			w := d.Weight(i)
			for k := 0; k < NumClasses; k++ {
				// gradient of weighted cross-entropy: w * (p_k - 1{y=k}) * x
				err := probs[k]
				if d.Y[i] == k {
					err -= 1
				}
				err *= w
				for j, xj := range x {
					gradW[k][j] += err * xj
				}
				gradB[k] += err
			}
		}

		for k := 0; k < NumClasses; k++ {
			for j := 0; j < dim; j++ {
				g := gradW[k][j]/totalWeight + logRegL2*m.Weights[k][j]
				m.Weights[k][j] -= logRegLR * g
			}
			m.Bias[k] -= logRegLR * gradB[k] / totalWeight
		}
	}

	return m
}

func (m *LogReg) scores(x []float64) []float64 {
	out := make([]float64, NumClasses)
	for k := 0; k < NumClasses; k++ {
		s := m.Bias[k]
		for j, xj := range x {
			s += m.Weights[k][j] * xj
		}
		out[k] = s
	}
	return out
}

// PredictProba returns class probabilities ordered [away, draw, home] for a
// standardized input row.
func (m *LogReg) PredictProba(x []float64) []float64 {
	return softmax(m.scores(x))
}

// Contributions scores each feature's signed pull toward the predicted class:
// the coefficient of the winning class times the standardized value.
func (m *LogReg) Contributions(x []float64) []float64 {
	probs := m.PredictProba(x)
	k := argmax(probs)
	out := make([]float64, len(x))
	for j, xj := range x {
		out[j] = m.Weights[k][j] * xj
	}
	return out
}

var _ Classifier = (*LogReg)(nil)
