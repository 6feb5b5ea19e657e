package ml

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/matchpulse/predict-api/internal/apperrors"
	"github.com/matchpulse/predict-api/internal/models"
)

// Supported training algorithms.
const (
	AlgorithmBoost  = "xgb"
	AlgorithmForest = "rf"
	AlgorithmLogReg = "lr"
)

// Classifier is the common inference surface of the three model families.
// Inputs are standardized feature vectors; outputs are probability vectors
// ordered [away, draw, home].
type Classifier interface {
	PredictProba(x []float64) []float64
	Contributions(x []float64) []float64
}

// TrainOptions tunes a training run.
type TrainOptions struct {
	Algorithm  string
	MinSamples int
	Seed       int64
}

// Model bundles a fitted classifier with the scaler and metadata it needs at
// inference time. It is the in-memory form of one artifact.
type Model struct {
	Version       string
	Algorithm     string
	SchemaVersion string
	Columns       []string
	TrainedAt     time.Time
	Metrics       models.ModelMetrics

	scaler *Scaler
	clf    Classifier
}

// Predict scales the raw feature vector and returns outcome probabilities.
func (m *Model) Predict(x []float64) models.Probabilities {
	p := m.clf.PredictProba(m.scaler.Transform(x))
	return models.Probabilities{Away: p[models.OutcomeAway], Draw: p[models.OutcomeDraw], Home: p[models.OutcomeHome]}
}

// Contributions returns the per-feature pull toward the predicted class,
// aligned with Columns.
func (m *Model) Contributions(x []float64) []float64 {
	return m.clf.Contributions(m.scaler.Transform(x))
}

// Train fits a model on train and evaluates on val. It refuses to train on
// fewer than opts.MinSamples rows.
func Train(train, val *Dataset, schemaVersion string, columns []string, opts TrainOptions) (*Model, error) {
	if train.Len() < opts.MinSamples {
		return nil, apperrors.DataInsufficientf(
			"training requires at least %d samples, have %d", opts.MinSamples, train.Len())
	}

	scaler := FitScaler(train.X)
	Xt := scaler.TransformAll(train.X)

	var clf Classifier
	switch opts.Algorithm {
	case AlgorithmBoost:
		clf = TrainBoost(train, Xt, opts.Seed)
	case AlgorithmForest:
		clf = TrainForest(train, Xt, opts.Seed)
	case AlgorithmLogReg:
		clf = TrainLogReg(train, Xt)
	default:
		return nil, apperrors.Validationf("unknown algorithm %q", opts.Algorithm)
	}

	m := &Model{
		Version:       fmt.Sprintf("%s-%s-%s", time.Now().UTC().Format("20060102T150405"), opts.Algorithm, uuid.NewString()[:8]),
		Algorithm:     opts.Algorithm,
		SchemaVersion: schemaVersion,
		Columns:       columns,
		TrainedAt:     time.Now().UTC(),
		scaler:        scaler,
		clf:           clf,
	}

	m.Metrics.TrainAccuracy, m.Metrics.TrainLogLoss, m.Metrics.TrainBrier = m.evaluate(train)
	if val != nil && val.Len() > 0 {
		m.Metrics.ValAccuracy, m.Metrics.ValLogLoss, m.Metrics.ValBrier = m.evaluate(val)
	}

	return m, nil
}

func (m *Model) evaluate(d *Dataset) (accuracy, logLoss, brier float64) {
	var correct int
	for i, x := range d.X {
		p := m.clf.PredictProba(m.scaler.Transform(x))
		if argmax(p) == d.Y[i] {
			correct++
		}
		logLoss += -math.Log(clampProb(p[d.Y[i]]))
		for k, pk := range p {
			y := 0.0
			if d.Y[i] == k {
				y = 1.0
			}
			brier += (pk - y) * (pk - y)
		}
	}
	n := float64(d.Len())
	return float64(correct) / n, logLoss / n, brier / n
}

// SampleLogLoss is the per-sample cross-entropy of a stored probability
// vector against the actual outcome. The mistake-learning loop turns it into
// a training weight.
func SampleLogLoss(probs models.Probabilities, outcome int) float64 {
	v := probs.Vector()
	if outcome < 0 || outcome >= len(v) {
		return 0
	}
	return -math.Log(clampProb(v[outcome]))
}

// ErrorWeight maps a per-sample log loss to a training weight, capped so a
// single badly wrong match cannot dominate the objective.
func ErrorWeight(logLoss, cap float64) float64 {
	if logLoss > cap {
		logLoss = cap
	}
	return 1 + logLoss
}

// ValidateVector checks a raw feature vector against the model's schema.
func (m *Model) ValidateVector(x []float64) error {
	if len(x) != len(m.Columns) {
		return fmt.Errorf("feature vector has %d values, model expects %d", len(x), len(m.Columns))
	}
	return nil
}
