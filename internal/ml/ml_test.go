package ml

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"go.uber.org/zap"

	"github.com/matchpulse/predict-api/internal/apperrors"
	"github.com/matchpulse/predict-api/internal/models"
)

// syntheticDataset builds a separable three-class problem: class 0 clusters
// around (-2,-2), class 1 around (0,0), class 2 around (2,2), plus a noise
// column.
func syntheticDataset(n int, seed int64) *Dataset {
	rng := rand.New(rand.NewSource(seed))
	d := &Dataset{}
	centers := [][]float64{{-2, -2}, {0, 0}, {2, 2}}
	for i := 0; i < n; i++ {
		y := i % NumClasses
		x := []float64{
			centers[y][0] + rng.NormFloat64()*0.4,
			centers[y][1] + rng.NormFloat64()*0.4,
			rng.NormFloat64(),
		}
		d.Append(int64(i+1), x, y, 1)
	}
	return d
}

func columns(n int) []string {
	out := make([]string, n)
	names := []string{"alpha", "beta", "noise"}
	copy(out, names)
	return out
}

func assertValidProbs(t *testing.T, p []float64) {
	t.Helper()
	if len(p) != NumClasses {
		t.Fatalf("probability vector length = %d, want %d", len(p), NumClasses)
	}
	var sum float64
	for _, v := range p {
		if v < 0 || v > 1 {
			t.Fatalf("probability %v out of range", v)
		}
		sum += v
	}
	if math.Abs(sum-1) > 1e-6 {
		t.Fatalf("probabilities sum to %v, want 1 within 1e-6", sum)
	}
}

func TestScaler(t *testing.T) {
	X := [][]float64{
		{1, 10, 5},
		{3, 20, 5},
		{5, 30, 5},
	}
	s := FitScaler(X)

	if !almost(s.Mean[0], 3) || !almost(s.Mean[1], 20) {
		t.Errorf("means = %v, want [3 20 5]", s.Mean)
	}
	// constant column must pass through rather than divide by zero
	out := s.Transform([]float64{3, 20, 5})
	if !almost(out[0], 0) || !almost(out[1], 0) || !almost(out[2], 0) {
		t.Errorf("transform of the mean row = %v, want zeros", out)
	}
	if math.IsNaN(s.Transform([]float64{9, 9, 9})[2]) {
		t.Error("constant column produced NaN")
	}
}

func almost(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestTrainAlgorithms(t *testing.T) {
	train := syntheticDataset(240, 1)
	val := syntheticDataset(60, 2)

	for _, algo := range []string{AlgorithmLogReg, AlgorithmForest, AlgorithmBoost} {
		t.Run(algo, func(t *testing.T) {
			m, err := Train(train, val, "v2", columns(3), TrainOptions{
				Algorithm:  algo,
				MinSamples: 50,
				Seed:       42,
			})
			if err != nil {
				t.Fatalf("Train: %v", err)
			}

			if m.Metrics.ValAccuracy < 0.8 {
				t.Errorf("val accuracy = %v, want >= 0.8 on separable data", m.Metrics.ValAccuracy)
			}
			if m.Metrics.ValLogLoss <= 0 {
				t.Errorf("val log loss = %v, want positive", m.Metrics.ValLogLoss)
			}

			probs := m.Predict([]float64{2, 2, 0})
			v := probs.Vector()
			assertValidProbs(t, v[:])
			if best, _ := probs.ArgMax(); best != models.OutcomeHome {
				t.Errorf("argmax for the class-2 cluster = %d, want %d", best, models.OutcomeHome)
			}

			contrib := m.Contributions([]float64{2, 2, 0})
			if len(contrib) != 3 {
				t.Errorf("contributions length = %d, want 3", len(contrib))
			}
		})
	}
}

func TestTrainInsufficientData(t *testing.T) {
	small := syntheticDataset(10, 3)
	_, err := Train(small, nil, "v2", columns(3), TrainOptions{
		Algorithm:  AlgorithmLogReg,
		MinSamples: 50,
	})
	if !errors.Is(err, apperrors.ErrDataInsufficient) {
		t.Fatalf("err = %v, want ErrDataInsufficient", err)
	}
}

func TestTrainUnknownAlgorithm(t *testing.T) {
	d := syntheticDataset(100, 4)
	_, err := Train(d, nil, "v2", columns(3), TrainOptions{Algorithm: "svm", MinSamples: 50})
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestErrorWeight(t *testing.T) {
	cases := []struct {
		logLoss, cap, want float64
	}{
		{0, 2, 1},
		{0.5, 2, 1.5},
		{2, 2, 3},
		{5, 2, 3},    // capped
		{1.2, 1, 2},  // cap below loss
	}
	for _, c := range cases {
		if got := ErrorWeight(c.logLoss, c.cap); !almost(got, c.want) {
			t.Errorf("ErrorWeight(%v, %v) = %v, want %v", c.logLoss, c.cap, got, c.want)
		}
	}
}

func TestSampleLogLoss(t *testing.T) {
	p := models.Probabilities{Away: 0.2, Draw: 0.3, Home: 0.5}
	got := SampleLogLoss(p, models.OutcomeHome)
	if !almost(got, -math.Log(0.5)) {
		t.Errorf("SampleLogLoss = %v, want %v", got, -math.Log(0.5))
	}
	// a certain wrong prediction stays finite through the clamp
	certain := models.Probabilities{Away: 1, Draw: 0, Home: 0}
	if v := SampleLogLoss(certain, models.OutcomeHome); math.IsInf(v, 1) {
		t.Error("log loss of a zero probability must be clamped, got +Inf")
	}
}

func TestWeightedTrainingShiftsModel(t *testing.T) {
	// duplicate point sets with conflicting labels; the heavier label wins
	d := &Dataset{}
	for i := 0; i < 40; i++ {
		d.Append(int64(i), []float64{1, 1, 0}, 0, 1)
	}
	for i := 0; i < 40; i++ {
		d.Append(int64(100+i), []float64{1, 1, 0}, 2, 5)
	}

	scaler := FitScaler(d.X)
	clf := TrainLogReg(d, scaler.TransformAll(d.X))
	p := clf.PredictProba(scaler.Transform([]float64{1, 1, 0}))
	if p[2] <= p[0] {
		t.Errorf("upweighted class 2 prob %v not above class 0 prob %v", p[2], p[0])
	}
}

func TestStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	logger := zap.NewNop().Sugar()
	store := NewStore(dir, "v2", logger)

	if _, err := store.Active(); !errors.Is(err, apperrors.ErrModelUnavailable) {
		t.Fatalf("Active on empty store: err = %v, want ErrModelUnavailable", err)
	}

	train := syntheticDataset(120, 7)
	m, err := Train(train, nil, "v2", columns(3), TrainOptions{
		Algorithm:  AlgorithmLogReg,
		MinSamples: 50,
	})
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	if err := store.Promote(m); err != nil {
		t.Fatalf("Promote: %v", err)
	}

	loaded, err := store.Active()
	if err != nil {
		t.Fatalf("Active: %v", err)
	}
	if loaded.Version != m.Version {
		t.Errorf("loaded version = %s, want %s", loaded.Version, m.Version)
	}

	x := []float64{0, 0, 0}
	want := m.Predict(x)
	got := loaded.Predict(x)
	if !almost(got.Home, want.Home) || !almost(got.Draw, want.Draw) || !almost(got.Away, want.Away) {
		t.Errorf("round-tripped prediction %+v differs from original %+v", got, want)
	}

	// archived copy loads by version
	archived, err := store.LoadVersion(m.Version)
	if err != nil {
		t.Fatalf("LoadVersion: %v", err)
	}
	if archived.Algorithm != AlgorithmLogReg {
		t.Errorf("archived algorithm = %s, want %s", archived.Algorithm, AlgorithmLogReg)
	}
}

func TestStoreRejectsSchemaMismatch(t *testing.T) {
	dir := t.TempDir()
	logger := zap.NewNop().Sugar()

	train := syntheticDataset(120, 8)
	m, err := Train(train, nil, "v1", columns(3), TrainOptions{
		Algorithm:  AlgorithmLogReg,
		MinSamples: 50,
	})
	if err != nil {
		t.Fatalf("Train: %v", err)
	}

	writer := NewStore(dir, "v1", logger)
	if err := writer.Promote(m); err != nil {
		t.Fatalf("Promote: %v", err)
	}

	reader := NewStore(dir, "v2", logger)
	if _, err := reader.Active(); !errors.Is(err, apperrors.ErrModelUnavailable) {
		t.Fatalf("err = %v, want ErrModelUnavailable on schema mismatch", err)
	}
}
