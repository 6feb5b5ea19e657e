package ml

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/matchpulse/predict-api/internal/apperrors"
	"github.com/matchpulse/predict-api/internal/models"
)

const activeArtifact = "active.json"

// Artifact is the on-disk JSON form of a fitted model. Exactly one of the
// classifier fields is set, selected by Algorithm.
type Artifact struct {
	Version       string               `json:"version"`
	Algorithm     string               `json:"algorithm"`
	SchemaVersion string               `json:"schema_version"`
	Columns       []string             `json:"columns"`
	TrainedAt     time.Time            `json:"trained_at"`
	Metrics       models.ModelMetrics  `json:"metrics"`
	Scaler        *Scaler              `json:"scaler"`
	LogReg        *LogReg              `json:"logreg,omitempty"`
	Forest        *Forest              `json:"forest,omitempty"`
	Boost         *Boost               `json:"boost,omitempty"`
}

func toArtifact(m *Model) (*Artifact, error) {
	a := &Artifact{
		Version:       m.Version,
		Algorithm:     m.Algorithm,
		SchemaVersion: m.SchemaVersion,
		Columns:       m.Columns,
		TrainedAt:     m.TrainedAt,
		Metrics:       m.Metrics,
		Scaler:        m.scaler,
	}
	switch c := m.clf.(type) {
	case *LogReg:
		a.LogReg = c
	case *Forest:
		a.Forest = c
	case *Boost:
		a.Boost = c
	default:
		return nil, fmt.Errorf("unknown classifier type %T", m.clf)
	}
	return a, nil
}

func (a *Artifact) model() (*Model, error) {
	m := &Model{
		Version:       a.Version,
		Algorithm:     a.Algorithm,
		SchemaVersion: a.SchemaVersion,
		Columns:       a.Columns,
		TrainedAt:     a.TrainedAt,
		Metrics:       a.Metrics,
		scaler:        a.Scaler,
	}
	switch {
	case a.LogReg != nil:
		m.clf = a.LogReg
	case a.Forest != nil:
		m.clf = a.Forest
	case a.Boost != nil:
		m.clf = a.Boost
	default:
		return nil, fmt.Errorf("artifact %s carries no classifier", a.Version)
	}
	if m.scaler == nil {
		return nil, fmt.Errorf("artifact %s carries no scaler", a.Version)
	}
	return m, nil
}

// Store keeps model artifacts on disk and serves the active one to the
// prediction path. The active model is cached and reloaded when the file's
// mtime moves, so an out-of-process trainer can promote a new model without
// a server restart.
type Store struct {
	dir           string
	schemaVersion string
	logger        *zap.SugaredLogger

	mu     sync.Mutex
	cached *Model
	mtime  time.Time
}

func NewStore(dir, schemaVersion string, logger *zap.SugaredLogger) *Store {
	return &Store{dir: dir, schemaVersion: schemaVersion, logger: logger}
}

// Save archives the model under its version name without touching the active
// pointer.
func (s *Store) Save(m *Model) error {
	a, err := toArtifact(m)
	if err != nil {
		return err
	}
	return s.writeAtomic(filepath.Join(s.dir, m.Version+".json"), a)
}

// Promote makes the model the active one. The previous active artifact stays
// archived under its own version name.
func (s *Store) Promote(m *Model) error {
	if err := s.Save(m); err != nil {
		return err
	}
	a, err := toArtifact(m)
	if err != nil {
		return err
	}
	if err := s.writeAtomic(filepath.Join(s.dir, activeArtifact), a); err != nil {
		return err
	}

	s.mu.Lock()
	s.cached = m
	if fi, err := os.Stat(filepath.Join(s.dir, activeArtifact)); err == nil {
		s.mtime = fi.ModTime()
	}
	s.mu.Unlock()

	s.logger.Infow("model promoted",
		"version", m.Version,
		"algorithm", m.Algorithm,
		"val_accuracy", m.Metrics.ValAccuracy,
		"val_logloss", m.Metrics.ValLogLoss)
	return nil
}

// Active returns the current model, reloading from disk when the artifact
// changed. Returns ErrModelUnavailable if no model has ever been promoted or
// the artifact was trained against a different feature schema.
func (s *Store) Active() (*Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, activeArtifact)
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no active model in %s: %w", s.dir, apperrors.ErrModelUnavailable)
		}
		return nil, fmt.Errorf("stat active artifact: %w", err)
	}

	if s.cached != nil && fi.ModTime().Equal(s.mtime) {
		return s.cached, nil
	}

	m, err := s.loadFile(path)
	if err != nil {
		return nil, err
	}
	if m.SchemaVersion != s.schemaVersion {
		return nil, fmt.Errorf("active model schema %s does not match %s: %w",
			m.SchemaVersion, s.schemaVersion, apperrors.ErrModelUnavailable)
	}

	s.cached = m
	s.mtime = fi.ModTime()
	s.logger.Infow("model loaded", "version", m.Version, "algorithm", m.Algorithm)
	return m, nil
}

// LoadVersion loads an archived artifact by version name.
func (s *Store) LoadVersion(version string) (*Model, error) {
	return s.loadFile(filepath.Join(s.dir, version+".json"))
}

func (s *Store) loadFile(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", path, err)
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode artifact %s: %w", path, err)
	}
	return a.model()
}

// writeAtomic writes via temp file and rename so readers never see a torn
// artifact.
func (s *Store) writeAtomic(path string, a *Artifact) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, ".artifact-*")
	if err != nil {
		return fmt.Errorf("create temp artifact: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename artifact: %w", err)
	}
	return nil
}
