package ml

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ModelStore owns the process-wide model artifact. The artifact is loaded on
// first use and never replaced afterwards; a failed load is not remembered, so
// the next caller tries again.
type ModelStore struct {
	path   string
	logger *zap.Logger
	load   func(string) (*Artifact, error)

	mu       sync.Mutex
	artifact atomic.Pointer[Artifact]
	onLoad   func(*Artifact)
}

func NewModelStore(path string, logger *zap.Logger) *ModelStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ModelStore{
		path:   path,
		logger: logger.Named("model"),
		load:   LoadModel,
	}
}

// OnLoad registers a callback invoked once, after the artifact loads.
func (s *ModelStore) OnLoad(fn func(*Artifact)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onLoad = fn
}

func (s *ModelStore) Path() string {
	return s.path
}

// Artifact returns the loaded model, loading it if needed. Load failures wrap
// ErrModelUnavailable.
func (s *ModelStore) Artifact() (Regressor, error) {
	a, err := s.get()
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Loaded returns the artifact without triggering a load.
func (s *ModelStore) Loaded() (*Artifact, bool) {
	a := s.artifact.Load()
	return a, a != nil
}

func (s *ModelStore) get() (*Artifact, error) {
	if a := s.artifact.Load(); a != nil {
		return a, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if a := s.artifact.Load(); a != nil {
		return a, nil
	}

	a, err := s.load(s.path)
	if err != nil {
		s.logger.Warn("model artifact unavailable", zap.String("path", s.path), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}
	s.artifact.Store(a)
	s.logger.Info("model artifact loaded",
		zap.String("path", s.path),
		zap.String("model_type", a.Info.ModelType),
		zap.Strings("feature_names", a.Info.FeatureNames))
	if s.onLoad != nil {
		s.onLoad(a)
	}
	return a, nil
}

// Watch follows the artifact file until ctx is done. When the file appears
// while no artifact is loaded it is loaded eagerly; changes to an already
// loaded artifact are only reported, since the loaded model stays in use for
// the rest of the process.
func (s *ModelStore) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	target := filepath.Clean(s.path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			s.handleEvent(event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("model watcher error", zap.Error(err))
		}
	}
}

func (s *ModelStore) handleEvent(event fsnotify.Event) {
	if _, loaded := s.Loaded(); loaded {
		if event.Has(fsnotify.Write) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
			s.logger.Warn("model artifact changed on disk; restart to use the new file",
				zap.String("path", s.path), zap.String("op", event.Op.String()))
		}
		return
	}
	// a partially written file fails to decode; the next Write retries
	if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
		if _, err := s.get(); err != nil {
			s.logger.Debug("model artifact not ready yet", zap.String("op", event.Op.String()))
		}
	}
}
