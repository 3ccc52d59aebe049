package catalog

import "sync"

// Logger defines the logging interface used by the catalog.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Store publishes the current catalog snapshot.
//
// Writers replace the whole snapshot; there is no incremental mutation, so
// readers holding an older snapshot simply keep a consistent stale view
// until they fetch the current one.
//
// All methods are thread-safe.
type Store struct {
	mu        sync.RWMutex
	snap      *Snapshot
	logger    Logger
	onReplace func(*Snapshot)
}

// NewStore creates a store holding an empty version-zero snapshot, so
// callers never need a nil check before the first refresh.
func NewStore() *Store {
	snap, _ := newSnapshot(0, nil)
	return &Store{
		snap:   snap,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// SetOnReplace sets a callback invoked after every snapshot swap with the
// new snapshot. Set during wiring, before the first refresh.
func (s *Store) SetOnReplace(callback func(*Snapshot)) {
	s.onReplace = callback
}

// Replace builds a new snapshot from the entity list and swaps it in as the
// current one. The previous snapshot stays valid for readers still holding
// it. Returns the new snapshot.
func (s *Store) Replace(entities []Entity) *Snapshot {
	s.mu.Lock()
	version := s.snap.version + 1
	snap, dropped := newSnapshot(version, entities)
	s.snap = snap
	s.mu.Unlock()

	if dropped > 0 {
		s.logger.Warn("catalog entities dropped during refresh",
			"dropped", dropped,
			"version", snap.version,
		)
	}
	s.logger.Info("catalog snapshot replaced",
		"entities", snap.Len(),
		"version", snap.version,
	)
	if s.onReplace != nil {
		s.onReplace(snap)
	}
	return snap
}

// Current returns the current snapshot. The result is immutable and safe to
// use for the remainder of a request even if a refresh happens concurrently.
func (s *Store) Current() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}
