// Package store owns every loaded IR Module for the duration of a run.
// Other components hold only a weak reference (ir.ModuleHandle) and must
// go through the Store to reach the underlying graph; this mirrors the
// teacher's internal/history.Store pattern of a single owner guarding a
// map behind a mutex (see internal/history/store.go in the retrieved
// sivchari/gomu sources), generalised from file paths to module handles.
package store

import (
	"fmt"
	"sync"

	"github.com/sivchari/mutir/internal/ir"
)

// ModuleLoader is the sole I/O boundary for IR: the core never opens files
// itself. It is injectable so tests can hand the Store in-memory IR
// without touching the filesystem (spec.md §9, "Pluggable Module Loader").
type ModuleLoader interface {
	LoadModuleAtPath(path string) (*ir.Module, error)
}

// LoadError wraps a failure to parse a path as IR.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Store is append-only within a run: Load never replaces or removes an
// already-loaded Module.
type Store struct {
	mu      sync.RWMutex
	loader  ModuleLoader
	modules []*ir.Module
}

// New creates a Store backed by the given ModuleLoader.
func New(loader ModuleLoader) *Store {
	return &Store{loader: loader}
}

// Load parses the bitcode at path via the configured ModuleLoader and
// appends it to the Store, returning its handle.
func (s *Store) Load(path string) (ir.ModuleHandle, error) {
	mod, err := s.loader.LoadModuleAtPath(path)
	if err != nil {
		return 0, &LoadError{Path: path, Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	handle := ir.ModuleHandle(len(s.modules))
	mod.Handle = handle

	for _, fn := range mod.Functions {
		fn.Module = handle
	}

	s.modules = append(s.modules, mod)

	return handle, nil
}

// Get returns the Module for handle. Concurrent readers are safe; callers
// that mutate IR in place must serialize with each other themselves (the
// Pipeline Driver guarantees this for the apply/revert protocol).
func (s *Store) Get(handle ir.ModuleHandle) (*ir.Module, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if int(handle) < 0 || int(handle) >= len(s.modules) {
		return nil, fmt.Errorf("store: invalid module handle %d", handle)
	}

	return s.modules[handle], nil
}

// IterAll returns every loaded Module's handle, in load order.
func (s *Store) IterAll() []ir.ModuleHandle {
	s.mu.RLock()
	defer s.mu.RUnlock()

	handles := make([]ir.ModuleHandle, len(s.modules))
	for i := range s.modules {
		handles[i] = ir.ModuleHandle(i)
	}

	return handles
}

// Clone produces an independent Store sharing the same loader but holding
// deep copies of every Module, for the Pipeline Driver's concurrent mode
// (spec.md §5: "per-worker copies of the Module Store").
func (s *Store) Clone() *Store {
	s.mu.RLock()
	defer s.mu.RUnlock()

	clone := &Store{loader: s.loader, modules: make([]*ir.Module, len(s.modules))}
	for i, mod := range s.modules {
		clone.modules[i] = mod.Clone()
	}

	return clone
}
