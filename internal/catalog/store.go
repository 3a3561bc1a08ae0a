package catalog

import (
	"errors"
	"sync/atomic"
)

// ErrNotReady is returned for queries made before the catalog has been
// loaded into the store.
var ErrNotReady = errors.New("catalog not ready")

// Store is the shared handle to the process-wide catalog. The catalog itself
// is immutable; the store exists so consumers constructed before the load
// completes get a defined NotReady failure instead of a nil dereference.
type Store struct {
	catalog atomic.Pointer[Catalog]
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{}
}

// Get returns the catalog, or ErrNotReady if none has been set.
func (s *Store) Get() (*Catalog, error) {
	c := s.catalog.Load()
	if c == nil {
		return nil, ErrNotReady
	}
	return c, nil
}

// Set publishes the catalog. Called once at startup.
func (s *Store) Set(c *Catalog) {
	s.catalog.Store(c)
}

// Ready reports whether the catalog has been published.
func (s *Store) Ready() bool {
	return s.catalog.Load() != nil
}
