// Package session holds the process-wide mapping from syllabus id to vector
// collection key. Entries live for the lifetime of the process.
package session

import (
	"errors"
	"fmt"

	"github.com/patrickmn/go-cache"
)

var ErrDuplicate = errors.New("syllabus already registered")

// Registry is safe for concurrent use. It never evicts and never persists.
type Registry struct {
	items *cache.Cache
}

func NewRegistry() *Registry {
	// No default expiration and no janitor goroutine.
	return &Registry{items: cache.New(cache.NoExpiration, 0)}
}

// Put registers id -> collection. Registering an id twice fails and keeps the
// first entry, so a collection key never changes once published.
func (r *Registry) Put(id, collection string) error {
	if err := r.items.Add(id, collection, cache.NoExpiration); err != nil {
		return fmt.Errorf("%w: %s", ErrDuplicate, id)
	}
	return nil
}

// Get returns the collection key for id.
func (r *Registry) Get(id string) (string, bool) {
	v, ok := r.items.Get(id)
	if !ok {
		return "", false
	}
	collection, ok := v.(string)
	return collection, ok
}

// Count returns the number of registered syllabi.
func (r *Registry) Count() int {
	return r.items.ItemCount()
}
