// Package classify labels operations by plane and mutability. Lookups go
// through the embedded catalog and are memoized; unknown pairs classify as
// unknown rather than failing.
package classify

import (
	"sync"

	"github.com/cloudgate-project/cloudgate/internal/catalog"
	"github.com/cloudgate-project/cloudgate/internal/ir"
)

type key struct {
	service   string
	operation string
}

// Classifier answers plane and action-type questions about operations.
type Classifier struct {
	cat *catalog.Catalog

	mu    sync.Mutex
	cache map[key]ir.Classification
}

func New(cat *catalog.Catalog) *Classifier {
	return &Classifier{
		cat:   cat,
		cache: make(map[key]ir.Classification),
	}
}

// Classify returns the classification for (service, operation). The pair
// uses underlying API names, never CLI aliases.
func (c *Classifier) Classify(service, operation string) ir.Classification {
	k := key{service, operation}

	c.mu.Lock()
	if cls, ok := c.cache[k]; ok {
		c.mu.Unlock()
		return cls
	}
	c.mu.Unlock()

	cls := c.cat.Classify(service, operation)

	c.mu.Lock()
	c.cache[k] = cls
	c.mu.Unlock()
	return cls
}

// IsReadOnly reports whether every action type of the pair is read-only.
// Unknown pairs are never read-only.
func (c *Classifier) IsReadOnly(service, operation string) bool {
	cls := c.Classify(service, operation)
	if len(cls.ActionTypes) == 0 {
		return false
	}
	for _, at := range cls.ActionTypes {
		if at != ir.ActionReadOnly {
			return false
		}
	}
	return true
}

// RequiresConsent reports whether the pair sits on the must-confirm list.
func (c *Classifier) RequiresConsent(service, operation string) bool {
	return c.cat.RequiresConsent(service, operation)
}
