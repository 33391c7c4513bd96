package catalog

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Domain errors
var (
	// ErrNotFound indicates no entry matches the given label or service ID
	ErrNotFound = errors.New("catalog entry not found")
	// ErrDuplicateService indicates two entries share a service ID
	ErrDuplicateService = errors.New("duplicate service ID")
	// ErrEmptyCatalog indicates the catalog has no entries
	ErrEmptyCatalog = errors.New("catalog has no entries")
)

// Entry is one purchasable product: a user-facing label, the marketplace
// service ID it maps to, and the display price per unit batch.
type Entry struct {
	Label     string
	ServiceID string
	UnitPrice decimal.Decimal
}

// Catalog is the static product listing. It is built once at startup and
// read-only afterwards, so lookups need no synchronization.
type Catalog struct {
	entries []Entry
	byLabel map[string]int
	byID    map[string]int
}

// New builds a catalog from the given entries, preserving their order.
// Service IDs must be unique across entries.
func New(entries []Entry) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyCatalog
	}

	c := &Catalog{
		entries: make([]Entry, len(entries)),
		byLabel: make(map[string]int, len(entries)),
		byID:    make(map[string]int, len(entries)),
	}
	copy(c.entries, entries)

	for i, e := range c.entries {
		if e.ServiceID == "" {
			return nil, fmt.Errorf("entry %q: empty service ID", e.Label)
		}
		if _, ok := c.byID[e.ServiceID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateService, e.ServiceID)
		}
		c.byID[e.ServiceID] = i
		c.byLabel[e.Label] = i
	}

	return c, nil
}

// List returns all entries in their original order. The returned slice is a
// copy; callers may not mutate the catalog through it.
func (c *Catalog) List() []Entry {
	out := make([]Entry, len(c.entries))
	copy(out, c.entries)
	return out
}

// Resolve looks up an entry by label or by service ID.
func (c *Catalog) Resolve(labelOrID string) (Entry, error) {
	if i, ok := c.byID[labelOrID]; ok {
		return c.entries[i], nil
	}
	if i, ok := c.byLabel[labelOrID]; ok {
		return c.entries[i], nil
	}
	return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, labelOrID)
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}
