package records

import (
	"sync"
	"time"

	"github.com/MrSnakeDoc/banners/internal/domain"
)

// Collection is the ordered, authoritative in-memory record list. Ids are
// unique; new records prepend, existing ids are replaced in place.
type Collection struct {
	mu         sync.RWMutex
	records    []domain.Record
	pos        map[string]int // ID -> index in records
	lastReload time.Time
}

// NewCollection creates an empty collection
func NewCollection() *Collection {
	return &Collection{pos: make(map[string]int)}
}

// Replace swaps the whole list. Later duplicates of an id are dropped.
func (c *Collection) Replace(records []domain.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.records = make([]domain.Record, 0, len(records))
	c.pos = make(map[string]int, len(records))
	for _, r := range records {
		if _, dup := c.pos[r.ID()]; dup {
			continue
		}
		c.pos[r.ID()] = len(c.records)
		c.records = append(c.records, r)
	}
	c.lastReload = time.Now()
}

// Upsert replaces the record with the same id in place, or prepends it.
// It reports whether the record was new.
func (c *Collection) Upsert(r domain.Record) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if i, ok := c.pos[r.ID()]; ok {
		c.records[i] = r
		return false
	}

	c.records = append([]domain.Record{r}, c.records...)
	c.reindex()
	return true
}

// Delete removes a record by id
func (c *Collection) Delete(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, ok := c.pos[id]
	if !ok {
		return false
	}
	c.records = append(c.records[:i:i], c.records[i+1:]...)
	c.reindex()
	return true
}

// Get retrieves a record by id
func (c *Collection) Get(id string) (domain.Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	i, ok := c.pos[id]
	if !ok {
		return domain.Record{}, false
	}
	return c.records[i], true
}

// All returns a snapshot of the list in display order
func (c *Collection) All() []domain.Record {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.Record, len(c.records))
	copy(out, c.records)
	return out
}

// Count returns the number of records
func (c *Collection) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// GetLastReload returns when the list was last replaced
func (c *Collection) GetLastReload() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastReload
}

func (c *Collection) reindex() {
	c.pos = make(map[string]int, len(c.records))
	for i, r := range c.records {
		c.pos[r.ID()] = i
	}
}
