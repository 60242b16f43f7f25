// Package scoring owns the criterion catalog and validates submitted scores against it.
package scoring

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/livescore/internal/domain/model"
)

// Validator checks a score map before it is stored.
type Validator interface {
	Validate(scores map[string]int) error
}

// Catalog holds the organizer-owned criteria, indexed by id and by name.
type Catalog struct {
	mu     sync.RWMutex
	byID   map[string]model.Criterion
	byName map[string]string // name -> id
	newID  func() string
}

// NewCatalog creates an empty catalog.
func NewCatalog(opts ...Option) *Catalog {
	c := &Catalog{
		byID:   make(map[string]model.Criterion),
		byName: make(map[string]string),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Add creates a criterion with a fresh id.
func (c *Catalog) Add(name string, maxScore int) (model.Criterion, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Criterion{}, fmt.Errorf("%w: empty name", ErrInvalidDefinition)
	}
	if maxScore <= 0 {
		return model.Criterion{}, fmt.Errorf("%w: max_score %d for %q", ErrInvalidDefinition, maxScore, name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.byName[name]; exists {
		return model.Criterion{}, fmt.Errorf("%w: %q", ErrDuplicateCriterion, name)
	}
	cr := model.Criterion{ID: c.newID(), Name: name, MaxScore: maxScore}
	c.byID[cr.ID] = cr
	c.byName[cr.Name] = cr.ID
	return cr, nil
}

// Put inserts or replaces a criterion as-is. Used when hydrating from storage.
func (c *Catalog) Put(cr model.Criterion) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.byID[cr.ID]; ok {
		delete(c.byName, old.Name)
	}
	c.byID[cr.ID] = cr
	c.byName[cr.Name] = cr.ID
}

// Remove deletes a criterion by id. Stored score entries are not touched.
func (c *Catalog) Remove(id string) (model.Criterion, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cr, ok := c.byID[id]
	if !ok {
		return model.Criterion{}, fmt.Errorf("%w: %s", ErrCriterionNotFound, id)
	}
	delete(c.byID, id)
	delete(c.byName, cr.Name)
	return cr, nil
}

// Lookup returns the criterion with the given name.
func (c *Catalog) Lookup(name string) (model.Criterion, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.byName[name]
	if !ok {
		return model.Criterion{}, false
	}
	return c.byID[id], true
}

// List returns all criteria ordered by name.
func (c *Catalog) List() []model.Criterion {
	c.mu.RLock()
	out := make([]model.Criterion, 0, len(c.byID))
	for _, cr := range c.byID {
		out = append(out, cr)
	}
	c.mu.RUnlock()
	slices.SortFunc(out, func(a, b model.Criterion) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Len returns the number of criteria.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byID)
}

// Validate checks every key against the catalog and every value against 0..max.
// Keys are checked in name order so the reported error is deterministic.
func (c *Catalog) Validate(scores map[string]int) error {
	if len(scores) == 0 {
		return ErrEmptyScores
	}
	names := make([]string, 0, len(scores))
	for name := range scores {
		names = append(names, name)
	}
	slices.Sort(names)

	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, name := range names {
		id, ok := c.byName[name]
		if !ok {
			return fmt.Errorf("%w: %q", ErrInvalidCriterion, name)
		}
		limit := c.byID[id].MaxScore
		if v := scores[name]; v < 0 || v > limit {
			return fmt.Errorf("%w: %q=%d not in [0,%d]", ErrOutOfRange, name, v, limit)
		}
	}
	return nil
}

// ToIntegers converts decoded numeric scores to integers, rejecting fractional values.
func ToIntegers(raw map[string]float64) (map[string]int, error) {
	out := make(map[string]int, len(raw))
	for name, v := range raw {
		if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
			return nil, fmt.Errorf("%w: %q=%v", ErrNotInteger, name, v)
		}
		if v > math.MaxInt32 || v < math.MinInt32 {
			return nil, fmt.Errorf("%w: %q=%v", ErrOutOfRange, name, v)
		}
		out[name] = int(v)
	}
	return out, nil
}
