package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/livescore/internal/adapters/kv"
	"github.com/okian/livescore/internal/domain/model"
	"github.com/okian/livescore/internal/domain/scoring"
)

// CriteriaStore persists the criterion catalog. Removing a criterion leaves
// previously stored score entries exactly as they were submitted.
type CriteriaStore struct {
	catalog *scoring.Catalog
	durable kv.Store
}

// NewCriteriaStore wraps catalog; durable may be nil.
func NewCriteriaStore(catalog *scoring.Catalog, durable kv.Store) *CriteriaStore {
	return &CriteriaStore{catalog: catalog, durable: durable}
}

// Catalog returns the underlying catalog, which doubles as the score validator.
func (c *CriteriaStore) Catalog() *scoring.Catalog {
	return c.catalog
}

// Create adds a criterion and writes it through.
func (c *CriteriaStore) Create(ctx context.Context, name string, maxScore int) (model.Criterion, error) {
	cr, err := c.catalog.Add(name, maxScore)
	if err != nil {
		return model.Criterion{}, err
	}
	if c.durable != nil {
		if err := putJSON(ctx, c.durable, criterionKey(cr.ID), cr); err != nil {
			_, _ = c.catalog.Remove(cr.ID)
			return model.Criterion{}, err
		}
	}
	return cr, nil
}

// Delete removes a criterion by id.
func (c *CriteriaStore) Delete(ctx context.Context, id string) (model.Criterion, error) {
	cr, err := c.catalog.Remove(id)
	if err != nil {
		return model.Criterion{}, err
	}
	if c.durable != nil {
		if err := c.durable.Delete(ctx, criterionKey(id)); err != nil {
			c.catalog.Put(cr)
			return model.Criterion{}, fmt.Errorf("%w: %w", ErrPersist, err)
		}
	}
	return cr, nil
}

// List returns all criteria ordered by name.
func (c *CriteriaStore) List(_ context.Context) []model.Criterion {
	return c.catalog.List()
}

// Hydrate loads persisted criteria into the catalog.
func (c *CriteriaStore) Hydrate(ctx context.Context) (int, error) {
	if c.durable == nil {
		return 0, nil
	}
	loaded, err := loadAll[model.Criterion](ctx, c.durable, criterionPrefix)
	if err != nil {
		return 0, err
	}
	for _, cr := range loaded {
		c.catalog.Put(cr)
	}
	return len(loaded), nil
}

// Seed creates each criterion whose name is not already present. Seed ids
// are ignored. With a durable store seeding happens once: later starts keep
// whatever the organizer has created or deleted since.
func (c *CriteriaStore) Seed(ctx context.Context, seeds []model.Criterion) error {
	if c.durable != nil {
		_, err := c.durable.Get(ctx, criteriaSeededKey)
		switch {
		case err == nil:
			return nil
		case !errors.Is(err, kv.ErrNotFound):
			return fmt.Errorf("%w: %w", ErrHydrate, err)
		}
	}
	for _, s := range seeds {
		if _, ok := c.catalog.Lookup(s.Name); ok {
			continue
		}
		if _, err := c.Create(ctx, s.Name, s.MaxScore); err != nil {
			return fmt.Errorf("seed criterion %q: %w", s.Name, err)
		}
	}
	if c.durable != nil {
		return putJSON(ctx, c.durable, criteriaSeededKey, true)
	}
	return nil
}
