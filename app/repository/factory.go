package repository

import (
	"context"
	"sync"

	"gorm.io/gorm"
)

// Factory owns the repositories bound to the service's pool and opens
// transactional units of work.
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

// NewFactory creates a new repository factory
func NewFactory(db *gorm.DB) *Factory {
	return &Factory{
		db: db,
	}
}

// DB returns the underlying pool.
func (f *Factory) DB() *gorm.DB {
	return f.db
}

// Repositories returns the pool-bound repositories.
func (f *Factory) Repositories() *Repositories {
	f.once.Do(func() {
		f.repos = NewRepositories(f.db)
	})
	return f.repos
}

// Transaction runs fn with repositories bound to a single database
// transaction. Returning an error rolls back.
func (f *Factory) Transaction(ctx context.Context, fn func(repos *Repositories) error) error {
	return f.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}
