package repositories

import (
	"context"

	"gorm.io/gorm"
)

// Repositories bundles the repositories bound to one connection or
// transaction.
type Repositories struct {
	db          *gorm.DB
	Users       UserRepository
	Materials   MaterialRepository
	Submissions SubmissionRepository
}

func New(db *gorm.DB) *Repositories {
	return &Repositories{
		db:          db,
		Users:       NewUserRepository(db),
		Materials:   NewMaterialRepository(db),
		Submissions: NewSubmissionRepository(db),
	}
}

func (r *Repositories) WithContext(ctx context.Context) *Repositories {
	return New(r.db.WithContext(ctx))
}

// Transaction runs fn against repositories bound to a single transaction.
// Any error returned by fn rolls everything back.
func (r *Repositories) Transaction(ctx context.Context, fn func(tx *Repositories) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(New(tx))
	})
}

func unscoped(db *gorm.DB) *gorm.DB {
	return db.Unscoped()
}

func publishedOnly(db *gorm.DB) *gorm.DB {
	return db.Where("published_at IS NOT NULL")
}
