package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Repository is the aggregate entry point for data access.
type Repository struct {
	db *gorm.DB

	Need         NeedRepository
	Substitution SubstitutionRepository
}

// NewRepository creates the Repository aggregate. db may be nil in
// tests, in which case BeginTx and WithTx degrade to no-ops so mock
// implementations can be plugged into the interface fields.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:           db,
		Need:         NewNeedRepo(db),
		Substitution: NewSubstitutionRepo(db),
	}
}

// BeginTx opens a transaction. With a nil db it returns (nil, nil);
// WithTx(nil) then yields the repository unchanged, which keeps the
// transactional call paths runnable against mocks.
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("falha ao abrir transação: %w", tx.Error)
	}
	return tx, nil
}

// WithTx returns a Repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{
		db:           tx,
		Need:         NewNeedRepo(tx),
		Substitution: NewSubstitutionRepo(tx),
	}
}

// SetLocalLockTimeout bounds lock waits inside the given transaction.
// SET LOCAL reverts automatically at commit or rollback.
func (r *Repository) SetLocalLockTimeout(tx *gorm.DB, d time.Duration) error {
	if tx == nil {
		return nil
	}
	return tx.Exec(fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", d.Milliseconds())).Error
}
