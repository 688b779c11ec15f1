package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/LuizNicolao/terceirize-foods-sub000/config"
	"github.com/LuizNicolao/terceirize-foods-sub000/internal/repository"
	"github.com/LuizNicolao/terceirize-foods-sub000/pkg/txretry"
)

// txRunner wraps repository transactions with the engine's lock timeout
// and conflict retry policy. Bulk commits go through here so contention
// handling stays in one place.
type txRunner struct {
	repo   *repository.Repository
	logger *zap.Logger
	engine config.EngineConfig
}

func newTxRunner(repo *repository.Repository, engine *config.EngineConfig, logger *zap.Logger) *txRunner {
	return &txRunner{repo: repo, logger: logger, engine: *engine}
}

// run executes fn inside a transaction. Transient lock conflicts roll
// back and retry with backoff; other errors roll back and surface
// unchanged. fn must be safe to re-execute from scratch.
func (t *txRunner) run(ctx context.Context, fn func(r *repository.Repository) error) error {
	policy := txretry.Policy{
		MaxAttempts: t.engine.RetryMaxAttempts,
		Base:        t.engine.RetryBase,
	}
	return txretry.Do(ctx, t.logger, policy, func(ctx context.Context) error {
		tx, err := t.repo.BeginTx(ctx)
		if err != nil {
			return err
		}
		r := t.repo.WithTx(tx)
		if err := t.repo.SetLocalLockTimeout(tx, t.engine.LockTimeout); err != nil {
			tx.Rollback()
			return err
		}
		if err := fn(r); err != nil {
			if tx != nil {
				tx.Rollback()
			}
			return err
		}
		if tx != nil {
			return tx.Commit().Error
		}
		return nil
	})
}
