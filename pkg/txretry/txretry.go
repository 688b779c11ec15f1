// Package txretry retries transactional work that fails on lock
// contention. Deadlocks, lock timeouts and serialization failures are
// transient under concurrent bulk commits; everything else is passed
// through untouched.
package txretry

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	pkgerrors "github.com/LuizNicolao/terceirize-foods-sub000/pkg/errors"
)

// PostgreSQL SQLSTATE codes treated as transient.
const (
	codeDeadlockDetected  = "40P01"
	codeLockNotAvailable  = "55P03"
	codeSerializationFail = "40001"
)

// Policy tunes the retry loop.
type Policy struct {
	MaxAttempts int
	Base        time.Duration
}

// DefaultPolicy matches the engine configuration defaults.
var DefaultPolicy = Policy{MaxAttempts: 5, Base: 100 * time.Millisecond}

// IsRetryable reports whether err is a transient lock conflict.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case codeDeadlockDetected, codeLockNotAvailable, codeSerializationFail:
		return true
	}
	return false
}

// Do runs work, retrying on transient lock conflicts with exponential
// backoff plus jitter. When the attempt budget is exhausted it returns
// pkgerrors.ErrConflict wrapping the last failure.
func Do(ctx context.Context, logger *zap.Logger, p Policy, work func(ctx context.Context) error) error {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultPolicy.MaxAttempts
	}
	if p.Base <= 0 {
		p.Base = DefaultPolicy.Base
	}

	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if attempt > 0 {
			backoff := p.Base*(1<<uint(attempt-1)) + time.Duration(rand.Int63n(int64(p.Base)))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		lastErr = work(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) {
			return lastErr
		}

		logger.Warn("conflito de bloqueio transitório, tentando novamente",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", p.MaxAttempts),
			zap.Error(lastErr),
		)
	}

	return fmt.Errorf("%w: %v", pkgerrors.ErrConflict, lastErr)
}

// Chunk splits ids into slices of at most size elements, preserving
// order. A non-positive size yields a single chunk.
func Chunk(ids []int64, size int) [][]int64 {
	if size <= 0 || len(ids) <= size {
		if len(ids) == 0 {
			return nil
		}
		return [][]int64{ids}
	}
	chunks := make([][]int64, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
