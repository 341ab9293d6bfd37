package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-event-registration/internal/domain/transaction"
	redisinfra "github.com/sanosuguru/go-event-registration/internal/infrastructure/redis"
	"github.com/sanosuguru/go-event-registration/internal/pkg/logger"
)

const (
	lockTTL        = 5 * time.Second
	lockRetries    = 5
	lockRetryDelay = 50 * time.Millisecond
)

// OccupancyCache は占有席数のキャッシュ
type OccupancyCache interface {
	GetOccupied(ctx context.Context, eventID string) (int, error)
	SetOccupied(ctx context.Context, eventID string, count int) error
	Invalidate(ctx context.Context, eventID string) error
	IsMiss(err error) bool
}

// guard は分散ロックとキャッシュ無効化をまとめた前段の補助。
// どちらも nil を許容し、正しさは行ロックで担保する
type guard struct {
	locks redisinfra.LockManagerInterface
	cache OccupancyCache
}

// acquire は分散ロックを取得する。
// ロックが取れない場合や Redis の障害時は行ロックのみで続行する
func (g guard) acquire(ctx context.Context, key string) (release func(), err error) {
	noop := func() {}
	if g.locks == nil {
		return noop, nil
	}
	lock, err := g.locks.AcquireLockWithRetry(ctx, key, lockTTL, lockRetries, lockRetryDelay)
	if err != nil {
		if errors.Is(err, redisinfra.ErrLockNotAcquired) {
			logger.Debug("分散ロックが混雑しているため行ロックで待機します", zap.String("key", key))
			return noop, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return noop, ctxErr
		}
		logger.Warn("分散ロックを取得できないため行ロックのみで続行します", zap.String("key", key), zap.Error(err))
		return noop, nil
	}
	return func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("分散ロックの解放に失敗", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

func (g guard) invalidate(ctx context.Context, eventID string) {
	if g.cache == nil {
		return
	}
	if err := g.cache.Invalidate(ctx, eventID); err != nil {
		logger.Warn("占有数キャッシュの無効化に失敗", zap.String("event_id", eventID), zap.Error(err))
	}
}

func eventLockKey(eventID string) string {
	return "lock:events:" + eventID
}

// inTx は fn をトランザクション内で実行し、エラーならロールバックする
func inTx(ctx context.Context, txm transaction.Manager, fn func(tx transaction.Tx) error) error {
	tx, err := txm.Begin(ctx)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("コミットに失敗: %w", err)
	}
	return nil
}
