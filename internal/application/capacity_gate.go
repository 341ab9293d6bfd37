package application

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-event-registration/internal/domain/event"
	"github.com/sanosuguru/go-event-registration/internal/domain/registration"
	"github.com/sanosuguru/go-event-registration/internal/domain/transaction"
	"github.com/sanosuguru/go-event-registration/internal/pkg/logger"
)

// CapacityGate は定員のあるイベントへの入場可否を判定する。
// 占有数は保存せず、毎回 registered/attended の登録を数えて求める。
// 呼び出し側はイベント行をロックしたトランザクションを渡すこと
type CapacityGate struct {
	events        event.Repository
	registrations registration.Repository
}

func NewCapacityGate(er event.Repository, rr registration.Repository) *CapacityGate {
	return &CapacityGate{events: er, registrations: rr}
}

// Admit は seats 人分の空きがあるかを確認し、なければ ErrEventFull を返す
func (g *CapacityGate) Admit(ctx context.Context, tx transaction.Tx, ev *event.Event, seats int) error {
	if !ev.HasSeatLimit() {
		return nil
	}
	occupied, err := g.registrations.CountOccupying(ctx, tx, ev.ID)
	if err != nil {
		return fmt.Errorf("占有数の取得に失敗: %w", err)
	}
	if occupied+seats > ev.SeatLimit {
		return fmt.Errorf("%w: %d of %d seats taken", event.ErrEventFull, occupied, ev.SeatLimit)
	}
	return nil
}

// Reconcile は現在の占有数に合わせてイベントを閉じる、または再開する。
// 状態を変更した場合は保存して true を返す
func (g *CapacityGate) Reconcile(ctx context.Context, tx transaction.Tx, ev *event.Event) (bool, error) {
	if !ev.HasSeatLimit() {
		return false, nil
	}
	occupied, err := g.registrations.CountOccupying(ctx, tx, ev.ID)
	if err != nil {
		return false, fmt.Errorf("占有数の取得に失敗: %w", err)
	}

	var changed bool
	if occupied >= ev.SeatLimit {
		changed = ev.CloseForCapacity()
	} else {
		changed = ev.ReopenAfterRelease()
	}
	if !changed {
		return false, nil
	}
	if err := g.events.Update(ctx, tx, ev); err != nil {
		return false, fmt.Errorf("イベント状態の更新に失敗: %w", err)
	}
	logger.Info("定員によりイベント状態を変更",
		zap.String("event_id", ev.ID),
		zap.String("status", string(ev.Status)),
		zap.Int("occupied", occupied),
		zap.Int("seat_limit", ev.SeatLimit),
	)
	return true, nil
}

// CloseIfFull は満席で拒否した後に、独立したトランザクションでイベントを閉じる
func (g *CapacityGate) CloseIfFull(ctx context.Context, txm transaction.Manager, eventID string) error {
	return inTx(ctx, txm, func(tx transaction.Tx) error {
		ev, err := g.events.GetForUpdate(ctx, tx, eventID)
		if err != nil {
			return err
		}
		_, err = g.Reconcile(ctx, tx, ev)
		return err
	})
}
