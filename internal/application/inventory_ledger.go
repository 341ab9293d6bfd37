package application

import (
	"context"
	"fmt"

	"github.com/sanosuguru/go-event-registration/internal/domain/event"
	"github.com/sanosuguru/go-event-registration/internal/domain/registration"
	"github.com/sanosuguru/go-event-registration/internal/domain/transaction"
)

// InventoryLedger はグッズのバリエーション在庫を管理する。
// 注文時は在庫を確認するだけ（仮押さえ）で、減算は支払い承認時に一度だけ行う
type InventoryLedger struct {
	events event.Repository
}

func NewInventoryLedger(er event.Repository) *InventoryLedger {
	return &InventoryLedger{events: er}
}

type variantKey struct {
	item        int
	size, color string
}

// Quote は選択内容を検証し、価格を固定した明細を返す。在庫は減らさない
func (l *InventoryLedger) Quote(ev *event.Event, selections []event.Selection) ([]registration.LineItem, error) {
	if !ev.IsMerchandise() {
		return nil, nil
	}
	if len(selections) == 0 {
		return nil, event.ErrNoSelection
	}

	requested := make(map[variantKey]int, len(selections))
	items := make([]registration.LineItem, 0, len(selections))
	total := 0
	for _, sel := range selections {
		if sel.Quantity <= 0 || sel.Quantity > event.MaxQuantity {
			return nil, fmt.Errorf("%w: %d", event.ErrInvalidQuantity, sel.Quantity)
		}
		// 数量の上限で合計の桁あふれを防いでから加算する
		total += sel.Quantity
		if ev.PurchaseLimit > 0 && total > ev.PurchaseLimit {
			return nil, fmt.Errorf("%w: %d requested, limit is %d", event.ErrPurchaseLimitExceeded, total, ev.PurchaseLimit)
		}
		item, v, err := ev.Lookup(sel)
		if err != nil {
			return nil, err
		}
		if v != nil {
			key := variantKey{sel.ItemIndex, sel.Size, sel.Color}
			requested[key] += sel.Quantity
			if v.Stock < requested[key] {
				return nil, fmt.Errorf("%w: %s (%s/%s) has %d left", event.ErrInsufficientStock, item.Name, sel.Size, sel.Color, v.Stock)
			}
		}
		li := registration.LineItem{
			ItemIndex: sel.ItemIndex,
			ItemName:  item.Name,
			Size:      sel.Size,
			Color:     sel.Color,
			Quantity:  sel.Quantity,
			UnitPrice: item.Price,
		}
		if _, err := li.Subtotal(); err != nil {
			return nil, err
		}
		items = append(items, li)
	}
	if _, err := (registration.Commitment{Items: items}).Total(); err != nil {
		return nil, err
	}
	return items, nil
}

// Commit は明細の在庫を減算する。一つでも不足すればエラーを返し、
// 呼び出し側のロールバックで全ての減算が取り消される
func (l *InventoryLedger) Commit(ctx context.Context, tx transaction.Tx, ev *event.Event, items []registration.LineItem) error {
	return l.adjust(ctx, tx, ev, items, -1)
}

// Release は確定済みの減算を戻す
func (l *InventoryLedger) Release(ctx context.Context, tx transaction.Tx, ev *event.Event, items []registration.LineItem) error {
	return l.adjust(ctx, tx, ev, items, 1)
}

func (l *InventoryLedger) adjust(ctx context.Context, tx transaction.Tx, ev *event.Event, items []registration.LineItem, sign int) error {
	for _, li := range items {
		sel := event.Selection{ItemIndex: li.ItemIndex, Size: li.Size, Color: li.Color, Quantity: li.Quantity}
		item, v, err := ev.Lookup(sel)
		if err != nil {
			return err
		}
		if v == nil {
			continue
		}
		if sign < 0 && v.Stock < li.Quantity {
			return fmt.Errorf("%w: %s (%s/%s) has %d left", event.ErrInsufficientStock, item.Name, li.Size, li.Color, v.Stock)
		}
		remaining, err := l.events.AdjustStock(ctx, tx, ev.ID, li.ItemIndex, li.Size, li.Color, sign*li.Quantity)
		if err != nil {
			return err
		}
		v.Stock = remaining
	}
	return nil
}
