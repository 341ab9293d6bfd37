package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sanosuguru/go-event-registration/internal/domain/event"
	"github.com/sanosuguru/go-event-registration/internal/domain/transaction"
)

// EventRepository はイベントリポジトリのメモリ実装
type EventRepository struct{ s *Store }

// NewEventRepository はEventRepositoryを作成する
func NewEventRepository(s *Store) *EventRepository {
	return &EventRepository{s: s}
}

// Create は新しいイベントを作成する
func (r *EventRepository) Create(ctx context.Context, tx transaction.Tx, e *event.Event) error {
	return r.s.write(tx, func() error {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		r.s.events[e.ID] = cloneEvent(e)
		return nil
	})
}

// GetByID はIDからイベントを取得する
func (r *EventRepository) GetByID(ctx context.Context, id string) (*event.Event, error) {
	var found *event.Event
	err := r.s.read(ctx, nil, func() error {
		e, ok := r.s.events[id]
		if !ok {
			return event.ErrEventNotFound
		}
		found = cloneEvent(e)
		return nil
	})
	return found, err
}

// GetForUpdate はトランザクション内でイベントを取得する
func (r *EventRepository) GetForUpdate(ctx context.Context, tx transaction.Tx, id string) (*event.Event, error) {
	var found *event.Event
	err := r.s.write(tx, func() error {
		e, ok := r.s.events[id]
		if !ok {
			return event.ErrEventNotFound
		}
		found = cloneEvent(e)
		return nil
	})
	return found, err
}

// List はイベント一覧を取得する
func (r *EventRepository) List(ctx context.Context, filter event.ListFilter, limit, offset int) ([]*event.Event, error) {
	var result []*event.Event
	err := r.s.read(ctx, nil, func() error {
		for _, e := range r.s.events {
			if matches(e, filter) {
				result = append(result, cloneEvent(e))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].StartAt.After(result[j].StartAt) })
	return paginate(result, limit, offset), nil
}

func matches(e *event.Event, f event.ListFilter) bool {
	if f.OrganizerID != "" && e.OrganizerID != f.OrganizerID {
		return false
	}
	if f.Kind != "" && e.Kind != f.Kind {
		return false
	}
	if f.Text != "" && !containsFold(e.Title, f.Text) && !containsFold(e.Description, f.Text) {
		return false
	}
	if f.Eligibility != "" && !containsFold(e.Eligibility, f.Eligibility) {
		return false
	}
	if f.StartFrom != nil && e.StartAt.Before(*f.StartFrom) {
		return false
	}
	if f.StartTo != nil && e.StartAt.After(*f.StartTo) {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if e.Status == s {
			return true
		}
	}
	return false
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

// Update はイベントを更新する（楽観的ロック）。フォーム固定後の商品カタログは保持する
func (r *EventRepository) Update(ctx context.Context, tx transaction.Tx, e *event.Event) error {
	return r.s.write(tx, func() error {
		stored, ok := r.s.events[e.ID]
		if !ok {
			return event.ErrOptimisticLockConflict
		}
		if stored.Version != e.Version {
			return event.ErrOptimisticLockConflict
		}
		next := cloneEvent(e)
		if stored.FormLocked {
			next.Items = cloneItems(stored.Items)
		}
		next.Version++
		next.UpdatedAt = time.Now()
		r.s.events[e.ID] = next
		e.Version = next.Version
		return nil
	})
}

// AdjustStock は在庫を条件付きで増減する
func (r *EventRepository) AdjustStock(ctx context.Context, tx transaction.Tx, eventID string, itemIndex int, size, color string, delta int) (int, error) {
	var remaining int
	err := r.s.write(tx, func() error {
		stored, ok := r.s.events[eventID]
		if !ok {
			return event.ErrEventNotFound
		}
		next := cloneEvent(stored)
		left, err := next.AdjustStock(itemIndex, size, color, delta)
		if err != nil {
			return fmt.Errorf("在庫更新に失敗: %w", err)
		}
		r.s.events[eventID] = next
		remaining = left
		return nil
	})
	return remaining, err
}

// Delete はイベントと関連する登録・チームを削除する
func (r *EventRepository) Delete(ctx context.Context, tx transaction.Tx, id string) error {
	return r.s.write(tx, func() error {
		if _, ok := r.s.events[id]; !ok {
			return event.ErrEventNotFound
		}
		delete(r.s.events, id)
		for rid, reg := range r.s.registrations {
			if reg.EventID == id {
				delete(r.s.registrations, rid)
			}
		}
		for tid, t := range r.s.teams {
			if t.EventID == id {
				delete(r.s.teams, tid)
			}
		}
		for fid, f := range r.s.feedback {
			if f.EventID == id {
				delete(r.s.feedback, fid)
			}
		}
		return nil
	})
}

var _ event.Repository = (*EventRepository)(nil)
