package memory

import (
	"context"
	"time"

	"github.com/sanosuguru/go-event-registration/internal/domain/outbox"
	"github.com/sanosuguru/go-event-registration/internal/domain/transaction"
)

// OutboxRepository は通知アウトボックスのメモリ実装
type OutboxRepository struct{ s *Store }

// NewOutboxRepository はOutboxRepositoryを作成する
func NewOutboxRepository(s *Store) *OutboxRepository {
	return &OutboxRepository{s: s}
}

// Enqueue はトランザクション内で通知を記録する
func (r *OutboxRepository) Enqueue(ctx context.Context, tx transaction.Tx, msgs ...*outbox.Message) error {
	return r.s.write(tx, func() error {
		for _, m := range msgs {
			r.s.outbox = append(r.s.outbox, cloneMessage(m))
		}
		return nil
	})
}

// FetchPending は配信を断念していない未配信の通知を古い順に取得する
func (r *OutboxRepository) FetchPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	var result []*outbox.Message
	err := r.s.read(ctx, nil, func() error {
		for _, m := range r.s.outbox {
			if m.IsDelivered() || m.IsDead() {
				continue
			}
			result = append(result, cloneMessage(m))
			if limit > 0 && len(result) >= limit {
				break
			}
		}
		return nil
	})
	return result, err
}

// MarkDelivered は通知を配信済みにする
func (r *OutboxRepository) MarkDelivered(ctx context.Context, id string) error {
	return r.update(ctx, id, func(m *outbox.Message) {
		now := time.Now()
		m.DeliveredAt = &now
		m.Attempts++
	})
}

// MarkFailed は配信失敗を記録する
func (r *OutboxRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	return r.update(ctx, id, func(m *outbox.Message) {
		m.Attempts++
		m.LastError = reason
	})
}

func (r *OutboxRepository) update(ctx context.Context, id string, fn func(*outbox.Message)) error {
	return r.s.locked(ctx, func() error {
		for i, m := range r.s.outbox {
			if m.ID == id {
				next := cloneMessage(m)
				fn(next)
				r.s.outbox[i] = next
				return nil
			}
		}
		return nil
	})
}

// All は記録済みの通知をすべて返す
func (r *OutboxRepository) All(ctx context.Context) ([]*outbox.Message, error) {
	var result []*outbox.Message
	err := r.s.read(ctx, nil, func() error {
		for _, m := range r.s.outbox {
			result = append(result, cloneMessage(m))
		}
		return nil
	})
	return result, err
}

var _ outbox.Repository = (*OutboxRepository)(nil)
