package outbox

import (
	"context"

	"github.com/sanosuguru/go-event-registration/internal/domain/transaction"
)

// Repository は通知の保存先
type Repository interface {
	// Enqueue はトランザクション内で通知を記録する
	Enqueue(ctx context.Context, tx transaction.Tx, msgs ...*Message) error

	// FetchPending は配信を断念していない未配信の通知を古い順に取得する
	FetchPending(ctx context.Context, limit int) ([]*Message, error)

	// MarkDelivered は通知を配信済みにする
	MarkDelivered(ctx context.Context, id string) error

	// MarkFailed は配信失敗を記録する
	MarkFailed(ctx context.Context, id string, reason string) error
}

// Publisher は通知を外部へ配信する
type Publisher interface {
	Publish(ctx context.Context, msg *Message) error
}
