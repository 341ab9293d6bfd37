package registration

import (
	"context"
	"time"

	"github.com/sanosuguru/go-event-registration/internal/domain/transaction"
)

// EventCount はイベントごとの登録数
type EventCount struct {
	EventID string
	Count   int
}

// Repository は登録リポジトリのインターフェース
type Repository interface {
	// Create は新しい登録を作成する
	Create(ctx context.Context, tx transaction.Tx, r *Registration) error

	// Update は登録を更新する
	Update(ctx context.Context, tx transaction.Tx, r *Registration) error

	// GetByID はIDから登録を取得する
	GetByID(ctx context.Context, id string) (*Registration, error)

	// GetForUpdate はトランザクション内で行ロックを取得して登録を取得する
	GetForUpdate(ctx context.Context, tx transaction.Tx, id string) (*Registration, error)

	// FindByEventAndParticipant はイベントと参加者から登録を取得する（キャンセル済みも含む）
	FindByEventAndParticipant(ctx context.Context, tx transaction.Tx, eventID, participantID string) (*Registration, error)

	// CountOccupying は席を占有している登録数を返す
	CountOccupying(ctx context.Context, tx transaction.Tx, eventID string) (int, error)

	// ListByEvent はイベントの登録一覧を取得する
	ListByEvent(ctx context.Context, eventID string) ([]*Registration, error)

	// ListByParticipant は参加者の登録一覧を取得する
	ListByParticipant(ctx context.Context, participantID string) ([]*Registration, error)

	// CountCreatedSince は since 以降に作成され席を占有している登録数をイベントごとに返す。
	// 件数の多い順、同数ならイベントID順
	CountCreatedSince(ctx context.Context, since time.Time) ([]EventCount, error)

	// DeleteByEvent はイベントに紐づく登録を削除する
	DeleteByEvent(ctx context.Context, tx transaction.Tx, eventID string) error
}
