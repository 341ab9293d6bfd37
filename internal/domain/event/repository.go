package event

import (
	"context"
	"time"

	"github.com/sanosuguru/go-event-registration/internal/domain/transaction"
)

// ListFilter はイベント一覧の絞り込み条件
type ListFilter struct {
	Statuses    []Status
	OrganizerID string
	Kind        Kind
	// Text はタイトルと説明の部分一致（大文字小文字を区別しない）
	Text string
	// Eligibility は参加資格の部分一致
	Eligibility string
	// StartFrom と StartTo は開始日時の範囲（両端を含む）
	StartFrom *time.Time
	StartTo   *time.Time
}

// Repository はイベントリポジトリのインターフェース
type Repository interface {
	// Create は新しいイベントを作成する
	Create(ctx context.Context, tx transaction.Tx, event *Event) error

	// GetByID はIDからイベントを取得する
	GetByID(ctx context.Context, id string) (*Event, error)

	// GetForUpdate はトランザクション内で行ロックを取得してイベントを取得する
	GetForUpdate(ctx context.Context, tx transaction.Tx, id string) (*Event, error)

	// List はイベント一覧を取得する
	List(ctx context.Context, filter ListFilter, limit, offset int) ([]*Event, error)

	// Update はイベントの状態・項目を更新する（楽観的ロック）
	Update(ctx context.Context, tx transaction.Tx, event *Event) error

	// AdjustStock は在庫を条件付きで増減し残数を返す
	AdjustStock(ctx context.Context, tx transaction.Tx, eventID string, itemIndex int, size, color string, delta int) (int, error)

	// Delete はイベントを削除する
	Delete(ctx context.Context, tx transaction.Tx, id string) error
}
