package team

import (
	"context"

	"github.com/sanosuguru/go-event-registration/internal/domain/transaction"
)

// Repository はチームリポジトリのインターフェース
type Repository interface {
	// Create は新しいチームを作成する
	Create(ctx context.Context, tx transaction.Tx, t *Team) error

	// Update はチームの状態とメンバーを更新する
	Update(ctx context.Context, tx transaction.Tx, t *Team) error

	// GetByID はIDからチームを取得する
	GetByID(ctx context.Context, id string) (*Team, error)

	// GetForUpdate はトランザクション内で行ロックを取得してチームを取得する
	GetForUpdate(ctx context.Context, tx transaction.Tx, id string) (*Team, error)

	// GetByInviteCode は招待コードからチームを取得する
	GetByInviteCode(ctx context.Context, code string) (*Team, error)

	// InviteCodeExists は招待コードが使用済みかを返す
	InviteCodeExists(ctx context.Context, tx transaction.Tx, code string) (bool, error)

	// FindActiveByMember は参加者が所属する cancelled 以外のチームを取得する
	FindActiveByMember(ctx context.Context, tx transaction.Tx, eventID, userID string) (*Team, error)

	// ListByEvent はイベントのチーム一覧を取得する
	ListByEvent(ctx context.Context, eventID string) ([]*Team, error)

	// ListByMember は参加者が所属する cancelled 以外のチーム一覧を取得する
	ListByMember(ctx context.Context, userID string) ([]*Team, error)

	// DeleteByEvent はイベントに紐づくチームを削除する
	DeleteByEvent(ctx context.Context, tx transaction.Tx, eventID string) error
}
