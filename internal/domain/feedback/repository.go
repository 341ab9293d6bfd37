package feedback

import (
	"context"

	"github.com/sanosuguru/go-event-registration/internal/domain/transaction"
)

// Repository は評価リポジトリのインターフェース
type Repository interface {
	// Create は評価を保存する。同じ参加者の評価が既にあれば ErrAlreadySubmitted
	Create(ctx context.Context, tx transaction.Tx, f *Feedback) error

	// FindByEventAndParticipant は参加者自身の評価を取得する
	FindByEventAndParticipant(ctx context.Context, eventID, participantID string) (*Feedback, error)

	// ListByEvent はイベントの評価を新しい順に取得する
	ListByEvent(ctx context.Context, eventID string) ([]*Feedback, error)
}
