package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-event-registration/internal/domain/feedback"
	"github.com/sanosuguru/go-event-registration/internal/domain/transaction"
)

const feedbackColumns = `id, event_id, participant_id, rating, comment, created_at`

type feedbackRow struct {
	ID            string    `db:"id"`
	EventID       string    `db:"event_id"`
	ParticipantID string    `db:"participant_id"`
	Rating        int       `db:"rating"`
	Comment       string    `db:"comment"`
	CreatedAt     time.Time `db:"created_at"`
}

func (r *feedbackRow) toEntity() *feedback.Feedback {
	return &feedback.Feedback{
		ID:            r.ID,
		EventID:       r.EventID,
		ParticipantID: r.ParticipantID,
		Rating:        r.Rating,
		Comment:       r.Comment,
		CreatedAt:     r.CreatedAt,
	}
}

// FeedbackRepository は評価リポジトリのPostgreSQL実装
type FeedbackRepository struct{ db *sqlx.DB }

// NewFeedbackRepository はFeedbackRepositoryを作成する
func NewFeedbackRepository(db *sqlx.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

// Create は評価を保存する
func (r *FeedbackRepository) Create(ctx context.Context, tx transaction.Tx, f *feedback.Feedback) error {
	sqlTx, err := mustTx(tx)
	if err != nil {
		return err
	}
	query := `INSERT INTO feedback (` + feedbackColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := sqlTx.ExecContext(ctx, query, f.ID, f.EventID, f.ParticipantID, f.Rating, f.Comment, f.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return feedback.ErrAlreadySubmitted
		}
		return fmt.Errorf("評価の保存に失敗: %w", err)
	}
	return nil
}

// FindByEventAndParticipant は参加者自身の評価を取得する
func (r *FeedbackRepository) FindByEventAndParticipant(ctx context.Context, eventID, participantID string) (*feedback.Feedback, error) {
	var row feedbackRow
	query := `SELECT ` + feedbackColumns + ` FROM feedback WHERE event_id = $1 AND participant_id = $2`
	if err := r.db.GetContext(ctx, &row, query, eventID, participantID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, feedback.ErrFeedbackNotFound
		}
		return nil, fmt.Errorf("評価の取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

// ListByEvent はイベントの評価を新しい順に取得する
func (r *FeedbackRepository) ListByEvent(ctx context.Context, eventID string) ([]*feedback.Feedback, error) {
	var rows []feedbackRow
	query := `SELECT ` + feedbackColumns + ` FROM feedback WHERE event_id = $1 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &rows, query, eventID); err != nil {
		return nil, fmt.Errorf("評価一覧の取得に失敗: %w", err)
	}
	result := make([]*feedback.Feedback, len(rows))
	for i := range rows {
		result[i] = rows[i].toEntity()
	}
	return result, nil
}

var _ feedback.Repository = (*FeedbackRepository)(nil)
