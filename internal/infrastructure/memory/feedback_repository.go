package memory

import (
	"context"
	"sort"

	"github.com/sanosuguru/go-event-registration/internal/domain/feedback"
	"github.com/sanosuguru/go-event-registration/internal/domain/transaction"
)

// FeedbackRepository は評価リポジトリのメモリ実装
type FeedbackRepository struct{ s *Store }

// NewFeedbackRepository はFeedbackRepositoryを作成する
func NewFeedbackRepository(s *Store) *FeedbackRepository {
	return &FeedbackRepository{s: s}
}

// Create は評価を保存する。同じイベント・参加者の評価は1件まで
func (r *FeedbackRepository) Create(ctx context.Context, tx transaction.Tx, f *feedback.Feedback) error {
	return r.s.write(tx, func() error {
		for _, existing := range r.s.feedback {
			if existing.EventID == f.EventID && existing.ParticipantID == f.ParticipantID {
				return feedback.ErrAlreadySubmitted
			}
		}
		c := *f
		r.s.feedback[f.ID] = &c
		return nil
	})
}

// FindByEventAndParticipant は参加者自身の評価を取得する
func (r *FeedbackRepository) FindByEventAndParticipant(ctx context.Context, eventID, participantID string) (*feedback.Feedback, error) {
	var found *feedback.Feedback
	err := r.s.read(ctx, nil, func() error {
		for _, f := range r.s.feedback {
			if f.EventID == eventID && f.ParticipantID == participantID {
				c := *f
				found = &c
				return nil
			}
		}
		return feedback.ErrFeedbackNotFound
	})
	return found, err
}

// ListByEvent はイベントの評価を新しい順に取得する
func (r *FeedbackRepository) ListByEvent(ctx context.Context, eventID string) ([]*feedback.Feedback, error) {
	result := []*feedback.Feedback{}
	err := r.s.read(ctx, nil, func() error {
		for _, f := range r.s.feedback {
			if f.EventID == eventID {
				c := *f
				result = append(result, &c)
			}
		}
		return nil
	})
	sort.SliceStable(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, err
}

var _ feedback.Repository = (*FeedbackRepository)(nil)
