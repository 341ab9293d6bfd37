package application

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-event-registration/internal/domain/event"
	"github.com/sanosuguru/go-event-registration/internal/domain/feedback"
	"github.com/sanosuguru/go-event-registration/internal/domain/identity"
	"github.com/sanosuguru/go-event-registration/internal/domain/registration"
	"github.com/sanosuguru/go-event-registration/internal/domain/transaction"
	"github.com/sanosuguru/go-event-registration/internal/pkg/logger"
	"github.com/sanosuguru/go-event-registration/internal/pkg/metrics"
)

// FeedbackService は出席者による評価の投稿と主催者向けの集計を扱う
type FeedbackService struct {
	txManager        transaction.Manager
	eventRepo        event.Repository
	registrationRepo registration.Repository
	feedbackRepo     feedback.Repository
}

func NewFeedbackService(
	txm transaction.Manager,
	er event.Repository,
	rr registration.Repository,
	fr feedback.Repository,
) *FeedbackService {
	return &FeedbackService{
		txManager:        txm,
		eventRepo:        er,
		registrationRepo: rr,
		feedbackRepo:     fr,
	}
}

// SubmitFeedbackInput は評価の入力
type SubmitFeedbackInput struct {
	Rating  int
	Comment string
}

// Submit は出席済みの参加者による評価を保存する。1参加者につき1件
func (s *FeedbackService) Submit(ctx context.Context, p identity.Principal, eventID string, input SubmitFeedbackInput) (*feedback.Feedback, error) {
	if !p.IsParticipant() {
		return nil, ErrForbidden
	}
	f, err := feedback.NewFeedback(eventID, p.ID, input.Rating, input.Comment)
	if err != nil {
		return nil, err
	}
	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		return nil, err
	}

	err = inTx(ctx, s.txManager, func(tx transaction.Tx) error {
		reg, err := s.registrationRepo.FindByEventAndParticipant(ctx, tx, eventID, p.ID)
		if err != nil {
			if errors.Is(err, registration.ErrRegistrationNotFound) {
				return feedback.ErrNotAttended
			}
			return err
		}
		if reg.Status != registration.StatusAttended {
			return feedback.ErrNotAttended
		}
		return s.feedbackRepo.Create(ctx, tx, f)
	})
	if err != nil {
		return nil, err
	}
	metrics.Get().RecordFeedback(f.Rating)
	logger.Info("評価を受け付けました", zap.String("event_id", eventID), zap.Int("rating", f.Rating))
	return f, nil
}

// Mine は参加者自身の評価を返す
func (s *FeedbackService) Mine(ctx context.Context, p identity.Principal, eventID string) (*feedback.Feedback, error) {
	return s.feedbackRepo.FindByEventAndParticipant(ctx, eventID, p.ID)
}

// AnonymousFeedback は参加者を伏せた評価
type AnonymousFeedback struct {
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// FeedbackReport は主催者向けの評価一覧と集計
type FeedbackReport struct {
	EventID string              `json:"event_id"`
	Summary feedback.Summary    `json:"summary"`
	Entries []AnonymousFeedback `json:"entries"`
}

// Report はイベントの評価を参加者を伏せて新しい順に返す。主催者本人または管理者のみ
func (s *FeedbackService) Report(ctx context.Context, p identity.Principal, eventID string) (*FeedbackReport, error) {
	ev, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !ev.IsOwnedBy(p.ID) && !p.IsAdmin() {
		return nil, event.ErrNotOwner
	}
	list, err := s.feedbackRepo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	r := &FeedbackReport{
		EventID: eventID,
		Summary: feedback.Summarize(list),
		Entries: make([]AnonymousFeedback, len(list)),
	}
	for i, f := range list {
		r.Entries[i] = AnonymousFeedback{Rating: f.Rating, Comment: f.Comment, CreatedAt: f.CreatedAt}
	}
	return r, nil
}
