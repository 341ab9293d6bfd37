package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-event-registration/internal/domain/apperror"
	"github.com/sanosuguru/go-event-registration/internal/domain/event"
	"github.com/sanosuguru/go-event-registration/internal/domain/identity"
	"github.com/sanosuguru/go-event-registration/internal/domain/outbox"
	"github.com/sanosuguru/go-event-registration/internal/domain/registration"
	"github.com/sanosuguru/go-event-registration/internal/domain/transaction"
	redisinfra "github.com/sanosuguru/go-event-registration/internal/infrastructure/redis"
	"github.com/sanosuguru/go-event-registration/internal/pkg/logger"
	"github.com/sanosuguru/go-event-registration/internal/pkg/metrics"
	"github.com/sanosuguru/go-event-registration/internal/pkg/tracing"
)

// RegistrationService は参加登録と支払いの状態遷移を扱う
type RegistrationService struct {
	txManager        transaction.Manager
	eventRepo        event.Repository
	registrationRepo registration.Repository
	outboxRepo       outbox.Repository
	gate             *CapacityGate
	ledger           *InventoryLedger
	guard            guard
	now              func() time.Time
}

// NewRegistrationService は RegistrationService を作成する。lm と cache は nil でもよい
func NewRegistrationService(
	txm transaction.Manager,
	er event.Repository,
	rr registration.Repository,
	or outbox.Repository,
	lm redisinfra.LockManagerInterface,
	cache OccupancyCache,
) *RegistrationService {
	return &RegistrationService{
		txManager:        txm,
		eventRepo:        er,
		registrationRepo: rr,
		outboxRepo:       or,
		gate:             NewCapacityGate(er, rr),
		ledger:           NewInventoryLedger(er),
		guard:            guard{locks: lm, cache: cache},
		now:              time.Now,
	}
}

// RegisterInput は参加登録の入力
type RegisterInput struct {
	EventID     string
	FormAnswers map[string]string
	Selections  []event.Selection
}

// Register は参加者をイベントに登録する。
// 定員の確認と登録の作成はイベント行のロック下で一つのトランザクションとして行う
func (s *RegistrationService) Register(ctx context.Context, p identity.Principal, input RegisterInput) (reg *registration.Registration, err error) {
	ctx, span := tracing.Start(ctx, "RegistrationService.Register")
	defer func() {
		tracing.End(span, err)
		metrics.Get().RecordRegistration(resultLabel(err))
	}()

	if !p.IsParticipant() {
		return nil, ErrForbidden
	}

	release, err := s.guard.acquire(ctx, eventLockKey(input.EventID))
	if err != nil {
		return nil, err
	}
	defer release()

	var full bool
	err = inTx(ctx, s.txManager, func(tx transaction.Tx) error {
		ev, err := s.eventRepo.GetForUpdate(ctx, tx, input.EventID)
		if err != nil {
			return err
		}
		if err := ev.CheckAdmission(s.now(), p); err != nil {
			return err
		}
		if ev.TeamMode {
			return event.ErrTeamEventRequiresTeam
		}

		answers, err := event.ValidateAnswers(ev.FormFields, input.FormAnswers)
		if err != nil {
			return err
		}
		items, err := s.ledger.Quote(ev, input.Selections)
		if err != nil {
			return err
		}

		existing, err := s.registrationRepo.FindByEventAndParticipant(ctx, tx, ev.ID, p.ID)
		if err != nil && !errors.Is(err, registration.ErrRegistrationNotFound) {
			return err
		}
		if existing != nil && existing.IsOccupying() {
			return registration.ErrAlreadyRegistered
		}

		if !ev.IsMerchandise() {
			if err := s.gate.Admit(ctx, tx, ev, 1); err != nil {
				full = errors.Is(err, event.ErrEventFull)
				return err
			}
		}

		commitment := registration.Commitment{FormAnswers: answers, Items: items}
		if !ev.IsMerchandise() {
			commitment.Fee = ev.RegistrationFee
		}
		if existing != nil {
			if err := existing.Reactivate(commitment); err != nil {
				return err
			}
			if err := s.registrationRepo.Update(ctx, tx, existing); err != nil {
				return err
			}
			reg = existing
		} else {
			reg, err = registration.NewRegistration(ev.ID, p.ID, commitment)
			if err != nil {
				return err
			}
			if err := s.registrationRepo.Create(ctx, tx, reg); err != nil {
				return err
			}
		}

		if ev.LockForm() {
			if err := s.eventRepo.Update(ctx, tx, ev); err != nil {
				return err
			}
		}
		if _, err := s.gate.Reconcile(ctx, tx, ev); err != nil {
			return err
		}
		return s.outboxRepo.Enqueue(ctx, tx, admissionMessage(reg))
	})
	if err != nil {
		if full {
			if cerr := s.gate.CloseIfFull(ctx, s.txManager, input.EventID); cerr != nil {
				logger.Warn("満席イベントのクローズに失敗", zap.String("event_id", input.EventID), zap.Error(cerr))
			}
			s.guard.invalidate(ctx, input.EventID)
		}
		return nil, err
	}

	s.guard.invalidate(ctx, input.EventID)
	return reg, nil
}

// admissionMessage は支払い不要ならチケット発行、支払いが必要なら注文受付を通知する
func admissionMessage(reg *registration.Registration) *outbox.Message {
	topic := outbox.TopicTicketIssued
	if reg.PaymentStatus != registration.PaymentNotRequired {
		topic = outbox.TopicOrderPlaced
	}
	msg := outbox.NewMessage(topic, reg.EventID, reg.ID, reg.ParticipantID, reg.TicketID)
	msg.TeamID = reg.TeamID
	return msg
}

// Cancel は参加者自身の登録をキャンセルする。
// 承認済みの注文であれば在庫を戻し、定員で閉じたイベントは再開を検討する
func (s *RegistrationService) Cancel(ctx context.Context, p identity.Principal, eventID string) (err error) {
	ctx, span := tracing.Start(ctx, "RegistrationService.Cancel")
	defer func() { tracing.End(span, err) }()

	release, err := s.guard.acquire(ctx, eventLockKey(eventID))
	if err != nil {
		return err
	}
	defer release()

	err = inTx(ctx, s.txManager, func(tx transaction.Tx) error {
		ev, err := s.eventRepo.GetForUpdate(ctx, tx, eventID)
		if err != nil {
			return err
		}
		reg, err := s.registrationRepo.FindByEventAndParticipant(ctx, tx, eventID, p.ID)
		if err != nil {
			return err
		}
		releaseStock, err := reg.Cancel()
		if err != nil {
			return err
		}
		if err := s.registrationRepo.Update(ctx, tx, reg); err != nil {
			return err
		}
		if releaseStock {
			if err := s.ledger.Release(ctx, tx, ev, reg.Items); err != nil {
				return fmt.Errorf("在庫の戻しに失敗: %w", err)
			}
		}
		if _, err := s.gate.Reconcile(ctx, tx, ev); err != nil {
			return err
		}
		msg := outbox.NewMessage(outbox.TopicRegistrationCancelled, reg.EventID, reg.ID, reg.ParticipantID, reg.TicketID)
		msg.TeamID = reg.TeamID
		return s.outboxRepo.Enqueue(ctx, tx, msg)
	})
	if err != nil {
		return err
	}
	s.guard.invalidate(ctx, eventID)
	return nil
}

// UploadProof は支払い証憑の参照を記録し、主催者の承認待ちにする
func (s *RegistrationService) UploadProof(ctx context.Context, p identity.Principal, registrationID, proofRef string) (*registration.Registration, error) {
	var reg *registration.Registration
	err := inTx(ctx, s.txManager, func(tx transaction.Tx) error {
		var err error
		reg, err = s.registrationRepo.GetForUpdate(ctx, tx, registrationID)
		if err != nil {
			return err
		}
		if !reg.IsOwnedBy(p.ID) {
			return registration.ErrNotOwner
		}
		if err := reg.SubmitProof(proofRef); err != nil {
			return err
		}
		return s.registrationRepo.Update(ctx, tx, reg)
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// DecidePayment は主催者が支払いを承認または却下する。
// 承認時に在庫を一度だけ減算し、不足があれば支払い状態を変えずに失敗する
func (s *RegistrationService) DecidePayment(ctx context.Context, p identity.Principal, registrationID string, decision registration.Decision) (reg *registration.Registration, err error) {
	ctx, span := tracing.Start(ctx, "RegistrationService.DecidePayment")
	defer func() {
		tracing.End(span, err)
		metrics.Get().RecordPaymentDecision(string(decision), resultLabel(err))
	}()

	if _, ok := decision.Target(); !ok {
		return nil, ErrInvalidDecision
	}

	current, err := s.registrationRepo.GetByID(ctx, registrationID)
	if err != nil {
		return nil, err
	}

	release, err := s.guard.acquire(ctx, eventLockKey(current.EventID))
	if err != nil {
		return nil, err
	}
	defer release()

	err = inTx(ctx, s.txManager, func(tx transaction.Tx) error {
		ev, err := s.eventRepo.GetForUpdate(ctx, tx, current.EventID)
		if err != nil {
			return err
		}
		if !ev.IsOwnedBy(p.ID) && !p.IsAdmin() {
			return event.ErrNotOwner
		}
		reg, err = s.registrationRepo.GetForUpdate(ctx, tx, registrationID)
		if err != nil {
			return err
		}
		if err := reg.Decide(decision); err != nil {
			return err
		}
		if reg.PaymentStatus == registration.PaymentApproved && len(reg.Items) > 0 {
			if err := s.ledger.Commit(ctx, tx, ev, reg.Items); err != nil {
				return err
			}
		}
		if err := s.registrationRepo.Update(ctx, tx, reg); err != nil {
			return err
		}

		decided := outbox.NewMessage(outbox.TopicPaymentDecided, reg.EventID, reg.ID, reg.ParticipantID, reg.TicketID)
		decided.Decision = string(decision)
		msgs := []*outbox.Message{decided}
		if reg.PaymentStatus == registration.PaymentApproved {
			msgs = append(msgs, outbox.NewMessage(outbox.TopicTicketIssued, reg.EventID, reg.ID, reg.ParticipantID, reg.TicketID))
		}
		return s.outboxRepo.Enqueue(ctx, tx, msgs...)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("支払いを判定",
		zap.String("registration_id", reg.ID),
		zap.String("decision", string(decision)),
	)
	return reg, nil
}

// MarkAttended は主催者が出席を記録する
func (s *RegistrationService) MarkAttended(ctx context.Context, p identity.Principal, registrationID string) (*registration.Registration, error) {
	current, err := s.registrationRepo.GetByID(ctx, registrationID)
	if err != nil {
		return nil, err
	}

	var reg *registration.Registration
	err = inTx(ctx, s.txManager, func(tx transaction.Tx) error {
		ev, err := s.eventRepo.GetForUpdate(ctx, tx, current.EventID)
		if err != nil {
			return err
		}
		if !ev.IsOwnedBy(p.ID) && !p.IsAdmin() {
			return event.ErrNotOwner
		}
		reg, err = s.registrationRepo.GetForUpdate(ctx, tx, registrationID)
		if err != nil {
			return err
		}
		if err := reg.MarkAttended(); err != nil {
			return err
		}
		return s.registrationRepo.Update(ctx, tx, reg)
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// Get は登録を取得する。本人、イベントの主催者、管理者のみ参照できる
func (s *RegistrationService) Get(ctx context.Context, p identity.Principal, registrationID string) (*registration.Registration, error) {
	reg, err := s.registrationRepo.GetByID(ctx, registrationID)
	if err != nil {
		return nil, err
	}
	if reg.IsOwnedBy(p.ID) || p.IsAdmin() {
		return reg, nil
	}
	ev, err := s.eventRepo.GetByID(ctx, reg.EventID)
	if err != nil {
		return nil, err
	}
	if !ev.IsOwnedBy(p.ID) {
		return nil, registration.ErrNotOwner
	}
	return reg, nil
}

// ListMine は参加者自身の登録一覧を返す
func (s *RegistrationService) ListMine(ctx context.Context, p identity.Principal) ([]*registration.Registration, error) {
	return s.registrationRepo.ListByParticipant(ctx, p.ID)
}

// ListForEvent は主催者向けにイベントの登録一覧を返す
func (s *RegistrationService) ListForEvent(ctx context.Context, p identity.Principal, eventID string) ([]*registration.Registration, error) {
	ev, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !ev.IsOwnedBy(p.ID) && !p.IsAdmin() {
		return nil, event.ErrNotOwner
	}
	return s.registrationRepo.ListByEvent(ctx, eventID)
}

// resultLabel はメトリクス用に結果を分類する
func resultLabel(err error) string {
	if err == nil {
		return "success"
	}
	return string(apperror.KindOf(err))
}
