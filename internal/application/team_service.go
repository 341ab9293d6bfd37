package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-event-registration/internal/domain/event"
	"github.com/sanosuguru/go-event-registration/internal/domain/identity"
	"github.com/sanosuguru/go-event-registration/internal/domain/outbox"
	"github.com/sanosuguru/go-event-registration/internal/domain/registration"
	"github.com/sanosuguru/go-event-registration/internal/domain/team"
	"github.com/sanosuguru/go-event-registration/internal/domain/transaction"
	redisinfra "github.com/sanosuguru/go-event-registration/internal/infrastructure/redis"
	"github.com/sanosuguru/go-event-registration/internal/pkg/logger"
	"github.com/sanosuguru/go-event-registration/internal/pkg/metrics"
	"github.com/sanosuguru/go-event-registration/internal/pkg/tracing"
)

const inviteCodeAttempts = 10

// TeamService はチームの結成と、目標人数到達時の一括登録を扱う
type TeamService struct {
	txManager        transaction.Manager
	eventRepo        event.Repository
	registrationRepo registration.Repository
	teamRepo         team.Repository
	outboxRepo       outbox.Repository
	gate             *CapacityGate
	guard            guard
	now              func() time.Time
	newInviteCode    func() (string, error)
}

// NewTeamService は TeamService を作成する。lm と cache は nil でもよい
func NewTeamService(
	txm transaction.Manager,
	er event.Repository,
	rr registration.Repository,
	tr team.Repository,
	or outbox.Repository,
	lm redisinfra.LockManagerInterface,
	cache OccupancyCache,
) *TeamService {
	return &TeamService{
		txManager:        txm,
		eventRepo:        er,
		registrationRepo: rr,
		teamRepo:         tr,
		outboxRepo:       or,
		gate:             NewCapacityGate(er, rr),
		guard:            guard{locks: lm, cache: cache},
		now:              time.Now,
		newInviteCode:    team.GenerateInviteCode,
	}
}

// CreateTeamInput はチーム作成の入力
type CreateTeamInput struct {
	EventID    string
	Name       string
	TargetSize int
}

// Create はリーダーとしてチームを作成する。目標人数が1なら即座に確定する
func (s *TeamService) Create(ctx context.Context, p identity.Principal, input CreateTeamInput) (t *team.Team, err error) {
	ctx, span := tracing.Start(ctx, "TeamService.Create")
	defer func() { tracing.End(span, err) }()

	if !p.IsParticipant() {
		return nil, ErrForbidden
	}

	release, err := s.guard.acquire(ctx, eventLockKey(input.EventID))
	if err != nil {
		return nil, err
	}
	defer release()

	var full, finalized bool
	err = inTx(ctx, s.txManager, func(tx transaction.Tx) error {
		ev, err := s.eventRepo.GetForUpdate(ctx, tx, input.EventID)
		if err != nil {
			return err
		}
		if !ev.TeamMode {
			return event.ErrNotTeamEvent
		}
		if err := ev.CheckAdmission(s.now(), p); err != nil {
			return err
		}
		if err := team.ValidateSize(input.TargetSize, ev.MinTeamSize, ev.MaxTeamSize); err != nil {
			return err
		}
		if err := s.checkFree(ctx, tx, ev.ID, p.ID); err != nil {
			return err
		}

		code, err := s.uniqueInviteCode(ctx, tx)
		if err != nil {
			return err
		}
		t = team.NewTeam(ev.ID, input.Name, p.ID, code, input.TargetSize)
		if err := t.Validate(); err != nil {
			return err
		}
		if err := s.teamRepo.Create(ctx, tx, t); err != nil {
			return err
		}

		if !t.ReachedTarget() {
			return nil
		}
		if err := s.finalize(ctx, tx, ev, t); err != nil {
			full = errors.Is(err, event.ErrEventFull)
			return err
		}
		finalized = true
		return nil
	})
	s.afterCommit(ctx, input.EventID, err, full, finalized, t)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Join は招待コードでチームに参加する。
// この参加で目標人数に達した場合、同じトランザクションで全メンバーを登録する
func (s *TeamService) Join(ctx context.Context, p identity.Principal, inviteCode string) (t *team.Team, err error) {
	ctx, span := tracing.Start(ctx, "TeamService.Join")
	defer func() { tracing.End(span, err) }()

	if !p.IsParticipant() {
		return nil, ErrForbidden
	}

	found, err := s.teamRepo.GetByInviteCode(ctx, team.NormalizeInviteCode(inviteCode))
	if err != nil {
		return nil, err
	}

	release, err := s.guard.acquire(ctx, eventLockKey(found.EventID))
	if err != nil {
		return nil, err
	}
	defer release()

	var full, finalized bool
	err = inTx(ctx, s.txManager, func(tx transaction.Tx) error {
		ev, err := s.eventRepo.GetForUpdate(ctx, tx, found.EventID)
		if err != nil {
			return err
		}
		if err := ev.CheckAdmission(s.now(), p); err != nil {
			return err
		}
		t, err = s.teamRepo.GetForUpdate(ctx, tx, found.ID)
		if err != nil {
			return err
		}
		if t.HasMember(p.ID) {
			return team.ErrAlreadyInTeam
		}
		if err := s.checkFree(ctx, tx, ev.ID, p.ID); err != nil {
			return err
		}

		reached, err := t.Join(p.ID)
		if err != nil {
			return err
		}
		if !reached {
			return s.teamRepo.Update(ctx, tx, t)
		}
		if err := s.finalize(ctx, tx, ev, t); err != nil {
			full = errors.Is(err, event.ErrEventFull)
			return err
		}
		finalized = true
		return nil
	})
	s.afterCommit(ctx, found.EventID, err, full, finalized, t)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// checkFree は参加者が同じイベントの他のチームや登録に属していないことを確認する
func (s *TeamService) checkFree(ctx context.Context, tx transaction.Tx, eventID, userID string) error {
	_, err := s.teamRepo.FindActiveByMember(ctx, tx, eventID, userID)
	if err == nil {
		return team.ErrAlreadyInTeam
	}
	if !errors.Is(err, team.ErrTeamNotFound) {
		return err
	}
	reg, err := s.registrationRepo.FindByEventAndParticipant(ctx, tx, eventID, userID)
	if err != nil {
		if errors.Is(err, registration.ErrRegistrationNotFound) {
			return nil
		}
		return err
	}
	if reg.IsOccupying() {
		return registration.ErrAlreadyRegistered
	}
	return nil
}

// finalize はチームを complete にし、承諾済みメンバー全員の登録を作成または再開する。
// 呼び出し側のトランザクション内で行うため、途中で失敗すれば全て取り消され
// チームは forming のまま残る
func (s *TeamService) finalize(ctx context.Context, tx transaction.Tx, ev *event.Event, t *team.Team) error {
	members := t.AcceptedMembers()
	if err := s.gate.Admit(ctx, tx, ev, len(members)); err != nil {
		return err
	}
	if err := t.Complete(); err != nil {
		return err
	}

	commitment := registration.Commitment{Fee: ev.RegistrationFee, TeamID: t.ID}
	msgs := make([]*outbox.Message, 0, len(members))
	for _, userID := range members {
		reg, err := s.registrationRepo.FindByEventAndParticipant(ctx, tx, ev.ID, userID)
		switch {
		case err == nil:
			if err := reg.Reactivate(commitment); err != nil {
				return fmt.Errorf("メンバーの登録に失敗: %w", err)
			}
			if err := s.registrationRepo.Update(ctx, tx, reg); err != nil {
				return err
			}
		case errors.Is(err, registration.ErrRegistrationNotFound):
			reg, err = registration.NewRegistration(ev.ID, userID, commitment)
			if err != nil {
				return err
			}
			if err := s.registrationRepo.Create(ctx, tx, reg); err != nil {
				return err
			}
		default:
			return err
		}
		msg := outbox.NewMessage(outbox.TopicTicketIssued, ev.ID, reg.ID, userID, reg.TicketID)
		msg.TeamID = t.ID
		msgs = append(msgs, msg)
	}

	if err := s.teamRepo.Update(ctx, tx, t); err != nil {
		return err
	}
	if ev.LockForm() {
		if err := s.eventRepo.Update(ctx, tx, ev); err != nil {
			return err
		}
	}
	if _, err := s.gate.Reconcile(ctx, tx, ev); err != nil {
		return err
	}
	return s.outboxRepo.Enqueue(ctx, tx, msgs...)
}

func (s *TeamService) afterCommit(ctx context.Context, eventID string, err error, full, finalized bool, t *team.Team) {
	if full {
		if cerr := s.gate.CloseIfFull(ctx, s.txManager, eventID); cerr != nil {
			logger.Warn("満席イベントのクローズに失敗", zap.String("event_id", eventID), zap.Error(cerr))
		}
		s.guard.invalidate(ctx, eventID)
	}
	if err != nil || !finalized {
		return
	}
	s.guard.invalidate(ctx, eventID)
	metrics.Get().RecordTeamFinalized()
	logger.Info("チームを確定",
		zap.String("team_id", t.ID),
		zap.String("event_id", eventID),
		zap.Int("members", t.AcceptedCount()),
	)
}

// uniqueInviteCode は未使用の招待コードを生成する
func (s *TeamService) uniqueInviteCode(ctx context.Context, tx transaction.Tx) (string, error) {
	for i := 0; i < inviteCodeAttempts; i++ {
		code, err := s.newInviteCode()
		if err != nil {
			return "", fmt.Errorf("招待コード生成に失敗: %w", err)
		}
		exists, err := s.teamRepo.InviteCodeExists(ctx, tx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", team.ErrInviteCodeExhausted
}

// Disband はリーダーが forming のチームを解散する
func (s *TeamService) Disband(ctx context.Context, p identity.Principal, teamID string) (*team.Team, error) {
	var t *team.Team
	err := inTx(ctx, s.txManager, func(tx transaction.Tx) error {
		var err error
		t, err = s.teamRepo.GetForUpdate(ctx, tx, teamID)
		if err != nil {
			return err
		}
		if err := t.Disband(p.ID); err != nil {
			return err
		}
		return s.teamRepo.Update(ctx, tx, t)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetByInviteCode は招待コードからチームを取得する
func (s *TeamService) GetByInviteCode(ctx context.Context, inviteCode string) (*team.Team, error) {
	return s.teamRepo.GetByInviteCode(ctx, team.NormalizeInviteCode(inviteCode))
}

// MyTeam はイベントで参加者が所属しているチームを返す
func (s *TeamService) MyTeam(ctx context.Context, p identity.Principal, eventID string) (*team.Team, error) {
	return s.teamRepo.FindActiveByMember(ctx, nil, eventID, p.ID)
}

// ListMine は参加者が所属するチーム一覧を返す
func (s *TeamService) ListMine(ctx context.Context, p identity.Principal) ([]*team.Team, error) {
	return s.teamRepo.ListByMember(ctx, p.ID)
}

// ListForEvent は主催者向けにイベントのチーム一覧を返す
func (s *TeamService) ListForEvent(ctx context.Context, p identity.Principal, eventID string) ([]*team.Team, error) {
	ev, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if !ev.IsOwnedBy(p.ID) && !p.IsAdmin() {
		return nil, event.ErrNotOwner
	}
	return s.teamRepo.ListByEvent(ctx, eventID)
}
