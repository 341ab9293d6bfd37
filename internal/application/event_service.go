package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-event-registration/internal/domain/event"
	"github.com/sanosuguru/go-event-registration/internal/domain/identity"
	"github.com/sanosuguru/go-event-registration/internal/domain/registration"
	"github.com/sanosuguru/go-event-registration/internal/domain/team"
	"github.com/sanosuguru/go-event-registration/internal/domain/transaction"
	redisinfra "github.com/sanosuguru/go-event-registration/internal/infrastructure/redis"
	"github.com/sanosuguru/go-event-registration/internal/pkg/logger"
)

// 一般公開されるイベントの状態
var publishedStatuses = []event.Status{
	event.StatusApproved,
	event.StatusOngoing,
	event.StatusClosed,
	event.StatusCompleted,
}

type EventService struct {
	txManager        transaction.Manager
	eventRepo        event.Repository
	registrationRepo registration.Repository
	teamRepo         team.Repository
	gate             *CapacityGate
	guard            guard
	now              func() time.Time
}

// NewEventService は EventService を作成する。lm と cache は nil でもよい
func NewEventService(
	txm transaction.Manager,
	er event.Repository,
	rr registration.Repository,
	tr team.Repository,
	lm redisinfra.LockManagerInterface,
	cache OccupancyCache,
) *EventService {
	return &EventService{
		txManager:        txm,
		eventRepo:        er,
		registrationRepo: rr,
		teamRepo:         tr,
		gate:             NewCapacityGate(er, rr),
		guard:            guard{locks: lm, cache: cache},
		now:              time.Now,
	}
}

type CreateEventInput struct {
	event.Details
	// Submit が true なら作成と同時に承認申請する
	Submit bool
}

func (s *EventService) CreateEvent(ctx context.Context, p identity.Principal, input CreateEventInput) (*event.Event, error) {
	if !p.IsOrganizer() {
		return nil, ErrForbidden
	}
	e := event.NewEvent(p.ID, input.Details)
	if err := e.Validate(); err != nil {
		return nil, err
	}
	if input.Submit {
		if err := e.Transition(event.ActorOrganizer, event.StatusPending); err != nil {
			return nil, err
		}
	}
	err := inTx(ctx, s.txManager, func(tx transaction.Tx) error {
		return s.eventRepo.Create(ctx, tx, e)
	})
	if err != nil {
		return nil, fmt.Errorf("イベント作成に失敗しました: %w", err)
	}
	return e, nil
}

// GetEvent はイベントを取得する。未公開のイベントは主催者と管理者にのみ見える
func (s *EventService) GetEvent(ctx context.Context, p identity.Principal, id string) (*event.Event, error) {
	e, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !isPublished(e.Status) && !e.IsOwnedBy(p.ID) && !p.IsAdmin() {
		return nil, event.ErrEventNotFound
	}
	return e, nil
}

func isPublished(status event.Status) bool {
	for _, s := range publishedStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// EventQuery は公開イベントの検索条件。ゼロ値の項目は絞り込まない
type EventQuery struct {
	Kind        event.Kind
	Text        string
	Eligibility string
	From        *time.Time
	To          *time.Time
}

// ListEvents は公開中のイベントを検索する
func (s *EventService) ListEvents(ctx context.Context, q EventQuery, limit, offset int) ([]*event.Event, error) {
	if q.From != nil && q.To != nil && q.From.After(*q.To) {
		return nil, ErrInvalidRange
	}
	limit, offset = normalizePage(limit, offset)
	return s.eventRepo.List(ctx, event.ListFilter{
		Statuses:    publishedStatuses,
		Kind:        q.Kind,
		Text:        strings.TrimSpace(q.Text),
		Eligibility: strings.TrimSpace(q.Eligibility),
		StartFrom:   q.From,
		StartTo:     q.To,
	}, limit, offset)
}

const (
	trendingWindow = 24 * time.Hour
	trendingLimit  = 5
)

// TrendingEvent は直近の登録数つきの公開イベント
type TrendingEvent struct {
	Event               *event.Event
	RecentRegistrations int
}

// Trending は直近24時間の登録数が多い公開イベントを最大5件返す
func (s *EventService) Trending(ctx context.Context) ([]TrendingEvent, error) {
	counts, err := s.registrationRepo.CountCreatedSince(ctx, s.now().Add(-trendingWindow))
	if err != nil {
		return nil, err
	}
	result := make([]TrendingEvent, 0, trendingLimit)
	for _, c := range counts {
		if len(result) == trendingLimit {
			break
		}
		e, err := s.eventRepo.GetByID(ctx, c.EventID)
		if err != nil {
			if errors.Is(err, event.ErrEventNotFound) {
				continue
			}
			return nil, err
		}
		if !isPublished(e.Status) {
			continue
		}
		result = append(result, TrendingEvent{Event: e, RecentRegistrations: c.Count})
	}
	return result, nil
}

// ListMine は主催者自身のイベント一覧を返す
func (s *EventService) ListMine(ctx context.Context, p identity.Principal, limit, offset int) ([]*event.Event, error) {
	limit, offset = normalizePage(limit, offset)
	return s.eventRepo.List(ctx, event.ListFilter{OrganizerID: p.ID}, limit, offset)
}

// ListPendingReview は管理者向けに承認待ちのイベント一覧を返す
func (s *EventService) ListPendingReview(ctx context.Context, p identity.Principal, limit, offset int) ([]*event.Event, error) {
	if !p.IsAdmin() {
		return nil, ErrForbidden
	}
	limit, offset = normalizePage(limit, offset)
	return s.eventRepo.List(ctx, event.ListFilter{Statuses: []event.Status{event.StatusPending}}, limit, offset)
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// UpdateEvent は状態に応じた編集規則でイベントを更新する。
// 定員の引き上げで空きができた場合は、定員で閉じたイベントを再開する
func (s *EventService) UpdateEvent(ctx context.Context, p identity.Principal, id string, u event.Update) (*event.Event, error) {
	release, err := s.guard.acquire(ctx, eventLockKey(id))
	if err != nil {
		return nil, err
	}
	defer release()

	var e *event.Event
	err = inTx(ctx, s.txManager, func(tx transaction.Tx) error {
		ev, err := s.eventRepo.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if !ev.IsOwnedBy(p.ID) {
			return event.ErrNotOwner
		}
		if err := ev.ApplyUpdate(u); err != nil {
			return err
		}
		if err := s.eventRepo.Update(ctx, tx, ev); err != nil {
			return err
		}
		if _, err := s.gate.Reconcile(ctx, tx, ev); err != nil {
			return err
		}
		e = ev
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.guard.invalidate(ctx, id)
	return e, nil
}

// ChangeStatus は主催者による状態遷移を行う
func (s *EventService) ChangeStatus(ctx context.Context, p identity.Principal, id string, to event.Status) (*event.Event, error) {
	return s.transition(ctx, p, id, to, event.ActorOrganizer, func(e *event.Event) error {
		if !e.IsOwnedBy(p.ID) {
			return event.ErrNotOwner
		}
		return nil
	})
}

// Review は管理者が承認申請中のイベントを承認または却下する
func (s *EventService) Review(ctx context.Context, p identity.Principal, id string, to event.Status) (*event.Event, error) {
	if !p.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.transition(ctx, p, id, to, event.ActorAdmin, func(*event.Event) error { return nil })
}

func (s *EventService) transition(ctx context.Context, p identity.Principal, id string, to event.Status, actor event.Actor, authorize func(*event.Event) error) (*event.Event, error) {
	if !event.IsValidStatus(to) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, to)
	}

	release, err := s.guard.acquire(ctx, eventLockKey(id))
	if err != nil {
		return nil, err
	}
	defer release()

	var e *event.Event
	err = inTx(ctx, s.txManager, func(tx transaction.Tx) error {
		ev, err := s.eventRepo.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := authorize(ev); err != nil {
			return err
		}
		if err := ev.Transition(actor, to); err != nil {
			return err
		}
		if err := s.eventRepo.Update(ctx, tx, ev); err != nil {
			return err
		}
		e = ev
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info("イベント状態を変更",
		zap.String("event_id", id),
		zap.String("actor", string(actor)),
		zap.String("principal_id", p.ID),
		zap.String("status", string(to)),
	)
	s.guard.invalidate(ctx, id)
	return e, nil
}

// DeleteEvent はイベントと関連する登録・チームを削除する。主催者本人または管理者のみ
func (s *EventService) DeleteEvent(ctx context.Context, p identity.Principal, id string) error {
	err := inTx(ctx, s.txManager, func(tx transaction.Tx) error {
		e, err := s.eventRepo.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if !e.IsOwnedBy(p.ID) && !p.IsAdmin() {
			return event.ErrNotOwner
		}
		if err := s.teamRepo.DeleteByEvent(ctx, tx, id); err != nil {
			return err
		}
		if err := s.registrationRepo.DeleteByEvent(ctx, tx, id); err != nil {
			return err
		}
		return s.eventRepo.Delete(ctx, tx, id)
	})
	if err != nil {
		return err
	}
	s.guard.invalidate(ctx, id)
	return nil
}

// Availability は公開用の空き状況
type Availability struct {
	EventID   string       `json:"event_id"`
	Status    event.Status `json:"status"`
	SeatLimit int          `json:"seat_limit"`
	Occupied  int          `json:"occupied"`
	Remaining int          `json:"remaining"` // 無制限の場合は -1
}

// GetAvailability は空き状況を返す。占有数はキャッシュから読み、なければ数え直す
func (s *EventService) GetAvailability(ctx context.Context, p identity.Principal, id string) (*Availability, error) {
	e, err := s.GetEvent(ctx, p, id)
	if err != nil {
		return nil, err
	}
	occupied, err := s.occupied(ctx, id)
	if err != nil {
		return nil, err
	}

	a := &Availability{EventID: id, Status: e.Status, SeatLimit: e.SeatLimit, Occupied: occupied, Remaining: -1}
	if e.HasSeatLimit() {
		a.Remaining = max(e.SeatLimit-occupied, 0)
	}
	return a, nil
}

func (s *EventService) occupied(ctx context.Context, eventID string) (int, error) {
	cache := s.guard.cache
	if cache != nil {
		n, err := cache.GetOccupied(ctx, eventID)
		if err == nil {
			return n, nil
		}
		if !cache.IsMiss(err) {
			logger.Warn("占有数キャッシュの取得に失敗", zap.String("event_id", eventID), zap.Error(err))
		}
	}

	n, err := s.registrationRepo.CountOccupying(ctx, nil, eventID)
	if err != nil {
		return 0, err
	}
	if cache != nil {
		if err := cache.SetOccupied(ctx, eventID, n); err != nil {
			logger.Warn("占有数キャッシュの保存に失敗", zap.String("event_id", eventID), zap.Error(err))
		}
	}
	return n, nil
}

// Analytics は主催者向けのイベント集計
type Analytics struct {
	EventID           string `json:"event_id"`
	Registered        int    `json:"registered"`
	Attended          int    `json:"attended"`
	Cancelled         int    `json:"cancelled"`
	PendingPayments   int    `json:"pending_payments"`
	Revenue           int    `json:"revenue"`
	MerchandiseUnits  int    `json:"merchandise_units"`
	MerchandiseOrders int    `json:"merchandise_orders"`
	SeatLimit         int    `json:"seat_limit"`
	Full              bool   `json:"full"`
	Teams             int    `json:"teams"`
	CompleteTeams     int    `json:"complete_teams"`
}

// GetAnalytics はイベントの集計を返す。売上と販売数は支払いが確定した登録のみ数える
func (s *EventService) GetAnalytics(ctx context.Context, p identity.Principal, id string) (*Analytics, error) {
	e, err := s.eventRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !e.IsOwnedBy(p.ID) && !p.IsAdmin() {
		return nil, event.ErrNotOwner
	}
	regs, err := s.registrationRepo.ListByEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	a := summarize(e, regs)
	if e.TeamMode {
		teams, err := s.teamRepo.ListByEvent(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, t := range teams {
			if !t.IsActive() {
				continue
			}
			a.Teams++
			if t.Status == team.StatusComplete {
				a.CompleteTeams++
			}
		}
	}
	return a, nil
}

// summarize は登録一覧からイベントの集計を作る
func summarize(e *event.Event, regs []*registration.Registration) *Analytics {
	a := &Analytics{EventID: e.ID, SeatLimit: e.SeatLimit}
	for _, r := range regs {
		switch r.Status {
		case registration.StatusRegistered:
			a.Registered++
		case registration.StatusAttended:
			a.Attended++
		case registration.StatusCancelled:
			a.Cancelled++
			continue
		}
		if r.PaymentStatus.IsSettled() {
			a.Revenue += r.TotalAmount
			a.MerchandiseUnits += r.Quantity()
			if len(r.Items) > 0 {
				a.MerchandiseOrders++
			}
			continue
		}
		if r.PaymentStatus != registration.PaymentRejected {
			a.PendingPayments++
		}
	}
	a.Full = e.HasSeatLimit() && a.Registered+a.Attended >= e.SeatLimit
	return a
}

// EventSummary はダッシュボードのイベント別集計
type EventSummary struct {
	EventID       string       `json:"event_id"`
	Title         string       `json:"title"`
	Status        event.Status `json:"status"`
	Registrations int          `json:"registrations"`
	Attended      int          `json:"attended"`
	Revenue       int          `json:"revenue"`
}

// Dashboard は主催者の全イベントを通した集計
type Dashboard struct {
	TotalRegistrations int            `json:"total_registrations"`
	TotalAttended      int            `json:"total_attended"`
	TotalRevenue       int            `json:"total_revenue"`
	MerchandiseOrders  int            `json:"merchandise_orders"`
	Events             []EventSummary `json:"events"`
}

// Dashboard は主催者自身の全イベントの集計を返す。
// 登録数は席を占有している登録、売上は支払いが確定した登録のみ数える
func (s *EventService) Dashboard(ctx context.Context, p identity.Principal) (*Dashboard, error) {
	if !p.IsOrganizer() {
		return nil, ErrForbidden
	}
	events, err := s.eventRepo.List(ctx, event.ListFilter{OrganizerID: p.ID}, 0, 0)
	if err != nil {
		return nil, err
	}

	d := &Dashboard{Events: make([]EventSummary, 0, len(events))}
	for _, e := range events {
		regs, err := s.registrationRepo.ListByEvent(ctx, e.ID)
		if err != nil {
			return nil, err
		}
		a := summarize(e, regs)
		occupying := a.Registered + a.Attended
		d.TotalRegistrations += occupying
		d.TotalAttended += a.Attended
		d.TotalRevenue += a.Revenue
		d.MerchandiseOrders += a.MerchandiseOrders
		d.Events = append(d.Events, EventSummary{
			EventID:       e.ID,
			Title:         e.Title,
			Status:        e.Status,
			Registrations: occupying,
			Attended:      a.Attended,
			Revenue:       a.Revenue,
		})
	}
	return d, nil
}
