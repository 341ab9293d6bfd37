package event

import (
	"fmt"
	"time"
)

// Status はイベントの状態を表す
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusOngoing   Status = "ongoing"
	StatusCompleted Status = "completed"
	StatusClosed    Status = "closed"
)

// Actor は状態遷移を起こす主体
type Actor string

const (
	ActorOrganizer Actor = "organizer"
	ActorAdmin     Actor = "admin"
	ActorSystem    Actor = "system"
)

// transitions は主体ごとの許可された遷移表
var transitions = map[Actor]map[Status][]Status{
	ActorOrganizer: {
		StatusDraft:    {StatusPending},
		StatusPending:  {StatusDraft},
		StatusApproved: {StatusOngoing, StatusClosed},
		StatusOngoing:  {StatusCompleted, StatusClosed},
	},
	ActorAdmin: {
		StatusPending: {StatusApproved, StatusRejected},
	},
	ActorSystem: {
		StatusApproved: {StatusClosed},
		StatusOngoing:  {StatusClosed},
		StatusClosed:   {StatusApproved, StatusOngoing},
	},
}

// CanTransition は actor が from から to へ遷移できるかを検証する
func CanTransition(actor Actor, from, to Status) error {
	for _, s := range transitions[actor][from] {
		if s == to {
			return nil
		}
	}
	return fmt.Errorf("%w: cannot change from '%s' to '%s'", ErrInvalidTransition, from, to)
}

// IsValidStatus は既知の状態かを返す
func IsValidStatus(s Status) bool {
	switch s {
	case StatusDraft, StatusPending, StatusApproved, StatusRejected,
		StatusOngoing, StatusCompleted, StatusClosed:
		return true
	}
	return false
}

// Transition は遷移表に従って状態を変更する
func (e *Event) Transition(actor Actor, to Status) error {
	if err := CanTransition(actor, e.Status, to); err != nil {
		return err
	}
	from := e.Status
	e.Status = to
	switch {
	case to == StatusClosed && actor == ActorSystem:
		e.ClosedReason = ClosedReasonCapacity
		e.ReopenStatus = from
	case to == StatusClosed:
		e.ClosedReason = ClosedReasonOrganizer
		e.ReopenStatus = ""
	default:
		e.ClosedReason = ClosedReasonNone
		e.ReopenStatus = ""
	}
	e.UpdatedAt = time.Now()
	return nil
}

// AcceptsRegistrations は登録を受け付ける状態かを返す
func (e *Event) AcceptsRegistrations() bool {
	return e.Status == StatusApproved || e.Status == StatusOngoing
}

// CloseForCapacity は定員到達によりイベントを閉じる。
// 既に closed の場合は何もせず false を返す
func (e *Event) CloseForCapacity() bool {
	if e.Status == StatusClosed {
		return false
	}
	return e.Transition(ActorSystem, StatusClosed) == nil
}

// ReopenAfterRelease は定員で閉じたイベントを元の状態に戻す。
// 主催者が閉じたイベントは再開しない
func (e *Event) ReopenAfterRelease() bool {
	if e.Status != StatusClosed || e.ClosedReason != ClosedReasonCapacity {
		return false
	}
	to := e.ReopenStatus
	if to == "" {
		to = StatusApproved
	}
	return e.Transition(ActorSystem, to) == nil
}
