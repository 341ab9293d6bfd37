package event

import (
	"fmt"
	"strings"
	"time"
)

// Update はイベント編集の差分。nil のフィールドは変更しない
type Update struct {
	Title                *string
	Description          *string
	Venue                *string
	Eligibility          *string
	Kind                 *Kind
	StartAt              *time.Time
	EndAt                *time.Time
	RegistrationDeadline *time.Time
	ClearDeadline        bool
	SeatLimit            *int
	RegistrationFee      *int
	FormFields           []FormField
	Items                []MerchandiseItem
	PurchaseLimit        *int
	TeamMode             *bool
	MinTeamSize          *int
	MaxTeamSize          *int
}

func (u Update) touchesShape() bool {
	return u.Kind != nil || u.FormFields != nil || u.Items != nil ||
		u.PurchaseLimit != nil || u.TeamMode != nil ||
		u.MinTeamSize != nil || u.MaxTeamSize != nil
}

func (u Update) touchesRestricted() bool {
	return u.touchesShape() || u.Title != nil || u.Venue != nil ||
		u.Eligibility != nil || u.StartAt != nil || u.EndAt != nil ||
		u.RegistrationFee != nil
}

// ApplyUpdate は状態に応じた編集ルールで差分を適用する
func (e *Event) ApplyUpdate(u Update) error {
	switch e.Status {
	case StatusDraft, StatusPending:
		return e.applyFullEdit(u)
	case StatusApproved, StatusClosed:
		return e.applyLimitedEdit(u)
	default:
		return fmt.Errorf("%w: current status '%s'", ErrNotEditable, e.Status)
	}
}

func (e *Event) applyFullEdit(u Update) error {
	if e.FormLocked && u.touchesShape() {
		return ErrFormLocked
	}
	next := *e
	if u.Title != nil {
		next.Title = strings.TrimSpace(*u.Title)
	}
	if u.Description != nil {
		next.Description = *u.Description
	}
	if u.Venue != nil {
		next.Venue = *u.Venue
	}
	if u.Eligibility != nil {
		next.Eligibility = *u.Eligibility
	}
	if u.StartAt != nil {
		next.StartAt = *u.StartAt
	}
	if u.EndAt != nil {
		next.EndAt = u.EndAt
	}
	if u.ClearDeadline {
		next.RegistrationDeadline = nil
	} else if u.RegistrationDeadline != nil {
		next.RegistrationDeadline = u.RegistrationDeadline
	}
	if u.SeatLimit != nil {
		next.SeatLimit = *u.SeatLimit
	}
	if u.RegistrationFee != nil {
		next.RegistrationFee = *u.RegistrationFee
	}
	if u.Kind != nil {
		next.Kind = *u.Kind
	}
	if u.FormFields != nil {
		next.FormFields = u.FormFields
	}
	if u.Items != nil {
		next.Items = u.Items
	}
	if u.PurchaseLimit != nil {
		next.PurchaseLimit = *u.PurchaseLimit
	}
	if u.TeamMode != nil {
		next.TeamMode = *u.TeamMode
	}
	if u.MinTeamSize != nil {
		next.MinTeamSize = *u.MinTeamSize
	}
	if u.MaxTeamSize != nil {
		next.MaxTeamSize = *u.MaxTeamSize
	}
	next.normalizeCatalog()
	if err := next.Validate(); err != nil {
		return err
	}
	next.UpdatedAt = time.Now()
	*e = next
	return nil
}

// applyLimitedEdit は承認済み・closed のイベントに許可された編集のみ適用する
func (e *Event) applyLimitedEdit(u Update) error {
	if u.touchesRestricted() {
		return ErrRestrictedEdit
	}
	next := *e
	if u.Description != nil {
		next.Description = *u.Description
	}
	switch {
	case u.ClearDeadline:
		next.RegistrationDeadline = nil
	case u.RegistrationDeadline != nil:
		if e.RegistrationDeadline == nil || u.RegistrationDeadline.Before(*e.RegistrationDeadline) {
			return ErrDeadlineShortened
		}
		next.RegistrationDeadline = u.RegistrationDeadline
	}
	if u.SeatLimit != nil {
		limit := *u.SeatLimit
		if limit < 0 {
			return ErrInvalidSeatLimit
		}
		// 0 は無制限なので常に引き上げ扱い
		if limit != 0 && (e.SeatLimit == 0 || limit < e.SeatLimit) {
			return ErrSeatLimitDecrease
		}
		next.SeatLimit = limit
	}
	next.UpdatedAt = time.Now()
	*e = next
	return nil
}
