package event

import (
	"fmt"
	"strings"
	"time"

	"github.com/sanosuguru/go-event-registration/internal/domain/identity"
)

// Kind はイベント種別を表す
type Kind string

const (
	KindNormal      Kind = "normal"
	KindMerchandise Kind = "merchandise"
)

// ClosedReason は closed になった理由
type ClosedReason string

const (
	ClosedReasonNone      ClosedReason = ""
	ClosedReasonCapacity  ClosedReason = "capacity"
	ClosedReasonOrganizer ClosedReason = "organizer"
)

const (
	defaultEligibility   = "Open to all"
	defaultPurchaseLimit = 1
	defaultMinTeamSize   = 2
	defaultMaxTeamSize   = 5

	// 参加資格にこの文字列を含むイベントは学内メンバー限定
	internalOnlyMarker = "iiit"
)

// Event はイベントエンティティを表す
type Event struct {
	ID                   string
	OrganizerID          string
	Title                string
	Description          string
	Venue                string
	Kind                 Kind
	Status               Status
	ClosedReason         ClosedReason
	ReopenStatus         Status // 容量で closed になる前の状態
	Eligibility          string
	StartAt              time.Time
	EndAt                *time.Time
	RegistrationDeadline *time.Time
	SeatLimit            int // 0 は無制限
	RegistrationFee      int
	FormFields           []FormField
	Items                []MerchandiseItem
	PurchaseLimit        int // 参加者1人あたりの購入上限（0 は無制限）
	TeamMode             bool
	MinTeamSize          int
	MaxTeamSize          int
	FormLocked           bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
	Version              int // 楽観的ロック用
}

// Details はイベント作成時に主催者が指定する項目
type Details struct {
	Title                string
	Description          string
	Venue                string
	Kind                 Kind
	Eligibility          string
	StartAt              time.Time
	EndAt                *time.Time
	RegistrationDeadline *time.Time
	SeatLimit            int
	RegistrationFee      int
	FormFields           []FormField
	Items                []MerchandiseItem
	PurchaseLimit        int
	TeamMode             bool
	MinTeamSize          int
	MaxTeamSize          int
}

// NewEvent は draft 状態の新しいイベントを作成する
func NewEvent(organizerID string, d Details) *Event {
	now := time.Now()
	e := &Event{
		OrganizerID:          organizerID,
		Title:                strings.TrimSpace(d.Title),
		Description:          d.Description,
		Venue:                d.Venue,
		Kind:                 d.Kind,
		Status:               StatusDraft,
		Eligibility:          d.Eligibility,
		StartAt:              d.StartAt,
		EndAt:                d.EndAt,
		RegistrationDeadline: d.RegistrationDeadline,
		SeatLimit:            d.SeatLimit,
		RegistrationFee:      d.RegistrationFee,
		FormFields:           d.FormFields,
		Items:                d.Items,
		PurchaseLimit:        d.PurchaseLimit,
		TeamMode:             d.TeamMode,
		MinTeamSize:          d.MinTeamSize,
		MaxTeamSize:          d.MaxTeamSize,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if e.Kind == "" {
		e.Kind = KindNormal
	}
	if e.Eligibility == "" {
		e.Eligibility = defaultEligibility
	}
	if e.Kind == KindMerchandise && e.PurchaseLimit == 0 {
		e.PurchaseLimit = defaultPurchaseLimit
	}
	if e.TeamMode && e.MinTeamSize == 0 && e.MaxTeamSize == 0 {
		e.MinTeamSize = defaultMinTeamSize
		e.MaxTeamSize = defaultMaxTeamSize
	}
	e.normalizeCatalog()
	return e
}

// normalizeCatalog は種別に合わないカタログを破棄する
func (e *Event) normalizeCatalog() {
	if e.Kind == KindMerchandise {
		e.FormFields = nil
		e.TeamMode = false
		return
	}
	e.Items = nil
}

// Validate はイベントの検証を行う
func (e *Event) Validate() error {
	if e.Title == "" {
		return ErrTitleRequired
	}
	if strings.TrimSpace(e.Venue) == "" {
		return ErrVenueRequired
	}
	if e.StartAt.IsZero() {
		return ErrStartRequired
	}
	if e.Kind != KindNormal && e.Kind != KindMerchandise {
		return ErrInvalidKind
	}
	if e.EndAt != nil && e.EndAt.Before(e.StartAt) {
		return ErrInvalidEventTime
	}
	if e.SeatLimit < 0 {
		return ErrInvalidSeatLimit
	}
	if e.RegistrationFee < 0 {
		return ErrInvalidFee
	}
	if e.PurchaseLimit < 0 {
		return ErrInvalidPurchaseLimit
	}
	if e.TeamMode && (e.MinTeamSize < 1 || e.MaxTeamSize < e.MinTeamSize) {
		return ErrInvalidTeamSize
	}
	for _, f := range e.FormFields {
		if err := f.Validate(); err != nil {
			return err
		}
	}
	for _, item := range e.Items {
		if err := item.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// IsOwnedBy は主催者が所有しているかを返す
func (e *Event) IsOwnedBy(organizerID string) bool {
	return e.OrganizerID == organizerID
}

// IsMerchandise はグッズ販売イベントかを返す
func (e *Event) IsMerchandise() bool {
	return e.Kind == KindMerchandise
}

// HasSeatLimit は定員が設定されているかを返す
func (e *Event) HasSeatLimit() bool {
	return e.SeatLimit > 0
}

// InternalOnly は学内メンバー限定イベントかを返す
func (e *Event) InternalOnly() bool {
	return strings.Contains(strings.ToLower(e.Eligibility), internalOnlyMarker)
}

// CheckAdmission は登録・チーム操作を受け付けられるかを検証する
func (e *Event) CheckAdmission(now time.Time, p identity.Principal) error {
	if !e.AcceptsRegistrations() {
		if e.Status == StatusClosed && e.ClosedReason == ClosedReasonCapacity {
			return ErrEventFull
		}
		return fmt.Errorf("%w: current status '%s'", ErrNotOpen, e.Status)
	}
	if e.InternalOnly() && !p.Internal {
		return ErrNotEligible
	}
	if e.RegistrationDeadline != nil && now.After(*e.RegistrationDeadline) {
		return ErrDeadlinePassed
	}
	return nil
}

// LockForm は最初のコミットでフォームを固定する。変更があれば true
func (e *Event) LockForm() bool {
	if e.FormLocked {
		return false
	}
	e.FormLocked = true
	e.UpdatedAt = time.Now()
	return true
}
