package registration

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status は登録の状態を表す
type Status string

const (
	StatusRegistered Status = "registered"
	StatusAttended   Status = "attended"
	StatusCancelled  Status = "cancelled"
)

// statusTransitions は登録状態の遷移表。キャンセル済みは再登録で registered に戻る
var statusTransitions = map[Status][]Status{
	StatusRegistered: {StatusAttended, StatusCancelled},
	StatusCancelled:  {StatusRegistered},
}

// CanTransition は登録状態の遷移を検証する
func CanTransition(from, to Status) error {
	for _, s := range statusTransitions[from] {
		if s == to {
			return nil
		}
	}
	switch {
	case to == StatusRegistered:
		return ErrAlreadyRegistered
	case from == StatusAttended && to == StatusCancelled:
		return ErrCannotCancelAttended
	case from == StatusAttended && to == StatusAttended:
		return ErrAlreadyAttended
	}
	return fmt.Errorf("%w: cannot change from '%s' to '%s'", ErrNotActive, from, to)
}

const ticketPrefix = "FEL-"

// LineItem は注文時点の商品選択のスナップショット
type LineItem struct {
	ItemIndex int    `json:"item_index"`
	ItemName  string `json:"item_name"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
	Quantity  int    `json:"quantity"`
	UnitPrice int    `json:"unit_price"`
}

// Subtotal は小計を返す。数量や単価が負、または桁あふれする場合はエラー
func (l LineItem) Subtotal() (int, error) {
	if l.Quantity < 0 || l.UnitPrice < 0 {
		return 0, fmt.Errorf("%w: %s quantity=%d price=%d", ErrAmountOutOfRange, l.ItemName, l.Quantity, l.UnitPrice)
	}
	if l.UnitPrice != 0 && l.Quantity > math.MaxInt/l.UnitPrice {
		return 0, fmt.Errorf("%w: %s quantity=%d price=%d", ErrAmountOutOfRange, l.ItemName, l.Quantity, l.UnitPrice)
	}
	return l.Quantity * l.UnitPrice, nil
}

// Registration は登録エンティティを表す
type Registration struct {
	ID               string
	EventID          string
	ParticipantID    string
	Status           Status
	PaymentStatus    PaymentStatus
	Items            []LineItem
	TotalAmount      int
	TicketID         string
	TeamID           string
	FormAnswers      map[string]string
	PaymentProof     string
	PaymentDecidedAt *time.Time
	AttendedAt       *time.Time
	CancelledAt      *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Commitment は登録内容（フォーム回答・商品・参加費）
type Commitment struct {
	FormAnswers map[string]string
	Items       []LineItem
	Fee         int
	TeamID      string
}

// Total は参加費と商品の合計金額
func (c Commitment) Total() (int, error) {
	if c.Fee < 0 {
		return 0, fmt.Errorf("%w: fee=%d", ErrAmountOutOfRange, c.Fee)
	}
	total := c.Fee
	for _, item := range c.Items {
		sub, err := item.Subtotal()
		if err != nil {
			return 0, err
		}
		if total > math.MaxInt-sub {
			return 0, fmt.Errorf("%w: total exceeds %d", ErrAmountOutOfRange, math.MaxInt)
		}
		total += sub
	}
	return total, nil
}

// NewRegistration は新しい登録を作成する。チケットIDは作成時に確定する
func NewRegistration(eventID, participantID string, c Commitment) (*Registration, error) {
	now := time.Now()
	r := &Registration{
		ID:            uuid.NewString(),
		EventID:       eventID,
		ParticipantID: participantID,
		CreatedAt:     now,
	}
	if err := r.apply(c, now); err != nil {
		return nil, err
	}
	r.EnsureTicket()
	return r, nil
}

func (r *Registration) apply(c Commitment, now time.Time) error {
	total, err := c.Total()
	if err != nil {
		return err
	}
	r.Status = StatusRegistered
	r.Items = c.Items
	r.TotalAmount = total
	r.PaymentStatus = PaymentStatusFor(r.TotalAmount)
	r.FormAnswers = c.FormAnswers
	r.TeamID = c.TeamID
	r.PaymentProof = ""
	r.PaymentDecidedAt = nil
	r.AttendedAt = nil
	r.CancelledAt = nil
	r.UpdatedAt = now
	return nil
}

// TicketFor は登録IDから人が読めるチケットIDを導出する
func TicketFor(id string) string {
	hex := strings.ReplaceAll(id, "-", "")
	if len(hex) > 8 {
		hex = hex[len(hex)-8:]
	}
	return ticketPrefix + strings.ToUpper(hex)
}

// EnsureTicket はチケットIDが未設定なら設定する。一度設定したIDは変えない
func (r *Registration) EnsureTicket() {
	if r.TicketID == "" {
		r.TicketID = TicketFor(r.ID)
	}
}

// IsOccupying は席を占有しているかを返す
func (r *Registration) IsOccupying() bool {
	return r.Status == StatusRegistered || r.Status == StatusAttended
}

// IsOwnedBy は参加者本人の登録かを返す
func (r *Registration) IsOwnedBy(participantID string) bool {
	return r.ParticipantID == participantID
}

// Reactivate はキャンセル済みの登録を新しい内容で再登録する
func (r *Registration) Reactivate(c Commitment) error {
	if err := CanTransition(r.Status, StatusRegistered); err != nil {
		return err
	}
	if err := r.apply(c, time.Now()); err != nil {
		return err
	}
	r.EnsureTicket()
	return nil
}

// SubmitProof は支払い証憑を提出し承認待ちにする
func (r *Registration) SubmitProof(proof string) error {
	if !r.IsOccupying() {
		return ErrNotActive
	}
	if strings.TrimSpace(proof) == "" {
		return ErrProofRequired
	}
	if r.PaymentStatus == PaymentNotRequired {
		return ErrPaymentNotRequired
	}
	if err := CanTransitionPayment(r.PaymentStatus, PaymentPendingApproval); err != nil {
		return err
	}
	r.PaymentProof = proof
	r.PaymentStatus = PaymentPendingApproval
	r.UpdatedAt = time.Now()
	return nil
}

// Decide は承認待ちの支払いを承認または却下する
func (r *Registration) Decide(d Decision) error {
	to, ok := d.Target()
	if !ok {
		return fmt.Errorf("%w: unknown decision %q", ErrInvalidPaymentState, d)
	}
	if !r.IsOccupying() {
		return ErrNotActive
	}
	if err := CanTransitionPayment(r.PaymentStatus, to); err != nil {
		return err
	}
	now := time.Now()
	r.PaymentStatus = to
	r.PaymentDecidedAt = &now
	r.UpdatedAt = now
	if to == PaymentApproved {
		r.EnsureTicket()
	}
	return nil
}

// Cancel は登録をキャンセルする。確定済みの在庫を戻す必要があれば true を返す
func (r *Registration) Cancel() (releaseStock bool, err error) {
	if err := CanTransition(r.Status, StatusCancelled); err != nil {
		return false, err
	}
	now := time.Now()
	releaseStock = r.PaymentStatus == PaymentApproved && len(r.Items) > 0
	r.Status = StatusCancelled
	r.CancelledAt = &now
	r.UpdatedAt = now
	return releaseStock, nil
}

// MarkAttended は出席を記録する
func (r *Registration) MarkAttended() error {
	if err := CanTransition(r.Status, StatusAttended); err != nil {
		return err
	}
	now := time.Now()
	r.Status = StatusAttended
	r.AttendedAt = &now
	r.UpdatedAt = now
	return nil
}

// Quantity は注文した商品の総数
func (r *Registration) Quantity() int {
	n := 0
	for _, item := range r.Items {
		n += item.Quantity
	}
	return n
}
