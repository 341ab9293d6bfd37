package team

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status はチームの状態を表す
type Status string

const (
	StatusForming   Status = "forming"
	StatusComplete  Status = "complete"
	StatusCancelled Status = "cancelled"
)

// statusTransitions はチーム状態の許可された遷移
var statusTransitions = map[Status][]Status{
	StatusForming: {StatusComplete, StatusCancelled},
}

// CanTransition はチーム状態の遷移可否を判定する
func CanTransition(from, to Status) error {
	for _, s := range statusTransitions[from] {
		if s == to {
			return nil
		}
	}
	if from == StatusComplete && to == StatusCancelled {
		return ErrCannotDisbandComplete
	}
	return fmt.Errorf("%w: cannot move from '%s' to '%s'", ErrTeamNotActive, from, to)
}

// MemberStatus はメンバーの参加状態
type MemberStatus string

const (
	MemberAccepted MemberStatus = "accepted"
)

// Member はチームメンバー
type Member struct {
	UserID   string
	Status   MemberStatus
	JoinedAt time.Time
}

// Team はチームエンティティを表す
type Team struct {
	ID         string
	EventID    string
	Name       string
	LeaderID   string
	TargetSize int
	InviteCode string
	Members    []Member
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewTeam はリーダーのみを含む forming 状態のチームを作成する
func NewTeam(eventID, name, leaderID, inviteCode string, targetSize int) *Team {
	now := time.Now()
	return &Team{
		ID:         uuid.NewString(),
		EventID:    eventID,
		Name:       strings.TrimSpace(name),
		LeaderID:   leaderID,
		TargetSize: targetSize,
		InviteCode: inviteCode,
		Members:    []Member{{UserID: leaderID, Status: MemberAccepted, JoinedAt: now}},
		Status:     StatusForming,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// ValidateSize は目標人数がイベントの上下限に収まるかを検証する
func ValidateSize(target, minSize, maxSize int) error {
	if target < minSize || target > maxSize {
		return fmt.Errorf("%w: team size must be between %d and %d", ErrInvalidTargetSize, minSize, maxSize)
	}
	return nil
}

// Validate はチームの検証を行う
func (t *Team) Validate() error {
	if t.Name == "" {
		return ErrTeamNameRequired
	}
	if t.TargetSize < 1 {
		return ErrInvalidTargetSize
	}
	return nil
}

// AcceptedCount は参加承諾済みメンバー数
func (t *Team) AcceptedCount() int {
	n := 0
	for _, m := range t.Members {
		if m.Status == MemberAccepted {
			n++
		}
	}
	return n
}

// AcceptedMembers は参加承諾済みメンバーのIDを参加順に返す
func (t *Team) AcceptedMembers() []string {
	ids := make([]string, 0, len(t.Members))
	for _, m := range t.Members {
		if m.Status == MemberAccepted {
			ids = append(ids, m.UserID)
		}
	}
	return ids
}

// HasMember はメンバーに含まれるかを返す
func (t *Team) HasMember(userID string) bool {
	for _, m := range t.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// SlotsLeft は残り枠数
func (t *Team) SlotsLeft() int {
	left := t.TargetSize - t.AcceptedCount()
	if left < 0 {
		return 0
	}
	return left
}

// IsActive は cancelled でないかを返す
func (t *Team) IsActive() bool {
	return t.Status != StatusCancelled
}

// ReachedTarget は目標人数に達しているかを返す
func (t *Team) ReachedTarget() bool {
	return t.AcceptedCount() >= t.TargetSize
}

// Join はメンバーを追加する。この参加で目標人数に達した場合 true を返す
func (t *Team) Join(userID string) (bool, error) {
	switch t.Status {
	case StatusComplete:
		return false, ErrTeamFull
	case StatusCancelled:
		return false, ErrTeamNotActive
	}
	if t.HasMember(userID) {
		return false, ErrAlreadyInTeam
	}
	if t.ReachedTarget() {
		return false, ErrTeamFull
	}
	t.Members = append(t.Members, Member{UserID: userID, Status: MemberAccepted, JoinedAt: time.Now()})
	t.UpdatedAt = time.Now()
	return t.ReachedTarget(), nil
}

// Complete は forming から complete へ一度だけ遷移する
func (t *Team) Complete() error {
	if err := CanTransition(t.Status, StatusComplete); err != nil {
		return err
	}
	if !t.ReachedTarget() {
		return fmt.Errorf("%w: %d of %d members", ErrTeamNotActive, t.AcceptedCount(), t.TargetSize)
	}
	t.Status = StatusComplete
	t.UpdatedAt = time.Now()
	return nil
}

// Disband はリーダーが forming のチームを解散する
func (t *Team) Disband(userID string) error {
	if t.LeaderID != userID {
		return ErrNotLeader
	}
	if err := CanTransition(t.Status, StatusCancelled); err != nil {
		return err
	}
	t.Status = StatusCancelled
	t.UpdatedAt = time.Now()
	return nil
}
