// Package identity は認証基盤から渡される主体を表す
package identity

// Role は主体のロール
type Role string

const (
	RoleParticipant Role = "participant"
	RoleOrganizer   Role = "organizer"
	RoleAdmin       Role = "admin"
)

// Principal は認証済みの主体。エンジンは与えられた値をそのまま信頼する
type Principal struct {
	ID   string
	Role Role
	// Internal は限定公開イベントの対象者（学内メンバー）かどうか
	Internal bool
}

// IsParticipant は参加者ロールかを返す
func (p Principal) IsParticipant() bool { return p.Role == RoleParticipant }

// IsOrganizer は主催者ロールかを返す
func (p Principal) IsOrganizer() bool { return p.Role == RoleOrganizer }

// IsAdmin は管理者ロールかを返す
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }
