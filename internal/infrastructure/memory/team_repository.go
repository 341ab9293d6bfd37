package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/sanosuguru/go-event-registration/internal/domain/team"
	"github.com/sanosuguru/go-event-registration/internal/domain/transaction"
)

// TeamRepository はチームリポジトリのメモリ実装
type TeamRepository struct{ s *Store }

// NewTeamRepository はTeamRepositoryを作成する
func NewTeamRepository(s *Store) *TeamRepository {
	return &TeamRepository{s: s}
}

// Create はチームを作成する
func (r *TeamRepository) Create(ctx context.Context, tx transaction.Tx, t *team.Team) error {
	return r.s.write(tx, func() error {
		for _, existing := range r.s.teams {
			if existing.InviteCode == t.InviteCode {
				return fmt.Errorf("招待コードが重複しています: %s", t.InviteCode)
			}
		}
		if err := r.checkMembership(t); err != nil {
			return err
		}
		r.s.teams[t.ID] = cloneTeam(t)
		return nil
	})
}

// Update はチームを更新する
func (r *TeamRepository) Update(ctx context.Context, tx transaction.Tx, t *team.Team) error {
	return r.s.write(tx, func() error {
		if _, ok := r.s.teams[t.ID]; !ok {
			return team.ErrTeamNotFound
		}
		if err := r.checkMembership(t); err != nil {
			return err
		}
		r.s.teams[t.ID] = cloneTeam(t)
		return nil
	})
}

// checkMembership は1イベントにつき有効なチームは1つという制約を検証する
func (r *TeamRepository) checkMembership(t *team.Team) error {
	if !t.IsActive() {
		return nil
	}
	for _, other := range r.s.teams {
		if other.ID == t.ID || other.EventID != t.EventID || !other.IsActive() {
			continue
		}
		for _, m := range t.Members {
			if other.HasMember(m.UserID) {
				return team.ErrAlreadyInTeam
			}
		}
	}
	return nil
}

// GetByID はIDからチームを取得する
func (r *TeamRepository) GetByID(ctx context.Context, id string) (*team.Team, error) {
	return r.find(ctx, nil, team.ErrTeamNotFound, func(t *team.Team) bool { return t.ID == id })
}

// GetForUpdate はトランザクション内でチームを取得する
func (r *TeamRepository) GetForUpdate(ctx context.Context, tx transaction.Tx, id string) (*team.Team, error) {
	if err := r.s.check(tx); err != nil {
		return nil, err
	}
	return r.find(ctx, tx, team.ErrTeamNotFound, func(t *team.Team) bool { return t.ID == id })
}

// GetByInviteCode は招待コードからチームを取得する
func (r *TeamRepository) GetByInviteCode(ctx context.Context, code string) (*team.Team, error) {
	return r.find(ctx, nil, team.ErrInvalidInviteCode, func(t *team.Team) bool { return t.InviteCode == code })
}

// InviteCodeExists は招待コードが使用済みかを返す
func (r *TeamRepository) InviteCodeExists(ctx context.Context, tx transaction.Tx, code string) (bool, error) {
	_, err := r.find(ctx, tx, team.ErrInvalidInviteCode, func(t *team.Team) bool { return t.InviteCode == code })
	if err == team.ErrInvalidInviteCode {
		return false, nil
	}
	return err == nil, err
}

// FindActiveByMember は参加者の有効なチームを取得する
func (r *TeamRepository) FindActiveByMember(ctx context.Context, tx transaction.Tx, eventID, userID string) (*team.Team, error) {
	return r.find(ctx, tx, team.ErrTeamNotFound, func(t *team.Team) bool {
		return t.EventID == eventID && t.IsActive() && t.HasMember(userID)
	})
}

func (r *TeamRepository) find(ctx context.Context, tx transaction.Tx, notFound error, match func(*team.Team) bool) (*team.Team, error) {
	var found *team.Team
	err := r.s.read(ctx, tx, func() error {
		for _, t := range r.s.teams {
			if match(t) {
				found = cloneTeam(t)
				return nil
			}
		}
		return notFound
	})
	return found, err
}

// ListByEvent はイベントのチーム一覧を取得する
func (r *TeamRepository) ListByEvent(ctx context.Context, eventID string) ([]*team.Team, error) {
	return r.list(ctx, func(t *team.Team) bool { return t.EventID == eventID })
}

// ListByMember は参加者の有効なチーム一覧を取得する
func (r *TeamRepository) ListByMember(ctx context.Context, userID string) ([]*team.Team, error) {
	return r.list(ctx, func(t *team.Team) bool { return t.IsActive() && t.HasMember(userID) })
}

func (r *TeamRepository) list(ctx context.Context, keep func(*team.Team) bool) ([]*team.Team, error) {
	result := []*team.Team{}
	err := r.s.read(ctx, nil, func() error {
		for _, t := range r.s.teams {
			if keep(t) {
				result = append(result, cloneTeam(t))
			}
		}
		return nil
	})
	sort.SliceStable(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, err
}

// DeleteByEvent はイベントのチームを削除する
func (r *TeamRepository) DeleteByEvent(ctx context.Context, tx transaction.Tx, eventID string) error {
	return r.s.write(tx, func() error {
		for id, t := range r.s.teams {
			if t.EventID == eventID {
				delete(r.s.teams, id)
			}
		}
		return nil
	})
}

var _ team.Repository = (*TeamRepository)(nil)
