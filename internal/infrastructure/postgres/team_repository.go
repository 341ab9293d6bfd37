package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sanosuguru/go-event-registration/internal/domain/team"
	"github.com/sanosuguru/go-event-registration/internal/domain/transaction"
)

const teamColumns = `id, event_id, name, leader_id, target_size, invite_code, status, created_at, updated_at`

type teamRow struct {
	ID         string    `db:"id"`
	EventID    string    `db:"event_id"`
	Name       string    `db:"name"`
	LeaderID   string    `db:"leader_id"`
	TargetSize int       `db:"target_size"`
	InviteCode string    `db:"invite_code"`
	Status     string    `db:"status"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

type memberRow struct {
	TeamID   string    `db:"team_id"`
	UserID   string    `db:"user_id"`
	Status   string    `db:"status"`
	JoinedAt time.Time `db:"joined_at"`
}

func (r *teamRow) toEntity(members []memberRow) *team.Team {
	t := &team.Team{
		ID:         r.ID,
		EventID:    r.EventID,
		Name:       r.Name,
		LeaderID:   r.LeaderID,
		TargetSize: r.TargetSize,
		InviteCode: r.InviteCode,
		Status:     team.Status(r.Status),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	for _, m := range members {
		t.Members = append(t.Members, team.Member{UserID: m.UserID, Status: team.MemberStatus(m.Status), JoinedAt: m.JoinedAt})
	}
	return t
}

// TeamRepository はチームリポジトリのPostgreSQL実装
type TeamRepository struct{ db *sqlx.DB }

// NewTeamRepository はTeamRepositoryを作成する
func NewTeamRepository(db *sqlx.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

// Create はチームとメンバーを作成する
func (r *TeamRepository) Create(ctx context.Context, tx transaction.Tx, t *team.Team) error {
	sqlTx, err := mustTx(tx)
	if err != nil {
		return err
	}
	query := `INSERT INTO teams (id, event_id, name, leader_id, target_size, invite_code, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	if _, err := sqlTx.ExecContext(ctx, query, t.ID, t.EventID, t.Name, t.LeaderID, t.TargetSize, t.InviteCode, string(t.Status), t.CreatedAt, t.UpdatedAt); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("招待コードが重複しています: %w", err)
		}
		return fmt.Errorf("チーム作成に失敗: %w", err)
	}
	return r.saveMembers(ctx, sqlTx, t)
}

// Update はチームの状態とメンバーを更新する
func (r *TeamRepository) Update(ctx context.Context, tx transaction.Tx, t *team.Team) error {
	sqlTx, err := mustTx(tx)
	if err != nil {
		return err
	}
	result, err := sqlTx.ExecContext(ctx, `UPDATE teams SET status = $1, updated_at = $2 WHERE id = $3`, string(t.Status), t.UpdatedAt, t.ID)
	if err != nil {
		return fmt.Errorf("チーム更新に失敗: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return team.ErrTeamNotFound
	}
	return r.saveMembers(ctx, sqlTx, t)
}

// saveMembers はメンバーを upsert する。部分一意インデックスで1イベント1チームを保証する
func (r *TeamRepository) saveMembers(ctx context.Context, tx *sqlx.Tx, t *team.Team) error {
	query := `
		INSERT INTO team_members (team_id, event_id, user_id, position, status, active, joined_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (team_id, user_id) DO UPDATE SET status = EXCLUDED.status, active = EXCLUDED.active
	`
	for i, m := range t.Members {
		if _, err := tx.ExecContext(ctx, query, t.ID, t.EventID, m.UserID, i, string(m.Status), t.IsActive(), m.JoinedAt); err != nil {
			if isUniqueViolation(err) {
				return team.ErrAlreadyInTeam
			}
			return fmt.Errorf("チームメンバー保存に失敗: %w", err)
		}
	}
	return nil
}

// GetByID はIDからチームを取得する
func (r *TeamRepository) GetByID(ctx context.Context, id string) (*team.Team, error) {
	return r.get(ctx, r.db, team.ErrTeamNotFound, `SELECT `+teamColumns+` FROM teams WHERE id = $1`, id)
}

// GetForUpdate はチーム行をロックして取得する
func (r *TeamRepository) GetForUpdate(ctx context.Context, tx transaction.Tx, id string) (*team.Team, error) {
	sqlTx, err := mustTx(tx)
	if err != nil {
		return nil, err
	}
	return r.get(ctx, sqlTx, team.ErrTeamNotFound, `SELECT `+teamColumns+` FROM teams WHERE id = $1 FOR UPDATE`, id)
}

// GetByInviteCode は招待コードからチームを取得する
func (r *TeamRepository) GetByInviteCode(ctx context.Context, code string) (*team.Team, error) {
	return r.get(ctx, r.db, team.ErrInvalidInviteCode, `SELECT `+teamColumns+` FROM teams WHERE invite_code = $1`, code)
}

// InviteCodeExists は招待コードが使用済みかを返す
func (r *TeamRepository) InviteCodeExists(ctx context.Context, tx transaction.Tx, code string) (bool, error) {
	var exists bool
	if err := pick(r.db, tx).GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM teams WHERE invite_code = $1)`, code); err != nil {
		return false, fmt.Errorf("招待コード確認に失敗: %w", err)
	}
	return exists, nil
}

// FindActiveByMember は参加者の有効なチームを取得する
func (r *TeamRepository) FindActiveByMember(ctx context.Context, tx transaction.Tx, eventID, userID string) (*team.Team, error) {
	query := `
		SELECT t.id, t.event_id, t.name, t.leader_id, t.target_size, t.invite_code, t.status, t.created_at, t.updated_at
		FROM teams t JOIN team_members m ON m.team_id = t.id
		WHERE m.event_id = $1 AND m.user_id = $2 AND m.active
	`
	return r.get(ctx, pick(r.db, tx), team.ErrTeamNotFound, query, eventID, userID)
}

func (r *TeamRepository) get(ctx context.Context, q queryer, notFound error, query string, args ...interface{}) (*team.Team, error) {
	var row teamRow
	if err := q.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidUUID(err) {
			return nil, notFound
		}
		return nil, fmt.Errorf("チーム取得に失敗: %w", err)
	}
	var members []memberRow
	if err := q.SelectContext(ctx, &members, `SELECT team_id, user_id, status, joined_at FROM team_members WHERE team_id = $1 ORDER BY position`, row.ID); err != nil {
		return nil, fmt.Errorf("チームメンバー取得に失敗: %w", err)
	}
	return row.toEntity(members), nil
}

// ListByEvent はイベントのチーム一覧を取得する
func (r *TeamRepository) ListByEvent(ctx context.Context, eventID string) ([]*team.Team, error) {
	return r.list(ctx, `SELECT `+teamColumns+` FROM teams WHERE event_id = $1 ORDER BY created_at DESC`, eventID)
}

// ListByMember は参加者の有効なチーム一覧を取得する
func (r *TeamRepository) ListByMember(ctx context.Context, userID string) ([]*team.Team, error) {
	query := `
		SELECT t.id, t.event_id, t.name, t.leader_id, t.target_size, t.invite_code, t.status, t.created_at, t.updated_at
		FROM teams t JOIN team_members m ON m.team_id = t.id
		WHERE m.user_id = $1 AND m.active
		ORDER BY t.created_at DESC
	`
	return r.list(ctx, query, userID)
}

func (r *TeamRepository) list(ctx context.Context, query, arg string) ([]*team.Team, error) {
	var rows []teamRow
	if err := r.db.SelectContext(ctx, &rows, query, arg); err != nil {
		return nil, fmt.Errorf("チーム一覧取得に失敗: %w", err)
	}
	if len(rows) == 0 {
		return []*team.Team{}, nil
	}

	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	var members []memberRow
	if err := r.db.SelectContext(ctx, &members, `SELECT team_id, user_id, status, joined_at FROM team_members WHERE team_id = ANY($1) ORDER BY position`, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("チームメンバー取得に失敗: %w", err)
	}
	byTeam := make(map[string][]memberRow, len(rows))
	for _, m := range members {
		byTeam[m.TeamID] = append(byTeam[m.TeamID], m)
	}

	result := make([]*team.Team, len(rows))
	for i := range rows {
		result[i] = rows[i].toEntity(byTeam[rows[i].ID])
	}
	return result, nil
}

// DeleteByEvent はイベントのチームを削除する
func (r *TeamRepository) DeleteByEvent(ctx context.Context, tx transaction.Tx, eventID string) error {
	sqlTx, err := mustTx(tx)
	if err != nil {
		return err
	}
	if _, err := sqlTx.ExecContext(ctx, `DELETE FROM teams WHERE event_id = $1`, eventID); err != nil {
		return fmt.Errorf("チーム削除に失敗: %w", err)
	}
	return nil
}

var _ team.Repository = (*TeamRepository)(nil)
