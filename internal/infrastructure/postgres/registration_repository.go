package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-event-registration/internal/domain/registration"
	"github.com/sanosuguru/go-event-registration/internal/domain/transaction"
)

const registrationColumns = `id, event_id, participant_id, status, payment_status, items, total_amount, ticket_id,
	team_id, form_answers, payment_proof, payment_decided_at, attended_at, cancelled_at, created_at, updated_at`

type registrationRow struct {
	ID               string         `db:"id"`
	EventID          string         `db:"event_id"`
	ParticipantID    string         `db:"participant_id"`
	Status           string         `db:"status"`
	PaymentStatus    string         `db:"payment_status"`
	Items            []byte         `db:"items"`
	TotalAmount      int            `db:"total_amount"`
	TicketID         string         `db:"ticket_id"`
	TeamID           sql.NullString `db:"team_id"`
	FormAnswers      []byte         `db:"form_answers"`
	PaymentProof     string         `db:"payment_proof"`
	PaymentDecidedAt *time.Time     `db:"payment_decided_at"`
	AttendedAt       *time.Time     `db:"attended_at"`
	CancelledAt      *time.Time     `db:"cancelled_at"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

func (r *registrationRow) toEntity() (*registration.Registration, error) {
	reg := &registration.Registration{
		ID:               r.ID,
		EventID:          r.EventID,
		ParticipantID:    r.ParticipantID,
		Status:           registration.Status(r.Status),
		PaymentStatus:    registration.PaymentStatus(r.PaymentStatus),
		TotalAmount:      r.TotalAmount,
		TicketID:         r.TicketID,
		TeamID:           r.TeamID.String,
		PaymentProof:     r.PaymentProof,
		PaymentDecidedAt: r.PaymentDecidedAt,
		AttendedAt:       r.AttendedAt,
		CancelledAt:      r.CancelledAt,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
	if err := unmarshalJSON(r.Items, &reg.Items); err != nil {
		return nil, fmt.Errorf("注文明細の復元に失敗: %w", err)
	}
	if err := unmarshalJSON(r.FormAnswers, &reg.FormAnswers); err != nil {
		return nil, fmt.Errorf("フォーム回答の復元に失敗: %w", err)
	}
	return reg, nil
}

// RegistrationRepository は登録リポジトリのPostgreSQL実装
type RegistrationRepository struct{ db *sqlx.DB }

// NewRegistrationRepository はRegistrationRepositoryを作成する
func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// Create は登録を作成する。(event_id, participant_id) の一意制約違反は登録済みとして扱う
func (r *RegistrationRepository) Create(ctx context.Context, tx transaction.Tx, reg *registration.Registration) error {
	sqlTx, err := mustTx(tx)
	if err != nil {
		return err
	}
	items, answers, err := marshalRegistration(reg)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO registrations (id, event_id, participant_id, status, payment_status, items, total_amount,
			ticket_id, team_id, form_answers, payment_proof, payment_decided_at, attended_at, cancelled_at,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err = sqlTx.ExecContext(ctx, query,
		reg.ID, reg.EventID, reg.ParticipantID, string(reg.Status), string(reg.PaymentStatus), items,
		reg.TotalAmount, reg.TicketID, nullString(reg.TeamID), answers, reg.PaymentProof,
		reg.PaymentDecidedAt, reg.AttendedAt, reg.CancelledAt, reg.CreatedAt, reg.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return registration.ErrAlreadyRegistered
		}
		return fmt.Errorf("登録作成に失敗: %w", err)
	}
	return nil
}

// Update は登録を更新する
func (r *RegistrationRepository) Update(ctx context.Context, tx transaction.Tx, reg *registration.Registration) error {
	sqlTx, err := mustTx(tx)
	if err != nil {
		return err
	}
	items, answers, err := marshalRegistration(reg)
	if err != nil {
		return err
	}
	query := `
		UPDATE registrations
		SET status = $1, payment_status = $2, items = $3, total_amount = $4, ticket_id = $5, team_id = $6,
		    form_answers = $7, payment_proof = $8, payment_decided_at = $9, attended_at = $10,
		    cancelled_at = $11, updated_at = $12
		WHERE id = $13
	`
	result, err := sqlTx.ExecContext(ctx, query,
		string(reg.Status), string(reg.PaymentStatus), items, reg.TotalAmount, reg.TicketID,
		nullString(reg.TeamID), answers, reg.PaymentProof, reg.PaymentDecidedAt, reg.AttendedAt,
		reg.CancelledAt, reg.UpdatedAt, reg.ID,
	)
	if err != nil {
		return fmt.Errorf("登録更新に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return registration.ErrRegistrationNotFound
	}
	return nil
}

// GetByID はIDから登録を取得する
func (r *RegistrationRepository) GetByID(ctx context.Context, id string) (*registration.Registration, error) {
	return r.get(ctx, r.db, `SELECT `+registrationColumns+` FROM registrations WHERE id = $1`, id)
}

// GetForUpdate は登録行をロックして取得する
func (r *RegistrationRepository) GetForUpdate(ctx context.Context, tx transaction.Tx, id string) (*registration.Registration, error) {
	sqlTx, err := mustTx(tx)
	if err != nil {
		return nil, err
	}
	return r.get(ctx, sqlTx, `SELECT `+registrationColumns+` FROM registrations WHERE id = $1 FOR UPDATE`, id)
}

// FindByEventAndParticipant はイベントと参加者から登録を取得する
func (r *RegistrationRepository) FindByEventAndParticipant(ctx context.Context, tx transaction.Tx, eventID, participantID string) (*registration.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE event_id = $1 AND participant_id = $2`
	return r.get(ctx, pick(r.db, tx), query, eventID, participantID)
}

func (r *RegistrationRepository) get(ctx context.Context, q queryer, query string, args ...interface{}) (*registration.Registration, error) {
	var row registrationRow
	if err := q.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidUUID(err) {
			return nil, registration.ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("登録取得に失敗: %w", err)
	}
	return row.toEntity()
}

// CountOccupying は席を占有している登録数を返す
func (r *RegistrationRepository) CountOccupying(ctx context.Context, tx transaction.Tx, eventID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND status IN ('registered', 'attended')`
	if err := pick(r.db, tx).GetContext(ctx, &count, query, eventID); err != nil {
		return 0, fmt.Errorf("占有数の取得に失敗: %w", err)
	}
	return count, nil
}

// ListByEvent はイベントの登録一覧を取得する
func (r *RegistrationRepository) ListByEvent(ctx context.Context, eventID string) ([]*registration.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE event_id = $1 ORDER BY created_at`
	return r.list(ctx, query, eventID)
}

// ListByParticipant は参加者の登録一覧を取得する
func (r *RegistrationRepository) ListByParticipant(ctx context.Context, participantID string) ([]*registration.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE participant_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, participantID)
}

func (r *RegistrationRepository) list(ctx context.Context, query string, arg string) ([]*registration.Registration, error) {
	var rows []registrationRow
	if err := r.db.SelectContext(ctx, &rows, query, arg); err != nil {
		return nil, fmt.Errorf("登録一覧取得に失敗: %w", err)
	}
	result := make([]*registration.Registration, 0, len(rows))
	for i := range rows {
		reg, err := rows[i].toEntity()
		if err != nil {
			return nil, err
		}
		result = append(result, reg)
	}
	return result, nil
}

// CountCreatedSince は since 以降に作成され席を占有している登録数をイベントごとに返す
func (r *RegistrationRepository) CountCreatedSince(ctx context.Context, since time.Time) ([]registration.EventCount, error) {
	var rows []struct {
		EventID string `db:"event_id"`
		Count   int    `db:"count"`
	}
	query := `
		SELECT event_id, COUNT(*) AS count
		FROM registrations
		WHERE created_at >= $1 AND status IN ('registered', 'attended')
		GROUP BY event_id
		ORDER BY count DESC, event_id
	`
	if err := r.db.SelectContext(ctx, &rows, query, since); err != nil {
		return nil, fmt.Errorf("最近の登録数の取得に失敗: %w", err)
	}
	result := make([]registration.EventCount, len(rows))
	for i, row := range rows {
		result[i] = registration.EventCount{EventID: row.EventID, Count: row.Count}
	}
	return result, nil
}

// DeleteByEvent はイベントの登録を削除する
func (r *RegistrationRepository) DeleteByEvent(ctx context.Context, tx transaction.Tx, eventID string) error {
	sqlTx, err := mustTx(tx)
	if err != nil {
		return err
	}
	if _, err := sqlTx.ExecContext(ctx, `DELETE FROM registrations WHERE event_id = $1`, eventID); err != nil {
		return fmt.Errorf("登録削除に失敗: %w", err)
	}
	return nil
}

func marshalRegistration(reg *registration.Registration) ([]byte, []byte, error) {
	items, err := marshalJSON(reg.Items, "[]")
	if err != nil {
		return nil, nil, fmt.Errorf("注文明細の変換に失敗: %w", err)
	}
	answers, err := marshalJSON(reg.FormAnswers, "{}")
	if err != nil {
		return nil, nil, fmt.Errorf("フォーム回答の変換に失敗: %w", err)
	}
	return items, answers, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ registration.Repository = (*RegistrationRepository)(nil)
