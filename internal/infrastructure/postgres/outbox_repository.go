package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-event-registration/internal/domain/outbox"
	"github.com/sanosuguru/go-event-registration/internal/domain/transaction"
)

type outboxRow struct {
	ID             string     `db:"id"`
	Topic          string     `db:"topic"`
	EventID        string     `db:"event_id"`
	RegistrationID string     `db:"registration_id"`
	ParticipantID  string     `db:"participant_id"`
	TicketID       string     `db:"ticket_id"`
	TeamID         string     `db:"team_id"`
	Decision       string     `db:"decision"`
	Attempts       int        `db:"attempts"`
	LastError      string     `db:"last_error"`
	CreatedAt      time.Time  `db:"created_at"`
	DeliveredAt    *time.Time `db:"delivered_at"`
}

func (r *outboxRow) toEntity() *outbox.Message {
	return &outbox.Message{
		ID: r.ID, Topic: outbox.Topic(r.Topic), EventID: r.EventID,
		RegistrationID: r.RegistrationID, ParticipantID: r.ParticipantID,
		TicketID: r.TicketID, TeamID: r.TeamID, Decision: r.Decision,
		Attempts: r.Attempts, LastError: r.LastError,
		CreatedAt: r.CreatedAt, DeliveredAt: r.DeliveredAt,
	}
}

// OutboxRepository は通知アウトボックスのPostgreSQL実装
type OutboxRepository struct{ db *sqlx.DB }

// NewOutboxRepository はOutboxRepositoryを作成する
func NewOutboxRepository(db *sqlx.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// Enqueue はトランザクション内で通知を記録する
func (r *OutboxRepository) Enqueue(ctx context.Context, tx transaction.Tx, msgs ...*outbox.Message) error {
	sqlTx, err := mustTx(tx)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO outbox_messages (id, topic, event_id, registration_id, participant_id, ticket_id, team_id, decision, created_at)
		VALUES (:id, :topic, :event_id, :registration_id, :participant_id, :ticket_id, :team_id, :decision, :created_at)
	`
	for _, m := range msgs {
		row := outboxRow{
			ID: m.ID, Topic: string(m.Topic), EventID: m.EventID, RegistrationID: m.RegistrationID,
			ParticipantID: m.ParticipantID, TicketID: m.TicketID, TeamID: m.TeamID,
			Decision: m.Decision, CreatedAt: m.CreatedAt,
		}
		if _, err := sqlTx.NamedExecContext(ctx, query, row); err != nil {
			return fmt.Errorf("通知の記録に失敗: %w", err)
		}
	}
	return nil
}

// FetchPending は配信を断念していない未配信の通知を取得する
func (r *OutboxRepository) FetchPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	var rows []outboxRow
	query := `
		SELECT id, topic, event_id, registration_id, participant_id, ticket_id, team_id, decision, attempts, last_error, created_at, delivered_at
		FROM outbox_messages
		WHERE delivered_at IS NULL AND attempts < $2
		ORDER BY created_at
		LIMIT $1
	`
	if err := r.db.SelectContext(ctx, &rows, query, limit, outbox.MaxAttempts); err != nil {
		return nil, fmt.Errorf("未配信通知の取得に失敗: %w", err)
	}
	result := make([]*outbox.Message, len(rows))
	for i := range rows {
		result[i] = rows[i].toEntity()
	}
	return result, nil
}

// MarkDelivered は通知を配信済みにする
func (r *OutboxRepository) MarkDelivered(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE outbox_messages SET delivered_at = NOW(), attempts = attempts + 1 WHERE id = $1`, id); err != nil {
		return fmt.Errorf("配信済み更新に失敗: %w", err)
	}
	return nil
}

// MarkFailed は配信失敗を記録する
func (r *OutboxRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE outbox_messages SET attempts = attempts + 1, last_error = $2 WHERE id = $1`, id, reason); err != nil {
		return fmt.Errorf("配信失敗の記録に失敗: %w", err)
	}
	return nil
}

var _ outbox.Repository = (*OutboxRepository)(nil)
