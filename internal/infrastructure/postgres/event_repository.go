package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sanosuguru/go-event-registration/internal/domain/event"
	"github.com/sanosuguru/go-event-registration/internal/domain/transaction"
)

const eventColumns = `id, organizer_id, title, description, venue, kind, status, closed_reason, reopen_status,
	eligibility, start_at, end_at, registration_deadline, seat_limit, registration_fee, form_fields, items,
	purchase_limit, team_mode, min_team_size, max_team_size, form_locked, created_at, updated_at, version`

// eventRow はDBの行を表す構造体
type eventRow struct {
	ID                   string     `db:"id"`
	OrganizerID          string     `db:"organizer_id"`
	Title                string     `db:"title"`
	Description          string     `db:"description"`
	Venue                string     `db:"venue"`
	Kind                 string     `db:"kind"`
	Status               string     `db:"status"`
	ClosedReason         string     `db:"closed_reason"`
	ReopenStatus         string     `db:"reopen_status"`
	Eligibility          string     `db:"eligibility"`
	StartAt              time.Time  `db:"start_at"`
	EndAt                *time.Time `db:"end_at"`
	RegistrationDeadline *time.Time `db:"registration_deadline"`
	SeatLimit            int        `db:"seat_limit"`
	RegistrationFee      int        `db:"registration_fee"`
	FormFields           []byte     `db:"form_fields"`
	Items                []byte     `db:"items"`
	PurchaseLimit        int        `db:"purchase_limit"`
	TeamMode             bool       `db:"team_mode"`
	MinTeamSize          int        `db:"min_team_size"`
	MaxTeamSize          int        `db:"max_team_size"`
	FormLocked           bool       `db:"form_locked"`
	CreatedAt            time.Time  `db:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at"`
	Version              int        `db:"version"`
}

// toEntity はeventRowをEventエンティティに変換する
func (r *eventRow) toEntity() (*event.Event, error) {
	e := &event.Event{
		ID:                   r.ID,
		OrganizerID:          r.OrganizerID,
		Title:                r.Title,
		Description:          r.Description,
		Venue:                r.Venue,
		Kind:                 event.Kind(r.Kind),
		Status:               event.Status(r.Status),
		ClosedReason:         event.ClosedReason(r.ClosedReason),
		ReopenStatus:         event.Status(r.ReopenStatus),
		Eligibility:          r.Eligibility,
		StartAt:              r.StartAt,
		EndAt:                r.EndAt,
		RegistrationDeadline: r.RegistrationDeadline,
		SeatLimit:            r.SeatLimit,
		RegistrationFee:      r.RegistrationFee,
		PurchaseLimit:        r.PurchaseLimit,
		TeamMode:             r.TeamMode,
		MinTeamSize:          r.MinTeamSize,
		MaxTeamSize:          r.MaxTeamSize,
		FormLocked:           r.FormLocked,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
		Version:              r.Version,
	}
	if err := unmarshalJSON(r.FormFields, &e.FormFields); err != nil {
		return nil, fmt.Errorf("フォーム定義の復元に失敗しました: %w", err)
	}
	if err := unmarshalJSON(r.Items, &e.Items); err != nil {
		return nil, fmt.Errorf("商品カタログの復元に失敗しました: %w", err)
	}
	return e, nil
}

// EventRepository はイベントリポジトリのPostgreSQL実装
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository はEventRepositoryを作成する
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create は新しいイベントを作成する
func (r *EventRepository) Create(ctx context.Context, tx transaction.Tx, e *event.Event) error {
	formFields, items, err := marshalCatalog(e)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO events (organizer_id, title, description, venue, kind, status, closed_reason, reopen_status,
			eligibility, start_at, end_at, registration_deadline, seat_limit, registration_fee, form_fields, items,
			purchase_limit, team_mode, min_team_size, max_team_size, form_locked, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)
		RETURNING id
	`
	err = pick(r.db, tx).QueryRowxContext(ctx, query,
		e.OrganizerID, e.Title, e.Description, e.Venue, string(e.Kind), string(e.Status),
		string(e.ClosedReason), string(e.ReopenStatus), e.Eligibility, e.StartAt, e.EndAt,
		e.RegistrationDeadline, e.SeatLimit, e.RegistrationFee, formFields, items,
		e.PurchaseLimit, e.TeamMode, e.MinTeamSize, e.MaxTeamSize, e.FormLocked,
		e.CreatedAt, e.UpdatedAt, e.Version,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("イベント作成に失敗しました: %w", err)
	}
	return nil
}

// GetByID はIDからイベントを取得する
func (r *EventRepository) GetByID(ctx context.Context, id string) (*event.Event, error) {
	return r.get(ctx, r.db, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
}

// GetForUpdate はイベント行をロックして取得する。同一イベントへの書き込みはここで直列化される
func (r *EventRepository) GetForUpdate(ctx context.Context, tx transaction.Tx, id string) (*event.Event, error) {
	sqlTx, err := mustTx(tx)
	if err != nil {
		return nil, err
	}
	return r.get(ctx, sqlTx, `SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`, id)
}

func (r *EventRepository) get(ctx context.Context, q queryer, query, id string) (*event.Event, error) {
	var row eventRow
	if err := q.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, event.ErrEventNotFound
		}
		if isInvalidUUID(err) {
			return nil, event.ErrEventNotFound
		}
		return nil, fmt.Errorf("イベント取得に失敗しました: %w", err)
	}
	return row.toEntity()
}

// List はイベント一覧を取得する
func (r *EventRepository) List(ctx context.Context, filter event.ListFilter, limit, offset int) ([]*event.Event, error) {
	statuses := make([]string, len(filter.Statuses))
	for i, s := range filter.Statuses {
		statuses[i] = string(s)
	}
	query := `
		SELECT ` + eventColumns + `
		FROM events
		WHERE (cardinality($1::text[]) = 0 OR status = ANY($1))
		  AND ($2::text = '' OR organizer_id = $2)
		  AND ($3::text = '' OR kind = $3)
		  AND ($6::text = '' OR title ILIKE $6 OR description ILIKE $6)
		  AND ($7::text = '' OR eligibility ILIKE $7)
		  AND ($8::timestamptz IS NULL OR start_at >= $8)
		  AND ($9::timestamptz IS NULL OR start_at <= $9)
		ORDER BY start_at DESC
		LIMIT NULLIF($4, 0) OFFSET $5
	`
	var rows []eventRow
	err := r.db.SelectContext(ctx, &rows, query,
		pq.Array(statuses), filter.OrganizerID, string(filter.Kind), limit, offset,
		likePattern(filter.Text), likePattern(filter.Eligibility), filter.StartFrom, filter.StartTo,
	)
	if err != nil {
		return nil, fmt.Errorf("イベント一覧取得に失敗しました: %w", err)
	}

	events := make([]*event.Event, 0, len(rows))
	for i := range rows {
		e, err := rows[i].toEntity()
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}

// likePattern は部分一致用に LIKE のメタ文字をエスケープする。空文字なら条件なし
func likePattern(s string) string {
	if s == "" {
		return ""
	}
	return "%" + likeEscaper.Replace(s) + "%"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Update はイベントを更新する（楽観的ロック）。
// フォーム固定後の商品カタログは在庫を保持するため上書きしない
func (r *EventRepository) Update(ctx context.Context, tx transaction.Tx, e *event.Event) error {
	sqlTx, err := mustTx(tx)
	if err != nil {
		return err
	}
	formFields, items, err := marshalCatalog(e)
	if err != nil {
		return err
	}
	query := `
		UPDATE events
		SET title = $1, description = $2, venue = $3, kind = $4, status = $5, closed_reason = $6,
		    reopen_status = $7, eligibility = $8, start_at = $9, end_at = $10, registration_deadline = $11,
		    seat_limit = $12, registration_fee = $13, form_fields = $14,
		    items = CASE WHEN form_locked THEN items ELSE $15::jsonb END,
		    purchase_limit = $16, team_mode = $17, min_team_size = $18, max_team_size = $19,
		    form_locked = $20, updated_at = $21, version = version + 1
		WHERE id = $22 AND version = $23
	`
	result, err := sqlTx.ExecContext(ctx, query,
		e.Title, e.Description, e.Venue, string(e.Kind), string(e.Status), string(e.ClosedReason),
		string(e.ReopenStatus), e.Eligibility, e.StartAt, e.EndAt, e.RegistrationDeadline,
		e.SeatLimit, e.RegistrationFee, formFields, items,
		e.PurchaseLimit, e.TeamMode, e.MinTeamSize, e.MaxTeamSize,
		e.FormLocked, time.Now(), e.ID, e.Version,
	)
	if err != nil {
		return fmt.Errorf("イベント更新に失敗しました: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新結果の確認に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return event.ErrOptimisticLockConflict
	}

	e.Version++
	return nil
}

// AdjustStock はバリエーションの在庫を条件付きで増減する。
// 減算後に負になる場合は更新せず ErrInsufficientStock を返す
func (r *EventRepository) AdjustStock(ctx context.Context, tx transaction.Tx, eventID string, itemIndex int, size, color string, delta int) (int, error) {
	sqlTx, err := mustTx(tx)
	if err != nil {
		return 0, err
	}
	query := `
		WITH v AS (
			SELECT (t.ord - 1) AS idx, (t.elem->>'stock')::int AS stock
			FROM events, jsonb_array_elements(items->$2::int->'variants') WITH ORDINALITY AS t(elem, ord)
			WHERE id = $1 AND t.elem->>'size' = $3 AND t.elem->>'color' = $4
		)
		UPDATE events e
		SET items = jsonb_set(e.items, ARRAY[$2::text, 'variants', v.idx::text, 'stock'], to_jsonb(v.stock + $5)),
		    updated_at = NOW()
		FROM v
		WHERE e.id = $1 AND v.stock + $5 >= 0
		RETURNING v.stock + $5
	`
	var remaining int
	if err := sqlTx.QueryRowxContext(ctx, query, eventID, itemIndex, size, color, delta).Scan(&remaining); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("%w: item %d (%s/%s)", event.ErrInsufficientStock, itemIndex, size, color)
		}
		return 0, fmt.Errorf("在庫更新に失敗しました: %w", err)
	}
	return remaining, nil
}

// Delete はイベントを削除する。登録とチームは外部キーで連鎖削除される
func (r *EventRepository) Delete(ctx context.Context, tx transaction.Tx, id string) error {
	sqlTx, err := mustTx(tx)
	if err != nil {
		return err
	}
	result, err := sqlTx.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("イベント削除に失敗しました: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("削除結果の確認に失敗しました: %w", err)
	}
	if rowsAffected == 0 {
		return event.ErrEventNotFound
	}
	return nil
}

func marshalCatalog(e *event.Event) ([]byte, []byte, error) {
	formFields, err := marshalJSON(e.FormFields, "[]")
	if err != nil {
		return nil, nil, fmt.Errorf("フォーム定義の変換に失敗しました: %w", err)
	}
	items, err := marshalJSON(e.Items, "[]")
	if err != nil {
		return nil, nil, fmt.Errorf("商品カタログの変換に失敗しました: %w", err)
	}
	return formFields, items, nil
}

// marshalJSON は nil の場合 empty を返す
func marshalJSON(v interface{}, empty string) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		return []byte(empty), nil
	}
	return b, nil
}

func unmarshalJSON(b []byte, v interface{}) error {
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, v)
}

// isInvalidUUID は UUID 型への変換エラーかを返す
func isInvalidUUID(err error) bool {
	var pgErr *pq.Error
	return errors.As(err, &pgErr) && pgErr.Code == "22P02"
}

// インターフェースを満たしているか確認
var _ event.Repository = (*EventRepository)(nil)
