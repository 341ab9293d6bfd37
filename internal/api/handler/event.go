package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-event-registration/internal/api"
	"github.com/sanosuguru/go-event-registration/internal/application"
	"github.com/sanosuguru/go-event-registration/internal/domain/event"
)

// EventHandler はイベント関連のHTTPハンドラー
type EventHandler struct {
	eventService EventServiceInterface
}

// NewEventHandler はEventHandlerを作成する
func NewEventHandler(eventService EventServiceInterface) *EventHandler {
	return &EventHandler{eventService: eventService}
}

// CreateEventRequest はイベント作成リクエスト
type CreateEventRequest struct {
	Title                string                  `json:"title" validate:"required" example:"Tech Fest 2026"`
	Description          string                  `json:"description" example:"Annual technical festival"`
	Venue                string                  `json:"venue" validate:"required" example:"Main Auditorium"`
	Kind                 string                  `json:"kind" validate:"omitempty,oneof=normal merchandise" example:"normal"`
	Eligibility          string                  `json:"eligibility" example:"Open to all"`
	StartAt              string                  `json:"start_at" validate:"required" example:"2026-12-01T10:00:00+05:30"`
	EndAt                string                  `json:"end_at" example:"2026-12-01T18:00:00+05:30"`
	RegistrationDeadline string                  `json:"registration_deadline" example:"2026-11-25T23:59:59+05:30"`
	SeatLimit            int                     `json:"seat_limit" validate:"gte=0" example:"200"`
	RegistrationFee      int                     `json:"registration_fee" validate:"gte=0" example:"0"`
	FormFields           []event.FormField       `json:"form_fields"`
	Items                []event.MerchandiseItem `json:"items"`
	PurchaseLimit        int                     `json:"purchase_limit" validate:"gte=0"`
	TeamMode             bool                    `json:"team_mode"`
	MinTeamSize          int                     `json:"min_team_size" validate:"gte=0"`
	MaxTeamSize          int                     `json:"max_team_size" validate:"gte=0"`
	Submit               bool                    `json:"submit"`
}

// UpdateEventRequest はイベント更新リクエスト。省略した項目は変更しない
type UpdateEventRequest struct {
	Title                *string                 `json:"title"`
	Description          *string                 `json:"description"`
	Venue                *string                 `json:"venue"`
	Eligibility          *string                 `json:"eligibility"`
	Kind                 *string                 `json:"kind" validate:"omitempty,oneof=normal merchandise"`
	StartAt              *string                 `json:"start_at"`
	EndAt                *string                 `json:"end_at"`
	RegistrationDeadline *string                 `json:"registration_deadline"`
	ClearDeadline        bool                    `json:"clear_deadline"`
	SeatLimit            *int                    `json:"seat_limit" validate:"omitempty,gte=0"`
	RegistrationFee      *int                    `json:"registration_fee" validate:"omitempty,gte=0"`
	FormFields           []event.FormField       `json:"form_fields"`
	Items                []event.MerchandiseItem `json:"items"`
	PurchaseLimit        *int                    `json:"purchase_limit" validate:"omitempty,gte=0"`
	TeamMode             *bool                   `json:"team_mode"`
	MinTeamSize          *int                    `json:"min_team_size" validate:"omitempty,gte=0"`
	MaxTeamSize          *int                    `json:"max_team_size" validate:"omitempty,gte=0"`
}

// StatusRequest は状態変更リクエスト
type StatusRequest struct {
	Status string `json:"status" validate:"required" example:"approved"`
}

// EventResponse はイベントのレスポンス
type EventResponse struct {
	ID                   string                  `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	OrganizerID          string                  `json:"organizer_id"`
	Title                string                  `json:"title"`
	Description          string                  `json:"description"`
	Venue                string                  `json:"venue"`
	Kind                 event.Kind              `json:"kind"`
	Status               event.Status            `json:"status"`
	ClosedReason         event.ClosedReason      `json:"closed_reason,omitempty"`
	Eligibility          string                  `json:"eligibility"`
	StartAt              string                  `json:"start_at"`
	EndAt                string                  `json:"end_at,omitempty"`
	RegistrationDeadline string                  `json:"registration_deadline,omitempty"`
	SeatLimit            int                     `json:"seat_limit"`
	RegistrationFee      int                     `json:"registration_fee"`
	FormFields           []event.FormField       `json:"form_fields,omitempty"`
	Items                []event.MerchandiseItem `json:"items,omitempty"`
	PurchaseLimit        int                     `json:"purchase_limit,omitempty"`
	TeamMode             bool                    `json:"team_mode"`
	MinTeamSize          int                     `json:"min_team_size,omitempty"`
	MaxTeamSize          int                     `json:"max_team_size,omitempty"`
	FormLocked           bool                    `json:"form_locked"`
	CreatedAt            string                  `json:"created_at"`
	UpdatedAt            string                  `json:"updated_at"`
}

func toEventResponse(e *event.Event) *EventResponse {
	return &EventResponse{
		ID:                   e.ID,
		OrganizerID:          e.OrganizerID,
		Title:                e.Title,
		Description:          e.Description,
		Venue:                e.Venue,
		Kind:                 e.Kind,
		Status:               e.Status,
		ClosedReason:         e.ClosedReason,
		Eligibility:          e.Eligibility,
		StartAt:              e.StartAt.Format(time.RFC3339),
		EndAt:                formatTime(e.EndAt),
		RegistrationDeadline: formatTime(e.RegistrationDeadline),
		SeatLimit:            e.SeatLimit,
		RegistrationFee:      e.RegistrationFee,
		FormFields:           e.FormFields,
		Items:                e.Items,
		PurchaseLimit:        e.PurchaseLimit,
		TeamMode:             e.TeamMode,
		MinTeamSize:          e.MinTeamSize,
		MaxTeamSize:          e.MaxTeamSize,
		FormLocked:           e.FormLocked,
		CreatedAt:            e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:            e.UpdatedAt.Format(time.RFC3339),
	}
}

func toEventResponses(events []*event.Event) []*EventResponse {
	responses := make([]*EventResponse, len(events))
	for i, e := range events {
		responses[i] = toEventResponse(e)
	}
	return responses
}

func (r *CreateEventRequest) toInput() (application.CreateEventInput, error) {
	startAt, err := parseTime("start_at", r.StartAt)
	if err != nil {
		return application.CreateEventInput{}, err
	}
	endAt, err := parseTime("end_at", r.EndAt)
	if err != nil {
		return application.CreateEventInput{}, err
	}
	deadline, err := parseTime("registration_deadline", r.RegistrationDeadline)
	if err != nil {
		return application.CreateEventInput{}, err
	}
	return application.CreateEventInput{
		Details: event.Details{
			Title:                r.Title,
			Description:          r.Description,
			Venue:                r.Venue,
			Kind:                 event.Kind(r.Kind),
			Eligibility:          r.Eligibility,
			StartAt:              *startAt,
			EndAt:                endAt,
			RegistrationDeadline: deadline,
			SeatLimit:            r.SeatLimit,
			RegistrationFee:      r.RegistrationFee,
			FormFields:           r.FormFields,
			Items:                r.Items,
			PurchaseLimit:        r.PurchaseLimit,
			TeamMode:             r.TeamMode,
			MinTeamSize:          r.MinTeamSize,
			MaxTeamSize:          r.MaxTeamSize,
		},
		Submit: r.Submit,
	}, nil
}

func (r *UpdateEventRequest) toUpdate() (event.Update, error) {
	u := event.Update{
		Title:           r.Title,
		Description:     r.Description,
		Venue:           r.Venue,
		Eligibility:     r.Eligibility,
		ClearDeadline:   r.ClearDeadline,
		SeatLimit:       r.SeatLimit,
		RegistrationFee: r.RegistrationFee,
		FormFields:      r.FormFields,
		Items:           r.Items,
		PurchaseLimit:   r.PurchaseLimit,
		TeamMode:        r.TeamMode,
		MinTeamSize:     r.MinTeamSize,
		MaxTeamSize:     r.MaxTeamSize,
	}
	if r.Kind != nil {
		kind := event.Kind(*r.Kind)
		u.Kind = &kind
	}
	times := []struct {
		field string
		in    *string
		out   **time.Time
	}{
		{"start_at", r.StartAt, &u.StartAt},
		{"end_at", r.EndAt, &u.EndAt},
		{"registration_deadline", r.RegistrationDeadline, &u.RegistrationDeadline},
	}
	for _, tt := range times {
		if tt.in == nil {
			continue
		}
		t, err := parseTime(tt.field, *tt.in)
		if err != nil {
			return event.Update{}, err
		}
		*tt.out = t
	}
	return u, nil
}

// Create godoc
// @Summary イベントを作成
// @Description 主催者が新しいイベントを作成します。submit=true なら承認申請まで行います
// @Tags events
// @Accept json
// @Produce json
// @Param request body CreateEventRequest true "イベント情報"
// @Success 201 {object} EventResponse
// @Failure 400 {object} api.ErrorResponse
// @Router /events [post]
func (h *EventHandler) Create(c echo.Context) error {
	var req CreateEventRequest
	if err := bind(c, &req); err != nil {
		return api.WriteError(c, err)
	}
	input, err := req.toInput()
	if err != nil {
		return api.WriteError(c, err)
	}

	e, err := h.eventService.CreateEvent(c.Request().Context(), principal(c), input)
	if err != nil {
		return api.WriteError(c, err)
	}
	return c.JSON(http.StatusCreated, toEventResponse(e))
}

// GetByID godoc
// @Summary イベントを取得
// @Tags events
// @Produce json
// @Param id path string true "イベントID"
// @Success 200 {object} EventResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /events/{id} [get]
func (h *EventHandler) GetByID(c echo.Context) error {
	e, err := h.eventService.GetEvent(c.Request().Context(), principal(c), c.Param("id"))
	if err != nil {
		return api.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, toEventResponse(e))
}

// List godoc
// @Summary 公開中のイベントを検索
// @Tags events
// @Produce json
// @Param kind query string false "種別 (normal, merchandise)"
// @Param q query string false "タイトルと説明の部分一致"
// @Param eligibility query string false "参加資格の部分一致"
// @Param from query string false "開始日時の下限 (RFC3339)"
// @Param to query string false "開始日時の上限 (RFC3339)"
// @Param limit query int false "取得件数" default(20)
// @Param offset query int false "オフセット" default(0)
// @Success 200 {array} EventResponse
// @Failure 400 {object} api.ErrorResponse
// @Router /events [get]
func (h *EventHandler) List(c echo.Context) error {
	from, err := parseTime("from", c.QueryParam("from"))
	if err != nil {
		return api.WriteError(c, err)
	}
	to, err := parseTime("to", c.QueryParam("to"))
	if err != nil {
		return api.WriteError(c, err)
	}
	q := application.EventQuery{
		Kind:        event.Kind(c.QueryParam("kind")),
		Text:        c.QueryParam("q"),
		Eligibility: c.QueryParam("eligibility"),
		From:        from,
		To:          to,
	}

	limit, offset := pagination(c)
	events, err := h.eventService.ListEvents(c.Request().Context(), q, limit, offset)
	if err != nil {
		return api.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, toEventResponses(events))
}

// TrendingEventResponse は直近の登録数つきのイベント
type TrendingEventResponse struct {
	*EventResponse
	RecentRegistrations int `json:"recent_registrations"`
}

// Trending godoc
// @Summary 直近24時間に登録の多いイベント
// @Tags events
// @Produce json
// @Success 200 {array} TrendingEventResponse
// @Router /events/trending [get]
func (h *EventHandler) Trending(c echo.Context) error {
	trending, err := h.eventService.Trending(c.Request().Context())
	if err != nil {
		return api.WriteError(c, err)
	}
	resp := make([]TrendingEventResponse, len(trending))
	for i, t := range trending {
		resp[i] = TrendingEventResponse{EventResponse: toEventResponse(t.Event), RecentRegistrations: t.RecentRegistrations}
	}
	return c.JSON(http.StatusOK, resp)
}

// ListMine は主催者自身のイベント一覧を返す
func (h *EventHandler) ListMine(c echo.Context) error {
	limit, offset := pagination(c)
	events, err := h.eventService.ListMine(c.Request().Context(), principal(c), limit, offset)
	if err != nil {
		return api.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, toEventResponses(events))
}

// ListPendingReview は承認待ちのイベント一覧を返す
func (h *EventHandler) ListPendingReview(c echo.Context) error {
	limit, offset := pagination(c)
	events, err := h.eventService.ListPendingReview(c.Request().Context(), principal(c), limit, offset)
	if err != nil {
		return api.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, toEventResponses(events))
}

// Update godoc
// @Summary イベントを更新
// @Description 状態に応じた編集ルールでイベントを更新します
// @Tags events
// @Accept json
// @Produce json
// @Param id path string true "イベントID"
// @Param request body UpdateEventRequest true "変更する項目"
// @Success 200 {object} EventResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse
// @Router /events/{id} [put]
func (h *EventHandler) Update(c echo.Context) error {
	var req UpdateEventRequest
	if err := bind(c, &req); err != nil {
		return api.WriteError(c, err)
	}
	u, err := req.toUpdate()
	if err != nil {
		return api.WriteError(c, err)
	}

	e, err := h.eventService.UpdateEvent(c.Request().Context(), principal(c), c.Param("id"), u)
	if err != nil {
		return api.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, toEventResponse(e))
}

// ChangeStatus は主催者による状態変更
func (h *EventHandler) ChangeStatus(c echo.Context) error {
	var req StatusRequest
	if err := bind(c, &req); err != nil {
		return api.WriteError(c, err)
	}
	e, err := h.eventService.ChangeStatus(c.Request().Context(), principal(c), c.Param("id"), event.Status(req.Status))
	if err != nil {
		return api.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, toEventResponse(e))
}

// Review は管理者による承認・却下
func (h *EventHandler) Review(c echo.Context) error {
	var req StatusRequest
	if err := bind(c, &req); err != nil {
		return api.WriteError(c, err)
	}
	e, err := h.eventService.Review(c.Request().Context(), principal(c), c.Param("id"), event.Status(req.Status))
	if err != nil {
		return api.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, toEventResponse(e))
}

// Delete godoc
// @Summary イベントを削除
// @Description イベントと関連する登録・チームを削除します
// @Tags events
// @Param id path string true "イベントID"
// @Success 204
// @Failure 403 {object} api.ErrorResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /events/{id} [delete]
func (h *EventHandler) Delete(c echo.Context) error {
	if err := h.eventService.DeleteEvent(c.Request().Context(), principal(c), c.Param("id")); err != nil {
		return api.WriteError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Availability godoc
// @Summary 空き状況を取得
// @Tags events
// @Produce json
// @Param id path string true "イベントID"
// @Success 200 {object} application.Availability
// @Router /events/{id}/availability [get]
func (h *EventHandler) Availability(c echo.Context) error {
	a, err := h.eventService.GetAvailability(c.Request().Context(), principal(c), c.Param("id"))
	if err != nil {
		return api.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

// Dashboard は主催者の全イベントを通した集計を返す
func (h *EventHandler) Dashboard(c echo.Context) error {
	d, err := h.eventService.Dashboard(c.Request().Context(), principal(c))
	if err != nil {
		return api.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, d)
}

// Analytics は主催者向けの集計を返す
func (h *EventHandler) Analytics(c echo.Context) error {
	a, err := h.eventService.GetAnalytics(c.Request().Context(), principal(c), c.Param("id"))
	if err != nil {
		return api.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, a)
}
