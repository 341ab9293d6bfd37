package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-event-registration/internal/api"
	"github.com/sanosuguru/go-event-registration/internal/application"
	"github.com/sanosuguru/go-event-registration/internal/domain/event"
	"github.com/sanosuguru/go-event-registration/internal/domain/registration"
)

// RegistrationHandler は参加登録関連のHTTPハンドラー
type RegistrationHandler struct {
	registrationService RegistrationServiceInterface
}

// NewRegistrationHandler はRegistrationHandlerを作成する
func NewRegistrationHandler(registrationService RegistrationServiceInterface) *RegistrationHandler {
	return &RegistrationHandler{registrationService: registrationService}
}

// SelectionRequest は商品の選択
type SelectionRequest struct {
	ItemIndex int    `json:"item_index" validate:"gte=0"`
	Size      string `json:"size"`
	Color     string `json:"color"`
	Quantity  int    `json:"quantity" validate:"gte=1,lte=1000"`
}

// RegisterRequest は参加登録リクエスト
type RegisterRequest struct {
	FormAnswers map[string]string  `json:"form_answers"`
	Selections  []SelectionRequest `json:"selections" validate:"dive"`
}

// ProofRequest は支払い証明の提出リクエスト
type ProofRequest struct {
	ProofRef string `json:"proof_ref" validate:"required" example:"uploads/receipt-123.png"`
}

// DecisionRequest は支払い判定リクエスト
type DecisionRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject" example:"approve"`
}

// RegistrationResponse は登録のレスポンス
type RegistrationResponse struct {
	ID               string                     `json:"id"`
	EventID          string                     `json:"event_id"`
	ParticipantID    string                     `json:"participant_id"`
	Status           registration.Status        `json:"status"`
	PaymentStatus    registration.PaymentStatus `json:"payment_status"`
	Items            []registration.LineItem    `json:"items,omitempty"`
	TotalAmount      int                        `json:"total_amount"`
	TicketID         string                     `json:"ticket_id"`
	TeamID           string                     `json:"team_id,omitempty"`
	FormAnswers      map[string]string          `json:"form_answers,omitempty"`
	PaymentProof     string                     `json:"payment_proof,omitempty"`
	PaymentDecidedAt string                     `json:"payment_decided_at,omitempty"`
	AttendedAt       string                     `json:"attended_at,omitempty"`
	CancelledAt      string                     `json:"cancelled_at,omitempty"`
	CreatedAt        string                     `json:"created_at"`
}

func toRegistrationResponse(r *registration.Registration) *RegistrationResponse {
	return &RegistrationResponse{
		ID:               r.ID,
		EventID:          r.EventID,
		ParticipantID:    r.ParticipantID,
		Status:           r.Status,
		PaymentStatus:    r.PaymentStatus,
		Items:            r.Items,
		TotalAmount:      r.TotalAmount,
		TicketID:         r.TicketID,
		TeamID:           r.TeamID,
		FormAnswers:      r.FormAnswers,
		PaymentProof:     r.PaymentProof,
		PaymentDecidedAt: formatTime(r.PaymentDecidedAt),
		AttendedAt:       formatTime(r.AttendedAt),
		CancelledAt:      formatTime(r.CancelledAt),
		CreatedAt:        r.CreatedAt.Format(time.RFC3339),
	}
}

func toRegistrationResponses(regs []*registration.Registration) []*RegistrationResponse {
	responses := make([]*RegistrationResponse, len(regs))
	for i, r := range regs {
		responses[i] = toRegistrationResponse(r)
	}
	return responses
}

// Register godoc
// @Summary イベントに参加登録
// @Description 定員と在庫を確認し、チケットを発行します
// @Tags registrations
// @Accept json
// @Produce json
// @Param id path string true "イベントID"
// @Param request body RegisterRequest true "フォーム回答と商品選択"
// @Success 201 {object} RegistrationResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse "満席・在庫切れ・登録済み"
// @Router /events/{id}/registrations [post]
func (h *RegistrationHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := bind(c, &req); err != nil {
		return api.WriteError(c, err)
	}

	input := application.RegisterInput{
		EventID:     c.Param("id"),
		FormAnswers: req.FormAnswers,
	}
	for _, s := range req.Selections {
		input.Selections = append(input.Selections, event.Selection{
			ItemIndex: s.ItemIndex,
			Size:      s.Size,
			Color:     s.Color,
			Quantity:  s.Quantity,
		})
	}

	reg, err := h.registrationService.Register(c.Request().Context(), principal(c), input)
	if err != nil {
		return api.WriteError(c, err)
	}
	return c.JSON(http.StatusCreated, toRegistrationResponse(reg))
}

// Cancel godoc
// @Summary 参加登録をキャンセル
// @Tags registrations
// @Param id path string true "イベントID"
// @Success 204
// @Failure 404 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse
// @Router /events/{id}/registrations [delete]
func (h *RegistrationHandler) Cancel(c echo.Context) error {
	if err := h.registrationService.Cancel(c.Request().Context(), principal(c), c.Param("id")); err != nil {
		return api.WriteError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListMine は自分の登録一覧を返す
func (h *RegistrationHandler) ListMine(c echo.Context) error {
	regs, err := h.registrationService.ListMine(c.Request().Context(), principal(c))
	if err != nil {
		return api.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, toRegistrationResponses(regs))
}

// Get は登録を1件返す。本人とイベントの主催者のみ参照できる
func (h *RegistrationHandler) Get(c echo.Context) error {
	reg, err := h.registrationService.Get(c.Request().Context(), principal(c), c.Param("id"))
	if err != nil {
		return api.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, toRegistrationResponse(reg))
}

// ListForEvent はイベントの登録一覧を主催者に返す
func (h *RegistrationHandler) ListForEvent(c echo.Context) error {
	regs, err := h.registrationService.ListForEvent(c.Request().Context(), principal(c), c.Param("id"))
	if err != nil {
		return api.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, toRegistrationResponses(regs))
}

// UploadProof godoc
// @Summary 支払い証明を提出
// @Tags registrations
// @Accept json
// @Produce json
// @Param id path string true "登録ID"
// @Param request body ProofRequest true "証明の参照"
// @Success 200 {object} RegistrationResponse
// @Failure 409 {object} api.ErrorResponse
// @Router /registrations/{id}/payment-proof [post]
func (h *RegistrationHandler) UploadProof(c echo.Context) error {
	var req ProofRequest
	if err := bind(c, &req); err != nil {
		return api.WriteError(c, err)
	}
	reg, err := h.registrationService.UploadProof(c.Request().Context(), principal(c), c.Param("id"), req.ProofRef)
	if err != nil {
		return api.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, toRegistrationResponse(reg))
}

// DecidePayment godoc
// @Summary 支払いを承認または却下
// @Description 承認すると在庫を確定します。却下された参加者は証明を再提出できます
// @Tags registrations
// @Accept json
// @Produce json
// @Param id path string true "登録ID"
// @Param request body DecisionRequest true "判定"
// @Success 200 {object} RegistrationResponse
// @Failure 403 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse
// @Router /registrations/{id}/payment [patch]
func (h *RegistrationHandler) DecidePayment(c echo.Context) error {
	var req DecisionRequest
	if err := bind(c, &req); err != nil {
		return api.WriteError(c, err)
	}
	reg, err := h.registrationService.DecidePayment(c.Request().Context(), principal(c), c.Param("id"), registration.Decision(req.Decision))
	if err != nil {
		return api.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, toRegistrationResponse(reg))
}

// MarkAttended は出席を記録する
func (h *RegistrationHandler) MarkAttended(c echo.Context) error {
	reg, err := h.registrationService.MarkAttended(c.Request().Context(), principal(c), c.Param("id"))
	if err != nil {
		return api.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, toRegistrationResponse(reg))
}
