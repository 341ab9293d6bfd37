package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-event-registration/internal/api"
	"github.com/sanosuguru/go-event-registration/internal/application"
	"github.com/sanosuguru/go-event-registration/internal/domain/feedback"
)

// FeedbackHandler は評価関連のHTTPハンドラー
type FeedbackHandler struct {
	feedbackService FeedbackServiceInterface
}

// NewFeedbackHandler はFeedbackHandlerを作成する
func NewFeedbackHandler(feedbackService FeedbackServiceInterface) *FeedbackHandler {
	return &FeedbackHandler{feedbackService: feedbackService}
}

// FeedbackRequest は評価の投稿リクエスト
type FeedbackRequest struct {
	Rating  int    `json:"rating" validate:"gte=1,lte=5" example:"5"`
	Comment string `json:"comment" example:"Great sessions"`
}

// FeedbackResponse は参加者自身の評価
type FeedbackResponse struct {
	EventID   string `json:"event_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
	CreatedAt string `json:"created_at"`
}

func toFeedbackResponse(f *feedback.Feedback) *FeedbackResponse {
	return &FeedbackResponse{
		EventID:   f.EventID,
		Rating:    f.Rating,
		Comment:   f.Comment,
		CreatedAt: f.CreatedAt.Format(time.RFC3339),
	}
}

// Submit godoc
// @Summary イベントを評価
// @Description 出席済みの参加者が1回だけ評価を投稿します
// @Tags feedback
// @Accept json
// @Produce json
// @Param id path string true "イベントID"
// @Param request body FeedbackRequest true "評価"
// @Success 201 {object} FeedbackResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 403 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse
// @Router /events/{id}/feedback [post]
func (h *FeedbackHandler) Submit(c echo.Context) error {
	var req FeedbackRequest
	if err := bind(c, &req); err != nil {
		return api.WriteError(c, err)
	}
	f, err := h.feedbackService.Submit(c.Request().Context(), principal(c), c.Param("id"), application.SubmitFeedbackInput{
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		return api.WriteError(c, err)
	}
	return c.JSON(http.StatusCreated, toFeedbackResponse(f))
}

// Mine は参加者自身の評価を返す
func (h *FeedbackHandler) Mine(c echo.Context) error {
	f, err := h.feedbackService.Mine(c.Request().Context(), principal(c), c.Param("id"))
	if err != nil {
		return api.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, toFeedbackResponse(f))
}

// Report godoc
// @Summary イベントの評価一覧と集計
// @Description 参加者を伏せた評価を新しい順に返します
// @Tags feedback
// @Produce json
// @Param id path string true "イベントID"
// @Success 200 {object} application.FeedbackReport
// @Failure 403 {object} api.ErrorResponse
// @Router /events/{id}/feedback [get]
func (h *FeedbackHandler) Report(c echo.Context) error {
	r, err := h.feedbackService.Report(c.Request().Context(), principal(c), c.Param("id"))
	if err != nil {
		return api.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, r)
}
