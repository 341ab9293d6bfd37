package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-event-registration/internal/api"
	"github.com/sanosuguru/go-event-registration/internal/application"
	"github.com/sanosuguru/go-event-registration/internal/domain/team"
)

// TeamHandler はチーム関連のHTTPハンドラー
type TeamHandler struct {
	teamService TeamServiceInterface
}

// NewTeamHandler はTeamHandlerを作成する
func NewTeamHandler(teamService TeamServiceInterface) *TeamHandler {
	return &TeamHandler{teamService: teamService}
}

// CreateTeamRequest はチーム作成リクエスト
type CreateTeamRequest struct {
	EventID    string `json:"event_id" validate:"required" example:"550e8400-e29b-41d4-a716-446655440000"`
	Name       string `json:"name" validate:"required" example:"Team Rocket"`
	TargetSize int    `json:"target_size" validate:"required,gte=1" example:"4"`
}

// MemberResponse はチームメンバーのレスポンス
type MemberResponse struct {
	UserID   string            `json:"user_id"`
	Status   team.MemberStatus `json:"status"`
	JoinedAt string            `json:"joined_at"`
}

// TeamResponse はチームのレスポンス
type TeamResponse struct {
	ID         string           `json:"id"`
	EventID    string           `json:"event_id"`
	Name       string           `json:"name"`
	LeaderID   string           `json:"leader_id"`
	TargetSize int              `json:"target_size"`
	InviteCode string           `json:"invite_code"`
	Status     team.Status      `json:"status"`
	Members    []MemberResponse `json:"members"`
	SlotsLeft  int              `json:"slots_left"`
	CreatedAt  string           `json:"created_at"`
}

// TeamSummaryResponse は招待コードから参照できる公開情報
type TeamSummaryResponse struct {
	ID         string      `json:"id"`
	EventID    string      `json:"event_id"`
	Name       string      `json:"name"`
	TargetSize int         `json:"target_size"`
	Accepted   int         `json:"accepted"`
	SlotsLeft  int         `json:"slots_left"`
	Status     team.Status `json:"status"`
}

func toTeamResponse(t *team.Team) *TeamResponse {
	members := make([]MemberResponse, len(t.Members))
	for i, m := range t.Members {
		members[i] = MemberResponse{
			UserID:   m.UserID,
			Status:   m.Status,
			JoinedAt: m.JoinedAt.Format(time.RFC3339),
		}
	}
	return &TeamResponse{
		ID:         t.ID,
		EventID:    t.EventID,
		Name:       t.Name,
		LeaderID:   t.LeaderID,
		TargetSize: t.TargetSize,
		InviteCode: t.InviteCode,
		Status:     t.Status,
		Members:    members,
		SlotsLeft:  t.SlotsLeft(),
		CreatedAt:  t.CreatedAt.Format(time.RFC3339),
	}
}

func toTeamResponses(teams []*team.Team) []*TeamResponse {
	responses := make([]*TeamResponse, len(teams))
	for i, t := range teams {
		responses[i] = toTeamResponse(t)
	}
	return responses
}

// Create godoc
// @Summary チームを作成
// @Description 作成者がリーダーになります。目標人数が1なら即座に確定します
// @Tags teams
// @Accept json
// @Produce json
// @Param request body CreateTeamRequest true "チーム情報"
// @Success 201 {object} TeamResponse
// @Failure 400 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse
// @Router /teams [post]
func (h *TeamHandler) Create(c echo.Context) error {
	var req CreateTeamRequest
	if err := bind(c, &req); err != nil {
		return api.WriteError(c, err)
	}
	t, err := h.teamService.Create(c.Request().Context(), principal(c), application.CreateTeamInput{
		EventID:    req.EventID,
		Name:       req.Name,
		TargetSize: req.TargetSize,
	})
	if err != nil {
		return api.WriteError(c, err)
	}
	return c.JSON(http.StatusCreated, toTeamResponse(t))
}

// GetByInvite godoc
// @Summary 招待コードからチームを参照
// @Tags teams
// @Produce json
// @Param code path string true "招待コード"
// @Success 200 {object} TeamSummaryResponse
// @Failure 404 {object} api.ErrorResponse
// @Router /teams/invite/{code} [get]
func (h *TeamHandler) GetByInvite(c echo.Context) error {
	t, err := h.teamService.GetByInviteCode(c.Request().Context(), c.Param("code"))
	if err != nil {
		return api.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, TeamSummaryResponse{
		ID:         t.ID,
		EventID:    t.EventID,
		Name:       t.Name,
		TargetSize: t.TargetSize,
		Accepted:   t.AcceptedCount(),
		SlotsLeft:  t.SlotsLeft(),
		Status:     t.Status,
	})
}

// Join godoc
// @Summary 招待コードでチームに参加
// @Description 目標人数に達した時点で全メンバーの登録がまとめて作成されます
// @Tags teams
// @Produce json
// @Param code path string true "招待コード"
// @Success 200 {object} TeamResponse
// @Failure 404 {object} api.ErrorResponse
// @Failure 409 {object} api.ErrorResponse
// @Router /teams/join/{code} [post]
func (h *TeamHandler) Join(c echo.Context) error {
	t, err := h.teamService.Join(c.Request().Context(), principal(c), c.Param("code"))
	if err != nil {
		return api.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, toTeamResponse(t))
}

// Mine はイベントでの自分のチームを返す
func (h *TeamHandler) Mine(c echo.Context) error {
	t, err := h.teamService.MyTeam(c.Request().Context(), principal(c), c.Param("event_id"))
	if err != nil {
		return api.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, toTeamResponse(t))
}

// ListMine は自分が所属するチームの一覧を返す
func (h *TeamHandler) ListMine(c echo.Context) error {
	teams, err := h.teamService.ListMine(c.Request().Context(), principal(c))
	if err != nil {
		return api.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, toTeamResponses(teams))
}

// ListForEvent はイベントのチーム一覧を主催者に返す
func (h *TeamHandler) ListForEvent(c echo.Context) error {
	teams, err := h.teamService.ListForEvent(c.Request().Context(), principal(c), c.Param("id"))
	if err != nil {
		return api.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, toTeamResponses(teams))
}

// Disband はリーダーがチームを解散する
func (h *TeamHandler) Disband(c echo.Context) error {
	t, err := h.teamService.Disband(c.Request().Context(), principal(c), c.Param("id"))
	if err != nil {
		return api.WriteError(c, err)
	}
	return c.JSON(http.StatusOK, toTeamResponse(t))
}
