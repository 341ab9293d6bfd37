package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-event-registration/internal/domain/apperror"
	"github.com/sanosuguru/go-event-registration/internal/pkg/logger"
)

// ErrorResponse はエラーレスポンスの統一フォーマット
type ErrorResponse struct {
	Error string        `json:"error"`
	Code  int           `json:"code,omitempty"`
	Kind  apperror.Kind `json:"kind,omitempty"`
}

// ErrInvalidRequest はリクエストの形式や値が不正であることを表す
var ErrInvalidRequest = apperror.New(apperror.KindValidation, "invalid request")

// StatusFor はエラー分類に対応するHTTPステータスを返す
func StatusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindValidation:
		return http.StatusBadRequest
	case apperror.KindAuth:
		return http.StatusUnauthorized
	case apperror.KindForbidden:
		return http.StatusForbidden
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindConflict, apperror.KindCapacity:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func kindForStatus(code int) apperror.Kind {
	switch code {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return apperror.KindValidation
	case http.StatusUnauthorized:
		return apperror.KindAuth
	case http.StatusForbidden:
		return apperror.KindForbidden
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return apperror.KindNotFound
	case http.StatusConflict:
		return apperror.KindConflict
	default:
		return apperror.KindInternal
	}
}

// Describe はエラーからレスポンスを組み立てる。内部エラーの詳細は返さない
func Describe(err error) ErrorResponse {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		message := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok {
			message = m
		}
		return ErrorResponse{Error: message, Code: he.Code, Kind: kindForStatus(he.Code)}
	}

	kind := apperror.KindOf(err)
	code := StatusFor(kind)
	if code >= http.StatusInternalServerError {
		return ErrorResponse{Error: "内部サーバーエラー", Code: code, Kind: apperror.KindInternal}
	}
	return ErrorResponse{Error: err.Error(), Code: code, Kind: kind}
}

// WriteError はエラーをJSONレスポンスとして書き込む
func WriteError(c echo.Context, err error) error {
	resp := Describe(err)

	// エラーログを出力（5xx エラーの場合）
	if resp.Code >= http.StatusInternalServerError {
		logger.Error("サーバーエラー",
			zap.Int("status", resp.Code),
			zap.String("path", c.Request().URL.Path),
			zap.Error(err),
		)
	}
	return c.JSON(resp.Code, resp)
}

// CustomHTTPErrorHandler はカスタムエラーハンドラー
func CustomHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	if err := WriteError(c, err); err != nil {
		logger.Error("エラーレスポンス送信失敗", zap.Error(err))
	}
}
