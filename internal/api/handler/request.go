package handler

import (
	"fmt"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-event-registration/internal/api"
	"github.com/sanosuguru/go-event-registration/internal/api/middleware"
	"github.com/sanosuguru/go-event-registration/internal/domain/identity"
)

// principal はリクエストの主体を返す。匿名ならゼロ値
func principal(c echo.Context) identity.Principal {
	p, _ := middleware.PrincipalFrom(c)
	return p
}

// bind はリクエストボディを読み込んで検証する
func bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return fmt.Errorf("%w: リクエストの形式が不正です", api.ErrInvalidRequest)
	}
	return c.Validate(req)
}

func pagination(c echo.Context) (int, int) {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	return limit, offset
}

// parseTime は RFC3339 の時刻を解析する。空文字なら nil
func parseTime(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("%w: %s の形式が不正です", api.ErrInvalidRequest, field)
	}
	return &t, nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
