package middleware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-event-registration/internal/api"
	"github.com/sanosuguru/go-event-registration/internal/config"
	"github.com/sanosuguru/go-event-registration/internal/domain/apperror"
	"github.com/sanosuguru/go-event-registration/internal/domain/identity"
)

const principalKey = "principal"

var (
	ErrUnauthenticated = apperror.New(apperror.KindAuth, "authentication required")
	ErrInvalidToken    = apperror.New(apperror.KindAuth, "invalid bearer token")
	ErrRoleNotAllowed  = apperror.New(apperror.KindForbidden, "role is not allowed for this operation")
)

// Claims はBearerトークンのクレーム。sub が主体のID
type Claims struct {
	Role     identity.Role `json:"role"`
	Internal bool          `json:"internal,omitempty"`
	jwt.RegisteredClaims
}

// IssueToken は主体を表すHS256トークンを発行する
func IssueToken(cfg config.AuthConfig, p identity.Principal, ttl time.Duration) (string, error) {
	if cfg.JWTSecret == "" {
		return "", errors.New("AUTH_JWT_SECRET が設定されていません")
	}
	now := time.Now()
	claims := Claims{
		Role:     p.Role,
		Internal: p.Internal,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			Issuer:    cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
}

// ParseToken はトークンを検証して主体を返す
func ParseToken(cfg config.AuthConfig, raw string) (identity.Principal, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	}, opts...)
	if err != nil {
		return identity.Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return identity.Principal{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	switch claims.Role {
	case identity.RoleParticipant, identity.RoleOrganizer, identity.RoleAdmin:
	default:
		return identity.Principal{}, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}
	return identity.Principal{ID: claims.Subject, Role: claims.Role, Internal: claims.Internal}, nil
}

// Authenticate はBearerトークンから主体を取り出してコンテキストに設定する。
// ヘッダーがなければ匿名として続行し、不正なトークンは 401 にする
func Authenticate(cfg config.AuthConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return next(c)
			}
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || cfg.JWTSecret == "" {
				return api.WriteError(c, ErrInvalidToken)
			}
			p, err := ParseToken(cfg, strings.TrimSpace(raw))
			if err != nil {
				return api.WriteError(c, err)
			}
			SetPrincipal(c, p)
			return next(c)
		}
	}
}

// RequireRole は認証済みで指定ロールのいずれかを持つ主体のみ通す
func RequireRole(roles ...identity.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFrom(c)
			if !ok {
				return api.WriteError(c, ErrUnauthenticated)
			}
			for _, r := range roles {
				if p.Role == r {
					return next(c)
				}
			}
			return api.WriteError(c, fmt.Errorf("%w: %s", ErrRoleNotAllowed, p.Role))
		}
	}
}

// SetPrincipal は主体をコンテキストに設定する
func SetPrincipal(c echo.Context, p identity.Principal) {
	c.Set(principalKey, p)
}

// PrincipalFrom はコンテキストの主体を返す。匿名なら false
func PrincipalFrom(c echo.Context) (identity.Principal, bool) {
	p, ok := c.Get(principalKey).(identity.Principal)
	return p, ok
}
