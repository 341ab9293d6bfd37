package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-event-registration/internal/config"
	"github.com/sanosuguru/go-event-registration/internal/domain/identity"
)

var testAuth = config.AuthConfig{JWTSecret: "test-secret", Issuer: "event-registration"}

func TestIssueAndParseToken(t *testing.T) {
	p := identity.Principal{ID: "user-1", Role: identity.RoleParticipant, Internal: true}

	token, err := IssueToken(testAuth, p, time.Hour)
	require.NoError(t, err)

	got, err := ParseToken(testAuth, token)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	t.Run("秘密鍵なしでは発行しない", func(t *testing.T) {
		_, err := IssueToken(config.AuthConfig{}, p, time.Hour)
		assert.Error(t, err)
	})
}

func TestParseToken_Rejects(t *testing.T) {
	sign := func(t *testing.T, method jwt.SigningMethod, key interface{}, claims Claims) string {
		t.Helper()
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	valid := func() Claims {
		return Claims{
			Role: identity.RoleOrganizer,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "org-1",
				Issuer:    testAuth.Issuer,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
	}

	expired := valid()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	otherIssuer := valid()
	otherIssuer.Issuer = "someone-else"
	unknownRole := valid()
	unknownRole.Role = "superuser"
	noSubject := valid()
	noSubject.Subject = ""

	tests := []struct {
		name  string
		token string
	}{
		{"期限切れ", sign(t, jwt.SigningMethodHS256, []byte(testAuth.JWTSecret), expired)},
		{"発行者違い", sign(t, jwt.SigningMethodHS256, []byte(testAuth.JWTSecret), otherIssuer)},
		{"未知のロール", sign(t, jwt.SigningMethodHS256, []byte(testAuth.JWTSecret), unknownRole)},
		{"subject なし", sign(t, jwt.SigningMethodHS256, []byte(testAuth.JWTSecret), noSubject)},
		{"別の鍵", sign(t, jwt.SigningMethodHS256, []byte("other-secret"), valid())},
		{"別のアルゴリズム", sign(t, jwt.SigningMethodHS512, []byte(testAuth.JWTSecret), valid())},
		{"形式不正", "not-a-token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseToken(testAuth, tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func newAuthEcho(roles ...identity.Role) *echo.Echo {
	e := echo.New()
	e.Use(Authenticate(testAuth))
	handler := func(c echo.Context) error {
		p, ok := PrincipalFrom(c)
		if !ok {
			return c.String(http.StatusOK, "anonymous")
		}
		return c.String(http.StatusOK, p.ID)
	}
	e.GET("/public", handler)
	e.GET("/protected", handler, RequireRole(roles...))
	return e
}

func TestAuthenticate(t *testing.T) {
	e := newAuthEcho(identity.RoleOrganizer, identity.RoleAdmin)
	organizerToken, err := IssueToken(testAuth, identity.Principal{ID: "org-1", Role: identity.RoleOrganizer}, time.Hour)
	require.NoError(t, err)
	participantToken, err := IssueToken(testAuth, identity.Principal{ID: "user-1", Role: identity.RoleParticipant}, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name     string
		path     string
		header   string
		wantCode int
		wantBody string
	}{
		{"公開ルートは匿名で通る", "/public", "", http.StatusOK, "anonymous"},
		{"公開ルートでも主体を設定", "/public", "Bearer " + organizerToken, http.StatusOK, "org-1"},
		{"不正なトークンは401", "/public", "Bearer broken", http.StatusUnauthorized, ""},
		{"Bearer 以外は401", "/public", "Basic abc", http.StatusUnauthorized, ""},
		{"保護ルートは匿名を拒否", "/protected", "", http.StatusUnauthorized, ""},
		{"ロール違いは403", "/protected", "Bearer " + participantToken, http.StatusForbidden, ""},
		{"許可されたロール", "/protected", "Bearer " + organizerToken, http.StatusOK, "org-1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantBody != "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}
