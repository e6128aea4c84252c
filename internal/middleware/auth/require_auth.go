package auth

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// RequireAuth validates the HS256 access token (bearer header or
// accessToken cookie) and puts user_id/role into the echo context. Token
// issuance lives in a separate auth service and is not part of this app.
type RequireAuth struct {
	JWTSecret []byte
}

func NewRequireAuth(secret []byte) *RequireAuth {
	return &RequireAuth{JWTSecret: secret}
}

type accessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (m *RequireAuth) Auth(next echo.HandlerFunc) echo.HandlerFunc {
	return m.withValidator(next, nil)
}

func (m *RequireAuth) Admin(next echo.HandlerFunc) echo.HandlerFunc {
	return m.withValidator(next, func(claims *accessClaims) error {
		if claims.Role != "admin" {
			return echo.NewHTTPError(http.StatusForbidden, "admin access required")
		}
		return nil
	})
}

func (m *RequireAuth) withValidator(next echo.HandlerFunc, validator func(*accessClaims) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := tokenFromRequest(c)
		if raw == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
		}

		claims := &accessClaims{}
		token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return m.JWTSecret, nil
		})
		if err != nil || !token.Valid {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
		}

		if validator != nil {
			if err := validator(claims); err != nil {
				return err
			}
		}

		setUserContext(c, claims)
		return next(c)
	}
}

func tokenFromRequest(c echo.Context) string {
	if h := c.Request().Header.Get(echo.HeaderAuthorization); h != "" {
		if after, ok := strings.CutPrefix(h, "Bearer "); ok {
			return after
		}
	}
	if ck, err := c.Cookie("accessToken"); err == nil {
		return ck.Value
	}
	return ""
}

func setUserContext(c echo.Context, claims *accessClaims) {
	c.Set("user_id", claims.Subject)
	c.Set("role", claims.Role)
}
