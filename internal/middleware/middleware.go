package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"radpanel/internal/auth"
	"radpanel/internal/models"
	"radpanel/internal/pkg/marker"
)

const (
	// CookieName carries the session token for browser clients.
	CookieName = "access_token"

	sessionKey = "session"
)

// Authenticator turns a bearer token into a session.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*auth.Session, error)
}

func deny(c echo.Context, code int, msg string) error {
	return c.JSON(code, models.APIResponse{Status: false, Msg: msg})
}

// CORS allows the configured origins. With credentials on, "*" is echoed
// back as the request origin.
func CORS(origins []string) echo.MiddlewareFunc {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     origins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization, "Idempotency-Key"},
		AllowCredentials: true,
	})
}

// RequestLogger logs one line per request.
func RequestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			status := c.Response().Status
			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("path", req.URL.Path),
				zap.Int("status", status),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", c.RealIP()),
			}
			if s := SessionFrom(c); s != nil {
				fields = append(fields, zap.Uint("user_id", s.UserID))
			}
			switch {
			case status >= 500:
				logger.Error("request", append(fields, zap.Error(err))...)
			case status >= 400:
				logger.Warn("request", fields...)
			default:
				logger.Info("request", fields...)
			}
			return nil
		}
	}
}

// TokenFrom reads the bearer header, falling back to the session cookie.
func TokenFrom(c echo.Context) string {
	if h := c.Request().Header.Get(echo.HeaderAuthorization); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := c.Cookie(CookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// Session resolves the caller and enforces policy on every request. A bad
// token leaves the request anonymous so public routes still work.
func Session(authn Authenticator, policy *auth.Policy, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			var sess *auth.Session
			if token := TokenFrom(c); token != "" {
				s, err := authn.Authenticate(req.Context(), token)
				switch {
				case err == nil:
					sess = s
					c.Set(sessionKey, s)
				case errors.Is(err, auth.ErrUnauthenticated):
				case errors.Is(err, auth.ErrUserDisabled):
					if !policy.IsPublic(req.Method, req.URL.Path) {
						return deny(c, http.StatusForbidden, "account is disabled")
					}
				default:
					logger.Error("authenticate request", zap.Error(err))
					return deny(c, http.StatusInternalServerError, "internal error")
				}
			}

			if err := policy.Authorize(sess, req.Method, req.URL.Path); err != nil {
				if errors.Is(err, auth.ErrUnauthenticated) {
					return deny(c, http.StatusUnauthorized, "authentication required")
				}
				return deny(c, http.StatusForbidden, "not allowed for your role")
			}
			return next(c)
		}
	}
}

// SessionFrom returns the session set by Session, or nil for anonymous calls.
func SessionFrom(c echo.Context) *auth.Session {
	s, _ := c.Get(sessionKey).(*auth.Session)
	return s
}

// Idempotency rejects a repeated Idempotency-Key from the same caller within
// ttl. A failed request releases its key so the caller can retry.
func Idempotency(store marker.Store, ttl time.Duration, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := strings.TrimSpace(c.Request().Header.Get("Idempotency-Key"))
			if key == "" || c.Request().Method == http.MethodGet {
				return next(c)
			}
			owner := "anon"
			if s := SessionFrom(c); s != nil {
				owner = strconv.FormatUint(uint64(s.UserID), 10)
			}
			key = "idem:" + owner + ":" + key
			fresh, err := store.Mark(c.Request().Context(), key, ttl)
			if err != nil {
				logger.Warn("idempotency store unavailable", zap.Error(err))
				return next(c)
			}
			if !fresh {
				return deny(c, http.StatusConflict, "duplicate request")
			}

			err = next(c)
			if err != nil || c.Response().Status >= http.StatusBadRequest {
				ctx := context.WithoutCancel(c.Request().Context())
				if relErr := store.Release(ctx, key); relErr != nil {
					logger.Warn("release idempotency key", zap.Error(relErr))
				}
			}
			return err
		}
	}
}
