package middleware // middleware provides shared request processing for handlers

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/siddharthav19/ToursProj/internal/apperr"
	"github.com/siddharthav19/ToursProj/internal/auth"
	"github.com/siddharthav19/ToursProj/internal/repository"
)

// ContextUserKey is the echo context key under which Protect stores the
// resolved *model.User for downstream handlers and middleware.
const ContextUserKey = "user"

// Protect returns the route guard middleware. It walks the full
// verification chain for every request: extract the bearer token, verify
// its signature and expiry, load the subject, and reject tokens issued
// before the subject's last password change. Each failure halts the request
// with 401; in particular the stale-token case returns immediately rather
// than letting the handler run with a flagged credential.
func Protect(secret string, users *repository.UserRepo) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// 1) the token travels in the Authorization header as
			//    "Bearer <jwt>".
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return unauthenticated(c)
			}
			raw := strings.TrimPrefix(header, "Bearer ")

			// 2) signature check precedes any use of the payload. Expired
			//    and invalid both end the request here.
			claims, err := auth.VerifyToken(raw, secret)
			if err != nil {
				return unauthenticated(c)
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()

			// 3) the subject must still exist; a deleted or deactivated
			//    account invalidates all of its outstanding tokens.
			u, err := users.GetByID(ctx, claims.UserID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return unauthenticated(c)
				}
				return c.JSON(http.StatusInternalServerError, echo.Map{"status": "error", "message": "load user failed"})
			}
			if !u.Active {
				return unauthenticated(c)
			}

			// 4) tokens issued before the last password change are stale.
			if u.ChangedPasswordAfter(claims.IssuedAt) {
				return unauthenticated(c)
			}

			c.Set(ContextUserKey, &u)
			return next(c)
		}
	}
}

func unauthenticated(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{
		"status":  "fail",
		"message": apperr.ErrUnauthenticated.Error(),
	})
}
