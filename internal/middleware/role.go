package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/siddharthav19/ToursProj/internal/apperr"
	"github.com/siddharthav19/ToursProj/internal/model"
)

// RestrictTo returns a middleware that allows only the named roles through.
// It requires the user resolved by Protect; a request without one, or with
// a role outside the allowed set, is rejected with 403.
func RestrictTo(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, ok := c.Get(ContextUserKey).(*model.User)
			if !ok || u == nil || !allowed[u.Role] {
				return c.JSON(http.StatusForbidden, echo.Map{
					"status":  "fail",
					"message": apperr.ErrForbidden.Error(),
				})
			}
			return next(c)
		}
	}
}
