// Package handler implements the HTTP endpoints of the tour booking API.
// Handlers bind input, call repositories within a bounded context, and map
// error variants to status codes through the apperr switch; business rules
// that belong to the data live in the repositories.
package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/siddharthav19/ToursProj/internal/apperr"
)

// dbTimeout bounds every database round trip started from a handler.
const dbTimeoutSeconds = 5

// fail writes the JSON error envelope for a taxonomy error, deriving the
// status code from the variant.
func fail(c echo.Context, err error) error {
	return failMsg(c, err, err.Error())
}

// failMsg is fail with an explicit client-facing message, used where the
// variant's default text is not specific enough.
func failMsg(c echo.Context, err error, msg string) error {
	code := apperr.Status(err)
	status := "fail"
	if code >= http.StatusInternalServerError {
		status = "error"
	}
	return c.JSON(code, echo.Map{"status": status, "message": msg})
}

// internalErr reports an unclassified failure without leaking its details.
func internalErr(c echo.Context, msg string) error {
	return c.JSON(http.StatusInternalServerError, echo.Map{"status": "error", "message": msg})
}
