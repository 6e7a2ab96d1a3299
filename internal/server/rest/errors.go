package rest

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/gophhabits/internal/common"
	"github.com/dmitrijs2005/gophhabits/internal/server/services"
	"github.com/labstack/echo/v4"
)

// statusFor maps an error to the HTTP status and the detail message shown
// to the client.
func statusFor(err error) (int, string) {
	var he *echo.HTTPError

	switch {
	case errors.Is(err, services.ErrHabitNotFound):
		return http.StatusNotFound, "Habit not found"
	case errors.Is(err, services.ErrCompletionNotFound):
		return http.StatusNotFound, "Completion not found"
	case errors.Is(err, services.ErrAbsenceNotFound):
		return http.StatusNotFound, "Absence not found"
	case errors.Is(err, common.ErrorBackupsDisabled):
		return http.StatusNotFound, "Backups disabled"
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, common.ErrorValidation):
		return http.StatusUnprocessableEntity, strings.TrimPrefix(err.Error(), common.ErrorValidation.Error()+": ")
	case errors.As(err, &he):
		return he.Code, fmt.Sprint(he.Message)
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code, detail := statusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error(c.Request().Context(), "request_failed", "error", err)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, ErrorResponse{Detail: detail})
	}
	if err != nil {
		s.logger.Error(c.Request().Context(), "error_response_failed", "error", err)
	}
}

// invalid wraps a request decoding problem as a validation error.
func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", common.ErrorValidation, fmt.Sprintf(format, args...))
}
