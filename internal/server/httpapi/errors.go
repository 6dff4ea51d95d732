package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/fedinode/internal/activitypub"
	"github.com/dmitrijs2005/fedinode/internal/common"
	"github.com/labstack/echo/v4"
)

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrorAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, common.ErrKeyRevoked):
		return http.StatusGone
	case errors.Is(err, common.ErrorValidation),
		errors.Is(err, common.ErrForeignActor),
		errors.Is(err, activitypub.ErrInvalidDocument):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := http.StatusText(code)

	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
	} else {
		code = statusFor(err)
		if code == http.StatusInternalServerError {
			s.logger.Error(c.Request().Context(), "request failed", "path", c.Request().URL.Path, "error", err)
		} else {
			msg = err.Error()
		}
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, map[string]string{"error": msg})
}
