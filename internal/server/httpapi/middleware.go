package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/fedinode/internal/server/auth"
	"github.com/labstack/echo/v4"
)

const subjectKey = "subject"

// accessTokenMiddleware admits requests carrying a valid admin bearer token.
func (s *Server) accessTokenMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing token")
		}

		subject, err := auth.GetSubjectFromToken(token, s.jwtSecret)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
		}

		c.Set(subjectKey, subject)
		return next(c)
	}
}

func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}

		req := c.Request()
		s.logger.Info(req.Context(), "request",
			"method", req.Method,
			"path", req.URL.Path,
			"status", c.Response().Status,
			"duration", time.Since(start),
		)
		return nil
	}
}
