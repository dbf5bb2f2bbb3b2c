// Package handler exposes the HTTP handlers of the ticketing API.
// Handlers decode requests, call the service layer and translate domain
// errors into the {"error","code"} envelope.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/venuex-ticketing/internal/domain"
	"github.com/iliyamo/venuex-ticketing/internal/middleware"
	"github.com/iliyamo/venuex-ticketing/internal/service"
)

const requestTimeout = 5 * time.Second

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), requestTimeout)
}

// writeError renders err with the status and code of its domain fault.
// Errors outside the taxonomy are logged and reported as 500.
func writeError(c echo.Context, err error) error {
	f, ok := domain.FaultOf(err)
	if !ok {
		if errors.Is(err, context.DeadlineExceeded) {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "request timed out", "code": "upstream_unavailable"})
		}
		logrus.WithError(err).WithField("path", c.Path()).Error("unhandled error")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error", "code": "internal"})
	}
	msg := f.Err.Error()
	if errors.Is(err, domain.ErrInvalidInput) {
		msg = err.Error()
	}
	return c.JSON(f.Status, echo.Map{"error": msg, "code": f.Code})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg, "code": "invalid_input"})
}

// actor returns the authenticated caller.  Routes are wrapped in
// JWTAuth, so a missing identity is reported as unauthenticated.
func actor(c echo.Context) (service.Actor, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return service.Actor{}, domain.ErrUnauthenticated
	}
	return service.Actor{ID: id, Roles: middleware.Roles(c)}, nil
}

func idParam(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}
