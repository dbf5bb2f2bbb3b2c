// Package logging builds the process logger and the HTTP access log
// middleware.
package logging

import (
	"os"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// New returns a logrus logger for env.  Production emits JSON; every other
// environment gets human readable text.  An unknown level falls back to info.
func New(env, level string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	if env == "prod" || env == "production" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)
	return log
}

// RequestLogger logs one line per request with status, latency and the
// request id set by echo's RequestID middleware.
func RequestLogger(log logrus.FieldLogger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			req, res := c.Request(), c.Response()
			fields := logrus.Fields{
				"method":     req.Method,
				"path":       c.Path(),
				"uri":        req.RequestURI,
				"status":     res.Status,
				"latency_ms": time.Since(start).Milliseconds(),
				"ip":         c.RealIP(),
				"request_id": res.Header().Get(echo.HeaderXRequestID),
			}
			if uid := c.Get("user_id"); uid != nil {
				fields["user_id"] = uid
			}
			entry := log.WithFields(fields)
			switch {
			case res.Status >= 500:
				entry.Error("request failed")
			case res.Status >= 400:
				entry.Warn("request rejected")
			default:
				entry.Info("request handled")
			}
			return nil
		}
	}
}
