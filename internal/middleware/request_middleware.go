package middleware

import (
	"fmt"
	"runtime/debug"
	"strconv"
	"time"

	"go-stock-ledger/internal/metrics"
	"go-stock-ledger/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// RequestLogger logs one line per request with the request id set by the
// requestid middleware.
func RequestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		handleNext(c)

		status := c.Response().StatusCode()
		var event *zerolog.Event
		switch {
		case status >= fiber.StatusInternalServerError:
			event = logger.Error(c.UserContext())
		case status >= fiber.StatusBadRequest:
			event = logger.Warn(c.UserContext())
		default:
			event = logger.Info(c.UserContext())
		}

		requestID, _ := c.Locals("requestid").(string)
		event.
			Str("request_id", requestID).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("ip", c.IP()).
			Msg("HTTP request")

		return nil
	}
}

// Metrics records request count and latency per route template.
func Metrics(m *metrics.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		handleNext(c)

		route := c.Route().Path
		if route == "" || route == "/" {
			route = "unmatched"
		}
		m.RequestCounter.WithLabelValues(c.Method(), route, strconv.Itoa(c.Response().StatusCode())).Inc()
		m.RequestDuration.WithLabelValues(c.Method(), route).Observe(time.Since(start).Seconds())

		return nil
	}
}

// handleNext runs the rest of the chain and renders any error or panic
// through the app error handler, leaving the final status on the response.
func handleNext(c *fiber.Ctx) {
	if err := recoverNext(c); err != nil {
		if herr := c.App().ErrorHandler(c, err); herr != nil {
			_ = c.SendStatus(fiber.StatusInternalServerError)
		}
	}
}

func recoverNext(c *fiber.Ctx) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(c.UserContext()).
				Str("panic", fmt.Sprint(r)).
				Bytes("stack", debug.Stack()).
				Str("method", c.Method()).
				Str("path", c.Path()).
				Msg("Recovered from panic")
			err = fiber.ErrInternalServerError
		}
	}()
	return c.Next()
}
