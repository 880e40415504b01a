package handlers

import (
	"errors"
	"log/slog"
	"time"

	"github.com/andesco/igproxy/pkg/profilelib"

	"github.com/gofiber/fiber/v2"
)

// CORS sets the permissive CORS and JSON content-type headers on every
// response and answers preflight requests with an empty 200.
func CORS() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
		c.Set(fiber.HeaderAccessControlAllowMethods, "GET, OPTIONS")
		c.Set(fiber.HeaderAccessControlAllowHeaders, "Content-Type")
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

		if c.Method() == fiber.MethodOptions {
			c.Status(fiber.StatusOK)
			return nil
		}
		return c.Next()
	}
}

// AllowGET rejects everything except GET (OPTIONS never gets this far).
func AllowGET() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodGet {
			return c.Status(fiber.StatusMethodNotAllowed).JSON(profilelib.ErrorResponse("Method not allowed"))
		}
		return c.Next()
	}
}

// RequestLogger logs each request with its request id. Errors from the
// chain are rendered here so the logged status is the one sent.
func RequestLogger(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Path() == "/health" || c.Path() == "/metrics" {
			return c.Next()
		}

		start := time.Now()
		requestID, _ := c.Locals("requestid").(string)

		if chainErr := c.Next(); chainErr != nil {
			if err := c.App().Config().ErrorHandler(c, chainErr); err != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		attrs := []any{
			"request_id", requestID,
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}

		httpRequestsTotal.Add(1)
		switch {
		case status >= 500:
			httpErrorsTotal.Add(1)
			logger.Error("request failed", attrs...)
		case status >= 400:
			logger.Warn("request error", attrs...)
		default:
			logger.Debug("request completed", attrs...)
		}
		return nil
	}
}

// ErrorHandler renders every unhandled error as a JSON envelope. Only the
// error text reaches the client.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
		msg := fe.Message
		if fe.Code == fiber.StatusNotFound {
			msg = "Not found"
		}
		return c.Status(fe.Code).JSON(profilelib.ErrorResponse(msg))
	}

	slog.Error("unhandled error", "path", c.Path(), "error", err)
	return c.Status(fiber.StatusInternalServerError).JSON(profilelib.InternalError(err))
}
