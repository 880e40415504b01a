package handlers

import (
	"net/url"

	"github.com/andesco/igproxy/pkg/profilelib"

	"github.com/gofiber/fiber/v2"
)

// ProfileLookup is a Fiber handler that resolves a username through the
// shared profile library.
func ProfileLookup(svc *profilelib.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		status, resp := svc.Lookup(c.UserContext(), extractUsername(c))
		return c.Status(status).JSON(resp)
	}
}

// extractUsername reads the username from the path form /api/user/<name>
// or, failing that, the ?username= query parameter.
func extractUsername(c *fiber.Ctx) string {
	if p := c.Params("username"); p != "" {
		// try to extract url-encoded
		decoded, err := url.PathUnescape(p)
		if err != nil {
			// fallback
			return p
		}
		return decoded
	}
	return c.Query("username")
}

// Docs serves the static API description.
func Docs(cfg profilelib.Config) fiber.Handler {
	docs := cfg.DocsFor("Go server")
	return func(c *fiber.Ctx) error {
		return c.JSON(docs)
	}
}

// ExposeConfig serves the effective configuration as YAML when enabled.
func ExposeConfig(cfg profilelib.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !cfg.ExposeConfig {
			return c.Status(fiber.StatusForbidden).JSON(profilelib.ErrorResponse("Config exposure disabled"))
		}
		body, err := cfg.YAML()
		if err != nil {
			return err
		}
		c.Set(fiber.HeaderContentType, "application/x-yaml")
		return c.Send(body)
	}
}

func Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
