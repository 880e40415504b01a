package handlers

import (
	"log/slog"

	"github.com/andesco/igproxy/pkg/profilelib"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
)

// AppConfig holds the server-only knobs.
type AppConfig struct {
	Prefork bool
	Logger  *slog.Logger
}

// NewApp builds the Fiber app serving the profile API.
func NewApp(svc *profilelib.Service, ac AppConfig) *fiber.App {
	cfg := svc.Fetcher().Config()
	logger := ac.Logger
	if logger == nil {
		logger = slog.Default()
	}

	app := fiber.New(fiber.Config{
		Prefork:               ac.Prefork,
		ErrorHandler:          ErrorHandler,
		DisableStartupMessage: true,
	})

	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(RequestLogger(logger))
	app.Use(recover.New())
	app.Use(CORS())
	app.Use(AllowGET())

	app.Get("/", Docs(cfg))
	app.Get("/api", Docs(cfg))
	app.Get("/api/user", ProfileLookup(svc))
	app.Get("/api/user/:username", ProfileLookup(svc))

	app.Get("/health", Health)
	app.Get("/metrics", Metrics(cfg.Cache.Backend))
	app.Get("/config", ExposeConfig(cfg))

	return app
}
