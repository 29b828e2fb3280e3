package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/routinely/routinely/pkg/persistence"
	"github.com/routinely/routinely/pkg/registry"
	"github.com/routinely/routinely/pkg/users"
	"github.com/routinely/routinely/pkg/web"
	"github.com/routinely/routinely/pkg/workflow"
)

type API struct {
	logger   *slog.Logger
	store    persistence.Persistence
	registry *registry.Registry
	engine   *workflow.Engine
	validate *validator.Validate
}

func NewAPI(
	logger *slog.Logger,
	store persistence.Persistence,
	handlerRegistry *registry.Registry,
	engine *workflow.Engine,
) *API {
	return &API{
		logger:   logger,
		store:    store,
		registry: handlerRegistry,
		engine:   engine,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (a *API) App() *fiber.App {
	service := workflow.NewService(a.logger, a.store)
	userService := users.NewService(a.logger, a.store)
	handlers := web.NewAPIHandlers(service, a.engine, userService, a.store, a.registry, a.validate)

	app := fiber.New()
	app.Use(cors.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("routinely API")
	})

	handlers.Register(app)

	return app
}

func (a *API) Start(port int) error {
	return a.App().Listen(":" + strconv.Itoa(port))
}
