package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/maintenance-portal/internal/observability"
)

// ServerOptions configures the Fiber application.
type ServerOptions struct {
	AppName        string
	BodyLimit      int
	RequestTimeout time.Duration
}

// NewApp builds the Fiber application with middlewares and routes.
func NewApp(opts ServerOptions, logger *zap.Logger, metrics *observability.Metrics, routes RouteConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               opts.AppName,
		BodyLimit:             opts.BodyLimit,
		DisableStartupMessage: true,
	})
	RegisterMiddlewares(app, logger, metrics, opts.RequestTimeout)
	RegisterRoutes(app, routes)
	return app
}
