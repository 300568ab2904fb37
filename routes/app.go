package routes

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"
)

type AppConfig struct {
	Name      string
	TimeZone  string
	AccessLog bool
}

// NewApp builds the fiber app with the shared middleware stack and error
// handler. Routes are mounted separately with Register.
func NewApp(cfg AppConfig, log *logrus.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		Prefork:       false,
		AppName:       cfg.Name,
		CaseSensitive: true,
		StrictRouting: true,
		ReadTimeout:   15 * time.Second,
		WriteTimeout:  30 * time.Second,
		IdleTimeout:   60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}

			if code >= fiber.StatusInternalServerError {
				log.WithError(err).WithFields(logrus.Fields{"path": c.Path(), "method": c.Method()}).Error("[ERROR] unhandled")
			}
			return c.Status(code).JSON(fiber.Map{
				"status":  "error",
				"code":    code,
				"message": err.Error(),
			})
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, Chapa-Signature, X-Chapa-Signature",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Authorization",
		MaxAge:        86400,
	}))
	app.Use(recover.New())
	if cfg.AccessLog {
		app.Use(logger.New(logger.Config{
			TimeFormat: "2006-01-02 15:04:05",
			TimeZone:   cfg.TimeZone,
			Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
			Output:     log.Writer(),
		}))
	}

	return app
}
