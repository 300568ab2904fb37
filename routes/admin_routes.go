package routes

import (
	"github.com/anjiri1684/travel_booking/handlers"
	"github.com/anjiri1684/travel_booking/middleware"
	"github.com/gofiber/fiber/v2"
)

func AdminRoutes(app *fiber.App, h *handlers.Handler, jwtSecret string) {
	api := app.Group("/api/v1")

	admin := api.Group("/admin", middleware.Protected(jwtSecret), middleware.AdminRequired())
	admin.Delete("/bookings", h.ClearBookings)
}
