package routes

import (
	"github.com/anjiri1684/travel_booking/handlers"
	"github.com/gofiber/fiber/v2"
)

// Register mounts every route on app.
func Register(app *fiber.App, h *handlers.Handler, jwtSecret string) {
	PublicRoutes(app)
	ListingRoutes(app, h, jwtSecret)
	BookingRoutes(app, h, jwtSecret)
	PaymentRoutes(app, h, jwtSecret)
	AdminRoutes(app, h, jwtSecret)
}
