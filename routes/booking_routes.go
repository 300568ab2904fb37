package routes

import (
	"github.com/anjiri1684/travel_booking/handlers"
	"github.com/anjiri1684/travel_booking/middleware"
	"github.com/gofiber/fiber/v2"
)

func BookingRoutes(app *fiber.App, h *handlers.Handler, jwtSecret string) {
	api := app.Group("/api/v1")

	booking := api.Group("/bookings", middleware.Protected(jwtSecret))
	booking.Get("/me", h.GetMyBookings)
	booking.Post("", h.CreateBooking)
	booking.Get("/:bookingId", h.GetBooking)
}
