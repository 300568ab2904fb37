package routes

import (
	"github.com/anjiri1684/travel_booking/handlers"
	"github.com/anjiri1684/travel_booking/middleware"
	"github.com/gofiber/fiber/v2"
)

func PublicRoutes(app *fiber.App) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})
}

func ListingRoutes(app *fiber.App, h *handlers.Handler, jwtSecret string) {
	api := app.Group("/api/v1")

	listings := api.Group("/listings")
	listings.Get("", h.ListListings)
	listings.Get("/:listingId", h.GetListing)

	protected := middleware.Protected(jwtSecret)
	listings.Post("", protected, h.CreateListing)
	listings.Put("/:listingId", protected, h.UpdateListing)
	listings.Delete("/:listingId", protected, h.DeleteListing)
}
