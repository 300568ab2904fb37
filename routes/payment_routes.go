package routes

import (
	"github.com/anjiri1684/travel_booking/handlers"
	"github.com/anjiri1684/travel_booking/middleware"
	"github.com/gofiber/fiber/v2"
)

func PaymentRoutes(app *fiber.App, h *handlers.Handler, jwtSecret string) {
	api := app.Group("/api/v1")
	payments := api.Group("/payments")

	// The webhook only exists when a signing secret is configured.
	if h.WebhookEnabled() {
		payments.Post("/webhook", h.HandlePaymentWebhook)
	}

	// Called by the gateway without a token and by the front-end with one.
	optional := middleware.OptionalAuth(jwtSecret)
	payments.Get("/:txRef/verify", optional, h.VerifyPayment)
	payments.Get("/:txRef/verify/", optional, h.VerifyPayment)

	protected := middleware.Protected(jwtSecret)
	payments.Get("/me", protected, h.GetMyPayments)
	payments.Get("/:txRef", protected, h.GetPayment)
}
