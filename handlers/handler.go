package handlers

import (
	"errors"
	"strconv"

	"github.com/anjiri1684/travel_booking/apperrors"
	"github.com/anjiri1684/travel_booking/database"
	"github.com/anjiri1684/travel_booking/middleware"
	"github.com/anjiri1684/travel_booking/models"
	"github.com/anjiri1684/travel_booking/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var validate = validator.New()

type Handler struct {
	store         database.Store
	bookings      *services.BookingService
	webhookSecret string
	log           *logrus.Logger
}

func New(store database.Store, bookings *services.BookingService, webhookSecret string, log *logrus.Logger) *Handler {
	return &Handler{store: store, bookings: bookings, webhookSecret: webhookSecret, log: log}
}

// WebhookEnabled reports whether a webhook signing secret is configured.
func (h *Handler) WebhookEnabled() bool {
	return h.webhookSecret != ""
}

// fail renders err as {"error", "code", "details"}.
func (h *Handler) fail(c *fiber.Ctx, err error) error {
	appErr := apperrors.As(err)
	if appErr.HTTPStatus >= fiber.StatusInternalServerError {
		h.log.WithError(err).WithFields(logrus.Fields{"path": c.Path(), "method": c.Method()}).Error("Request failed")
	}

	body := fiber.Map{"error": appErr.Message, "code": appErr.Code}
	if len(appErr.Details) > 0 {
		body["details"] = appErr.Details
	}
	return c.Status(appErr.HTTPStatus).JSON(body)
}

// principal fails with fiber.ErrUnauthorized when the route was not
// protected by a token.
func principal(c *fiber.Ctx) (*middleware.Principal, error) {
	p, err := middleware.CurrentUser(c)
	if err != nil {
		return nil, fiber.ErrUnauthorized
	}
	return p, nil
}

func parseID(c *fiber.Ctx, param, resource string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(param))
	if err != nil {
		return uuid.Nil, apperrors.NotFound(resource, c.Params(param))
	}
	return id, nil
}

func notFoundOr(err error, resource, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound(resource, id)
	}
	return apperrors.Internal("An internal error occurred.", err)
}

func pagination(c *fiber.Ctx) (limit, offset int) {
	limit, _ = strconv.Atoi(c.Query("limit", "20"))
	offset, _ = strconv.Atoi(c.Query("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func bookingJSON(b *models.Booking) fiber.Map {
	m := fiber.Map{
		"booking_id":  b.ID,
		"property_id": b.ListingID,
		"user_id":     b.UserID,
		"start_date":  b.StartDate.Format(models.DateLayout),
		"end_date":    b.EndDate.Format(models.DateLayout),
		"total_price": b.TotalPrice.StringFixed(2),
		"status":      b.Status,
		"created_at":  b.CreatedAt,
	}
	if b.Listing != nil {
		m["listing"] = b.Listing
	}
	return m
}

func paymentJSON(p *models.Payment) fiber.Map {
	return fiber.Map{
		"payment_id":           p.ID,
		"booking_id":           p.BookingID,
		"user_id":              p.UserID,
		"amount":               p.Amount.StringFixed(2),
		"currency":             p.Currency,
		"tx_ref":               p.TxRef,
		"chapa_transaction_id": p.GatewayTxID,
		"status":               p.Status,
		"checkout_url":         p.CheckoutURL,
		"created_at":           p.CreatedAt,
		"updated_at":           p.UpdatedAt,
	}
}
