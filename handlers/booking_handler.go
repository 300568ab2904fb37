package handlers

import (
	"time"

	"github.com/anjiri1684/travel_booking/apperrors"
	"github.com/anjiri1684/travel_booking/models"
	"github.com/anjiri1684/travel_booking/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type CreateBookingRequest struct {
	ListingID string `json:"listing_id" validate:"required,uuid"`
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
}

func (h *Handler) CreateBooking(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	var req CreateBookingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error(), "code": apperrors.CodeValidation})
	}

	listingID, _ := uuid.Parse(req.ListingID)
	start, _ := time.Parse(models.DateLayout, req.StartDate)
	end, _ := time.Parse(models.DateLayout, req.EndDate)

	res, err := h.bookings.CreateBooking(c.UserContext(), services.CreateBookingInput{
		Payer: services.Payer{
			UserID:    p.UserID,
			Email:     p.Email,
			Username:  p.Username,
			FirstName: p.FirstName,
			LastName:  p.LastName,
		},
		ListingID: listingID,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		return h.fail(c, err)
	}

	body := bookingJSON(&res.Booking)
	body["payment_status"] = res.Payment.Status
	body["payment_link"] = res.CheckoutURL
	body["tx_ref"] = res.Payment.TxRef
	return c.Status(fiber.StatusCreated).JSON(body)
}

func (h *Handler) GetMyBookings(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	bookings, err := h.store.ListBookingsByUser(c.UserContext(), p.UserID)
	if err != nil {
		return h.fail(c, apperrors.Internal("Could not retrieve bookings", err))
	}

	out := make([]fiber.Map, 0, len(bookings))
	for i := range bookings {
		out = append(out, bookingJSON(&bookings[i]))
	}
	return c.JSON(out)
}

func (h *Handler) GetBooking(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	id, err := parseID(c, "bookingId", "booking")
	if err != nil {
		return h.fail(c, err)
	}
	booking, err := h.store.GetBooking(c.UserContext(), id)
	if err != nil {
		return h.fail(c, notFoundOr(err, "booking", id.String()))
	}
	if booking.UserID != p.UserID {
		return h.fail(c, apperrors.Forbidden("You do not have permission to view this booking."))
	}
	return c.JSON(bookingJSON(booking))
}
