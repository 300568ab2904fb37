package handlers

import (
	"github.com/anjiri1684/travel_booking/apperrors"
	"github.com/gofiber/fiber/v2"
)

// ClearBookings deletes every booking with its payments and notification
// jobs.
func (h *Handler) ClearBookings(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	n, err := h.store.ClearBookings(c.UserContext())
	if err != nil {
		return h.fail(c, apperrors.Internal("Could not clear bookings", err))
	}

	h.log.WithField("admin", p.UserID).WithField("deleted", n).Warn("All bookings cleared")
	return c.JSON(fiber.Map{"message": "Bookings cleared", "deleted": n})
}
