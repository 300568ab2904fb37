package handlers

import (
	"errors"

	"github.com/anjiri1684/travel_booking/apperrors"
	"github.com/anjiri1684/travel_booking/database"
	"github.com/anjiri1684/travel_booking/models"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type ListingRequest struct {
	Name          string          `json:"name" validate:"required,max=255"`
	Description   string          `json:"description"`
	Location      string          `json:"location" validate:"required,max=255"`
	PricePerNight decimal.Decimal `json:"price_per_night"`
}

func (r ListingRequest) check() error {
	if err := validate.Struct(r); err != nil {
		return apperrors.Validation(err.Error())
	}
	if !r.PricePerNight.IsPositive() {
		return apperrors.Validation("Price per night must be greater than 0.")
	}
	return nil
}

func (h *Handler) ListListings(c *fiber.Ctx) error {
	limit, offset := pagination(c)
	listings, err := h.store.ListListings(c.UserContext(), limit, offset)
	if err != nil {
		return h.fail(c, apperrors.Internal("Could not retrieve listings", err))
	}
	return c.JSON(fiber.Map{"results": listings, "limit": limit, "offset": offset})
}

func (h *Handler) GetListing(c *fiber.Ctx) error {
	id, err := parseID(c, "listingId", "listing")
	if err != nil {
		return h.fail(c, err)
	}
	listing, err := h.store.GetListing(c.UserContext(), id)
	if err != nil {
		return h.fail(c, notFoundOr(err, "listing", id.String()))
	}
	return c.JSON(listing)
}

func (h *Handler) CreateListing(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	var req ListingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := req.check(); err != nil {
		return h.fail(c, err)
	}

	listing := models.Listing{
		OwnerID:       p.UserID,
		Name:          req.Name,
		Description:   req.Description,
		Location:      req.Location,
		PricePerNight: req.PricePerNight.Round(2),
	}
	if err := h.store.CreateListing(c.UserContext(), &listing); err != nil {
		return h.fail(c, apperrors.Internal("Could not create listing", err))
	}
	return c.Status(fiber.StatusCreated).JSON(listing)
}

func (h *Handler) UpdateListing(c *fiber.Ctx) error {
	listing, err := h.ownedListing(c)
	if err != nil {
		return h.fail(c, err)
	}

	var req ListingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := req.check(); err != nil {
		return h.fail(c, err)
	}

	listing.Name = req.Name
	listing.Description = req.Description
	listing.Location = req.Location
	listing.PricePerNight = req.PricePerNight.Round(2)
	if err := h.store.SaveListing(c.UserContext(), listing); err != nil {
		return h.fail(c, apperrors.Internal("Could not update listing", err))
	}
	return c.JSON(listing)
}

func (h *Handler) DeleteListing(c *fiber.Ctx) error {
	listing, err := h.ownedListing(c)
	if err != nil {
		return h.fail(c, err)
	}
	err = h.store.DeleteListing(c.UserContext(), listing.ID)
	if errors.Is(err, database.ErrListingBooked) {
		return h.fail(c, apperrors.Validation("Listings with bookings cannot be deleted."))
	}
	if err != nil {
		return h.fail(c, notFoundOr(err, "listing", listing.ID.String()))
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) ownedListing(c *fiber.Ctx) (*models.Listing, error) {
	p, err := principal(c)
	if err != nil {
		return nil, err
	}
	id, err := parseID(c, "listingId", "listing")
	if err != nil {
		return nil, err
	}
	listing, err := h.store.GetListing(c.UserContext(), id)
	if err != nil {
		return nil, notFoundOr(err, "listing", id.String())
	}
	if listing.OwnerID != p.UserID {
		return nil, apperrors.Forbidden("Only the host can modify this listing.")
	}
	return listing, nil
}
