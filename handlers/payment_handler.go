package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/anjiri1684/travel_booking/apperrors"
	"github.com/anjiri1684/travel_booking/middleware"
	"github.com/anjiri1684/travel_booking/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func (h *Handler) GetMyPayments(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	payments, err := h.store.ListPaymentsByUser(c.UserContext(), p.UserID)
	if err != nil {
		return h.fail(c, apperrors.Internal("Could not retrieve payments", err))
	}

	out := make([]fiber.Map, 0, len(payments))
	for i := range payments {
		out = append(out, paymentJSON(&payments[i]))
	}
	return c.JSON(out)
}

func (h *Handler) GetPayment(c *fiber.Ctx) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	txRef := c.Params("txRef")
	payment, err := h.store.GetPaymentByTxRef(c.UserContext(), txRef)
	if err != nil {
		return h.fail(c, notFoundOr(err, "payment", txRef))
	}
	if payment.UserID != p.UserID {
		return h.fail(c, apperrors.Forbidden("You do not have permission to view this payment."))
	}
	return c.JSON(paymentJSON(payment))
}

// VerifyPayment serves both the gateway callback and the front-end poll
// after checkout. Every outcome other than not-found, forbidden and internal
// errors answers 200 so the gateway does not retry ordinary rejections.
func (h *Handler) VerifyPayment(c *fiber.Ctx) error {
	var caller *uuid.UUID
	if p, err := middleware.CurrentUser(c); err == nil {
		caller = &p.UserID
	}

	result, err := h.bookings.VerifyPayment(c.UserContext(), c.Params("txRef"), caller)
	if err != nil {
		if apperrors.Is(err, apperrors.CodeNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Transaction not found.", "code": apperrors.CodeNotFound})
		}
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(verifyJSON(result))
}

func verifyJSON(r *services.VerifyResult) fiber.Map {
	switch r.Kind {
	case services.VerifyConfirmed:
		return fiber.Map{
			"status":         r.Message,
			"booking_id":     r.BookingID,
			"transaction_id": r.GatewayTxID,
		}
	case services.VerifyRejected:
		return fiber.Map{"status": "Payment verification failed with Chapa."}
	case services.VerifyUnreachable:
		return fiber.Map{"error": r.Message, "payment_status": r.PaymentStatus}
	case services.VerifySettled:
		m := fiber.Map{
			"status":         r.PaymentStatus,
			"message":        r.Message,
			"booking_id":     r.BookingID,
			"booking_status": r.BookingStatus,
		}
		if r.GatewayTxID != "" {
			m["transaction_id"] = r.GatewayTxID
		}
		return m
	default:
		return fiber.Map{"status": r.PaymentStatus, "message": r.Message, "booking_status": r.BookingStatus}
	}
}

type chapaWebhookPayload struct {
	TxRef    string `json:"tx_ref"`
	TrxRef   string `json:"trx_ref"`
	Status   string `json:"status"`
	Currency string `json:"currency"`
}

const (
	HeaderChapaSignature  = "Chapa-Signature"
	HeaderXChapaSignature = "X-Chapa-Signature"
)

// HandlePaymentWebhook accepts a signed gateway event and re-verifies the
// referenced transaction with the gateway. The status in the body is never
// trusted.
func (h *Handler) HandlePaymentWebhook(c *fiber.Ctx) error {
	body := c.Body()
	if !h.validSignature(body, c.Get(HeaderChapaSignature), c.Get(HeaderXChapaSignature)) {
		h.log.WithField("ip", c.IP()).Warn("Rejected payment webhook with invalid signature")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid webhook signature"})
	}

	var payload chapaWebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse webhook payload"})
	}
	txRef := payload.TxRef
	if txRef == "" {
		txRef = payload.TrxRef
	}
	if txRef == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing tx_ref"})
	}

	h.log.WithFields(logrus.Fields{"tx_ref": txRef, "reported_status": payload.Status}).Info("Received payment webhook")

	result, err := h.bookings.VerifyPayment(c.UserContext(), txRef, nil)
	if err != nil {
		if apperrors.Is(err, apperrors.CodeNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Payment record not found"})
		}
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message":        "Webhook processed",
		"tx_ref":         result.TxRef,
		"payment_status": result.PaymentStatus,
	})
}

// validSignature checks the gateway's webhook headers. X-Chapa-Signature is
// the hex HMAC-SHA256 of the raw body and is preferred. Chapa-Signature is
// the HMAC-SHA256 of the secret itself, keyed with the secret; it proves the
// sender knows the secret but not that the body is intact.
func (h *Handler) validSignature(body []byte, chapaSig, xChapaSig string) bool {
	if h.webhookSecret == "" {
		return false
	}
	if xChapaSig != "" {
		return hmacMatches(xChapaSig, h.webhookSecret, body)
	}
	if chapaSig != "" {
		return hmacMatches(chapaSig, h.webhookSecret, []byte(h.webhookSecret))
	}
	return false
}

func hmacMatches(sig, secret string, msg []byte) bool {
	got, err := hex.DecodeString(strings.TrimSpace(sig))
	if err != nil || len(got) == 0 {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(msg)
	return hmac.Equal(got, mac.Sum(nil))
}
